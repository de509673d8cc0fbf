package emu

import "testing"

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	m := New(Config{})
	rom := make([]byte, 0x8000)
	if err := m.LoadCartridge(rom, nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	return m
}

func TestRenderBG_LCDOff_ShowsBGPIndex3(t *testing.T) {
	m := newTestMachine(t)
	m.Bus().Write(0xFF40, 0x00) // LCD off (bit7 clear)
	m.Bus().Write(0xFF47, 0xFC) // default boot BGP: index 3 -> black

	m.renderBG()

	fb := m.Framebuffer()
	if fb[0] != 0x00 || fb[1] != 0x00 || fb[2] != 0x00 {
		t.Fatalf("LCD-off frame got RGB(%d,%d,%d), want black (BGP index 3)", fb[0], fb[1], fb[2])
	}
	if m.bgci[0] != 3 {
		t.Fatalf("LCD-off bgci got %d, want 3", m.bgci[0])
	}
}

func TestRenderBG_BGDisabled_ShowsWhite(t *testing.T) {
	m := newTestMachine(t)
	m.Bus().Write(0xFF40, 0x80) // LCD on, BG off (bit0 clear)
	m.Bus().Write(0xFF47, 0xFC)

	m.renderBG()

	fb := m.Framebuffer()
	if fb[0] != 0xFF || fb[1] != 0xFF || fb[2] != 0xFF {
		t.Fatalf("BG-disabled frame got RGB(%d,%d,%d), want white", fb[0], fb[1], fb[2])
	}
	if m.bgci[0] != 0 {
		t.Fatalf("BG-disabled bgci got %d, want 0", m.bgci[0])
	}
}

func TestRenderBG_LCDOff_UsesFetcherPath(t *testing.T) {
	m := newTestMachine(t)
	m.SetUseFetcherBG(true)
	m.Bus().Write(0xFF40, 0x00)
	m.Bus().Write(0xFF47, 0xFC)

	m.renderBG()

	fb := m.Framebuffer()
	if fb[0] != 0x00 || fb[1] != 0x00 || fb[2] != 0x00 {
		t.Fatalf("fetcher-path LCD-off frame got RGB(%d,%d,%d), want black", fb[0], fb[1], fb[2])
	}
}
