package cart

import "testing"

func TestMBC2_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("bank0 read got %02X want 00", got)
	}
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank1 default read got %02X want 01", got)
	}

	// bit8 of the address set selects ROM bank (not RAM enable)
	m.Write(0x2100, 0x05)
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}

	// writing 0 remaps to bank 1
	m.Write(0x2100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_RAMEnableAndNibbleWidth(t *testing.T) {
	rom := make([]byte, 256*1024)
	m := NewMBC2(rom)

	// RAM disabled: reads return 0xFF
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}

	// bit8 of the address clear + low nibble 0x0A enables RAM
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0xF7)
	if got := m.Read(0xA000); got != 0xF7 {
		t.Fatalf("RAM RW got %02X want F7 (high nibble forced to 1s)", got)
	}

	// RAM is 512 entries mirrored across the whole A000-BFFF window
	if got := m.Read(0xA200); got != 0xF7 {
		t.Fatalf("mirrored RAM read got %02X want F7", got)
	}

	// disabling RAM hides writes again
	m.Write(0x0000, 0x00)
	m.Write(0xA000, 0xF3)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("write-while-disabled should not stick: got %02X", got)
	}
}

func TestMBC2_SaveLoadState(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)
	m.Write(0x0000, 0x0A)
	m.Write(0x2100, 0x07)
	m.Write(0xA010, 0x09)

	data := m.SaveState()

	m2 := NewMBC2(rom)
	m2.LoadState(data)

	if got := m2.Read(0x4000); got != 0x07 {
		t.Fatalf("restored bank got %02X want 07", got)
	}
	if got := m2.Read(0xA010); got != 0xF9 {
		t.Fatalf("restored RAM got %02X want F9", got)
	}
}
