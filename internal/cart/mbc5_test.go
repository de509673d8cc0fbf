package cart

import "testing"

func TestMBC5_ROMBanking9Bit(t *testing.T) {
	rom := make([]byte, 8*1024*1024) // 512 banks, enough to reach bank 0x180 via bit 8
	for bank := 0; bank < 256; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC5(rom, 0)

	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("fixed bank0 read got %02X want 00", got)
	}
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default switchable bank got %02X want 01", got)
	}

	// low 8 bits via 0x2000-0x2FFF
	m.Write(0x2000, 0x80)
	if got := m.Read(0x4000); got != 0x80 {
		t.Fatalf("low byte bank select got %02X want 80", got)
	}

	// bit 8 via 0x3000-0x3FFF combines with the low byte to reach bank 0x180
	m.Write(0x3000, 0x01)
	rom[0x180*0x4000] = 0xAB // bank 0x180 lies beyond the 256-bank marker loop above
	if got := m.Read(0x4000); got != 0xAB {
		t.Fatalf("9-bit bank select got %02X want AB", got)
	}
}

func TestMBC5_RAMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	m := NewMBC5(rom, 4*0x2000) // 4 RAM banks

	m.Write(0x0000, 0x0A) // enable RAM
	m.Write(0x4000, 0x02) // select RAM bank 2

	m.Write(0xA000, 0x99)
	if got := m.Read(0xA000); got != 0x99 {
		t.Fatalf("RAM bank2 RW got %02X want 99", got)
	}

	m.Write(0x4000, 0x00) // back to bank 0
	if got := m.Read(0xA000); got == 0x99 {
		t.Fatal("RAM bank0 should not alias bank2's data")
	}
}

func TestMBC5_SaveLoadState(t *testing.T) {
	rom := make([]byte, 256*1024)
	m := NewMBC5(rom, 0x2000)
	m.Write(0x0000, 0x0A)
	m.Write(0x2000, 0x05)
	m.Write(0xA000, 0x42)

	data := m.SaveState()

	m2 := NewMBC5(rom, 0x2000)
	m2.LoadState(data)

	if got := m2.Read(0xA000); got != 0x42 {
		t.Fatalf("restored RAM got %02X want 42", got)
	}
}
