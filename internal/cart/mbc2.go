package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC2 implements ROM banking plus a small built-in 512x4-bit RAM.
// Unlike MBC1/MBC3/MBC5 the RAM is part of the cartridge silicon, not an
// external chip, but it is still addressed through 0xA000-0xBFFF and can
// be battery-backed.
type MBC2 struct {
	rom []byte
	ram [512]byte // only the low nibble of each byte is meaningful

	romBank    byte // 4 bits (0 maps to 1)
	ramEnabled bool
}

func NewMBC2(rom []byte) *MBC2 {
	m := &MBC2{rom: rom}
	m.romBank = 1
	return m
}

func (m *MBC2) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		bank := int(m.romBank & 0x0F)
		if bank == 0 {
			bank = 1
		}
		off := bank*0x4000 + int(addr-0x4000)
		if off >= 0 && off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		// RAM is 512 entries, 4-bit wide, mirrored across the A000-BFFF window.
		v := m.ram[int(addr-0xA000)%512]
		return 0xF0 | v
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		// RAM enable and ROM bank select share the 0000-3FFF window on MBC2;
		// bit8 of the address (bit0 of the upper byte) picks which.
		if addr&0x0100 == 0 {
			m.ramEnabled = (value & 0x0F) == 0x0A
		} else {
			v := value & 0x0F
			if v == 0 {
				v = 1
			}
			m.romBank = v
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		m.ram[int(addr-0xA000)%512] = value & 0x0F
	}
}

// BatteryBacked implementation
func (m *MBC2) SaveRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) LoadRAM(data []byte) {
	if len(data) == 0 {
		return
	}
	n := copy(m.ram[:], data)
	_ = n
}

type mbc2State struct {
	RAM        [512]byte
	RomBank    byte
	RamEnabled bool
}

func (m *MBC2) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	s := mbc2State{RAM: m.ram, RomBank: m.romBank, RamEnabled: m.ramEnabled}
	_ = enc.Encode(s)
	return buf.Bytes()
}

func (m *MBC2) LoadState(data []byte) {
	var s mbc2State
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return
	}
	m.ram = s.RAM
	m.romBank, m.ramEnabled = s.RomBank, s.RamEnabled
}
