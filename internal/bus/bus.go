// Package bus wires the CPU to cartridge ROM/RAM, work RAM, the PPU, the
// APU, the timer, joypad, serial port, and OAM DMA behind a single
// flat address space.
package bus

import (
	"bytes"
	"encoding/gob"

	"github.com/rgrafen/pocketgb/internal/apu"
	"github.com/rgrafen/pocketgb/internal/cart"
	"github.com/rgrafen/pocketgb/internal/ppu"
)

// Joypad button bits for SetJoypadState. Bit positions are internal and
// unrelated to the hardware P1x pin numbering.
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// timerSelectBit maps TAC bits 0-1 to the divInternal bit that clocks TIMA.
var timerSelectBit = [4]uint{9, 3, 5, 7}

// SerialWriter receives bytes shifted out over the serial port.
type SerialWriter interface {
	Write(p []byte) (int, error)
}

type Bus struct {
	cart cart.Cartridge
	ppu  *ppu.PPU
	apu  *apu.APU

	wram     [8][0x1000]byte // CGB: 8 switchable 4KB banks; DMG only ever uses bank 0 and 1
	wramBank byte            // SVBK selection; 0 is treated as 1
	hram     [0x7F]byte      // 0xFF80-0xFFFE

	ie    byte // 0xFFFF
	ifReg byte // 0xFF0F, lower 5 bits meaningful

	joyp        byte // select bits (bit4/5), stored as written
	joypadState byte // currently pressed buttons, JoypXxx bits

	serial SerialWriter
	sb     byte
	sc     byte

	// Timer
	tac           byte
	tima          byte
	tma           byte
	divInternal   uint16
	reloadPending bool
	reloadCounter int

	// OAM DMA
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	// Boot ROM overlay
	bootROM    []byte
	cgbBootROM []byte
	bootMode   int // 0=off, 1=DMG, 2=CGB

	cgbMode     bool
	doubleSpeed bool
	speedArmed  bool
}

func New(rom []byte) *Bus {
	b := &Bus{
		cart:     cart.NewCartridge(rom),
		wramBank: 1,
		joyp:     0x30,
	}
	b.ppu = ppu.New(func(bit int) { b.RequestInterrupt(bit) })
	b.apu = apu.New(44100)
	return b
}

// Cart, PPU and APU expose the owned subsystems to the emulator core.
func (b *Bus) Cart() cart.Cartridge { return b.cart }
func (b *Bus) PPU() *ppu.PPU        { return b.ppu }
func (b *Bus) APU() *apu.APU        { return b.apu }

// RequestInterrupt sets an IF bit (0:VBlank 1:STAT 2:Timer 3:Serial 4:Joypad).
func (b *Bus) RequestInterrupt(bit int) {
	b.ifReg |= 1 << uint(bit)
}

func (b *Bus) SetSerialWriter(w SerialWriter) { b.serial = w }

// joypLowNibble computes the currently-visible lower nibble of JOYP given
// the select bits and the pressed-button state, 0 meaning pressed/selected.
func (b *Bus) joypLowNibble() byte {
	low := byte(0x0F)
	if b.joyp&0x10 == 0 { // P14 low: D-pad selected
		if b.joypadState&JoypRight != 0 {
			low &^= 1 << 0
		}
		if b.joypadState&JoypLeft != 0 {
			low &^= 1 << 1
		}
		if b.joypadState&JoypUp != 0 {
			low &^= 1 << 2
		}
		if b.joypadState&JoypDown != 0 {
			low &^= 1 << 3
		}
	}
	if b.joyp&0x20 == 0 { // P15 low: buttons selected
		if b.joypadState&JoypA != 0 {
			low &^= 1 << 0
		}
		if b.joypadState&JoypB != 0 {
			low &^= 1 << 1
		}
		if b.joypadState&JoypSelectBtn != 0 {
			low &^= 1 << 2
		}
		if b.joypadState&JoypStart != 0 {
			low &^= 1 << 3
		}
	}
	return low
}

func (b *Bus) SetJoypadState(mask byte) {
	prevLow := b.joypLowNibble()
	b.joypadState = mask
	newLow := b.joypLowNibble()
	// A line going from unpressed(1) to pressed(0) while selected is a
	// falling edge on that P1x pin and raises the joypad interrupt.
	if prevLow&^newLow != 0 {
		b.RequestInterrupt(4)
	}
}

func (b *Bus) SetCGBMode(on bool) { b.cgbMode = on }

// CGBMode reports whether the bus is running a cartridge in color mode.
func (b *Bus) CGBMode() bool { return b.cgbMode }

func (b *Bus) SetBootROM(data []byte)    { b.bootROM = data }
func (b *Bus) SetCGBBootROM(data []byte) { b.cgbBootROM = data }

// EnableBoot selects the active boot ROM overlay: 0 off, 1 DMG, 2 CGB.
func (b *Bus) EnableBoot(mode int) { b.bootMode = mode }

// KEY1 returns the CGB speed-switch register as read by the CPU's STOP
// handler: bit7 is the current speed, bit0 is the armed flag.
func (b *Bus) KEY1() byte {
	v := byte(0x7E)
	if b.doubleSpeed {
		v |= 0x80
	}
	if b.speedArmed {
		v |= 0x01
	}
	return v
}

// ToggleSpeed flips the CGB double-speed flag and disarms the pending switch.
func (b *Bus) ToggleSpeed() {
	b.doubleSpeed = !b.doubleSpeed
	b.speedArmed = false
}

// timerInput reports the current state of the divider bit that clocks TIMA,
// gated by TAC's enable bit (bit2).
func (b *Bus) timerInput() bool {
	if b.tac&0x04 == 0 {
		return false
	}
	bit := timerSelectBit[b.tac&0x03]
	return (b.divInternal>>bit)&1 != 0
}

// incrementTIMA applies a single falling-edge tick to TIMA, arming the
// 4-cycle delayed TMA reload on overflow. A reload already in flight
// absorbs further edges; real hardware holds TIMA at 0 during the delay.
func (b *Bus) incrementTIMA() {
	if b.reloadPending {
		return
	}
	b.tima++
	if b.tima == 0 {
		b.reloadPending = true
		b.reloadCounter = 4
	}
}

func (b *Bus) bootOverlayByte(addr uint16) (byte, bool) {
	switch b.bootMode {
	case 1:
		if addr < 0x100 && int(addr) < len(b.bootROM) {
			return b.bootROM[addr], true
		}
	case 2:
		if addr < 0x100 && int(addr) < len(b.cgbBootROM) {
			return b.cgbBootROM[addr], true
		}
		if addr >= 0x200 && addr < 0x900 {
			off := int(addr) - 0x100
			if off < len(b.cgbBootROM) {
				return b.cgbBootROM[off], true
			}
		}
	}
	return 0, false
}

func (b *Bus) wramRef(addr uint16) *byte {
	off := addr
	if off >= 0xE000 {
		off -= 0x2000
	}
	off -= 0xC000
	if off < 0x1000 {
		return &b.wram[0][off]
	}
	bank := b.wramBank & 0x07
	if bank == 0 {
		bank = 1
	}
	return &b.wram[bank][off-0x1000]
}

func (b *Bus) Read(addr uint16) byte {
	if v, ok := b.bootOverlayByte(addr); ok {
		return v
	}
	switch {
	case addr < 0x8000, addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xC000 && addr <= 0xDFFF, addr >= 0xE000 && addr <= 0xFDFF:
		return *b.wramRef(addr)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		return 0xFF
	case addr == 0xFF00:
		return 0xC0 | (b.joyp & 0x30) | b.joypLowNibble()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | b.sc
	case addr == 0xFF04:
		return byte(b.divInternal >> 8)
	case addr == 0xFF05:
		return b.tima
	case addr == 0xFF06:
		return b.tma
	case addr == 0xFF07:
		return 0xF8 | (b.tac & 0x07)
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr == 0xFF46:
		return 0xFF
	case addr == 0xFF4D:
		return b.KEY1()
	case addr == 0xFF4F:
		return 0xFE | b.ppu.VRAMBank()
	case addr == 0xFF50:
		return 0xFF
	case addr == 0xFF70:
		return 0xF8 | (b.wramBank & 0x07)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF68 && addr <= 0xFF6B:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.ie
	default:
		return 0xFF
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000, addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF, addr >= 0xE000 && addr <= 0xFDFF:
		*b.wramRef(addr) = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		// unusable
	case addr == 0xFF00:
		b.joyp = value & 0x30
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value & 0x81
		if b.sc&0x81 == 0x81 {
			if b.serial != nil {
				_, _ = b.serial.Write([]byte{b.sb})
			}
			b.sc &^= 0x80
			b.RequestInterrupt(3)
		}
	case addr == 0xFF04:
		prev := b.timerInput()
		b.divInternal = 0
		if prev && !b.timerInput() {
			b.incrementTIMA()
		}
	case addr == 0xFF05:
		if b.reloadPending {
			b.reloadPending = false
		}
		b.tima = value
	case addr == 0xFF06:
		b.tma = value
	case addr == 0xFF07:
		prev := b.timerInput()
		b.tac = value & 0x07
		if prev && !b.timerInput() {
			b.incrementTIMA()
		}
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFF46:
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
	case addr == 0xFF4D:
		// The speed switch only exists in color mode; a DMG cartridge
		// writing KEY1 must not be able to arm it.
		if b.cgbMode {
			b.speedArmed = value&0x01 != 0
		}
	case addr == 0xFF4F:
		b.ppu.SetVRAMBank(value)
	case addr == 0xFF50:
		if value != 0 {
			b.bootMode = 0
		}
	case addr == 0xFF70:
		// SVBK only exists in color mode; DMG keeps bank 1 at 0xD000.
		if b.cgbMode {
			b.wramBank = value & 0x07
		}
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF68 && addr <= 0xFF6B:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.ie = value
	}
}

// Tick advances the timer and OAM DMA one T-cycle at a time (their edge
// timing depends on it), then drives the PPU and APU for the whole batch.
func (b *Bus) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		prev := b.timerInput()
		b.divInternal++
		edge := prev && !b.timerInput()

		if b.reloadPending {
			b.reloadCounter--
			if b.reloadCounter == 0 {
				b.tima = b.tma
				b.reloadPending = false
				b.RequestInterrupt(2)
			}
		} else if edge {
			b.incrementTIMA()
		}

		if b.dmaActive {
			src := b.dmaSrc + uint16(b.dmaIndex)
			b.ppu.DMAWriteOAM(0xFE00+uint16(b.dmaIndex), b.Read(src))
			b.dmaIndex++
			if b.dmaIndex >= 160 {
				b.dmaActive = false
			}
		}
	}
	b.ppu.Tick(cycles)
	b.apu.Tick(cycles)
}

type busState struct {
	WRAM          [8][0x1000]byte
	WRAMBank      byte
	HRAM          [0x7F]byte
	IE, IF        byte
	Joyp          byte
	JoypadState   byte
	SB, SC        byte
	TAC, TIMA, TMA byte
	DivInternal   uint16
	ReloadPending bool
	ReloadCounter int
	DMAActive     bool
	DMASrc        uint16
	DMAIndex      int
	BootMode      int
	CGBMode       bool
	DoubleSpeed   bool
	SpeedArmed    bool
	Cart          []byte
	PPU           []byte
	APU           []byte
}

func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	s := busState{
		WRAM: b.wram, WRAMBank: b.wramBank, HRAM: b.hram,
		IE: b.ie, IF: b.ifReg, Joyp: b.joyp, JoypadState: b.joypadState,
		SB: b.sb, SC: b.sc, TAC: b.tac, TIMA: b.tima, TMA: b.tma,
		DivInternal: b.divInternal, ReloadPending: b.reloadPending, ReloadCounter: b.reloadCounter,
		DMAActive: b.dmaActive, DMASrc: b.dmaSrc, DMAIndex: b.dmaIndex,
		BootMode: b.bootMode, CGBMode: b.cgbMode, DoubleSpeed: b.doubleSpeed, SpeedArmed: b.speedArmed,
		Cart: b.cart.SaveState(), PPU: b.ppu.SaveState(), APU: b.apu.SaveState(),
	}
	_ = enc.Encode(s)
	return buf.Bytes()
}

func (b *Bus) LoadState(data []byte) {
	var s busState
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return
	}
	b.wram, b.wramBank, b.hram = s.WRAM, s.WRAMBank, s.HRAM
	b.ie, b.ifReg, b.joyp, b.joypadState = s.IE, s.IF, s.Joyp, s.JoypadState
	b.sb, b.sc, b.tac, b.tima, b.tma = s.SB, s.SC, s.TAC, s.TIMA, s.TMA
	b.divInternal, b.reloadPending, b.reloadCounter = s.DivInternal, s.ReloadPending, s.ReloadCounter
	b.dmaActive, b.dmaSrc, b.dmaIndex = s.DMAActive, s.DMASrc, s.DMAIndex
	b.bootMode, b.cgbMode, b.doubleSpeed, b.speedArmed = s.BootMode, s.CGBMode, s.DoubleSpeed, s.SpeedArmed
	b.cart.LoadState(s.Cart)
	b.ppu.LoadState(s.PPU)
	b.apu.LoadState(s.APU)
}
