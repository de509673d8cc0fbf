package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace        bool // log CPU instructions
	LimitFPS     bool // throttle to ~60 Hz (useful for headless test mode)
	UseFetcherBG bool // render BG via fetcher/FIFO scanline path
	UseCGBBG     bool // render BG/window via the CGB-attribute-aware scanline path
	// Later: fast-forward, debugger flags, etc.
}
