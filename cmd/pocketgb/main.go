package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	"github.com/rgrafen/pocketgb/internal/cart"
	"github.com/rgrafen/pocketgb/internal/emu"
	"github.com/rgrafen/pocketgb/internal/save"
	"github.com/rgrafen/pocketgb/internal/ui"
)

func main() {
	app := cli.NewApp()
	app.Name = "pocketgb"
	app.Usage = "pocketgb [-d] [-v] [-s] [-fast] [-b<hex>]... <rom-path>"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "d", Usage: "enable debug overlay (breakpoint hit display + register dump)"},
		cli.BoolFlag{Name: "v", Usage: "verbose instruction trace to stderr"},
		cli.BoolFlag{Name: "s", Usage: "print speed/perf stats"},
		cli.BoolFlag{Name: "fast", Usage: "run uncapped (no 59.7 Hz throttle)"},
		cli.StringSliceFlag{Name: "b", Usage: "add a PC breakpoint (hex, with or without 0x); may repeat"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		if ec, ok := err.(cli.ExitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		log.Println(err)
		os.Exit(2)
	}
}

func parseBreakpoints(raw []string) ([]uint16, error) {
	out := make([]uint16, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("bad breakpoint %q: %w", s, err)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

// savePathFor derives the .egb save path from the cartridge title, keyed
// by title rather than ROM filename so re-dumped ROMs share a save.
func savePathFor(title string) string {
	name := strings.ToLower(strings.TrimRight(title, "\x00"))
	name = strings.TrimSpace(name)
	if name == "" {
		name = "untitled"
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	dir = filepath.Join(dir, "pocketgb")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, name+".egb")
}

func loadSave(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	ram, err := save.Decode(data)
	if err != nil {
		log.Printf("save: %v (starting with zeroed RAM)", err)
		return nil
	}
	return ram
}

func writeSave(path string, ram []byte) {
	data, err := save.Encode(ram)
	if err != nil {
		log.Printf("save: encode: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("save: write %s: %v", path, err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return cli.NewExitError("a ROM path is required", 2)
	}
	romPath := c.Args().Get(0)

	breakpoints, err := parseBreakpoints(c.StringSlice("b"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("read ROM: %v", err), 2)
	}
	header, err := cart.ParseHeader(rom)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("invalid ROM header: %v", err), 2)
	}
	log.Printf("ROM: %q type=%s banks=%d ram=%dB", header.Title, header.CartTypeStr, header.ROMBanks, header.RAMSizeBytes)

	m := emu.New(emu.Config{Trace: c.Bool("v")})
	if err := m.LoadCartridge(rom, nil); err != nil {
		return cli.NewExitError(fmt.Sprintf("load cartridge: %v", err), 2)
	}
	m.SetROMPath(romPath)
	m.ResetPostBoot()

	if c.Bool("v") {
		m.SetTrace(os.Stderr)
	}

	savePath := savePathFor(header.Title)
	if ram := loadSave(savePath); ram != nil {
		m.LoadBattery(ram)
	}

	uiCfg := ui.Config{
		Title:       "pocketgb - " + header.Title,
		Scale:       3,
		Fast:        c.Bool("fast"),
		Debug:       c.Bool("d"),
		Breakpoints: breakpoints,
	}
	uiCfg.Defaults()
	app := ui.NewApp(uiCfg, m)

	if c.Bool("s") {
		log.Printf("speed stats: uncapped=%v", c.Bool("fast"))
	}

	runErr := app.Run()

	if ram, ok := m.SaveBattery(); ok {
		writeSave(savePath, ram)
	}

	if runErr != nil {
		return cli.NewExitError(fmt.Sprintf("graphics init: %v", runErr), 1)
	}
	return nil
}
