package ppu

// Sprite is a decoded OAM entry ready for per-scanline compositing.
// X/Y are already adjusted to screen space (Y-16, X-8).
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// BankedVRAMReader reads VRAM from an explicit bank, used by the CGB
// compositing helpers which must follow tile-map attribute bytes into
// VRAM bank 1.
type BankedVRAMReader interface {
	ReadBank(bank int, addr uint16) byte
}

func spritePixel(mem VRAMReader, s Sprite, ly int, use8x16 bool, x int) (ci byte, covers bool) {
	height := 8
	if use8x16 {
		height = 16
	}
	row := ly - s.Y
	col := x - s.X
	if row < 0 || row >= height || col < 0 || col >= 8 {
		return 0, false
	}
	yflip := s.Attr&0x40 != 0
	xflip := s.Attr&0x20 != 0
	effRow := row
	if yflip {
		effRow = height - 1 - row
	}
	tile := s.Tile
	if use8x16 {
		tile &^= 0x01
		if effRow >= 8 {
			tile++
			effRow -= 8
		}
	}
	bit := byte(7 - col)
	if xflip {
		bit = byte(col)
	}
	addr := 0x8000 + uint16(tile)*16 + uint16(effRow)*2
	lo := mem.Read(addr)
	hi := mem.Read(addr + 1)
	ci = ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
	return ci, true
}

// spritePriorityLess reports whether a should be drawn on top of b: lower
// X wins, ties broken by lower OAM index (earlier OAM entry).
func spritePriorityLess(a, b Sprite) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.OAMIndex < b.OAMIndex
}

// ComposeSpriteLine returns, for each of the 160 columns, the color index
// (0 = transparent) of the highest-priority visible sprite pixel, honoring
// the background-priority attribute bit against bgci.
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly int, bgci [160]byte, use8x16 bool) [160]byte {
	ci, _ := ComposeSpriteLineExt(mem, sprites, ly, bgci, use8x16)
	return ci
}

// ComposeSpriteLineExt is ComposeSpriteLine plus the OBP0/OBP1 palette
// selector (attribute bit 4) of the winning pixel at each column.
func ComposeSpriteLineExt(mem VRAMReader, sprites []Sprite, ly int, bgci [160]byte, use8x16 bool) (ci [160]byte, pal [160]byte) {
	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && spritePriorityLess(ordered[j], ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	for x := 0; x < 160; x++ {
		for _, s := range ordered {
			px, covers := spritePixel(mem, s, ly, use8x16, x)
			if !covers || px == 0 {
				continue
			}
			if s.Attr&0x80 != 0 && bgci[x] != 0 {
				continue // behind background
			}
			ci[x] = px
			if s.Attr&0x10 != 0 {
				pal[x] = 1
			}
			break
		}
	}
	return
}

// RenderWindowScanlineUsingFetcher renders 160 window pixels using the
// monochrome-style fetcher/FIFO, starting output at winX (columns before
// it stay 0). winLine is the internal window-line counter (0-based,
// independent of LY); it is split into map row and fine-Y here.
func RenderWindowScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, winX int, winLine byte) [160]byte {
	var out [160]byte
	row := uint16(winLine>>3) & 31
	fineY := winLine & 7

	var q fifo
	f := newBGFetcher(mem, &q)
	tileX := uint16(0)
	x := winX
	if x < 0 {
		discard := -x
		f.Configure(mapBase, tileData8000, mapBase+row*32+tileX, fineY)
		f.Fetch()
		for i := 0; i < discard && q.Len() > 0; i++ {
			_, _ = q.Pop()
		}
		tileX++
		x = 0
	}
	for x < 160 {
		if q.Len() == 0 {
			f.Configure(mapBase, tileData8000, mapBase+row*32+(tileX&31), fineY)
			f.Fetch()
			tileX++
		}
		px, _ := q.Pop()
		out[x] = px
		x++
	}
	return out
}

func cgbTilePixel(vr BankedVRAMReader, mapBase, attrsBase uint16, tileData8000 bool, mapRow, tileCol uint16, fineY, fineX byte) (ci, pal byte, priority bool) {
	tileAddr := mapBase + mapRow*32 + tileCol
	attrAddr := attrsBase + mapRow*32 + tileCol
	tileNum := vr.ReadBank(0, tileAddr)
	attr := vr.ReadBank(1, attrAddr)

	bank := int((attr >> 4) & 1)
	xflip := attr&0x20 != 0
	yflip := attr&0x40 != 0
	priority = attr&0x80 != 0
	pal = attr & 0x07

	effFineY := fineY
	if yflip {
		effFineY = 7 - fineY
	}
	var base uint16
	if tileData8000 {
		base = 0x8000 + uint16(tileNum)*16 + uint16(effFineY)*2
	} else {
		base = 0x9000 + uint16(int8(tileNum))*16 + uint16(effFineY)*2
	}
	lo := vr.ReadBank(bank, base)
	hi := vr.ReadBank(bank, base+1)
	bit := 7 - fineX
	if xflip {
		bit = fineX
	}
	ci = ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
	return
}

// RenderBGScanlineCGB renders one background scanline with CGB tile
// attributes (palette, bank, flips, BG-to-OAM priority).
func RenderBGScanlineCGB(vr BankedVRAMReader, mapBase, attrsBase uint16, tileData8000 bool, scx, scy, ly byte) (ci, pal [160]byte, pri [160]bool) {
	bgY := int(ly) + int(scy)
	fineY := byte(bgY & 7)
	mapRow := uint16((bgY >> 3) & 31)
	for x := 0; x < 160; x++ {
		bgX := x + int(scx)
		tileCol := uint16((bgX >> 3) & 31)
		fineX := byte(bgX & 7)
		c, p, pr := cgbTilePixel(vr, mapBase, attrsBase, tileData8000, mapRow, tileCol, fineY, fineX)
		ci[x], pal[x], pri[x] = c, p, pr
	}
	return
}

// RenderWindowScanlineCGB is RenderBGScanlineCGB's window-layer counterpart:
// winX is the first screen column the window covers (WX-7, may be
// negative), winLine the internal window-line counter.
func RenderWindowScanlineCGB(vr BankedVRAMReader, mapBase, attrsBase uint16, tileData8000 bool, winX int, winLine byte) (ci, pal [160]byte, pri [160]bool) {
	row := uint16(winLine>>3) & 31
	fineY := winLine & 7
	for x := 0; x < 160; x++ {
		if x < winX {
			continue
		}
		col := uint16((x - winX) >> 3)
		fineX := byte((x - winX) & 7)
		c, p, pr := cgbTilePixel(vr, mapBase, attrsBase, tileData8000, row, col, fineY, fineX)
		ci[x], pal[x], pri[x] = c, p, pr
	}
	return
}
