package ppu

// LineWidth is the DMG's visible scanline width in pixels.
const LineWidth = 160

// RenderBGScanline produces the background layer's color indices (0..3)
// for scanline ly, honoring SCX/SCY scrolling with the 32x32 tile map
// wrapping in both axes. mapBase is 0x9800 or 0x9C00 per LCDC bit 3;
// unsignedTiles selects the tile-data addressing mode per LCDC bit 4.
func RenderBGScanline(src TileSource, mapBase uint16, unsignedTiles bool, scx, scy, ly byte) [LineWidth]byte {
	var out [LineWidth]byte

	bgY := uint16(ly) + uint16(scy)
	mapRow := bgY >> 3 & 31
	fineY := byte(bgY & 7)

	tileCol := uint16(scx) >> 3 & 31
	skip := int(scx & 7) // fractional first tile discarded by fine scroll

	x := 0
	for x < LineWidth {
		n := src.Read(mapBase + mapRow*32 + tileCol)
		row := fetchTileRow(src, n, unsignedTiles, fineY)
		for _, px := range row[skip:] {
			out[x] = px
			x++
			if x == LineWidth {
				break
			}
		}
		skip = 0
		tileCol = (tileCol + 1) & 31
	}
	return out
}

// RenderWindowScanline produces the window layer for one scanline,
// filling pixels from wxStart (WX-7) rightward using winLine as the
// vertical position within the window's own tile map. Pixels left of
// wxStart stay 0 so callers can overlay the result on the background.
func RenderWindowScanline(src TileSource, mapBase uint16, unsignedTiles bool, wxStart int, winLine byte) [LineWidth]byte {
	var out [LineWidth]byte
	if wxStart >= LineWidth {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}

	mapRow := uint16(winLine) >> 3 & 31
	fineY := winLine & 7

	x := wxStart
	for tileCol := uint16(0); x < LineWidth; tileCol = (tileCol + 1) & 31 {
		n := src.Read(mapBase + mapRow*32 + tileCol)
		row := fetchTileRow(src, n, unsignedTiles, fineY)
		for i := 0; i < len(row) && x < LineWidth; i++ {
			out[x] = row[i]
			x++
		}
	}
	return out
}
