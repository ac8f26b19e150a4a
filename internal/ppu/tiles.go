package ppu

// TileSource is the read access the scanline renderers need into the tile
// maps and tile data. The live implementation wraps the MMU's raw VRAM
// view; tests substitute a map.
type TileSource interface {
	Read(addr uint16) byte
}

// tileRowAddr resolves tile number n to the VRAM address of its row
// fineY (0..7) under the LCDC tile-data addressing mode: unsigned mode
// indexes up from 0x8000, signed mode indexes around 0x9000 with n as a
// two's-complement offset.
func tileRowAddr(n byte, unsignedMode bool, fineY byte) uint16 {
	const bytesPerTile = 16
	if unsignedMode {
		return 0x8000 + uint16(n)*bytesPerTile + uint16(fineY&7)*2
	}
	return uint16(0x9000 + int(int8(n))*bytesPerTile + int(fineY&7)*2)
}

// decodeTileRow interleaves the two bit-planes of one tile row into eight
// 2-bit color indices, leftmost pixel first: the high plane contributes
// bit 1, the low plane bit 0.
func decodeTileRow(lo, hi byte) [8]byte {
	var px [8]byte
	for i := range px {
		shift := 7 - byte(i)
		px[i] = (hi>>shift&1)<<1 | lo>>shift&1
	}
	return px
}

// fetchTileRow reads and decodes one tile row from src.
func fetchTileRow(src TileSource, n byte, unsignedMode bool, fineY byte) [8]byte {
	addr := tileRowAddr(n, unsignedMode, fineY)
	return decodeTileRow(src.Read(addr), src.Read(addr+1))
}
