package video

// Register addresses as exposed on the bus. The PPU only ever sees these
// through ReadRegister/WriteRegister; it never holds the bus itself.
const (
	regLCDC uint16 = 0xFF40
	regSTAT uint16 = 0xFF41
	regSCY  uint16 = 0xFF42
	regSCX  uint16 = 0xFF43
	regLY   uint16 = 0xFF44
	regLYC  uint16 = 0xFF45
	regBGP  uint16 = 0xFF47
	regOBP0 uint16 = 0xFF48
	regOBP1 uint16 = 0xFF49
	regWY   uint16 = 0xFF4A
	regWX   uint16 = 0xFF4B
)

// Tile data and tile map addresses, in the same absolute address space the
// bus uses for VRAM (0x8000-0x9FFF). TileDataBase is subtracted to index
// into the PPU's own 0-based vram array.
const (
	TileDataBase uint16 = 0x8000

	TileData0 uint16 = 0x8000
	TileData2 uint16 = 0x9000

	TileMap0 uint16 = 0x9800
	TileMap1 uint16 = 0x9C00
)
