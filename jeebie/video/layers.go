package video

import "github.com/go-dmg/core/jeebie/bit"

// LayerFramebuffer represents a single rendering layer's framebuffer
type LayerFramebuffer struct {
	Buffer []uint32 // RGBA pixels, same format as main framebuffer
	Width  int
	Height int
}

// RenderLayers contains separate framebuffers for each rendering layer
type RenderLayers struct {
	Background *LayerFramebuffer // 256x256 full tilemap
	Window     *LayerFramebuffer // 256x256 full tilemap
	Sprites    *LayerFramebuffer // 160x144 sprite layer
	Enabled    bool              // Whether layer rendering is active
}

// NewRenderLayers creates a new set of render layer framebuffers
func NewRenderLayers() *RenderLayers {
	return &RenderLayers{
		Background: &LayerFramebuffer{
			Buffer: make([]uint32, 256*256),
			Width:  256,
			Height: 256,
		},
		Window: &LayerFramebuffer{
			Buffer: make([]uint32, 256*256),
			Width:  256,
			Height: 256,
		},
		Sprites: &LayerFramebuffer{
			Buffer: make([]uint32, 160*144),
			Width:  160,
			Height: 144,
		},
		Enabled: false,
	}
}

// Clear clears all layer framebuffers to transparent
func (r *RenderLayers) Clear() {
	if !r.Enabled {
		return
	}

	// Clear with transparent black (0x00000000)
	for i := range r.Background.Buffer {
		r.Background.Buffer[i] = 0
	}
	for i := range r.Window.Buffer {
		r.Window.Buffer[i] = 0
	}
	for i := range r.Sprites.Buffer {
		r.Sprites.Buffer[i] = 0
	}
}

// DumpLayers renders the full 256x256 background and window tilemaps plus
// the current scanline-independent sprite layer, for debug tooling that
// wants to inspect what the PPU would draw outside of its 160x144 viewport.
func (p *PPU) DumpLayers(layers *RenderLayers) {
	if !layers.Enabled {
		return
	}
	layers.Clear()

	p.dumpTileMap(layers.Background.Buffer, bit.IsSet(bgTileMapDisplaySelect, p.lcdc))
	p.dumpTileMap(layers.Window.Buffer, bit.IsSet(windowTileMapSelect, p.lcdc))

	// sprites always use unsigned addressing from 0x8000
	tilesAddr := TileData0

	for i := 0; i < 40; i++ {
		base := uint16(i * 4)
		spriteY := int(p.ReadOAM(base)) - 16
		spriteX := int(p.ReadOAM(base+1)) - 8
		if spriteY < 0 || spriteY >= 144 || spriteX < 0 || spriteX >= 160 {
			continue
		}
		tile := int(p.ReadOAM(base + 2))
		for row := 0; row < 8; row++ {
			tileAddr := tilesAddr + uint16(tile*16+row*2)
			low := p.ReadVRAM(tileAddr - TileDataBase)
			high := p.ReadVRAM(tileAddr + 1 - TileDataBase)
			for col := 0; col < 8; col++ {
				px, py := spriteX+col, spriteY+row
				if px < 0 || px >= 160 || py < 0 || py >= 144 {
					continue
				}
				idx := uint8(7 - col)
				pixel := 0
				if bit.IsSet(idx, low) {
					pixel |= 1
				}
				if bit.IsSet(idx, high) {
					pixel |= 2
				}
				if pixel == 0 {
					continue
				}
				layers.Sprites.Buffer[py*160+px] = uint32(ByteToColor(byte(pixel)))
			}
		}
	}
}

func (p *PPU) dumpTileMap(buf []uint32, useTileMapOne bool) {
	tileMapAddr := TileMap0
	if useTileMapOne {
		tileMapAddr = TileMap1
	}

	useSignedTileSet := !bit.IsSet(bgWindowTileDataSelect, p.lcdc)
	tilesAddr := TileData0
	if useSignedTileSet {
		tilesAddr = TileData2
	}

	for tileY := 0; tileY < 32; tileY++ {
		for tileX := 0; tileX < 32; tileX++ {
			mapAddr := tileMapAddr + uint16(tileY*32+tileX)
			tileValue := p.ReadVRAM(mapAddr - TileDataBase)

			for row := 0; row < 8; row++ {
				low, high := p.readTile(tilesAddr, useSignedTileSet, tileValue, row*2)
				for col := 0; col < 8; col++ {
					idx := uint8(7 - col)
					pixel := 0
					if bit.IsSet(idx, low) {
						pixel |= 1
					}
					if bit.IsSet(idx, high) {
						pixel |= 2
					}
					color := (p.bgp >> (pixel * 2)) & 0x03
					px, py := tileX*8+col, tileY*8+row
					buf[py*256+px] = uint32(ByteToColor(color))
				}
			}
		}
	}
}
