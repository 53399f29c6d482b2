//go:build sdl2

package sdl2

import (
	"unsafe"

	"github.com/go-dmg/core/jeebie/debug"
	"github.com/go-dmg/core/jeebie/video"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	DebugWindowWidth  = 560
	DebugWindowHeight = 420
)

// DebugWindow shows a live view of VRAM tile patterns and OAM sprite
// occupancy, for diagnosing rendering bugs without an external tool.
type DebugWindow struct {
	window   *sdl.Window
	renderer *sdl.Renderer

	tileTexture   *sdl.Texture
	spriteTexture *sdl.Texture
	visible       bool

	debugData *debug.CompleteDebugData

	tilePixelBuffer   []byte
	spritePixelBuffer []byte
	defaultPalette    []uint32

	needsUpdate bool
}

func NewDebugWindow() *DebugWindow {
	return &DebugWindow{needsUpdate: true}
}

func (dw *DebugWindow) Init() error {
	window, err := sdl.CreateWindow(
		"Game Boy Debug",
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		DebugWindowWidth,
		DebugWindowHeight,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		return err
	}
	dw.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return err
	}
	dw.renderer = renderer

	// 16 tiles wide x 24 tiles tall, 8px each, covers all 384 VRAM patterns.
	dw.tileTexture, err = renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		16*8, 24*8,
	)
	if err != nil {
		return err
	}

	// 40 sprites laid out on a 8x5 grid of 16px cells.
	dw.spriteTexture, err = renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		8*16, 5*16,
	)
	if err != nil {
		return err
	}

	dw.tilePixelBuffer = make([]byte, 16*8*24*8*4)
	dw.spritePixelBuffer = make([]byte, 8*16*5*16*4)
	dw.defaultPalette = []uint32{
		uint32(video.WhiteColor),
		uint32(video.LightGreyColor),
		uint32(video.DarkGreyColor),
		uint32(video.BlackColor),
	}

	dw.window.Hide()
	return nil
}

func (dw *DebugWindow) UpdateData(data *debug.CompleteDebugData) {
	if data == nil {
		return
	}
	dw.debugData = data
	dw.needsUpdate = true
}

// ProcessEvent lets the debug window react to platform events. It currently
// has no interactive controls of its own.
func (dw *DebugWindow) ProcessEvent(evt sdl.Event) {}

func (dw *DebugWindow) Render() error {
	if !dw.visible || !dw.needsUpdate || dw.debugData == nil {
		return nil
	}

	dw.renderer.SetDrawColor(30, 30, 30, 255)
	dw.renderer.Clear()

	if dw.debugData.VRAM != nil {
		dw.renderTiles()
	}
	if dw.debugData.OAM != nil {
		dw.renderSprites()
	}

	dw.renderer.Present()
	dw.needsUpdate = false
	return nil
}

func (dw *DebugWindow) renderTiles() {
	for i, tile := range dw.debugData.VRAM.TilePatterns {
		tileX := (i % 16) * 8
		tileY := (i / 16) * 8
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				color := tile.Pixels()[y][x]
				rgba := dw.defaultPalette[0]
				switch color {
				case video.LightGreyColor:
					rgba = dw.defaultPalette[1]
				case video.DarkGreyColor:
					rgba = dw.defaultPalette[2]
				case video.BlackColor:
					rgba = dw.defaultPalette[3]
				}
				dw.setTilePixel(tileX+x, tileY+y, rgba)
			}
		}
	}

	dw.tileTexture.Update(nil, unsafe.Pointer(&dw.tilePixelBuffer[0]), 16*8*4)

	srcRect := &sdl.Rect{W: 16 * 8, H: 24 * 8}
	dstRect := &sdl.Rect{X: 10, Y: 10, W: 16 * 8 * 2, H: 24 * 8 * 2}
	dw.renderer.Copy(dw.tileTexture, srcRect, dstRect)
}

func (dw *DebugWindow) setTilePixel(x, y int, rgba uint32) {
	offset := (y*16*8 + x) * 4
	if offset+3 >= len(dw.tilePixelBuffer) {
		return
	}
	dw.tilePixelBuffer[offset] = byte(rgba)
	dw.tilePixelBuffer[offset+1] = byte(rgba >> 8)
	dw.tilePixelBuffer[offset+2] = byte(rgba >> 16)
	dw.tilePixelBuffer[offset+3] = byte(rgba >> 24)
}

func (dw *DebugWindow) renderSprites() {
	for i := range dw.spritePixelBuffer {
		dw.spritePixelBuffer[i] = 0
	}

	for _, sprite := range dw.debugData.OAM.Sprites {
		cellX := (sprite.Index % 8) * 16
		cellY := (sprite.Index / 8) * 16

		var r, g, b byte = 60, 60, 60
		if sprite.IsVisible {
			r, g, b = 100, 220, 100
		}
		for y := 2; y < 14; y++ {
			for x := 2; x < 14; x++ {
				offset := ((cellY+y)*8*16 + cellX + x) * 4
				if offset+3 >= len(dw.spritePixelBuffer) {
					continue
				}
				dw.spritePixelBuffer[offset] = 255
				dw.spritePixelBuffer[offset+1] = b
				dw.spritePixelBuffer[offset+2] = g
				dw.spritePixelBuffer[offset+3] = r
			}
		}
	}

	dw.spriteTexture.Update(nil, unsafe.Pointer(&dw.spritePixelBuffer[0]), 8*16*4)

	srcRect := &sdl.Rect{W: 8 * 16, H: 5 * 16}
	dstRect := &sdl.Rect{X: 340, Y: 10, W: 8 * 16 * 2, H: 5 * 16 * 2}
	dw.renderer.Copy(dw.spriteTexture, srcRect, dstRect)
}

func (dw *DebugWindow) SetVisible(visible bool) {
	dw.visible = visible
	if visible {
		dw.window.Show()
		dw.needsUpdate = true
	} else {
		dw.window.Hide()
	}
}

func (dw *DebugWindow) IsVisible() bool {
	return dw.visible
}

func (dw *DebugWindow) IsInitialized() bool {
	return dw.window != nil
}

func (dw *DebugWindow) Cleanup() error {
	if dw.tileTexture != nil {
		dw.tileTexture.Destroy()
	}
	if dw.spriteTexture != nil {
		dw.spriteTexture.Destroy()
	}
	if dw.renderer != nil {
		dw.renderer.Destroy()
	}
	if dw.window != nil {
		dw.window.Destroy()
	}
	return nil
}
