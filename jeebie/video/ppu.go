package video

import (
	"github.com/go-dmg/core/jeebie/bit"
)

// GpuMode represents the PPU's current rendering stage.
// These values match the STAT register bits 1-0.
type GpuMode int

const (
	// hblankMode (Mode 0): Horizontal blank period, CPU can access VRAM/OAM
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): Vertical blank period, CPU can access VRAM/OAM
	vblankMode GpuMode = 1
	// oamReadMode (Mode 2): PPU is reading OAM, CPU cannot access OAM
	oamReadMode GpuMode = 2
	// vramReadMode (Mode 3): PPU is reading VRAM, CPU cannot access VRAM/OAM
	vramReadMode GpuMode = 3
)

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	vramSize = 0x2000
	oamSize  = 0xA0
)

// PPU owns VRAM, OAM and the LCD registers directly: it never reaches back
// into the bus. VBlankRequest and StatRequest are polled and cleared by the
// bus at the end of every tick burst, the same contract the timer, serial
// and joypad subsystems use.
type PPU struct {
	vram [vramSize]byte
	oam  [oamSize]byte

	lcdc, stat, scy, scx byte
	ly, lyc              byte
	bgp, obp0, obp1      byte
	wy, wx               byte

	framebuffer *FrameBuffer
	bgPixelBuffer []byte // stores background/window pixel colors for sprite priority
	oamScanner    *OAMScanner

	mode                 GpuMode
	line                 int
	cycles               int
	modeCounterAux       int
	vBlankLine           int
	isScanLineTransfered bool
	windowLine           int

	VBlankRequest bool
	StatRequest   bool
}

func NewPPU() *PPU {
	p := &PPU{
		framebuffer:   NewFrameBuffer(),
		bgPixelBuffer: make([]byte, FramebufferSize),
		mode:          vblankMode,
		line:          144,
		ly:            144,
	}
	p.oamScanner = NewOAMScanner(p.ReadOAM)
	return p
}

func (p *PPU) GetFrameBuffer() *FrameBuffer {
	return p.framebuffer
}

// ReadVRAM and ReadOAM are forgiving: the PPU never blocks a CPU read even
// during Drawing or OAM scan, returning whatever is currently stored.
func (p *PPU) ReadVRAM(addr uint16) byte { return p.vram[addr%vramSize] }

// WriteVRAM discards writes made while the PPU is actively rendering pixels
// for the current scanline (Mode 3), matching the one window where real
// hardware would corrupt or drop the write.
func (p *PPU) WriteVRAM(addr uint16, value byte) {
	if p.mode == vramReadMode {
		return
	}
	p.vram[addr%vramSize] = value
}

func (p *PPU) ReadOAM(addr uint16) byte { return p.oam[addr%oamSize] }

// WriteOAM discards writes during OAM scan and Drawing, when the PPU itself
// is reading OAM to build the scanline's sprite list.
func (p *PPU) WriteOAM(addr uint16, value byte) {
	if p.mode == oamReadMode || p.mode == vramReadMode {
		return
	}
	p.oam[addr%oamSize] = value
}

func (p *PPU) ReadRegister(addr uint16) byte {
	switch addr {
	case regLCDC:
		return p.lcdc
	case regSTAT:
		return 0x80 | p.stat
	case regSCY:
		return p.scy
	case regSCX:
		return p.scx
	case regLY:
		return p.ly
	case regLYC:
		return p.lyc
	case regBGP:
		return p.bgp
	case regOBP0:
		return p.obp0
	case regOBP1:
		return p.obp1
	case regWY:
		return p.wy
	case regWX:
		return p.wx
	default:
		return 0xFF
	}
}

func (p *PPU) WriteRegister(addr uint16, value byte) {
	switch addr {
	case regLCDC:
		wasEnabled := bit.IsSet(lcdDisplayEnable, p.lcdc)
		p.lcdc = value
		if wasEnabled && !bit.IsSet(lcdDisplayEnable, value) {
			p.disableLCD()
		}
	case regSTAT:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case regSCY:
		p.scy = value
	case regSCX:
		p.scx = value
	case regLY:
		// LY is read-only on real hardware; writes are ignored.
	case regLYC:
		p.lyc = value
		p.compareLYToLYC()
	case regBGP:
		p.bgp = value
	case regOBP0:
		p.obp0 = value
	case regOBP1:
		p.obp1 = value
	case regWY:
		p.wy = value
	case regWX:
		p.wx = value
	}
}

func (p *PPU) disableLCD() {
	p.mode = hblankMode
	p.line = 0
	p.ly = 0
	p.cycles = 0
	p.windowLine = 0
	p.framebuffer.Clear()
}

// Tick simulates PPU behaviour for a certain amount of clock cycles.
func (p *PPU) Tick(cycles int) {
	if !bit.IsSet(lcdDisplayEnable, p.lcdc) {
		return
	}

	p.cycles += cycles

	switch p.mode {
	case hblankMode:
		if p.cycles < hblankCycles {
			break
		}
		p.cycles -= hblankCycles
		p.setMode(oamReadMode)
		p.setLY(p.line + 1)

		if p.line == 144 {
			p.setMode(vblankMode)
			p.vBlankLine = 0
			p.modeCounterAux = p.cycles
			p.windowLine = 0

			p.VBlankRequest = true
			if bit.IsSet(statVblankIrq, p.stat) {
				p.StatRequest = true
			}
		} else if bit.IsSet(statOamIrq, p.stat) {
			p.StatRequest = true
		}
	case vblankMode:
		p.modeCounterAux += cycles

		if p.modeCounterAux >= scanlineCycles {
			p.modeCounterAux -= scanlineCycles
			p.vBlankLine++

			if p.vBlankLine <= 9 {
				p.setLY(p.line + 1)
			}
		}

		if p.cycles >= 4104 && p.modeCounterAux >= 4 && p.line == 153 {
			p.setLY(0)
		}

		if p.cycles >= 4560 {
			p.cycles -= 4560
			p.setMode(oamReadMode)
			if bit.IsSet(statOamIrq, p.stat) {
				p.StatRequest = true
			}
		}
	case oamReadMode:
		if p.cycles >= oamScanlineCycles {
			p.cycles -= oamScanlineCycles
			p.setMode(vramReadMode)
			p.isScanLineTransfered = false
		}
	case vramReadMode:
		if !p.isScanLineTransfered {
			p.drawScanline()
			p.isScanLineTransfered = true
		}

		if p.cycles >= vramScanlineCycles {
			p.cycles -= vramScanlineCycles
			p.setMode(hblankMode)

			if bit.IsSet(statHblankIrq, p.stat) {
				p.StatRequest = true
			}
		}
	}

	if p.cycles >= 70224 {
		p.cycles -= 70224
	}
}

func (p *PPU) drawScanline() {
	p.drawBackground()
	p.drawWindow()
	p.drawSprites()
}

func (p *PPU) readTile(tilesAddr uint16, signed bool, tileValue byte, pixelY2 int) (low, high byte) {
	var tileAddr uint16
	if signed {
		signedTile := int8(tileValue)
		tileOffset := int(signedTile) * 16
		tileAddr = uint16(int(tilesAddr) + tileOffset + pixelY2)
	} else {
		tileAddr = tilesAddr + uint16(int(tileValue)*16+pixelY2)
	}
	return p.ReadVRAM(tileAddr - TileDataBase), p.ReadVRAM(tileAddr + 1 - TileDataBase)
}

func (p *PPU) drawBackground() {
	lineWidth := p.line * FramebufferWidth

	if !bit.IsSet(bgDisplay, p.lcdc) {
		color0 := p.bgp & 0x03
		displayColor := uint32(ByteToColor(color0))
		for i := range FramebufferWidth {
			p.framebuffer.buffer[lineWidth+i] = displayColor
			p.bgPixelBuffer[lineWidth+i] = 0
		}
		return
	}

	useSignedTileSet := !bit.IsSet(bgWindowTileDataSelect, p.lcdc)
	useTileMapZero := !bit.IsSet(bgTileMapDisplaySelect, p.lcdc)

	tilesAddr := TileData0
	if useSignedTileSet {
		tilesAddr = TileData2
	}

	tileMapAddr := TileMap1
	if useTileMapZero {
		tileMapAddr = TileMap0
	}

	lineScrolled := (p.line + int(p.scy)) & 0xFF
	lineScrolled32 := (lineScrolled / 8) * 32
	tilePixelY2 := (lineScrolled % 8) * 2

	for screenPixelX := 0; screenPixelX < FramebufferWidth; screenPixelX++ {
		mapPixelX := (screenPixelX + int(p.scx)) & 0xFF
		mapTileX := mapPixelX / 8
		mapTileXOffset := mapPixelX % 8
		mapTileAddr := tileMapAddr + uint16(lineScrolled32+mapTileX)

		mapTileValue := p.ReadVRAM(mapTileAddr - TileDataBase)

		low, high := p.readTile(tilesAddr, useSignedTileSet, mapTileValue, tilePixelY2)

		pixelIndex := uint8(7 - mapTileXOffset)
		pixel := 0
		if bit.IsSet(pixelIndex, low) {
			pixel |= 1
		}
		if bit.IsSet(pixelIndex, high) {
			pixel |= 2
		}

		pixelPosition := lineWidth + screenPixelX
		color := (p.bgp >> (pixel * 2)) & 0x03

		p.framebuffer.buffer[pixelPosition] = uint32(ByteToColor(color))
		p.bgPixelBuffer[pixelPosition] = color
	}
}

func (p *PPU) drawWindow() {
	if p.windowLine > 143 {
		return
	}

	if !bit.IsSet(windowDisplayEnable, p.lcdc) {
		return
	}

	wx := p.wx - 7
	wy := p.wy

	if wx > 159 {
		return
	}

	if wy > 143 || int(wy) > p.line {
		return
	}

	useSignedTileSet := !bit.IsSet(bgWindowTileDataSelect, p.lcdc)
	useTileMapZero := !bit.IsSet(windowTileMapSelect, p.lcdc)

	tilesAddr := TileData0
	if useSignedTileSet {
		tilesAddr = TileData2
	}

	tileMapAddr := TileMap1
	if useTileMapZero {
		tileMapAddr = TileMap0
	}

	y32 := (p.windowLine / 8) * 32
	pixelY2 := (p.windowLine & 7) * 2
	lineWidth := p.line * FramebufferWidth

	endTileX := (FramebufferWidth - int(wx) + 7) / 8
	if endTileX > 32 {
		endTileX = 32
	}

	drewAnyPixel := false

	for x := 0; x < endTileX; x++ {
		tileIndexAddr := tileMapAddr + uint16(y32+x)
		tileValue := p.ReadVRAM(tileIndexAddr - TileDataBase)
		xOffset := x * 8

		low, high := p.readTile(tilesAddr, useSignedTileSet, tileValue, pixelY2)

		for pixelX := 0; pixelX < 8; pixelX++ {
			bufferX := xOffset + pixelX + int(wx)

			if bufferX < int(wx) || bufferX >= FramebufferWidth {
				continue
			}

			pixel := 0
			if bit.IsSet(uint8(7-pixelX), low) {
				pixel |= 1
			}
			if bit.IsSet(uint8(7-pixelX), high) {
				pixel |= 2
			}

			position := lineWidth + bufferX
			if position >= len(p.framebuffer.buffer) {
				continue
			}

			color := (p.bgp >> (pixel * 2)) & 0x03
			p.framebuffer.buffer[position] = uint32(ByteToColor(color))
			p.bgPixelBuffer[position] = color
			drewAnyPixel = true
		}
	}

	// the internal window line counter only advances on lines where the
	// window actually contributed a pixel, matching real hardware.
	if drewAnyPixel {
		p.windowLine++
	}
}

func (p *PPU) drawSprites() {
	if !bit.IsSet(spriteDisplayEnable, p.lcdc) {
		return
	}

	spriteHeight := 8
	if bit.IsSet(spriteSize, p.lcdc) {
		spriteHeight = 16
	}

	lineWidth := p.line * FramebufferWidth
	sprites := p.oamScanner.ScanLine(p.line, spriteHeight)

	for i := range sprites {
		s := &sprites[i]
		if !s.HasPriorityForAnyPixel() {
			continue
		}

		spriteMask := 0xFF
		if spriteHeight == 16 {
			spriteMask = 0xFE
		}

		spriteTile16 := (int(s.TileIndex) & spriteMask) * 16
		objPalette := p.obp0
		if s.PaletteOBP1 {
			objPalette = p.obp1
		}

		pixelY := p.line - s.Y
		if s.FlipY {
			pixelY = spriteHeight - 1 - pixelY
		}

		var pixelY2, offset int
		if spriteHeight == 16 && pixelY >= 8 {
			pixelY2 = (pixelY - 8) * 2
			offset = 16
		} else {
			pixelY2 = pixelY * 2
		}

		// sprites always use unsigned addressing from 0x8000
		tileAddr := uint16(spriteTile16+pixelY2+offset) % vramSize
		low := p.ReadVRAM(tileAddr)
		high := p.ReadVRAM(tileAddr + 1)

		for pixelX := 0; pixelX < 8; pixelX++ {
			if !s.HasPriorityForPixel(pixelX) {
				continue
			}

			bufferX := s.X + pixelX

			pixelIdx := 7 - pixelX
			if s.FlipX {
				pixelIdx = pixelX
			}

			pixel := 0
			if bit.IsSet(uint8(pixelIdx), low) {
				pixel |= 1
			}
			if bit.IsSet(uint8(pixelIdx), high) {
				pixel |= 2
			}

			if pixel == 0 {
				continue
			}

			position := lineWidth + bufferX
			if position < 0 || position >= len(p.framebuffer.buffer) {
				continue
			}

			if s.BehindBG && p.bgPixelBuffer[position] != 0 {
				continue
			}

			color := (objPalette >> (pixel * 2)) & 0x03
			p.framebuffer.buffer[position] = uint32(ByteToColor(color))
		}
	}
}

// LCD Stat (Status) Register bit values
// Bit 6 - Interrupt based on LYC to LY comparison
// Bit 5 - Interrupt when Mode 2 (oamReadMode)
// Bit 4 - Interrupt when Mode 1 (vblankMode)
// Bit 3 - Interrupt when Mode 0 (hblankMode)
// Bit 2 - LYC == LY comparison result
// Bit 1,0 - current PPU mode
const (
	statLycIrq       uint8 = 6
	statOamIrq       uint8 = 5
	statVblankIrq    uint8 = 4
	statHblankIrq    uint8 = 3
	statLycCondition uint8 = 2
)

// LCDC (LCD Control) Register bit values
const (
	lcdDisplayEnable       uint8 = 7
	windowTileMapSelect    uint8 = 6
	windowDisplayEnable    uint8 = 5
	bgWindowTileDataSelect uint8 = 4
	bgTileMapDisplaySelect uint8 = 3
	spriteSize             uint8 = 2
	spriteDisplayEnable    uint8 = 1
	bgDisplay              uint8 = 0
)

func (p *PPU) compareLYToLYC() {
	if p.ly == p.lyc {
		p.stat = bit.Set(statLycCondition, p.stat)
		if bit.IsSet(statLycIrq, p.stat) {
			p.StatRequest = true
		}
	} else {
		p.stat = bit.Reset(statLycCondition, p.stat)
	}
}

// setMode sets the two bits (1,0) in the STAT register according to the
// selected PPU mode.
func (p *PPU) setMode(mode GpuMode) {
	p.mode = mode
	p.stat = p.stat&0xFC | byte(p.mode)
}

// setLY updates the current scanline (LY register) and re-evaluates the
// LY/LYC comparison.
func (p *PPU) setLY(line int) {
	p.line = line
	p.ly = byte(p.line)
	p.compareLYToLYC()
}
