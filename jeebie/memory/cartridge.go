package memory

import "fmt"

const (
	titleAddress          = 0x0134
	titleLength           = 16
	cartridgeTypeAddress  = 0x0147
	romSizeAddress        = 0x0148
	ramSizeAddress        = 0x0149
	headerEnd             = 0x0150
	bootImageSize         = 256
)

// MBCKind identifies which memory bank controller a cartridge header asks for.
type MBCKind int

const (
	KindNone MBCKind = iota
	KindMBC1
	KindMBC2
	KindMBC3
	KindMBC5
)

type cartTypeInfo struct {
	kind       MBCKind
	hasRAM     bool
	hasBattery bool
	hasRTC     bool
	hasRumble  bool
}

// cartridgeTypeTable maps the byte at 0x0147 to the MBC kind and feature mask.
// Only the codes this core supports are enumerated; anything else is rejected.
var cartridgeTypeTable = map[uint8]cartTypeInfo{
	0x00: {kind: KindNone},
	0x01: {kind: KindMBC1},
	0x02: {kind: KindMBC1, hasRAM: true},
	0x03: {kind: KindMBC1, hasRAM: true, hasBattery: true},
	0x05: {kind: KindMBC2},
	0x06: {kind: KindMBC2, hasBattery: true},
	0x08: {kind: KindNone, hasRAM: true},
	0x09: {kind: KindNone, hasRAM: true, hasBattery: true},
	0x0F: {kind: KindMBC3, hasBattery: true, hasRTC: true},
	0x10: {kind: KindMBC3, hasRAM: true, hasBattery: true, hasRTC: true},
	0x11: {kind: KindMBC3},
	0x12: {kind: KindMBC3, hasRAM: true},
	0x13: {kind: KindMBC3, hasRAM: true, hasBattery: true},
	0x19: {kind: KindMBC5},
	0x1A: {kind: KindMBC5, hasRAM: true},
	0x1B: {kind: KindMBC5, hasRAM: true, hasBattery: true},
	0x1C: {kind: KindMBC5, hasRumble: true},
	0x1D: {kind: KindMBC5, hasRAM: true, hasRumble: true},
	0x1E: {kind: KindMBC5, hasRAM: true, hasBattery: true, hasRumble: true},
}

// romBankCountTable maps the byte at 0x0148 to a 16KB bank count.
var romBankCountTable = map[uint8]int{
	0x00: 2, 0x01: 4, 0x02: 8, 0x03: 16, 0x04: 32,
	0x05: 64, 0x06: 128, 0x07: 256, 0x08: 512,
}

// ramSizeTable maps the byte at 0x0149 to a total external RAM size in bytes.
var ramSizeTable = map[uint8]int{
	0x00: 0, 0x02: 8 * 1024, 0x03: 32 * 1024, 0x04: 128 * 1024, 0x05: 64 * 1024,
}

// Cartridge owns the immutable ROM image, the header-derived metadata, and
// the MBC instance that translates bus addresses for it.
type Cartridge struct {
	data         []byte
	title        string
	kind         MBCKind
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	romBankCount int
	ramSize      int
	mbc          MBC
}

// NewCartridge parses a ROM image's header and builds the matching MBC.
// A file shorter than the header region is rejected, per the format this
// core accepts; an unrecognized cartridge-type code is also rejected.
func NewCartridge(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("memory: cartridge image too short (%d bytes, need at least %d)", len(data), headerEnd)
	}

	info, ok := cartridgeTypeTable[data[cartridgeTypeAddress]]
	if !ok {
		return nil, fmt.Errorf("memory: unsupported cartridge type code 0x%02X", data[cartridgeTypeAddress])
	}

	romBanks, ok := romBankCountTable[data[romSizeAddress]]
	if !ok {
		romBanks = 2
	}
	ramSize := ramSizeTable[data[ramSizeAddress]]
	if !info.hasRAM {
		ramSize = 0
	}

	titleBytes := data[titleAddress : titleAddress+titleLength]
	end := 0
	for end < len(titleBytes) && titleBytes[end] != 0 {
		end++
	}

	cart := &Cartridge{
		data:         data,
		title:        string(titleBytes[:end]),
		kind:         info.kind,
		hasBattery:   info.hasBattery,
		hasRTC:       info.hasRTC,
		hasRumble:    info.hasRumble,
		romBankCount: romBanks,
		ramSize:      ramSize,
	}

	switch info.kind {
	case KindMBC1:
		cart.mbc = NewMBC1(data, ramSize)
	case KindMBC2:
		cart.mbc = NewMBC2(data)
	case KindMBC3:
		cart.mbc = NewMBC3(data, ramSize, info.hasRTC)
	case KindMBC5:
		cart.mbc = NewMBC5(data, ramSize)
	default:
		cart.mbc = NewNoMBC(data)
	}

	return cart, nil
}

func (c *Cartridge) Title() string { return c.title }
func (c *Cartridge) Kind() MBCKind { return c.kind }

func (c *Cartridge) ReadROM(addr uint16) uint8         { return c.mbc.ReadROM(addr) }
func (c *Cartridge) WriteROM(addr uint16, value uint8) { c.mbc.WriteROM(addr, value) }
func (c *Cartridge) ReadRAM(addr uint16) uint8         { return c.mbc.ReadRAM(addr) }
func (c *Cartridge) WriteRAM(addr uint16, value uint8) { c.mbc.WriteRAM(addr, value) }
func (c *Cartridge) Tick(cycles int)                   { c.mbc.Tick(cycles) }

// RAM exposes a read-only view of battery-backed cartridge RAM for an
// external save-file hook; callers must not mutate the returned slice.
func (c *Cartridge) RAM() []uint8 { return c.mbc.RAM() }

// HasBattery reports whether the cartridge's RAM should be persisted across sessions.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }
