package memory

import (
	"fmt"
	"log/slog"

	"github.com/go-dmg/core/jeebie/addr"
	"github.com/go-dmg/core/jeebie/audio"
	"github.com/go-dmg/core/jeebie/bit"
	"github.com/go-dmg/core/jeebie/serial"
	"github.com/go-dmg/core/jeebie/video"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
	regionHRAM
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()

	// PendingInterrupt reports and clears a completed-transfer interrupt
	// request, following the same poll-and-clear contract the bus uses
	// for every other subsystem.
	PendingInterrupt() bool
}

// MMU is the bus tying the cartridge, PPU, APU, timer, joypad and serial
// port together. It owns the subsystems, drives their Tick methods, and
// polls/clears their InterruptRequest-style flags at the end of every tick
// burst; none of them hold a reference back to the bus.
type MMU struct {
	cart      *Cartridge
	memory    []byte
	APU       *audio.APU
	PPU       *video.PPU
	regionMap [256]memRegion

	joypad *Joypad
	serial SerialPort
	timer  Timer
	dma    dma

	bootROM    []byte
	bootActive bool
}

// New creates a new memory unit with no cartridge loaded, equivalent to
// turning on a Game Boy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory: make([]byte, 0x10000),
		APU:    audio.New(),
		PPU:    video.NewPPU(),
		joypad: NewJoypad(),
	}
	mmu.serial = serial.NewLogSink(serial.WithFixedTiming())
	initRegionMap(mmu)
	return mmu
}

// NewWithCartridge creates a new memory unit with the provided cartridge
// loaded, equivalent to turning on a Game Boy with a cartridge in.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart
	return mmu
}

// Tick advances every subsystem by the given number of CPU cycles and
// aggregates any interrupts they requested into the IF register.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	m.APU.Tick(cycles)
	m.PPU.Tick(cycles)
	if m.cart != nil {
		m.cart.Tick(cycles)
	}
	m.dma.tick(cycles, m.dmaReadByte, m.dmaWriteOAM)

	if m.timer.InterruptRequest {
		m.RequestInterrupt(addr.TimerInterrupt)
		m.timer.InterruptRequest = false
	}
	if m.serial != nil && m.serial.PendingInterrupt() {
		m.RequestInterrupt(addr.SerialInterrupt)
	}
	if m.joypad.InterruptRequest {
		m.RequestInterrupt(addr.JoypadInterrupt)
		m.joypad.InterruptRequest = false
	}
	if m.PPU.VBlankRequest {
		m.RequestInterrupt(addr.VBlankInterrupt)
		m.PPU.VBlankRequest = false
	}
	if m.PPU.StatRequest {
		m.RequestInterrupt(addr.LCDSTATInterrupt)
		m.PPU.StatRequest = false
	}
}

func (m *MMU) dmaReadByte(addr uint16) byte { return m.Read(addr) }
func (m *MMU) dmaWriteOAM(offset uint8, value byte) {
	m.PPU.WriteOAM(uint16(offset), value)
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, Unused: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	interruptFlags := m.Read(addr.IF)

	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		panic(fmt.Sprintf("Unknown interrupt: 0x%02X", uint8(interrupt)))
	}

	newFlags := bit.Set(bitPos, interruptFlags)

	m.Write(addr.IF, newFlags)
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.regionMap[address>>8] == regionROM && m.bootActive && address < bootImageSize {
			return m.bootROM[address]
		}
		if m.cart == nil {
			slog.Warn("reading from ROM/external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		if m.regionMap[address>>8] == regionROM {
			return m.cart.ReadROM(address)
		}
		return m.cart.ReadRAM(address)
	case regionVRAM:
		return m.PPU.ReadVRAM(address - 0x8000)
	case regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.PPU.ReadOAM(address - addr.OAMStart)
		}
		// Unused area 0xFEA0-0xFEFF
		return 0xFF
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return m.timer.Read(address)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return m.APU.ReadRegister(address)
	case address == addr.IF:
		// Upper 3 bits of IF always read as 1; unused, but matters for
		// the halt bug, which checks whether IF is nonzero.
		return m.memory[address] | 0xE0
	case address >= addr.LCDC && address <= addr.WX && address != addr.DMA:
		return m.PPU.ReadRegister(address)
	case address == addr.DMA:
		return m.memory[address]
	default:
		return m.memory[address]
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.cart == nil {
			slog.Warn("writing to ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.cart.WriteROM(address, value)
	case regionExtRAM:
		if m.cart == nil {
			slog.Warn("writing to external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.cart.WriteRAM(address, value)
	case regionVRAM:
		m.PPU.WriteVRAM(address-0x8000, value)
	case regionWRAM:
		m.memory[address] = value
	case regionEcho:
		m.memory[address-0x2000] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			m.PPU.WriteOAM(address-addr.OAMStart, value)
		}
		// writes to the unused 0xFEA0-0xFEFF area are dropped
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		m.timer.Write(address, value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		m.APU.WriteRegister(address, value)
	case address == addr.IF:
		// This register's upper 3 bits always read back as 1.
		m.memory[address] = value | 0xE0
	case address == addr.DMA:
		m.memory[address] = value
		m.dma.start(value)
	case address == addr.BootDisable:
		// One-way latch: once cleared, the boot region can't come back
		// without a fresh MMU.
		if value != 0 {
			m.bootActive = false
		}
	case address >= addr.LCDC && address <= addr.WX:
		m.PPU.WriteRegister(address, value)
	default:
		m.memory[address] = value
	}
}

// SetBoot installs a 256-byte boot ROM image, overlaying the cartridge at
// 0x0000-0x00FF until the game writes a non-zero value to 0xFF50. Images of
// any other size are rejected, matching a real boot ROM socket.
func (m *MMU) SetBoot(data []byte) error {
	if len(data) != bootImageSize {
		return fmt.Errorf("boot image must be exactly %d bytes, got %d", bootImageSize, len(data))
	}
	m.bootROM = make([]byte, bootImageSize)
	copy(m.bootROM, data)
	m.bootActive = true
	return nil
}

// HandleKeyPress forwards a button press to the joypad subsystem.
func (m *MMU) HandleKeyPress(key JoypadKey) { m.joypad.Press(key) }

// HandleKeyRelease forwards a button release to the joypad subsystem.
func (m *MMU) HandleKeyRelease(key JoypadKey) { m.joypad.Release(key) }
