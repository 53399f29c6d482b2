package cpu

import "github.com/go-dmg/core/jeebie/memory"

// Flag is one of the 4 possible flags used in the flag register (high part of AF).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag            = 0x40
	halfCarryFlag      = 0x20
	carryFlag          = 0x10
)

// CPU holds the full register and scheduling state of the Sharp LR35902.
// Registers are kept as flat fields rather than packed pairs, since every
// opcode body addresses them individually; getBC/getHL/etc. combine them
// into a word only where an instruction actually needs one.
type CPU struct {
	bus *memory.MMU

	a, f, b, c, d, e, h, l uint8
	sp, pc                 uint16

	currentOpcode uint16

	interruptsEnabled bool
	eiPending         bool
	halted            bool
	haltBug           bool
	stopped           bool

	cycles uint64
}

// New returns a CPU wired to the given bus, with registers set to the
// values real hardware leaves them in after the boot ROM hands off
// execution at 0x0100.
func New(bus *memory.MMU) *CPU {
	c := &CPU{
		bus: bus,
		pc:  0x0100,
		sp:  0xFFFE,
	}
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	return c
}

// Tick executes at most one instruction and returns the number of cycles
// it took, including any interrupt dispatch that preceded it.
func (c *CPU) Tick() int {
	startCycles := c.cycles

	if c.halted {
		if c.handleInterrupts() {
			c.halted = false
			if !c.interruptsEnabled {
				c.haltBug = true
			}
		} else {
			c.cycles += 4
			return int(c.cycles - startCycles)
		}
	} else {
		cyclesBeforeDispatch := c.cycles
		if c.handleInterrupts() && c.cycles != cyclesBeforeDispatch {
			return int(c.cycles - startCycles)
		}
	}

	eiDelay := c.eiPending

	opcode := Decode(c)
	if c.currentOpcode&0xFF00 == 0xCB00 {
		c.pc += 2
	} else {
		c.pc++
	}

	if c.haltBug {
		// the pending byte is fetched again on the next cycle, since HALT
		// failed to advance PC past its own opcode when IME was 0.
		c.haltBug = false
		c.pc--
	}

	cycles := opcode(c)
	c.cycles += uint64(cycles)

	if eiDelay {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	return int(c.cycles - startCycles)
}

// ResetToBootEntry reverts the CPU to the power-on state a real DMG starts
// in before its boot ROM runs: every register zeroed, PC at the boot entry
// point 0x0000. Used when a boot image is installed, in place of New's
// hardcoded post-boot register values.
func (c *CPU) ResetToBootEntry() {
	c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l = 0, 0, 0, 0, 0, 0, 0, 0
	c.sp = 0
	c.pc = 0
	c.interruptsEnabled = false
	c.eiPending = false
	c.halted = false
	c.haltBug = false
	c.stopped = false
	c.cycles = 0
}

// PC returns the current program counter, for debuggers and disassemblers.
func (c *CPU) PC() uint16 {
	return c.pc
}

// SP returns the current stack pointer, for debuggers and disassemblers.
func (c *CPU) SP() uint16 {
	return c.sp
}

// GetA, GetF, GetB, GetC, GetD, GetE, GetH and GetL expose the individual
// registers for debuggers and disassemblers.
func (c *CPU) GetA() uint8 { return c.a }
func (c *CPU) GetF() uint8 { return c.f }
func (c *CPU) GetB() uint8 { return c.b }
func (c *CPU) GetC() uint8 { return c.c }
func (c *CPU) GetD() uint8 { return c.d }
func (c *CPU) GetE() uint8 { return c.e }
func (c *CPU) GetH() uint8 { return c.h }
func (c *CPU) GetL() uint8 { return c.l }

// GetFlagString renders the Z/N/H/C flags, using a dash for cleared ones.
func (c *CPU) GetFlagString() string {
	flags := [4]byte{'-', '-', '-', '-'}
	if c.isSetFlag(zeroFlag) {
		flags[0] = 'Z'
	}
	if c.isSetFlag(subFlag) {
		flags[1] = 'N'
	}
	if c.isSetFlag(halfCarryFlag) {
		flags[2] = 'H'
	}
	if c.isSetFlag(carryFlag) {
		flags[3] = 'C'
	}
	return string(flags[:])
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}
