package cpu

import (
	"github.com/go-dmg/core/jeebie/addr"
	"github.com/go-dmg/core/jeebie/bit"
)

// handleInterrupts checks IE & IF for a pending interrupt. If IME is set it
// dispatches the highest-priority one (VBlank > LCD STAT > Timer > Serial >
// Joypad): the return address is pushed, PC jumps to the handler vector, the
// IF bit is cleared and IME is disabled. It always reports whether a bit was
// pending, even with IME off, since HALT wakes on a pending interrupt alone.
func (c *CPU) handleInterrupts() bool {
	ifReg := c.bus.Read(addr.IF)
	ieReg := c.bus.Read(addr.IE)
	fired := ifReg & ieReg & 0x1F
	if fired == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	var bitPos uint8
	var vector uint16
	switch {
	case fired&0x01 != 0:
		bitPos, vector = 0, 0x40
	case fired&0x02 != 0:
		bitPos, vector = 1, 0x48
	case fired&0x04 != 0:
		bitPos, vector = 2, 0x50
	case fired&0x08 != 0:
		bitPos, vector = 3, 0x58
	default:
		bitPos, vector = 4, 0x60
	}

	c.interruptsEnabled = false
	c.bus.Write(addr.IF, bit.Reset(bitPos, ifReg))
	c.pushStack(c.pc)
	c.pc = vector
	c.cycles += 20

	return true
}
