package memory

import "github.com/go-dmg/core/jeebie/bit"

// JoypadKey represents a key on the Gameboy joypad.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the two 4-bit button groups (direction, action) and the
// select register that exposes one or both of them on the low nibble of P1.
// It never reaches back into the bus: InterruptRequest is polled and cleared
// by the bus at the end of every tick burst, matching the flag-polling
// contract the other subsystems (timer, serial, DMA, PPU) use as well.
type Joypad struct {
	dpad    uint8 // bit clear = pressed: Right,Left,Up,Down in bits 0-3
	buttons uint8 // bit clear = pressed: A,B,Select,Start in bits 0-3
	line    uint8 // bits 4-5 of P1 as last written; 0 selects that group

	lastNibble uint8 // previously computed readable nibble, for edge detection

	InterruptRequest bool
}

func NewJoypad() *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F, line: 0x30, lastNibble: 0x0F}
}

// Read returns the full P1 byte; bits 6-7 are unused and read high.
func (j *Joypad) Read() uint8 {
	return 0xC0 | j.line | j.readableNibble()
}

func (j *Joypad) readableNibble() uint8 {
	nibble := uint8(0x0F)
	if j.line&0x10 == 0 {
		nibble &= j.dpad
	}
	if j.line&0x20 == 0 {
		nibble &= j.buttons
	}
	return nibble
}

// Write sets which of the two groups (or both, or neither) are selected.
func (j *Joypad) Write(value uint8) {
	j.line = value & 0x30
	j.checkEdge()
}

// Press updates the joypad state when a key is pressed.
func (j *Joypad) Press(key JoypadKey) {
	switch key {
	case JoypadRight:
		j.dpad = bit.Reset(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Reset(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Reset(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Reset(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Reset(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Reset(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Reset(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Reset(3, j.buttons)
	}
	j.checkEdge()
}

// Release updates the joypad state when a key is released.
func (j *Joypad) Release(key JoypadKey) {
	switch key {
	case JoypadRight:
		j.dpad = bit.Set(0, j.dpad)
	case JoypadLeft:
		j.dpad = bit.Set(1, j.dpad)
	case JoypadUp:
		j.dpad = bit.Set(2, j.dpad)
	case JoypadDown:
		j.dpad = bit.Set(3, j.dpad)
	case JoypadA:
		j.buttons = bit.Set(0, j.buttons)
	case JoypadB:
		j.buttons = bit.Set(1, j.buttons)
	case JoypadSelect:
		j.buttons = bit.Set(2, j.buttons)
	case JoypadStart:
		j.buttons = bit.Set(3, j.buttons)
	}
	j.checkEdge()
}

// checkEdge raises the joypad interrupt on any high-to-low transition of the
// currently selected readable nibble.
func (j *Joypad) checkEdge() {
	nibble := j.readableNibble()
	if j.lastNibble&^nibble != 0 {
		j.InterruptRequest = true
	}
	j.lastNibble = nibble
}
