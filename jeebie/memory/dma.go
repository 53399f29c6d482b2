package memory

// dmaBudgetCycles is the total time an OAM DMA transfer occupies: 160 bytes
// at one byte per four cycles.
const dmaBudgetCycles = 640

// dma is the OAM DMA engine: a 160-byte burst copy from (source<<8) into OAM,
// paced at one byte per four machine cycles. It holds no reference to the bus;
// the bus drives it by calling tick with source/destination callbacks.
type dma struct {
	active  bool
	source  uint8
	elapsed int // cycles elapsed since the transfer started
}

func (d *dma) start(sourceHigh uint8) {
	d.active = true
	d.source = sourceHigh
	d.elapsed = 0
}

// tick advances the DMA engine by cycles, invoking readByte/writeByte for
// each OAM byte that becomes due. readByte receives the full source address.
func (d *dma) tick(cycles int, readByte func(addr uint16) uint8, writeByte func(oamOffset uint8, value uint8)) {
	if !d.active {
		return
	}
	prevBytes := d.elapsed / 4
	d.elapsed += cycles
	newBytes := d.elapsed / 4
	if newBytes > 160 {
		newBytes = 160
	}
	for i := prevBytes; i < newBytes; i++ {
		src := uint16(d.source)<<8 + uint16(i)
		writeByte(uint8(i), readByte(src))
	}
	if d.elapsed >= dmaBudgetCycles {
		d.active = false
	}
}
