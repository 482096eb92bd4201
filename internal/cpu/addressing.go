package cpu

const (
	zeroPageMask = 0x00FF
	pageMask     = 0xFF00
)

// operand is the resolved target of an instruction.
type operand struct {
	mode        AddressingMode
	address     uint16
	pageCrossed bool
}

func (c *CPU) readWord(address uint16) uint16 {
	low := uint16(c.memory.Read(address))
	high := uint16(c.memory.Read(address + 1))
	return high<<8 | low
}

// readZeroPageWord reads a pointer from page zero; the high byte wraps to $00.
func (c *CPU) readZeroPageWord(address uint8) uint16 {
	low := uint16(c.memory.Read(uint16(address)))
	high := uint16(c.memory.Read(uint16(address + 1)))
	return high<<8 | low
}

// resolve computes the effective address for mode relative to the current PC.
// It never moves PC.
func (c *CPU) resolve(mode AddressingMode) operand {
	pc := c.PC
	op := operand{mode: mode}

	switch mode {
	case Implied, Accumulator:

	case Immediate:
		op.address = pc + 1

	case ZeroPage:
		op.address = uint16(c.memory.Read(pc + 1))

	case ZeroPageX:
		op.address = uint16(c.memory.Read(pc+1) + c.X)

	case ZeroPageY:
		op.address = uint16(c.memory.Read(pc+1) + c.Y)

	case Relative:
		next := pc + 2
		offset := int8(c.memory.Read(pc + 1))
		op.address = next + uint16(offset)
		op.pageCrossed = next&pageMask != op.address&pageMask

	case Absolute:
		op.address = c.readWord(pc + 1)

	case AbsoluteX:
		base := c.readWord(pc + 1)
		op.address = base + uint16(c.X)
		op.pageCrossed = base&pageMask != op.address&pageMask

	case AbsoluteY:
		base := c.readWord(pc + 1)
		op.address = base + uint16(c.Y)
		op.pageCrossed = base&pageMask != op.address&pageMask

	case Indirect:
		ptr := c.readWord(pc + 1)
		low := uint16(c.memory.Read(ptr))
		// NMOS quirk: the high byte never crosses into the next page.
		high := uint16(c.memory.Read(ptr&pageMask | (ptr+1)&zeroPageMask))
		op.address = high<<8 | low

	case XIndirect:
		op.address = c.readZeroPageWord(c.memory.Read(pc+1) + c.X)

	case IndirectY:
		base := c.readZeroPageWord(c.memory.Read(pc + 1))
		op.address = base + uint16(c.Y)
		op.pageCrossed = base&pageMask != op.address&pageMask
	}

	return op
}

// load returns the operand value: the accumulator, or the byte at the
// effective address.
func (c *CPU) load(op operand) uint8 {
	if op.mode == Accumulator {
		return c.A
	}
	return c.memory.Read(op.address)
}

// store writes v back to where the operand came from.
func (c *CPU) store(op operand, v uint8) {
	if op.mode == Accumulator {
		c.A = v
		return
	}
	c.memory.Write(op.address, v)
}
