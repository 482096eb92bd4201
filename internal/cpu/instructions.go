package cpu

import "fmt"

// flow tells the engine what an instruction did to control flow.
type flow struct {
	jump  bool  // PC was set by the instruction; skip the length advance
	extra uint8 // cycles beyond the catalog timing
}

var (
	next   = flow{}
	jumped = flow{jump: true}
)

type handler func(c *CPU, op operand) flow

// handlers is the opcode jump table. It is filled by Init alongside the
// opcode table and never changes afterwards.
var handlers [256]handler

func bindHandlers() {
	byMnemonic := map[string]handler{
		"ADC": (*CPU).adc, "AND": (*CPU).and, "ASL": (*CPU).asl,
		"BCC": (*CPU).bcc, "BCS": (*CPU).bcs, "BEQ": (*CPU).beq,
		"BIT": (*CPU).bit, "BMI": (*CPU).bmi, "BNE": (*CPU).bne,
		"BPL": (*CPU).bpl, "BRK": (*CPU).brk, "BVC": (*CPU).bvc,
		"BVS": (*CPU).bvs, "CLC": (*CPU).clc, "CLD": (*CPU).cld,
		"CLI": (*CPU).cli, "CLV": (*CPU).clv, "CMP": (*CPU).cmp,
		"CPX": (*CPU).cpx, "CPY": (*CPU).cpy, "DEC": (*CPU).dec,
		"DEX": (*CPU).dex, "DEY": (*CPU).dey, "EOR": (*CPU).eor,
		"INC": (*CPU).inc, "INX": (*CPU).inx, "INY": (*CPU).iny,
		"JMP": (*CPU).jmp, "JSR": (*CPU).jsr, "LDA": (*CPU).lda,
		"LDX": (*CPU).ldx, "LDY": (*CPU).ldy, "LSR": (*CPU).lsr,
		"NOP": (*CPU).nop, "ORA": (*CPU).ora, "PHA": (*CPU).pha,
		"PHP": (*CPU).php, "PLA": (*CPU).pla, "PLP": (*CPU).plp,
		"ROL": (*CPU).rol, "ROR": (*CPU).ror, "RTI": (*CPU).rti,
		"RTS": (*CPU).rts, "SBC": (*CPU).sbc, "SEC": (*CPU).sec,
		"SED": (*CPU).sed, "SEI": (*CPU).sei, "STA": (*CPU).sta,
		"STX": (*CPU).stx, "STY": (*CPU).sty, "TAX": (*CPU).tax,
		"TAY": (*CPU).tay, "TSX": (*CPU).tsx, "TXA": (*CPU).txa,
		"TXS": (*CPU).txs, "TYA": (*CPU).tya,
	}

	for i := range catalog {
		in := &catalog[i]
		h, ok := byMnemonic[in.Mnemonic]
		if !ok {
			panic(fmt.Sprintf("cpu: no handler for %s", in.Mnemonic))
		}
		handlers[in.Opcode] = h
	}
}

// Arithmetic

func (c *CPU) adc(op operand) flow {
	c.addWithCarry(c.load(op))
	return next
}

func (c *CPU) addWithCarry(v uint8) {
	carry := c.P.carryBit()
	signed := int(int8(c.A)) + int(int8(v)) + int(carry)

	if c.P.Decimal() {
		low := int(c.A&0x0F) + int(v&0x0F) + int(carry)
		high := int(c.A>>4) + int(v>>4)
		if low > 9 {
			low -= 10
			high++
		}
		result := high<<4 | low&0x0F
		if high > 9 {
			result = (result + 0x60) & 0xFF
		}
		c.P.SetCarry(high > 9)
		c.A = uint8(result)
	} else {
		sum := int(c.A) + int(v) + int(carry)
		c.P.SetCarry(sum > 0xFF)
		c.A = uint8(sum)
	}

	c.P.SetOverflow(signed > 127 || signed < -128)
	c.P.UpdateZeroAndNegative(c.A)
}

func (c *CPU) sbc(op operand) flow {
	v := c.load(op)
	borrow := 1 - int(c.P.carryBit())
	diff := int(c.A) - int(v) - borrow
	signed := int(int8(c.A)) - int(int8(v)) - borrow
	binary := uint8(diff)

	if c.P.Decimal() {
		// NMOS parts derive N, Z and V from the binary difference.
		low := int(c.A&0x0F) - int(v&0x0F) - borrow
		high := int(c.A>>4) - int(v>>4)
		if low < 0 {
			low += 10
			high--
		}
		if high < 0 {
			high += 10
		}
		c.A = uint8(high<<4 | low&0x0F)
	} else {
		c.A = binary
	}

	c.P.SetCarry(diff >= 0)
	c.P.SetOverflow(signed > 127 || signed < -128)
	c.P.UpdateZeroAndNegative(binary)
	return next
}

func (c *CPU) compare(register, v uint8) {
	c.P.SetCarry(register >= v)
	c.P.UpdateZeroAndNegative(register - v)
}

func (c *CPU) cmp(op operand) flow { c.compare(c.A, c.load(op)); return next }
func (c *CPU) cpx(op operand) flow { c.compare(c.X, c.load(op)); return next }
func (c *CPU) cpy(op operand) flow { c.compare(c.Y, c.load(op)); return next }

// Logic

func (c *CPU) and(op operand) flow {
	c.A &= c.load(op)
	c.P.UpdateZeroAndNegative(c.A)
	return next
}

func (c *CPU) ora(op operand) flow {
	c.A |= c.load(op)
	c.P.UpdateZeroAndNegative(c.A)
	return next
}

func (c *CPU) eor(op operand) flow {
	c.A ^= c.load(op)
	c.P.UpdateZeroAndNegative(c.A)
	return next
}

func (c *CPU) bit(op operand) flow {
	v := c.load(op)
	c.P.SetZero(c.A&v == 0)
	c.P.SetNegative(v&0x80 != 0)
	c.P.SetOverflow(v&0x40 != 0)
	return next
}

// Shifts and rotates work on the accumulator or memory depending on mode.

func (c *CPU) asl(op operand) flow {
	v := c.load(op)
	c.P.SetCarry(v&0x80 != 0)
	v <<= 1
	c.store(op, v)
	c.P.UpdateZeroAndNegative(v)
	return next
}

func (c *CPU) lsr(op operand) flow {
	v := c.load(op)
	c.P.SetCarry(v&0x01 != 0)
	v >>= 1
	c.store(op, v)
	c.P.UpdateZeroAndNegative(v)
	return next
}

func (c *CPU) rol(op operand) flow {
	v := c.load(op)
	in := c.P.carryBit()
	c.P.SetCarry(v&0x80 != 0)
	v = v<<1 | in
	c.store(op, v)
	c.P.UpdateZeroAndNegative(v)
	return next
}

func (c *CPU) ror(op operand) flow {
	v := c.load(op)
	in := c.P.carryBit() << 7
	c.P.SetCarry(v&0x01 != 0)
	v = v>>1 | in
	c.store(op, v)
	c.P.UpdateZeroAndNegative(v)
	return next
}

// Increment and decrement

func (c *CPU) inc(op operand) flow {
	v := c.load(op) + 1
	c.store(op, v)
	c.P.UpdateZeroAndNegative(v)
	return next
}

func (c *CPU) dec(op operand) flow {
	v := c.load(op) - 1
	c.store(op, v)
	c.P.UpdateZeroAndNegative(v)
	return next
}

func (c *CPU) inx(operand) flow { c.X++; c.P.UpdateZeroAndNegative(c.X); return next }
func (c *CPU) iny(operand) flow { c.Y++; c.P.UpdateZeroAndNegative(c.Y); return next }
func (c *CPU) dex(operand) flow { c.X--; c.P.UpdateZeroAndNegative(c.X); return next }
func (c *CPU) dey(operand) flow { c.Y--; c.P.UpdateZeroAndNegative(c.Y); return next }

// Loads, stores and transfers

func (c *CPU) lda(op operand) flow { c.A = c.load(op); c.P.UpdateZeroAndNegative(c.A); return next }
func (c *CPU) ldx(op operand) flow { c.X = c.load(op); c.P.UpdateZeroAndNegative(c.X); return next }
func (c *CPU) ldy(op operand) flow { c.Y = c.load(op); c.P.UpdateZeroAndNegative(c.Y); return next }

func (c *CPU) sta(op operand) flow { c.memory.Write(op.address, c.A); return next }
func (c *CPU) stx(op operand) flow { c.memory.Write(op.address, c.X); return next }
func (c *CPU) sty(op operand) flow { c.memory.Write(op.address, c.Y); return next }

func (c *CPU) tax(operand) flow { c.X = c.A; c.P.UpdateZeroAndNegative(c.X); return next }
func (c *CPU) tay(operand) flow { c.Y = c.A; c.P.UpdateZeroAndNegative(c.Y); return next }
func (c *CPU) txa(operand) flow { c.A = c.X; c.P.UpdateZeroAndNegative(c.A); return next }
func (c *CPU) tya(operand) flow { c.A = c.Y; c.P.UpdateZeroAndNegative(c.A); return next }
func (c *CPU) tsx(operand) flow { c.X = c.SP; c.P.UpdateZeroAndNegative(c.X); return next }
func (c *CPU) txs(operand) flow { c.SP = c.X; return next }

// Stack

func (c *CPU) pha(operand) flow { c.push(c.A); return next }

func (c *CPU) pla(operand) flow {
	c.A = c.pop()
	c.P.UpdateZeroAndNegative(c.A)
	return next
}

// php pushes the status with B and bit 5 set.
func (c *CPU) php(operand) flow {
	c.push(uint8(c.P | FlagBreak | FlagUnused))
	return next
}

// plp ignores the pulled B bit; B only exists on the stack copy.
func (c *CPU) plp(operand) flow {
	c.P = Status(c.pop())&^FlagBreak | FlagUnused
	return next
}

// Flags

func (c *CPU) clc(operand) flow { c.P.SetCarry(false); return next }
func (c *CPU) sec(operand) flow { c.P.SetCarry(true); return next }
func (c *CPU) cli(operand) flow { c.P.SetInterrupt(false); return next }
func (c *CPU) sei(operand) flow { c.P.SetInterrupt(true); return next }
func (c *CPU) clv(operand) flow { c.P.SetOverflow(false); return next }
func (c *CPU) cld(operand) flow { c.P.SetDecimal(false); return next }
func (c *CPU) sed(operand) flow { c.P.SetDecimal(true); return next }

// Control transfer

func (c *CPU) jmp(op operand) flow {
	c.PC = op.address
	return jumped
}

// jsr pushes the address of its own last byte.
func (c *CPU) jsr(op operand) flow {
	c.pushWord(c.PC + 2)
	c.PC = op.address
	return jumped
}

func (c *CPU) rts(operand) flow {
	c.PC = c.popWord() + 1
	return jumped
}

func (c *CPU) rti(operand) flow {
	c.P = Status(c.pop())&^FlagBreak | FlagUnused
	c.PC = c.popWord()
	return jumped
}

// brk pushes PC+2, so the byte after BRK is skipped on return.
func (c *CPU) brk(operand) flow {
	c.pushWord(c.PC + 2)
	c.push(uint8(c.P | FlagBreak | FlagUnused))
	c.P.SetInterrupt(true)
	c.PC = c.readWord(IRQVector)
	return jumped
}

func (c *CPU) nop(operand) flow { return next }

// branch takes the jump when cond holds: one extra cycle, two when the target
// is on another page.
func (c *CPU) branch(cond bool, op operand) flow {
	if !cond {
		return next
	}
	c.PC = op.address
	f := flow{jump: true, extra: 1}
	if op.pageCrossed {
		f.extra++
	}
	return f
}

func (c *CPU) bcc(op operand) flow { return c.branch(!c.P.Carry(), op) }
func (c *CPU) bcs(op operand) flow { return c.branch(c.P.Carry(), op) }
func (c *CPU) bne(op operand) flow { return c.branch(!c.P.Zero(), op) }
func (c *CPU) beq(op operand) flow { return c.branch(c.P.Zero(), op) }
func (c *CPU) bpl(op operand) flow { return c.branch(!c.P.Negative(), op) }
func (c *CPU) bmi(op operand) flow { return c.branch(c.P.Negative(), op) }
func (c *CPU) bvc(op operand) flow { return c.branch(!c.P.Overflow(), op) }
func (c *CPU) bvs(op operand) flow { return c.branch(c.P.Overflow(), op) }
