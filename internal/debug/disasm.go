// Package debug provides instruction tracing, disassembly and frame dumps.
package debug

import (
	"fmt"
	"strings"

	"goapple/internal/cpu"

	nescpu "github.com/retroenv/retrogolib/nes/cpu"
)

// Peeker reads memory without side effects.
type Peeker interface {
	Peek(address uint16) uint8
}

// Disassemble formats the instruction at pc and returns it with its length.
// Bytes outside the documented set come out as a .byte directive naming the
// undocumented instruction, if it has a name.
func Disassemble(mem Peeker, pc uint16) (string, int) {
	opcode := mem.Peek(pc)
	in, ok := cpu.Lookup(opcode)
	if !ok {
		return fmt.Sprintf(".byte $%02X ; %s", opcode, OpcodeName(opcode)), 1
	}

	operand := FormatOperand(in.Mode, pc, mem.Peek(pc+1), mem.Peek(pc+2))
	if operand == "" {
		return in.Mnemonic, int(in.Mode.Length())
	}
	return in.Mnemonic + " " + operand, int(in.Mode.Length())
}

// FormatOperand renders an operand in conventional 6502 assembler syntax.
// lo and hi are the bytes following the opcode.
func FormatOperand(mode cpu.AddressingMode, pc uint16, lo, hi uint8) string {
	word := uint16(hi)<<8 | uint16(lo)
	switch mode {
	case cpu.Accumulator:
		return "A"
	case cpu.Immediate:
		return fmt.Sprintf("#$%02X", lo)
	case cpu.ZeroPage:
		return fmt.Sprintf("$%02X", lo)
	case cpu.ZeroPageX:
		return fmt.Sprintf("$%02X,X", lo)
	case cpu.ZeroPageY:
		return fmt.Sprintf("$%02X,Y", lo)
	case cpu.Relative:
		return fmt.Sprintf("$%04X", pc+2+uint16(int8(lo)))
	case cpu.Absolute:
		return fmt.Sprintf("$%04X", word)
	case cpu.AbsoluteX:
		return fmt.Sprintf("$%04X,X", word)
	case cpu.AbsoluteY:
		return fmt.Sprintf("$%04X,Y", word)
	case cpu.Indirect:
		return fmt.Sprintf("($%04X)", word)
	case cpu.XIndirect:
		return fmt.Sprintf("($%02X,X)", lo)
	case cpu.IndirectY:
		return fmt.Sprintf("($%02X),Y", lo)
	}
	return ""
}

// OpcodeName returns the mnemonic of any 6502 opcode byte, documented or
// not, using the retrogolib opcode tables. Bytes that jam the processor or
// have no known behaviour return "???".
func OpcodeName(opcode uint8) string {
	if in, ok := cpu.Lookup(opcode); ok {
		return in.Mnemonic
	}
	op := nescpu.Opcodes[opcode]
	if op.Instruction == nil {
		return "???"
	}
	return strings.ToUpper(op.Instruction.Name)
}

// Undocumented reports whether opcode has known behaviour on NMOS parts but
// is outside the documented instruction set.
func Undocumented(opcode uint8) bool {
	if _, ok := cpu.Lookup(opcode); ok {
		return false
	}
	return nescpu.Opcodes[opcode].Instruction != nil
}
