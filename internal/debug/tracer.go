package debug

import (
	"fmt"
	"io"
	"log"
	"strings"

	"goapple/internal/cpu"
)

// DefaultLoopThreshold is how many consecutive fetches from one PC count as
// a spin loop.
const DefaultLoopThreshold = 100

// Tracer implements cpu.Tracer. It writes one line per instruction fetch and
// reports PC spin loops.
type Tracer struct {
	mem Peeker
	out io.Writer

	logInstructions bool
	loopThreshold   int

	lastPC      uint16
	pcStayCount int
	loopsSeen   int
	lines       uint64
}

// NewTracer creates a tracer reading instruction bytes from mem. A nil out
// sends lines to the standard logger.
func NewTracer(mem Peeker, out io.Writer) *Tracer {
	return &Tracer{
		mem:             mem,
		out:             out,
		logInstructions: true,
		loopThreshold:   DefaultLoopThreshold,
	}
}

// EnableInstructionLogging switches per-instruction lines on or off. Loop
// detection stays active either way.
func (t *Tracer) EnableInstructionLogging(enable bool) {
	t.logInstructions = enable
}

// SetLoopThreshold changes the spin loop threshold; 0 disables detection.
func (t *Tracer) SetLoopThreshold(n int) {
	t.loopThreshold = n
}

// Lines returns the number of trace lines written.
func (t *Tracer) Lines() uint64 {
	return t.lines
}

// Loops returns how many spin loops were reported.
func (t *Tracer) Loops() int {
	return t.loopsSeen
}

// Trace implements cpu.Tracer.
func (t *Tracer) Trace(pc uint16, opcode uint8, in *cpu.Instruction, regs cpu.Registers) {
	if t.loopThreshold > 0 {
		t.detectInfiniteLoop(pc, opcode)
	}
	if t.logInstructions {
		t.emit(FormatTrace(t.mem, pc, in, regs))
	}
}

// detectInfiniteLoop reports when the CPU keeps fetching from the same PC,
// as a JMP-to-self or an unknown opcode does.
func (t *Tracer) detectInfiniteLoop(pc uint16, opcode uint8) {
	if pc != t.lastPC {
		t.pcStayCount = 0
		t.lastPC = pc
		return
	}

	t.pcStayCount++
	if t.pcStayCount == t.loopThreshold {
		t.loopsSeen++
		t.emit(fmt.Sprintf("[CPU_LOOP] stuck at PC=$%04X executing %s ($%02X)", pc, OpcodeName(opcode), opcode))
	}
}

func (t *Tracer) emit(line string) {
	t.lines++
	if t.out == nil {
		log.Print(line)
		return
	}
	fmt.Fprintln(t.out, line)
}

// FormatTrace renders one trace line:
//
//	F000  A9 42     LDA #$42       A:00 X:00 Y:00 P:nv-bdIzc SP:FD
func FormatTrace(mem Peeker, pc uint16, in *cpu.Instruction, regs cpu.Registers) string {
	length := 1
	if in != nil {
		length = int(in.Mode.Length())
	}

	var raw strings.Builder
	for i := 0; i < length; i++ {
		if i > 0 {
			raw.WriteByte(' ')
		}
		fmt.Fprintf(&raw, "%02X", mem.Peek(pc+uint16(i)))
	}

	text, _ := Disassemble(mem, pc)
	return fmt.Sprintf("%04X  %-8s  %-14s A:%02X X:%02X Y:%02X P:%s SP:%02X",
		pc, raw.String(), text, regs.A, regs.X, regs.Y, regs.P, regs.SP)
}
