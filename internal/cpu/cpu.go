// Package cpu implements the NMOS 6502 processor used by the Apple II.
package cpu

const (
	stackBase = 0x0100

	NMIVector   = 0xFFFA
	ResetVector = 0xFFFC
	IRQVector   = 0xFFFE

	// interruptCycles is the cost of servicing NMI or IRQ.
	interruptCycles = 7
)

// State is the outcome of a single Tick.
type State int

const (
	Running State = iota
	Halting
	Invalid
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Halting:
		return "HALTING"
	case Invalid:
		return "INVALID"
	}
	return "UNKNOWN"
}

// Memory is the bus the CPU reads and writes through.
type Memory interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// Tracer observes instruction fetches. Instruction is nil for bytes that are
// not in the catalog.
type Tracer interface {
	Trace(pc uint16, opcode uint8, in *Instruction, regs Registers)
}

// Context is a snapshot of the most recently executed instruction.
type Context struct {
	Instruction *Instruction
	Pending     int
	A, X, Y     uint8
	PC          uint16
}

// Registers is the persisted register file.
type Registers struct {
	A       uint8  `json:"a"`
	X       uint8  `json:"x"`
	Y       uint8  `json:"y"`
	SP      uint8  `json:"sp"`
	PC      uint16 `json:"pc"`
	P       Status `json:"p"`
	Pending int    `json:"pending"`
	Cycles  uint64 `json:"cycles"`
}

// CPU is one 6502 core bound to a memory bus.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8 // offset into page one
	PC uint16
	P  Status

	// HaltOnBreak makes BRK stop execution (Tick returns Halting) instead of
	// vectoring through $FFFE.
	HaltOnBreak bool

	memory Memory
	ctx    Context
	cycles uint64

	nmiPending bool
	irqLine    bool

	tracer Tracer
}

// New creates a CPU attached to memory. Registers start in the reset state;
// PC is left for the caller to establish.
func New(memory Memory) *CPU {
	Init()
	c := &CPU{memory: memory, SP: 0xFF, P: FlagUnused}
	c.Reset()
	return c
}

// Reset clears A, X and Y and the execution context. PC, SP, the status
// flags and memory are left alone.
func (c *CPU) Reset() {
	c.A = 0
	c.X = 0
	c.Y = 0
	c.ctx = Context{}
	c.nmiPending = false
	c.irqLine = false
}

// ResetSequence performs Reset and then loads PC from the reset vector with
// interrupts disabled, the way the hardware /RESET line does. The three
// suppressed stack pushes of the real sequence leave SP at $FD.
func (c *CPU) ResetSequence() {
	c.Reset()
	c.SP = 0xFD
	c.P.SetInterrupt(true)
	c.PC = c.readWord(ResetVector)
}

// SetTracer installs an instruction observer; nil removes it.
func (c *CPU) SetTracer(t Tracer) {
	c.tracer = t
}

// Context returns the execution context of the last instruction.
func (c *CPU) Context() Context {
	return c.ctx
}

// Cycles returns the number of cycles consumed by executed instructions.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// Pending returns the number of ticks left before the next fetch.
func (c *CPU) Pending() int {
	return c.ctx.Pending
}

// Tick advances the processor by one clock cycle. An instruction executes in
// full on the tick that finds the countdown at zero, which is then reloaded
// with the instruction's cycle cost; the following ticks only count down.
func (c *CPU) Tick() State {
	if c.ctx.Pending > 0 {
		c.ctx.Pending--
		return Running
	}

	state, cycles := c.execute()
	if state == Running && cycles > 0 {
		c.ctx.Pending = cycles
	}
	return state
}

// Step executes the next instruction immediately, discarding any countdown,
// and reports its cycle cost.
func (c *CPU) Step() (State, int) {
	c.ctx.Pending = 0
	return c.execute()
}

// NMI latches a non-maskable interrupt, serviced before the next fetch.
func (c *CPU) NMI() {
	c.nmiPending = true
}

// IRQ sets the level of the maskable interrupt line.
func (c *CPU) IRQ(asserted bool) {
	c.irqLine = asserted
}

func (c *CPU) execute() (State, int) {
	if cycles, ok := c.serviceInterrupt(); ok {
		return Running, cycles
	}

	pc := c.PC
	opcode := c.memory.Read(pc)
	in, ok := Lookup(opcode)

	if c.tracer != nil {
		c.tracer.Trace(pc, opcode, in, c.Snapshot())
	}

	if !ok {
		return Invalid, 0
	}
	if opcode == 0x00 && c.HaltOnBreak {
		return Halting, 0
	}

	c.ctx = Context{Instruction: in, A: c.A, X: c.X, Y: c.Y, PC: pc}

	op := c.resolve(in.Mode)
	result := handlers[opcode](c, op)

	if !result.jump {
		c.PC = pc + in.Mode.Length()
	}

	cycles := int(in.Cycles) + int(result.extra)
	if in.PageCross && op.pageCrossed && in.Mode != Relative {
		cycles++
	}
	c.cycles += uint64(cycles)
	return Running, cycles
}

func (c *CPU) serviceInterrupt() (int, bool) {
	var vector uint16
	switch {
	case c.nmiPending:
		c.nmiPending = false
		vector = NMIVector
	case c.irqLine && !c.P.Interrupt():
		vector = IRQVector
	default:
		return 0, false
	}

	c.pushWord(c.PC)
	c.push(uint8(c.P&^FlagBreak | FlagUnused))
	c.P.SetInterrupt(true)
	c.PC = c.readWord(vector)
	c.cycles += interruptCycles
	return interruptCycles, true
}

// Snapshot captures the register file for persistence or tracing.
func (c *CPU) Snapshot() Registers {
	return Registers{
		A: c.A, X: c.X, Y: c.Y,
		SP: c.SP, PC: c.PC, P: c.P,
		Pending: c.ctx.Pending,
		Cycles:  c.cycles,
	}
}

// Restore loads a register file captured by Snapshot.
func (c *CPU) Restore(r Registers) {
	c.A, c.X, c.Y = r.A, r.X, r.Y
	c.SP, c.PC = r.SP, r.PC
	c.P = r.P | FlagUnused
	c.ctx = Context{Pending: r.Pending, A: r.A, X: r.X, Y: r.Y, PC: r.PC}
	c.cycles = r.Cycles
}

func (c *CPU) push(v uint8) {
	c.memory.Write(stackBase|uint16(c.SP), v)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.memory.Read(stackBase | uint16(c.SP))
}

func (c *CPU) pushWord(v uint16) {
	c.push(uint8(v >> 8))
	c.push(uint8(v))
}

func (c *CPU) popWord() uint16 {
	low := uint16(c.pop())
	high := uint16(c.pop())
	return high<<8 | low
}
