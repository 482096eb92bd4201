// Package bus wires the Apple II together: one CPU, the 64 KiB memory and
// the soft-switch devices mapped into page $C0.
package bus

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"goapple/internal/cpu"
	"goapple/internal/debug"
	"goapple/internal/input"
	"goapple/internal/memory"
	"goapple/internal/rom"
	"goapple/internal/speaker"
	"goapple/internal/video"
)

// DefaultCyclesPerFrame is one 60 Hz frame of a 1.023 MHz clock.
const DefaultCyclesPerFrame = 17050

// DefaultHangThreshold is how many consecutive Invalid ticks stop the
// machine under the halt policy.
const DefaultHangThreshold = 1000

// Invalid opcode policies.
const (
	PolicyHalt   = "halt"
	PolicyIgnore = "ignore"
	PolicySkip   = "skip"
)

// Soft-switch ranges in page $C0.
var (
	KeyboardData   = memory.Range{Start: 0xC000, End: 0xC00F}
	KeyboardStrobe = memory.Range{Start: 0xC010, End: 0xC01F}
	SpeakerToggle  = memory.Range{Start: 0xC030, End: 0xC03F}
	VideoSwitches  = memory.Range{Start: video.SwitchTextOff, End: video.SwitchHiRes}
)

var (
	// ErrCPUHung is returned once the CPU has sat on an unknown opcode for
	// the configured number of ticks.
	ErrCPUHung = errors.New("cpu hung on invalid opcode")
	// ErrHalted is returned after BRK when HaltOnBreak is set.
	ErrHalted = errors.New("cpu halted")
	// ErrBadState is returned when a saved state cannot be applied.
	ErrBadState = errors.New("invalid machine state")
)

// Config sets up a machine.
type Config struct {
	CyclesPerFrame uint64
	SampleRate     int
	Volume         float32
	InvalidPolicy  string
	HangThreshold  int
	HaltOnBreak    bool
	Font           *video.Font
}

// DefaultConfig returns the standard 60 Hz machine.
func DefaultConfig() Config {
	return Config{
		CyclesPerFrame: DefaultCyclesPerFrame,
		SampleRate:     speaker.DefaultSampleRate,
		Volume:         0.5,
		InvalidPolicy:  PolicyHalt,
		HangThreshold:  DefaultHangThreshold,
	}
}

// Bus connects all Apple II components together
type Bus struct {
	CPU      *cpu.CPU
	Memory   *memory.Memory
	Keyboard *input.Keyboard
	Speaker  *speaker.Speaker
	Video    video.Switches
	Renderer *video.Renderer

	config Config

	cycles     uint64
	frameCount uint64

	invalidRun    int
	lastInvalidPC uint16
	stopped       error

	samples []float32

	// Memory monitoring for debugging
	watchpoints       map[uint16]uint8 // address -> previous value
	watchpointLogging bool
}

// New creates a machine with memory filled with NOPs and the soft switches
// installed. The CPU is not reset; call Reset after loading a ROM.
func New(cfg Config) *Bus {
	def := DefaultConfig()
	if cfg.CyclesPerFrame == 0 {
		cfg.CyclesPerFrame = def.CyclesPerFrame
	}
	if cfg.InvalidPolicy == "" {
		cfg.InvalidPolicy = def.InvalidPolicy
	}
	if cfg.HangThreshold <= 0 {
		cfg.HangThreshold = def.HangThreshold
	}

	b := &Bus{
		Memory:   memory.New(memory.DefaultFill),
		Keyboard: input.NewKeyboard(),
		Speaker: speaker.New(speaker.Config{
			SampleRate: cfg.SampleRate,
			ClockHz:    float64(cfg.CyclesPerFrame) * 60,
			Volume:     cfg.Volume,
		}),
		Video:       video.DefaultSwitches(),
		Renderer:    video.NewRenderer(cfg.Font),
		config:      cfg,
		watchpoints: make(map[uint16]uint8),
	}

	b.CPU = cpu.New(b.Memory)
	b.CPU.HaltOnBreak = cfg.HaltOnBreak

	for _, h := range b.softSwitches() {
		if err := b.Memory.Install(h); err != nil {
			// The handler table is static; a failure here is a programming error.
			panic(err)
		}
	}
	return b
}

func (b *Bus) softSwitches() []memory.Handler {
	return []memory.Handler{
		{
			Name:  "keyboard",
			Match: KeyboardData,
			OnRead: func(uint16) (uint8, bool) {
				return b.Keyboard.Data(), true
			},
			OnWrite: func(uint16, uint8) bool { return true },
		},
		{
			Name:  "keyboard-strobe",
			Match: KeyboardStrobe,
			OnRead: func(uint16) (uint8, bool) {
				return b.Keyboard.ClearStrobe(), true
			},
			OnWrite: func(uint16, uint8) bool {
				b.Keyboard.ClearStrobe()
				return true
			},
		},
		{
			Name:  "speaker",
			Match: SpeakerToggle,
			OnRead: func(uint16) (uint8, bool) {
				b.Speaker.Toggle(b.cycles)
				return 0, false
			},
			OnWrite: func(uint16, uint8) bool {
				b.Speaker.Toggle(b.cycles)
				return true
			},
		},
		{
			Name:  "video",
			Match: VideoSwitches,
			OnRead: func(address uint16) (uint8, bool) {
				b.Video.Access(address)
				return 0, false
			},
			OnWrite: func(address uint16, _ uint8) bool {
				b.Video.Access(address)
				return true
			},
		},
	}
}

// Config returns the configuration the machine was built with.
func (b *Bus) Config() Config {
	return b.config
}

// LoadImage copies a ROM or program image into memory, bypassing the soft
// switches.
func (b *Bus) LoadImage(img rom.Image) error {
	if err := b.Memory.Load(img.Origin, img.Data); err != nil {
		return fmt.Errorf("load %v: %w", img, err)
	}
	log.Printf("[BUS] loaded %v", img)
	return nil
}

// Reset performs a power-on style reset: devices return to rest and the CPU
// runs its reset sequence through $FFFC. Memory is kept.
func (b *Bus) Reset() {
	b.Keyboard.Reset()
	b.Speaker.Reset()
	b.Video = video.DefaultSwitches()
	b.Renderer.SetFrameCount(0)

	b.cycles = 0
	b.frameCount = 0
	b.invalidRun = 0
	b.stopped = nil

	b.CPU.ResetSequence()
	log.Printf("[BUS] reset, PC=$%04X", b.CPU.PC)
}

// WarmReset pulls /RESET without touching devices or counters, like the
// Reset key.
func (b *Bus) WarmReset() {
	b.invalidRun = 0
	b.stopped = nil
	b.CPU.ResetSequence()
}

// SetTracer attaches an instruction tracer to the CPU; nil detaches it.
func (b *Bus) SetTracer(t cpu.Tracer) {
	b.CPU.SetTracer(t)
}

// Stopped returns the error that stopped the machine, or nil.
func (b *Bus) Stopped() error {
	return b.stopped
}

// Tick advances the machine by one clock cycle. Once the machine has
// stopped every call returns the same error.
func (b *Bus) Tick() (cpu.State, error) {
	if b.stopped != nil {
		return cpu.Halting, b.stopped
	}

	b.cycles++
	state := b.CPU.Tick()

	switch state {
	case cpu.Running:
		b.invalidRun = 0
	case cpu.Invalid:
		b.invalidOpcode()
	case cpu.Halting:
		b.stopped = fmt.Errorf("%w: BRK at $%04X", ErrHalted, b.CPU.PC)
		log.Printf("[BUS] %v", b.stopped)
	}
	return state, b.stopped
}

func (b *Bus) invalidOpcode() {
	pc := b.CPU.PC
	opcode := b.Memory.Peek(pc)
	if b.invalidRun == 0 || pc != b.lastInvalidPC {
		log.Printf("[CPU] invalid opcode $%02X (%s) at $%04X", opcode, debug.OpcodeName(opcode), pc)
		b.lastInvalidPC = pc
	}
	b.invalidRun++

	switch b.config.InvalidPolicy {
	case PolicySkip:
		b.CPU.PC++
	case PolicyIgnore:
	default:
		if b.invalidRun >= b.config.HangThreshold {
			b.stopped = fmt.Errorf("%w: $%02X at $%04X", ErrCPUHung, opcode, pc)
			log.Printf("[BUS] %v", b.stopped)
		}
	}
}

// StepInstruction runs the clock until the next instruction has executed
// and its cycles have elapsed.
func (b *Bus) StepInstruction() (cpu.State, error) {
	for b.CPU.Pending() > 0 {
		if _, err := b.Tick(); err != nil {
			return cpu.Halting, err
		}
	}

	state, err := b.Tick()
	for err == nil && b.CPU.Pending() > 0 {
		_, err = b.Tick()
	}
	return state, err
}

// RunCycles runs the clock for n cycles or until the machine stops.
func (b *Bus) RunCycles(n uint64) error {
	target := b.cycles + n
	for b.cycles < target {
		if _, err := b.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// RunFrame executes one frame worth of cycles, then converts the frame's
// speaker edges to samples and renders the screen. The frame is finished
// even if the machine stops part way through.
func (b *Bus) RunFrame() error {
	err := b.RunCycles(b.config.CyclesPerFrame)

	b.frameCount++
	b.samples = b.Speaker.EndFrame(b.cycles)
	b.Renderer.Render(b.Memory, b.Video)

	if b.watchpointLogging {
		b.CheckMemoryWatchpoints()
	}
	return err
}

// Run runs the emulator for a specified number of frames
func (b *Bus) Run(frames int) error {
	for i := 0; i < frames; i++ {
		if err := b.RunFrame(); err != nil {
			return err
		}
	}
	return nil
}

// GetFrame returns the most recently rendered frame.
func (b *Bus) GetFrame() *video.Frame {
	return b.Renderer.Frame()
}

// AudioSamples returns the samples produced by the last frame. The slice is
// reused by the next frame.
func (b *Bus) AudioSamples() []float32 {
	return b.samples
}

// GetCycleCount returns the number of clock ticks since reset
func (b *Bus) GetCycleCount() uint64 {
	return b.cycles
}

// GetFrameCount returns the current frame count
func (b *Bus) GetFrameCount() uint64 {
	return b.frameCount
}

// GetCPUState returns the current CPU state for testing
func (b *Bus) GetCPUState() CPUState {
	p := b.CPU.P
	return CPUState{
		PC:     b.CPU.PC,
		A:      b.CPU.A,
		X:      b.CPU.X,
		Y:      b.CPU.Y,
		SP:     b.CPU.SP,
		Cycles: b.cycles,
		Flags: CPUFlags{
			N: p.Negative(),
			V: p.Overflow(),
			B: p.Break(),
			D: p.Decimal(),
			I: p.Interrupt(),
			Z: p.Zero(),
			C: p.Carry(),
		},
	}
}

// CPUState represents CPU state snapshot for testing
type CPUState struct {
	PC     uint16   `json:"pc"`
	A      uint8    `json:"a"`
	X      uint8    `json:"x"`
	Y      uint8    `json:"y"`
	SP     uint8    `json:"sp"`
	Cycles uint64   `json:"cycles"`
	Flags  CPUFlags `json:"flags"`
}

// CPUFlags represents CPU status flags for testing
type CPUFlags struct {
	N bool `json:"n"`
	V bool `json:"v"`
	B bool `json:"b"`
	D bool `json:"d"`
	I bool `json:"i"`
	Z bool `json:"z"`
	C bool `json:"c"`
}

// State is everything needed to resume the machine.
type State struct {
	CPU      cpu.Registers  `json:"cpu"`
	Memory   []byte         `json:"memory"`
	Video    video.Switches `json:"video"`
	Keyboard uint8          `json:"keyboard"`
	Cycles   uint64         `json:"cycles"`
	Frames   uint64         `json:"frames"`
}

// State captures the machine.
func (b *Bus) State() State {
	return State{
		CPU:      b.CPU.Snapshot(),
		Memory:   b.Memory.Image(),
		Video:    b.Video,
		Keyboard: b.Keyboard.Data(),
		Cycles:   b.cycles,
		Frames:   b.frameCount,
	}
}

// RestoreState loads a state captured by State. Buffered audio and queued
// keys are dropped.
func (b *Bus) RestoreState(s State) error {
	if len(s.Memory) != memory.Size {
		return fmt.Errorf("%w: memory image is %d bytes", ErrBadState, len(s.Memory))
	}
	if err := b.Memory.SetImage(s.Memory); err != nil {
		return fmt.Errorf("%w: %v", ErrBadState, err)
	}

	b.CPU.Restore(s.CPU)
	b.Video = s.Video
	b.Keyboard.Restore(s.Keyboard)
	b.cycles = s.Cycles
	b.frameCount = s.Frames
	b.Renderer.SetFrameCount(s.Frames)
	b.Speaker.Sync(s.Cycles)

	b.invalidRun = 0
	b.stopped = nil
	return nil
}

// AddMemoryWatchpoint adds a memory address to monitor for changes
func (b *Bus) AddMemoryWatchpoint(address uint16) {
	b.watchpoints[address] = b.Memory.Peek(address)
}

// EnableWatchpointLogging enables/disables memory watchpoint logging at the
// end of each frame.
func (b *Bus) EnableWatchpointLogging(enabled bool) {
	b.watchpointLogging = enabled
}

// WatchpointChange is one observed change of a watched address.
type WatchpointChange struct {
	Address  uint16
	Previous uint8
	Current  uint8
}

// CheckMemoryWatchpoints logs and returns the watched addresses whose value
// changed since the last check, in address order.
func (b *Bus) CheckMemoryWatchpoints() []WatchpointChange {
	var changes []WatchpointChange
	for address, previous := range b.watchpoints {
		current := b.Memory.Peek(address)
		if current == previous {
			continue
		}
		changes = append(changes, WatchpointChange{Address: address, Previous: previous, Current: current})
		b.watchpoints[address] = current
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Address < changes[j].Address })
	for _, c := range changes {
		log.Printf("[MEMORY_WATCH] Frame %d: $%04X changed from $%02X to $%02X (%s)",
			b.frameCount, c.Address, c.Previous, c.Current, describeAddress(c.Address))
	}
	return changes
}

// describeAddress returns a human-readable description of memory addresses
func describeAddress(address uint16) string {
	switch {
	case address < 0x0100:
		return "zero page"
	case address < 0x0200:
		return "stack"
	case address >= video.TextPage1 && address < video.TextPage2:
		return "text page 1"
	case address >= video.TextPage2 && address < 0x0C00:
		return "text page 2"
	case address >= video.HiResPage1 && address < video.HiResPage2:
		return "hi-res page 1"
	case address >= video.HiResPage2 && address < 0x6000:
		return "hi-res page 2"
	case address >= 0xC000 && address < 0xC100:
		return "soft switch"
	case address >= 0xD000:
		return "ROM"
	}
	return "RAM"
}
