package bus

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"goapple/internal/cpu"
	"goapple/internal/input"
	"goapple/internal/memory"
	"goapple/internal/rom"
	"goapple/internal/video"
)

func TestNew_InstallsSoftSwitches(t *testing.T) {
	b := New(DefaultConfig())

	want := []string{"keyboard", "keyboard-strobe", "speaker", "video"}
	got := b.Memory.Handlers()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected handlers %v, got %v", want, got)
	}
	if b.Memory.Peek(0x1234) != memory.DefaultFill {
		t.Errorf("Expected memory filled with $%02X", memory.DefaultFill)
	}
	if b.Video != video.DefaultSwitches() {
		t.Errorf("Expected default video mode, got %v", b.Video)
	}
}

func TestReset_LoadsResetVector(t *testing.T) {
	b := newTestBus(t, DefaultConfig())

	state := b.GetCPUState()
	if state.PC != 0xF000 {
		t.Errorf("CPU PC after reset = 0x%04X, want 0xF000", state.PC)
	}
	if !state.Flags.I {
		t.Error("Expected interrupts disabled after reset")
	}
	if state.SP != 0xFD {
		t.Errorf("Expected SP $FD after reset, got $%02X", state.SP)
	}
	if state.Cycles != 0 || b.GetFrameCount() != 0 {
		t.Error("Expected counters cleared by reset")
	}
}

func TestKeyboardSoftSwitches(t *testing.T) {
	b := New(DefaultConfig())

	if v := b.Memory.Read(0xC000); v != 0 {
		t.Errorf("Expected empty latch, got $%02X", v)
	}

	b.Keyboard.Press('A')
	for _, addr := range []uint16{0xC000, 0xC007, 0xC00F} {
		if v := b.Memory.Read(addr); v != 0xC1 {
			t.Errorf("$%04X: expected $C1, got $%02X", addr, v)
		}
	}

	if v := b.Memory.Read(0xC010); v != 0x41 {
		t.Errorf("Expected $C010 to return latch without strobe, got $%02X", v)
	}
	if v := b.Memory.Read(0xC000); v != 0x41 {
		t.Errorf("Expected strobe cleared, got $%02X", v)
	}

	b.Keyboard.Press('B')
	b.Memory.Write(0xC01F, 0x00)
	if v := b.Memory.Read(0xC000); v&input.Strobe != 0 {
		t.Errorf("Expected write to $C01F to clear the strobe, got $%02X", v)
	}

	b.Memory.Write(0xC000, 0x99)
	if b.Memory.Peek(0xC000) == 0x99 {
		t.Error("Soft switch writes should not reach storage")
	}
}

func TestSpeakerSoftSwitch(t *testing.T) {
	b := New(DefaultConfig())

	b.Memory.Read(0xC030)
	b.Memory.Write(0xC03F, 0)
	b.Memory.Read(0xC020)

	if got := b.Speaker.Toggles(); got != 2 {
		t.Errorf("Expected 2 toggles, got %d", got)
	}
	if b.Memory.Peek(0xC03F) != memory.DefaultFill {
		t.Error("Speaker writes should not reach storage")
	}
}

func TestVideoSoftSwitches(t *testing.T) {
	tests := []struct {
		address uint16
		check   func(video.Switches) bool
	}{
		{video.SwitchTextOff, func(s video.Switches) bool { return !s.Text }},
		{video.SwitchMixedOn, func(s video.Switches) bool { return s.Mixed }},
		{video.SwitchPage2, func(s video.Switches) bool { return s.Page2 }},
		{video.SwitchHiRes, func(s video.Switches) bool { return s.HiRes }},
		{video.SwitchLoRes, func(s video.Switches) bool { return !s.HiRes }},
		{video.SwitchPage1, func(s video.Switches) bool { return !s.Page2 }},
		{video.SwitchMixedOff, func(s video.Switches) bool { return !s.Mixed }},
		{video.SwitchTextOn, func(s video.Switches) bool { return s.Text }},
	}

	b := New(DefaultConfig())
	for i, tt := range tests {
		// Alternate reads and writes; both flip the switch.
		if i%2 == 0 {
			b.Memory.Read(tt.address)
		} else {
			b.Memory.Write(tt.address, 0xFF)
		}
		if !tt.check(b.Video) {
			t.Errorf("$%04X: unexpected mode %v", tt.address, b.Video)
		}
	}
}

func TestTick_CountsCycles(t *testing.T) {
	// LDA #$01 (1+2), STA $10 (1+3), JMP $F000 (1+3)
	b := newTestBus(t, DefaultConfig(), 0xA9, 0x01, 0x85, 0x10, 0x4C, 0x00, 0xF0)

	if err := b.RunCycles(11); err != nil {
		t.Fatal(err)
	}
	if b.GetCycleCount() != 11 {
		t.Errorf("Expected 11 cycles, got %d", b.GetCycleCount())
	}
	if b.CPU.PC != 0xF000 || b.CPU.Pending() != 0 {
		t.Errorf("Expected one full loop, PC=$%04X pending=%d", b.CPU.PC, b.CPU.Pending())
	}
	if b.Memory.Read(0x10) != 0x01 {
		t.Error("Expected STA to store")
	}
}

func TestStepInstruction(t *testing.T) {
	b := newTestBus(t, DefaultConfig(), 0xA2, 0x03, 0xE8, 0xE8)

	stepN(t, b, 3)
	if b.CPU.X != 0x05 {
		t.Errorf("Expected X=5, got %d", b.CPU.X)
	}
	// Each 2-cycle instruction takes its fetch tick plus 2 countdown ticks.
	if b.GetCycleCount() != 9 {
		t.Errorf("Expected 9 cycles, got %d", b.GetCycleCount())
	}
}

func TestInvalidOpcode_HaltPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HangThreshold = 5
	b := newTestBus(t, cfg, 0xE8, 0x02)

	stepN(t, b, 1)
	before := b.CPU.Snapshot()

	var err error
	for i := 0; i < 4; i++ {
		var state cpu.State
		state, err = b.Tick()
		if state != cpu.Invalid || err != nil {
			t.Fatalf("tick %d: expected Invalid without error, got %v %v", i, state, err)
		}
	}
	_, err = b.Tick()
	if !errors.Is(err, ErrCPUHung) {
		t.Fatalf("Expected ErrCPUHung, got %v", err)
	}
	if _, again := b.Tick(); !errors.Is(again, ErrCPUHung) {
		t.Error("Expected a stopped machine to keep reporting the error")
	}

	after := b.CPU.Snapshot()
	if after.PC != before.PC || after.A != before.A || after.X != before.X || after.P != before.P {
		t.Errorf("Invalid opcode changed CPU state: %+v -> %+v", before, after)
	}

	b.WarmReset()
	if b.Stopped() != nil {
		t.Error("Expected warm reset to clear the stop")
	}
}

func TestInvalidOpcode_IgnorePolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InvalidPolicy = PolicyIgnore
	cfg.HangThreshold = 5
	b := newTestBus(t, cfg, 0x02)

	if err := b.RunCycles(100); err != nil {
		t.Fatalf("Expected ignore policy to keep running, got %v", err)
	}
	if b.CPU.PC != 0xF000 {
		t.Errorf("Expected PC to stay on the invalid byte, got $%04X", b.CPU.PC)
	}
}

func TestInvalidOpcode_SkipPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InvalidPolicy = PolicySkip
	// $02 skipped, then LDA #$42
	b := newTestBus(t, cfg, 0x02, 0xA9, 0x42)

	if _, err := b.Tick(); err != nil {
		t.Fatal(err)
	}
	if b.CPU.PC != 0xF001 {
		t.Fatalf("Expected PC advanced past the invalid byte, got $%04X", b.CPU.PC)
	}
	stepN(t, b, 1)
	if b.CPU.A != 0x42 {
		t.Errorf("Expected A=$42, got $%02X", b.CPU.A)
	}
}

func TestHaltOnBreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HaltOnBreak = true
	b := newTestBus(t, cfg, 0xA9, 0x07, 0x00)

	err := b.RunFrame()
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("Expected ErrHalted, got %v", err)
	}
	if b.CPU.A != 0x07 {
		t.Errorf("Expected LDA to run before BRK, A=$%02X", b.CPU.A)
	}
	if b.GetFrameCount() != 1 {
		t.Error("Expected the frame to be finished after a halt")
	}
}

func TestRunFrame_ProducesAudioAndVideo(t *testing.T) {
	// loop: BIT $C030 ; JMP loop
	b := newTestBus(t, DefaultConfig(), 0x2C, 0x30, 0xC0, 0x4C, 0x00, 0xF0)

	if err := b.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if b.GetCycleCount() != DefaultCyclesPerFrame {
		t.Errorf("Expected %d cycles, got %d", DefaultCyclesPerFrame, b.GetCycleCount())
	}
	// BIT (1+4) and JMP (1+3) make 9 ticks per toggle
	if toggles := b.Speaker.Toggles(); toggles < DefaultCyclesPerFrame/9-1 {
		t.Errorf("Expected a toggle every loop, got %d", toggles)
	}

	samples := b.AudioSamples()
	if n := len(samples); n < 730 || n > 740 {
		t.Errorf("Expected about 735 samples per frame, got %d", n)
	}
	nonZero := false
	for _, v := range samples {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("Expected audible samples")
	}
	if b.GetFrame() == nil || b.Renderer.GetFrameCount() != 1 {
		t.Error("Expected one rendered frame")
	}
}

func TestStateRoundTrip(t *testing.T) {
	b := newTestBus(t, DefaultConfig(), 0xA9, 0x42, 0x85, 0x10, 0x8D, 0x50, 0xC0, 0x4C, 0x07, 0xF0)
	stepN(t, b, 4)
	b.Keyboard.Press('Q')

	data, err := json.Marshal(b.State())
	if err != nil {
		t.Fatal(err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}

	other := New(DefaultConfig())
	if err := other.RestoreState(s); err != nil {
		t.Fatal(err)
	}

	if other.GetCPUState() != b.GetCPUState() {
		t.Errorf("CPU mismatch: %+v vs %+v", other.GetCPUState(), b.GetCPUState())
	}
	if other.Memory.Peek(0x10) != 0x42 {
		t.Error("Expected memory restored")
	}
	if other.Video != b.Video || other.Video.Text {
		t.Errorf("Expected graphics mode restored, got %v", other.Video)
	}
	if other.Keyboard.Data() != 0xD1 {
		t.Errorf("Expected keyboard latch restored, got $%02X", other.Keyboard.Data())
	}
	if other.GetCycleCount() != b.GetCycleCount() {
		t.Error("Expected cycle count restored")
	}

	if err := other.RestoreState(State{Memory: make([]byte, 10)}); !errors.Is(err, ErrBadState) {
		t.Errorf("Expected ErrBadState, got %v", err)
	}
}

func TestMemoryWatchpoints(t *testing.T) {
	b := New(DefaultConfig())
	b.AddMemoryWatchpoint(0x0010)
	b.AddMemoryWatchpoint(0x0400)

	b.Memory.Write(0x0400, 0xC1)
	b.Memory.Write(0x0010, 0x01)

	changes := b.CheckMemoryWatchpoints()
	if len(changes) != 2 || changes[0].Address != 0x0010 || changes[1].Current != 0xC1 {
		t.Fatalf("Unexpected changes %+v", changes)
	}
	if len(b.CheckMemoryWatchpoints()) != 0 {
		t.Error("Expected no changes on second check")
	}
	if describeAddress(0x0400) != "text page 1" || describeAddress(0xC030) != "soft switch" {
		t.Error("Unexpected address descriptions")
	}
}

// TestMonitorBoot runs the built-in monitor ROM: it must print its banner,
// echo typed keys after the prompt and click the speaker for each key.
func TestMonitorBoot(t *testing.T) {
	b := New(DefaultConfig())
	if err := b.LoadImage(rom.Monitor()); err != nil {
		t.Fatal(err)
	}
	b.Reset()

	if err := b.Run(2); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(b.GetFrame().Text(), "\n")
	if lines[0] != rom.MonitorTitle {
		t.Fatalf("Expected banner %q, got %q", rom.MonitorTitle, lines[0])
	}
	if lines[rom.MonitorInputRow] != "]" {
		t.Errorf("Expected prompt, got %q", lines[rom.MonitorInputRow])
	}
	if b.CPU.PC < rom.MonitorKeyLoop || b.CPU.PC > rom.MonitorKeyLoop+4 {
		t.Errorf("Expected the keyboard loop, PC=$%04X", b.CPU.PC)
	}

	b.Keyboard.Type("hi")
	if err := b.Run(2); err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(b.GetFrame().Text(), "\n")
	if lines[rom.MonitorInputRow] != "]HI" {
		t.Errorf("Expected echoed keys, got %q", lines[rom.MonitorInputRow])
	}
	if b.Speaker.Toggles() != 2 {
		t.Errorf("Expected a click per key, got %d", b.Speaker.Toggles())
	}

	b.Keyboard.Press(input.KeyReturn)
	if err := b.Run(1); err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(b.GetFrame().Text(), "\n")
	if lines[rom.MonitorInputRow] != "]" {
		t.Errorf("Expected RETURN to clear the line, got %q", lines[rom.MonitorInputRow])
	}
}

func BenchmarkRunFrame(b *testing.B) {
	bus := New(DefaultConfig())
	if err := bus.LoadImage(rom.Monitor()); err != nil {
		b.Fatal(err)
	}
	bus.Reset()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bus.RunFrame(); err != nil {
			b.Fatal(err)
		}
	}
}
