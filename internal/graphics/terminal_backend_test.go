package graphics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"goapple/internal/input"
)

func TestParseTerminalInput(t *testing.T) {
	tests := []struct {
		in    string
		codes []uint8
		quit  bool
	}{
		{"a", []uint8{'A'}, false},
		{"\r", []uint8{input.KeyReturn}, false},
		{"\x7f", []uint8{input.KeyBackspace}, false},
		{"\x03", []uint8{0x03}, false},
		{"\x1b[A\x1b[B\x1b[C\x1b[D", []uint8{input.KeyUp, input.KeyDown, input.KeyRight, input.KeyLeft}, false},
		{"\x1b", []uint8{input.KeyEscape}, false},
		{"x\x1d", []uint8{'X'}, true},
	}

	for _, tt := range tests {
		var codes []uint8
		quit := false
		for _, ev := range parseTerminalInput([]byte(tt.in)) {
			switch ev.Type {
			case InputEventTypeKey:
				codes = append(codes, ev.Code)
			case InputEventTypeQuit:
				quit = true
			}
		}
		if !bytes.Equal(codes, tt.codes) || quit != tt.quit {
			t.Errorf("%q: expected % X quit=%v, got % X quit=%v", tt.in, tt.codes, tt.quit, codes, quit)
		}
	}
}

func newTestTerminal(t *testing.T, in string) (*TerminalWindow, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	backend := NewTerminalBackend()
	if err := backend.Initialize(Config{Input: strings.NewReader(in), Output: &out}); err != nil {
		t.Fatal(err)
	}
	window, err := backend.CreateWindow("goapple", 40, 24)
	if err != nil {
		t.Fatal(err)
	}
	return window.(*TerminalWindow), &out
}

func TestTerminalWindow_ReadsKeys(t *testing.T) {
	window, _ := newTestTerminal(t, "hi\x1d")
	defer window.Cleanup()

	var events []InputEvent
	deadline := time.Now().Add(2 * time.Second)
	for len(events) < 3 && time.Now().Before(deadline) {
		events = append(events, window.PollEvents()...)
		time.Sleep(time.Millisecond)
	}

	if len(events) != 3 || events[0].Code != 'H' || events[1].Code != 'I' || events[2].Type != InputEventTypeQuit {
		t.Fatalf("Unexpected events %+v", events)
	}
	if !window.ShouldClose() {
		t.Error("Expected the quit key to close the window")
	}
}

func TestTerminalWindow_RenderFrame(t *testing.T) {
	window, out := newTestTerminal(t, "")
	out.Reset()

	frame := renderText(t, "READY", "]")
	if err := window.RenderFrame(frame); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	if !strings.HasPrefix(text, "\033[HREADY\033[K\r\n]\033[K\r\n") {
		t.Errorf("Unexpected terminal output %q", text)
	}

	out.Reset()
	if err := window.RenderFrame(frame); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Error("Expected an unchanged screen not to be redrawn")
	}

	if err := window.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if err := window.Cleanup(); err != nil {
		t.Error("Expected Cleanup to be idempotent")
	}
}
