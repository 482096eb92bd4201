package graphics

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"goapple/internal/input"
	"goapple/internal/video"

	"golang.org/x/term"
)

// TerminalQuitKey (Ctrl-]) leaves the terminal backend; every other byte is
// passed to the emulated keyboard.
const TerminalQuitKey = 0x1D

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow implements the Window interface by drawing the 40x24 text
// screen with ANSI escapes and reading keys from stdin in raw mode.
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool

	in  io.Reader
	out io.Writer

	fd       int
	rawState *term.State

	mu     sync.Mutex
	events []InputEvent
	closed bool

	lastText   string
	sizeWarned bool
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow puts stdin into raw mode when it is a terminal and starts
// reading keys.
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		in:      b.config.Input,
		out:     b.config.Output,
		fd:      -1,
	}
	if w.in == nil {
		w.in = os.Stdin
		w.fd = int(os.Stdin.Fd())
	}
	if w.out == nil {
		w.out = os.Stdout
	}

	if w.fd >= 0 && term.IsTerminal(w.fd) {
		state, err := term.MakeRaw(w.fd)
		if err != nil {
			return nil, fmt.Errorf("terminal raw mode: %w", err)
		}
		w.rawState = state
	}

	fmt.Fprint(w.out, "\033[2J\033[?25l")
	w.SetTitle(title)

	go w.readInput()
	return w, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// TerminalWindow implementation

// SetTitle sets the window title (for terminal title)
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// GetSize returns window dimensions
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.running
}

// SwapBuffers does nothing for terminal
func (w *TerminalWindow) SwapBuffers() {}

// PollEvents returns keys read since the last call
func (w *TerminalWindow) PollEvents() []InputEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.events
	w.events = nil
	return events
}

func (w *TerminalWindow) readInput() {
	r := bufio.NewReader(w.in)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			events := parseTerminalInput(buf[:n])
			w.mu.Lock()
			for _, ev := range events {
				if ev.Type == InputEventTypeQuit {
					w.running = false
				}
			}
			w.events = append(w.events, events...)
			w.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("[TERMINAL] input: %v", err)
			}
			return
		}
	}
}

// parseTerminalInput converts raw terminal bytes to events. ANSI arrow key
// sequences become the Apple II arrow codes.
func parseTerminalInput(data []byte) []InputEvent {
	var events []InputEvent
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == 0x1B && i+2 < len(data) && data[i+1] == '[' {
			if code, ok := arrowCode(data[i+2]); ok {
				events = append(events, KeyEvent(code))
				i += 2
				continue
			}
		}
		if b == TerminalQuitKey {
			events = append(events, InputEvent{Type: InputEventTypeQuit})
			continue
		}
		if code, ok := input.Translate(rune(b)); ok {
			events = append(events, KeyEvent(code))
		}
	}
	return events
}

func arrowCode(b byte) (uint8, bool) {
	switch b {
	case 'A':
		return input.KeyUp, true
	case 'B':
		return input.KeyDown, true
	case 'C':
		return input.KeyRight, true
	case 'D':
		return input.KeyLeft, true
	}
	return 0, false
}

// RenderFrame redraws the text screen when it has changed. Graphics rows are
// left blank.
func (w *TerminalWindow) RenderFrame(frame *video.Frame) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	if w.fd >= 0 && !w.sizeWarned {
		if cols, rows, err := term.GetSize(w.fd); err == nil && (cols < video.Columns || rows < video.Rows) {
			log.Printf("[TERMINAL] terminal is %dx%d, need at least %dx%d", cols, rows, video.Columns, video.Rows)
			w.sizeWarned = true
		}
	}

	text := frame.Text()
	if text == w.lastText {
		return nil
	}
	w.lastText = text

	var sb strings.Builder
	sb.WriteString("\033[H")
	for _, line := range strings.Split(text, "\n") {
		sb.WriteString(line)
		// Raw mode needs an explicit carriage return.
		sb.WriteString("\033[K\r\n")
	}
	_, err := io.WriteString(w.out, sb.String())
	return err
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	w.mu.Lock()
	w.running = false
	closed := w.closed
	w.closed = true
	w.mu.Unlock()
	if closed {
		return nil
	}

	fmt.Fprint(w.out, "\033[?25h\r\n")
	if w.rawState != nil {
		return term.Restore(w.fd, w.rawState)
	}
	return nil
}
