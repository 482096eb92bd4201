package graphics

import (
	"fmt"
	"log"

	"goapple/internal/debug"
	"goapple/internal/video"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements the Window interface for headless operation.
// Frames can be dumped to disk and input is scripted through QueueEvents.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount uint64
	lastText   string
	events     []InputEvent
	dumper     *debug.FrameDumper
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := &HeadlessWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
	}

	if b.config.DumpDir != "" && (len(b.config.DumpFrames) > 0 || b.config.DumpInterval > 0) {
		w.dumper = debug.NewFrameDumper(b.config.DumpDir)
		w.dumper.SetFrames(b.config.DumpFrames...)
		w.dumper.SetDumpInterval(b.config.DumpInterval)
		if err := w.dumper.Enable(); err != nil {
			return nil, fmt.Errorf("frame dumps: %w", err)
		}
	}

	return w, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// HeadlessWindow implementation

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers does nothing in headless mode
func (w *HeadlessWindow) SwapBuffers() {}

// QueueEvents schedules input to be returned by the next PollEvents.
func (w *HeadlessWindow) QueueEvents(events ...InputEvent) {
	w.events = append(w.events, events...)
}

// PollEvents returns queued events
func (w *HeadlessWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame records the screen text and dumps the frame when selected
func (w *HeadlessWindow) RenderFrame(frame *video.Frame) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	w.frameCount++
	w.lastText = frame.Text()

	if w.dumper == nil {
		return nil
	}
	path, err := w.dumper.DumpFrame(frame, w.frameCount)
	if err != nil {
		return err
	}
	if path != "" {
		log.Printf("[HEADLESS] frame %d written to %s", w.frameCount, path)
	}
	return nil
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// GetFrameCount returns the number of frames rendered
func (w *HeadlessWindow) GetFrameCount() uint64 {
	return w.frameCount
}

// ScreenText returns the text of the last rendered frame
func (w *HeadlessWindow) ScreenText() string {
	return w.lastText
}

// Dumps returns the number of frames written to disk
func (w *HeadlessWindow) Dumps() int {
	if w.dumper == nil {
		return 0
	}
	return w.dumper.Dumps()
}
