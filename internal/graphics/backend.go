// Package graphics provides an abstraction layer for different rendering backends
package graphics

import (
	"fmt"
	"io"

	"goapple/internal/video"
)

// Backend represents a graphics rendering backend (Ebitengine, terminal, headless)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a window for rendering
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if running in headless mode
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window represents a rendering window
type Window interface {
	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// SwapBuffers presents the rendered frame
	SwapBuffers()

	// PollEvents returns input received since the last call
	PollEvents() []InputEvent

	// RenderFrame renders an Apple II frame to the window
	RenderFrame(frame *video.Frame) error

	// Cleanup releases window resources
	Cleanup() error
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool
	StatusBar    bool

	// Rendering configuration
	Filter     string // "nearest", "linear"
	Brightness float32
	Contrast   float32
	Saturation float32

	// Headless frame dumps
	DumpDir      string
	DumpFrames   []uint64
	DumpInterval uint64

	// Terminal streams; nil means the process stdin/stdout
	Input  io.Reader
	Output io.Writer

	// Backend-specific options
	Headless bool
	Debug    bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type   InputEventType
	Code   uint8  // Apple II key code for InputEventTypeKey
	Action Action // for InputEventTypeAction
	Slot   int    // save slot for ActionSaveState/ActionLoadState
	Text   string // for InputEventTypePaste
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeAction
	InputEventTypePaste
	InputEventTypeQuit
)

// Action is a host command that does not reach the emulated keyboard.
type Action int

const (
	ActionNone Action = iota
	ActionReset
	ActionSaveState
	ActionLoadState
	ActionPause
	ActionMute
	ActionScreenshot
)

func (a Action) String() string {
	switch a {
	case ActionReset:
		return "reset"
	case ActionSaveState:
		return "save-state"
	case ActionLoadState:
		return "load-state"
	case ActionPause:
		return "pause"
	case ActionMute:
		return "mute"
	case ActionScreenshot:
		return "screenshot"
	}
	return "none"
}

// KeyEvent returns a key press for the Apple II keyboard.
func KeyEvent(code uint8) InputEvent {
	return InputEvent{Type: InputEventTypeKey, Code: code}
}

// ActionEvent returns a host command event.
func ActionEvent(action Action) InputEvent {
	return InputEvent{Type: InputEventTypeAction, Action: action}
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine, "":
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
}

// Helper type assertion functions

// AsEbitengineWindow tries to cast a Window to EbitengineWindow
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	if ebitengineWindow, ok := window.(*EbitengineWindow); ok {
		return ebitengineWindow, true
	}
	return nil, false
}

// AsHeadlessWindow tries to cast a Window to HeadlessWindow
func AsHeadlessWindow(window Window) (*HeadlessWindow, bool) {
	if headlessWindow, ok := window.(*HeadlessWindow); ok {
		return headlessWindow, true
	}
	return nil, false
}
