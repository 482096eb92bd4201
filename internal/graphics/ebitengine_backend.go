//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image/color"
	"log"
	"sync"

	"goapple/internal/input"
	"goapple/internal/video"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

// statusBarHeight is the strip below the screen reserved for the status line.
const statusBarHeight = 16

// maxPaste bounds a single clipboard paste.
const maxPaste = 4096

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
	statusFunc         func() string
}

// EbitengineGame implements ebiten.Game for the Apple II screen
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	windowWidth  int
	windowHeight int
	fullscreen   bool
	showStatus   bool

	processor *VideoProcessor
	// pix is the RGBA copy of the last frame, uploaded on the next Draw.
	pix   []byte
	dirty bool

	clipboardOnce sync.Once
	clipboardOK   bool

	drawCount int // For limiting debug logs
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		windowWidth:  width,
		windowHeight: height,
		fullscreen:   b.config.Fullscreen,
		showStatus:   b.config.StatusBar,
		processor:    NewVideoProcessor(b.config.Brightness, b.config.Contrast, b.config.Saturation),
		pix:          make([]byte, video.Width*video.Height*4),
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetTPS(60)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	if b.config.Filter == "linear" {
		ebiten.SetScreenFilterEnabled(true)
	} else {
		ebiten.SetScreenFilterEnabled(false)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers is handled automatically by Ebitengine
func (w *EbitengineWindow) SwapBuffers() {}

// PollEvents returns the events gathered by the last Update
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame converts frame to RGBA; the texture is updated on the next Draw.
func (w *EbitengineWindow) RenderFrame(frame *video.Frame) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	pixels := w.game.processor.ProcessFrame(frame.Pixels[:])
	WriteRGBA(w.game.pix, pixels)
	w.game.dirty = true
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets the function run once per tick (1/60 s)
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// SetStatusFunc sets the provider of the status bar text
func (w *EbitengineWindow) SetStatusFunc(statusFunc func() string) {
	w.statusFunc = statusFunc
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	if ebiten.IsWindowBeingClosed() {
		g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeQuit})
		g.window.running = false
	}
	if !g.window.running {
		return ebiten.Termination
	}

	g.processInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			// Log error but don't stop the game
			log.Printf("[Ebitengine] Emulator update error: %v", err)
		}
	}

	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	if g.frameImage == nil {
		g.frameImage = ebiten.NewImage(video.Width, video.Height)
	}
	if g.dirty {
		g.frameImage.WritePixels(g.pix)
		g.dirty = false
	}

	statusHeight := 0
	if g.showStatus {
		statusHeight = statusBarHeight
	}
	scale, offsetX, offsetY := fitScreen(g.windowWidth, g.windowHeight-statusHeight)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)

	if g.showStatus && g.window != nil && g.window.statusFunc != nil {
		text.Draw(screen, g.window.statusFunc(), basicfont.Face7x13, 4, g.windowHeight-4,
			color.RGBA{R: 0, G: 220, B: 90, A: 255})
	}

	g.drawCount++
	if g.drawCount%1800 == 0 {
		log.Printf("[Ebitengine] Drawing frame %d - %dx%d scaled %.2fx", g.drawCount, video.Width, video.Height, scale)
	}
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// fitScreen returns the largest scale that fits the 280x192 screen in the
// given area with the pixel aspect kept, and the offsets that centre it.
func fitScreen(width, height int) (scale, offsetX, offsetY float64) {
	scaleX := float64(width) / video.Width
	scaleY := float64(height) / video.Height
	scale = scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	if scale <= 0 {
		return 1, 0, 0
	}
	offsetX = (float64(width) - video.Width*scale) / 2
	offsetY = (float64(height) - video.Height*scale) / 2
	return scale, offsetX, offsetY
}

// functionKeys are host commands on the function row.
var functionKeys = map[ebiten.Key]Action{
	ebiten.KeyF1:    ActionPause,
	ebiten.KeyPause: ActionPause,
	ebiten.KeyF3:    ActionScreenshot,
	ebiten.KeyF5:    ActionSaveState,
	ebiten.KeyF8:    ActionMute,
	ebiten.KeyF9:    ActionLoadState,
	ebiten.KeyF10:   ActionReset,
}

var letterKeys = [26]ebiten.Key{
	ebiten.KeyA, ebiten.KeyB, ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF,
	ebiten.KeyG, ebiten.KeyH, ebiten.KeyI, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL,
	ebiten.KeyM, ebiten.KeyN, ebiten.KeyO, ebiten.KeyP, ebiten.KeyQ, ebiten.KeyR,
	ebiten.KeyS, ebiten.KeyT, ebiten.KeyU, ebiten.KeyV, ebiten.KeyW, ebiten.KeyX,
	ebiten.KeyY, ebiten.KeyZ,
}

var specialKeys = []ebiten.Key{
	ebiten.KeyEnter,
	ebiten.KeyNumpadEnter,
	ebiten.KeyBackspace,
	ebiten.KeyTab,
	ebiten.KeyEscape,
	ebiten.KeyArrowUp,
	ebiten.KeyArrowDown,
	ebiten.KeyArrowRight,
	ebiten.KeyArrowLeft,
	ebiten.KeyDelete,
}

// translateSpecialKey maps keys that produce no input character to Apple
// II key codes.
func translateSpecialKey(key ebiten.Key) (uint8, bool) {
	switch key {
	case ebiten.KeyEnter, ebiten.KeyNumpadEnter:
		return input.KeyReturn, true
	case ebiten.KeyBackspace, ebiten.KeyArrowLeft:
		return input.KeyLeft, true
	case ebiten.KeyArrowRight:
		return input.KeyRight, true
	case ebiten.KeyArrowUp:
		return input.KeyUp, true
	case ebiten.KeyArrowDown:
		return input.KeyDown, true
	case ebiten.KeyTab:
		return input.KeyTab, true
	case ebiten.KeyEscape:
		return input.KeyEscape, true
	case ebiten.KeyDelete:
		return input.KeyDelete, true
	}
	return 0, false
}

// processInput turns this tick's keyboard state into events
func (g *EbitengineGame) processInput() {
	var events []InputEvent

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	for key, action := range functionKeys {
		if !inpututil.IsKeyJustPressed(key) {
			continue
		}
		ev := ActionEvent(action)
		if action == ActionSaveState || action == ActionLoadState {
			// Shift selects slot 2.
			if shift {
				ev.Slot = 2
			} else {
				ev.Slot = 1
			}
		}
		events = append(events, ev)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		g.fullscreen = !g.fullscreen
		ebiten.SetFullscreen(g.fullscreen)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.showStatus = !g.showStatus
	}

	switch {
	case ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV):
		if pasted, ok := g.readClipboard(); ok {
			events = append(events, InputEvent{Type: InputEventTypePaste, Text: pasted})
		}
	case ctrl:
		for i, key := range letterKeys {
			if inpututil.IsKeyJustPressed(key) {
				events = append(events, KeyEvent(input.Control(uint8('A'+i))))
			}
		}
	default:
		for _, r := range ebiten.AppendInputChars(nil) {
			if code, ok := input.Translate(r); ok {
				events = append(events, KeyEvent(code))
			}
		}
	}

	for _, key := range specialKeys {
		if inpututil.IsKeyJustPressed(key) {
			if code, ok := translateSpecialKey(key); ok {
				events = append(events, KeyEvent(code))
			}
		}
	}

	g.window.events = append(g.window.events, events...)
}

func (g *EbitengineGame) readClipboard() (string, bool) {
	g.clipboardOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			log.Printf("[Ebitengine] clipboard unavailable: %v", err)
			return
		}
		g.clipboardOK = true
	})
	if !g.clipboardOK {
		return "", false
	}

	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return "", false
	}
	return string(capPasteText(normalizePasteText(data), maxPaste)), true
}
