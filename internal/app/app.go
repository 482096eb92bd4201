// Package app implements the Apple II emulator application shell: it builds
// the machine from the configuration, drives it one frame at a time and
// moves frames, samples and keys between the machine and the host.
package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"goapple/internal/audio"
	"goapple/internal/bus"
	"goapple/internal/debug"
	"goapple/internal/graphics"
	"goapple/internal/rom"
	"goapple/internal/video"
)

// WindowTitle is the base title of the emulator window.
const WindowTitle = "goapple - Apple II Emulator"

// Application represents the main emulator application
type Application struct {
	// Core emulation components
	bus *bus.Bus

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window

	// Audio output; both optional
	player   *audio.Player
	recorder *audio.Recorder

	// Debugging
	tracer    *debug.Tracer
	traceFile *os.File

	// Application state
	config   *Config
	emulator *Emulator
	states   *StateManager

	// Control flags
	running     atomic.Bool
	paused      bool
	muted       bool
	initialized bool
	headless    bool
	frameLimit  uint64
	stopErr     error

	// Performance tracking
	frameCount          uint64
	startTime           time.Time
	lastFPSTime         time.Time
	frameCountAtLastFPS uint64
	currentFPS          float64
	slowFrames          uint64

	// ROM management
	romPath string
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates an application from a configuration file
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates an application from a configuration file
// with optional headless mode. A configuration that cannot be loaded is
// reported and replaced by the defaults.
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
			config = NewConfig()
		}
	}
	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates an application from an already loaded
// configuration and loads the configured ROMs.
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validate", Err: err}
	}

	app := &Application{
		config:      config,
		headless:    headless || config.Video.Backend == string(graphics.BackendHeadless),
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	if err := app.initializeComponents(); err != nil {
		app.Cleanup()
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	if err := app.LoadROM(config.ROMs.System); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	var font *video.Font
	if path := app.config.ROMs.Character; path != "" {
		data, err := rom.LoadCharacter(path)
		if err != nil {
			return err
		}
		if font, err = video.LoadFont(data); err != nil {
			return fmt.Errorf("character ROM %s: %w", path, err)
		}
		log.Printf("[APP] character ROM %s", path)
	}

	app.bus = bus.New(app.config.BusConfig(font))
	if fg := app.config.Video.Foreground; fg != "" {
		if c, err := ParseColor(fg); err == nil {
			app.bus.Renderer.SetColors(c, video.ColorBlack)
		}
	}

	if err := app.initializeGraphicsBackend(); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %w", err)
	}

	if err := app.initializeAudio(); err != nil {
		return err
	}

	if err := app.initializeDebug(); err != nil {
		return err
	}

	app.emulator = NewEmulator(app.bus, app.config)
	app.states = NewStateManager(app.config.Paths.SaveStates, app.config.Emulation.SaveStateSlots)

	app.initialized = true
	return nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	if app.headless {
		backendType = graphics.BackendHeadless
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	graphicsConfig := graphics.Config{
		WindowTitle:  WindowTitle,
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		StatusBar:    app.config.Window.StatusBar,
		Filter:       app.config.Video.Filter,
		Brightness:   app.config.Video.Brightness,
		Contrast:     app.config.Video.Contrast,
		Saturation:   app.config.Video.Saturation,
		DumpDir:      app.config.Paths.FrameDumps,
		DumpFrames:   app.config.Debug.DumpFrames,
		DumpInterval: app.config.Debug.DumpInterval,
		Headless:     app.headless,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// No display or built without Ebitengine: keep running headless.
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}
		log.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode", err)
		app.graphicsBackend = graphics.NewHeadlessBackend()
		app.headless = true
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow(
		graphicsConfig.WindowTitle,
		graphicsConfig.WindowWidth,
		graphicsConfig.WindowHeight,
	)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	return nil
}

// initializeAudio opens the host device and the WAV recorder. A missing
// audio device is not fatal.
func (app *Application) initializeAudio() error {
	if path := app.config.Audio.RecordPath; path != "" {
		rec, err := audio.NewRecorder(path, app.bus.Speaker.SampleRate())
		if err != nil {
			return err
		}
		app.recorder = rec
		log.Printf("[AUDIO] recording speaker to %s", path)
	}

	if !app.config.Audio.Enabled || app.headless {
		return nil
	}

	player, err := audio.NewPlayer(app.bus.Speaker.SampleRate())
	if err != nil {
		log.Printf("[AUDIO] no audio output: %v", err)
		return nil
	}
	player.Attach(app.bus.Speaker)
	app.player = player
	return nil
}

// initializeDebug sets up tracing and memory watchpoints.
func (app *Application) initializeDebug() error {
	cfg := app.config.Debug

	if cfg.CPUTracing {
		var out io.Writer
		if cfg.TraceFile != "" {
			f, err := os.Create(cfg.TraceFile)
			if err != nil {
				return fmt.Errorf("trace file: %w", err)
			}
			app.traceFile = f
			out = f
		}
		app.tracer = debug.NewTracer(app.bus.Memory, out)
		app.tracer.SetLoopThreshold(cfg.LoopThreshold)
		app.bus.SetTracer(app.tracer)
		log.Printf("[DEBUG] CPU tracing enabled")
	}

	for _, addr := range cfg.Watchpoints {
		app.bus.AddMemoryWatchpoint(addr)
	}
	if len(cfg.Watchpoints) > 0 {
		app.bus.EnableWatchpointLogging(true)
		log.Printf("[DEBUG] watching %d addresses", len(cfg.Watchpoints))
	}
	return nil
}

// LoadROM loads a system ROM, or the built-in monitor when path is empty,
// followed by the configured program images, then resets the machine.
func (app *Application) LoadROM(path string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	var img rom.Image
	var err error
	if path == "" {
		img = rom.Monitor()
	} else if img, err = rom.LoadSystem(path); err != nil {
		return &ApplicationError{Component: "rom", Operation: "load system ROM", Err: err}
	}
	if err := app.bus.LoadImage(img); err != nil {
		return &ApplicationError{Component: "rom", Operation: "load system ROM", Err: err}
	}

	for _, spec := range app.config.ROMs.Programs {
		file, origin, err := rom.ParseLoadSpec(spec)
		if err != nil {
			return &ApplicationError{Component: "rom", Operation: "parse program", Err: err}
		}
		prog, err := rom.LoadProgram(file, origin)
		if err != nil {
			return &ApplicationError{Component: "rom", Operation: "load program", Err: err}
		}
		if err := app.bus.LoadImage(prog); err != nil {
			return &ApplicationError{Component: "rom", Operation: "load program", Err: err}
		}
	}

	app.romPath = path
	app.config.ROMs.System = path
	app.bus.Reset()
	app.emulator.Reset()

	if app.window != nil {
		name := "Monitor"
		if path != "" {
			name = filepath.Base(path)
		}
		app.window.SetTitle(fmt.Sprintf("goapple - %s", name))
	}

	app.emulator.Start()
	return nil
}

// SetFrameLimit stops Run after n frames; 0 runs until closed.
func (app *Application) SetFrameLimit(n uint64) {
	app.frameLimit = n
}

// Run starts the main application loop. It returns when the window is
// closed, Stop is called or the frame limit is reached. A machine that hung
// on an invalid opcode in headless mode is reported as an error.
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	app.running.Store(true)
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()
	if app.player != nil {
		app.player.Start()
	}

	if app.config.Debug.EnableLogging {
		log.Printf("[APP_DEBUG] Starting emulator with %s backend...", app.graphicsBackend.GetName())
	}

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetStatusFunc(app.StatusLine)
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			app.frame()
			if !app.running.Load() {
				// Ends the Ebitengine loop on the next tick.
				return app.window.Cleanup()
			}
			return nil
		})
		return ebitengineWindow.Run()
	}

	next := time.Now()
	for app.running.Load() {
		app.frame()

		if app.headless {
			continue
		}
		next = next.Add(app.emulator.GetTargetFrameTime())
		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		} else {
			next = time.Now()
		}
	}

	if app.config.Debug.EnableLogging {
		log.Printf("[APP_DEBUG] Emulator main loop ended after %d frames", app.frameCount)
	}
	if errors.Is(app.stopErr, bus.ErrCPUHung) {
		return app.stopErr
	}
	return nil
}

// frame runs one iteration of the main loop.
func (app *Application) frame() {
	frameStart := time.Now()

	if err := app.processInput(); err != nil {
		log.Printf("[APP_ERROR] Input processing error: %v", err)
	}

	app.updateEmulator()

	if err := app.render(); err != nil {
		log.Printf("[APP_ERROR] Render error: %v", err)
	}

	app.updatePerformanceMetrics(frameStart)

	if app.window != nil && app.window.ShouldClose() {
		app.Stop()
	}
	if app.frameLimit > 0 && app.frameCount >= app.frameLimit {
		app.Stop()
	}
}

// updateEmulator runs a frame unless paused and feeds the recorder.
func (app *Application) updateEmulator() {
	if app.paused || !app.emulator.IsRunning() {
		return
	}

	err := app.emulator.Update()

	if app.recorder != nil {
		if werr := app.recorder.Write(app.bus.AudioSamples()); werr != nil {
			log.Printf("[AUDIO] %v", werr)
		}
	}

	if err == nil {
		return
	}
	app.stopErr = err
	switch {
	case app.headless:
		app.Stop()
	case app.config.Emulation.PauseOnHalt:
		app.paused = true
		log.Printf("[APP] paused: %v (F10 resets)", err)
	}
}

// processInput processes input events from the graphics backend
func (app *Application) processInput() error {
	if app.window == nil {
		return nil
	}

	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return nil

		case graphics.InputEventTypeKey:
			app.bus.Keyboard.Press(event.Code)

		case graphics.InputEventTypePaste:
			n := app.bus.Keyboard.Type(event.Text)
			if app.config.Debug.EnableLogging {
				log.Printf("[INPUT] pasted %d keys", n)
			}

		case graphics.InputEventTypeAction:
			if err := app.handleAction(event); err != nil {
				log.Printf("[APP_ERROR] %s: %v", event.Action, err)
			}
		}
	}
	return nil
}

// handleAction runs a host command.
func (app *Application) handleAction(event graphics.InputEvent) error {
	switch event.Action {
	case graphics.ActionReset:
		app.Reset()
	case graphics.ActionSaveState:
		return app.SaveState(event.Slot)
	case graphics.ActionLoadState:
		return app.LoadState(event.Slot)
	case graphics.ActionPause:
		app.TogglePause()
	case graphics.ActionMute:
		app.ToggleMute()
	case graphics.ActionScreenshot:
		_, err := app.Screenshot()
		return err
	}
	return nil
}

// render renders the current frame
func (app *Application) render() error {
	if app.window == nil {
		return nil
	}

	if err := app.window.RenderFrame(app.bus.GetFrame()); err != nil {
		return fmt.Errorf("failed to render frame: %w", err)
	}

	app.window.SwapBuffers()
	return nil
}

// updatePerformanceMetrics updates the FPS figure once a second
func (app *Application) updatePerformanceMetrics(frameStart time.Time) {
	now := time.Now()
	app.frameCount++

	if frameTime := now.Sub(frameStart); frameTime > 2*app.emulator.GetTargetFrameTime() {
		app.slowFrames++
		if app.config.Debug.ShowFPS {
			log.Printf("[FPS_WARNING] Slow frame detected: %.2fms (target: %.2fms)",
				float64(frameTime.Microseconds())/1000,
				float64(app.emulator.GetTargetFrameTime().Microseconds())/1000)
		}
	}

	elapsed := now.Sub(app.lastFPSTime)
	if elapsed < time.Second {
		return
	}
	app.currentFPS = float64(app.frameCount-app.frameCountAtLastFPS) / elapsed.Seconds()
	app.frameCountAtLastFPS = app.frameCount
	app.lastFPSTime = now

	if app.config.Debug.ShowFPS {
		log.Printf("[FPS] Current: %.1f FPS | Frame: %d | %s",
			app.currentFPS, app.frameCount, app.emulator.GetPerformanceStats())
	}
}

// StatusLine is the text shown under the screen.
func (app *Application) StatusLine() string {
	state := "RUN"
	switch {
	case app.bus.Stopped() != nil:
		state = "STOP"
	case app.paused:
		state = "PAUSE"
	}
	line := fmt.Sprintf("%-5s PC=$%04X %s %4.1f FPS", state, app.bus.CPU.PC, app.bus.Video, app.currentFPS)
	if app.muted {
		line += " MUTE"
	}
	return line
}

// Stop stops the application
func (app *Application) Stop() {
	app.running.Store(false)
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator
func (app *Application) Resume() {
	app.paused = false
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	app.paused = !app.paused
	log.Printf("[APP] paused=%t", app.paused)
}

// ToggleMute silences or restores the speaker
func (app *Application) ToggleMute() {
	app.muted = !app.muted
	app.bus.Speaker.SetMuted(app.muted)
}

// SaveState saves the machine to a slot
func (app *Application) SaveState(slot int) error {
	return app.states.SaveState(app.bus, slot, app.romPath)
}

// LoadState restores the machine from a slot and resumes it
func (app *Application) LoadState(slot int) error {
	if err := app.states.LoadState(app.bus, slot, app.romPath); err != nil {
		return err
	}
	app.stopErr = nil
	app.paused = false
	app.emulator.Start()
	return nil
}

// Reset presses the Reset key: the CPU restarts through $FFFC and a stopped
// machine runs again.
func (app *Application) Reset() {
	app.bus.WarmReset()
	app.stopErr = nil
	app.paused = false
	app.emulator.Start()
	log.Printf("[APP] reset, PC=$%04X", app.bus.CPU.PC)
}

// Screenshot writes the current frame as a BMP into the screenshot
// directory and returns its path.
func (app *Application) Screenshot() (string, error) {
	dir := app.config.Paths.Screenshots
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("goapple_%s_%06d.bmp",
		time.Now().Format("20060102_150405"), app.bus.GetFrameCount()))
	if err := debug.WriteBMP(path, app.bus.GetFrame()); err != nil {
		return "", err
	}
	log.Printf("[APP] screenshot %s", path)
	return path, nil
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// IsHeadless reports whether frames go to the headless backend
func (app *Application) IsHeadless() bool {
	return app.headless
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path, "" for the monitor
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetBus returns the bus for direct access (useful for testing and advanced control)
func (app *Application) GetBus() *bus.Bus {
	return app.bus
}

// GetWindow returns the output window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// GetEmulator returns the frame loop
func (app *Application) GetEmulator() *Emulator {
	return app.emulator
}

// StopError returns the error that stopped the machine, if any
func (app *Application) StopError() error {
	return app.stopErr
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Debug.EnableLogging {
		log.Printf("[APP_DEBUG] Cleaning up application resources...")
	}

	var lastErr error
	report := func(what string, err error) {
		if err != nil {
			lastErr = err
			log.Printf("[APP_ERROR] %s cleanup error: %v", what, err)
		}
	}

	if app.player != nil {
		app.player.Close()
		app.player = nil
	}
	if app.recorder != nil {
		report("Recorder", app.recorder.Close())
		app.recorder = nil
	}
	if app.traceFile != nil {
		report("Trace file", app.traceFile.Close())
		app.traceFile = nil
	}
	if app.states != nil {
		report("State manager", app.states.Cleanup())
	}
	if app.emulator != nil {
		report("Emulator", app.emulator.Cleanup())
	}
	if app.window != nil {
		report("Window", app.window.Cleanup())
	}
	if app.graphicsBackend != nil {
		report("Graphics backend", app.graphicsBackend.Cleanup())
	}

	app.initialized = false
	return lastErr
}
