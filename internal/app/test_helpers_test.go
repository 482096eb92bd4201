package app

import (
	"os"
	"path/filepath"
	"testing"

	"goapple/internal/graphics"
	"goapple/internal/rom"
)

// testConfig returns a headless, silent configuration writing into a
// temporary directory.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	cfg := NewConfig()
	cfg.Video.Backend = "headless"
	cfg.Audio.Enabled = false
	cfg.Paths.SaveStates = filepath.Join(dir, "states")
	cfg.Paths.Screenshots = filepath.Join(dir, "screenshots")
	cfg.Paths.FrameDumps = filepath.Join(dir, "frames")
	cfg.Paths.Config = filepath.Join(dir, "config")
	return cfg
}

func newTestApp(t *testing.T, cfg *Config) *Application {
	t.Helper()
	app, err := NewApplicationWithConfig(cfg, true)
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	t.Cleanup(func() { app.Cleanup() })
	return app
}

func headlessWindow(t *testing.T, app *Application) *graphics.HeadlessWindow {
	t.Helper()
	w, ok := graphics.AsHeadlessWindow(app.GetWindow())
	if !ok {
		t.Fatalf("Expected a headless window, got %T", app.GetWindow())
	}
	return w
}

// runFrames runs the application loop for n more frames.
func runFrames(t *testing.T, app *Application, n uint64) error {
	t.Helper()
	app.SetFrameLimit(app.GetFrameCount() + n)
	return app.Run()
}

// writeSystemROM writes a 12K system ROM filled with fill whose reset
// vector points at $D000.
func writeSystemROM(t *testing.T, fill byte) string {
	t.Helper()
	data := make([]byte, rom.SystemSize)
	for i := range data {
		data[i] = fill
	}
	data[0x2FFC] = 0x00
	data[0x2FFD] = 0xD0

	path := filepath.Join(t.TempDir(), "system.rom")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
