package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"goapple/internal/bus"
)

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid defaults, got %v", err)
	}
	if cfg.Emulation.CyclesPerFrame != bus.DefaultCyclesPerFrame {
		t.Errorf("Expected %d cycles per frame, got %d", bus.DefaultCyclesPerFrame, cfg.Emulation.CyclesPerFrame)
	}
	if cfg.Emulation.InvalidOpcodePolicy != bus.PolicyHalt {
		t.Errorf("Expected halt policy, got %q", cfg.Emulation.InvalidOpcodePolicy)
	}
	if w, h := cfg.GetWindowResolution(); w != 560 || h != 384 {
		t.Errorf("Expected 560x384 at scale 2, got %dx%d", w, h)
	}
}

func TestLoadFromFile_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "goapple.json")

	cfg := NewConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected defaults written to %s: %v", path, err)
	}
	if cfg.IsLoaded() {
		t.Error("A freshly written file should not count as loaded")
	}
	if cfg.GetConfigPath() != path {
		t.Errorf("Expected config path %s, got %s", path, cfg.GetConfigPath())
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goapple.json")

	cfg := NewConfig()
	cfg.Emulation.InvalidOpcodePolicy = bus.PolicySkip
	cfg.Emulation.HaltOnBreak = true
	cfg.ROMs.System = "apple2plus.rom"
	cfg.ROMs.Programs = []string{"demo.bin@0300"}
	cfg.Debug.Watchpoints = []uint16{0x0400, 0xC030}
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatal(err)
	}

	loaded := NewConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if !loaded.IsLoaded() {
		t.Error("Expected IsLoaded after reading an existing file")
	}
	if loaded.Emulation.InvalidOpcodePolicy != bus.PolicySkip || !loaded.Emulation.HaltOnBreak {
		t.Errorf("Emulation settings not restored: %+v", loaded.Emulation)
	}
	if loaded.ROMs.System != "apple2plus.rom" || len(loaded.ROMs.Programs) != 1 {
		t.Errorf("ROM settings not restored: %+v", loaded.ROMs)
	}
	if len(loaded.Debug.Watchpoints) != 2 || loaded.Debug.Watchpoints[1] != 0xC030 {
		t.Errorf("Watchpoints not restored: %v", loaded.Debug.Watchpoints)
	}
}

func TestLoadFromFile_RejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewConfig().LoadFromFile(path); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name:    "unknown policy",
			modify:  func(c *Config) { c.Emulation.InvalidOpcodePolicy = "explode" },
			wantErr: "emulation.invalid_opcode_policy",
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Video.Backend = "sdl" },
			wantErr: "video.backend",
		},
		{
			name:    "bad colour",
			modify:  func(c *Config) { c.Video.Foreground = "green" },
			wantErr: "video.foreground",
		},
		{
			name:    "zero window",
			modify:  func(c *Config) { c.Window.Width = 0 },
			wantErr: "window",
		},
		{
			name: "defaults filled in",
			modify: func(c *Config) {
				c.Emulation.CyclesPerFrame = 0
				c.Emulation.InvalidOpcodePolicy = ""
				c.Emulation.HangThreshold = -1
				c.Audio.Volume = 4
				c.Video.Backend = ""
			},
			check: func(t *testing.T, c *Config) {
				if c.Emulation.CyclesPerFrame != bus.DefaultCyclesPerFrame {
					t.Errorf("cycles per frame = %d", c.Emulation.CyclesPerFrame)
				}
				if c.Emulation.InvalidOpcodePolicy != bus.PolicyHalt {
					t.Errorf("policy = %q", c.Emulation.InvalidOpcodePolicy)
				}
				if c.Emulation.HangThreshold != bus.DefaultHangThreshold {
					t.Errorf("hang threshold = %d", c.Emulation.HangThreshold)
				}
				if c.Audio.Volume != 0.5 {
					t.Errorf("volume = %f", c.Audio.Volume)
				}
				if c.Video.Backend != "ebitengine" {
					t.Errorf("backend = %q", c.Video.Backend)
				}
			},
		},
		{
			name: "audio limits",
			modify: func(c *Config) {
				c.Audio.SampleRate = 1
				c.Audio.Volume = 0
			},
			check: func(t *testing.T, c *Config) {
				if c.Audio.SampleRate != 44100 {
					t.Errorf("sample rate = %d", c.Audio.SampleRate)
				}
				if c.Audio.Volume != 0 {
					t.Errorf("volume 0 should be kept, got %f", c.Audio.Volume)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr != "" {
				var cerr *ConfigError
				if !errors.As(err, &cerr) {
					t.Fatalf("Expected a ConfigError, got %v", err)
				}
				if cerr.Field != tt.wantErr {
					t.Errorf("Expected field %q, got %q", tt.wantErr, cerr.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"#00FF00", 0xFF00FF00, false},
		{"#ffb000", 0xFFFFB000, false},
		{"#000000", 0xFF000000, false},
		{"00FF00", 0, true},
		{"#00FF0", 0, true},
		{"#GG0000", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %08X, want %08X", tt.in, got, tt.want)
		}
	}
}

func TestClone_IsIndependent(t *testing.T) {
	cfg := NewConfig()
	cfg.ROMs.Programs = []string{"a.bin@0300"}

	clone := cfg.Clone()
	clone.ROMs.Programs[0] = "b.bin@0800"
	clone.Emulation.HaltOnBreak = true

	if cfg.ROMs.Programs[0] != "a.bin@0300" {
		t.Error("Clone shares the programs slice")
	}
	if cfg.Emulation.HaltOnBreak {
		t.Error("Clone shares emulation settings")
	}
}

func TestBusConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Emulation.CyclesPerFrame = 1000
	cfg.Emulation.InvalidOpcodePolicy = bus.PolicyIgnore
	cfg.Emulation.HaltOnBreak = true
	cfg.Audio.SampleRate = 22050

	bc := cfg.BusConfig(nil)
	if bc.CyclesPerFrame != 1000 || bc.InvalidPolicy != bus.PolicyIgnore || !bc.HaltOnBreak || bc.SampleRate != 22050 {
		t.Errorf("Unexpected bus config: %+v", bc)
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	base := errors.New("boom")
	err := &ConfigError{Field: "audio", Value: 1, Err: base}
	if !errors.Is(err, base) {
		t.Error("ConfigError should unwrap to its cause")
	}
	if err.Error() != "config error in field 'audio' with value '1': boom" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
