// Package app provides configuration management and the application shell
// of the Apple II emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"goapple/internal/bus"
	"goapple/internal/video"
)

// minSampleRate is the lowest audio rate accepted from a config file.
const minSampleRate = 8000

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Audio     AudioConfig     `json:"audio"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`
	ROMs      ROMConfig       `json:"roms"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Scale      int  `json:"scale"` // 280x192 multiplier
	StatusBar  bool `json:"status_bar"`
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	VSync      bool    `json:"vsync"`
	Filter     string  `json:"filter"`  // "nearest", "linear"
	Backend    string  `json:"backend"` // "ebitengine", "headless", "terminal"
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
	Saturation float32 `json:"saturation"`
	Foreground string  `json:"foreground"` // text/hi-res colour, "#RRGGBB"
}

// AudioConfig contains audio configuration
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sample_rate"`
	Volume     float32 `json:"volume"`
	RecordPath string  `json:"record_path"` // WAV capture of the speaker, "" for none
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	FrameRate           float64 `json:"frame_rate"`
	CyclesPerFrame      uint64  `json:"cycles_per_frame"`
	InvalidOpcodePolicy string  `json:"invalid_opcode_policy"` // "halt", "ignore", "skip"
	HangThreshold       int     `json:"hang_threshold"`
	HaltOnBreak         bool    `json:"halt_on_break"`
	SaveStateSlots      int     `json:"save_state_slots"`
	PauseOnHalt         bool    `json:"pause_on_halt"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	ShowFPS         bool     `json:"show_fps"`
	EnableLogging   bool     `json:"enable_logging"`
	CPUTracing      bool     `json:"cpu_tracing"`
	TraceFile       string   `json:"trace_file"`
	LoopThreshold   int      `json:"loop_threshold"`
	DumpFrames      []uint64 `json:"dump_frames"`
	DumpInterval    uint64   `json:"dump_interval"`
	Watchpoints     []uint16 `json:"watchpoints"`
	StatsViewAddr   string   `json:"statsview_addr"`
	MemoryDebugging bool     `json:"memory_debugging"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	SaveStates  string `json:"save_states"`
	Screenshots string `json:"screenshots"`
	FrameDumps  string `json:"frame_dumps"`
	Config      string `json:"config"`
}

// ROMConfig selects the images loaded at power on
type ROMConfig struct {
	System    string   `json:"system"`    // 12K or 16K system ROM, "" for the built-in monitor
	Character string   `json:"character"` // 2K character generator, "" for the built-in font
	Programs  []string `json:"programs"`  // "path@addr" raw binaries
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	config := &Config{
		Window: WindowConfig{
			Width:     560,
			Height:    400,
			Scale:     2,
			StatusBar: true,
		},
		Video: VideoConfig{
			VSync:      true,
			Filter:     "nearest",
			Backend:    "ebitengine",
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
			Foreground: "#00FF00",
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
			Volume:     0.5,
		},
		Emulation: EmulationConfig{
			FrameRate:           60.0,
			CyclesPerFrame:      bus.DefaultCyclesPerFrame,
			InvalidOpcodePolicy: bus.PolicyHalt,
			HangThreshold:       bus.DefaultHangThreshold,
			SaveStateSlots:      10,
			PauseOnHalt:         true,
		},
		Debug: DebugConfig{
			LoopThreshold: 100,
			StatsViewAddr: "localhost:18066",
		},
		Paths: PathsConfig{
			SaveStates:  "./states",
			Screenshots: "./screenshots",
			FrameDumps:  "./frames",
			Config:      "./config",
		},
		loaded: false,
	}

	return config
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

// Validate checks the configuration, fixing out of range values that have a
// sensible default and rejecting the rest.
func (c *Config) Validate() error {
	return c.validate()
}

// validate validates the configuration values
func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ConfigError{Field: "window", Value: fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height), Err: fmt.Errorf("invalid window dimensions")}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	switch c.Video.Backend {
	case "ebitengine", "headless", "terminal":
	case "":
		c.Video.Backend = "ebitengine"
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: fmt.Errorf("unknown backend")}
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}

	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}

	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}

	if c.Video.Foreground != "" {
		if _, err := ParseColor(c.Video.Foreground); err != nil {
			return &ConfigError{Field: "video.foreground", Value: c.Video.Foreground, Err: err}
		}
	}

	if c.Audio.SampleRate < minSampleRate {
		c.Audio.SampleRate = 44100
	}

	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		c.Audio.Volume = 0.5
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0
	}

	if c.Emulation.CyclesPerFrame == 0 {
		c.Emulation.CyclesPerFrame = bus.DefaultCyclesPerFrame
	}

	switch c.Emulation.InvalidOpcodePolicy {
	case bus.PolicyHalt, bus.PolicyIgnore, bus.PolicySkip:
	case "":
		c.Emulation.InvalidOpcodePolicy = bus.PolicyHalt
	default:
		return &ConfigError{Field: "emulation.invalid_opcode_policy", Value: c.Emulation.InvalidOpcodePolicy, Err: fmt.Errorf("want halt, ignore or skip")}
	}

	if c.Emulation.HangThreshold <= 0 {
		c.Emulation.HangThreshold = bus.DefaultHangThreshold
	}

	if c.Emulation.SaveStateSlots <= 0 {
		c.Emulation.SaveStateSlots = 10
	}

	if c.Debug.LoopThreshold < 0 {
		c.Debug.LoopThreshold = 0
	}

	return nil
}

// BusConfig translates the emulation settings into a machine configuration.
func (c *Config) BusConfig(font *video.Font) bus.Config {
	return bus.Config{
		CyclesPerFrame: c.Emulation.CyclesPerFrame,
		SampleRate:     c.Audio.SampleRate,
		Volume:         c.Audio.Volume,
		InvalidPolicy:  c.Emulation.InvalidOpcodePolicy,
		HangThreshold:  c.Emulation.HangThreshold,
		HaltOnBreak:    c.Emulation.HaltOnBreak,
		Font:           font,
	}
}

// GetNativeResolution returns the Apple II screen size
func (c *Config) GetNativeResolution() (int, int) {
	return video.Width, video.Height
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	w, h := c.GetNativeResolution()
	return w * c.Window.Scale, h * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded

	return clone
}

// ParseColor parses "#RRGGBB" into an opaque ARGB value.
func ParseColor(s string) (uint32, error) {
	var r, g, b uint8
	if len(s) != 7 || s[0] != '#' {
		return 0, fmt.Errorf("colour %q is not #RRGGBB", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, fmt.Errorf("colour %q: %w", s, err)
	}
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/goapple.json"
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	return "./config"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
