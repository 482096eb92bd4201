// Package main implements the goapple Apple II emulator executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"goapple/internal/app"
	"goapple/internal/graphics"
	"goapple/internal/statsview"
	"goapple/internal/version"
)

// stringList is a flag that may be given more than once.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var loads stringList
	var (
		romFile     = flag.String("rom", "", "System ROM (12K at $D000 or 16K at $C000); default is the built-in monitor")
		charFile    = flag.String("charrom", "", "Character generator ROM (2K)")
		configFile  = flag.String("config", "", "Path to configuration file")
		backend     = flag.String("backend", "", "Display backend: ebitengine, terminal or headless")
		nogui       = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		frames      = flag.Uint64("frames", 0, "Stop after this many frames (0 runs until closed)")
		record      = flag.String("record", "", "Record the speaker to a WAV file")
		trace       = flag.String("trace", "", "Write an instruction trace to this file (- for the log)")
		policy      = flag.String("policy", "", "Invalid opcode policy: halt, ignore or skip")
		haltOnBreak = flag.Bool("halt-on-brk", false, "Stop the machine when BRK executes")
		stats       = flag.Bool("statsview", false, "Serve runtime statistics over HTTP")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		help        = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Var(&loads, "load", "Load a raw binary, path@hexaddr (repeatable)")
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVersion {
		version.PrintBuildInfo(os.Stdout)
		os.Exit(0)
	}

	log.Printf("%s starting", version.GetDetailedVersion())

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}
	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		log.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v", configPath, err)
		config = app.NewConfig()
	}

	// Flags override the file only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rom":
			config.ROMs.System = *romFile
		case "charrom":
			config.ROMs.Character = *charFile
		case "backend":
			config.Video.Backend = *backend
		case "record":
			config.Audio.RecordPath = *record
		case "trace":
			config.Debug.CPUTracing = true
			if *trace != "-" {
				config.Debug.TraceFile = *trace
			}
		case "policy":
			config.Emulation.InvalidOpcodePolicy = *policy
		case "halt-on-brk":
			config.Emulation.HaltOnBreak = *haltOnBreak
		case "debug":
			config.Debug.EnableLogging = *debug
			config.Debug.ShowFPS = *debug
		}
	})
	if len(loads) > 0 {
		config.ROMs.Programs = append(config.ROMs.Programs, loads...)
	}
	if *nogui {
		config.Video.Backend = string(graphics.BackendHeadless)
	}

	if *stats {
		if err := statsview.Launch(config.Debug.StatsViewAddr, os.Stderr); err != nil {
			log.Printf("[APP_WARNING] %v", err)
		}
	}

	application, err := app.NewApplicationWithConfig(config, *nogui)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	application.SetFrameLimit(*frames)

	setupGracefulShutdown(application)

	runErr := application.Run()

	if application.IsHeadless() {
		if w, ok := graphics.AsHeadlessWindow(application.GetWindow()); ok {
			fmt.Println(w.ScreenText())
		}
	}
	printStatistics(application)

	if err := application.Cleanup(); err != nil {
		log.Printf("Application cleanup error: %v", err)
	}

	if runErr != nil {
		log.Printf("Emulator stopped: %v", runErr)
		os.Exit(1)
	}
	if stop := application.StopError(); stop != nil {
		log.Printf("Machine stopped: %v", stop)
	}
}

// setupGracefulShutdown stops the main loop on the first interrupt so the
// terminal and recordings are restored; a second interrupt exits at once.
func setupGracefulShutdown(application *app.Application) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Printf("Interrupt received, shutting down...")
		application.Stop()
		<-c
		os.Exit(130)
	}()
}

func printStatistics(application *app.Application) {
	fmt.Fprintf(os.Stderr, "Frames: %d  Cycles: %d  Uptime: %v  FPS: %.1f\n",
		application.GetFrameCount(),
		application.GetBus().GetCycleCount(),
		application.GetUptime().Round(time.Millisecond),
		application.GetFPS())
}

func printUsage() {
	fmt.Println("goapple - Apple II emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  goapple [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  goapple                                  # Built-in monitor in a window")
	fmt.Println("  goapple -rom apple2plus.rom -charrom char.rom")
	fmt.Println("  goapple -backend terminal                # Text screen in the terminal")
	fmt.Println("  goapple -nogui -frames 120 -load demo.bin@0300")
	fmt.Println()
	fmt.Println("CONTROLS:")
	fmt.Println("  F1 / Pause        - Pause")
	fmt.Println("  F3                - Screenshot")
	fmt.Println("  F5 / Shift+F5     - Save state slot 1 / 2")
	fmt.Println("  F9 / Shift+F9     - Load state slot 1 / 2")
	fmt.Println("  F8                - Mute")
	fmt.Println("  F10               - Reset")
	fmt.Println("  F11               - Toggle fullscreen")
	fmt.Println("  F12               - Toggle status bar")
	fmt.Println("  Ctrl+Shift+V      - Paste")
	fmt.Println("  Ctrl-]            - Quit (terminal backend)")
	fmt.Println()
	fmt.Printf("Config file: %s\n", app.GetDefaultConfigPath())
}
