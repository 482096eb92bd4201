// Package app provides emulator integration for the main application.
package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"goapple/internal/bus"
	"goapple/internal/cpu"
)

// Emulator manages the emulation loop and timing
type Emulator struct {
	bus    *bus.Bus
	config *Config

	targetFrameTime time.Duration

	// Performance monitoring
	actualFrameTime  time.Duration
	emulationTime    time.Duration
	frameCount       uint64
	lastUpdateTime   time.Time
	startTime        time.Time
	frameTimes       *CircularTimingBuffer
	emulationTimes   *CircularTimingBuffer
	droppedFrames    uint64
	lastStopReported error

	isRunning bool
}

// NewEmulator creates a new emulator instance running one machine frame
// per update.
func NewEmulator(b *bus.Bus, config *Config) *Emulator {
	rate := config.Emulation.FrameRate
	if rate <= 0 {
		rate = 60
	}

	e := &Emulator{
		bus:             b,
		config:          config,
		targetFrameTime: time.Duration(float64(time.Second) / rate),
		frameTimes:      NewCircularTimingBuffer(180),
		emulationTimes:  NewCircularTimingBuffer(180),
	}
	e.Reset()
	return e
}

// Reset clears timing statistics. The machine itself is reset through the bus.
func (e *Emulator) Reset() {
	e.actualFrameTime = 0
	e.emulationTime = 0
	e.frameCount = 0
	e.droppedFrames = 0
	e.lastStopReported = nil
	e.lastUpdateTime = time.Time{}
	e.startTime = time.Now()
	e.frameTimes.Reset()
	e.emulationTimes.Reset()
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
	e.lastUpdateTime = time.Time{}
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// Update runs exactly one frame. It returns the error that stopped the
// machine; once stopped the emulator stops running frames until Start.
func (e *Emulator) Update() error {
	if !e.isRunning {
		return nil
	}

	now := time.Now()
	if !e.lastUpdateTime.IsZero() {
		e.actualFrameTime = now.Sub(e.lastUpdateTime)
		e.frameTimes.Add(e.actualFrameTime)
		if e.actualFrameTime > 2*e.targetFrameTime {
			e.droppedFrames++
		}
	}
	e.lastUpdateTime = now

	err := e.bus.RunFrame()
	e.emulationTime = time.Since(now)
	e.emulationTimes.Add(e.emulationTime)
	e.frameCount++

	if err != nil {
		e.isRunning = false
		if e.lastStopReported == nil || e.lastStopReported.Error() != err.Error() {
			log.Printf("[EMULATOR] machine stopped after %d frames: %v", e.bus.GetFrameCount(), err)
			e.lastStopReported = err
		}
		return err
	}
	return nil
}

// StepFrame runs a single frame regardless of the running state, for
// debugging while paused.
func (e *Emulator) StepFrame() error {
	running := e.isRunning
	e.isRunning = true
	err := e.Update()
	e.isRunning = running && err == nil
	return err
}

// StepInstruction executes a single CPU instruction
func (e *Emulator) StepInstruction() (cpu.State, error) {
	return e.bus.StepInstruction()
}

// Halted reports whether the machine stopped on BRK rather than hanging.
func (e *Emulator) Halted() bool {
	return errors.Is(e.bus.Stopped(), bus.ErrHalted)
}

// GetFrameCount returns the number of frames run by this emulator
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetCycleCount returns the machine cycle count
func (e *Emulator) GetCycleCount() uint64 {
	return e.bus.GetCycleCount()
}

// GetEmulationTime returns the time spent emulating the last frame
func (e *Emulator) GetEmulationTime() time.Duration {
	return e.emulationTime
}

// GetActualFrameTime returns the wall time between the last two updates
func (e *Emulator) GetActualFrameTime() time.Duration {
	return e.actualFrameTime
}

// GetAverageFrameTime returns the average wall time between updates
func (e *Emulator) GetAverageFrameTime() time.Duration {
	return e.frameTimes.GetAverage()
}

// GetTargetFrameTime returns the target frame time
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetEmulationSpeed returns the emulation speed as a multiple of real time
func (e *Emulator) GetEmulationSpeed() float64 {
	avg := e.frameTimes.GetAverage()
	if avg == 0 {
		return 1.0
	}
	return float64(e.targetFrameTime) / float64(avg)
}

// GetCPUUsage returns the share of the frame budget spent emulating
func (e *Emulator) GetCPUUsage() float64 {
	avg := e.emulationTimes.GetAverage()
	if e.targetFrameTime == 0 {
		return 0
	}
	return float64(avg) / float64(e.targetFrameTime) * 100
}

// IsRunning returns whether the emulator is running
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// GetUptime returns time since the last reset
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.startTime)
}

// SetTargetFrameRate sets the target frame rate
func (e *Emulator) SetTargetFrameRate(fps float64) {
	if fps > 0 {
		e.targetFrameTime = time.Duration(float64(time.Second) / fps)
	}
}

// GetCPUState returns the current CPU state
func (e *Emulator) GetCPUState() bus.CPUState {
	return e.bus.GetCPUState()
}

// EmulatorStats contains performance statistics
type EmulatorStats struct {
	FrameCount       uint64        `json:"frame_count"`
	CycleCount       uint64        `json:"cycle_count"`
	DroppedFrames    uint64        `json:"dropped_frames"`
	TargetFrameTime  time.Duration `json:"target_frame_time"`
	AverageFrameTime time.Duration `json:"average_frame_time"`
	FrameJitter      time.Duration `json:"frame_jitter"`
	EmulationTime    time.Duration `json:"emulation_time"`
	EmulationSpeed   float64       `json:"emulation_speed"`
	CPUUsage         float64       `json:"cpu_usage"`
}

// GetPerformanceStats returns current performance statistics
func (e *Emulator) GetPerformanceStats() EmulatorStats {
	return EmulatorStats{
		FrameCount:       e.frameCount,
		CycleCount:       e.bus.GetCycleCount(),
		DroppedFrames:    e.droppedFrames,
		TargetFrameTime:  e.targetFrameTime,
		AverageFrameTime: e.frameTimes.GetAverage(),
		FrameJitter:      e.frameTimes.GetVariance(),
		EmulationTime:    e.emulationTimes.GetAverage(),
		EmulationSpeed:   e.GetEmulationSpeed(),
		CPUUsage:         e.GetCPUUsage(),
	}
}

func (s EmulatorStats) String() string {
	return fmt.Sprintf("frames=%d cycles=%d speed=%.2fx cpu=%.1f%% frame=%v jitter=%v dropped=%d",
		s.FrameCount, s.CycleCount, s.EmulationSpeed, s.CPUUsage,
		s.AverageFrameTime.Round(time.Microsecond), s.FrameJitter.Round(time.Microsecond), s.DroppedFrames)
}

// Cleanup stops the emulator
func (e *Emulator) Cleanup() error {
	e.Stop()
	return nil
}

// CircularTimingBuffer keeps the most recent durations for averaging
type CircularTimingBuffer struct {
	buffer   []time.Duration
	index    int
	size     int
	capacity int
	sum      time.Duration
}

// NewCircularTimingBuffer creates a new circular timing buffer
func NewCircularTimingBuffer(capacity int) *CircularTimingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &CircularTimingBuffer{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add adds a duration, evicting the oldest once full
func (ctb *CircularTimingBuffer) Add(duration time.Duration) {
	if ctb.size == ctb.capacity {
		ctb.sum -= ctb.buffer[ctb.index]
	} else {
		ctb.size++
	}
	ctb.buffer[ctb.index] = duration
	ctb.sum += duration
	ctb.index = (ctb.index + 1) % ctb.capacity
}

// Len returns the number of stored durations
func (ctb *CircularTimingBuffer) Len() int {
	return ctb.size
}

// GetAverage returns the average duration
func (ctb *CircularTimingBuffer) GetAverage() time.Duration {
	if ctb.size == 0 {
		return 0
	}
	return ctb.sum / time.Duration(ctb.size)
}

// GetVariance returns the mean absolute deviation from the average
func (ctb *CircularTimingBuffer) GetVariance() time.Duration {
	if ctb.size < 2 {
		return 0
	}
	avg := ctb.GetAverage()
	var dev time.Duration
	for i := 0; i < ctb.size; i++ {
		d := ctb.buffer[i] - avg
		if d < 0 {
			d = -d
		}
		dev += d
	}
	return dev / time.Duration(ctb.size)
}

// Reset clears the buffer
func (ctb *CircularTimingBuffer) Reset() {
	for i := range ctb.buffer {
		ctb.buffer[i] = 0
	}
	ctb.index = 0
	ctb.size = 0
	ctb.sum = 0
}
