// Package speaker models the Apple II 1-bit speaker: every access to $C030
// flips the cone, and the resulting square edges are turned into PCM samples.
package speaker

import (
	"sync"
)

const (
	DefaultSampleRate = 44100
	DefaultVolume     = 0.5
	// DefaultClockHz is the CPU clock implied by 17050 cycles per 60 Hz frame.
	DefaultClockHz = 17050 * 60

	// holdSeconds is how long the cone holds full excursion after the last
	// edge before it relaxes toward the centre.
	holdSeconds = 0.05
	decayFactor = 0.995
)

// Speaker records cone toggles and synthesises samples frame by frame. The
// emulation goroutine calls Toggle and EndFrame; the audio goroutine calls
// Read.
type Speaker struct {
	mu sync.Mutex

	sampleRate      int
	cyclesPerSample float64
	volume          float32
	muted           bool

	level      bool
	amplitude  float32
	sinceEdge  int
	holdLength int

	edges      []uint64
	nextSample float64 // cycle position of the next output sample
	toggles    uint64

	ring          []float32
	ringRead      int
	ringCount     int
	droppedFrames uint64

	scratch []float32
}

// Config sets the output format.
type Config struct {
	SampleRate int
	ClockHz    float64
	Volume     float32
}

// New creates a speaker. A zero SampleRate or ClockHz takes the default; a
// Volume outside [0,1] becomes DefaultVolume, and 0 is silent.
func New(cfg Config) *Speaker {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.ClockHz <= 0 {
		cfg.ClockHz = DefaultClockHz
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		cfg.Volume = DefaultVolume
	}

	return &Speaker{
		sampleRate:      cfg.SampleRate,
		cyclesPerSample: cfg.ClockHz / float64(cfg.SampleRate),
		volume:          cfg.Volume,
		holdLength:      int(holdSeconds * float64(cfg.SampleRate)),
		edges:           make([]uint64, 0, 256),
		ring:            make([]float32, max(cfg.SampleRate/2, 1)),
		scratch:         make([]float32, 0, cfg.SampleRate/30),
	}
}

// SampleRate returns the output rate in Hz.
func (s *Speaker) SampleRate() int {
	return s.sampleRate
}

// Toggle flips the cone at the given CPU cycle.
func (s *Speaker) Toggle(cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, cycle)
	s.toggles++
}

// Toggles returns how many times the cone has moved.
func (s *Speaker) Toggles() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggles
}

// SetMuted silences output without discarding edges.
func (s *Speaker) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

// Sync moves the sample clock to cycle, dropping any pending edges. It is
// used after reset or a state restore, when the cycle counter jumps.
func (s *Speaker) Sync(cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSample = float64(cycle)
	s.edges = s.edges[:0]
}

// EndFrame renders every sample whose time falls before cycle now. The
// returned slice is valid until the next call.
func (s *Speaker) EndFrame(now uint64) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.scratch[:0]
	if float64(now)+s.cyclesPerSample < s.nextSample {
		// The cycle counter went backwards.
		s.nextSample = float64(now)
	}

	edge := 0
	for s.nextSample < float64(now) {
		t := uint64(s.nextSample)
		for edge < len(s.edges) && s.edges[edge] <= t {
			s.level = !s.level
			s.sinceEdge = 0
			s.amplitude = 1
			edge++
		}

		v := s.amplitude * s.volume
		if !s.level {
			v = -v
		}
		if s.muted {
			v = 0
		}
		out = append(out, v)

		s.sinceEdge++
		if s.sinceEdge > s.holdLength {
			s.amplitude *= decayFactor
		}
		s.nextSample += s.cyclesPerSample
	}

	for ; edge < len(s.edges); edge++ {
		s.level = !s.level
	}
	s.edges = s.edges[:0]

	s.push(out)
	s.scratch = out
	return out
}

// push appends samples to the ring, overwriting the oldest when full.
func (s *Speaker) push(samples []float32) {
	size := len(s.ring)
	for _, v := range samples {
		if s.ringCount == size {
			s.ringRead = (s.ringRead + 1) % size
			s.ringCount--
			s.droppedFrames++
		}
		s.ring[(s.ringRead+s.ringCount)%size] = v
		s.ringCount++
	}
}

// Read drains up to len(p) buffered samples and returns how many were copied.
func (s *Speaker) Read(p []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	size := len(s.ring)
	for n < len(p) && s.ringCount > 0 {
		p[n] = s.ring[s.ringRead]
		s.ringRead = (s.ringRead + 1) % size
		s.ringCount--
		n++
	}
	return n
}

// Buffered returns the number of samples waiting to be read.
func (s *Speaker) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ringCount
}

// Dropped returns the number of samples discarded because the reader fell
// behind.
func (s *Speaker) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedFrames
}

// Reset returns the cone to rest and clears buffered audio.
func (s *Speaker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = false
	s.amplitude = 0
	s.sinceEdge = 0
	s.edges = s.edges[:0]
	s.nextSample = 0
	s.toggles = 0
	s.ringRead = 0
	s.ringCount = 0
}
