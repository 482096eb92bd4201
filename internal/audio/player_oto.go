//go:build !headless

package audio

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// Player streams a Source through oto. Read runs on oto's goroutine; it owns
// sampleBuf and shares only the atomically stored source.
type Player struct {
	ctx       *oto.Context
	player    *oto.Player
	source    atomic.Pointer[Source]
	sampleBuf []float32
	underruns atomic.Uint64
	started   bool
	mutex     sync.Mutex
}

// NewPlayer opens the host audio device at sampleRate, mono float32.
func NewPlayer(sampleRate int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &Player{ctx: ctx, sampleBuf: make([]float32, 4096)}, nil
}

// Attach connects the player to a sample source and prepares the oto player.
func (p *Player) Attach(src Source) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.setSource(src)
	if p.player == nil {
		p.player = p.ctx.NewPlayer(p)
	}
}

func (p *Player) setSource(src Source) {
	p.source.Store(&src)
}

// Read implements io.Reader for oto.
func (p *Player) Read(b []byte) (int, error) {
	numSamples := len(b) / 4
	if numSamples == 0 {
		return 0, nil
	}
	if len(p.sampleBuf) < numSamples {
		p.sampleBuf = make([]float32, numSamples)
	}
	samples := p.sampleBuf[:numSamples]

	var src Source
	if s := p.source.Load(); s != nil {
		src = *s
	}
	if fill(src, samples) < numSamples {
		p.underruns.Add(1)
	}

	copy(b, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), numSamples*4))
	return numSamples * 4, nil
}

// Underruns counts reads that had to be padded with silence.
func (p *Player) Underruns() uint64 {
	return p.underruns.Load()
}

func (p *Player) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

func (p *Player) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started && p.player != nil {
		p.player.Pause()
		p.started = false
	}
}

func (p *Player) Close() {
	p.Stop()
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
}

func (p *Player) IsStarted() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.started
}
