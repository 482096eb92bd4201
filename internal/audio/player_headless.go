//go:build headless

package audio

import "errors"

// ErrNoAudio is returned by NewPlayer in headless builds.
var ErrNoAudio = errors.New("audio: built without audio support")

// Player is a no-op in headless builds.
type Player struct{}

func NewPlayer(sampleRate int) (*Player, error) {
	return nil, ErrNoAudio
}

func (p *Player) Attach(src Source) {}
func (p *Player) Underruns() uint64 { return 0 }
func (p *Player) Start() {}
func (p *Player) Stop() {}
func (p *Player) Close() {}
func (p *Player) IsStarted() bool { return false }
