// Package audio moves speaker samples to the host: a live oto player and a
// WAV recorder.
package audio

// Source supplies mono float32 samples in the range [-1, 1]. Read returns
// how many samples were copied into p; missing samples are played as silence.
type Source interface {
	Read(p []float32) int
}

// Output is implemented by the host audio backends.
type Output interface {
	Start()
	Stop()
	Close()
	IsStarted() bool
}

// fill copies from src into p and pads the remainder with silence. It reports
// how many samples were real.
func fill(src Source, p []float32) int {
	n := 0
	if src != nil {
		n = src.Read(p)
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return n
}
