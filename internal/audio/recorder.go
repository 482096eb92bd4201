package audio

import (
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	recordBitDepth = 16
	// wavFormatPCM is the WAVE_FORMAT_PCM audio format tag.
	wavFormatPCM = 1
)

// Recorder writes mono 16-bit PCM to a WAV file. Samples are encoded as they
// arrive; the header is patched with the final length on Close.
type Recorder struct {
	mu       sync.Mutex
	filename string
	file     *os.File
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	written  int
	closed   bool
}

// NewRecorder creates filename and prepares it for sampleRate audio.
func NewRecorder(filename string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}

	return &Recorder{
		filename: filename,
		file:     f,
		enc:      wav.NewEncoder(f, sampleRate, recordBitDepth, 1, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: recordBitDepth,
		},
	}, nil
}

// Write appends samples in [-1, 1]; values outside are clipped.
func (r *Recorder) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder: %s already closed", r.filename)
	}
	if len(samples) == 0 {
		return nil
	}

	r.buf.Data = r.buf.Data[:0]
	for _, v := range samples {
		r.buf.Data = append(r.buf.Data, toPCM16(v))
	}
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	r.written += len(samples)
	return nil
}

// Samples returns the number of samples written so far.
func (r *Recorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Close finalises the WAV header and closes the file.
func (r *Recorder) Close() (rerr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	defer func() {
		if err := r.file.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("recorder: %w", err)
		}
	}()

	if err := r.enc.Close(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return nil
}

func toPCM16(v float32) int {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int(v * 32767)
}
