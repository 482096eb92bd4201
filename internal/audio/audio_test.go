package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

type sliceSource struct {
	data []float32
}

func (s *sliceSource) Read(p []float32) int {
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n
}

func TestFill_PadsWithSilence(t *testing.T) {
	src := &sliceSource{data: []float32{0.25, -0.25}}
	p := []float32{9, 9, 9, 9}

	if n := fill(src, p); n != 2 {
		t.Errorf("Expected 2 real samples, got %d", n)
	}
	want := []float32{0.25, -0.25, 0, 0}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], p[i])
		}
	}
}

func TestFill_NilSource(t *testing.T) {
	p := []float32{1, 1}
	if n := fill(nil, p); n != 0 || p[0] != 0 || p[1] != 0 {
		t.Errorf("Expected silence from nil source, got n=%d %v", n, p)
	}
}

func TestToPCM16_Clips(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{2, 32767},
		{-3, -32767},
		{0.5, 16383},
	}

	for _, tt := range tests {
		if got := toPCM16(tt.in); got != tt.want {
			t.Errorf("toPCM16(%f): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestRecorder_WritesReadableWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	rec, err := NewRecorder(path, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Write([]float32{0, 0.5, -0.5}); err != nil {
		t.Fatal(err)
	}
	if err := rec.Write([]float32{1, -1}); err != nil {
		t.Fatal(err)
	}
	if rec.Samples() != 5 {
		t.Errorf("Expected 5 samples, got %d", rec.Samples())
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Write([]float32{0}); err == nil {
		t.Error("Expected write after close to fail")
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Expected second close to be a no-op, got %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("recorded file is not a valid wav")
	}
	if dec.SampleRate != 22050 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("Unexpected format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 16383, -16383, 32767, -32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(buf.Data))
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], buf.Data[i])
		}
	}
}

func TestNewRecorder_BadPath(t *testing.T) {
	if _, err := NewRecorder(filepath.Join(t.TempDir(), "missing", "out.wav"), 44100); err == nil {
		t.Error("Expected error for unwritable path")
	}
}
