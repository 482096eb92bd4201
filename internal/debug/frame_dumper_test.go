package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goapple/internal/video"

	"golang.org/x/image/bmp"
)

func renderTestFrame(t *testing.T) *video.Frame {
	t.Helper()
	mem := &testMemory{}
	for row := 0; row < video.Rows; row++ {
		for col := 0; col < video.Columns; col++ {
			mem[video.TextAddress(video.TextPage1, col, row)] = 0xA0
		}
	}
	for i, ch := range []byte("DUMP") {
		mem[video.TextAddress(video.TextPage1, i, 0)] = ch | 0x80
	}
	return video.NewRenderer(nil).Render(mem, video.DefaultSwitches())
}

func TestFrameDumper_DisabledWritesNothing(t *testing.T) {
	fd := NewFrameDumper(t.TempDir())
	fd.SetDumpInterval(1)

	path, err := fd.DumpFrame(renderTestFrame(t), 1)
	if err != nil || path != "" {
		t.Errorf("Expected no dump while disabled, got %q %v", path, err)
	}
}

func TestFrameDumper_SelectedFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	fd := NewFrameDumper(dir)
	if err := fd.Enable(); err != nil {
		t.Fatal(err)
	}
	fd.SetFrames(3, 5)

	frame := renderTestFrame(t)
	var written []string
	for n := uint64(1); n <= 6; n++ {
		path, err := fd.DumpFrame(frame, n)
		if err != nil {
			t.Fatal(err)
		}
		if path != "" {
			written = append(written, filepath.Base(path))
		}
	}

	if len(written) != 2 || written[0] != "frame_000003.bmp" || written[1] != "frame_000005.bmp" {
		t.Fatalf("Unexpected dumps %v", written)
	}

	f, err := os.Open(filepath.Join(dir, "frame_000003.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != video.Width || b.Dy() != video.Height {
		t.Errorf("Unexpected image size %v", b)
	}

	text, err := os.ReadFile(filepath.Join(dir, "frame_000003.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "\nDUMP\n") {
		t.Errorf("Expected screen text in dump, got %q", text)
	}
}

func TestFrameDumper_IntervalAndLimit(t *testing.T) {
	fd := NewFrameDumper(t.TempDir())
	if err := fd.Enable(); err != nil {
		t.Fatal(err)
	}
	fd.SetDumpInterval(2)
	fd.SetMaxDumps(2)
	fd.SetWriteText(false)

	frame := renderTestFrame(t)
	for n := uint64(1); n <= 10; n++ {
		if _, err := fd.DumpFrame(frame, n); err != nil {
			t.Fatal(err)
		}
	}
	if fd.Dumps() != 2 {
		t.Errorf("Expected 2 dumps, got %d", fd.Dumps())
	}
}
