package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"goapple/internal/video"

	"golang.org/x/image/bmp"
)

// FrameDumper writes rendered frames to disk as BMP images, with a text
// file holding the screen contents next to each one.
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	dumpCount    int
	maxDumps     int
	dumpInterval uint64 // dump every N frames
	frames       map[uint64]bool
	writeText    bool
}

// NewFrameDumper creates a disabled dumper writing into outputDir.
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		maxDumps:     10,
		dumpInterval: 0,
		writeText:    true,
	}
}

// Enable activates frame dumping and creates the output directory.
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create frame dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping.
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// SetMaxDumps sets the maximum number of frames to dump; 0 means no limit.
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval dumps every interval-th frame; 0 turns interval dumps off.
func (fd *FrameDumper) SetDumpInterval(interval uint64) {
	fd.dumpInterval = interval
}

// SetFrames selects specific frame numbers to dump in addition to the
// interval.
func (fd *FrameDumper) SetFrames(frames ...uint64) {
	fd.frames = make(map[uint64]bool, len(frames))
	for _, f := range frames {
		fd.frames[f] = true
	}
}

// SetWriteText controls the .txt companion files.
func (fd *FrameDumper) SetWriteText(enable bool) {
	fd.writeText = enable
}

// Dumps returns the number of frames written.
func (fd *FrameDumper) Dumps() int {
	return fd.dumpCount
}

// ShouldDump reports whether frameNum is selected for dumping.
func (fd *FrameDumper) ShouldDump(frameNum uint64) bool {
	if !fd.dumpEnabled {
		return false
	}
	if fd.maxDumps > 0 && fd.dumpCount >= fd.maxDumps {
		return false
	}
	if fd.frames[frameNum] {
		return true
	}
	return fd.dumpInterval > 0 && frameNum%fd.dumpInterval == 0
}

// DumpFrame writes frame if frameNum is selected. It returns the BMP path, or
// "" when nothing was written.
func (fd *FrameDumper) DumpFrame(frame *video.Frame, frameNum uint64) (string, error) {
	if !fd.ShouldDump(frameNum) {
		return "", nil
	}

	base := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d", frameNum))
	path := base + ".bmp"
	if err := WriteBMP(path, frame); err != nil {
		return "", err
	}

	if fd.writeText {
		if err := fd.writeScreenText(base+".txt", frame, frameNum); err != nil {
			return "", err
		}
	}

	fd.dumpCount++
	return path, nil
}

func (fd *FrameDumper) writeScreenText(path string, frame *video.Frame, frameNum uint64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame text file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(file, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "Dimensions: %dx%d\n", video.Width, video.Height)
	fmt.Fprintf(file, "===================\n")
	fmt.Fprintln(file, frame.Text())
	return nil
}

// WriteBMP encodes frame as a 24-bit BMP file.
func WriteBMP(path string, frame *video.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := bmp.Encode(file, frame.Image()); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}
