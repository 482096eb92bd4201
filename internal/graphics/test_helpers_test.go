package graphics

import (
	"testing"

	"goapple/internal/video"
)

type screenMemory [0x10000]uint8

func (m *screenMemory) Peek(address uint16) uint8 {
	return m[address]
}

// renderText returns a text-mode frame showing lines from the top row.
func renderText(t *testing.T, lines ...string) *video.Frame {
	t.Helper()
	mem := &screenMemory{}
	for row := 0; row < video.Rows; row++ {
		for col := 0; col < video.Columns; col++ {
			mem[video.TextAddress(video.TextPage1, col, row)] = 0xA0
		}
	}
	for row, line := range lines {
		for col := 0; col < len(line) && col < video.Columns; col++ {
			mem[video.TextAddress(video.TextPage1, col, row)] = line[col] | 0x80
		}
	}
	return video.NewRenderer(nil).Render(mem, video.DefaultSwitches())
}
