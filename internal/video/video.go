// Package video renders the Apple II display from main memory: 40x24 text,
// 40x48 lo-res, monochrome hi-res and the mixed modes.
package video

import (
	"image"
	"image/color"
	"strings"
)

const (
	Width  = 280
	Height = 192

	Columns     = 40
	Rows        = 24
	GlyphWidth  = 7
	GlyphHeight = 8

	// MixedRows is the number of text rows kept at the bottom in mixed mode.
	MixedRows = 4

	// FlashFrames is how many frames flashing characters hold each phase.
	FlashFrames = 16
)

// Phosphor colours for text and hi-res, in ARGB.
const (
	ColorBlack uint32 = 0xFF000000
	ColorGreen uint32 = 0xFF00FF00
)

// LoResPalette maps the 16 lo-res colour indices to ARGB.
var LoResPalette = [16]uint32{
	0xFF000000, // black
	0xFFDD0033, // magenta
	0xFF000099, // dark blue
	0xFFDD22DD, // purple
	0xFF007722, // dark green
	0xFF555555, // grey
	0xFF2222FF, // medium blue
	0xFF66AAFF, // light blue
	0xFF885500, // brown
	0xFFFF6600, // orange
	0xFFAAAAAA, // grey
	0xFFFF9988, // pink
	0xFF11DD00, // light green
	0xFFFFFF00, // yellow
	0xFF44FF99, // aqua
	0xFFFFFFFF, // white
}

// Peeker reads memory without triggering soft switches.
type Peeker interface {
	Peek(address uint16) uint8
}

// Frame is one rendered screen.
type Frame struct {
	Pixels [Width * Height]uint32

	codes  [Rows][Columns]uint8
	isText [Rows]bool
}

// At returns the ARGB pixel at x, y.
func (f *Frame) At(x, y int) uint32 {
	return f.Pixels[y*Width+x]
}

// Code returns the screen code drawn at a text cell and whether the row was
// drawn as text.
func (f *Frame) Code(col, row int) (uint8, bool) {
	return f.codes[row][col], f.isText[row]
}

// Text returns the text cells as 24 newline separated lines with trailing
// blanks removed. Graphics rows come out empty.
func (f *Frame) Text() string {
	var sb strings.Builder
	for row := 0; row < Rows; row++ {
		if f.isText[row] {
			line := make([]byte, Columns)
			for col, c := range f.codes[row] {
				line[col] = ScreenToASCII(c)
			}
			sb.WriteString(strings.TrimRight(string(line), " "))
		}
		if row < Rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Image converts the frame to an RGBA image.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for i, p := range f.Pixels {
		img.Pix[i*4+0] = uint8(p >> 16)
		img.Pix[i*4+1] = uint8(p >> 8)
		img.Pix[i*4+2] = uint8(p)
		img.Pix[i*4+3] = uint8(p >> 24)
	}
	return img
}

// ARGBToColor converts a packed pixel to a color.RGBA.
func ARGBToColor(p uint32) color.RGBA {
	return color.RGBA{R: uint8(p >> 16), G: uint8(p >> 8), B: uint8(p), A: uint8(p >> 24)}
}

// Renderer draws frames. It keeps the frame counter that drives flashing
// characters.
type Renderer struct {
	font       *Font
	frame      Frame
	frameCount uint64

	foreground uint32
	background uint32
}

// NewRenderer creates a renderer. A nil font selects FallbackFont.
func NewRenderer(font *Font) *Renderer {
	if font == nil {
		font = FallbackFont()
	}
	return &Renderer{
		font:       font,
		foreground: ColorGreen,
		background: ColorBlack,
	}
}

// SetFont replaces the character generator.
func (r *Renderer) SetFont(font *Font) {
	if font != nil {
		r.font = font
	}
}

// SetColors sets the text and hi-res foreground and background.
func (r *Renderer) SetColors(fg, bg uint32) {
	r.foreground = fg
	r.background = bg
}

// GetFrameCount returns the number of frames rendered.
func (r *Renderer) GetFrameCount() uint64 {
	return r.frameCount
}

// SetFrameCount restores the frame counter, keeping the flash phase in step
// after a state load.
func (r *Renderer) SetFrameCount(count uint64) {
	r.frameCount = count
}

// FlashOn reports whether flashing characters are shown inverted in the next
// frame.
func (r *Renderer) FlashOn() bool {
	return (r.frameCount/FlashFrames)%2 == 0
}

// Frame returns the most recently rendered frame.
func (r *Renderer) Frame() *Frame {
	return &r.frame
}

// Render draws one frame of mem in mode sw and advances the frame counter.
// The returned frame is reused by the next call.
func (r *Renderer) Render(mem Peeker, sw Switches) *Frame {
	flash := r.FlashOn()

	textFrom := Rows
	switch {
	case sw.Text:
		textFrom = 0
	case sw.Mixed:
		textFrom = Rows - MixedRows
	}

	graphicsRows := textFrom * GlyphHeight
	if graphicsRows > 0 {
		if sw.HiRes {
			r.renderHiRes(mem, sw.HiResBase(), graphicsRows)
		} else {
			r.renderLoRes(mem, sw.TextBase(), textFrom)
		}
	}

	base := sw.TextBase()
	for row := 0; row < Rows; row++ {
		r.frame.isText[row] = row >= textFrom
		if row < textFrom {
			continue
		}
		for col := 0; col < Columns; col++ {
			code := mem.Peek(TextAddress(base, col, row))
			r.frame.codes[row][col] = code
			r.drawChar(col, row, code, flash)
		}
	}

	r.frameCount++
	return &r.frame
}

func (r *Renderer) drawChar(col, row int, code uint8, flash bool) {
	fg, bg := r.foreground, r.background
	switch {
	case code < 0x40:
		fg, bg = bg, fg
	case code < 0x80 && flash:
		fg, bg = bg, fg
	}

	glyph := r.font.Glyph(code)
	for y := 0; y < GlyphHeight; y++ {
		bits := glyph[y]
		offset := (row*GlyphHeight+y)*Width + col*GlyphWidth
		for x := 0; x < GlyphWidth; x++ {
			if bits&(1<<(6-x)) != 0 {
				r.frame.Pixels[offset+x] = fg
			} else {
				r.frame.Pixels[offset+x] = bg
			}
		}
	}
}

// renderLoRes draws the first rows text rows as lo-res blocks: the low
// nibble of each byte colours the top 7x4 block, the high nibble the bottom.
func (r *Renderer) renderLoRes(mem Peeker, base uint16, rows int) {
	for row := 0; row < rows; row++ {
		for col := 0; col < Columns; col++ {
			v := mem.Peek(TextAddress(base, col, row))
			top := LoResPalette[v&0x0F]
			bottom := LoResPalette[v>>4]
			for y := 0; y < GlyphHeight; y++ {
				c := top
				if y >= GlyphHeight/2 {
					c = bottom
				}
				offset := (row*GlyphHeight+y)*Width + col*GlyphWidth
				for x := 0; x < GlyphWidth; x++ {
					r.frame.Pixels[offset+x] = c
				}
			}
		}
	}
}

// renderHiRes draws scanlines in monochrome. Bit 0 of each byte is the
// leftmost pixel; bit 7 (the colour shift) is ignored.
func (r *Renderer) renderHiRes(mem Peeker, base uint16, lines int) {
	for y := 0; y < lines; y++ {
		offset := y * Width
		for col := 0; col < Columns; col++ {
			v := mem.Peek(HiResAddress(base, col, y))
			for x := 0; x < GlyphWidth; x++ {
				if v&(1<<x) != 0 {
					r.frame.Pixels[offset+col*GlyphWidth+x] = r.foreground
				} else {
					r.frame.Pixels[offset+col*GlyphWidth+x] = r.background
				}
			}
		}
	}
}
