package video

import (
	"errors"
	"fmt"
	"image/color"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSize is the size of a character generator ROM: 256 glyphs of 8 rows.
const FontSize = 256 * GlyphHeight

var ErrFontSize = errors.New("character ROM too small")

// Font holds glyph bitmaps indexed by screen code. Bit 6 of each row is the
// leftmost of the seven pixels.
type Font struct {
	glyphs [256][GlyphHeight]uint8
}

// LoadFont builds a font from a character ROM image. Data beyond FontSize is
// ignored.
func LoadFont(data []byte) (*Font, error) {
	if len(data) < FontSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrFontSize, len(data), FontSize)
	}

	f := &Font{}
	for i := range f.glyphs {
		copy(f.glyphs[i][:], data[i*GlyphHeight:(i+1)*GlyphHeight])
	}
	return f, nil
}

// Glyph returns the bitmap drawn for a screen code. Inverse and flashing
// codes use the normal-mode glyph of the same character; the renderer applies
// the inversion.
func (f *Font) Glyph(code uint8) [GlyphHeight]uint8 {
	if code < 0x80 {
		code = 0x80 | code&0x3F
	}
	return f.glyphs[code]
}

// Bytes returns the font as a character ROM image.
func (f *Font) Bytes() []byte {
	out := make([]byte, 0, FontSize)
	for i := range f.glyphs {
		out = append(out, f.glyphs[i][:]...)
	}
	return out
}

// ScreenToASCII returns the character a screen code displays. The machine
// shows a 64 character upper case set in every mode.
func ScreenToASCII(code uint8) byte {
	c := code & 0x3F
	if c < 0x20 {
		c += 0x40
	}
	return c
}

// fallbackRows picks which rows of a 13 pixel basicfont cell become the
// eight glyph rows. The last entry is merged with the row after it so the
// baseline survives.
var fallbackRows = [GlyphHeight]int{2, 3, 4, 5, 6, 7, 8, 9}

// FallbackFont renders a glyph set from basicfont.Face7x13 for use when no
// character ROM is available.
func FallbackFont() *Font {
	face := basicfont.Face7x13
	f := &Font{}

	for i := range f.glyphs {
		r := rune(ScreenToASCII(uint8(i)))
		dr, mask, maskp, _, ok := face.Glyph(fixed.P(0, face.Ascent), r)
		if !ok {
			continue
		}

		lit := func(x, y int) bool {
			if y >= dr.Dy() || x >= dr.Dx() {
				return false
			}
			a := color.AlphaModel.Convert(mask.At(maskp.X+x, maskp.Y+y)).(color.Alpha)
			return a.A >= 0x80
		}

		for row, src := range fallbackRows {
			var bits uint8
			for x := 0; x < GlyphWidth-1; x++ {
				on := lit(x, src)
				if row == GlyphHeight-1 {
					on = on || lit(x, src+1)
				}
				if on {
					bits |= 1 << (6 - x)
				}
			}
			f.glyphs[i][row] = bits
		}
	}
	return f
}
