package graphics

// VideoProcessor adjusts the brightness, contrast and saturation of ARGB
// frames before display. A zero value in any setting means 1.0.
type VideoProcessor struct {
	brightness float32
	contrast   float32
	saturation float32

	buffer []uint32
}

// NewVideoProcessor creates a new video processor
func NewVideoProcessor(brightness, contrast, saturation float32) *VideoProcessor {
	vp := &VideoProcessor{}
	vp.SetBrightness(brightness)
	vp.SetContrast(contrast)
	vp.SetSaturation(saturation)
	return vp
}

// Identity reports whether processing leaves frames unchanged.
func (vp *VideoProcessor) Identity() bool {
	return vp.brightness == 1.0 && vp.contrast == 1.0 && vp.saturation == 1.0
}

// ProcessFrame applies video effects to a frame buffer. The input is
// returned as is when no effect is active; otherwise the result lives in a
// buffer reused by the next call.
func (vp *VideoProcessor) ProcessFrame(frameBuffer []uint32) []uint32 {
	if vp.Identity() {
		return frameBuffer
	}

	if len(vp.buffer) != len(frameBuffer) {
		vp.buffer = make([]uint32, len(frameBuffer))
	}
	processed := vp.buffer

	for i, pixel := range frameBuffer {
		alpha := pixel & 0xFF000000
		r := float32((pixel >> 16) & 0xFF)
		g := float32((pixel >> 8) & 0xFF)
		b := float32(pixel & 0xFF)

		r *= vp.brightness
		g *= vp.brightness
		b *= vp.brightness

		r = ((r/255.0-0.5)*vp.contrast + 0.5) * 255.0
		g = ((g/255.0-0.5)*vp.contrast + 0.5) * 255.0
		b = ((b/255.0-0.5)*vp.contrast + 0.5) * 255.0

		if vp.saturation != 1.0 {
			// Blend toward Rec. 601 luma; above 1.0 this pushes away from grey.
			y := 0.299*r + 0.587*g + 0.114*b
			r = y + (r-y)*vp.saturation
			g = y + (g-y)*vp.saturation
			b = y + (b-y)*vp.saturation
		}

		r = clamp(r, 0, 255)
		g = clamp(g, 0, 255)
		b = clamp(b, 0, 255)

		processed[i] = alpha | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	}

	return processed
}

// WriteRGBA converts ARGB pixels to the byte order of image.RGBA.Pix.
func WriteRGBA(pix []byte, pixels []uint32) {
	for i, p := range pixels {
		o := i * 4
		pix[o] = uint8(p >> 16)
		pix[o+1] = uint8(p >> 8)
		pix[o+2] = uint8(p)
		pix[o+3] = uint8(p >> 24)
	}
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

// SetBrightness updates the brightness value
func (vp *VideoProcessor) SetBrightness(brightness float32) {
	vp.brightness = orOne(brightness)
}

// SetContrast updates the contrast value
func (vp *VideoProcessor) SetContrast(contrast float32) {
	vp.contrast = orOne(contrast)
}

// SetSaturation updates the saturation value
func (vp *VideoProcessor) SetSaturation(saturation float32) {
	vp.saturation = orOne(saturation)
}

func orOne(v float32) float32 {
	if v <= 0 {
		return 1.0
	}
	return v
}
