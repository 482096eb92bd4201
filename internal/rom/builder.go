package rom

import (
	"fmt"
)

// Builder assembles an image from code fragments placed at absolute
// addresses.
type Builder struct {
	image Image
	err   error
}

// NewBuilder starts an image of size bytes at origin, filled with fill.
func NewBuilder(name string, origin uint16, size int, fill byte) *Builder {
	b := &Builder{image: Image{Name: name, Origin: origin}}
	if size <= 0 || int(origin)+size > 0x10000 {
		b.err = fmt.Errorf("%w: %d bytes at $%04X", ErrInvalidSize, size, origin)
		return b
	}
	b.image.Data = make([]byte, size)
	for i := range b.image.Data {
		b.image.Data[i] = fill
	}
	return b
}

// At places bytes starting at address.
func (b *Builder) At(address uint16, data ...byte) *Builder {
	if b.err != nil {
		return b
	}
	start := int(address) - int(b.image.Origin)
	if start < 0 || start+len(data) > len(b.image.Data) {
		b.err = fmt.Errorf("%w: $%04X+%d outside %s", ErrBadAddress, address, len(data), b.image)
		return b
	}
	copy(b.image.Data[start:], data)
	return b
}

// Word places a little-endian word at address.
func (b *Builder) Word(address, value uint16) *Builder {
	return b.At(address, uint8(value), uint8(value>>8))
}

// WithResetVector sets $FFFC.
func (b *Builder) WithResetVector(address uint16) *Builder {
	return b.Word(0xFFFC, address)
}

// WithNMIVector sets $FFFA.
func (b *Builder) WithNMIVector(address uint16) *Builder {
	return b.Word(0xFFFA, address)
}

// WithIRQVector sets $FFFE.
func (b *Builder) WithIRQVector(address uint16) *Builder {
	return b.Word(0xFFFE, address)
}

// Build returns the image or the first placement error.
func (b *Builder) Build() (Image, error) {
	if b.err != nil {
		return Image{}, b.err
	}
	return b.image, nil
}
