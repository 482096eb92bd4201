// Package rom loads system ROMs, character ROMs and raw program images.
package rom

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// SystemSize is an Apple II or II+ ROM set ($D000-$FFFF).
	SystemSize = 12288
	// ExtendedSize is an Apple IIe ROM set ($C000-$FFFF).
	ExtendedSize = 16384
	// CharacterSize is the part of a character ROM the video generator uses.
	CharacterSize = 2048

	SystemOrigin   uint16 = 0xD000
	ExtendedOrigin uint16 = 0xC000
)

var (
	ErrInvalidSize = errors.New("invalid ROM size")
	ErrBadAddress  = errors.New("invalid load address")
)

// Image is a block of bytes destined for a fixed address.
type Image struct {
	Name   string
	Origin uint16
	Data   []byte
}

// End returns the last address the image occupies.
func (img Image) End() uint16 {
	if len(img.Data) == 0 {
		return img.Origin
	}
	return img.Origin + uint16(len(img.Data)-1)
}

func (img Image) String() string {
	return fmt.Sprintf("%s $%04X-$%04X (%d bytes)", img.Name, img.Origin, img.End(), len(img.Data))
}

// Word returns the little-endian word stored at address, which must lie
// inside the image.
func (img Image) Word(address uint16) (uint16, bool) {
	if address < img.Origin || int(address-img.Origin)+1 >= len(img.Data) {
		return 0, false
	}
	i := int(address - img.Origin)
	return uint16(img.Data[i]) | uint16(img.Data[i+1])<<8, true
}

// LoadSystem reads a system ROM. A 12 KiB file maps at $D000 and a 16 KiB
// file at $C000; any other size is rejected.
func LoadSystem(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("system ROM: %w", err)
	}
	return SystemFromBytes(path, data)
}

// SystemFromBytes validates an in-memory system ROM.
func SystemFromBytes(name string, data []byte) (Image, error) {
	switch len(data) {
	case SystemSize:
		return Image{Name: name, Origin: SystemOrigin, Data: data}, nil
	case ExtendedSize:
		return Image{Name: name, Origin: ExtendedOrigin, Data: data}, nil
	}
	return Image{}, fmt.Errorf("system ROM %s: %w: %d bytes, expected %d or %d",
		name, ErrInvalidSize, len(data), SystemSize, ExtendedSize)
}

// LoadCharacter reads a character generator ROM and returns its first
// CharacterSize bytes.
func LoadCharacter(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("character ROM: %w", err)
	}
	if len(data) < CharacterSize {
		return nil, fmt.Errorf("character ROM %s: %w: %d bytes, need %d",
			path, ErrInvalidSize, len(data), CharacterSize)
	}
	return data[:CharacterSize], nil
}

// LoadProgram reads a raw binary to be placed at origin.
func LoadProgram(path string, origin uint16) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("program: %w", err)
	}
	if len(data) == 0 || int(origin)+len(data) > 0x10000 {
		return Image{}, fmt.Errorf("program %s: %w: %d bytes at $%04X",
			path, ErrInvalidSize, len(data), origin)
	}
	return Image{Name: path, Origin: origin, Data: data}, nil
}

// ParseLoadSpec splits a "path@address" argument. The address is hex, with
// an optional $ or 0x prefix.
func ParseLoadSpec(spec string) (string, uint16, error) {
	i := strings.LastIndexByte(spec, '@')
	if i <= 0 || i == len(spec)-1 {
		return "", 0, fmt.Errorf("%w: %q, want path@address", ErrBadAddress, spec)
	}

	path, addr := spec[:i], spec[i+1:]
	addr = strings.TrimPrefix(addr, "$")
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")

	v, err := strconv.ParseUint(addr, 16, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrBadAddress, spec[i+1:])
	}
	return path, uint16(v), nil
}
