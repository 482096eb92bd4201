// Package memory implements the 64 KiB address space and the soft-switch
// handler fabric of the Apple II.
package memory

import (
	"errors"
	"fmt"
)

// Size is the number of addressable bytes.
const Size = 0x10000

// DefaultFill is the power-on content of every byte (NOP).
const DefaultFill = 0xEA

var (
	ErrNoMatcher     = errors.New("handler has no address matcher")
	ErrNoOperations  = errors.New("handler has neither OnRead nor OnWrite")
	ErrEmptyRange    = errors.New("range start is after range end")
	ErrImageTooLarge = errors.New("image does not fit in the address space")
)

// Matcher selects the addresses a handler claims.
type Matcher interface {
	Match(address uint16) bool
	// Pages reports which 256-byte pages may contain matching addresses.
	Pages() []uint8
}

// Range claims the inclusive span Start..End.
type Range struct {
	Start, End uint16
}

func (r Range) Match(address uint16) bool {
	return address >= r.Start && address <= r.End
}

func (r Range) Pages() []uint8 {
	pages := make([]uint8, 0, int(r.End>>8)-int(r.Start>>8)+1)
	for p := int(r.Start >> 8); p <= int(r.End>>8); p++ {
		pages = append(pages, uint8(p))
	}
	return pages
}

func (r Range) String() string {
	return fmt.Sprintf("$%04X-$%04X", r.Start, r.End)
}

// Exact claims a single address.
func Exact(address uint16) Range {
	return Range{Start: address, End: address}
}

// Predicate claims every address for which the function returns true.
type Predicate func(address uint16) bool

func (p Predicate) Match(address uint16) bool { return p(address) }

func (p Predicate) Pages() []uint8 {
	pages := make([]uint8, 256)
	for i := range pages {
		pages[i] = uint8(i)
	}
	return pages
}

// Handler intercepts bus accesses for the addresses its matcher claims.
//
// OnRead may synthesise a value; returning false falls through to storage.
// OnWrite observes a write; returning true suppresses the storage write.
type Handler struct {
	Name    string
	Match   Matcher
	OnRead  func(address uint16) (uint8, bool)
	OnWrite func(address uint16, value uint8) bool
}

// Memory is the flat address space plus installed device handlers.
type Memory struct {
	data     [Size]uint8
	handlers []Handler

	// claimed marks pages with at least one handler so unclaimed accesses
	// skip the handler scan.
	claimed [256]bool
}

// New creates a memory with every byte set to fill.
func New(fill uint8) *Memory {
	m := &Memory{}
	m.Fill(fill)
	return m
}

// Fill sets every byte of storage to value.
func (m *Memory) Fill(value uint8) {
	for i := range m.data {
		m.data[i] = value
	}
}

// Install registers a device handler. Handlers are consulted in install order.
func (m *Memory) Install(h Handler) error {
	if h.Match == nil {
		return fmt.Errorf("install %q: %w", h.Name, ErrNoMatcher)
	}
	if h.OnRead == nil && h.OnWrite == nil {
		return fmt.Errorf("install %q: %w", h.Name, ErrNoOperations)
	}
	if r, ok := h.Match.(Range); ok && r.Start > r.End {
		return fmt.Errorf("install %q %v: %w", h.Name, r, ErrEmptyRange)
	}

	m.handlers = append(m.handlers, h)
	for _, p := range h.Match.Pages() {
		m.claimed[p] = true
	}
	return nil
}

// Handlers returns the names of installed handlers in dispatch order.
func (m *Memory) Handlers() []string {
	names := make([]string, len(m.handlers))
	for i, h := range m.handlers {
		names[i] = h.Name
	}
	return names
}

// Read returns the byte at address, giving device handlers the first say.
func (m *Memory) Read(address uint16) uint8 {
	if m.claimed[address>>8] {
		for i := range m.handlers {
			h := &m.handlers[i]
			if h.OnRead == nil || !h.Match.Match(address) {
				continue
			}
			if v, ok := h.OnRead(address); ok {
				return v
			}
		}
	}
	return m.data[address]
}

// Write stores value at address unless a device handler suppresses it. Every
// matching write handler observes the access.
func (m *Memory) Write(address uint16, value uint8) {
	if m.claimed[address>>8] {
		suppressed := false
		for i := range m.handlers {
			h := &m.handlers[i]
			if h.OnWrite == nil || !h.Match.Match(address) {
				continue
			}
			if h.OnWrite(address, value) {
				suppressed = true
			}
		}
		if suppressed {
			return
		}
	}
	m.data[address] = value
}

// Poke writes storage directly, bypassing handlers.
func (m *Memory) Poke(address uint16, value uint8) {
	m.data[address] = value
}

// Peek reads storage directly, bypassing handlers.
func (m *Memory) Peek(address uint16) uint8 {
	return m.data[address]
}

// Load copies data into storage starting at origin, bypassing handlers.
func (m *Memory) Load(origin uint16, data []byte) error {
	if int(origin)+len(data) > Size {
		return fmt.Errorf("load %d bytes at $%04X: %w", len(data), origin, ErrImageTooLarge)
	}
	copy(m.data[origin:], data)
	return nil
}

// Image returns a copy of storage.
func (m *Memory) Image() []byte {
	out := make([]byte, Size)
	copy(out, m.data[:])
	return out
}

// SetImage replaces storage with a previously captured image.
func (m *Memory) SetImage(image []byte) error {
	if len(image) != Size {
		return fmt.Errorf("memory image is %d bytes, want %d", len(image), Size)
	}
	copy(m.data[:], image)
	return nil
}
