package cpu

import (
	"testing"
)

// BenchmarkTick runs a tight countdown loop through the tick state machine.
func BenchmarkTick(b *testing.B) {
	memory := NewMockMemory()
	c := New(memory)
	c.PC = 0x0600
	memory.SetBytes(0x0600,
		0xA2, 0x00, // LDX #$00
		0xE8,             // INX
		0xD0, 0xFD,       // BNE -3
		0x4C, 0x00, 0x06, // JMP $0600
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Tick()
	}
}

func BenchmarkLookup(b *testing.B) {
	Init()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Lookup(uint8(i))
	}
}
