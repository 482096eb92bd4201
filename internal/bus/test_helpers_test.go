package bus

import (
	"testing"

	"goapple/internal/rom"
)

// newTestBus builds a machine running code placed at $F000 with the reset
// vector pointing at it.
func newTestBus(t *testing.T, cfg Config, code ...byte) *Bus {
	t.Helper()
	img, err := rom.NewBuilder("test", 0xF000, 0x1000, 0xEA).
		At(0xF000, code...).
		WithResetVector(0xF000).
		Build()
	if err != nil {
		t.Fatalf("Failed to build test image: %v", err)
	}

	b := New(cfg)
	if err := b.LoadImage(img); err != nil {
		t.Fatalf("Failed to load test image: %v", err)
	}
	b.Reset()
	return b
}

// stepN executes n whole instructions.
func stepN(t *testing.T, b *Bus, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := b.StepInstruction(); err != nil {
			t.Fatalf("instruction %d: %v", i, err)
		}
	}
}
