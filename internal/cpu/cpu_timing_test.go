package cpu

import (
	"testing"
)

func TestInstructionCycles(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *CPUTestHelper)
		program  []uint8
		expected int
	}{
		{"LDA_Immediate", nil, []uint8{0xA9, 0x01}, 2},
		{"LDA_Absolute", nil, []uint8{0xAD, 0x00, 0x20}, 4},
		{"LDA_AbsoluteX_SamePage", func(h *CPUTestHelper) { h.CPU.X = 1 }, []uint8{0xBD, 0x00, 0x20}, 4},
		{"LDA_AbsoluteX_PageCross", func(h *CPUTestHelper) { h.CPU.X = 1 }, []uint8{0xBD, 0xFF, 0x20}, 5},
		{"LDA_IndirectY_PageCross", func(h *CPUTestHelper) {
			h.CPU.Y = 0x10
			h.Memory.SetBytes(0x0040, 0xF8, 0x20)
		}, []uint8{0xB1, 0x40}, 6},
		// Stores pay the fixed cost whether or not a page is crossed.
		{"STA_AbsoluteX_PageCross", func(h *CPUTestHelper) { h.CPU.X = 1 }, []uint8{0x9D, 0xFF, 0x20}, 5},
		{"BNE_NotTaken", func(h *CPUTestHelper) { h.CPU.P.SetZero(true) }, []uint8{0xD0, 0x10}, 2},
		{"BNE_Taken", nil, []uint8{0xD0, 0x10}, 3},
		{"BNE_TakenPageCross", nil, []uint8{0xD0, 0x80}, 4},
		{"JSR", nil, []uint8{0x20, 0x00, 0x07}, 6},
		{"BRK", nil, []uint8{0x00}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.Start(0x0600)
			if tt.setup != nil {
				tt.setup(helper)
			}
			helper.LoadProgram(0x0600, tt.program...)

			state, cycles := helper.CPU.Step()
			if state != Running {
				t.Fatalf("Expected RUNNING, got %v", state)
			}
			if cycles != tt.expected {
				t.Errorf("Expected %d cycles, got %d", tt.expected, cycles)
			}
			if helper.CPU.Cycles() != uint64(tt.expected) {
				t.Errorf("Expected cycle counter %d, got %d", tt.expected, helper.CPU.Cycles())
			}
		})
	}
}

// An instruction of N cycles executes on one tick and then counts down N more.
func TestTicksPerInstruction(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.Start(0x0600)
	helper.LoadProgram(0x0600, 0xEA, 0xA9, 0x01, 0x8D, 0x00, 0x20, 0xEA) // NOP, LDA #, STA abs, NOP

	ticks := 0
	for helper.CPU.PC != 0x0607 {
		helper.CPU.Tick()
		ticks++
		if ticks > 100 {
			t.Fatal("program did not finish")
		}
	}

	// NOP(1+2) + LDA(1+2) + STA(1+4), then the final NOP executes on its first tick.
	if ticks != 3+3+5+1 {
		t.Errorf("Expected 12 ticks, got %d", ticks)
	}
}
