package cpu

import (
	"testing"
)

func TestNMI(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.Start(0x0600)
	helper.CPU.P.SetInterrupt(true)
	helper.CPU.P.SetCarry(true)
	helper.Memory.SetBytes(NMIVector, 0x00, 0x09)
	helper.LoadProgram(0x0600, 0xEA)

	helper.CPU.NMI()
	state, cycles := helper.CPU.Step()

	if state != Running || cycles != 7 {
		t.Fatalf("Expected RUNNING in 7 cycles, got %v in %d", state, cycles)
	}
	helper.AssertRegisters(t, "NMI", 0, 0, 0, 0xFC, 0x0900)
	helper.AssertMemory(t, "return high", 0x01FF, 0x06)
	helper.AssertMemory(t, "return low", 0x01FE, 0x00)
	// B is clear on the pushed copy for hardware interrupts.
	helper.AssertMemory(t, "status", 0x01FD, uint8(FlagUnused|FlagInterrupt|FlagCarry))

	// The latch is consumed.
	helper.LoadProgram(0x0900, 0xEA)
	helper.Run(t, 1)
	if helper.CPU.PC != 0x0901 {
		t.Errorf("Expected NMI to be serviced once, PC=0x%04X", helper.CPU.PC)
	}
}

func TestIRQMaskedByInterruptFlag(t *testing.T) {
	helper := NewCPUTestHelper()
	helper.Start(0x0600)
	helper.Memory.SetBytes(IRQVector, 0x00, 0x0A)
	helper.LoadProgram(0x0600, 0x58, 0xEA) // CLI, NOP
	helper.CPU.P.SetInterrupt(true)
	helper.CPU.IRQ(true)

	helper.Run(t, 1) // CLI; the line is ignored while I was set
	if helper.CPU.PC != 0x0601 {
		t.Fatalf("Expected CLI to execute first, PC=0x%04X", helper.CPU.PC)
	}

	helper.Run(t, 1)
	if helper.CPU.PC != 0x0A00 {
		t.Errorf("Expected IRQ to vector to 0x0A00, PC=0x%04X", helper.CPU.PC)
	}
	if !helper.CPU.P.Interrupt() {
		t.Error("Expected I set while servicing IRQ")
	}
}
