package cpu

import (
	"testing"
)

// FlagTest represents a test case for CPU flag behavior
type FlagTest struct {
	Name      string
	Setup     func(*CPUTestHelper)
	ExpectedA uint8
	ExpectedN bool
	ExpectedV bool
	ExpectedD bool
	ExpectedZ bool
	ExpectedC bool
}

// runFlagTests loads each case at $0600, executes one instruction and checks
// the accumulator and flags.
func runFlagTests(t *testing.T, tests []FlagTest) {
	t.Helper()

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			helper := NewCPUTestHelper()
			helper.Start(0x0600)
			test.Setup(helper)
			helper.Run(t, 1)

			p := helper.CPU.P
			flags := []struct {
				name     string
				actual   bool
				expected bool
			}{
				{"N", p.Negative(), test.ExpectedN},
				{"V", p.Overflow(), test.ExpectedV},
				{"D", p.Decimal(), test.ExpectedD},
				{"Z", p.Zero(), test.ExpectedZ},
				{"C", p.Carry(), test.ExpectedC},
			}
			for _, flag := range flags {
				if flag.actual != flag.expected {
					t.Errorf("Expected %s=%v, got %v", flag.name, flag.expected, flag.actual)
				}
			}
			if helper.CPU.A != test.ExpectedA {
				t.Errorf("Expected A=0x%02X, got 0x%02X", test.ExpectedA, helper.CPU.A)
			}
		})
	}
}

func TestADCBinary(t *testing.T) {
	runFlagTests(t, []FlagTest{
		{
			Name: "SignedOverflow",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x50
				h.LoadProgram(0x0600, 0x69, 0x50) // ADC #$50
			},
			ExpectedA: 0xA0,
			ExpectedN: true,
			ExpectedV: true,
		},
		{
			Name: "CarryAndZero",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0xFF
				h.LoadProgram(0x0600, 0x69, 0x01)
			},
			ExpectedA: 0x00,
			ExpectedZ: true,
			ExpectedC: true,
		},
		{
			Name: "CarryIn",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x10
				h.CPU.P.SetCarry(true)
				h.LoadProgram(0x0600, 0x69, 0x20)
			},
			ExpectedA: 0x31,
		},
		{
			Name: "NegativeOverflow",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x80
				h.LoadProgram(0x0600, 0x69, 0xFF)
			},
			ExpectedA: 0x7F,
			ExpectedV: true,
			ExpectedC: true,
		},
		{
			Name: "ZeroPageOperand",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x01
				h.Memory.SetBytes(0x0010, 0x02)
				h.LoadProgram(0x0600, 0x65, 0x10) // ADC $10
			},
			ExpectedA: 0x03,
		},
	})
}

func TestADCDecimal(t *testing.T) {
	decimal := func(a, operand uint8, carry bool) func(*CPUTestHelper) {
		return func(h *CPUTestHelper) {
			h.CPU.A = a
			h.CPU.P.SetDecimal(true)
			h.CPU.P.SetCarry(carry)
			h.LoadProgram(0x0600, 0x69, operand)
		}
	}

	runFlagTests(t, []FlagTest{
		{Name: "19+01", Setup: decimal(0x19, 0x01, false), ExpectedA: 0x20, ExpectedD: true},
		{Name: "99+01", Setup: decimal(0x99, 0x01, false), ExpectedA: 0x00, ExpectedD: true, ExpectedZ: true, ExpectedC: true},
		{Name: "58+46+C", Setup: decimal(0x58, 0x46, true), ExpectedA: 0x05, ExpectedD: true, ExpectedV: true, ExpectedC: true},
		{Name: "12+34", Setup: decimal(0x12, 0x34, false), ExpectedA: 0x46, ExpectedD: true},
		// Overflow follows the binary interpretation: 0x79+0x10 = 0x89 signed overflows.
		{Name: "79+10", Setup: decimal(0x79, 0x10, false), ExpectedA: 0x89, ExpectedD: true, ExpectedN: true, ExpectedV: true},
	})
}

func TestSBC(t *testing.T) {
	sbc := func(a, operand uint8, carry, dec bool) func(*CPUTestHelper) {
		return func(h *CPUTestHelper) {
			h.CPU.A = a
			h.CPU.P.SetDecimal(dec)
			h.CPU.P.SetCarry(carry)
			h.LoadProgram(0x0600, 0xE9, operand)
		}
	}

	runFlagTests(t, []FlagTest{
		{Name: "Binary_NoBorrow", Setup: sbc(0x50, 0x10, true, false), ExpectedA: 0x40, ExpectedC: true},
		{Name: "Binary_Borrow", Setup: sbc(0x00, 0x01, true, false), ExpectedA: 0xFF, ExpectedN: true},
		{Name: "Binary_Overflow", Setup: sbc(0x80, 0x01, true, false), ExpectedA: 0x7F, ExpectedV: true, ExpectedC: true},
		{Name: "Binary_BorrowIn", Setup: sbc(0x10, 0x01, false, false), ExpectedA: 0x0E, ExpectedC: true},
		{Name: "Decimal_20-01", Setup: sbc(0x20, 0x01, true, true), ExpectedA: 0x19, ExpectedD: true, ExpectedC: true},
		{Name: "Decimal_00-01", Setup: sbc(0x00, 0x01, true, true), ExpectedA: 0x99, ExpectedD: true, ExpectedN: true},
		{Name: "Decimal_46-12", Setup: sbc(0x46, 0x12, true, true), ExpectedA: 0x34, ExpectedD: true, ExpectedC: true},
	})
}

func TestCompareFlags(t *testing.T) {
	cmp := func(a, operand uint8) func(*CPUTestHelper) {
		return func(h *CPUTestHelper) {
			h.CPU.A = a
			h.LoadProgram(0x0600, 0xC9, operand) // CMP #
		}
	}

	runFlagTests(t, []FlagTest{
		{Name: "Equal", Setup: cmp(0x40, 0x40), ExpectedA: 0x40, ExpectedZ: true, ExpectedC: true},
		{Name: "Greater", Setup: cmp(0x41, 0x40), ExpectedA: 0x41, ExpectedC: true},
		{Name: "Less", Setup: cmp(0x40, 0x41), ExpectedA: 0x40, ExpectedN: true},
	})
}

func TestBITFlags(t *testing.T) {
	runFlagTests(t, []FlagTest{
		{
			Name: "CopiesHighBits",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x01
				h.Memory.SetBytes(0x0020, 0xC0)
				h.LoadProgram(0x0600, 0x24, 0x20) // BIT $20
			},
			ExpectedA: 0x01,
			ExpectedN: true,
			ExpectedV: true,
			ExpectedZ: true,
		},
	})
}

func TestShiftFlags(t *testing.T) {
	runFlagTests(t, []FlagTest{
		{
			Name:      "ASL_A_CarryOut",
			Setup:     func(h *CPUTestHelper) { h.CPU.A = 0x81; h.LoadProgram(0x0600, 0x0A) },
			ExpectedA: 0x02,
			ExpectedC: true,
		},
		{
			Name:      "LSR_A_ToZero",
			Setup:     func(h *CPUTestHelper) { h.CPU.A = 0x01; h.LoadProgram(0x0600, 0x4A) },
			ExpectedA: 0x00,
			ExpectedZ: true,
			ExpectedC: true,
		},
		{
			Name: "ROL_A_CarryIn",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x40
				h.CPU.P.SetCarry(true)
				h.LoadProgram(0x0600, 0x2A)
			},
			ExpectedA: 0x81,
			ExpectedN: true,
		},
		{
			Name: "ROR_A_CarryIn",
			Setup: func(h *CPUTestHelper) {
				h.CPU.A = 0x01
				h.CPU.P.SetCarry(true)
				h.LoadProgram(0x0600, 0x6A)
			},
			ExpectedA: 0x80,
			ExpectedN: true,
			ExpectedC: true,
		},
	})
}
