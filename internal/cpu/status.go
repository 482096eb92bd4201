package cpu

// Status register bit masks.
const (
	FlagCarry     Status = 0x01
	FlagZero      Status = 0x02
	FlagInterrupt Status = 0x04
	FlagDecimal   Status = 0x08
	FlagBreak     Status = 0x10
	FlagUnused    Status = 0x20
	FlagOverflow  Status = 0x40
	FlagNegative  Status = 0x80
)

// Status is the processor status register (NV-BDIZC).
type Status uint8

func (s Status) has(f Status) bool { return s&f != 0 }

func (s *Status) set(f Status, on bool) {
	if on {
		*s |= f
	} else {
		*s &^= f
	}
}

func (s Status) Carry() bool     { return s.has(FlagCarry) }
func (s Status) Zero() bool      { return s.has(FlagZero) }
func (s Status) Interrupt() bool { return s.has(FlagInterrupt) }
func (s Status) Decimal() bool   { return s.has(FlagDecimal) }
func (s Status) Break() bool     { return s.has(FlagBreak) }
func (s Status) Overflow() bool  { return s.has(FlagOverflow) }
func (s Status) Negative() bool  { return s.has(FlagNegative) }

func (s *Status) SetCarry(on bool)     { s.set(FlagCarry, on) }
func (s *Status) SetZero(on bool)      { s.set(FlagZero, on) }
func (s *Status) SetInterrupt(on bool) { s.set(FlagInterrupt, on) }
func (s *Status) SetDecimal(on bool)   { s.set(FlagDecimal, on) }
func (s *Status) SetBreak(on bool)     { s.set(FlagBreak, on) }
func (s *Status) SetOverflow(on bool)  { s.set(FlagOverflow, on) }
func (s *Status) SetNegative(on bool)  { s.set(FlagNegative, on) }

// UpdateZeroAndNegative sets Z and N from an instruction result.
func (s *Status) UpdateZeroAndNegative(v uint8) {
	s.SetZero(v == 0)
	s.SetNegative(v&0x80 != 0)
}

// carryBit returns the carry flag as 0 or 1.
func (s Status) carryBit() uint8 {
	return uint8(s & FlagCarry)
}

// String renders the flags in NV-BDIZC order, upper case when set.
func (s Status) String() string {
	const names = "NV-BDIZC"
	out := []byte("nv-bdizc")
	for i := 0; i < 8; i++ {
		if s&(0x80>>i) != 0 {
			out[i] = names[i]
		}
	}
	return string(out)
}
