package video

// Soft switch addresses. Reading or writing any of them flips the mode.
const (
	SwitchTextOff  uint16 = 0xC050
	SwitchTextOn   uint16 = 0xC051
	SwitchMixedOff uint16 = 0xC052
	SwitchMixedOn  uint16 = 0xC053
	SwitchPage1    uint16 = 0xC054
	SwitchPage2    uint16 = 0xC055
	SwitchLoRes    uint16 = 0xC056
	SwitchHiRes    uint16 = 0xC057
)

const (
	TextPage1  uint16 = 0x0400
	TextPage2  uint16 = 0x0800
	HiResPage1 uint16 = 0x2000
	HiResPage2 uint16 = 0x4000
)

// Switches is the display mode selected through $C050-$C057.
type Switches struct {
	Text  bool `json:"text"`
	Mixed bool `json:"mixed"`
	Page2 bool `json:"page2"`
	HiRes bool `json:"hires"`
}

// DefaultSwitches is the power-on mode: full screen text, page 1.
func DefaultSwitches() Switches {
	return Switches{Text: true}
}

// Access applies the switch at address and reports whether address is one.
func (s *Switches) Access(address uint16) bool {
	switch address {
	case SwitchTextOff:
		s.Text = false
	case SwitchTextOn:
		s.Text = true
	case SwitchMixedOff:
		s.Mixed = false
	case SwitchMixedOn:
		s.Mixed = true
	case SwitchPage1:
		s.Page2 = false
	case SwitchPage2:
		s.Page2 = true
	case SwitchLoRes:
		s.HiRes = false
	case SwitchHiRes:
		s.HiRes = true
	default:
		return false
	}
	return true
}

// TextBase returns the first byte of the selected text/lo-res page.
func (s Switches) TextBase() uint16 {
	if s.Page2 {
		return TextPage2
	}
	return TextPage1
}

// HiResBase returns the first byte of the selected hi-res page.
func (s Switches) HiResBase() uint16 {
	if s.Page2 {
		return HiResPage2
	}
	return HiResPage1
}

func (s Switches) String() string {
	mode := "LORES"
	switch {
	case s.Text:
		mode = "TEXT"
	case s.HiRes:
		mode = "HIRES"
	}
	if s.Mixed && !s.Text {
		mode += "+MIXED"
	}
	if s.Page2 {
		return mode + " P2"
	}
	return mode + " P1"
}

// TextAddress returns the memory address of the character cell at col, row
// on the page starting at base. The 24 rows are interleaved in three groups
// of eight, 128 bytes apart within a group and 40 bytes apart across groups.
// Out of range cells return base.
func TextAddress(base uint16, col, row int) uint16 {
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return base
	}
	return base + uint16(row%8)*0x80 + uint16(row/8)*0x28 + uint16(col)
}

// HiResAddress returns the address of the byte holding pixels 7*col..7*col+6
// of scanline y.
func HiResAddress(base uint16, col, y int) uint16 {
	return base + uint16(y&7)<<10 + uint16((y>>3)&7)<<7 + uint16(y>>6)*0x28 + uint16(col)
}
