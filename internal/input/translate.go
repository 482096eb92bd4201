package input

// Translate maps a host rune to the Apple II key code the keyboard encoder
// would produce. Lower case letters become upper case since the machine has
// no lower case keyboard.
func Translate(r rune) (uint8, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return uint8(r - 'a' + 'A'), true
	case r == '\n' || r == '\r':
		return KeyReturn, true
	case r == '\b' || r == 0x7F:
		return KeyBackspace, true
	case r == '\t':
		return KeyTab, true
	case r >= 0x20 && r < 0x7F:
		return uint8(r), true
	case r > 0 && r < 0x20:
		return uint8(r), true
	}
	return 0, false
}

// Control applies the Ctrl key to a code: @, A-Z and [\]^_ map onto $00-$1F.
// Other codes are returned unchanged.
func Control(code uint8) uint8 {
	if code >= 'a' && code <= 'z' {
		code -= 'a' - 'A'
	}
	if code >= 0x40 && code <= 0x5F {
		return code & 0x1F
	}
	return code
}
