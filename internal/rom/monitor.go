package rom

// Addresses inside the built-in monitor image.
const (
	MonitorEntry   uint16 = 0xF000
	MonitorKeyLoop uint16 = 0xF032
	MonitorBanner  uint16 = 0xF060
	monitorRTI     uint16 = 0xF056
)

// MonitorTitle is printed on the top line at boot; keys echo on
// MonitorInputRow.
const (
	MonitorTitle    = "GOAPPLE ]["
	MonitorInputRow = 1
)

// monitorCode clears text page 1, prints the banner on row 0 and echoes
// keys onto row 1 after a ] prompt, clicking the speaker for each key.
// RETURN or a full line blanks the row and prompts again.
var monitorCode = []byte{
	0xD8,             // F000 CLD
	0xA2, 0xFF,       // F001 LDX #$FF
	0x9A,             // F003 TXS
	0x8D, 0x51, 0xC0, // F004 STA $C051   text mode
	0x8D, 0x54, 0xC0, // F007 STA $C054   page 1
	0xA9, 0xA0,       // F00A LDA #$A0
	0xA2, 0x00,       // F00C LDX #$00
	0x9D, 0x00, 0x04, // F00E STA $0400,X
	0x9D, 0x00, 0x05, // F011 STA $0500,X
	0x9D, 0x00, 0x06, // F014 STA $0600,X
	0x9D, 0x00, 0x07, // F017 STA $0700,X
	0xE8,             // F01A INX
	0xD0, 0xF1,       // F01B BNE $F00E
	0xA2, 0x00,       // F01D LDX #$00
	0xBD, 0x60, 0xF0, // F01F LDA $F060,X
	0xF0, 0x06,       // F022 BEQ $F02A
	0x9D, 0x00, 0x04, // F024 STA $0400,X
	0xE8,             // F027 INX
	0xD0, 0xF5,       // F028 BNE $F01F
	0xA2, 0x00,       // F02A LDX #$00
	0xA9, 0xDD,       // F02C LDA #$DD    ']'
	0x8D, 0x80, 0x04, // F02E STA $0480
	0xE8,             // F031 INX
	0xAD, 0x00, 0xC0, // F032 LDA $C000
	0x10, 0xFB,       // F035 BPL $F032
	0x8D, 0x10, 0xC0, // F037 STA $C010
	0xC9, 0x8D,       // F03A CMP #$8D
	0xF0, 0x0B,       // F03C BEQ $F049
	0x9D, 0x80, 0x04, // F03E STA $0480,X
	0x2C, 0x30, 0xC0, // F041 BIT $C030
	0xE8,             // F044 INX
	0xE0, 0x28,       // F045 CPX #$28
	0xD0, 0xE9,       // F047 BNE $F032
	0xA9, 0xA0,       // F049 LDA #$A0
	0xA2, 0x27,       // F04B LDX #$27
	0x9D, 0x80, 0x04, // F04D STA $0480,X
	0xCA,             // F050 DEX
	0xD0, 0xFA,       // F051 BNE $F04D
	0x4C, 0x2C, 0xF0, // F053 JMP $F02C
	0x40,             // F056 RTI
}

// Monitor returns a small boot image used when no system ROM is supplied.
// It occupies $D000-$FFFF like a real ROM set, so it is accepted anywhere a
// system ROM is.
func Monitor() Image {
	banner := make([]byte, 0, len(MonitorTitle)+1)
	for i := 0; i < len(MonitorTitle); i++ {
		banner = append(banner, MonitorTitle[i]|0x80)
	}
	banner = append(banner, 0)

	img, err := NewBuilder("monitor", SystemOrigin, SystemSize, 0xEA).
		At(MonitorEntry, monitorCode...).
		At(MonitorBanner, banner...).
		WithNMIVector(monitorRTI).
		WithResetVector(MonitorEntry).
		WithIRQVector(monitorRTI).
		Build()
	if err != nil {
		panic(err)
	}
	return img
}
