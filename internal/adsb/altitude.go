package adsb

// Unit of a decoded altitude
type Unit int

const (
	UnitFeet Unit = iota
	UnitMeters
)

func (u Unit) String() string {
	if u == UnitMeters {
		return "m"
	}
	return "ft"
}

// id13Remap maps bits of the transmitted 13-bit identity/altitude field to
// their position in the Gillham A/B/C/D word. Bit 6 (X or M) is not mapped.
var id13Remap = [...]struct{ from, to int }{
	{0x1000, 0x0010}, // C1
	{0x0800, 0x1000}, // A1
	{0x0400, 0x0020}, // C2
	{0x0200, 0x2000}, // A2
	{0x0100, 0x0040}, // C4
	{0x0080, 0x4000}, // A4
	{0x0020, 0x0100}, // B1
	{0x0010, 0x0001}, // D1 or Q
	{0x0008, 0x0200}, // B2
	{0x0004, 0x0002}, // D2
	{0x0002, 0x0400}, // B4
	{0x0001, 0x0004}, // D4
}

// DecodeID13Field reorders a transmitted 13-bit field into a Gillham word
// laid out as 0xABCD, one nibble per pulse group.
func DecodeID13Field(field int) int {
	gillham := 0
	for _, r := range id13Remap {
		if field&r.from != 0 {
			gillham |= r.to
		}
	}
	return gillham
}

// ModeAToModeC converts a Gillham word to a Mode C altitude in units of
// 100 ft. Illegal patterns yield InvalidModeC.
func ModeAToModeC(modeA int) int {
	if modeA&^0x7774 != 0 || modeA&0x00F0 == 0 {
		return InvalidModeC
	}

	oneHundreds := 0
	if modeA&0x0010 != 0 { // C1
		oneHundreds ^= 0x007
	}
	if modeA&0x0020 != 0 { // C2
		oneHundreds ^= 0x003
	}
	if modeA&0x0040 != 0 { // C4
		oneHundreds ^= 0x001
	}

	// 7 and 5 are swapped in the C pulse sequence
	if oneHundreds&5 == 5 {
		oneHundreds ^= 2
	}
	if oneHundreds > 5 {
		return InvalidModeC
	}

	fiveHundreds := 0
	for _, step := range [...]struct{ mask, xor int }{
		{0x0002, 0x0FF}, // D2
		{0x0004, 0x07F}, // D4
		{0x1000, 0x03F}, // A1
		{0x2000, 0x01F}, // A2
		{0x4000, 0x00F}, // A4
		{0x0100, 0x007}, // B1
		{0x0200, 0x003}, // B2
		{0x0400, 0x001}, // B4
	} {
		if modeA&step.mask != 0 {
			fiveHundreds ^= step.xor
		}
	}

	if fiveHundreds&1 != 0 {
		oneHundreds = 6 - oneHundreds
	}
	return fiveHundreds*5 + oneHundreds - 13
}

// gillhamAltitude converts a 13-bit Gillham coded field to feet.
func gillhamAltitude(field int) int {
	modeC := ModeAToModeC(DecodeID13Field(field))
	if modeC < -12 {
		return 0
	}
	return modeC * 100
}

// DecodeAC13 decodes the 13-bit altitude code carried by DF0, DF4, DF16 and
// DF20 replies.
func DecodeAC13(f *Frame) (int, Unit) {
	field := int(f.bits(20, 32))
	if field&acMetricBit != 0 {
		return 0, UnitMeters
	}
	if field&acQBit != 0 {
		n := (field&0x1F80)>>2 | (field&0x0020)>>1 | field&0x000F
		return n*25 - 1000, UnitFeet
	}
	return gillhamAltitude(field), UnitFeet
}

// DecodeAC12 decodes the 12-bit altitude of an airborne position squitter.
// The field has no M bit; a zero is inserted in its place before Gillham
// decoding.
func DecodeAC12(f *Frame) (int, Unit) {
	field := int(f.bits(41, 52))
	if field&acQBit != 0 {
		n := (field&0x0FE0)>>1 | field&0x000F
		return n*25 - 1000, UnitFeet
	}
	return gillhamAltitude((field&0x0FC0)<<1 | field&0x003F), UnitFeet
}

// DecodeSquawk returns the identity code of DF5 and DF21 replies as a four
// digit octal-looking decimal, e.g. 7700.
func DecodeSquawk(f *Frame) int {
	g := DecodeID13Field(int(f.bits(20, 32)))
	a := (g >> 12) & 7
	b := (g >> 8) & 7
	c := (g >> 4) & 7
	d := g & 7
	return a*1000 + b*100 + c*10 + d
}
