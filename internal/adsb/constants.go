package adsb

// Mode S message sizes
const (
	ShortMessageBits  = 56
	LongMessageBits   = 112
	ShortMessageBytes = ShortMessageBits / 8
	LongMessageBytes  = LongMessageBits / 8
)

// Downlink formats handled by the decoder
const (
	DFShortAirSurveillance = 0
	DFAltitudeReply        = 4
	DFIdentityReply        = 5
	DFAllCallReply         = 11
	DFLongAirSurveillance  = 16
	DFExtendedSquitter     = 17
	DFMilitarySquitter     = 19
	DFCommBAltitude        = 20
	DFCommBIdentity        = 21
	DFCommD                = 24
)

// Charset is the 6-bit alphabet used by identification messages.
const Charset = "?ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????"

// CallsignLength is the number of characters carried by an identification message.
const CallsignLength = 8

// CPR decoding constants
const (
	CPRLatBits = 17
	CPRLonBits = 17
	CPRMax     = 131072 // 2^17

	// CPRWindow is the maximum age difference, in seconds, between an even
	// and an odd frame that may be combined into a global position.
	CPRWindow = 10
)

// Altitude code flags, relative to the 13-bit AC field.
const (
	acMetricBit = 0x40
	acQBit      = 0x10
)

// InvalidModeC is returned by ModeAToModeC for illegal Gillham patterns.
const InvalidModeC = -9999

// Emergency squawk codes
const (
	SquawkHijack    = 7500
	SquawkRadioFail = 7600
	SquawkEmergency = 7700
)
