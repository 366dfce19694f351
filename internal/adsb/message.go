package adsb

import (
	"fmt"
	"math"
	"strings"
)

// Kind classifies a decoded message by downlink format and, for extended
// squitters, by type and subtype. Every consumer switches over Kind rather
// than over raw format numbers.
type Kind int

const (
	KindUnknown Kind = iota
	KindShortAirSurveillance
	KindAltitudeReply
	KindIdentityReply
	KindAllCallReply
	KindLongAirSurveillance
	KindIdentification
	KindAirbornePosition
	KindGroundSpeed
	KindAirspeed
	KindOtherSquitter
	KindCommBAltitude
	KindCommBIdentity
	KindCommD
)

var kindNames = [...]string{
	KindUnknown:              "unknown",
	KindShortAirSurveillance: "short-air-surveillance",
	KindAltitudeReply:        "altitude-reply",
	KindIdentityReply:        "identity-reply",
	KindAllCallReply:         "all-call-reply",
	KindLongAirSurveillance:  "long-air-surveillance",
	KindIdentification:       "identification",
	KindAirbornePosition:     "airborne-position",
	KindGroundSpeed:          "ground-speed",
	KindAirspeed:             "airspeed",
	KindOtherSquitter:        "extended-squitter",
	KindCommBAltitude:        "comm-b-altitude",
	KindCommBIdentity:        "comm-b-identity",
	KindCommD:                "comm-d",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Message is the result of decoding one frame.
type Message struct {
	Frame          Frame
	DownlinkFormat int
	Bits           int
	Kind           Kind

	ParityCRC   uint32
	ComputedCRC uint32
	ValidCRC    bool
	// CorrectedBit is the index of the bit flipped to repair the checksum,
	// or -1.
	CorrectedBit int
	// Recovered is set when the address was recovered from the AP field.
	Recovered bool

	Address      uint32
	Capability   int
	FlightStatus int
	Squawk       int

	ESType    int
	ESSubType int

	Callsign string

	// Airborne position
	OddFrame     bool
	RawLatitude  int
	RawLongitude int
	Position     *Position

	// Velocity
	EWDirection        int
	EWVelocity         int
	NSDirection        int
	NSVelocity         int
	VerticalRateSource int
	VerticalRateSign   int
	VerticalRate       int
	Velocity           int
	Heading            int
	HeadingValid       bool

	Altitude int
	Unit     Unit
}

// ICAO renders the address as six upper case hex digits.
func (m *Message) ICAO() string {
	return fmt.Sprintf("%06X", m.Address)
}

// Parity returns 1 for odd CPR frames and 0 for even ones.
func (m *Message) Parity() int {
	if m.OddFrame {
		return 1
	}
	return 0
}

// VerticalRateFPM returns the signed vertical rate in feet per minute.
func (m *Message) VerticalRateFPM() int {
	sign := 1
	if m.VerticalRateSign != 0 {
		sign = -1
	}
	return sign * (m.VerticalRate - 1) * 64
}

// Alert reports the flight status alert condition.
func (m *Message) Alert() bool {
	return m.hasFlightStatus() && (m.FlightStatus == 2 || m.FlightStatus == 3 || m.FlightStatus == 4)
}

// SPI reports the special position identification pulse.
func (m *Message) SPI() bool {
	return m.hasFlightStatus() && (m.FlightStatus == 4 || m.FlightStatus == 5)
}

// OnGround reports the ground state carried by the flight status.
func (m *Message) OnGround() bool {
	return m.hasFlightStatus() && (m.FlightStatus == 1 || m.FlightStatus == 3)
}

// Emergency reports an emergency squawk on replies carrying an identity.
func (m *Message) Emergency() bool {
	if m.Kind != KindIdentityReply && m.Kind != KindCommBIdentity {
		return false
	}
	return m.Squawk == SquawkHijack || m.Squawk == SquawkRadioFail || m.Squawk == SquawkEmergency
}

func (m *Message) hasFlightStatus() bool {
	switch m.Kind {
	case KindAltitudeReply, KindIdentityReply, KindCommBIdentity:
		return true
	}
	return false
}

// classify maps a downlink format and squitter type to a Kind.
func classify(df, esType, esSubType int) Kind {
	switch df {
	case DFShortAirSurveillance:
		return KindShortAirSurveillance
	case DFAltitudeReply:
		return KindAltitudeReply
	case DFIdentityReply:
		return KindIdentityReply
	case DFAllCallReply:
		return KindAllCallReply
	case DFLongAirSurveillance:
		return KindLongAirSurveillance
	case DFCommBAltitude:
		return KindCommBAltitude
	case DFCommBIdentity:
		return KindCommBIdentity
	case DFCommD:
		return KindCommD
	case DFExtendedSquitter:
		switch {
		case esType >= 1 && esType <= 4:
			return KindIdentification
		case esType >= 9 && esType <= 18:
			return KindAirbornePosition
		case esType == 19 && (esSubType == 1 || esSubType == 2):
			return KindGroundSpeed
		case esType == 19 && (esSubType == 3 || esSubType == 4):
			return KindAirspeed
		default:
			return KindOtherSquitter
		}
	}
	return KindUnknown
}

// decodeFields fills the format specific fields of m from its frame. The
// checksum and address have already been settled.
func (m *Message) decodeFields() {
	f := &m.Frame

	m.Capability = int(f.bits(6, 8))
	m.FlightStatus = int(f.bits(6, 8))
	m.Squawk = DecodeSquawk(f)

	if m.DownlinkFormat == DFExtendedSquitter {
		m.ESType = int(f.bits(33, 37))
		m.ESSubType = int(f.bits(38, 40))
	}
	m.Kind = classify(m.DownlinkFormat, m.ESType, m.ESSubType)

	switch m.Kind {
	case KindShortAirSurveillance, KindAltitudeReply, KindLongAirSurveillance, KindCommBAltitude:
		m.Altitude, m.Unit = DecodeAC13(f)
	case KindIdentification:
		m.Callsign = decodeCallsign(f)
	case KindAirbornePosition:
		m.Altitude, m.Unit = DecodeAC12(f)
		m.OddFrame = f.bit(54)
		m.RawLatitude = int(f.bits(55, 71))
		m.RawLongitude = int(f.bits(72, 88))
	case KindGroundSpeed:
		m.decodeGroundSpeed()
	case KindAirspeed:
		m.HeadingValid = f.bit(46)
		m.Heading = int(360.0 / 128 * float64(f.bits(47, 53)))
	}
}

func (m *Message) decodeGroundSpeed() {
	f := &m.Frame

	m.EWDirection = int(f.bits(46, 46))
	m.EWVelocity = int(f.bits(47, 56))
	m.NSDirection = int(f.bits(57, 57))
	m.NSVelocity = int(f.bits(58, 67))
	m.VerticalRateSource = int(f.bits(68, 68))
	m.VerticalRateSign = int(f.bits(69, 69))
	m.VerticalRate = int(f.bits(70, 78))

	ew := float64(m.EWVelocity)
	ns := float64(m.NSVelocity)
	m.Velocity = int(math.RoundToEven(math.Sqrt(ns*ns + ew*ew)))
	if m.Velocity == 0 {
		m.Heading = 0
		return
	}

	if m.EWDirection != 0 {
		ew = -ew
	}
	if m.NSDirection != 0 {
		ns = -ns
	}
	m.Heading = int(math.Atan2(ew, ns) * 180 / math.Pi)
	if m.Heading < 0 {
		m.Heading += 360
	}
	m.HeadingValid = true
}

func decodeCallsign(f *Frame) string {
	var sb strings.Builder
	for i := 0; i < CallsignLength; i++ {
		first := 41 + i*6
		sb.WriteByte(Charset[f.bits(first, first+5)])
	}
	return sb.String()
}
