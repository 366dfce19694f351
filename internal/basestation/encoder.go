package basestation

import (
	"fmt"
	"strconv"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/adsb"
)

// Encode renders a decode result as SBS lines: stale aircraft first, then
// a new aircraft record, then the record for the message itself.
func Encode(res *adsb.Result) []string {
	var lines []string

	for _, e := range res.Events {
		switch e.Type {
		case adsb.EventStale:
			lines = append(lines, StatusLine(e.Aircraft))
		case adsb.EventNew:
			lines = append(lines, NewAircraftLine(e.Aircraft))
		}
	}

	if res.Message != nil {
		if m := FromMessage(res.Message, res.Has(adsb.EventIdentity)); m != nil {
			lines = append(lines, m.String())
		}
	}
	return lines
}

// StatusLine reports an aircraft that timed out.
func StatusLine(a *adsb.Aircraft) string {
	m := Message{MessageType: TypeSTA, HexIdent: a.ICAO()}
	return m.String()
}

// NewAircraftLine announces an aircraft seen for the first time.
func NewAircraftLine(a *adsb.Aircraft) string {
	m := Message{MessageType: TypeAIR, HexIdent: a.ICAO()}
	return m.String()
}

// FromMessage builds the record for a decoded message. It returns nil for
// kinds that have no BaseStation representation.
func FromMessage(msg *adsb.Message, identityChanged bool) *Message {
	m := &Message{MessageType: TypeMSG, HexIdent: msg.ICAO()}

	switch msg.Kind {
	case adsb.KindShortAirSurveillance:
		m.TransmissionType = TransmissionSurveillance
		m.Altitude = itoa(msg.Altitude)

	case adsb.KindAltitudeReply:
		m.TransmissionType = TransmissionSurveillance
		m.Altitude = itoa(msg.Altitude)
		m.setFlags(msg)

	case adsb.KindIdentityReply, adsb.KindCommBIdentity:
		m.TransmissionType = TransmissionSurveillanceID
		m.Squawk = squawk(msg.Squawk)
		m.setFlags(msg)

	case adsb.KindAllCallReply:
		m.TransmissionType = TransmissionAllCall

	case adsb.KindIdentification:
		if identityChanged {
			m.MessageType = TypeID
		} else {
			m.TransmissionType = TransmissionIdentification
		}
		m.Callsign = msg.Callsign

	case adsb.KindAirbornePosition:
		m.TransmissionType = TransmissionAirborne
		m.Altitude = itoa(msg.Altitude)
		if msg.Position != nil {
			m.Latitude = coordinate(msg.Position.Latitude)
			m.Longitude = coordinate(msg.Position.Longitude)
		}
		m.clearFlags()

	case adsb.KindGroundSpeed:
		m.TransmissionType = TransmissionVelocity
		m.GroundSpeed = itoa(msg.Velocity)
		m.Track = itoa(msg.Heading)
		m.VerticalRate = itoa(msg.VerticalRateFPM())
		m.clearFlags()

	case adsb.KindLongAirSurveillance, adsb.KindAirspeed, adsb.KindOtherSquitter,
		adsb.KindCommBAltitude, adsb.KindCommD, adsb.KindUnknown:
		return nil

	default:
		return nil
	}
	return m
}

func (m *Message) setFlags(msg *adsb.Message) {
	m.Alert = flag(msg.Alert())
	m.Emergency = flag(msg.Emergency())
	m.SPI = flag(msg.SPI())
	m.IsOnGround = flag(msg.OnGround())
}

func (m *Message) clearFlags() {
	m.Alert, m.Emergency, m.SPI, m.IsOnGround = flagClear, flagClear, flagClear, flagClear
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func squawk(code int) string {
	return fmt.Sprintf("%04d", code)
}

// coordinate renders degrees with five decimals and a '.' separator.
func coordinate(deg float64) string {
	return strconv.FormatFloat(deg, 'f', 5, 64)
}
