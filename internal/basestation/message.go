package basestation

import "strings"

// BaseStation message types
const (
	TypeID  = "ID"  // New ID
	TypeAIR = "AIR" // New Aircraft
	TypeSTA = "STA" // Status Change
	TypeMSG = "MSG" // Transmission
)

// BaseStation transmission types
const (
	TransmissionIdentification  = 1 // Extended Squitter Aircraft ID and Category
	TransmissionSurfacePosition = 2 // Extended Squitter Surface Position
	TransmissionAirborne        = 3 // Extended Squitter Airborne Position
	TransmissionVelocity        = 4 // Extended Squitter Airborne Velocity
	TransmissionSurveillance    = 5 // Surveillance Alt, Squawk change
	TransmissionSurveillanceID  = 6 // Surveillance ID change
	TransmissionAirToAir        = 7 // Air-to-Air Message
	TransmissionAllCall         = 8 // All Call Reply
)

const (
	flagSet   = "-1"
	flagClear = "0"
)

// Message is one BaseStation record. Session, aircraft and flight ids as
// well as the generated/logged timestamps are left empty.
type Message struct {
	MessageType      string
	TransmissionType int
	HexIdent         string
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// String formats the record as a CSV line. Status and new aircraft records
// have ten fields, transmissions and ids have twenty two.
func (m *Message) String() string {
	transmission := ""
	if m.TransmissionType != 0 {
		transmission = itoa(m.TransmissionType)
	}

	if m.MessageType == TypeSTA || m.MessageType == TypeAIR {
		return strings.Join([]string{
			m.MessageType, transmission, "", "", m.HexIdent,
			"", "", "", "", "",
		}, ",")
	}

	return strings.Join([]string{
		m.MessageType,
		transmission,
		"", // session id
		"", // aircraft id
		m.HexIdent,
		"", // flight id
		"", // date generated
		"", // time generated
		"", // date logged
		"", // time logged
		m.Callsign,
		m.Altitude,
		m.GroundSpeed,
		m.Track,
		m.Latitude,
		m.Longitude,
		m.VerticalRate,
		m.Squawk,
		m.Alert,
		m.Emergency,
		m.SPI,
		m.IsOnGround,
	}, ",")
}

func flag(set bool) string {
	if set {
		return flagSet
	}
	return flagClear
}
