package basestation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/adsb"
)

// TestFromMessage tests every record shape
func TestFromMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      adsb.Message
		changed  bool
		expected string
	}{
		{
			name:     "short air surveillance",
			msg:      adsb.Message{Kind: adsb.KindShortAirSurveillance, Address: 0xABCDEF, Altitude: 38000},
			expected: "MSG,5,,,ABCDEF,,,,,,,38000,,,,,,,,,,",
		},
		{
			name:     "altitude reply",
			msg:      adsb.Message{Kind: adsb.KindAltitudeReply, Address: 0xABCDEF, Altitude: 1200, FlightStatus: 3},
			expected: "MSG,5,,,ABCDEF,,,,,,,1200,,,,,,,-1,0,0,-1",
		},
		{
			name:     "identity reply",
			msg:      adsb.Message{Kind: adsb.KindIdentityReply, Address: 0x00A1B2, Squawk: 7700, FlightStatus: 4},
			expected: "MSG,6,,,00A1B2,,,,,,,,,,,,,7700,-1,-1,-1,0",
		},
		{
			name:     "comm-b identity reply",
			msg:      adsb.Message{Kind: adsb.KindCommBIdentity, Address: 0x00A1B2, Squawk: 123, FlightStatus: 0},
			expected: "MSG,6,,,00A1B2,,,,,,,,,,,,,0123,0,0,0,0",
		},
		{
			name:     "all-call reply",
			msg:      adsb.Message{Kind: adsb.KindAllCallReply, Address: 0x4840D6},
			expected: "MSG,8,,,4840D6,,,,,,,,,,,,,,,,,",
		},
		{
			name:     "new identity",
			msg:      adsb.Message{Kind: adsb.KindIdentification, Address: 0x4840D6, Callsign: "KLM1023 "},
			changed:  true,
			expected: "ID,,,,4840D6,,,,,,KLM1023 ,,,,,,,,,,,",
		},
		{
			name:     "unchanged identity",
			msg:      adsb.Message{Kind: adsb.KindIdentification, Address: 0x4840D6, Callsign: "KLM1023 "},
			expected: "MSG,1,,,4840D6,,,,,,KLM1023 ,,,,,,,,,,,",
		},
		{
			name:     "resolved position",
			msg:      adsb.Message{Kind: adsb.KindAirbornePosition, Address: 0x40621D, Altitude: 38000, Position: &adsb.Position{Latitude: 52.2572021484375, Longitude: 3.91937255859375}},
			expected: "MSG,3,,,40621D,,,,,,,38000,,,52.25720,3.91937,,,0,0,0,0",
		},
		{
			name:     "negative coordinates",
			msg:      adsb.Message{Kind: adsb.KindAirbornePosition, Address: 0x40621D, Altitude: -1000, Position: &adsb.Position{Latitude: -33.9, Longitude: -151.123456}},
			expected: "MSG,3,,,40621D,,,,,,,-1000,,,-33.90000,-151.12346,,,0,0,0,0",
		},
		{
			name:     "unresolved position",
			msg:      adsb.Message{Kind: adsb.KindAirbornePosition, Address: 0x40621D, Altitude: 38000},
			expected: "MSG,3,,,40621D,,,,,,,38000,,,,,,,0,0,0,0",
		},
		{
			name:     "ground speed",
			msg:      adsb.Message{Kind: adsb.KindGroundSpeed, Address: 0x485020, Velocity: 160, Heading: 184, VerticalRateSign: 1, VerticalRate: 14},
			expected: "MSG,4,,,485020,,,,,,,,160,184,,,-832,,0,0,0,0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FromMessage(&tt.msg, tt.changed)
			require.NotNil(t, m)
			line := m.String()
			assert.Equal(t, tt.expected, line)
			assert.Len(t, strings.Split(line, ","), 22)
		})
	}
}

// TestFromMessageWithoutRecord tests kinds that produce no transmission line
func TestFromMessageWithoutRecord(t *testing.T) {
	for _, kind := range []adsb.Kind{
		adsb.KindLongAirSurveillance,
		adsb.KindAirspeed,
		adsb.KindOtherSquitter,
		adsb.KindCommBAltitude,
		adsb.KindCommD,
		adsb.KindUnknown,
	} {
		assert.Nil(t, FromMessage(&adsb.Message{Kind: kind}, false), kind.String())
	}
}

// TestStatusAndNewAircraftLines tests the ten field records
func TestStatusAndNewAircraftLines(t *testing.T) {
	a := &adsb.Aircraft{Address: 0x00000F}
	assert.Equal(t, "STA,,,,00000F,,,,,", StatusLine(a))
	assert.Equal(t, "AIR,,,,00000F,,,,,", NewAircraftLine(a))
}

// TestEncodeOrdering tests the order of lines for one decode result
func TestEncodeOrdering(t *testing.T) {
	stale := &adsb.Aircraft{Address: 0x111111}
	fresh := &adsb.Aircraft{Address: 0x4840D6}

	res := &adsb.Result{
		Events: []adsb.Event{
			{Type: adsb.EventStale, Aircraft: stale},
			{Type: adsb.EventNew, Aircraft: fresh},
			{Type: adsb.EventIdentity, Aircraft: fresh},
		},
		Message: &adsb.Message{Kind: adsb.KindIdentification, Address: 0x4840D6, Callsign: "KLM1023 "},
	}

	assert.Equal(t, []string{
		"STA,,,,111111,,,,,",
		"AIR,,,,4840D6,,,,,",
		"ID,,,,4840D6,,,,,,KLM1023 ,,,,,,,,,,,",
	}, Encode(res))
}

// TestEncodeDiscardedFrame tests that a discarded frame still reports stale aircraft
func TestEncodeDiscardedFrame(t *testing.T) {
	res := &adsb.Result{
		Events: []adsb.Event{{Type: adsb.EventStale, Aircraft: &adsb.Aircraft{Address: 0xABCDEF}}},
		Err:    adsb.ErrBadChecksum,
	}
	assert.Equal(t, []string{"STA,,,,ABCDEF,,,,,"}, Encode(res))
	assert.Empty(t, Encode(&adsb.Result{Err: adsb.ErrUnknownAddress}))
}
