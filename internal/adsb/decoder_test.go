package adsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventTypes(res Result) []EventType {
	var types []EventType
	for _, e := range res.Events {
		types = append(types, e.Type)
	}
	return types
}

// TestDecodeIdentification tests the reference identification squitter
func TestDecodeIdentification(t *testing.T) {
	d := NewDecoder(false, 120, quietLogger())

	res := d.Decode(mustFrame("*8D4840D6202CC371C32CE0576098;"), 1000)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Message)

	msg := res.Message
	assert.Equal(t, 17, msg.DownlinkFormat)
	assert.Equal(t, LongMessageBits, msg.Bits)
	assert.Equal(t, "4840D6", msg.ICAO())
	assert.True(t, msg.ValidCRC)
	assert.Equal(t, -1, msg.CorrectedBit)
	assert.Equal(t, KindIdentification, msg.Kind)
	assert.Equal(t, 4, msg.ESType)
	assert.Equal(t, "KLM1023 ", msg.Callsign)
	assert.Equal(t, []EventType{EventNew, EventIdentity}, eventTypes(res))
	assert.True(t, d.IcaoCache().Contains(0x4840D6))

	again := d.Decode(mustFrame("*8D4840D6202CC371C32CE0576098;"), 1001)
	require.NotNil(t, again.Message)
	assert.Empty(t, again.Events, "unchanged callsign must not raise an identity event")

	renamed := d.Decode(identificationFrame(0x4840D6, "KLM1024"), 1002)
	require.NotNil(t, renamed.Message)
	assert.Equal(t, []EventType{EventIdentity}, eventTypes(renamed))
	assert.Equal(t, "KLM1024 ", renamed.Aircraft.Callsign)
}

// TestDecodeAirbornePosition tests position squitters and CPR pairing
func TestDecodeAirbornePosition(t *testing.T) {
	even := mustFrame("*8D40621D58C382D690C8AC2863A7;")
	odd := mustFrame("*8D40621D58C386435CC412692AD6;")

	tests := []struct {
		name     string
		first    Frame
		second   Frame
		gap      int64
		resolved bool
		lat      float64
		lon      float64
	}{
		{name: "even then odd", first: even, second: odd, gap: 5, resolved: true, lat: 52.26578017412606, lon: 3.938912527901786},
		{name: "odd then even", first: odd, second: even, gap: 5, resolved: true, lat: 52.2572021484375, lon: 3.91937255859375},
		{name: "ten seconds apart", first: even, second: odd, gap: 10, resolved: true, lat: 52.26578017412606, lon: 3.938912527901786},
		{name: "too far apart", first: even, second: odd, gap: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(false, 120, quietLogger())

			first := d.Decode(tt.first, 100)
			require.NotNil(t, first.Message)
			assert.Nil(t, first.Message.Position)
			assert.Equal(t, KindAirbornePosition, first.Message.Kind)
			assert.Equal(t, 38000, first.Message.Altitude)

			second := d.Decode(tt.second, 100+tt.gap)
			require.NotNil(t, second.Message)
			if !tt.resolved {
				assert.Nil(t, second.Message.Position)
				return
			}
			require.NotNil(t, second.Message.Position)
			assert.InDelta(t, tt.lat, second.Message.Position.Latitude, 1e-9)
			assert.InDelta(t, tt.lon, second.Message.Position.Longitude, 1e-9)
		})
	}
}

// TestDecodeRawPositionFields tests the raw CPR fields of the reference frames
func TestDecodeRawPositionFields(t *testing.T) {
	d := NewDecoder(false, 120, quietLogger())

	res := d.Decode(mustFrame("*8D40621D58C382D690C8AC2863A7;"), 1)
	require.NotNil(t, res.Message)
	assert.False(t, res.Message.OddFrame)
	assert.Equal(t, 93000, res.Message.RawLatitude)
	assert.Equal(t, 51372, res.Message.RawLongitude)

	res = d.Decode(mustFrame("*8D40621D58C386435CC412692AD6;"), 1)
	require.NotNil(t, res.Message)
	assert.True(t, res.Message.OddFrame)
	assert.Equal(t, 74158, res.Message.RawLatitude)
	assert.Equal(t, 50194, res.Message.RawLongitude)
}

// TestDecodeGroundSpeed tests the velocity squitter
func TestDecodeGroundSpeed(t *testing.T) {
	d := NewDecoder(false, 120, quietLogger())

	res := d.Decode(mustFrame("*8D485020994409940838175B284F;"), 1)
	require.NotNil(t, res.Message)

	msg := res.Message
	assert.Equal(t, KindGroundSpeed, msg.Kind)
	assert.Equal(t, 1, msg.ESSubType)
	assert.Equal(t, 9, msg.EWVelocity)
	assert.Equal(t, 160, msg.NSVelocity)
	assert.Equal(t, 160, msg.Velocity)
	assert.Equal(t, 184, msg.Heading)
	assert.Equal(t, -832, msg.VerticalRateFPM())
	assert.Equal(t, 160, res.Aircraft.Speed)
}

// TestDecodeAddressRecovery tests brute force recovery of AP addresses
func TestDecodeAddressRecovery(t *testing.T) {
	const addr = 0xABCDEF

	tests := []struct {
		name    string
		confirm bool
		frame   Frame
		wantErr error
		check   func(t *testing.T, msg *Message)
	}{
		{
			name:    "altitude reply from confirmed address",
			confirm: true,
			frame:   surveillanceFrame(DFAltitudeReply, addr, 0, ac13Feet(38000)),
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, KindAltitudeReply, msg.Kind)
				assert.Equal(t, 38000, msg.Altitude)
			},
		},
		{
			name:    "identity reply from confirmed address",
			confirm: true,
			frame:   surveillanceFrame(DFIdentityReply, addr, 4, encodeID13(squawkGillham(7700))),
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, KindIdentityReply, msg.Kind)
				assert.Equal(t, 7700, msg.Squawk)
				assert.True(t, msg.Emergency())
				assert.True(t, msg.Alert())
				assert.True(t, msg.SPI())
				assert.False(t, msg.OnGround())
			},
		},
		{
			name:    "unconfirmed address is discarded",
			confirm: false,
			frame:   surveillanceFrame(DFAltitudeReply, addr, 0, ac13Feet(38000)),
			wantErr: ErrUnknownAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(false, 120, quietLogger())
			if tt.confirm {
				res := d.Decode(allCallFrame(addr), 10)
				require.NotNil(t, res.Message)
				assert.Equal(t, KindAllCallReply, res.Message.Kind)
			}

			res := d.Decode(tt.frame, 11)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
				assert.Nil(t, res.Message)
				assert.Equal(t, 0, d.Registry().Len())
				return
			}

			require.NotNil(t, res.Message)
			assert.True(t, res.Message.Recovered)
			assert.Equal(t, uint32(addr), res.Message.Address)
			tt.check(t, res.Message)
		})
	}
}

// TestDecodeSingleBitCorrection tests optional repair of damaged squitters
func TestDecodeSingleBitCorrection(t *testing.T) {
	damaged := mustFrame("*8D4840D6202CC371C32CE0576098;")
	damaged.flipBit(50)

	t.Run("disabled", func(t *testing.T) {
		d := NewDecoder(false, 120, quietLogger())
		res := d.Decode(damaged, 1)
		assert.ErrorIs(t, res.Err, ErrBadChecksum)
		assert.Nil(t, res.Message)
		assert.Equal(t, 0, d.Registry().Len())
	})

	t.Run("enabled", func(t *testing.T) {
		d := NewDecoder(true, 120, quietLogger())
		res := d.Decode(damaged, 1)
		require.NoError(t, res.Err)
		require.NotNil(t, res.Message)
		assert.Equal(t, 50, res.Message.CorrectedBit)
		assert.True(t, res.Message.ValidCRC)
		assert.Equal(t, "KLM1023 ", res.Message.Callsign)
		assert.Equal(t, 1, d.Registry().Len())
		assert.False(t, d.IcaoCache().Contains(0x4840D6), "corrected messages are never cached")
	})

	t.Run("only squitters are corrected", func(t *testing.T) {
		d := NewDecoder(true, 120, quietLogger())
		require.NotNil(t, d.Decode(allCallFrame(0x123456), 1).Message)

		f := surveillanceFrame(DFAltitudeReply, 0x123456, 0, ac13Feet(1000))
		f.flipBit(30)
		res := d.Decode(f, 2)
		assert.ErrorIs(t, res.Err, ErrUnknownAddress)
	})
}

// TestDecodeUnsupportedFormat tests that formats outside the AP set are dropped
func TestDecodeUnsupportedFormat(t *testing.T) {
	d := NewDecoder(true, 120, quietLogger())

	var f Frame
	setBits(&f, 1, 5, 18)
	setBits(&f, 9, 32, 0x123456)
	seal(&f, 0)

	res := d.Decode(f, 1)
	assert.ErrorIs(t, res.Err, ErrUnsupportedFormat)
	assert.Nil(t, res.Message)
}

// TestDecodeExpirySweep tests the TTL boundary for aircraft and cache
func TestDecodeExpirySweep(t *testing.T) {
	const ttl = 20
	d := NewDecoder(false, ttl, quietLogger())

	require.NotNil(t, d.Decode(mustFrame("*8D4840D6202CC371C32CE0576098;"), 100).Message)

	// lastSeen == now - ttl is retained
	res := d.Decode(Frame{}, 100+ttl)
	assert.Empty(t, res.Events)
	assert.Equal(t, 1, d.Registry().Len())
	assert.True(t, d.IcaoCache().Contains(0x4840D6))

	// lastSeen == now - ttl - 1 is evicted
	res = d.Decode(Frame{}, 100+ttl+1)
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventStale, res.Events[0].Type)
	assert.Equal(t, uint32(0x4840D6), res.Events[0].Aircraft.Address)
	assert.Equal(t, 0, d.Registry().Len())
	assert.False(t, d.IcaoCache().Contains(0x4840D6))

	// expired cache entries no longer vouch for AP replies
	res = d.Decode(surveillanceFrame(DFAltitudeReply, 0x4840D6, 0, ac13Feet(1000)), 100+ttl+2)
	assert.ErrorIs(t, res.Err, ErrUnknownAddress)
}

// TestDecodeStaleBeforeNew tests event ordering within one call
func TestDecodeStaleBeforeNew(t *testing.T) {
	d := NewDecoder(false, 5, quietLogger())
	require.NotNil(t, d.Decode(allCallFrame(0x000001), 0).Message)

	res := d.Decode(allCallFrame(0x000002), 10)
	require.NotNil(t, res.Message)
	assert.Equal(t, []EventType{EventStale, EventNew}, eventTypes(res))
	assert.Equal(t, uint32(1), res.Events[0].Aircraft.Address)
	assert.Equal(t, uint32(2), res.Events[1].Aircraft.Address)
}
