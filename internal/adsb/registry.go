package adsb

import (
	"fmt"
	"sort"
	"time"
)

// Aircraft is the fused state of one ICAO address.
type Aircraft struct {
	Address  uint32
	LastSeen int64
	Callsign string
	Messages int

	// Latest values, kept for status reporting only
	Altitude int
	Speed    int
	Track    int
	Squawk   int

	identified bool
	even       CPRFrame
	odd        CPRFrame
	hasEven    bool
	hasOdd     bool
}

// ICAO renders the address as six upper case hex digits.
func (a *Aircraft) ICAO() string {
	return fmt.Sprintf("%06X", a.Address)
}

// AircraftInfo is a read-only copy of an aircraft for status APIs.
type AircraftInfo struct {
	ICAO     string    `json:"icao"`
	Callsign string    `json:"callsign,omitempty"`
	Altitude int       `json:"altitude"`
	Speed    int       `json:"speed"`
	Track    int       `json:"track"`
	Squawk   string    `json:"squawk,omitempty"`
	Messages int       `json:"messages"`
	LastSeen time.Time `json:"last_seen"`
}

// Registry owns the aircraft table. It is not safe for concurrent use; a
// single decoder goroutine owns it.
type Registry struct {
	aircraft map[uint32]*Aircraft
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{aircraft: make(map[uint32]*Aircraft)}
}

// Touch returns the aircraft for addr, creating it on first sight, and
// marks it as seen at now.
func (r *Registry) Touch(addr uint32, now int64) (*Aircraft, bool) {
	a, ok := r.aircraft[addr]
	if !ok {
		a = &Aircraft{Address: addr}
		r.aircraft[addr] = a
	}
	a.LastSeen = now
	a.Messages++
	return a, !ok
}

// ApplyIdentity stores a callsign and reports whether it differs from the
// stored one. The first assignment always counts as a change.
func (r *Registry) ApplyIdentity(a *Aircraft, callsign string) bool {
	if a.identified && a.Callsign == callsign {
		return false
	}
	a.Callsign = callsign
	a.identified = true
	return true
}

// ApplyPosition stores a CPR frame in the slot of its parity and resolves
// a global position when the opposite slot is recent enough.
func (r *Registry) ApplyPosition(a *Aircraft, odd bool, lat, lon int, now int64) (Position, bool) {
	frame := CPRFrame{Lat: lat, Lon: lon, Timestamp: now}
	if odd {
		a.odd, a.hasOdd = frame, true
	} else {
		a.even, a.hasEven = frame, true
	}

	if !a.hasEven || !a.hasOdd || !withinCPRWindow(a.even.Timestamp, a.odd.Timestamp) {
		return Position{}, false
	}
	return DecodeGlobalCPR(a.even, a.odd)
}

// SweepExpired removes every aircraft last seen more than ttl seconds
// before now and returns them ordered by address.
func (r *Registry) SweepExpired(now, ttl int64) []*Aircraft {
	var expired []*Aircraft
	for addr, a := range r.aircraft {
		if a.LastSeen < now-ttl {
			expired = append(expired, a)
			delete(r.aircraft, addr)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Address < expired[j].Address })
	return expired
}

// Get returns the aircraft for addr
func (r *Registry) Get(addr uint32) (*Aircraft, bool) {
	a, ok := r.aircraft[addr]
	return a, ok
}

// Len returns the number of tracked aircraft
func (r *Registry) Len() int {
	return len(r.aircraft)
}

// Snapshot copies the registry for status reporting, ordered by address.
func (r *Registry) Snapshot() []AircraftInfo {
	infos := make([]AircraftInfo, 0, len(r.aircraft))
	for _, a := range r.aircraft {
		info := AircraftInfo{
			ICAO:     a.ICAO(),
			Callsign: a.Callsign,
			Altitude: a.Altitude,
			Speed:    a.Speed,
			Track:    a.Track,
			Messages: a.Messages,
			LastSeen: time.Unix(a.LastSeen, 0).UTC(),
		}
		if a.Squawk != 0 {
			info.Squawk = fmt.Sprintf("%04d", a.Squawk)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ICAO < infos[j].ICAO })
	return infos
}

// observe copies the latest reported values of msg onto the aircraft.
func (a *Aircraft) observe(msg *Message) {
	switch msg.Kind {
	case KindShortAirSurveillance, KindAltitudeReply, KindLongAirSurveillance, KindCommBAltitude, KindAirbornePosition:
		if msg.Unit == UnitFeet {
			a.Altitude = msg.Altitude
		}
	case KindGroundSpeed:
		a.Speed = msg.Velocity
		a.Track = msg.Heading
	case KindAirspeed:
		a.Track = msg.Heading
	case KindIdentityReply, KindCommBIdentity:
		a.Squawk = msg.Squawk
	}
}
