package adsb

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Reasons a frame is discarded
var (
	ErrBadChecksum       = errors.New("checksum mismatch")
	ErrUnknownAddress    = errors.New("recovered address not recently seen")
	ErrUnsupportedFormat = errors.New("unsupported downlink format")
)

// EventType identifies an aircraft lifecycle event
type EventType int

const (
	// EventStale is emitted for an aircraft removed by the expiry sweep.
	EventStale EventType = iota
	// EventNew is emitted the first time an address is seen.
	EventNew
	// EventIdentity is emitted when the callsign of an aircraft changes.
	EventIdentity
)

func (t EventType) String() string {
	switch t {
	case EventStale:
		return "stale"
	case EventNew:
		return "new"
	case EventIdentity:
		return "identity"
	}
	return "unknown"
}

// Event reports an aircraft lifecycle change
type Event struct {
	Type     EventType
	Aircraft *Aircraft
}

// Result is the outcome of decoding one frame. Events are ordered: stale
// aircraft first, then the events caused by the message itself.
type Result struct {
	Events   []Event
	Message  *Message
	Aircraft *Aircraft
	// Err explains why Message is nil. It is never a fault, only the reason
	// a frame produced no message.
	Err error
}

// Has reports whether the result carries an event of type t.
func (r *Result) Has(t EventType) bool {
	for _, e := range r.Events {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Decoder turns frames into messages while maintaining the aircraft
// registry and the ICAO cache. A Decoder is owned by a single goroutine.
type Decoder struct {
	fixErrors bool
	ttl       int64
	icaoCache *IcaoCache
	registry  *Registry
	logger    *logrus.Logger
}

// NewDecoder creates a decoder. ttl is the aircraft and ICAO cache expiry
// in seconds.
func NewDecoder(fixErrors bool, ttl int64, logger *logrus.Logger) *Decoder {
	return &Decoder{
		fixErrors: fixErrors,
		ttl:       ttl,
		icaoCache: NewIcaoCache(),
		registry:  NewRegistry(),
		logger:    logger,
	}
}

// Registry exposes the aircraft table owned by the decoder
func (d *Decoder) Registry() *Registry {
	return d.registry
}

// IcaoCache exposes the confirmed address cache owned by the decoder
func (d *Decoder) IcaoCache() *IcaoCache {
	return d.icaoCache
}

// Decode sweeps expired state and decodes one frame received at now (Unix
// seconds).
func (d *Decoder) Decode(frame Frame, now int64) Result {
	var res Result

	for _, a := range d.registry.SweepExpired(now, d.ttl) {
		res.Events = append(res.Events, Event{Type: EventStale, Aircraft: a})
	}
	d.icaoCache.SweepExpired(now, d.ttl)

	df := frame.DownlinkFormat()
	msg := &Message{
		Frame:          frame,
		DownlinkFormat: df,
		Bits:           MessageBits(df),
		CorrectedBit:   -1,
	}
	msg.ParityCRC = ParityField(frame[:], msg.Bits)
	msg.ComputedCRC = Checksum(frame[:], msg.Bits)
	msg.ValidCRC = msg.ParityCRC == msg.ComputedCRC

	switch df {
	case DFAllCallReply, DFExtendedSquitter:
		if !msg.ValidCRC && d.fixErrors {
			d.correct(msg)
		}
		if !msg.ValidCRC {
			res.Err = ErrBadChecksum
			d.discard(msg, res.Err)
			return res
		}
		msg.Address = msg.Frame.bits(9, 32)
		if msg.CorrectedBit < 0 {
			d.icaoCache.Add(msg.Address, now)
		}

	case DFShortAirSurveillance, DFAltitudeReply, DFIdentityReply, DFLongAirSurveillance,
		DFCommBAltitude, DFCommBIdentity, DFCommD:
		addr := msg.ComputedCRC ^ msg.ParityCRC
		if !d.icaoCache.Contains(addr) {
			res.Err = ErrUnknownAddress
			d.discard(msg, res.Err)
			return res
		}
		msg.Address = addr
		msg.Recovered = true

	default:
		res.Err = ErrUnsupportedFormat
		d.discard(msg, res.Err)
		return res
	}

	msg.decodeFields()
	d.track(msg, now, &res)
	res.Message = msg
	return res
}

func (d *Decoder) correct(msg *Message) {
	c, ok := CorrectSingleBit(msg.Frame, msg.Bits)
	if !ok {
		return
	}

	msg.Frame = c.Frame
	msg.CorrectedBit = c.Bit
	msg.ParityCRC = c.CRC
	msg.ComputedCRC = c.CRC
	msg.ValidCRC = true

	d.logger.WithFields(logrus.Fields{
		"df":  msg.DownlinkFormat,
		"bit": c.Bit,
	}).Debug("Corrected single bit error")
}

func (d *Decoder) discard(msg *Message, reason error) {
	if !d.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	d.logger.WithFields(logrus.Fields{
		"df":    msg.DownlinkFormat,
		"frame": msg.Frame.Hex(),
	}).WithError(reason).Debug("Discarded frame")
}

// track applies an accepted message to the registry.
func (d *Decoder) track(msg *Message, now int64, res *Result) {
	a, isNew := d.registry.Touch(msg.Address, now)
	res.Aircraft = a
	if isNew {
		res.Events = append(res.Events, Event{Type: EventNew, Aircraft: a})
	}

	switch msg.Kind {
	case KindIdentification:
		if d.registry.ApplyIdentity(a, msg.Callsign) {
			res.Events = append(res.Events, Event{Type: EventIdentity, Aircraft: a})
		}
	case KindAirbornePosition:
		pos, ok := d.registry.ApplyPosition(a, msg.OddFrame, msg.RawLatitude, msg.RawLongitude, now)
		if ok {
			msg.Position = &pos
		} else {
			d.logger.WithFields(logrus.Fields{
				"icao":   msg.ICAO(),
				"parity": msg.Parity(),
			}).Debug("Position not resolved")
		}
	}

	a.observe(msg)
}
