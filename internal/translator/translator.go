package translator

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/adsb"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/basestation"
)

// malformedLogInterval bounds how often malformed input is reported
const malformedLogInterval = 30 * time.Second

// Stats is a point in time copy of the translator counters.
type Stats struct {
	Frames    uint64 `json:"frames"`
	Malformed uint64 `json:"malformed"`
	Discarded uint64 `json:"discarded"`
	Corrected uint64 `json:"corrected"`
	Recovered uint64 `json:"recovered"`
	Accepted  uint64 `json:"accepted"`
	Lines     uint64 `json:"lines"`
	Aircraft  int64  `json:"aircraft"`
}

type counters struct {
	frames    atomic.Uint64
	malformed atomic.Uint64
	discarded atomic.Uint64
	corrected atomic.Uint64
	recovered atomic.Uint64
	accepted  atomic.Uint64
	lines     atomic.Uint64
	aircraft  atomic.Int64
}

// Translator converts raw Mode S frames to SBS lines. Conversion methods
// must be called from a single goroutine; Stats and Aircraft may be called
// from any goroutine.
type Translator struct {
	decoder *adsb.Decoder
	clock   Clock
	logger  *logrus.Logger

	counters  counters
	malformed rate.Sometimes

	snapshot     atomic.Pointer[[]adsb.AircraftInfo]
	lastSnapshot int64
}

// New creates a translator. aircraftTTL is in seconds.
func New(fixSingleBitError bool, aircraftTTL int, clock Clock, logger *logrus.Logger) *Translator {
	if clock == nil {
		clock = SystemClock{}
	}

	t := &Translator{
		decoder:   adsb.NewDecoder(fixSingleBitError, int64(aircraftTTL), logger),
		clock:     clock,
		logger:    logger,
		malformed: rate.Sometimes{First: 1, Interval: malformedLogInterval},
	}
	empty := []adsb.AircraftInfo{}
	t.snapshot.Store(&empty)
	return t
}

// ConvertRaw converts one "*hex;" frame into newline-joined SBS lines. A
// malformed frame yields an empty string and has no side effects.
func (t *Translator) ConvertRaw(raw string) string {
	return strings.Join(t.Lines(raw), "\n")
}

// Lines converts one "*hex;" frame into SBS lines.
func (t *Translator) Lines(raw string) []string {
	t.counters.frames.Add(1)

	frame, err := adsb.ParseFrame(raw)
	if err != nil {
		t.rejectMalformed(raw, err)
		return nil
	}
	return t.convert(frame)
}

// ConvertBytes converts one binary Mode S message into SBS lines.
func (t *Translator) ConvertBytes(data []byte) []string {
	t.counters.frames.Add(1)

	frame, err := adsb.FrameFromBytes(data)
	if err != nil {
		t.rejectMalformed(string(data), err)
		return nil
	}
	return t.convert(frame)
}

func (t *Translator) rejectMalformed(raw string, err error) {
	n := t.counters.malformed.Add(1)

	t.logger.WithError(err).WithField("frame", raw).Debug("Rejected malformed frame")
	t.malformed.Do(func() {
		t.logger.WithFields(logrus.Fields{
			"malformed_total": n,
		}).WithError(err).Warn("Receiving malformed frames")
	})
}

func (t *Translator) convert(frame adsb.Frame) []string {
	now := t.clock.Now().Unix()
	res := t.decoder.Decode(frame, now)

	if res.Message == nil {
		t.counters.discarded.Add(1)
	} else {
		t.counters.accepted.Add(1)
		if res.Message.CorrectedBit >= 0 {
			t.counters.corrected.Add(1)
		}
		if res.Message.Recovered {
			t.counters.recovered.Add(1)
		}
	}

	lines := basestation.Encode(&res)
	t.counters.lines.Add(uint64(len(lines)))
	t.counters.aircraft.Store(int64(t.decoder.Registry().Len()))

	if len(res.Events) > 0 || now != t.lastSnapshot {
		t.publish(now)
	}
	return lines
}

func (t *Translator) publish(now int64) {
	snap := t.decoder.Registry().Snapshot()
	t.snapshot.Store(&snap)
	t.lastSnapshot = now
}

// Stats returns the current counters
func (t *Translator) Stats() Stats {
	return Stats{
		Frames:    t.counters.frames.Load(),
		Malformed: t.counters.malformed.Load(),
		Discarded: t.counters.discarded.Load(),
		Corrected: t.counters.corrected.Load(),
		Recovered: t.counters.recovered.Load(),
		Accepted:  t.counters.accepted.Load(),
		Lines:     t.counters.lines.Load(),
		Aircraft:  t.counters.aircraft.Load(),
	}
}

// Aircraft returns the most recently published aircraft snapshot.
func (t *Translator) Aircraft() []adsb.AircraftInfo {
	return *t.snapshot.Load()
}
