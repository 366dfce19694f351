// Package demod turns 2 MHz RTL-SDR I/Q samples into Mode S frames in the
// "*hex;" text form.
package demod

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/adsb"
)

// SampleRate is the only rate the demodulator understands: two samples per
// Mode S bit.
const SampleRate = 2000000

const (
	preambleSamples = 16
	longSamples     = preambleSamples + adsb.LongMessageBits*2
)

var (
	magLUT     []uint16
	magLUTOnce sync.Once
)

// magnitudeTable maps an interleaved unsigned I/Q byte pair to its scaled
// magnitude.
func magnitudeTable() []uint16 {
	magLUTOnce.Do(func() {
		magLUT = make([]uint16, 256*256)
		for i := 0; i < 256; i++ {
			for q := 0; q < 256; q++ {
				fi := float64(i) - 127.5
				fq := float64(q) - 127.5
				magLUT[i*256+q] = uint16(math.Round(math.Sqrt(fi*fi+fq*fq) * 360))
			}
		}
	})
	return magLUT
}

// Stats holds demodulator counters
type Stats struct {
	Samples   uint64
	Preambles uint64
	Frames    uint64
	Rejected  uint64
}

// Demodulator finds Mode S transmissions in a continuous sample stream.
// Samples left over at the end of one buffer are kept so a message
// straddling two buffers is still found.
type Demodulator struct {
	logger *logrus.Logger
	lut    []uint16
	carry  []uint16
	stats  Stats
}

// NewDemodulator creates a demodulator
func NewDemodulator(logger *logrus.Logger) *Demodulator {
	return &Demodulator{
		logger: logger,
		lut:    magnitudeTable(),
	}
}

// Demodulate consumes interleaved unsigned 8-bit I/Q samples and returns the
// frames found, each as "*hex;".
func (d *Demodulator) Demodulate(iq []byte) []string {
	m := d.carry
	for i := 0; i+1 < len(iq); i += 2 {
		m = append(m, d.lut[int(iq[i])*256+int(iq[i+1])])
	}
	d.stats.Samples += uint64(len(iq) / 2)

	var frames []string
	j := 0
	for ; j+longSamples <= len(m); j++ {
		if !d.preamble(m[j:]) {
			continue
		}
		d.stats.Preambles++

		frame, bits, ok := d.decodeBits(m[j+preambleSamples:])
		if !ok {
			d.stats.Rejected++
			continue
		}
		d.stats.Frames++
		frames = append(frames, "*"+frame.Hex()+";")
		d.logger.WithFields(logrus.Fields{
			"df":     frame.DownlinkFormat(),
			"sample": j,
		}).Debug("Demodulated Mode S frame")

		j += preambleSamples + bits*2 - 1
	}

	d.carry = append(d.carry[:0:0], m[j:]...)
	return frames
}

// Stats returns the counters
func (d *Demodulator) Stats() Stats {
	return d.stats
}

// preamble checks the four pulses at samples 0, 2, 7 and 9 and that the
// gaps between them are quiet.
func (d *Demodulator) preamble(m []uint16) bool {
	if !(m[0] > m[1] && m[1] < m[2] && m[2] > m[3] && m[3] < m[0] &&
		m[4] < m[0] && m[5] < m[0] && m[6] < m[0] &&
		m[7] > m[8] && m[8] < m[9] && m[9] > m[6]) {
		return false
	}

	high := (uint32(m[0]) + uint32(m[2]) + uint32(m[7]) + uint32(m[9])) / 6
	if uint32(m[4]) >= high || uint32(m[5]) >= high {
		return false
	}
	for i := 11; i <= 14; i++ {
		if uint32(m[i]) >= high {
			return false
		}
	}
	return true
}

// decodeBits slices pulse position modulated bits: a 1 is a high sample
// followed by a low one. Equal pairs repeat the previous bit, but the
// downlink format bits must be unambiguous.
func (d *Demodulator) decodeBits(m []uint16) (adsb.Frame, int, bool) {
	var frame adsb.Frame
	nbits := adsb.LongMessageBits
	prev := byte(0)

	for i := 0; i < nbits; i++ {
		first, second := m[i*2], m[i*2+1]

		var bit byte
		switch {
		case first > second:
			bit = 1
		case first < second:
			bit = 0
		default:
			if i < 5 {
				return frame, 0, false
			}
			bit = prev
		}
		prev = bit
		if bit == 1 {
			frame[i/8] |= 1 << (7 - uint(i%8))
		}

		if i == 4 {
			df := frame.DownlinkFormat()
			if !knownFormat(df) {
				return frame, 0, false
			}
			nbits = adsb.MessageBits(df)
		}
	}
	return frame, nbits, true
}

func knownFormat(df int) bool {
	switch df {
	case adsb.DFShortAirSurveillance, adsb.DFAltitudeReply, adsb.DFIdentityReply,
		adsb.DFAllCallReply, adsb.DFLongAirSurveillance, adsb.DFExtendedSquitter,
		adsb.DFMilitarySquitter, adsb.DFCommBAltitude, adsb.DFCommBIdentity, adsb.DFCommD:
		return true
	default:
		return false
	}
}
