// Package avr extracts "*hex;" frames from the AVR text format served on
// the raw output port of Mode S receivers.
package avr

// maxFrameLen is the longest frame kept while waiting for its terminator:
// '*' or '@', a 12 digit timestamp, 28 hex digits and ';'.
const maxFrameLen = 42

// mlatDigits is the length of the timestamp prefix of '@' frames
const mlatDigits = 12

// Framer reassembles frames that may be split across reads. Bytes outside
// a frame are ignored.
type Framer struct {
	partial []byte
	inFrame bool
	dropped uint64
}

// NewFramer creates an empty framer
func NewFramer() *Framer {
	return &Framer{partial: make([]byte, 0, maxFrameLen)}
}

// Feed consumes data and returns every frame completed by it, each in
// "*hex;" form. Frames with an MLAT timestamp ("@ttttttttttttHEX;") are
// returned without the timestamp.
func (f *Framer) Feed(data []byte) []string {
	var frames []string
	for _, b := range data {
		switch {
		case b == '*' || b == '@':
			if f.inFrame {
				f.dropped++
			}
			f.partial = append(f.partial[:0], b)
			f.inFrame = true
		case !f.inFrame:
		case b == ';':
			f.partial = append(f.partial, b)
			frames = append(frames, f.normalize())
			f.reset()
		case b == '\r' || b == '\n':
			f.dropped++
			f.reset()
		default:
			f.partial = append(f.partial, b)
			if len(f.partial) > maxFrameLen {
				f.dropped++
				f.reset()
			}
		}
	}
	return frames
}

// Dropped returns the number of unterminated frames discarded so far
func (f *Framer) Dropped() uint64 {
	return f.dropped
}

func (f *Framer) reset() {
	f.partial = f.partial[:0]
	f.inFrame = false
}

func (f *Framer) normalize() string {
	if f.partial[0] != '@' {
		return string(f.partial)
	}
	// Too short for a timestamp: hand it on so the translator rejects it
	if len(f.partial) < 1+mlatDigits+1 {
		return "*" + string(f.partial[1:])
	}
	return "*" + string(f.partial[1+mlatDigits:])
}
