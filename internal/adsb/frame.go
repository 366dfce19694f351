package adsb

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Frame validation errors
var (
	ErrFrameDelimiters = errors.New("frame is not enclosed in '*' and ';'")
	ErrFrameLength     = errors.New("frame payload must be 7 to 14 bytes")
	ErrFrameHex        = errors.New("frame payload is not valid hex")
)

// Frame is a raw Mode S message buffer sized for a long message. Only the
// first MessageBits(df)/8 bytes are meaningful.
type Frame [LongMessageBytes]byte

// ParseFrame parses a "*hex;" text frame. Surrounding whitespace is ignored
// and hex digits are case-insensitive.
func ParseFrame(raw string) (Frame, error) {
	var frame Frame

	text := strings.TrimSpace(raw)
	if len(text) < 2 || text[0] != '*' || text[len(text)-1] != ';' {
		return frame, ErrFrameDelimiters
	}

	payload := text[1 : len(text)-1]
	if len(payload) < ShortMessageBytes*2 || len(payload) > LongMessageBytes*2 || len(payload)%2 != 0 {
		return frame, fmt.Errorf("%w: got %d hex digits", ErrFrameLength, len(payload))
	}

	if _, err := hex.Decode(frame[:], []byte(payload)); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrFrameHex, err)
	}
	return frame, nil
}

// FrameFromBytes copies a binary message into a frame buffer.
func FrameFromBytes(data []byte) (Frame, error) {
	var frame Frame
	if len(data) < ShortMessageBytes || len(data) > LongMessageBytes {
		return frame, fmt.Errorf("%w: got %d bytes", ErrFrameLength, len(data))
	}
	copy(frame[:], data)
	return frame, nil
}

// DownlinkFormat returns the top five bits of the first byte.
func (f *Frame) DownlinkFormat() int {
	return int(f[0] >> 3)
}

// MessageBits returns the message length in bits for a downlink format.
func MessageBits(df int) int {
	switch df {
	case DFLongAirSurveillance, DFExtendedSquitter, DFMilitarySquitter, DFCommBAltitude, DFCommBIdentity:
		return LongMessageBits
	default:
		return ShortMessageBits
	}
}

// Hex renders the meaningful bytes of the frame as upper case hex.
func (f *Frame) Hex() string {
	n := MessageBits(f.DownlinkFormat()) / 8
	return strings.ToUpper(hex.EncodeToString(f[:n]))
}

// bits returns the big-endian field spanning message bits first..last,
// numbered from 1 as in the Mode S documentation.
func (f *Frame) bits(first, last int) uint32 {
	var v uint32
	for i := first - 1; i < last; i++ {
		v <<= 1
		if f[i/8]&(0x80>>uint(i%8)) != 0 {
			v |= 1
		}
	}
	return v
}

func (f *Frame) bit(n int) bool {
	return f.bits(n, n) == 1
}

func (f *Frame) flipBit(j int) {
	f[j/8] ^= 0x80 >> uint(j%8)
}
