package adsb

import (
	"io"
	"math"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mustFrame(raw string) Frame {
	f, err := ParseFrame(raw)
	if err != nil {
		panic(err)
	}
	return f
}

// setBits writes v into message bits first..last (1-based, inclusive).
func setBits(f *Frame, first, last int, v uint32) {
	for i := last; i >= first; i-- {
		idx := i - 1
		mask := byte(0x80 >> uint(idx%8))
		if v&1 != 0 {
			f[idx/8] |= mask
		} else {
			f[idx/8] &^= mask
		}
		v >>= 1
	}
}

// seal writes the parity field, XORed with ap for address/parity formats.
func seal(f *Frame, ap uint32) {
	bits := MessageBits(f.DownlinkFormat())
	setBits(f, bits-23, bits, Checksum(f[:], bits)^ap)
}

func allCallFrame(addr uint32) Frame {
	var f Frame
	setBits(&f, 1, 5, DFAllCallReply)
	setBits(&f, 6, 8, 5)
	setBits(&f, 9, 32, addr)
	seal(&f, 0)
	return f
}

func surveillanceFrame(df int, addr uint32, fs int, field uint32) Frame {
	var f Frame
	setBits(&f, 1, 5, uint32(df))
	setBits(&f, 6, 8, uint32(fs))
	setBits(&f, 20, 32, field)
	seal(&f, addr)
	return f
}

// ac13Feet encodes an altitude as a Q-bit AC13 field.
func ac13Feet(alt int) uint32 {
	n := uint32((alt + 1000) / 25)
	return (n&0x7E0)<<2 | (n&0x10)<<1 | n&0xF | acQBit
}

// encodeID13 inverts DecodeID13Field.
func encodeID13(gillham int) uint32 {
	field := 0
	for _, r := range id13Remap {
		if gillham&r.to != 0 {
			field |= r.from
		}
	}
	return uint32(field)
}

// squawkGillham lays out a four digit code as a Gillham word.
func squawkGillham(code int) int {
	a, b, c, d := code/1000%10, code/100%10, code/10%10, code%10
	return a<<12 | b<<8 | c<<4 | d
}

func fmod(x, y float64) float64 {
	return x - y*math.Floor(x/y)
}

// cprEncode produces the raw airborne CPR coordinates of a position.
func cprEncode(lat, lon float64, odd int) (int, int) {
	dlat := 360.0 / float64(60-odd)
	yz := math.Floor(CPRMax*fmod(lat, dlat)/dlat + 0.5)
	rlat := dlat * (yz/CPRMax + math.Floor(lat/dlat))
	dlon := 360.0 / float64(cprNFunction(rlat, odd))
	xz := math.Floor(CPRMax*fmod(lon, dlon)/dlon + 0.5)
	return int(yz) % CPRMax, int(xz) % CPRMax
}

func positionFrame(addr uint32, odd int, lat, lon int, altField uint32) Frame {
	var f Frame
	setBits(&f, 1, 5, DFExtendedSquitter)
	setBits(&f, 6, 8, 5)
	setBits(&f, 9, 32, addr)
	setBits(&f, 33, 37, 11)
	setBits(&f, 41, 52, altField)
	setBits(&f, 54, 54, uint32(odd))
	setBits(&f, 55, 71, uint32(lat))
	setBits(&f, 72, 88, uint32(lon))
	seal(&f, 0)
	return f
}

func identificationFrame(addr uint32, callsign string) Frame {
	var f Frame
	setBits(&f, 1, 5, DFExtendedSquitter)
	setBits(&f, 6, 8, 5)
	setBits(&f, 9, 32, addr)
	setBits(&f, 33, 37, 4)
	for i := 0; i < CallsignLength; i++ {
		c := byte(' ')
		if i < len(callsign) {
			c = callsign[i]
		}
		first := 41 + i*6
		for idx := 0; idx < len(Charset); idx++ {
			if Charset[idx] == c {
				setBits(&f, first, first+5, uint32(idx))
				break
			}
		}
	}
	seal(&f, 0)
	return f
}
