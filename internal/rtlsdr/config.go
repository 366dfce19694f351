// Package rtlsdr drives an RTL2832 based dongle tuned to 1090 MHz.
package rtlsdr

import "errors"

// BufferSize is the size of one asynchronous read
const BufferSize = 16 * 16384

// ErrNoDevice is returned when no dongle is attached
var ErrNoDevice = errors.New("no RTL-SDR devices found")

// Config holds the tuner settings
type Config struct {
	DeviceIndex int    `yaml:"device_index"`
	Frequency   uint32 `yaml:"frequency"`
	SampleRate  uint32 `yaml:"sample_rate"`
	Gain        int    `yaml:"gain"`
}
