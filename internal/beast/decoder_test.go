package beast

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var (
	shortFrame = []byte{
		0x1A, 0x32, // Sync + Type
		0x00, 0x00, 0x00, 0x00, 0x00, 0x01, // Timestamp
		0x02,                                     // Signal level
		0x5D, 0x48, 0x40, 0xD6, 0xF8, 0x74, 0x0F, // Message data
	}
	longFrame = []byte{
		0x1A, 0x33,
		0x00, 0x00, 0x00, 0x00, 0x01, 0x00,
		0x03,
		0x8D, 0x48, 0x40, 0xD6, 0x20, 0x2C, 0xC3, 0x71,
		0xC3, 0x2C, 0xE0, 0x57, 0x60, 0x98,
	}
)

// TestDecoder_ValidMessages tests decoding of complete frames
func TestDecoder_ValidMessages(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		wantType  byte
		wantStamp uint64
		wantSig   byte
		wantData  []byte
	}{
		{
			name:      "Mode S short",
			input:     shortFrame,
			wantType:  ModeS,
			wantStamp: 1,
			wantSig:   0x02,
			wantData:  shortFrame[9:],
		},
		{
			name:      "Mode S long",
			input:     longFrame,
			wantType:  ModeSLong,
			wantStamp: 256,
			wantSig:   0x03,
			wantData:  longFrame[9:],
		},
		{
			name:      "Mode A/C",
			input:     []byte{0x1A, 0x31, 0, 0, 0, 0, 0, 3, 0x04, 0x02, 0x34},
			wantType:  ModeAC,
			wantStamp: 3,
			wantSig:   0x04,
			wantData:  []byte{0x02, 0x34},
		},
		{
			name: "escaped bytes in timestamp and data",
			input: []byte{
				0x1A, 0x32,
				0x00, 0x00, 0x00, 0x00, 0x1A, 0x1A, 0x1A, 0x1A,
				0x10,
				0x5D, 0x1A, 0x1A, 0x40, 0xD6, 0xF8, 0x74, 0x0F,
			},
			wantType:  ModeS,
			wantStamp: 0x1A1A,
			wantSig:   0x10,
			wantData:  []byte{0x5D, 0x1A, 0x40, 0xD6, 0xF8, 0x74, 0x0F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := NewDecoder(quietLogger()).Decode(tt.input)
			require.Len(t, messages, 1)

			msg := messages[0]
			assert.Equal(t, tt.wantType, msg.MessageType)
			assert.Equal(t, tt.wantStamp, msg.Timestamp)
			assert.Equal(t, tt.wantSig, msg.Signal)
			assert.Equal(t, tt.wantData, msg.Data)
			assert.Len(t, msg.Data, payloadLength(msg.MessageType))
		})
	}
}

// TestDecoder_InvalidMessages tests that garbage yields nothing
func TestDecoder_InvalidMessages(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "invalid sync byte", input: []byte{0x1B, 0x32, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{name: "unknown message type", input: []byte{0x1A, 0x99, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}},
		{name: "empty input", input: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, NewDecoder(quietLogger()).Decode(tt.input))
		})
	}
}

// TestDecoder_SplitReads tests frames delivered one byte at a time
func TestDecoder_SplitReads(t *testing.T) {
	d := NewDecoder(quietLogger())
	stream := append(append([]byte{0xFF, 0x00}, shortFrame...), longFrame...)

	var messages []*Message
	for _, b := range stream {
		messages = append(messages, d.Decode([]byte{b})...)
	}

	require.Len(t, messages, 2)
	assert.Equal(t, shortFrame[9:], messages[0].Data)
	assert.Equal(t, longFrame[9:], messages[1].Data)
}

// TestDecoder_Resync tests recovery from a truncated frame
func TestDecoder_Resync(t *testing.T) {
	truncated := shortFrame[:10]
	stream := append(append([]byte{}, truncated...), longFrame...)

	messages := NewDecoder(quietLogger()).Decode(stream)
	require.Len(t, messages, 1)
	assert.Equal(t, longFrame[9:], messages[0].Data)
}
