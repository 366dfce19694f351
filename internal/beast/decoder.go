package beast

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxBuffered bounds the bytes held while waiting for a frame to complete
const maxBuffered = 4096

// Decoder splits a Beast byte stream into messages. Frames may arrive split
// across any number of Decode calls.
type Decoder struct {
	logger *logrus.Logger
	buffer []byte
}

// NewDecoder creates a new Beast decoder
func NewDecoder(logger *logrus.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		buffer: make([]byte, 0, maxBuffered),
	}
}

// Decode appends data to the internal buffer and returns every complete
// message found in it. Partial frames stay buffered for the next call.
func (d *Decoder) Decode(data []byte) []*Message {
	d.buffer = append(d.buffer, data...)

	var messages []*Message
	for {
		start := indexSync(d.buffer)
		if start < 0 {
			d.buffer = d.buffer[:0]
			break
		}
		d.buffer = d.buffer[start:]

		if len(d.buffer) < 2 {
			break
		}

		messageType := d.buffer[1]
		n := payloadLength(messageType)
		if n == 0 {
			// 0x1A 0x1A is an escaped data byte, anything else is an unknown type
			if messageType != SyncByte {
				d.logger.WithField("message_type", fmt.Sprintf("0x%02x", messageType)).Debug("Unknown Beast message type, skipping")
			}
			d.buffer = d.buffer[1:]
			continue
		}

		body, consumed, status := unescape(d.buffer[2:], headerLen+n)
		if status == needMore {
			break
		}
		if status == broken {
			d.logger.WithField("message_type", fmt.Sprintf("0x%02x", messageType)).Debug("Beast frame interrupted by sync byte")
			d.buffer = d.buffer[2+consumed:]
			continue
		}

		messages = append(messages, newMessage(messageType, body))
		d.buffer = d.buffer[2+consumed:]
	}

	if len(d.buffer) > maxBuffered {
		d.logger.WithField("buffer_size", len(d.buffer)).Debug("Beast buffer overflow, clearing")
		d.buffer = d.buffer[:0]
	}
	return messages
}

func newMessage(messageType byte, body []byte) *Message {
	var timestamp uint64
	for i := 0; i < 6; i++ {
		timestamp = timestamp<<8 | uint64(body[i])
	}

	data := make([]byte, len(body)-headerLen)
	copy(data, body[headerLen:])

	return &Message{
		MessageType: messageType,
		Timestamp:   timestamp,
		Signal:      body[6],
		Data:        data,
	}
}

func indexSync(buf []byte) int {
	for i, b := range buf {
		if b == SyncByte {
			return i
		}
	}
	return -1
}

type unescapeStatus int

const (
	complete unescapeStatus = iota
	needMore
	broken
)

// unescape reads want logical bytes from buf, collapsing each 0x1A 0x1A
// pair into a single 0x1A. A lone 0x1A starts a new frame, so the current
// one is broken and consumed stops right before it.
func unescape(buf []byte, want int) ([]byte, int, unescapeStatus) {
	out := make([]byte, 0, want)
	i := 0
	for len(out) < want {
		if i >= len(buf) {
			return nil, i, needMore
		}
		b := buf[i]
		if b == SyncByte {
			if i+1 >= len(buf) {
				return nil, i, needMore
			}
			if buf[i+1] != SyncByte {
				return nil, i, broken
			}
			i++
		}
		out = append(out, b)
		i++
	}
	return out, i, complete
}
