// Package feed reads Mode S frames from an upstream receiver and hands the
// translated SBS lines to a broadcaster.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/avr"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/beast"
)

// Format names the upstream wire format
type Format string

// Supported formats
const (
	FormatAVR   Format = "avr"
	FormatBeast Format = "beast"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatAVR, FormatBeast:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown input format %q", s)
	}
}

const readBufferSize = 4096

// Converter turns frames into SBS lines
type Converter interface {
	Lines(raw string) []string
	ConvertBytes(data []byte) []string
}

// Broadcaster receives every batch of SBS lines
type Broadcaster interface {
	Broadcast(lines []string)
}

// Client keeps a connection to the source open, reconnecting after
// failures, and pushes the translated output to the broadcaster.
type Client struct {
	source         Source
	format         Format
	converter      Converter
	out            Broadcaster
	reconnectDelay time.Duration
	logger         *logrus.Logger

	connectWarn rate.Sometimes
	bytesRead   atomic.Uint64
	frames      atomic.Uint64
	dropped     atomic.Uint64
	connects    atomic.Uint64
}

// NewClient creates a feed client
func NewClient(source Source, format Format, converter Converter, out Broadcaster, reconnectDelay time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		source:         source,
		format:         format,
		converter:      converter,
		out:            out,
		reconnectDelay: reconnectDelay,
		logger:         logger,
		connectWarn:    rate.Sometimes{First: 3, Interval: 10 * time.Minute},
	}
}

// Run connects and reads until ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.logger.WithField("source", c.source.String()).Info("Feed client stopped")
			return nil
		}

		entry := c.logger.WithFields(logrus.Fields{
			"source": c.source.String(),
			"retry":  c.reconnectDelay.String(),
		}).WithError(err)
		logged := false
		c.connectWarn.Do(func() {
			entry.Warn("Upstream feed unavailable, reconnecting")
			logged = true
		})
		if !logged {
			entry.Debug("Upstream feed unavailable, reconnecting")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	rc, err := c.source.Open(ctx)
	if err != nil {
		return err
	}
	c.connects.Add(1)
	c.logger.WithFields(logrus.Fields{
		"source": c.source.String(),
		"format": string(c.format),
	}).Info("Connected to upstream feed")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessionCtx.Done()
		rc.Close()
	}()

	return c.consume(rc)
}

// consume reads r until it fails. A clean end of stream is reported as
// io.EOF so the caller reconnects.
func (c *Client) consume(r io.Reader) error {
	framer := c.newFramer()
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.bytesRead.Add(uint64(n))
			framer(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("failed to read feed: %w", err)
		}
	}
}

func (c *Client) newFramer() func([]byte) {
	switch c.format {
	case FormatBeast:
		d := beast.NewDecoder(c.logger)
		return func(data []byte) {
			for _, msg := range d.Decode(data) {
				if !msg.IsModeS() {
					continue
				}
				c.emit(c.converter.ConvertBytes(msg.Data))
			}
		}
	default:
		f := avr.NewFramer()
		var seen uint64
		return func(data []byte) {
			for _, frame := range f.Feed(data) {
				c.emit(c.converter.Lines(frame))
			}
			if n := f.Dropped(); n > seen {
				c.dropped.Add(n - seen)
				seen = n
			}
		}
	}
}

func (c *Client) emit(lines []string) {
	c.frames.Add(1)
	if len(lines) > 0 {
		c.out.Broadcast(lines)
	}
}

// Stats holds feed counters
type Stats struct {
	BytesRead uint64 `json:"bytes_read"`
	Frames    uint64 `json:"frames"`
	Dropped   uint64 `json:"dropped"` // unterminated AVR frames
	Connects  uint64 `json:"connects"`
}

// Stats returns the counters
func (c *Client) Stats() Stats {
	return Stats{
		BytesRead: c.bytesRead.Load(),
		Frames:    c.frames.Load(),
		Dropped:   c.dropped.Load(),
		Connects:  c.connects.Load(),
	}
}
