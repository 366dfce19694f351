package feed

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/demod"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/rtlsdr"
)

// Source opens the upstream byte stream. Each call to Open starts a fresh
// connection; the client closes it when done.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// TCPSource connects to a receiver's raw or Beast output port
type TCPSource struct {
	Address     string
	DialTimeout time.Duration
}

// Open dials the receiver
func (s *TCPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	dialer := net.Dialer{Timeout: s.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.Address, err)
	}
	return conn, nil
}

func (s *TCPSource) String() string {
	return "tcp://" + s.Address
}

// SerialSource reads a receiver attached to a serial port
type SerialSource struct {
	Port     string
	BaudRate int
}

// Open opens the serial port
func (s *SerialSource) Open(ctx context.Context) (io.ReadCloser, error) {
	port, err := serial.Open(s.Port, &serial.Mode{BaudRate: s.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", s.Port, err)
	}
	return port, nil
}

func (s *SerialSource) String() string {
	return fmt.Sprintf("serial://%s@%d", s.Port, s.BaudRate)
}

// sampleDevice is the part of an RTL-SDR dongle the source drives
type sampleDevice interface {
	Capture(ctx context.Context, dataChan chan<- []byte) error
	Close() error
}

func openRTLSDR(cfg rtlsdr.Config, logger *logrus.Logger) (sampleDevice, error) {
	return rtlsdr.Open(cfg, logger)
}

// RTLSDRSource demodulates a local dongle and serves the frames as AVR text,
// one "*hex;" per line.
type RTLSDRSource struct {
	Config rtlsdr.Config
	Logger *logrus.Logger

	open func(rtlsdr.Config, *logrus.Logger) (sampleDevice, error)
}

// Open starts capture and demodulation. The capture goroutine owns the
// device handle and closes it only after Capture has returned.
func (s *RTLSDRSource) Open(ctx context.Context) (io.ReadCloser, error) {
	open := s.open
	if open == nil {
		open = openRTLSDR
	}
	dev, err := open(s.Config, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open RTL-SDR: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	samples := make(chan []byte, 100)

	go func() {
		defer cancel()
		err := dev.Capture(captureCtx, samples)
		if closeErr := dev.Close(); closeErr != nil {
			s.Logger.WithError(closeErr).Warn("Failed to close RTL-SDR device")
		}
		if err != nil {
			s.Logger.WithError(err).Error("RTL-SDR capture failed")
			pw.CloseWithError(err)
		}
	}()

	go func() {
		demodulator := demod.NewDemodulator(s.Logger)
		for {
			select {
			case <-captureCtx.Done():
				pw.Close()
				return
			case iq := <-samples:
				for _, frame := range demodulator.Demodulate(iq) {
					if _, err := io.WriteString(pw, frame+"\n"); err != nil {
						cancel()
						return
					}
				}
			}
		}
	}()

	return &pipeSource{PipeReader: pr, cancel: cancel}, nil
}

func (s *RTLSDRSource) String() string {
	return fmt.Sprintf("rtlsdr://%d", s.Config.DeviceIndex)
}

type pipeSource struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (p *pipeSource) Close() error {
	p.cancel()
	return p.PipeReader.Close()
}
