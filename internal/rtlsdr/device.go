//go:build cgo

package rtlsdr

import (
	"context"
	"errors"
	"fmt"

	rtl "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"
)

// Device is an open, configured RTL-SDR dongle
type Device struct {
	device *rtl.Context
	logger *logrus.Logger
	index  int
	isOpen bool
}

// Open opens and configures the dongle at index. A gain of zero selects
// automatic gain.
func Open(cfg Config, logger *logrus.Logger) (*Device, error) {
	count := rtl.GetDeviceCount()
	if count == 0 {
		return nil, ErrNoDevice
	}
	if cfg.DeviceIndex >= count {
		return nil, fmt.Errorf("device index %d out of range (0-%d)", cfg.DeviceIndex, count-1)
	}

	ctx, err := rtl.Open(cfg.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}

	d := &Device{device: ctx, logger: logger, index: cfg.DeviceIndex, isOpen: true}
	if err := d.configure(cfg); err != nil {
		d.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"device_index": cfg.DeviceIndex,
		"device_name":  rtl.GetDeviceName(cfg.DeviceIndex),
		"frequency":    cfg.Frequency,
		"sample_rate":  cfg.SampleRate,
		"gain":         cfg.Gain,
	}).Info("RTL-SDR device configured successfully")

	return d, nil
}

func (d *Device) configure(cfg Config) error {
	if err := d.device.SetCenterFreq(int(cfg.Frequency)); err != nil {
		return fmt.Errorf("failed to set frequency: %w", err)
	}
	if err := d.device.SetSampleRate(int(cfg.SampleRate)); err != nil {
		return fmt.Errorf("failed to set sample rate: %w", err)
	}

	if cfg.Gain == 0 {
		if err := d.device.SetTunerGainMode(false); err != nil {
			return fmt.Errorf("failed to set auto gain: %w", err)
		}
	} else {
		if err := d.device.SetTunerGainMode(true); err != nil {
			return fmt.Errorf("failed to set manual gain mode: %w", err)
		}
		// tenths of dB
		if err := d.device.SetTunerGain(cfg.Gain * 10); err != nil {
			return fmt.Errorf("failed to set gain: %w", err)
		}
	}

	if err := d.device.ResetBuffer(); err != nil {
		return fmt.Errorf("failed to reset buffer: %w", err)
	}
	return nil
}

// Capture streams raw I/Q buffers into dataChan until ctx is cancelled.
// Buffers are dropped when the consumer falls behind. Capture returns only
// after the async reader has stopped.
func (d *Device) Capture(ctx context.Context, dataChan chan<- []byte) error {
	if !d.isOpen {
		return errors.New("device not open")
	}

	callback := func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		select {
		case dataChan <- buf:
		case <-ctx.Done():
		default:
			d.logger.Debug("Dropping I/Q buffer, channel full")
		}
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if panicData := recover(); panicData != nil {
				d.logger.WithField("panic", panicData).Error("RTL-SDR capture panic")
			}
		}()
		done <- d.device.ReadAsync(callback, nil, 0, BufferSize)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to read samples: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := d.device.CancelAsync(); err != nil {
		d.logger.WithError(err).Error("Failed to cancel async reading")
	}
	// ReadAsync must have returned before the handle may be closed
	<-done
	return nil
}

// Close closes the dongle
func (d *Device) Close() error {
	if d.device != nil && d.isOpen {
		if err := d.device.Close(); err != nil {
			return fmt.Errorf("failed to close device: %w", err)
		}
		d.isOpen = false
		d.logger.Info("RTL-SDR device closed")
	}
	return nil
}
