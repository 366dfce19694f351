//go:build !cgo

package rtlsdr

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

var errUnsupported = errors.New("RTL-SDR hardware support requires a cgo build")

// Device is unavailable without cgo
type Device struct{}

// Open always fails without cgo
func Open(cfg Config, logger *logrus.Logger) (*Device, error) {
	return nil, errUnsupported
}

// Capture always fails without cgo
func (d *Device) Capture(ctx context.Context, dataChan chan<- []byte) error {
	return errUnsupported
}

// Close does nothing
func (d *Device) Close() error {
	return nil
}
