// Package capture models the enrollment capture capability. Capture is
// simulated: a stream reports sample progress and performs no image processing.
package capture

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable is returned by Acquire when no capture device exists
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Device hands out capture streams
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired capture session. Progress delivers the running sample
// count and is closed after Close. Close is idempotent.
type Stream interface {
	Progress() <-chan int
	Close() error
}

// UnavailableDevice is a host without capture hardware
type UnavailableDevice struct{}

func (UnavailableDevice) Acquire(ctx context.Context) (Stream, error) {
	return nil, ErrDeviceUnavailable
}
