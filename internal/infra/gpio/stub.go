//go:build !linux

package gpio

import "errors"

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(pinPower, pinReset int) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetPower is not implemented on non-Linux platforms.
func (r *RealPins) SetPower(on bool) error {
	return errors.New("gpio: not supported")
}

// SetReset is not implemented on non-Linux platforms.
func (r *RealPins) SetReset(asserted bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
