// Package gpio drives the Bluetooth module's power and reset lines.
// The real implementation uses the Linux GPIO character device; the fake
// implementation allows testing without hardware.
package gpio

// Pins controls the module power rail and reset line.
type Pins interface {
	// SetPower enables or disables the module power rail.
	SetPower(on bool) error

	// SetReset asserts (true) or de-asserts (false) the reset line.
	// Reset is active-low at the pin; the inversion happens here.
	SetReset(asserted bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default line offsets (gpiochip0).
const (
	DefaultPinPower = 22
	DefaultPinReset = 23
)
