//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives the power and reset lines through the Linux GPIO
// character device.
type RealPins struct {
	chip     *gpiocdev.Chip
	powerPin *gpiocdev.Line
	resetPin *gpiocdev.Line
}

// NewRealPins requests the power and reset lines as outputs. Both start
// inactive: power off, reset asserted.
func NewRealPins(pinPower, pinReset int) (*RealPins, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	powerLine, err := chip.RequestLine(pinPower, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request power pin %d: %w", pinPower, err)
	}

	// Reset is active-low: driving 0 holds the module in reset.
	resetLine, err := chip.RequestLine(pinReset, gpiocdev.AsOutput(0))
	if err != nil {
		powerLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request reset pin %d: %w", pinReset, err)
	}

	return &RealPins{
		chip:     chip,
		powerPin: powerLine,
		resetPin: resetLine,
	}, nil
}

// SetPower enables or disables the module power rail.
func (r *RealPins) SetPower(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.powerPin.SetValue(v); err != nil {
		return fmt.Errorf("set power pin: %w", err)
	}
	return nil
}

// SetReset asserts or de-asserts the active-low reset line.
func (r *RealPins) SetReset(asserted bool) error {
	v := 1
	if asserted {
		v = 0
	}
	if err := r.resetPin.SetValue(v); err != nil {
		return fmt.Errorf("set reset pin: %w", err)
	}
	return nil
}

// Close drives both lines inactive and releases GPIO resources, leaving
// the module unpowered and in reset for the next boot.
func (r *RealPins) Close() error {
	var errs []error

	if r.powerPin != nil {
		if err := r.powerPin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear power pin: %w", err))
		}
		if err := r.powerPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close power pin: %w", err))
		}
	}
	if r.resetPin != nil {
		if err := r.resetPin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("assert reset pin: %w", err))
		}
		if err := r.resetPin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reset pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
