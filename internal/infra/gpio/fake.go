package gpio

// FakePins is a test double recording line states.
type FakePins struct {
	// Power is the current power rail state.
	Power bool

	// ResetAsserted is the current reset line state.
	ResetAsserted bool

	// History records each SetPower/SetReset call as "power:on",
	// "power:off", "reset:assert" or "reset:release".
	History []string

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, is returned by SetPower and SetReset.
	SetError error
}

// NewFakePins creates fake pins with power off and reset asserted.
func NewFakePins() *FakePins {
	return &FakePins{ResetAsserted: true}
}

// SetPower records the power rail state.
func (f *FakePins) SetPower(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Power = on
	if on {
		f.History = append(f.History, "power:on")
	} else {
		f.History = append(f.History, "power:off")
	}
	return nil
}

// SetReset records the reset line state.
func (f *FakePins) SetReset(asserted bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.ResetAsserted = asserted
	if asserted {
		f.History = append(f.History, "reset:assert")
	} else {
		f.History = append(f.History, "reset:release")
	}
	return nil
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

var _ Pins = (*FakePins)(nil)
