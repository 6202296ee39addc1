package chip

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
)

// Fake is a scripted module used by engine and sequencer tests and by the
// daemon's --sim-chip mode. Notifications queued with Queue are delivered
// on the next Pump, mirroring the real transport's tick-driven delivery.
type Fake struct {
	handler Handler
	pending []Notification

	Started bool
	Stopped bool

	// Calls records command method names in invocation order.
	Calls []string

	// Version is returned by FirmwareVersion.
	Version string

	// FailCommands makes every command method return an error.
	FailCommands bool

	// FailVersion makes FirmwareVersion return an error.
	FailVersion bool

	// OnPowerOn, if set, runs when RequestPowerOn is called. Tests use it
	// to queue the ready and audio-source notifications the module would
	// emit.
	OnPowerOn func(f *Fake)

	// OnPowerOff, if set, runs when RequestPowerOff is called.
	OnPowerOff func(f *Fake)
}

// NewFake creates a fake module.
func NewFake() *Fake {
	return &Fake{Version: "sim-0.0.0"}
}

// Queue schedules notifications for delivery on the next Pump.
func (f *Fake) Queue(ns ...Notification) {
	f.pending = append(f.pending, ns...)
}

// Start registers the handler and marks the transport as started.
func (f *Fake) Start(h Handler) error {
	f.handler = h
	f.Started = true
	f.Stopped = false
	return nil
}

// Stop marks the transport as stopped.
func (f *Fake) Stop() error {
	f.Stopped = true
	return nil
}

// Pump delivers all queued notifications to the handler, in order.
func (f *Fake) Pump() {
	for len(f.pending) > 0 {
		n := f.pending[0]
		f.pending = f.pending[1:]
		if f.handler != nil {
			f.handler(n)
		}
	}
}

func (f *Fake) record(name string) error {
	f.Calls = append(f.Calls, name)
	if f.FailCommands {
		return errors.Newf("chip: command %s returned code 1", name)
	}
	return nil
}

// CallCount returns how many times the named command was recorded.
func (f *Fake) CallCount(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// RequestPowerOn records the call and runs the OnPowerOn script.
func (f *Fake) RequestPowerOn() error {
	err := f.record("power_on")
	if f.OnPowerOn != nil {
		f.OnPowerOn(f)
	}
	return err
}

// RequestPowerOff records the call and runs the OnPowerOff script.
func (f *Fake) RequestPowerOff() error {
	err := f.record("power_off")
	if f.OnPowerOff != nil {
		f.OnPowerOff(f)
	}
	return err
}

// FirmwareVersion returns the scripted version string.
func (f *Fake) FirmwareVersion() (string, error) {
	f.Calls = append(f.Calls, "firmware_version")
	if f.FailVersion {
		return "", errors.New("chip: version query failed")
	}
	return f.Version, nil
}

// StartPairing records the call.
func (f *Fake) StartPairing() error { return f.record("start_pairing") }

// StopPairing records the call.
func (f *Fake) StopPairing() error { return f.record("stop_pairing") }

// StartChainPairing records the call.
func (f *Fake) StartChainPairing() error { return f.record("start_chain_pairing") }

// StopChain records the call with its reason.
func (f *Fake) StopChain(reason DisconnectReason) error {
	return f.record(fmt.Sprintf("stop_chain:%s", reason))
}

// ClearPairedDevices records the call.
func (f *Fake) ClearPairedDevices() error { return f.record("clear_paired_devices") }

// EnterDfu records the call.
func (f *Fake) EnterDfu() error { return f.record("enter_dfu") }

// PlayPause records the call.
func (f *Fake) PlayPause() error { return f.record("play_pause") }

// NextTrack records the call.
func (f *Fake) NextTrack() error { return f.record("next_track") }

// PreviousTrack records the call.
func (f *Fake) PreviousTrack() error { return f.record("previous_track") }

// SetAbsoluteVolume records the call with its value.
func (f *Fake) SetAbsoluteVolume(v int) error {
	return f.record(fmt.Sprintf("set_volume:%d", v))
}

// NotifyBattery records the call with its value.
func (f *Fake) NotifyBattery(percent int) error {
	return f.record(fmt.Sprintf("notify_battery:%d", percent))
}

// NotifyCharger records the call with its values.
func (f *Fake) NotifyCharger(status session.ChargerStatus, chargeType session.ChargeType) error {
	return f.record(fmt.Sprintf("notify_charger:%s:%d", status, chargeType))
}

// NotifyColor records the call with its value.
func (f *Fake) NotifyColor(color int) error {
	return f.record(fmt.Sprintf("notify_color:%d", color))
}

// NotifyEcoMode records the call with its value.
func (f *Fake) NotifyEcoMode(on bool) error {
	return f.record(fmt.Sprintf("notify_eco:%t", on))
}

var _ Module = (*Fake)(nil)
