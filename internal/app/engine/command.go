package engine

import (
	"github.com/marcuz1234/mynd-firmware/internal/app/indicator"
	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
)

// PowerTarget selects the requested power phase.
type PowerTarget int

const (
	PowerOn PowerTarget = iota
	PowerPreOff
	PowerOff
)

// String returns the string representation of the target.
func (t PowerTarget) String() string {
	switch t {
	case PowerOn:
		return "on"
	case PowerPreOff:
		return "pre_off"
	case PowerOff:
		return "off"
	default:
		return "unknown"
	}
}

// Command is a message posted to the engine by other subsystems. The
// concrete types form a closed set; the router switches over all of them.
type Command interface {
	isCommand()
}

// SetPower requests a power phase transition. The handler blocks the
// router until the phase settles or times out.
type SetPower struct {
	Target PowerTarget
}

// BatteryLevel reports the battery level in percent.
type BatteryLevel struct {
	Percent int
}

// ChargerStatus reports the charger state.
type ChargerStatus struct {
	Status session.ChargerStatus
}

// ChargeType reports the negotiated charge profile.
type ChargeType struct {
	Type session.ChargeType
}

// SetColor sets and persists the device color.
type SetColor struct {
	Color int
}

// RadioReady reports that the radio module is ready, outside the normal
// notification path.
type RadioReady struct{}

// WakeUp powers the device on if it is off.
type WakeUp struct{}

// VolumeUp raises the absolute volume by one step.
type VolumeUp struct{}

// VolumeDown lowers the absolute volume by one step.
type VolumeDown struct{}

// StartPairing begins Bluetooth pairing.
type StartPairing struct{}

// StartChainPairing begins multi-speaker chain pairing.
type StartChainPairing struct{}

// StopPairing aborts Bluetooth pairing.
type StopPairing struct {
	Reason chip.DisconnectReason
}

// StopChain leaves the multi-speaker chain.
type StopChain struct {
	Reason chip.DisconnectReason
}

// AuxPlugChanged reports the physical aux jack sense from the board.
type AuxPlugChanged struct {
	Connected bool
}

// UsbPlugChanged reports the physical USB plug sense from the USB-PD
// subsystem.
type UsbPlugChanged struct {
	Connected bool
}

// EnterDfu puts the module into firmware-update mode.
type EnterDfu struct{}

// ClearPairedList clears the module's paired device list.
type ClearPairedList struct{}

// FactoryReset clears pairing and restores persisted defaults.
type FactoryReset struct{}

// PlayPause toggles stream playback.
type PlayPause struct{}

// NextTrack skips to the next track.
type NextTrack struct{}

// PreviousTrack skips to the previous track.
type PreviousTrack struct{}

// PlayIndicator requests an indicator directly.
type PlayIndicator struct {
	Icon         indicator.Icon
	AfterCurrent bool
}

// StopIndicator stops an indicator directly.
type StopIndicator struct {
	Icon indicator.Icon
}

// EcoModeNotify updates eco mode and forwards it to the module.
type EcoModeNotify struct {
	Enabled bool
}

// SetProperty applies a chip-initiated property update.
type SetProperty struct {
	Property chip.Property
	Value    int
}

func (SetPower) isCommand()          {}
func (BatteryLevel) isCommand()      {}
func (ChargerStatus) isCommand()     {}
func (ChargeType) isCommand()        {}
func (SetColor) isCommand()          {}
func (RadioReady) isCommand()        {}
func (WakeUp) isCommand()            {}
func (VolumeUp) isCommand()          {}
func (VolumeDown) isCommand()        {}
func (StartPairing) isCommand()      {}
func (StartChainPairing) isCommand() {}
func (StopPairing) isCommand()       {}
func (StopChain) isCommand()         {}
func (AuxPlugChanged) isCommand()    {}
func (UsbPlugChanged) isCommand()    {}
func (EnterDfu) isCommand()          {}
func (ClearPairedList) isCommand()   {}
func (FactoryReset) isCommand()      {}
func (PlayPause) isCommand()         {}
func (NextTrack) isCommand()         {}
func (PreviousTrack) isCommand()     {}
func (PlayIndicator) isCommand()     {}
func (StopIndicator) isCommand()     {}
func (EcoModeNotify) isCommand()     {}
func (SetProperty) isCommand()       {}
