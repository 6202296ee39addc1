// Package chip specifies the interface boundary to the Bluetooth module
// protocol collaborator. The command/response encoding and UART framing
// live behind this boundary; nothing in this repository implements them.
package chip

import "github.com/marcuz1234/mynd-firmware/internal/domain/session"

// DisconnectReason explains a peer or chain disconnect.
type DisconnectReason int

const (
	ReasonUnknown DisconnectReason = iota
	ReasonRemote
	ReasonLinkLoss
	ReasonLocal
	ReasonTimeout
)

// String returns the string representation of the reason.
func (r DisconnectReason) String() string {
	switch r {
	case ReasonRemote:
		return "remote"
	case ReasonLinkLoss:
		return "link_loss"
	case ReasonLocal:
		return "local"
	case ReasonTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Notification is a hardware notification delivered by the module. The
// concrete types form a closed set; handlers switch over all of them.
//
// Notifications are delivered synchronously from Pump on the engine
// goroutine. Handlers must only record facts into session state; calling
// back into the transport from a handler is forbidden.
type Notification interface {
	isNotification()
}

// SystemReady reports that the module finished booting.
type SystemReady struct{}

// PowerState reports the module's logical power state.
type PowerState struct {
	On bool
}

// AudioSourceChanged reports the selected audio source.
type AudioSourceChanged struct {
	Source session.AudioSource
}

// VolumeChanged reports an absolute volume change initiated module-side.
type VolumeChanged struct {
	Volume int
}

// StreamStateChanged reports whether an audio stream is active.
type StreamStateChanged struct {
	Active bool
}

// Connected reports a new Bluetooth peer connection.
type Connected struct {
	Address string
}

// Disconnected reports a Bluetooth peer disconnect.
type Disconnected struct {
	Address string
	Reason  DisconnectReason
}

// PairingStateChanged reports a pairing phase change.
type PairingStateChanged struct {
	State session.PairingState
}

// ChainStateChanged reports a multi-speaker chain role change.
type ChainStateChanged struct {
	State  session.ChainState
	Reason DisconnectReason
}

// UsbSourceChanged reports module-side USB source availability.
type UsbSourceChanged struct {
	Available bool
}

// DfuModeChanged reports entry to or exit from firmware-update mode.
type DfuModeChanged struct {
	Active bool
}

func (SystemReady) isNotification()         {}
func (PowerState) isNotification()          {}
func (AudioSourceChanged) isNotification()  {}
func (VolumeChanged) isNotification()       {}
func (StreamStateChanged) isNotification()  {}
func (Connected) isNotification()           {}
func (Disconnected) isNotification()        {}
func (PairingStateChanged) isNotification() {}
func (ChainStateChanged) isNotification()   {}
func (UsbSourceChanged) isNotification()    {}
func (DfuModeChanged) isNotification()      {}

// Handler receives module notifications.
type Handler func(Notification)

// Module is the command surface of the Bluetooth chip. Command methods
// return a non-nil error when the wrapped protocol reports a nonzero
// code; callers log and move on, nothing is retried.
type Module interface {
	// Start initializes the transport and protocol layer and registers the
	// notification handler. Called during power-on sequencing.
	Start(h Handler) error

	// Stop tears down the transport and protocol layer. Called during
	// power-off sequencing, after (or despite) off confirmation.
	Stop() error

	// Pump drives the protocol layer's internal timing and delivers any
	// pending notifications synchronously on the calling goroutine.
	Pump()

	RequestPowerOn() error
	RequestPowerOff() error

	// FirmwareVersion queries the module firmware version. Best effort.
	FirmwareVersion() (string, error)

	StartPairing() error
	StopPairing() error
	StartChainPairing() error
	StopChain(reason DisconnectReason) error
	ClearPairedDevices() error
	EnterDfu() error

	PlayPause() error
	NextTrack() error
	PreviousTrack() error
	SetAbsoluteVolume(v int) error

	NotifyBattery(percent int) error
	NotifyCharger(status session.ChargerStatus, chargeType session.ChargeType) error
	NotifyColor(color int) error
	NotifyEcoMode(on bool) error
}
