// Package session holds the engine-owned session state and the shared
// device properties record.
package session

import "time"

// PairingState represents the pairing negotiation phase reported by the module.
type PairingState int

const (
	PairingIdle         PairingState = iota // No pairing in progress
	PairingBluetooth                        // Classic Bluetooth pairing
	PairingCsbBroadcast                     // Broadcasting for chain receivers
	PairingCsbReceive                       // Listening as a chain receiver
)

// String returns the string representation of the pairing state.
func (p PairingState) String() string {
	switch p {
	case PairingIdle:
		return "idle"
	case PairingBluetooth:
		return "bt_pairing"
	case PairingCsbBroadcast:
		return "csb_broadcasting"
	case PairingCsbReceive:
		return "csb_receiving"
	default:
		return "unknown"
	}
}

// ChainState represents the multi-speaker (CSB) chain role.
type ChainState int

const (
	ChainDisabled          ChainState = iota // Not part of a chain
	ChainBroadcasting                        // Chain master, broadcasting
	ChainReceiverConnected                   // Chain slave, connected to a master
	ChainReceiverPairing                     // Chain slave, pairing to a master
)

// String returns the string representation of the chain state.
func (c ChainState) String() string {
	switch c {
	case ChainDisabled:
		return "disabled"
	case ChainBroadcasting:
		return "broadcasting"
	case ChainReceiverConnected:
		return "receiver_connected"
	case ChainReceiverPairing:
		return "receiver_pairing"
	default:
		return "unknown"
	}
}

// AudioSource represents the physical audio source selection reported by
// the module. SourceUnknown means no report has arrived yet; no status
// decision is made until the first report.
type AudioSource int

const (
	SourceUnknown AudioSource = iota
	SourceAnalog
	SourceUsb
	SourceA2dp1
	SourceA2dp2
)

// String returns the string representation of the audio source.
func (a AudioSource) String() string {
	switch a {
	case SourceUnknown:
		return "unknown"
	case SourceAnalog:
		return "analog"
	case SourceUsb:
		return "usb"
	case SourceA2dp1:
		return "a2dp1"
	case SourceA2dp2:
		return "a2dp2"
	default:
		return "invalid"
	}
}

// MaxConnections is the maximum number of simultaneously connected peers.
const MaxConnections = 2

// State is the single session record owned exclusively by the engine
// goroutine. It is mutated only on the engine's serialized message path,
// so it carries no locking.
type State struct {
	Connected      bool
	ConnectedCount int // clamped to [0, MaxConnections]

	UsbSourceAvailable bool // module-side USB source availability
	PlugConnected      bool // physical aux/USB plug sense

	DfuActive bool

	Pairing PairingState
	Chain   ChainState
	Source  AudioSource

	StreamActive bool

	SystemReady bool // module reported ready since last power-on

	// Pending status recomputation, coalesced by timestamp.
	PendingStatusUpdate bool
	PendingSince        time.Time

	// Zero value means "not idle".
	IdleSince time.Time

	PowerOffConfirmed bool

	// Set when a stream was interrupted by a pairing episode; the resume
	// nudge fires at most once per episode.
	ResumeNudgeArmed bool
}

// NewState creates the session state for a fresh process.
func NewState() *State {
	return &State{}
}

// ResetForPowerOn clears the fields that must not survive an Off -> On
// cycle. The record itself lives for the process lifetime.
func (s *State) ResetForPowerOn() {
	s.Connected = false
	s.ConnectedCount = 0
	s.UsbSourceAvailable = false
	s.DfuActive = false
	s.Pairing = PairingIdle
	s.Chain = ChainDisabled
	s.Source = SourceUnknown
	s.StreamActive = false
	s.SystemReady = false
	s.PendingStatusUpdate = false
	s.PendingSince = time.Time{}
	s.IdleSince = time.Time{}
	s.PowerOffConfirmed = false
	s.ResumeNudgeArmed = false
}
