// Package status derives the single externally published Bluetooth status
// from a session snapshot. The mapper is a pure function; callers own the
// timing and commit decisions.
package status

import "github.com/marcuz1234/mynd-firmware/internal/domain/session"

// Status is the canonical externally observable state value. Exactly one
// holds at a time.
type Status int

const (
	None Status = iota
	BluetoothPairing
	SlavePairing
	CsbChainMaster
	ChainSlave
	AuxConnected
	DfuMode
	UsbConnected
	BluetoothConnected
	BluetoothDisconnected
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case None:
		return "none"
	case BluetoothPairing:
		return "bt_pairing"
	case SlavePairing:
		return "slave_pairing"
	case CsbChainMaster:
		return "csb_chain_master"
	case ChainSlave:
		return "chain_slave"
	case AuxConnected:
		return "aux_connected"
	case DfuMode:
		return "dfu_mode"
	case UsbConnected:
		return "usb_connected"
	case BluetoothConnected:
		return "bt_connected"
	case BluetoothDisconnected:
		return "bt_disconnected"
	default:
		return "unknown"
	}
}

// IsChainRole reports whether the status is a stable chain role.
func (s Status) IsChainRole() bool {
	return s == CsbChainMaster || s == ChainSlave
}

// IsPairing reports whether the status is a pairing-type status.
func (s Status) IsPairing() bool {
	return s == BluetoothPairing || s == SlavePairing
}

// Snapshot is the subset of session state the mapper reads.
type Snapshot struct {
	Chain              session.ChainState
	Pairing            session.PairingState
	Source             session.AudioSource
	PlugConnected      bool
	UsbSourceAvailable bool
	DfuActive          bool
	Connected          bool
}

// Snap copies the mapper inputs out of a session state.
func Snap(st *session.State) Snapshot {
	return Snapshot{
		Chain:              st.Chain,
		Pairing:            st.Pairing,
		Source:             st.Source,
		PlugConnected:      st.PlugConnected,
		UsbSourceAvailable: st.UsbSourceAvailable,
		DfuActive:          st.DfuActive,
		Connected:          st.Connected,
	}
}

// fromChain maps an active chain role to its status. ChainDisabled has no
// mapping.
func fromChain(c session.ChainState) (Status, bool) {
	switch c {
	case session.ChainBroadcasting:
		return CsbChainMaster, true
	case session.ChainReceiverConnected:
		return ChainSlave, true
	case session.ChainReceiverPairing:
		return SlavePairing, true
	default:
		return None, false
	}
}

// fromPairing maps an active pairing phase to its status. PairingIdle has
// no mapping.
func fromPairing(p session.PairingState) (Status, bool) {
	switch p {
	case session.PairingBluetooth:
		return BluetoothPairing, true
	case session.PairingCsbBroadcast:
		return CsbChainMaster, true
	case session.PairingCsbReceive:
		return SlavePairing, true
	default:
		return None, false
	}
}

// Derive computes the status for a snapshot. Priority order, first match
// wins: chain role, pairing phase, analog with plug, DFU, USB source,
// connected, disconnected.
//
// Derive must not be called while the audio source is unknown; the caller
// guards that precondition.
func Derive(s Snapshot) Status {
	if st, ok := fromChain(s.Chain); ok {
		return st
	}
	if st, ok := fromPairing(s.Pairing); ok {
		return st
	}
	if s.Source == session.SourceAnalog && s.PlugConnected {
		return AuxConnected
	}
	if s.DfuActive {
		return DfuMode
	}
	if s.Source == session.SourceUsb && s.UsbSourceAvailable {
		return UsbConnected
	}
	if s.Connected {
		return BluetoothConnected
	}
	return BluetoothDisconnected
}

// SuppressRepublish reports whether a freshly derived status must not be
// republished. A repeated chain role is suppressed so that an unrelated
// audio-source change while already in a stable chain role does not replay
// the chain indicator.
func SuppressRepublish(prev, next Status) bool {
	return prev == next && prev.IsChainRole()
}
