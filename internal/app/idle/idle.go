// Package idle tracks connected-peer count and elapsed idle time, and
// decides when the radio should be powered off automatically.
package idle

import (
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
)

// Accountant clamps the connection count to [0, session.MaxConnections]
// and runs the idle auto-off timer. It is owned by the engine goroutine.
//
// The auto-off check is deliberately unconditional on connection count
// alone; pairing, DFU and streaming state do not gate it.
type Accountant struct {
	timeout time.Duration

	count     int
	idleSince time.Time // zero = not idle
}

// New creates an accountant with the given idle timeout.
func New(timeout time.Duration) *Accountant {
	return &Accountant{timeout: timeout}
}

// Count returns the current connection count.
func (a *Accountant) Count() int {
	return a.count
}

// IdleSince returns the idle timer start, zero when not running.
func (a *Accountant) IdleSince() time.Time {
	return a.idleSince
}

// Connect records a peer connection. A connection beyond the maximum is
// rejected with a warning and no state change. The idle timer is cleared
// on the 0 -> 1 transition.
func (a *Accountant) Connect(addr string) bool {
	if a.count >= session.MaxConnections {
		zlog.Warn().Msgf("idle: rejecting connection from %s, already at %d devices", addr, a.count)
		return false
	}
	a.count++
	if a.count == 1 {
		a.idleSince = time.Time{}
	}
	zlog.Info().Msgf("idle: device connected: addr=%s count=%d", addr, a.count)
	return true
}

// Disconnect records a peer disconnect. A disconnect at zero connections
// is a warning with no state change. On the n -> 0 transition the idle
// timer starts, unless already running.
func (a *Accountant) Disconnect(addr string, now time.Time) bool {
	if a.count == 0 {
		zlog.Warn().Msgf("idle: disconnect from %s with no connections recorded", addr)
		return false
	}
	a.count--
	if a.count == 0 && a.idleSince.IsZero() {
		a.idleSince = now
	}
	zlog.Info().Msgf("idle: device disconnected: addr=%s count=%d", addr, a.count)
	return true
}

// Reset clears the count and timer on a power cycle.
func (a *Accountant) Reset() {
	a.count = 0
	a.idleSince = time.Time{}
}

// Tick runs the auto-off check. It returns true exactly once per idle
// episode, when the device is powered on, no peers are connected and the
// timer has been running for at least the timeout; the timer is cleared
// on fire so the request is not repeated.
func (a *Accountant) Tick(now time.Time, poweredOn bool) bool {
	if !poweredOn {
		return false
	}

	if a.count > 0 {
		a.idleSince = time.Time{}
		return false
	}

	if a.idleSince.IsZero() {
		a.idleSince = now
		return false
	}

	if now.Sub(a.idleSince) >= a.timeout {
		a.idleSince = time.Time{}
		zlog.Info().Msgf("idle: no connections for %v, requesting power off", a.timeout)
		return true
	}
	return false
}
