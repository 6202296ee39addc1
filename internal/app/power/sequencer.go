// Package power sequences the Bluetooth module through its power
// lifecycle. Each transition is synchronous for the caller and is gated
// by explicit module confirmation or a bounded timeout; the sequencer
// always makes forward progress, confirmed or not.
package power

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
	"github.com/marcuz1234/mynd-firmware/internal/infra/gpio"
)

// Phase is the sequencer state.
type Phase int

const (
	PhaseOff Phase = iota
	PhaseTurningOn
	PhaseOn
	PhasePreOff
	PhaseTurningOff
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseOff:
		return "off"
	case PhaseTurningOn:
		return "turning_on"
	case PhaseOn:
		return "on"
	case PhasePreOff:
		return "pre_off"
	case PhaseTurningOff:
		return "turning_off"
	default:
		return "unknown"
	}
}

// Config tunes the sequencer's bounded waits.
type Config struct {
	// ReadyTimeout bounds the wait for the module's ready report.
	ReadyTimeout time.Duration

	// SourceTimeout bounds the wait for the first audio-source report.
	SourceTimeout time.Duration

	// OffConfirmTimeout bounds the poll for power-off confirmation.
	OffConfirmTimeout time.Duration

	// PreOffSettle delays the Off request after entering PreOff, sized so
	// a power-off indicator can finish playing.
	PreOffSettle time.Duration

	// PollInterval is the cooperative yield period inside wait loops.
	PollInterval time.Duration
}

// Sequencer drives the module power lifecycle. It runs on the engine
// goroutine; wait loops pump the transport so notifications keep landing
// in session state while a transition is in flight. There is no
// cancellation for an in-flight transition; a stuck wait is resolved only
// by its timeout.
type Sequencer struct {
	cfg     Config
	module  chip.Module
	pins    gpio.Pins
	st      *session.State
	handler chip.Handler

	clock func() time.Time
	sleep func(time.Duration)

	phase   Phase
	version string
}

// New creates a sequencer. The handler is registered with the module on
// every power-on.
func New(cfg Config, module chip.Module, pins gpio.Pins, st *session.State, handler chip.Handler) *Sequencer {
	return &Sequencer{
		cfg:     cfg,
		module:  module,
		pins:    pins,
		st:      st,
		handler: handler,
		clock:   time.Now,
		sleep:   time.Sleep,
	}
}

// SetClock overrides the time source and sleep, for tests.
func (s *Sequencer) SetClock(now func() time.Time, sleep func(time.Duration)) {
	s.clock = now
	s.sleep = sleep
}

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// FirmwareVersion returns the version captured on the last power-on,
// empty if the query failed.
func (s *Sequencer) FirmwareVersion() string {
	return s.version
}

// waitFor pumps the transport until cond holds or the timeout elapses.
// Returns false on timeout.
func (s *Sequencer) waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := s.clock().Add(timeout)
	for {
		s.module.Pump()
		if cond() {
			return true
		}
		if !s.clock().Before(deadline) {
			return false
		}
		s.sleep(s.cfg.PollInterval)
	}
}

// PowerOn drives Off -> TurningOn -> On: power and reset lines up,
// transport restarted, module ready awaited, firmware version captured
// best-effort, logical power-on requested, first audio-source report
// awaited. The caller resets session state before invoking.
func (s *Sequencer) PowerOn() error {
	if s.phase == PhaseOn || s.phase == PhaseTurningOn {
		zlog.Debug().Msgf("power: ignoring on request in phase %s", s.phase)
		return nil
	}
	s.phase = PhaseTurningOn
	zlog.Info().Msg("power: turning on")

	if err := s.pins.SetPower(true); err != nil {
		zlog.Error().Msgf("power: failed to enable module power rail: %v", err)
	}
	if err := s.pins.SetReset(false); err != nil {
		zlog.Error().Msgf("power: failed to release module reset: %v", err)
	}

	if err := s.module.Start(s.handler); err != nil {
		s.phase = PhaseOff
		return errors.Wrap(err, "power: transport start failed")
	}

	if !s.waitFor(s.cfg.ReadyTimeout, func() bool { return s.st.SystemReady }) {
		zlog.Error().Msgf("power: module not ready within %v, proceeding", s.cfg.ReadyTimeout)
	}

	if v, err := s.module.FirmwareVersion(); err != nil {
		zlog.Error().Msgf("power: firmware version query failed: %v", err)
		s.version = ""
	} else {
		s.version = v
		zlog.Info().Msgf("power: module firmware %s", v)
	}

	if err := s.module.RequestPowerOn(); err != nil {
		zlog.Error().Msgf("power: logical power-on request failed: %v", err)
	}

	if !s.waitFor(s.cfg.SourceTimeout, func() bool { return s.st.Source != session.SourceUnknown }) {
		zlog.Error().Msgf("power: no audio source report within %v", s.cfg.SourceTimeout)
	}

	s.phase = PhaseOn
	zlog.Info().Msg("power: on")
	return nil
}

// PreOff enters the pre-off settle window. The sequencer blocks for the
// settle delay, pumping the transport, so that a power-off indicator can
// finish before the subsequent Off request is honored.
func (s *Sequencer) PreOff() {
	if s.phase != PhaseOn {
		zlog.Debug().Msgf("power: ignoring pre-off request in phase %s", s.phase)
		return
	}
	s.phase = PhasePreOff
	zlog.Info().Msgf("power: pre-off, settling for %v", s.cfg.PreOffSettle)

	deadline := s.clock().Add(s.cfg.PreOffSettle)
	for s.clock().Before(deadline) {
		s.module.Pump()
		s.sleep(s.cfg.PollInterval)
	}
}

// PowerOff drives On/PreOff -> TurningOff -> Off: off-confirmed flag
// cleared, logical power-off requested, confirmation polled up to the
// timeout, then transport teardown and line de-assertion unconditionally.
func (s *Sequencer) PowerOff() {
	if s.phase == PhaseOff || s.phase == PhaseTurningOff {
		zlog.Debug().Msgf("power: ignoring off request in phase %s", s.phase)
		return
	}
	s.phase = PhaseTurningOff
	zlog.Info().Msg("power: turning off")

	s.st.PowerOffConfirmed = false
	if err := s.module.RequestPowerOff(); err != nil {
		zlog.Error().Msgf("power: logical power-off request failed: %v", err)
	}

	if !s.waitFor(s.cfg.OffConfirmTimeout, func() bool { return s.st.PowerOffConfirmed }) {
		zlog.Error().Msgf("power: off not confirmed within %v, tearing down anyway", s.cfg.OffConfirmTimeout)
	}

	if err := s.module.Stop(); err != nil {
		zlog.Error().Msgf("power: transport stop failed: %v", err)
	}
	if err := s.pins.SetReset(true); err != nil {
		zlog.Error().Msgf("power: failed to assert module reset: %v", err)
	}
	if err := s.pins.SetPower(false); err != nil {
		zlog.Error().Msgf("power: failed to disable module power rail: %v", err)
	}

	s.phase = PhaseOff
	zlog.Info().Msg("power: off")
}
