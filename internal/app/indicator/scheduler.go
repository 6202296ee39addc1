package indicator

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Player plays and stops icons on the audio subsystem.
type Player interface {
	Play(icon Icon, opt PlayOptions) error
	Stop(icon Icon) error
}

// PlayOptions qualifies a play request.
type PlayOptions struct {
	// Repeat loops the icon until a stop is issued.
	Repeat bool

	// AfterCurrent queues the icon behind the currently playing one
	// instead of playing immediately.
	AfterCurrent bool
}

// Config tunes the scheduler.
type Config struct {
	// BootGate is the minimum time after the power-on icon began before
	// a status commit is allowed, unless the icon has settled.
	BootGate time.Duration

	// DurationOverrides replaces nominal durations per icon.
	DurationOverrides map[Icon]time.Duration
}

type perpetualEntry struct {
	icon Icon
	cond func() bool
}

// Scheduler decides which icon plays for a transition and reconciles
// perpetual icons each tick. Only one icon is considered active at a time;
// starting a new one supersedes bookkeeping for the previous.
//
// The scheduler is owned by the engine goroutine and is not safe for
// concurrent use.
type Scheduler struct {
	player    Player
	enabled   func() bool
	bootGate  time.Duration
	durations map[Icon]time.Duration

	perpetual []perpetualEntry

	current      Icon
	currentStart time.Time

	// Power-on settle bookkeeping. Zero start means the icon never began.
	// Settled is permanent once set, even with icons disabled.
	powerOnStart   time.Time
	powerOnSettled bool
}

// New creates a scheduler. The enabled callback reads the sound-icons
// property; it is consulted on every request.
func New(player Player, enabled func() bool, cfg Config) *Scheduler {
	durations := make(map[Icon]time.Duration, len(nominalDurations))
	for icon, d := range nominalDurations {
		durations[icon] = d
	}
	for icon, d := range cfg.DurationOverrides {
		durations[icon] = d
	}
	return &Scheduler{
		player:    player,
		enabled:   enabled,
		bootGate:  cfg.BootGate,
		durations: durations,
	}
}

// Register binds a perpetual icon to its owning condition. Registered
// icons are reconciled on every tick, in registration order.
func (s *Scheduler) Register(icon Icon, cond func() bool) {
	s.perpetual = append(s.perpetual, perpetualEntry{icon: icon, cond: cond})
}

// Duration returns the nominal playtime of an icon.
func (s *Scheduler) Duration(icon Icon) time.Duration {
	return s.durations[icon]
}

// Active returns the icon currently considered active.
func (s *Scheduler) Active() Icon {
	return s.current
}

// Play requests an icon. When icons are disabled the request is a no-op
// apart from the power-on settle bookkeeping.
func (s *Scheduler) Play(now time.Time, icon Icon, opt PlayOptions) {
	if icon == IconPowerOn && s.powerOnStart.IsZero() {
		s.powerOnStart = now
	}

	if !s.enabled() {
		zlog.Debug().Msgf("indicator: sound icons disabled, dropping play request: icon=%s", icon)
		return
	}

	start := now
	if opt.AfterCurrent && s.current != IconNone {
		queued := s.currentStart.Add(s.durations[s.current])
		if queued.After(start) {
			start = queued
		}
	}

	if err := s.player.Play(icon, opt); err != nil {
		zlog.Error().Msgf("indicator: failed to play icon %s: %v", icon, err)
		return
	}

	zlog.Debug().Msgf("indicator: playing icon=%s repeat=%t after_current=%t", icon, opt.Repeat, opt.AfterCurrent)
	s.current = icon
	s.currentStart = start
}

// StopRequest stops an icon. No-op (logged) when icons are disabled.
func (s *Scheduler) StopRequest(icon Icon) {
	if !s.enabled() {
		zlog.Debug().Msgf("indicator: sound icons disabled, dropping stop request: icon=%s", icon)
		return
	}

	if err := s.player.Stop(icon); err != nil {
		zlog.Error().Msgf("indicator: failed to stop icon %s: %v", icon, err)
	}
	if s.current == icon {
		s.current = IconNone
		s.currentStart = time.Time{}
	}
}

// Tick runs the settle check and the perpetual reconciliation. The settle
// check runs even when icons are disabled.
func (s *Scheduler) Tick(now time.Time) {
	if !s.powerOnSettled && !s.powerOnStart.IsZero() &&
		now.Sub(s.powerOnStart) >= s.durations[IconPowerOn] {
		s.powerOnSettled = true
		zlog.Debug().Msg("indicator: power-on icon settled")
	}

	if !s.enabled() {
		return
	}

	for _, p := range s.perpetual {
		active := p.cond()
		switch {
		case active && s.current != p.icon:
			// Start once the previously active icon's nominal playtime
			// has elapsed since it began.
			if s.current != IconNone && now.Sub(s.currentStart) < s.durations[s.current] {
				continue
			}
			s.Play(now, p.icon, PlayOptions{Repeat: true})
		case !active && s.current == p.icon:
			s.StopRequest(p.icon)
		}
	}
}

// GateOpen reports whether the boot gate allows a status commit: icons
// disabled, power-on icon settled, never started, or the boot gate
// duration elapsed since it began.
func (s *Scheduler) GateOpen(now time.Time) bool {
	if !s.enabled() || s.powerOnSettled || s.powerOnStart.IsZero() {
		return true
	}
	return now.Sub(s.powerOnStart) >= s.bootGate
}

// PowerOnSettled reports whether the power-on icon has fully settled.
func (s *Scheduler) PowerOnSettled() bool {
	return s.powerOnSettled
}

// ResetForPowerOn clears per-cycle bookkeeping at the start of an
// Off -> On transition.
func (s *Scheduler) ResetForPowerOn() {
	s.current = IconNone
	s.currentStart = time.Time{}
	s.powerOnStart = time.Time{}
	s.powerOnSettled = false
}
