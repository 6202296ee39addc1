// Package engine routes hardware notifications and subsystem commands
// into the session state, arbitrates the canonical status, and drives the
// indicator scheduler and power sequencer.
package engine

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/app/idle"
	"github.com/marcuz1234/mynd-firmware/internal/app/indicator"
	"github.com/marcuz1234/mynd-firmware/internal/app/notify"
	"github.com/marcuz1234/mynd-firmware/internal/app/power"
	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/domain/status"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
	"github.com/marcuz1234/mynd-firmware/internal/infra/gpio"
	"github.com/marcuz1234/mynd-firmware/internal/infra/kvstore"
)

// maxVolume is the absolute volume ceiling (AVRCP scale).
const maxVolume = 127

// AudioRouter receives the committed status downstream.
type AudioRouter interface {
	StatusChanged(s status.Status)
}

// Config tunes the engine.
type Config struct {
	// QueueCapacity bounds the command FIFO.
	QueueCapacity int

	// TickPeriod is the idle tick period.
	TickPeriod time.Duration

	// SettleDelay is the minimum time between the triggering event and a
	// status commit.
	SettleDelay time.Duration

	// IdleTimeout is the zero-connection time before auto power-off.
	IdleTimeout time.Duration

	// VolumeStep is the absolute-volume step for VolumeUp/VolumeDown.
	VolumeStep int

	// DefaultColor is restored on factory reset.
	DefaultColor int

	// Power tunes the sequencer.
	Power power.Config

	// Indicator tunes the scheduler.
	Indicator indicator.Config
}

// Deps are the engine's collaborators.
type Deps struct {
	Module      chip.Module
	Pins        gpio.Pins
	Props       *session.Properties
	Player      indicator.Player
	Router      AudioRouter
	Broadcaster *notify.Broadcaster

	// Store persists the color value. Optional.
	Store *kvstore.Store
}

// Engine owns the session state. All mutation happens on the goroutine
// running Run; notification handlers are invoked synchronously from
// transport pumps on that same goroutine and only record facts.
type Engine struct {
	cfg   Config
	deps  Deps
	st    *session.State
	icons *indicator.Scheduler
	idler *idle.Accountant
	seq   *power.Sequencer

	queue chan Command
	clock func() time.Time

	last status.Status
}

// New creates the engine and wires its subcomponents.
func New(cfg Config, deps Deps) *Engine {
	e := &Engine{
		cfg:   cfg,
		deps:  deps,
		st:    session.NewState(),
		queue: make(chan Command, cfg.QueueCapacity),
		clock: time.Now,
	}
	e.idler = idle.New(cfg.IdleTimeout)
	e.icons = indicator.New(deps.Player, deps.Props.SoundIconsEnabled, cfg.Indicator)
	e.seq = power.New(cfg.Power, deps.Module, deps.Pins, e.st, e.onNotification)

	// Pairing icons loop while their status holds.
	e.icons.Register(indicator.IconBtPairing, func() bool { return e.last == status.BluetoothPairing })
	e.icons.Register(indicator.IconSlavePairing, func() bool { return e.last == status.SlavePairing })

	if deps.Store != nil {
		if c, ok := deps.Store.Color(); ok {
			deps.Props.SetColor(c)
		}
	}
	return e
}

// SetClock overrides the time source, for tests. The sequencer keeps its
// own clock; tests override both.
func (e *Engine) SetClock(now func() time.Time) {
	e.clock = now
}

// Sequencer exposes the power sequencer, for tests and wiring.
func (e *Engine) Sequencer() *power.Sequencer {
	return e.seq
}

// Status returns the last published status.
func (e *Engine) Status() status.Status {
	return e.last
}

// Post enqueues a command. Returns false when the queue is full; the
// command is dropped with a warning.
func (e *Engine) Post(cmd Command) bool {
	select {
	case e.queue <- cmd:
		return true
	default:
		zlog.Warn().Msgf("engine: command queue full, dropping %T", cmd)
		return false
	}
}

// Run processes commands and ticks until the context is cancelled. On
// cancellation the module is powered off if it is not already.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickPeriod)
	defer ticker.Stop()

	zlog.Info().Msgf("engine: running, tick=%v queue=%d", e.cfg.TickPeriod, e.cfg.QueueCapacity)
	for {
		select {
		case <-ctx.Done():
			if e.seq.Phase() != power.PhaseOff {
				e.seq.PowerOff()
			}
			zlog.Info().Msg("engine: stopped")
			return
		case cmd := <-e.queue:
			e.handle(cmd)
		case <-ticker.C:
			e.tick(e.clock())
		}
	}
}

// tick drives the transport pump, the indicator settle and reconciliation
// checks, the gated status commit, and the idle auto-off check.
func (e *Engine) tick(now time.Time) {
	if e.seq.Phase() != power.PhaseOff {
		e.deps.Module.Pump()
	}

	e.icons.Tick(now)
	e.maybeCommit(now)

	if e.idler.Tick(now, e.seq.Phase() == power.PhaseOn) {
		e.Post(SetPower{Target: PowerOff})
	}
}

// markPending schedules a status recomputation. Rapid successive events
// coalesce by refreshing the timestamp.
func (e *Engine) markPending(now time.Time) {
	e.st.PendingStatusUpdate = true
	e.st.PendingSince = now
}

// onNotification records a hardware notification into session state. It
// runs on the engine goroutine, called synchronously from a transport
// pump. It must not call back into the transport.
func (e *Engine) onNotification(n chip.Notification) {
	now := e.clock()
	switch n := n.(type) {
	case chip.SystemReady:
		e.st.SystemReady = true
	case chip.PowerState:
		if !n.On {
			e.st.PowerOffConfirmed = true
		}
	case chip.AudioSourceChanged:
		e.st.Source = n.Source
		e.markPending(now)
	case chip.VolumeChanged:
		e.deps.Props.SetVolume(n.Volume)
	case chip.StreamStateChanged:
		e.st.StreamActive = n.Active
	case chip.Connected:
		if e.idler.Connect(n.Address) {
			e.st.ConnectedCount = e.idler.Count()
			e.st.Connected = true
			e.markPending(now)
		}
	case chip.Disconnected:
		zlog.Debug().Msgf("engine: disconnect from %s, reason=%s", n.Address, n.Reason)
		if e.idler.Disconnect(n.Address, now) {
			e.st.ConnectedCount = e.idler.Count()
			e.st.Connected = e.st.ConnectedCount > 0
			e.markPending(now)
		}
	case chip.PairingStateChanged:
		e.st.Pairing = n.State
		e.markPending(now)
	case chip.ChainStateChanged:
		zlog.Debug().Msgf("engine: chain state %s, reason=%s", n.State, n.Reason)
		e.st.Chain = n.State
		e.markPending(now)
	case chip.UsbSourceChanged:
		e.st.UsbSourceAvailable = n.Available
		e.markPending(now)
	case chip.DfuModeChanged:
		e.st.DfuActive = n.Active
		e.markPending(now)
	}
}

// iconForStatus maps a committed status to its indicator. Pairing icons
// repeat until their status ends.
func iconForStatus(s status.Status) (indicator.Icon, bool, bool) {
	switch s {
	case status.BluetoothPairing:
		return indicator.IconBtPairing, true, true
	case status.SlavePairing:
		return indicator.IconSlavePairing, true, true
	case status.CsbChainMaster:
		return indicator.IconChainMaster, false, true
	case status.ChainSlave:
		return indicator.IconChainSlave, false, true
	default:
		return indicator.IconNone, false, false
	}
}

// maybeCommit commits a pending status recomputation once the settle
// delay and the power-on indicator gate allow it.
func (e *Engine) maybeCommit(now time.Time) {
	if !e.st.PendingStatusUpdate {
		return
	}
	if e.st.Source == session.SourceUnknown {
		return
	}
	if now.Sub(e.st.PendingSince) < e.cfg.SettleDelay {
		return
	}
	if !e.icons.GateOpen(now) {
		return
	}

	e.st.PendingStatusUpdate = false
	next := status.Derive(status.Snap(e.st))

	if status.SuppressRepublish(e.last, next) {
		zlog.Debug().Msgf("engine: suppressing duplicate %s", next)
		return
	}

	prev := e.last
	e.last = next
	zlog.Info().Msgf("engine: status %s -> %s", prev, next)

	if icon, repeat, ok := iconForStatus(next); ok {
		e.icons.Play(now, icon, indicator.PlayOptions{Repeat: repeat})
	} else if prev.IsChainRole() {
		e.icons.Play(now, indicator.IconChainDisconnected, indicator.PlayOptions{AfterCurrent: true})
	}

	e.deps.Router.StatusChanged(next)
	if e.deps.Broadcaster != nil {
		e.deps.Broadcaster.Publish(notify.Event{Status: next, Previous: prev, At: now})
	}

	// Resume a stream interrupted by a pairing episode, once.
	if next.IsPairing() {
		if e.st.StreamActive && !prev.IsPairing() {
			e.st.ResumeNudgeArmed = true
		}
	} else if e.st.ResumeNudgeArmed {
		e.st.ResumeNudgeArmed = false
		if err := e.deps.Module.PlayPause(); err != nil {
			zlog.Error().Msgf("engine: resume nudge failed: %v", err)
		} else {
			zlog.Debug().Msg("engine: resumed stream after pairing")
		}
	}
}

// handle dispatches one command. Power handlers block until the phase
// settles; the queue keeps accepting messages meanwhile.
func (e *Engine) handle(cmd Command) {
	now := e.clock()
	switch c := cmd.(type) {
	case SetPower:
		e.handleSetPower(c.Target)
	case BatteryLevel:
		e.deps.Props.SetBatteryLevel(c.Percent)
		if err := e.deps.Module.NotifyBattery(c.Percent); err != nil {
			zlog.Error().Msgf("engine: battery notify failed: %v", err)
		}
	case ChargerStatus:
		e.deps.Props.SetChargerStatus(c.Status)
		e.notifyCharger()
	case ChargeType:
		e.deps.Props.SetChargeType(c.Type)
		e.notifyCharger()
	case SetColor:
		e.applyColor(c.Color)
	case RadioReady:
		e.st.SystemReady = true
	case WakeUp:
		if e.seq.Phase() == power.PhaseOff {
			e.handleSetPower(PowerOn)
		} else {
			zlog.Debug().Msgf("engine: wake-up ignored in phase %s", e.seq.Phase())
		}
	case VolumeUp:
		e.nudgeVolume(e.cfg.VolumeStep)
	case VolumeDown:
		e.nudgeVolume(-e.cfg.VolumeStep)
	case StartPairing:
		if !e.requireOn("start pairing") {
			return
		}
		if err := e.deps.Module.StartPairing(); err != nil {
			zlog.Error().Msgf("engine: failed to start pairing: %v", err)
		}
	case StartChainPairing:
		if !e.requireOn("start chain pairing") {
			return
		}
		if err := e.deps.Module.StartChainPairing(); err != nil {
			zlog.Error().Msgf("engine: failed to start chain pairing: %v", err)
		}
	case StopPairing:
		if err := e.deps.Module.StopPairing(); err != nil {
			zlog.Error().Msgf("engine: failed to stop pairing (reason=%s): %v", c.Reason, err)
		}
	case StopChain:
		if err := e.deps.Module.StopChain(c.Reason); err != nil {
			zlog.Error().Msgf("engine: failed to stop chain (reason=%s): %v", c.Reason, err)
		}
	case AuxPlugChanged:
		if e.st.PlugConnected != c.Connected {
			e.st.PlugConnected = c.Connected
			e.markPending(now)
		}
	case UsbPlugChanged:
		if e.st.PlugConnected != c.Connected {
			e.st.PlugConnected = c.Connected
			e.markPending(now)
		}
	case EnterDfu:
		if err := e.deps.Module.EnterDfu(); err != nil {
			zlog.Error().Msgf("engine: failed to enter DFU: %v", err)
		}
	case ClearPairedList:
		if err := e.deps.Module.ClearPairedDevices(); err != nil {
			zlog.Error().Msgf("engine: failed to clear paired devices: %v", err)
		}
	case FactoryReset:
		e.factoryReset()
	case PlayPause:
		if !e.requireOn("play/pause") {
			return
		}
		if err := e.deps.Module.PlayPause(); err != nil {
			zlog.Error().Msgf("engine: play/pause failed: %v", err)
		}
	case NextTrack:
		if !e.requireOn("next track") {
			return
		}
		if err := e.deps.Module.NextTrack(); err != nil {
			zlog.Error().Msgf("engine: next track failed: %v", err)
		}
	case PreviousTrack:
		if !e.requireOn("previous track") {
			return
		}
		if err := e.deps.Module.PreviousTrack(); err != nil {
			zlog.Error().Msgf("engine: previous track failed: %v", err)
		}
	case PlayIndicator:
		e.icons.Play(now, c.Icon, indicator.PlayOptions{AfterCurrent: c.AfterCurrent})
	case StopIndicator:
		e.icons.StopRequest(c.Icon)
	case EcoModeNotify:
		e.deps.Props.SetEcoMode(c.Enabled)
		if err := e.deps.Module.NotifyEcoMode(c.Enabled); err != nil {
			zlog.Error().Msgf("engine: eco mode notify failed: %v", err)
		}
	case SetProperty:
		e.applyProperty(c)
	default:
		zlog.Warn().Msgf("engine: unhandled command %T", cmd)
	}
}

// requireOn guards commands that need the module powered on.
func (e *Engine) requireOn(what string) bool {
	if e.seq.Phase() != power.PhaseOn {
		zlog.Debug().Msgf("engine: ignoring %s in phase %s", what, e.seq.Phase())
		return false
	}
	return true
}

func (e *Engine) handleSetPower(target PowerTarget) {
	switch target {
	case PowerOn:
		if e.seq.Phase() != power.PhaseOff {
			zlog.Debug().Msgf("engine: power on ignored in phase %s", e.seq.Phase())
			return
		}
		e.st.ResetForPowerOn()
		e.idler.Reset()
		e.icons.ResetForPowerOn()
		e.last = status.None
		if err := e.seq.PowerOn(); err != nil {
			zlog.Error().Msgf("engine: power on failed: %v", err)
			return
		}
		e.deps.Props.SetFirmwareVersion(e.seq.FirmwareVersion())
		e.icons.Play(e.clock(), indicator.IconPowerOn, indicator.PlayOptions{})
	case PowerPreOff:
		if e.seq.Phase() != power.PhaseOn {
			zlog.Debug().Msgf("engine: pre-off ignored in phase %s", e.seq.Phase())
			return
		}
		e.icons.Play(e.clock(), indicator.IconPowerOff, indicator.PlayOptions{})
		e.seq.PreOff()
	case PowerOff:
		e.seq.PowerOff()
	}
}

func (e *Engine) notifyCharger() {
	if err := e.deps.Module.NotifyCharger(e.deps.Props.ChargerStatus(), e.deps.Props.ChargeType()); err != nil {
		zlog.Error().Msgf("engine: charger notify failed: %v", err)
	}
}

func (e *Engine) nudgeVolume(delta int) {
	v := e.deps.Props.Volume() + delta
	if v < 0 {
		v = 0
	}
	if v > maxVolume {
		v = maxVolume
	}
	if v == e.deps.Props.Volume() {
		return
	}
	e.deps.Props.SetVolume(v)
	if err := e.deps.Module.SetAbsoluteVolume(v); err != nil {
		zlog.Error().Msgf("engine: volume change failed: %v", err)
	}
}

func (e *Engine) applyColor(c int) {
	e.deps.Props.SetColor(c)
	if e.deps.Store != nil {
		if err := e.deps.Store.SetColor(c); err != nil {
			zlog.Error().Msgf("engine: failed to persist color: %v", err)
		}
	}
	if err := e.deps.Module.NotifyColor(c); err != nil {
		zlog.Error().Msgf("engine: color notify failed: %v", err)
	}
}

func (e *Engine) factoryReset() {
	zlog.Info().Msg("engine: factory reset")
	if err := e.deps.Module.ClearPairedDevices(); err != nil {
		zlog.Error().Msgf("engine: failed to clear paired devices: %v", err)
	}
	e.applyColor(e.cfg.DefaultColor)
}

func (e *Engine) applyProperty(c SetProperty) {
	switch c.Property {
	case chip.PropColor:
		e.applyColor(c.Value)
	case chip.PropOffTimer:
		e.deps.Props.SetOffTimerMinutes(c.Value)
	case chip.PropBrightness:
		e.deps.Props.SetBrightness(c.Value)
	case chip.PropBass:
		e.deps.Props.SetBass(c.Value)
	case chip.PropTreble:
		e.deps.Props.SetTreble(c.Value)
	case chip.PropEcoMode:
		on := c.Value != 0
		e.deps.Props.SetEcoMode(on)
		if err := e.deps.Module.NotifyEcoMode(on); err != nil {
			zlog.Error().Msgf("engine: eco mode notify failed: %v", err)
		}
	case chip.PropSoundIcons:
		e.deps.Props.SetSoundIconsEnabled(c.Value != 0)
	case chip.PropBatteryFriendlyCharging:
		e.deps.Props.SetBatteryFriendlyCharging(c.Value != 0)
	default:
		zlog.Warn().Msgf("engine: property %s is read-only", c.Property)
	}
}
