package engine

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
)

// boolValue converts a boolean property to its wire value.
func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}

// HandleRequest answers a chip-initiated property query. Gets are
// synchronous reads of the shared properties record; sets post a command
// to the engine queue. Safe to call from outside the engine goroutine.
func (e *Engine) HandleRequest(req chip.Request) chip.Response {
	if req.Set {
		return e.handleSet(req)
	}
	return e.handleGet(req)
}

func (e *Engine) handleGet(req chip.Request) chip.Response {
	p := e.deps.Props
	switch req.Property {
	case chip.PropFirmwareVersion:
		v := p.FirmwareVersion()
		if v == "" {
			return chip.Errored()
		}
		return chip.OkText(v)
	case chip.PropColor:
		return chip.Ok(p.Color())
	case chip.PropOffTimer:
		return chip.Ok(p.OffTimerMinutes())
	case chip.PropBrightness:
		return chip.Ok(p.Brightness())
	case chip.PropBass:
		return chip.Ok(p.Bass())
	case chip.PropTreble:
		return chip.Ok(p.Treble())
	case chip.PropEcoMode:
		return chip.Ok(boolValue(p.EcoMode()))
	case chip.PropSoundIcons:
		return chip.Ok(boolValue(p.SoundIconsEnabled()))
	case chip.PropBatteryFriendlyCharging:
		return chip.Ok(boolValue(p.BatteryFriendlyCharging()))
	case chip.PropBatteryCapacity:
		return chip.Ok(p.BatteryCapacity())
	case chip.PropBatteryMaxCapacity:
		return chip.Ok(p.BatteryMaxCapacity())
	default:
		zlog.Warn().Msgf("engine: get for unknown property %d", req.Property)
		return chip.Errored()
	}
}

func (e *Engine) handleSet(req chip.Request) chip.Response {
	var cmd Command
	switch req.Property {
	case chip.PropColor:
		cmd = SetColor{Color: req.Value}
	case chip.PropOffTimer, chip.PropBrightness, chip.PropBass, chip.PropTreble,
		chip.PropEcoMode, chip.PropSoundIcons, chip.PropBatteryFriendlyCharging:
		cmd = SetProperty{Property: req.Property, Value: req.Value}
	default:
		zlog.Warn().Msgf("engine: set rejected for read-only property %s", req.Property)
		return chip.Errored()
	}

	if !e.Post(cmd) {
		return chip.Errored()
	}
	return chip.Ok(req.Value)
}
