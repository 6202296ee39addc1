package main

import (
	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
)

// simModule behaves like real hardware across the power lifecycle: it
// reports ready after every Start, answers a logical power-on with an
// analog source report, and confirms power-off.
type simModule struct {
	*chip.Fake
}

func (s *simModule) Start(h chip.Handler) error {
	err := s.Fake.Start(h)
	s.Queue(chip.SystemReady{})
	return err
}

func newSimModule() chip.Module {
	f := chip.NewFake()
	f.Version = "sim-1.2.0"
	f.OnPowerOn = func(f *chip.Fake) {
		f.Queue(
			chip.AudioSourceChanged{Source: session.SourceAnalog},
			chip.StreamStateChanged{Active: false},
		)
	}
	f.OnPowerOff = func(f *chip.Fake) {
		f.Queue(chip.PowerState{On: false})
	}
	return &simModule{Fake: f}
}
