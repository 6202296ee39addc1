package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
	"github.com/marcuz1234/mynd-firmware/internal/infra/gpio"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func testConfig() Config {
	return Config{
		ReadyTimeout:      500 * time.Millisecond,
		SourceTimeout:     500 * time.Millisecond,
		OffConfirmTimeout: 300 * time.Millisecond,
		PreOffSettle:      200 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}
}

// recordingHandler mirrors what the engine's notification handler records
// into session state for the fields the sequencer waits on.
func recordingHandler(st *session.State) chip.Handler {
	return func(n chip.Notification) {
		switch v := n.(type) {
		case chip.SystemReady:
			st.SystemReady = true
		case chip.AudioSourceChanged:
			st.Source = v.Source
		case chip.PowerState:
			if !v.On {
				st.PowerOffConfirmed = true
			}
		}
	}
}

func newSequencer(t *testing.T) (*Sequencer, *chip.Fake, *gpio.FakePins, *session.State, *fakeClock) {
	t.Helper()
	module := chip.NewFake()
	pins := gpio.NewFakePins()
	st := &session.State{}
	seq := New(testConfig(), module, pins, st, recordingHandler(st))
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	seq.SetClock(clk.Now, clk.Sleep)
	return seq, module, pins, st, clk
}

func TestSequencer_PowerOnHappyPath(t *testing.T) {
	seq, module, pins, st, _ := newSequencer(t)
	module.Version = "2.1.0"
	module.Queue(chip.SystemReady{})
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceA2dp1})
	}

	assert.NoError(t, seq.PowerOn())
	assert.Equal(t, PhaseOn, seq.Phase())
	assert.Equal(t, "2.1.0", seq.FirmwareVersion())

	assert.True(t, module.Started)
	assert.True(t, st.SystemReady)
	assert.Equal(t, session.SourceA2dp1, st.Source)
	assert.True(t, pins.Power)
	assert.False(t, pins.ResetAsserted)
	assert.Equal(t, 1, module.CallCount("power_on"))
}

func TestSequencer_PowerOnIdempotent(t *testing.T) {
	seq, module, _, _, _ := newSequencer(t)
	module.Queue(chip.SystemReady{})
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}

	assert.NoError(t, seq.PowerOn())
	assert.NoError(t, seq.PowerOn())
	assert.Equal(t, 1, module.CallCount("power_on"))
}

func TestSequencer_PowerOnReadyTimeoutProceeds(t *testing.T) {
	seq, module, _, st, clk := newSequencer(t)
	// No SystemReady queued; the ready wait runs to its deadline.
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}
	start := clk.now

	assert.NoError(t, seq.PowerOn())
	assert.Equal(t, PhaseOn, seq.Phase())
	assert.False(t, st.SystemReady)
	// The fake clock advanced through the whole ready window.
	assert.GreaterOrEqual(t, clk.now.Sub(start), testConfig().ReadyTimeout)
	// The sequence still carried on to the logical power-on.
	assert.Equal(t, 1, module.CallCount("power_on"))
}

func TestSequencer_PowerOnSourceTimeoutProceeds(t *testing.T) {
	seq, module, _, st, clk := newSequencer(t)
	module.Queue(chip.SystemReady{})
	// No audio-source report ever arrives; the wait runs to its deadline
	// and the sequencer still reaches On. Status publication stays blocked
	// upstream while the source is unknown.
	start := clk.now

	assert.NoError(t, seq.PowerOn())
	assert.Equal(t, PhaseOn, seq.Phase())
	assert.Equal(t, session.SourceUnknown, st.Source)
	assert.GreaterOrEqual(t, clk.now.Sub(start), testConfig().SourceTimeout)
}

func TestSequencer_PowerOnVersionFailure(t *testing.T) {
	seq, module, _, _, _ := newSequencer(t)
	module.FailVersion = true
	module.Queue(chip.SystemReady{})
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}

	assert.NoError(t, seq.PowerOn())
	assert.Equal(t, PhaseOn, seq.Phase())
	assert.Equal(t, "", seq.FirmwareVersion())
}

func TestSequencer_PowerOffConfirmed(t *testing.T) {
	seq, module, pins, st, _ := newSequencer(t)
	module.Queue(chip.SystemReady{})
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}
	assert.NoError(t, seq.PowerOn())

	st.PowerOffConfirmed = true // stale; PowerOff must clear it first
	module.OnPowerOff = func(f *chip.Fake) {
		f.Queue(chip.PowerState{On: false})
	}
	start := seq.clock()

	seq.PowerOff()
	assert.Equal(t, PhaseOff, seq.Phase())
	assert.True(t, st.PowerOffConfirmed)
	// The confirmation arrived on the first pump; no deadline wait.
	assert.Less(t, seq.clock().Sub(start), testConfig().OffConfirmTimeout)

	assert.True(t, module.Stopped)
	assert.True(t, pins.ResetAsserted)
	assert.False(t, pins.Power)
}

func TestSequencer_PowerOffTimeoutTearsDownAnyway(t *testing.T) {
	seq, module, pins, st, clk := newSequencer(t)
	module.Queue(chip.SystemReady{})
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}
	assert.NoError(t, seq.PowerOn())

	// No confirmation ever arrives.
	start := clk.now
	seq.PowerOff()

	assert.Equal(t, PhaseOff, seq.Phase())
	assert.False(t, st.PowerOffConfirmed)
	assert.GreaterOrEqual(t, clk.now.Sub(start), testConfig().OffConfirmTimeout)

	// Teardown ran regardless.
	assert.True(t, module.Stopped)
	assert.True(t, pins.ResetAsserted)
	assert.False(t, pins.Power)
}

func TestSequencer_PowerOffIgnoredWhenOff(t *testing.T) {
	seq, module, _, _, _ := newSequencer(t)

	seq.PowerOff()
	assert.Equal(t, PhaseOff, seq.Phase())
	assert.Equal(t, 0, module.CallCount("power_off"))
}

func TestSequencer_PreOff(t *testing.T) {
	seq, module, _, _, clk := newSequencer(t)
	module.Queue(chip.SystemReady{})
	module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}
	assert.NoError(t, seq.PowerOn())

	start := clk.now
	seq.PreOff()
	assert.Equal(t, PhasePreOff, seq.Phase())
	assert.GreaterOrEqual(t, clk.now.Sub(start), testConfig().PreOffSettle)

	// PreOff from any phase but On is ignored.
	seq.PreOff()
	assert.Equal(t, PhasePreOff, seq.Phase())

	seq.PowerOff()
	assert.Equal(t, PhaseOff, seq.Phase())
}

func TestSequencer_PreOffIgnoredWhenOff(t *testing.T) {
	seq, _, _, _, clk := newSequencer(t)
	start := clk.now
	seq.PreOff()
	assert.Equal(t, PhaseOff, seq.Phase())
	assert.Equal(t, start, clk.now)
}
