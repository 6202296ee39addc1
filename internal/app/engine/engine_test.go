package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcuz1234/mynd-firmware/internal/app/indicator"
	"github.com/marcuz1234/mynd-firmware/internal/app/power"
	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/domain/status"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
	"github.com/marcuz1234/mynd-firmware/internal/infra/gpio"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakePlayer struct {
	played  []indicator.Icon
	opts    []indicator.PlayOptions
	stopped []indicator.Icon
}

func (f *fakePlayer) Play(icon indicator.Icon, opt indicator.PlayOptions) error {
	f.played = append(f.played, icon)
	f.opts = append(f.opts, opt)
	return nil
}

func (f *fakePlayer) Stop(icon indicator.Icon) error {
	f.stopped = append(f.stopped, icon)
	return nil
}

type fakeRouter struct {
	statuses []status.Status
}

func (f *fakeRouter) StatusChanged(s status.Status) {
	f.statuses = append(f.statuses, s)
}

type harness struct {
	e      *Engine
	module *chip.Fake
	pins   *gpio.FakePins
	player *fakePlayer
	router *fakeRouter
	props  *session.Properties
	clk    *fakeClock
}

func testEngineConfig() Config {
	return Config{
		QueueCapacity: 8,
		TickPeriod:    10 * time.Millisecond,
		SettleDelay:   200 * time.Millisecond,
		IdleTimeout:   5 * time.Minute,
		VolumeStep:    4,
		DefaultColor:  3,
		Power: power.Config{
			ReadyTimeout:      500 * time.Millisecond,
			SourceTimeout:     500 * time.Millisecond,
			OffConfirmTimeout: 300 * time.Millisecond,
			PreOffSettle:      100 * time.Millisecond,
			PollInterval:      10 * time.Millisecond,
		},
		Indicator: indicator.Config{BootGate: time.Second},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		module: chip.NewFake(),
		pins:   gpio.NewFakePins(),
		player: &fakePlayer{},
		router: &fakeRouter{},
		props: session.NewProperties(session.PropertyDefaults{
			Volume:            20,
			Color:             1,
			SoundIconsEnabled: true,
		}),
		clk: &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.module.Version = "2.1.0"
	h.e = New(testEngineConfig(), Deps{
		Module: h.module,
		Pins:   h.pins,
		Props:  h.props,
		Player: h.player,
		Router: h.router,
	})
	h.e.SetClock(h.clk.Now)
	h.e.Sequencer().SetClock(h.clk.Now, h.clk.Sleep)
	return h
}

// bootOn powers the module on and settles past the power-on indicator so
// the first status commit lands. The module boots on the analog source.
func (h *harness) bootOn(t *testing.T) {
	t.Helper()
	h.module.Queue(chip.SystemReady{})
	h.module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}
	h.e.handle(SetPower{Target: PowerOn})
	require.Equal(t, power.PhaseOn, h.e.Sequencer().Phase())

	h.clk.Advance(2 * time.Second)
	h.e.tick(h.clk.now)
}

// deliver queues notifications, pumps them on a tick, then advances past
// the settle delay and ticks again so any pending status commits.
func (h *harness) deliver(ns ...chip.Notification) {
	h.module.Queue(ns...)
	h.e.tick(h.clk.now)
	h.clk.Advance(testEngineConfig().SettleDelay)
	h.e.tick(h.clk.now)
}

func TestEngine_BootCommitsDisconnected(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())
	assert.Equal(t, []status.Status{status.BluetoothDisconnected}, h.router.statuses)
	assert.Equal(t, "2.1.0", h.props.FirmwareVersion())
	assert.Equal(t, []indicator.Icon{indicator.IconPowerOn}, h.player.played)
}

func TestEngine_NoCommitBeforeSettleDelay(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.module.Queue(chip.Connected{Address: "aa:bb"})
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())

	h.clk.Advance(testEngineConfig().SettleDelay - time.Millisecond)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())

	h.clk.Advance(time.Millisecond)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothConnected, h.e.Status())
}

func TestEngine_BootGateDefersEarlyCommit(t *testing.T) {
	h := newHarness(t)
	h.module.Queue(chip.SystemReady{})
	h.module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}
	h.e.handle(SetPower{Target: PowerOn})

	// The settle delay alone has elapsed, but the power-on indicator's
	// boot gate is still closed.
	h.clk.Advance(testEngineConfig().SettleDelay * 2)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.None, h.e.Status())

	h.clk.Advance(2 * time.Second)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())
}

func TestEngine_CoalescingRefreshesSettle(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.module.Queue(chip.Connected{Address: "aa:bb"})
	h.e.tick(h.clk.now)

	// A second event just before the deadline restarts the settle window.
	h.clk.Advance(testEngineConfig().SettleDelay - time.Millisecond)
	h.module.Queue(chip.PairingStateChanged{State: session.PairingBluetooth})
	h.e.tick(h.clk.now)

	h.clk.Advance(testEngineConfig().SettleDelay - time.Millisecond)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())

	h.clk.Advance(time.Millisecond)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothPairing, h.e.Status())
}

func TestEngine_AuxPlugStatus(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.e.handle(AuxPlugChanged{Connected: true})
	h.clk.Advance(testEngineConfig().SettleDelay)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.AuxConnected, h.e.Status())

	h.e.handle(AuxPlugChanged{Connected: false})
	h.clk.Advance(testEngineConfig().SettleDelay)
	h.e.tick(h.clk.now)
	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())
}

func TestEngine_ChainRepublishSuppressed(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.deliver(chip.ChainStateChanged{State: session.ChainBroadcasting})
	assert.Equal(t, status.CsbChainMaster, h.e.Status())
	routerCalls := len(h.router.statuses)
	playerCalls := len(h.player.played)

	// An unrelated source change while broadcasting re-derives the same
	// chain status; it must not be republished or replay the indicator.
	h.deliver(chip.AudioSourceChanged{Source: session.SourceA2dp1})
	assert.Equal(t, status.CsbChainMaster, h.e.Status())
	assert.Equal(t, routerCalls, len(h.router.statuses))
	assert.Equal(t, playerCalls, len(h.player.played))
	assert.False(t, h.e.st.PendingStatusUpdate)
}

func TestEngine_LeavingChainPlaysDisconnectIcon(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.deliver(chip.ChainStateChanged{State: session.ChainBroadcasting})
	require.Equal(t, status.CsbChainMaster, h.e.Status())

	h.deliver(chip.ChainStateChanged{State: session.ChainDisabled})
	assert.Equal(t, status.BluetoothDisconnected, h.e.Status())

	lastIcon := h.player.played[len(h.player.played)-1]
	lastOpt := h.player.opts[len(h.player.opts)-1]
	assert.Equal(t, indicator.IconChainDisconnected, lastIcon)
	assert.True(t, lastOpt.AfterCurrent)
}

func TestEngine_ConnectionAccounting(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.deliver(chip.Connected{Address: "aa:bb"})
	assert.Equal(t, 1, h.e.st.ConnectedCount)
	assert.Equal(t, status.BluetoothConnected, h.e.Status())

	h.deliver(chip.Connected{Address: "cc:dd"})
	assert.Equal(t, 2, h.e.st.ConnectedCount)

	// A third connection is rejected without touching the count or
	// scheduling a recomputation.
	h.module.Queue(chip.Connected{Address: "ee:ff"})
	h.e.tick(h.clk.now)
	assert.Equal(t, 2, h.e.st.ConnectedCount)
	assert.False(t, h.e.st.PendingStatusUpdate)

	h.deliver(chip.Disconnected{Address: "aa:bb", Reason: chip.ReasonRemote})
	assert.Equal(t, 1, h.e.st.ConnectedCount)
	assert.Equal(t, status.BluetoothConnected, h.e.Status())
	assert.True(t, h.e.st.Connected)
}

func TestEngine_IdleAutoOff(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	// No peers: the idle timer started on the first powered-on tick.
	h.clk.Advance(testEngineConfig().IdleTimeout)
	h.e.tick(h.clk.now)

	var cmd Command
	select {
	case cmd = <-h.e.queue:
	default:
		t.Fatal("expected an auto power-off command")
	}
	sp, ok := cmd.(SetPower)
	require.True(t, ok)
	assert.Equal(t, PowerOff, sp.Target)

	h.e.handle(cmd)
	assert.Equal(t, power.PhaseOff, h.e.Sequencer().Phase())
	assert.True(t, h.pins.ResetAsserted)
	assert.False(t, h.pins.Power)

	// The request is not repeated while still off.
	h.clk.Advance(testEngineConfig().IdleTimeout * 2)
	h.e.tick(h.clk.now)
	select {
	case cmd = <-h.e.queue:
		t.Fatalf("unexpected command %T while powered off", cmd)
	default:
	}
}

func TestEngine_ResumeNudgeFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.deliver(chip.Connected{Address: "aa:bb"})
	h.deliver(chip.StreamStateChanged{Active: true},
		chip.PairingStateChanged{State: session.PairingBluetooth})
	require.Equal(t, status.BluetoothPairing, h.e.Status())
	assert.Equal(t, 0, h.module.CallCount("play_pause"))

	h.deliver(chip.PairingStateChanged{State: session.PairingIdle})
	assert.Equal(t, status.BluetoothConnected, h.e.Status())
	assert.Equal(t, 1, h.module.CallCount("play_pause"))

	// Later transitions do not replay the nudge.
	h.deliver(chip.Disconnected{Address: "aa:bb", Reason: chip.ReasonRemote})
	assert.Equal(t, 1, h.module.CallCount("play_pause"))
}

func TestEngine_NoNudgeWithoutActiveStream(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.deliver(chip.PairingStateChanged{State: session.PairingBluetooth})
	h.deliver(chip.PairingStateChanged{State: session.PairingIdle})
	assert.Equal(t, 0, h.module.CallCount("play_pause"))
}

func TestEngine_PairingIconLoopsWithStatus(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.deliver(chip.PairingStateChanged{State: session.PairingBluetooth})
	require.Equal(t, status.BluetoothPairing, h.e.Status())
	assert.Equal(t, indicator.IconBtPairing, h.player.played[len(h.player.played)-1])
	assert.True(t, h.player.opts[len(h.player.opts)-1].Repeat)

	h.deliver(chip.PairingStateChanged{State: session.PairingIdle})
	// The perpetual reconciliation stops the loop on the tick after the
	// commit lands.
	h.e.tick(h.clk.now)
	assert.Contains(t, h.player.stopped, indicator.IconBtPairing)
}

func TestEngine_VolumeClamping(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.props.SetVolume(125)
	h.e.handle(VolumeUp{})
	assert.Equal(t, 127, h.props.Volume())
	assert.Equal(t, 1, h.module.CallCount("set_volume:127"))

	// Already at the ceiling: no redundant command.
	h.e.handle(VolumeUp{})
	assert.Equal(t, 1, h.module.CallCount("set_volume:127"))

	h.props.SetVolume(2)
	h.e.handle(VolumeDown{})
	assert.Equal(t, 0, h.props.Volume())
	assert.Equal(t, 1, h.module.CallCount("set_volume:0"))

	h.e.handle(VolumeDown{})
	assert.Equal(t, 1, h.module.CallCount("set_volume:0"))
}

func TestEngine_MediaCommandsRequirePower(t *testing.T) {
	h := newHarness(t)

	h.e.handle(PlayPause{})
	h.e.handle(NextTrack{})
	h.e.handle(PreviousTrack{})
	h.e.handle(StartPairing{})
	h.e.handle(StartChainPairing{})
	assert.Empty(t, h.module.Calls)

	h.bootOn(t)
	h.e.handle(PlayPause{})
	h.e.handle(StartPairing{})
	assert.Equal(t, 1, h.module.CallCount("play_pause"))
	assert.Equal(t, 1, h.module.CallCount("start_pairing"))
}

func TestEngine_PreOffThenOff(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.e.handle(SetPower{Target: PowerPreOff})
	assert.Equal(t, power.PhasePreOff, h.e.Sequencer().Phase())
	assert.Equal(t, indicator.IconPowerOff, h.player.played[len(h.player.played)-1])

	h.e.handle(SetPower{Target: PowerOff})
	assert.Equal(t, power.PhaseOff, h.e.Sequencer().Phase())
	assert.True(t, h.module.Stopped)
}

func TestEngine_WakeUp(t *testing.T) {
	h := newHarness(t)
	h.module.Queue(chip.SystemReady{})
	h.module.OnPowerOn = func(f *chip.Fake) {
		f.Queue(chip.AudioSourceChanged{Source: session.SourceAnalog})
	}

	h.e.handle(WakeUp{})
	assert.Equal(t, power.PhaseOn, h.e.Sequencer().Phase())

	// WakeUp while already on is a no-op.
	h.e.handle(WakeUp{})
	assert.Equal(t, 1, h.module.CallCount("power_on"))
}

func TestEngine_PowerCycleResetsState(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)
	h.deliver(chip.Connected{Address: "aa:bb"})
	require.Equal(t, status.BluetoothConnected, h.e.Status())

	h.e.handle(SetPower{Target: PowerOff})
	require.Equal(t, power.PhaseOff, h.e.Sequencer().Phase())

	h.module.Queue(chip.SystemReady{})
	h.e.handle(SetPower{Target: PowerOn})
	assert.Equal(t, power.PhaseOn, h.e.Sequencer().Phase())
	assert.Equal(t, status.None, h.e.Status())
	assert.Equal(t, 0, h.e.st.ConnectedCount)
	assert.False(t, h.e.st.Connected)
}

func TestEngine_FactoryReset(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)
	h.props.SetColor(7)

	h.e.handle(FactoryReset{})
	assert.Equal(t, 1, h.module.CallCount("clear_paired_devices"))
	assert.Equal(t, testEngineConfig().DefaultColor, h.props.Color())
	assert.Equal(t, 1, h.module.CallCount("notify_color:3"))
}

func TestEngine_BatteryAndCharger(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	h.e.handle(BatteryLevel{Percent: 42})
	assert.Equal(t, 42, h.props.BatteryLevel())
	assert.Equal(t, 1, h.module.CallCount("notify_battery:42"))

	h.e.handle(ChargerStatus{Status: session.ChargerActive})
	assert.Equal(t, session.ChargerActive, h.props.ChargerStatus())
	assert.Equal(t, 1, h.module.CallCount("notify_charger:active:0"))

	h.e.handle(ChargeType{Type: session.ChargeTypeFast})
	assert.Equal(t, session.ChargeTypeFast, h.props.ChargeType())
	assert.Equal(t, 1, h.module.CallCount("notify_charger:active:1"))
}

func TestEngine_HandleRequestGets(t *testing.T) {
	h := newHarness(t)

	// Firmware version is unknown until the first power-on.
	resp := h.e.HandleRequest(chip.Request{Property: chip.PropFirmwareVersion})
	assert.Equal(t, chip.CodeError, resp.Code)

	h.bootOn(t)
	resp = h.e.HandleRequest(chip.Request{Property: chip.PropFirmwareVersion})
	assert.Equal(t, chip.CodeSuccess, resp.Code)
	assert.Equal(t, "2.1.0", resp.Text)

	resp = h.e.HandleRequest(chip.Request{Property: chip.PropColor})
	assert.Equal(t, chip.CodeSuccess, resp.Code)
	assert.Equal(t, 1, resp.Value)

	h.props.SetEcoMode(true)
	resp = h.e.HandleRequest(chip.Request{Property: chip.PropEcoMode})
	assert.Equal(t, 1, resp.Value)
}

func TestEngine_HandleRequestSets(t *testing.T) {
	h := newHarness(t)
	h.bootOn(t)

	resp := h.e.HandleRequest(chip.Request{Property: chip.PropBrightness, Set: true, Value: 80})
	require.Equal(t, chip.CodeSuccess, resp.Code)

	// The set was queued, not applied yet.
	assert.Equal(t, 0, h.props.Brightness())
	cmd := <-h.e.queue
	h.e.handle(cmd)
	assert.Equal(t, 80, h.props.Brightness())

	// Read-only properties reject sets.
	resp = h.e.HandleRequest(chip.Request{Property: chip.PropBatteryCapacity, Set: true, Value: 9})
	assert.Equal(t, chip.CodeError, resp.Code)
	resp = h.e.HandleRequest(chip.Request{Property: chip.PropFirmwareVersion, Set: true, Value: 1})
	assert.Equal(t, chip.CodeError, resp.Code)
}

func TestEngine_PostDropsWhenFull(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < testEngineConfig().QueueCapacity; i++ {
		assert.True(t, h.e.Post(VolumeUp{}))
	}
	assert.False(t, h.e.Post(VolumeUp{}))
}
