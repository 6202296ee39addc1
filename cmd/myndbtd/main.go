// Command myndbtd runs the Bluetooth status and power engine for the
// Mynd speaker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/marcuz1234/mynd-firmware/internal/app/engine"
	"github.com/marcuz1234/mynd-firmware/internal/app/indicator"
	"github.com/marcuz1234/mynd-firmware/internal/app/notify"
	"github.com/marcuz1234/mynd-firmware/internal/app/power"
	"github.com/marcuz1234/mynd-firmware/internal/domain/session"
	"github.com/marcuz1234/mynd-firmware/internal/domain/status"
	"github.com/marcuz1234/mynd-firmware/internal/infra/chip"
	"github.com/marcuz1234/mynd-firmware/internal/infra/config"
	"github.com/marcuz1234/mynd-firmware/internal/infra/gpio"
	"github.com/marcuz1234/mynd-firmware/internal/infra/kvstore"
	"github.com/marcuz1234/mynd-firmware/internal/infra/logger"
	"github.com/marcuz1234/mynd-firmware/internal/infra/mqtt"
)

var (
	app        = kingpin.New("myndbtd", "Mynd Bluetooth engine daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/myndbtd.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	simChip    = app.Flag("sim-chip", "Use the simulated Bluetooth module").Bool()
	fakeGpio   = app.Flag("fake-gpio", "Use fake power/reset lines (no hardware)").Bool()
)

// iconPlayer forwards indicator requests to the audio subsystem. The
// audio task is an external collaborator; this stand-in logs the
// requests it would forward.
type iconPlayer struct{}

func (iconPlayer) Play(icon indicator.Icon, opt indicator.PlayOptions) error {
	zlog.Info().Msgf("audio: play icon=%s repeat=%t after_current=%t", icon, opt.Repeat, opt.AfterCurrent)
	return nil
}

func (iconPlayer) Stop(icon indicator.Icon) error {
	zlog.Info().Msgf("audio: stop icon=%s", icon)
	return nil
}

// audioRouter forwards committed statuses to the audio-routing
// collaborator.
type audioRouter struct{}

func (audioRouter) StatusChanged(s status.Status) {
	zlog.Info().Msgf("audio: status changed to %s", s)
}

func main() {
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Power/reset lines
	var pins gpio.Pins
	if *fakeGpio {
		pins = gpio.NewFakePins()
		zlog.Warn().Msg("Using fake GPIO pins")
	} else {
		real, err := gpio.NewRealPins(cfg.Gpio.PinPower, cfg.Gpio.PinReset)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		pins = real
	}
	defer pins.Close()

	// Bluetooth module. The vendor UART transport is provided out of
	// tree; without it the daemon runs against the simulator.
	var module chip.Module
	if *simChip {
		module = newSimModule()
		zlog.Warn().Msg("Using simulated Bluetooth module")
	} else {
		return fmt.Errorf("no hardware transport available in this build, run with --sim-chip")
	}

	props := session.NewProperties(session.PropertyDefaults{
		Volume:             cfg.Device.DefaultVolume,
		Color:              cfg.Device.DefaultColor,
		Brightness:         cfg.Device.DefaultBrightness,
		SoundIconsEnabled:  !cfg.Device.DisableSoundIcons,
		OffTimerMinutes:    cfg.Device.OffTimerMinutes,
		BatteryCapacityMAh: cfg.Device.BatteryCapacityMAh,
	})

	store, err := kvstore.Open(cfg.Storage.Path)
	if err != nil {
		zlog.Warn().Msgf("Settings store unavailable, color will not persist: %v", err)
		store = nil
	}

	broadcaster := notify.NewBroadcaster()

	overrides, err := cfg.Indicator.DurationOverrides()
	if err != nil {
		return err
	}
	iconOverrides := make(map[indicator.Icon]time.Duration, len(overrides))
	for name, d := range overrides {
		icon := indicator.IconByName(name)
		if icon == indicator.IconNone {
			zlog.Warn().Msgf("Unknown indicator name in config: %s", name)
			continue
		}
		iconOverrides[icon] = d
	}

	eng := engine.New(engine.Config{
		QueueCapacity: cfg.Engine.QueueCapacity,
		TickPeriod:    time.Duration(cfg.Engine.TickPeriodMs) * time.Millisecond,
		SettleDelay:   time.Duration(cfg.Engine.SettleDelayMs) * time.Millisecond,
		IdleTimeout:   time.Duration(cfg.Engine.IdleTimeoutMs) * time.Millisecond,
		VolumeStep:    cfg.Engine.VolumeStep,
		DefaultColor:  cfg.Device.DefaultColor,
		Power: power.Config{
			ReadyTimeout:      time.Duration(cfg.Power.ReadyTimeoutMs) * time.Millisecond,
			SourceTimeout:     time.Duration(cfg.Power.SourceTimeoutMs) * time.Millisecond,
			OffConfirmTimeout: time.Duration(cfg.Power.OffConfirmTimeoutMs) * time.Millisecond,
			PreOffSettle:      time.Duration(cfg.Power.PreOffSettleMs) * time.Millisecond,
			PollInterval:      time.Duration(cfg.Power.PollIntervalMs) * time.Millisecond,
		},
		Indicator: indicator.Config{
			BootGate:          time.Duration(cfg.Indicator.BootGateMs) * time.Millisecond,
			DurationOverrides: iconOverrides,
		},
	}, engine.Deps{
		Module:      module,
		Pins:        pins,
		Props:       props,
		Player:      iconPlayer{},
		Router:      audioRouter{},
		Broadcaster: broadcaster,
		Store:       store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional MQTT telemetry
	if cfg.Mqtt.Enabled {
		bridge, err := mqtt.NewBridge(mqtt.Config{
			Broker:      cfg.Mqtt.Broker,
			ClientID:    cfg.Mqtt.ClientID,
			TopicPrefix: cfg.Mqtt.TopicPrefix,
		})
		if err != nil {
			zlog.Error().Msgf("MQTT bridge unavailable: %v", err)
		} else {
			id, events := broadcaster.Subscribe(16)
			go bridge.Run(ctx, events)
			defer func() {
				broadcaster.Unsubscribe(id)
				bridge.Close()
			}()
		}
	}

	engineDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engineDone)
	}()

	eng.Post(engine.SetPower{Target: engine.PowerOn})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info().Msg("Received shutdown signal...")

	cancel()
	select {
	case <-engineDone:
	case <-time.After(10 * time.Second):
		zlog.Error().Msg("Engine did not stop in time")
	}

	zlog.Info().Msg("Daemon stopped")
	return nil
}
