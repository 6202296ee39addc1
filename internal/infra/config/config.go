// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Power     PowerConfig     `yaml:"power"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Gpio      GpioConfig      `yaml:"gpio"`
	Mqtt      MqttConfig      `yaml:"mqtt"`
	Storage   StorageConfig   `yaml:"storage"`
	Device    DeviceConfig    `yaml:"device"`
}

// EngineConfig tunes the router and the status commit gate.
type EngineConfig struct {
	QueueCapacity int `yaml:"queue_capacity" default:"8" validate:"gte=1,lte=64"`
	TickPeriodMs  int `yaml:"tick_period_ms" default:"10" validate:"gte=1,lte=1000"`
	SettleDelayMs int `yaml:"settle_delay_ms" default:"200" validate:"gte=0,lte=5000"`
	IdleTimeoutMs int `yaml:"idle_timeout_ms" default:"300000" validate:"gte=1000"`
	VolumeStep    int `yaml:"volume_step" default:"4" validate:"gte=1,lte=32"`
}

// PowerConfig tunes the power sequencer's bounded waits.
type PowerConfig struct {
	ReadyTimeoutMs      int `yaml:"ready_timeout_ms" default:"1800" validate:"gte=0"`
	SourceTimeoutMs     int `yaml:"source_timeout_ms" default:"1500" validate:"gte=0"`
	OffConfirmTimeoutMs int `yaml:"off_confirm_timeout_ms" default:"1000" validate:"gte=0"`
	PreOffSettleMs      int `yaml:"pre_off_settle_ms" default:"1600" validate:"gte=0"`
	PollIntervalMs      int `yaml:"poll_interval_ms" default:"10" validate:"gte=1,lte=100"`
}

// IndicatorConfig tunes the indicator scheduler. Durations holds per-icon
// nominal playtime overrides in milliseconds, keyed by icon name.
type IndicatorConfig struct {
	BootGateMs int            `yaml:"boot_gate_ms" default:"1000" validate:"gte=0"`
	Durations  map[string]any `yaml:"durations,omitempty"`
}

// GpioConfig selects the module power and reset line offsets.
type GpioConfig struct {
	PinPower int `yaml:"pin_power" default:"22" validate:"gte=0"`
	PinReset int `yaml:"pin_reset" default:"23" validate:"gte=0"`
}

// MqttConfig configures the optional status telemetry bridge.
type MqttConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker" default:"tcp://localhost:1883"`
	ClientID    string `yaml:"client_id" default:"myndbtd"`
	TopicPrefix string `yaml:"topic_prefix" default:"mynd/bluetooth"`
}

// StorageConfig locates the persisted settings file.
type StorageConfig struct {
	Path string `yaml:"path" default:"/var/lib/myndbtd/settings.yaml"`
}

// DeviceConfig seeds the shared device properties.
type DeviceConfig struct {
	DefaultColor       int  `yaml:"default_color" default:"0" validate:"gte=0"`
	DefaultVolume      int  `yaml:"default_volume" default:"40" validate:"gte=0,lte=127"`
	DefaultBrightness  int  `yaml:"default_brightness" default:"80" validate:"gte=0,lte=100"`
	DisableSoundIcons  bool `yaml:"disable_sound_icons"`
	OffTimerMinutes    int  `yaml:"off_timer_minutes" default:"0" validate:"gte=0"`
	BatteryCapacityMAh int  `yaml:"battery_capacity_mah" default:"4800" validate:"gte=0"`
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables take precedence over file values for
// deployment-specific fields.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MYNDBTD_MQTT_BROKER"); v != "" {
		c.Mqtt.Broker = v
	}
	if v := os.Getenv("MYNDBTD_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if _, err := c.Indicator.DurationOverrides(); err != nil {
		return err
	}
	return nil
}

// DurationOverrides decodes the loose duration map into per-icon-name
// durations.
func (c *IndicatorConfig) DurationOverrides() (map[string]time.Duration, error) {
	if len(c.Durations) == 0 {
		return nil, nil
	}

	ms := make(map[string]int, len(c.Durations))
	if err := mapstructure.Decode(c.Durations, &ms); err != nil {
		return nil, errors.Wrap(err, "invalid indicator durations")
	}

	out := make(map[string]time.Duration, len(ms))
	for name, v := range ms {
		if v < 0 {
			return nil, errors.Newf("indicator duration for %q must be >= 0", name)
		}
		out[name] = time.Duration(v) * time.Millisecond
	}
	return out, nil
}
