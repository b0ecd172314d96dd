// Package config loads the daemon configuration from a YAML file.
// Command-line flags take precedence over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/valve-regulator/internal/gpio"
	"github.com/sweeney/valve-regulator/internal/sensor"
	"github.com/sweeney/valve-regulator/internal/telemetry"
	"github.com/sweeney/valve-regulator/internal/valve"
)

// Duration wraps time.Duration to accept "200ms"-style YAML values.
type Duration time.Duration

// UnmarshalYAML parses a duration string like "200ms" or "1s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Control holds the regulation parameters.
type Control struct {
	Target         uint16 `yaml:"target"`
	Hysteresis     uint16 `yaml:"hysteresis"`
	ResponseWindow int    `yaml:"response_window"`
	Steepness      int    `yaml:"steepness"`
}

// Motor holds the valve motor pulse durations.
type Motor struct {
	OpenTime  Duration `yaml:"open_time"`
	CloseTime Duration `yaml:"close_time"`
}

// Sensor holds the measurement timing.
type Sensor struct {
	ChargeTimeout Duration `yaml:"charge_timeout"`
	Window        Duration `yaml:"window"`
}

// Pins holds the BCM GPIO pin assignments.
type Pins struct {
	Charge     int `yaml:"charge"`
	Comparator int `yaml:"comparator"`
	Open       int `yaml:"open"`
	Close      int `yaml:"close"`
}

// MQTT holds the broker settings.
type MQTT struct {
	Broker string `yaml:"broker"`
}

// HTTP holds the status server settings.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Command holds the serial command port settings. An empty Port disables
// the command responder.
type Command struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// Config is the full daemon configuration.
type Config struct {
	Control Control `yaml:"control"`
	Motor   Motor   `yaml:"motor"`
	Sensor  Sensor  `yaml:"sensor"`
	Pins    Pins    `yaml:"pins"`
	MQTT    MQTT    `yaml:"mqtt"`
	HTTP    HTTP    `yaml:"http"`
	Command Command `yaml:"command"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		Control: Control{
			Target:         5800,
			Hysteresis:     50,
			ResponseWindow: 120,
			Steepness:      4,
		},
		Motor: Motor{
			OpenTime:  Duration(valve.DefaultOpenTime),
			CloseTime: Duration(valve.DefaultCloseTime),
		},
		Sensor: Sensor{
			ChargeTimeout: Duration(sensor.DefaultChargeTimeout),
			Window:        Duration(sensor.DefaultWindow),
		},
		Pins: Pins{
			Charge:     gpio.DefaultPinCharge,
			Comparator: gpio.DefaultPinComparator,
			Open:       gpio.DefaultPinOpen,
			Close:      gpio.DefaultPinClose,
		},
		MQTT: MQTT{Broker: "tcp://192.168.1.200:1883"},
		HTTP: HTTP{Addr: ":80"},
		Command: Command{
			BaudRate: telemetry.DefaultBaudRate,
		},
	}
}

// Load reads the YAML file at path over the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
