package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/moodlights/model"
)

var ErrInvalid = errors.New("invalid config")

var Transports = []string{"serial", "spi", "strip", "mqtt", "console"}

type Serial struct {
	Port string `yaml:"port" env:"MOODLIGHTS_SERIAL_PORT"` // e.g. /dev/ttyUSB0
	Baud int    `yaml:"baud" env:"MOODLIGHTS_SERIAL_BAUD"`
}

type SPI struct {
	Dev     string `yaml:"dev" env:"MOODLIGHTS_SPI_DEV"`           // "" picks the first port
	SpeedHz int    `yaml:"speed_hz" env:"MOODLIGHTS_SPI_SPEED_HZ"` // framed output only
}

type MQTT struct {
	Broker   string `yaml:"broker" env:"MOODLIGHTS_MQTT_BROKER"`
	ClientID string `yaml:"client_id" env:"MOODLIGHTS_MQTT_CLIENT_ID"`
	Username string `yaml:"username,omitempty" env:"MOODLIGHTS_MQTT_USERNAME"`
	Password string `yaml:"password,omitempty" env:"MOODLIGHTS_MQTT_PASSWORD"`
	Prefix   string `yaml:"prefix" env:"MOODLIGHTS_MQTT_PREFIX"`
}

type Config struct {
	Source      int    `yaml:"source" env:"MOODLIGHTS_SOURCE"`
	Destination int    `yaml:"destination" env:"MOODLIGHTS_DESTINATION"`
	Transport   string `yaml:"transport" env:"MOODLIGHTS_TRANSPORT"` // serial | spi | strip | mqtt | console
	Effect      string `yaml:"effect,omitempty" env:"MOODLIGHTS_EFFECT"`
	FPS         int    `yaml:"fps" env:"MOODLIGHTS_FPS"`
	LogLevel    string `yaml:"log_level" env:"MOODLIGHTS_LOG_LEVEL"`

	// Initial lamp colors, lamp 0 first. Missing lamps stay black.
	Lamps []model.Color `yaml:"lamps,omitempty"`

	Serial Serial `yaml:"serial"`
	SPI    SPI    `yaml:"spi"`
	MQTT   MQTT   `yaml:"mqtt"`
}

func Default() *Config {
	return &Config{
		Source:      1,
		Destination: 2,
		Transport:   "console",
		FPS:         30,
		LogLevel:    "info",
		Serial:      Serial{Port: "/dev/ttyUSB0", Baud: 9600},
		SPI:         SPI{SpeedHz: 1000000},
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "moodlights",
			Prefix:   "moodlights",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file skips the file. Environment variables are applied last.
// On error the returned config is nil.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	if err := ApplyEnv(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from MOODLIGHTS_* variables. Unset variables
// leave the field alone.
func ApplyEnv(c *Config) error {
	for _, v := range []interface{}{c, &c.Serial, &c.SPI, &c.MQTT} {
		if err := env.Parse(v); err != nil {
			return fmt.Errorf("env: %w", err)
		}
	}
	return nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func validAddress(v int) bool {
	return v >= 0 && v <= 0xFF
}

func (c *Config) Validate() error {
	if !validAddress(c.Source) {
		return fmt.Errorf("source %d: %w", c.Source, ErrInvalid)
	}
	if !validAddress(c.Destination) {
		return fmt.Errorf("destination %d: %w", c.Destination, ErrInvalid)
	}

	known := false
	for _, t := range Transports {
		if t == c.Transport {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("transport %q (have %v): %w", c.Transport, Transports, ErrInvalid)
	}

	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("fps %d: %w", c.FPS, ErrInvalid)
	}
	if len(c.Lamps) > model.Lamps {
		return fmt.Errorf("%d lamp colors for %d lamps: %w", len(c.Lamps), model.Lamps, ErrInvalid)
	}
	return nil
}

func (c *Config) Addresses() (src, dst byte) {
	return byte(c.Source), byte(c.Destination)
}
