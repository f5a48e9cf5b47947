// Package config loads and validates the soundmaster YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure, loaded from YAML.
type Config struct {
	Logging   LoggingConfig  `yaml:"logging"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	I2C       I2CConfig      `yaml:"i2c"`
	Pins      PinsConfig     `yaml:"pins"`
	Display   DisplayConfig  `yaml:"display"`
	StatusWS  StatusWSConfig `yaml:"status_ws"`
	StateFile string         `yaml:"state_file"`

	// SoundcardStatusFile is the ALSA substream status path used for
	// audio on/off detection. Empty disables the feature.
	SoundcardStatusFile string `yaml:"soundcard_status_file"`

	// SaveDelay is the settings debounce quiet period.
	SaveDelay time.Duration `yaml:"save_delay"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // error, warn, info, debug
	Format string `yaml:"format"` // text or json
}

// MQTTConfig contains broker connection and topic settings.
type MQTTConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`

	// BaseTopic is the prefix of every soundmaster topic.
	BaseTopic string `yaml:"base_topic"`
}

// I2CConfig identifies the bus and device addresses.
type I2CConfig struct {
	BusNumber int `yaml:"bus_number"`

	// PT2258Address is the 8-bit strap address (0x80/0x84/0x88/0x8C).
	PT2258Address uint8 `yaml:"pt2258_address"`

	// DisplayAddress is the 7-bit SSD1306 address.
	DisplayAddress uint8 `yaml:"display_address"`
}

// PinsConfig holds GPIO line offsets on Chip.
type PinsConfig struct {
	Chip    string      `yaml:"chip"`
	Encoder EncoderPins `yaml:"encoder"`
	Input   InputPins   `yaml:"input"`
}

// EncoderPins are the rotary encoder line offsets.
type EncoderPins struct {
	Left  int `yaml:"left"`
	Right int `yaml:"right"`
	Key   int `yaml:"key"`
}

// InputPins are the selector sense lines and the emulated button output.
type InputPins struct {
	Opt    int `yaml:"opt"`
	Aux    int `yaml:"aux"`
	TV     int `yaml:"tv"`
	Button int `yaml:"button"`
}

// DisplayConfig controls the OLED status panel.
type DisplayConfig struct {
	Enabled    bool          `yaml:"enabled"`
	ClearDelay time.Duration `yaml:"clear_delay"`
}

// StatusWSConfig controls the websocket status endpoint.
type StatusWSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and parses the YAML file at path, applying defaults for
// omitted optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		MQTT: MQTTConfig{
			Port:      1883,
			QoS:       1,
			BaseTopic: "kimiHome/audio/soundmaster",
		},
		Pins:      PinsConfig{Chip: "gpiochip0"},
		Display:   DisplayConfig{Enabled: true},
		StatusWS:  StatusWSConfig{Addr: ":8099"},
		StateFile: "state.json",
	}
}

// Validate checks the required fields and returns one error naming every
// missing or invalid entry.
func (c *Config) Validate() error {
	var missing []string

	if c.MQTT.Server == "" {
		missing = append(missing, "mqtt.server")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		missing = append(missing, "mqtt.port")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		missing = append(missing, "mqtt.qos")
	}
	if c.I2C.PT2258Address == 0 {
		missing = append(missing, "i2c.pt2258_address")
	}
	if c.Display.Enabled && c.I2C.DisplayAddress == 0 {
		missing = append(missing, "i2c.display_address")
	}
	if c.Pins.Chip == "" {
		missing = append(missing, "pins.chip")
	}
	if c.StateFile == "" {
		missing = append(missing, "state_file")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
