package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"rotenc/eventpipe"
	"rotenc/indicator"
	"rotenc/mqtt"
	"rotenc/pins"
	"rotenc/rotary"
)

// Config is the main configuration structure for rotenc.
type Config struct {
	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt"`

	// GPIO backend
	Pins pins.Config `yaml:"pins"`

	// Encoder lines and debounce window
	Rotary rotary.Config `yaml:"rotary"`

	// Indicator configuration
	Indicator indicator.Config `yaml:"indicator"`

	// Bench command pipe (sim driver only)
	EventPipe eventpipe.Config `yaml:"event_pipe"`

	// General settings
	ClientID string `yaml:"client_id"`
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads and validates the YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and fills in defaults.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id missing in config file")
	}
	if c.LogLevel == "" {
		c.LogLevel = string(LogLevelInfo)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.Rotary.Validate(); err != nil {
		return fmt.Errorf("rotary: %w", err)
	}
	if c.EventPipe.Path != "" && c.Pins.Driver != "sim" {
		return fmt.Errorf("event_pipe requires the sim gpio driver, got %q", c.Pins.Driver)
	}
	return nil
}
