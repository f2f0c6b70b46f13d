package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rotenc.cfg")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
client_id: knob1
pins:
  driver: sim
rotary:
  a_pin: 5
  b_pin: 6
  direction: ccw
  interrupt: true
mqtt:
  host: broker.local
indicator:
  serial_baud: 9600
event_pipe:
  path: /tmp/rotenc-events
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ClientID != "knob1" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel default = %q, want info", cfg.LogLevel)
	}
	if cfg.Rotary.APin != 5 || cfg.Rotary.BPin != 6 || cfg.Rotary.Direction != "ccw" || !cfg.Rotary.Interrupt {
		t.Errorf("Rotary = %+v", cfg.Rotary)
	}
	if cfg.Rotary.ParalysisMS != 2 || cfg.Rotary.PollMS != 1 {
		t.Errorf("rotary defaults not applied: %+v", cfg.Rotary)
	}
	if cfg.MQTT.Host != "broker.local" || cfg.Indicator.SerialBaud != 9600 {
		t.Errorf("MQTT = %+v, Indicator = %+v", cfg.MQTT, cfg.Indicator)
	}
	if cfg.EventPipe.Path != "/tmp/rotenc-events" {
		t.Errorf("EventPipe = %+v", cfg.EventPipe)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "client_id: [unterminated")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		c := Config{ClientID: "knob1"}
		c.Rotary.APin = 5
		c.Rotary.BPin = 6
		return c
	}
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing client id", func(c *Config) { c.ClientID = "" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"warning alias", func(c *Config) { c.LogLevel = "WARNING" }, false},
		{"rotary pins equal", func(c *Config) { c.Rotary.BPin = 5 }, true},
		{"pipe without sim", func(c *Config) { c.EventPipe.Path = "/tmp/x" }, true},
		{"pipe with sim", func(c *Config) {
			c.EventPipe.Path = "/tmp/x"
			c.Pins.Driver = "sim"
		}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.modify(&c)
			err := c.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"error", LogLevelError, false},
		{"Warn", LogLevelWarn, false},
		{"info", LogLevelInfo, false},
		{"DEBUG", LogLevelDebug, false},
		{"trace", "", true},
	}
	for _, tc := range tests {
		got, err := parseLogLevel(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("parseLogLevel(%q) = %q, %v", tc.in, got, err)
		}
	}
}
