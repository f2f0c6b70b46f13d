// Package indicator gives visible or wired feedback for encoder activity.
package indicator

import (
	"errors"
	"time"

	"rotenc/encoder"
)

// ErrScreenNotCompiled is returned when a video indicator is configured but
// screen support was not compiled in.
var ErrScreenNotCompiled = errors.New("screen support not compiled in (build with -tags=screen)")

// Indicator is the interface for rotation feedback implementations (LEDs,
// neopixels, serial reporters).
type Indicator interface {
	// Idle sets the indicator to ready state.
	Idle()

	// Rotated reports one detent and the resulting position.
	Rotated(dir encoder.Direction, position int64)

	// ConnectionLost sets the indicator to connection lost state.
	ConnectionLost()

	// Shutdown sets the indicator to shutdown state.
	Shutdown()

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// GPIO LED pins (nil = not configured)
	CWPin     *uint8 `yaml:"cw_pin"`
	CCWPin    *uint8 `yaml:"ccw_pin"`
	StatusPin *uint8 `yaml:"status_pin"`
	FlashMS   int    `yaml:"flash_ms"` // LED on-time per detent, default 30

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`

	// Serial line reporter (empty = not configured)
	SerialDevice string `yaml:"serial_device"`
	SerialBaud   int    `yaml:"serial_baud"`

	// Framebuffer display (requires -tags=screen)
	Video       bool   `yaml:"video"`
	Framebuffer string `yaml:"framebuffer"` // default /dev/fb0
	FontPath    string `yaml:"font"`        // TrueType font, bitmap fallback
}

func (c Config) flash() time.Duration {
	if c.FlashMS <= 0 {
		return 30 * time.Millisecond
	}
	return time.Duration(c.FlashMS) * time.Millisecond
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if more than one output is configured.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	// Add GPIO indicator if any pins configured
	if cfg.CWPin != nil || cfg.CCWPin != nil || cfg.StatusPin != nil {
		gpio, err := NewGPIO(cfg.CWPin, cfg.CCWPin, cfg.StatusPin, cfg.flash())
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	// Add Neopixel indicator if pipe configured
	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			release(indicators)
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	// Add serial reporter if device configured
	if cfg.SerialDevice != "" {
		ser, err := NewSerial(cfg.SerialDevice, cfg.SerialBaud)
		if err != nil {
			release(indicators)
			return nil, err
		}
		indicators = append(indicators, ser)
	}

	// Add framebuffer display if enabled
	if cfg.Video {
		video, err := NewVideo(cfg.Framebuffer, cfg.FontPath)
		if err != nil {
			release(indicators)
			return nil, err
		}
		indicators = append(indicators, video)
	}

	if len(indicators) == 0 {
		return &Noop{}, nil
	}
	if len(indicators) == 1 {
		return indicators[0], nil
	}
	return &Multi{indicators: indicators}, nil
}

func release(indicators []Indicator) {
	for _, ind := range indicators {
		ind.Release()
	}
}
