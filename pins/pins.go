// Package pins provides the GPIO backends that feed the encoder: the Linux
// GPIO character device, the sysfs/gpiomem interface, direct BCM283x
// register access, and an in-memory simulator for bench use and tests.
package pins

import (
	"errors"
	"fmt"
	"time"

	"rotenc/encoder"
)

// ErrNotSupported is returned by New when the selected driver is not built
// for this platform.
var ErrNotSupported = errors.New("gpio backend not supported on this platform")

// Provider is a GPIO backend. Backends that can deliver edge interrupts also
// implement encoder.Interrupts.
type Provider interface {
	encoder.Pins

	// Close releases all lines and handlers.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver   string `yaml:"driver"`   // "cdev", "sysfs", "vattu", "sim"
	Chip     string `yaml:"chip"`     // cdev only, e.g. "gpiochip0"
	Consumer string `yaml:"consumer"` // cdev only, label shown by gpioinfo
}

// New creates a Provider based on the provided configuration.
func New(cfg Config) (Provider, error) {
	switch cfg.Driver {
	case "", "cdev":
		if cfg.Chip == "" {
			cfg.Chip = "gpiochip0"
		}
		if cfg.Consumer == "" {
			cfg.Consumer = "rotenc"
		}
		return openCdev(cfg)
	case "sysfs":
		return openSysfs(cfg)
	case "vattu":
		return openVattu(cfg)
	case "sim":
		return NewSim(), nil
	default:
		return nil, fmt.Errorf("unknown gpio driver: %s", cfg.Driver)
	}
}

// Monotonic is an encoder.Clock backed by the runtime monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a clock reading zero now.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Millis implements encoder.Clock. The value wraps after ~49 days.
func (m *Monotonic) Millis() uint32 {
	return uint32(time.Since(m.start).Milliseconds())
}
