//go:build linux

package pins

import (
	"fmt"
	"sync"

	"github.com/hjkoskel/govattu"

	"rotenc/encoder"
)

// Vattu implements Provider by reading the BCM283x level registers directly.
// It cannot deliver interrupts, so encoders on it always run in polling mode.
// Pull-up bias is not programmed; set it in the firmware config
// (e.g. "gpio=5,6=ip,pu" in config.txt).
type Vattu struct {
	mu  sync.Mutex
	hw  govattu.Vattu
	set map[int]encoder.InputMode
}

// NewVattu maps the GPIO registers.
func NewVattu() (*Vattu, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	return &Vattu{hw: hw, set: map[int]encoder.InputMode{}}, nil
}

func openVattu(cfg Config) (Provider, error) {
	return NewVattu()
}

// SetMode implements encoder.Pins.SetMode.
func (v *Vattu) SetMode(pin int, mode encoder.InputMode) error {
	if pin > 53 {
		return fmt.Errorf("pin %d out of range", pin)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hw.PinMode(uint8(pin), govattu.ALTinput)
	v.set[pin] = mode
	return nil
}

// Read implements encoder.Pins.Read.
func (v *Vattu) Read(pin int) encoder.Level {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.set[pin]; !ok {
		return encoder.Low
	}
	return encoder.Level(v.hw.ReadPinLevel(uint8(pin)))
}

// Close implements Provider.Close.
func (v *Vattu) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hw.Close()
}
