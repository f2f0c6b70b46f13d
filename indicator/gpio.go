package indicator

import (
	"fmt"
	"sync"
	"time"

	"github.com/hjkoskel/govattu"

	"rotenc/encoder"
)

// GPIO implements Indicator using discrete GPIO LED pins. The CW or CCW
// LED flashes for each detent; the status LED is lit while idle and
// connected.
type GPIO struct {
	hw        govattu.Vattu
	cwPin     *uint8
	ccwPin    *uint8
	statusPin *uint8
	flash     time.Duration

	mu     sync.Mutex
	timers map[uint8]*time.Timer
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(cwPin, ccwPin, statusPin *uint8, flash time.Duration) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{
		hw:        hw,
		cwPin:     cwPin,
		ccwPin:    ccwPin,
		statusPin: statusPin,
		flash:     flash,
		timers:    map[uint8]*time.Timer{},
	}

	// Initialize all pins as outputs, start off
	for _, p := range []*uint8{cwPin, ccwPin, statusPin} {
		if p != nil {
			hw.PinMode(*p, govattu.ALToutput)
			hw.PinClear(*p)
		}
	}

	return g, nil
}

// Idle implements Indicator.Idle.
func (g *GPIO) Idle() {
	g.set(g.statusPin, true)
}

// Rotated implements Indicator.Rotated.
func (g *GPIO) Rotated(dir encoder.Direction, position int64) {
	switch dir {
	case encoder.CW:
		g.pulse(g.cwPin)
	case encoder.CCW:
		g.pulse(g.ccwPin)
	}
}

// ConnectionLost implements Indicator.ConnectionLost.
func (g *GPIO) ConnectionLost() {
	g.set(g.statusPin, false)
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.allOff()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

// pulse lights pin for the flash duration. A pulse while lit extends it.
func (g *GPIO) pulse(pin *uint8) {
	if pin == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hw.PinSet(*pin)
	if t, ok := g.timers[*pin]; ok {
		t.Reset(g.flash)
		return
	}
	p := *pin
	g.timers[p] = time.AfterFunc(g.flash, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.hw.PinClear(p)
	})
}

func (g *GPIO) set(pin *uint8, on bool) {
	if pin == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if on {
		g.hw.PinSet(*pin)
	} else {
		g.hw.PinClear(*pin)
	}
}

func (g *GPIO) allOff() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for p, t := range g.timers {
		t.Stop()
		delete(g.timers, p)
	}
	for _, p := range []*uint8{g.cwPin, g.ccwPin, g.statusPin} {
		if p != nil {
			g.hw.PinClear(*p)
		}
	}
}
