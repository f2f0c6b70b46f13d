//go:build linux

package pins

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/warthog618/gpio"

	"rotenc/encoder"
)

// Sysfs implements Provider and encoder.Interrupts using /dev/gpiomem for
// level reads and sysfs edge watches for interrupts.
type Sysfs struct {
	mu      sync.Mutex
	pins    map[int]*gpio.Pin
	watched map[int]bool
}

// NewSysfs maps the GPIO registers. Only one Sysfs may be open at a time.
func NewSysfs() (*Sysfs, error) {
	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	return &Sysfs{
		pins:    map[int]*gpio.Pin{},
		watched: map[int]bool{},
	}, nil
}

func openSysfs(cfg Config) (Provider, error) {
	return NewSysfs()
}

// SetMode implements encoder.Pins.SetMode.
func (s *Sysfs) SetMode(pin int, mode encoder.InputMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pins[pin]
	if !ok {
		p = gpio.NewPin(pin)
		s.pins[pin] = p
	}
	p.Input()
	if mode == encoder.Input {
		p.PullNone()
	} else {
		p.PullUp()
	}
	return nil
}

// Read implements encoder.Pins.Read.
func (s *Sysfs) Read(pin int) encoder.Level {
	s.mu.Lock()
	p, ok := s.pins[pin]
	s.mu.Unlock()
	if !ok {
		return encoder.Low
	}
	return encoder.Level(p.Read() == gpio.High)
}

// InterruptCapable implements encoder.Interrupts.InterruptCapable.
func (s *Sysfs) InterruptCapable(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pins[pin]
	return ok
}

// Bind implements encoder.Interrupts.Bind. The lock is not held across
// Watch and Unwatch, since they synchronise with the watcher goroutine that
// runs handlers, and handlers read pins.
func (s *Sysfs) Bind(pin int, edge encoder.Edge, handler func()) error {
	s.mu.Lock()
	p, ok := s.pins[pin]
	wasWatched := s.watched[pin]
	delete(s.watched, pin)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d not configured", pin)
	}

	if wasWatched {
		p.Unwatch()
	} else {
		// A stale export from a previous run makes Watch fail with EBUSY.
		unexport(pin)
	}

	e := gpio.EdgeFalling
	if edge == encoder.EdgeRising {
		e = gpio.EdgeRising
	}
	if err := p.Watch(e, func(*gpio.Pin) { handler() }); err != nil {
		return fmt.Errorf("watch pin %d: %w", pin, err)
	}

	s.mu.Lock()
	s.watched[pin] = true
	s.mu.Unlock()
	return nil
}

// Unbind implements encoder.Interrupts.Unbind.
func (s *Sysfs) Unbind(pin int) error {
	s.mu.Lock()
	p, ok := s.pins[pin]
	wasWatched := s.watched[pin]
	delete(s.watched, pin)
	s.mu.Unlock()

	if ok && wasWatched {
		p.Unwatch()
	}
	return nil
}

// Close implements Provider.Close.
func (s *Sysfs) Close() error {
	s.mu.Lock()
	var watched []*gpio.Pin
	for pin := range s.watched {
		watched = append(watched, s.pins[pin])
	}
	s.watched = map[int]bool{}
	s.mu.Unlock()

	for _, p := range watched {
		p.Unwatch()
	}
	return gpio.Close()
}

func unexport(pin int) {
	f, err := os.OpenFile("/sys/class/gpio/unexport", os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	f.Write([]byte(strconv.Itoa(pin) + "\n"))
	f.Close()
}
