package pins

import (
	"sync"
	"sync/atomic"

	"rotenc/encoder"
)

type simIRQ struct {
	edge    encoder.Edge
	handler func()
}

// Sim is an in-memory Provider. Changing a level with Set fires a bound
// handler when the transition matches its edge, like a hardware interrupt.
// Unconfigured pins read low; all pins are interrupt capable unless
// disabled with SetCapable.
type Sim struct {
	mu        sync.Mutex
	levels    map[int]encoder.Level
	modes     map[int]encoder.InputMode
	irqs      map[int]simIRQ
	incapable map[int]bool
	errs      map[int]error
}

// NewSim returns an empty simulated pin bank.
func NewSim() *Sim {
	return &Sim{
		levels:    map[int]encoder.Level{},
		modes:     map[int]encoder.InputMode{},
		irqs:      map[int]simIRQ{},
		incapable: map[int]bool{},
		errs:      map[int]error{},
	}
}

// SetMode implements encoder.Pins.SetMode. A pulled-up pin idles high.
func (s *Sim) SetMode(pin int, mode encoder.InputMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[pin] = mode
	if _, ok := s.levels[pin]; !ok && mode == encoder.InputPullUp {
		s.levels[pin] = encoder.High
	}
	return nil
}

// Mode returns the configured mode of pin.
func (s *Sim) Mode(pin int) (encoder.InputMode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modes[pin]
	return m, ok
}

// Read implements encoder.Pins.Read.
func (s *Sim) Read(pin int) encoder.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[pin]
}

// Set drives pin to level, firing a matching edge handler.
func (s *Sim) Set(pin int, level encoder.Level) {
	s.mu.Lock()
	old := s.levels[pin]
	s.levels[pin] = level
	irq, ok := s.irqs[pin]
	s.mu.Unlock()

	if !ok || old == level {
		return
	}
	if (irq.edge == encoder.EdgeFalling && level == encoder.Low) ||
		(irq.edge == encoder.EdgeRising && level == encoder.High) {
		irq.handler()
	}
}

// SetCapable marks pin as able or unable to deliver interrupts.
func (s *Sim) SetCapable(pin int, capable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incapable[pin] = !capable
}

// InterruptCapable implements encoder.Interrupts.InterruptCapable.
func (s *Sim) InterruptCapable(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.incapable[pin]
}

// SetErr marks pin as failing with err, or healthy when err is nil. A
// failing pin keeps reading its last level, as the hardware backends do.
func (s *Sim) SetErr(pin int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, pin)
		return
	}
	s.errs[pin] = err
}

// Err returns the failure set on pin with SetErr.
func (s *Sim) Err(pin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[pin]
}

// Bind implements encoder.Interrupts.Bind.
func (s *Sim) Bind(pin int, edge encoder.Edge, handler func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.irqs[pin] = simIRQ{edge: edge, handler: handler}
	return nil
}

// Unbind implements encoder.Interrupts.Unbind.
func (s *Sim) Unbind(pin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.irqs, pin)
	return nil
}

// Bound reports whether a handler is registered on pin.
func (s *Sim) Bound(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.irqs[pin]
	return ok
}

// Close implements Provider.Close.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.irqs = map[int]simIRQ{}
	return nil
}

// ManualClock is an encoder.Clock advanced explicitly.
type ManualClock struct {
	ms atomic.Uint32
}

// Millis implements encoder.Clock.
func (c *ManualClock) Millis() uint32 { return c.ms.Load() }

// Set moves the clock to ms.
func (c *ManualClock) Set(ms uint32) { c.ms.Store(ms) }

// Advance moves the clock forward by ms.
func (c *ManualClock) Advance(ms uint32) { c.ms.Add(ms) }
