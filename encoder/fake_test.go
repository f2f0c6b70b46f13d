package encoder

import (
	"errors"
	"sync"
	"sync/atomic"
)

type fakeIRQ struct {
	edge Edge
	fn   func()
}

// fakeHW is an in-memory pin bank. Setting a level fires a bound handler
// when the transition matches its edge.
type fakeHW struct {
	mu       sync.Mutex
	levels   map[int]Level
	modes    map[int]InputMode
	handlers map[int]fakeIRQ
	capable  bool
	modeErr  error
	unbinds  int
}

func newFakeHW(capable bool) *fakeHW {
	return &fakeHW{
		levels:   map[int]Level{},
		modes:    map[int]InputMode{},
		handlers: map[int]fakeIRQ{},
		capable:  capable,
	}
}

func (f *fakeHW) SetMode(pin int, mode InputMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modeErr != nil {
		return f.modeErr
	}
	f.modes[pin] = mode
	return nil
}

func (f *fakeHW) Read(pin int) Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

func (f *fakeHW) InterruptCapable(pin int) bool {
	return f.capable
}

func (f *fakeHW) Bind(pin int, edge Edge, handler func()) error {
	if !f.capable {
		return errors.New("not capable")
	}
	f.mu.Lock()
	f.handlers[pin] = fakeIRQ{edge: edge, fn: handler}
	f.mu.Unlock()
	return nil
}

func (f *fakeHW) Unbind(pin int) error {
	f.mu.Lock()
	delete(f.handlers, pin)
	f.unbinds++
	f.mu.Unlock()
	return nil
}

func (f *fakeHW) set(pin int, l Level) {
	f.mu.Lock()
	old := f.levels[pin]
	f.levels[pin] = l
	h, ok := f.handlers[pin]
	f.mu.Unlock()
	if !ok || old == l {
		return
	}
	if (h.edge == EdgeFalling && l == Low) || (h.edge == EdgeRising && l == High) {
		h.fn()
	}
}

func (f *fakeHW) handler(pin int) (fakeIRQ, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.handlers[pin]
	return h, ok
}

// pollOnly hides the Interrupts methods of the underlying pins.
type pollOnly struct {
	hw *fakeHW
}

func (p pollOnly) SetMode(pin int, mode InputMode) error { return p.hw.SetMode(pin, mode) }
func (p pollOnly) Read(pin int) Level                    { return p.hw.Read(pin) }

type fakeClock struct {
	now atomic.Uint32
}

func (c *fakeClock) Millis() uint32 { return c.now.Load() }
func (c *fakeClock) set(ms uint32)  { c.now.Store(ms) }

// paralyzed reports whether a debounce window is open.
func (e *Encoder) paralyzed() bool {
	return e.arm.Load() != nil
}
