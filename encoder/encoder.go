// Package encoder decodes a two-phase quadrature rotary encoder into
// debounced single-step rotation events.
//
// An edge on the A-phase line opens a paralysis window and latches the
// B-phase level. When the window has elapsed, A is sampled again; if it sits
// at the active level a rotation is reported, its direction chosen by the
// latched B level. The encoder is advanced by calling Poll from the host
// loop, and may additionally be armed from an edge interrupt on A.
package encoder

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// armState is an open paralysis window. It is published as a whole through
// an atomic pointer, so a non-nil pointer always carries a valid latch and
// start time.
type armState struct {
	latchedB Level
	start    uint32
}

// Encoder is a debounced rotary encoder decoder.
type Encoder struct {
	pins  Pins
	clock Clock

	pinA      int
	pinB      int
	direction Direction
	active    Level

	paralysis atomic.Uint32
	arm       atomic.Pointer[armState]
	bound     atomic.Bool

	mu         sync.Mutex
	prev, curr Level
	event      Event
	onRotated  func(Direction)
	onCW       func()
	onCCW      func()
}

// New configures both phase lines and returns an idle encoder.
func New(pins Pins, clock Clock, cfg Config) (*Encoder, error) {
	if pins == nil || clock == nil {
		return nil, fmt.Errorf("encoder requires pins and clock")
	}
	if cfg.PinA < 0 || cfg.PinB < 0 {
		return nil, fmt.Errorf("invalid pins A=%d B=%d", cfg.PinA, cfg.PinB)
	}
	if cfg.PinA == cfg.PinB {
		return nil, fmt.Errorf("A and B phases share pin %d", cfg.PinA)
	}
	if cfg.Direction == None {
		cfg.Direction = CW
	}
	if cfg.ParalysisMS == 0 {
		cfg.ParalysisMS = DefaultParalysisMS
	}

	if err := pins.SetMode(cfg.PinA, cfg.Mode); err != nil {
		return nil, fmt.Errorf("configure pin A %d: %w", cfg.PinA, err)
	}
	if err := pins.SetMode(cfg.PinB, cfg.Mode); err != nil {
		return nil, fmt.Errorf("configure pin B %d: %w", cfg.PinB, err)
	}

	e := &Encoder{
		pins:      pins,
		clock:     clock,
		pinA:      cfg.PinA,
		pinB:      cfg.PinB,
		direction: cfg.Direction,
		active:    cfg.Active.resolve(cfg.Mode),
	}
	e.paralysis.Store(cfg.ParalysisMS)

	// Start from the inactive level so the first activation is always seen.
	e.prev = !e.active
	e.curr = e.prev
	return e, nil
}

// OnRotated sets the callback invoked with the direction of every rotation.
// A nil func detaches it.
func (e *Encoder) OnRotated(fn func(Direction)) {
	e.mu.Lock()
	e.onRotated = fn
	e.mu.Unlock()
}

// OnRotatedCW sets the callback invoked for clockwise rotations.
func (e *Encoder) OnRotatedCW(fn func()) {
	e.mu.Lock()
	e.onCW = fn
	e.mu.Unlock()
}

// OnRotatedCCW sets the callback invoked for counter-clockwise rotations.
func (e *Encoder) OnRotatedCCW(fn func()) {
	e.mu.Lock()
	e.onCCW = fn
	e.mu.Unlock()
}

// BindInterrupt registers Arm as the edge handler for pin A, triggered on the
// edge towards the active level. It returns ErrNoInterrupt when the pins
// cannot deliver interrupts on A; the encoder then stays in polling mode.
func (e *Encoder) BindInterrupt() error {
	irq, ok := e.pins.(Interrupts)
	if !ok || !irq.InterruptCapable(e.pinA) {
		return ErrNoInterrupt
	}
	if err := e.UnbindInterrupt(); err != nil {
		return err
	}
	edge := EdgeFalling
	if e.active == High {
		edge = EdgeRising
	}
	if err := irq.Bind(e.pinA, edge, e.Arm); err != nil {
		return fmt.Errorf("bind %s edge on pin %d: %w", edge, e.pinA, err)
	}
	e.bound.Store(true)
	return nil
}

// UnbindInterrupt removes the edge handler. It is a no-op when none is bound.
func (e *Encoder) UnbindInterrupt() error {
	irq, ok := e.pins.(Interrupts)
	if !ok || !irq.InterruptCapable(e.pinA) {
		return nil
	}
	if !e.bound.Load() {
		return nil
	}
	if err := irq.Unbind(e.pinA); err != nil {
		return fmt.Errorf("unbind pin %d: %w", e.pinA, err)
	}
	e.bound.Store(false)
	return nil
}

// Bound reports whether an edge handler is registered on pin A.
func (e *Encoder) Bound() bool {
	return e.bound.Load()
}

// SetParalysis sets the debounce window in milliseconds.
func (e *Encoder) SetParalysis(ms uint32) {
	e.paralysis.Store(ms)
}

// Paralysis returns the debounce window in milliseconds.
func (e *Encoder) Paralysis() uint32 {
	return e.paralysis.Load()
}

// ActiveLevel returns the resolved active level of the phase lines.
func (e *Encoder) ActiveLevel() Level {
	return e.active
}

// Arm opens the paralysis window and latches B, unless a window is already
// open. It is the built-in edge handler and may also be called from a
// handler owned by the host. Safe for concurrent use; never blocks.
func (e *Encoder) Arm() {
	if e.arm.Load() != nil {
		return
	}
	a := &armState{
		latchedB: e.pins.Read(e.pinB),
		start:    e.clock.Millis(),
	}
	e.arm.CompareAndSwap(nil, a)
}

// Poll advances the state machine. It must be called from the host loop at
// an interval well below the paralysis window. Callbacks for a rotation
// detected by this call run before Poll returns.
func (e *Encoder) Poll() Event {
	e.mu.Lock()
	e.event = Event{}

	a := e.arm.Load()
	if a == nil {
		if !e.bound.Load() && e.pins.Read(e.pinA) != e.prev {
			e.Arm()
		}
		e.mu.Unlock()
		return Event{}
	}

	// Unsigned subtraction stays correct across clock wrap.
	if e.clock.Millis()-a.start <= e.paralysis.Load() {
		e.mu.Unlock()
		return Event{}
	}

	e.curr = e.pins.Read(e.pinA)
	if e.bound.Load() || e.curr != e.prev {
		if e.curr == e.active {
			dir := e.direction
			if a.latchedB == e.active {
				dir = dir.Opposite()
			}
			e.event = Event{Rotated: true, Direction: dir}
		}
		e.prev = e.curr
	}
	e.arm.CompareAndSwap(a, nil)

	ev := e.event
	onRotated, onCW, onCCW := e.onRotated, e.onCW, e.onCCW
	e.mu.Unlock()

	if ev.Rotated {
		if onRotated != nil {
			onRotated(ev.Direction)
		}
		switch ev.Direction {
		case CW:
			if onCW != nil {
				onCW()
			}
		case CCW:
			if onCCW != nil {
				onCCW()
			}
		}
	}
	return ev
}

// Last returns the event produced by the most recent Poll.
func (e *Encoder) Last() Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.event
}

// Rotated reports whether the most recent Poll detected a rotation.
func (e *Encoder) Rotated() bool {
	return e.Last().Rotated
}

// Direction returns the direction detected by the most recent Poll, or None.
func (e *Encoder) Direction() Direction {
	return e.Last().Direction
}

// RotatedCW reports whether the most recent Poll detected a clockwise step.
func (e *Encoder) RotatedCW() bool {
	return e.Last().Direction == CW
}

// RotatedCCW reports whether the most recent Poll detected a counter-clockwise step.
func (e *Encoder) RotatedCCW() bool {
	return e.Last().Direction == CCW
}
