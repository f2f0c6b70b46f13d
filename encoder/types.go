package encoder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoInterrupt is returned by BindInterrupt when pin A cannot deliver edge interrupts.
var ErrNoInterrupt = errors.New("pin does not support edge interrupts")

// Level is the logic level of a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Direction of a detected rotation step.
type Direction uint8

const (
	None Direction = iota
	CW
	CCW
)

func (d Direction) String() string {
	switch d {
	case CW:
		return "cw"
	case CCW:
		return "ccw"
	default:
		return "none"
	}
}

// Opposite returns the reverse rotation. None stays None.
func (d Direction) Opposite() Direction {
	switch d {
	case CW:
		return CCW
	case CCW:
		return CW
	default:
		return None
	}
}

// Delta returns +1 for CW, -1 for CCW and 0 otherwise.
func (d Direction) Delta() int {
	switch d {
	case CW:
		return 1
	case CCW:
		return -1
	default:
		return 0
	}
}

// ParseDirection accepts "cw" or "ccw". An empty string yields CW.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cw":
		return CW, nil
	case "ccw":
		return CCW, nil
	default:
		return None, fmt.Errorf("invalid direction: %s (must be cw or ccw)", s)
	}
}

// InputMode is the electrical bias applied to both phase lines.
type InputMode uint8

const (
	InputPullUp InputMode = iota // Default
	Input
)

func (m InputMode) String() string {
	if m == Input {
		return "input"
	}
	return "pullup"
}

// ParseInputMode accepts "pullup" or "input". An empty string yields InputPullUp.
func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pullup", "input_pullup":
		return InputPullUp, nil
	case "input", "none", "float":
		return Input, nil
	default:
		return 0, fmt.Errorf("invalid input mode: %s (must be pullup or input)", s)
	}
}

// ActiveLevel selects the level that means "asserted" on the phase lines.
type ActiveLevel uint8

const (
	ActiveAuto ActiveLevel = iota // Derived from InputMode
	ActiveLow
	ActiveHigh
)

// ParseActiveLevel accepts "auto", "low" or "high". An empty string yields ActiveAuto.
func ParseActiveLevel(s string) (ActiveLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ActiveAuto, nil
	case "low":
		return ActiveLow, nil
	case "high":
		return ActiveHigh, nil
	default:
		return 0, fmt.Errorf("invalid active level: %s (must be auto, low or high)", s)
	}
}

// resolve maps the selector to a concrete level. Pulled-up lines idle high
// and are pulled low by the switch, so they read active-low.
func (a ActiveLevel) resolve(m InputMode) Level {
	switch a {
	case ActiveLow:
		return Low
	case ActiveHigh:
		return High
	}
	if m == Input {
		return High
	}
	return Low
}

// Edge selects which transitions trigger an interrupt handler.
type Edge uint8

const (
	EdgeFalling Edge = iota + 1
	EdgeRising
)

func (e Edge) String() string {
	if e == EdgeRising {
		return "rising"
	}
	return "falling"
}

// Pins reads and configures the digital input lines.
type Pins interface {
	// SetMode configures pin as an input with the given bias.
	SetMode(pin int, mode InputMode) error

	// Read returns the current level of pin.
	Read(pin int) Level
}

// Interrupts is implemented by Pins that can deliver edge interrupts.
// Handlers may be invoked from any goroutine and must not block.
type Interrupts interface {
	// InterruptCapable reports whether pin can deliver edge interrupts.
	InterruptCapable(pin int) bool

	// Bind registers handler for edge on pin, replacing any existing handler.
	Bind(pin int, edge Edge, handler func()) error

	// Unbind removes the handler registered on pin.
	Unbind(pin int) error
}

// Clock is a monotonic millisecond clock. The value may wrap.
type Clock interface {
	Millis() uint32
}

// DefaultParalysisMS is the debounce window used when Config.ParalysisMS is zero.
const DefaultParalysisMS = 2

// Config holds the construction parameters of an Encoder.
// The zero value of each enum field is its default.
type Config struct {
	PinA        int
	PinB        int
	Direction   Direction // Reported when B is inactive as A goes active
	Mode        InputMode
	Active      ActiveLevel
	ParalysisMS uint32 // 0 selects DefaultParalysisMS
}

// Event is the result of the most recent Poll.
type Event struct {
	Rotated   bool
	Direction Direction
}
