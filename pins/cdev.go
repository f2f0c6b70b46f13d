//go:build linux

package pins

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"rotenc/encoder"
)

// Cdev implements Provider and encoder.Interrupts on the Linux GPIO
// character device.
type Cdev struct {
	chip     string
	consumer string

	mu    sync.Mutex
	lines map[int]*cdevLine
}

type cdevLine struct {
	line *gpiocdev.Line
	bias gpiocdev.LineReqOption
	last encoder.Level
	err  error
}

// NewCdev creates a character device backend for chip.
func NewCdev(chip, consumer string) *Cdev {
	return &Cdev{
		chip:     chip,
		consumer: consumer,
		lines:    map[int]*cdevLine{},
	}
}

func openCdev(cfg Config) (Provider, error) {
	return NewCdev(cfg.Chip, cfg.Consumer), nil
}

func biasOption(mode encoder.InputMode) gpiocdev.LineReqOption {
	if mode == encoder.Input {
		return gpiocdev.WithBiasDisabled
	}
	return gpiocdev.WithPullUp
}

// SetMode implements encoder.Pins.SetMode.
func (c *Cdev) SetMode(pin int, mode encoder.InputMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bias := biasOption(mode)
	if old, ok := c.lines[pin]; ok {
		old.line.Close()
		delete(c.lines, pin)
	}
	l, err := gpiocdev.RequestLine(c.chip, pin,
		gpiocdev.AsInput,
		bias,
		gpiocdev.WithConsumer(c.consumer))
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", c.chip, pin, err)
	}
	c.lines[pin] = &cdevLine{line: l, bias: bias}
	return nil
}

// Read implements encoder.Pins.Read. A failed read returns the last good level.
func (c *Cdev) Read(pin int) encoder.Level {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.lines[pin]
	if !ok {
		return encoder.Low
	}
	v, err := cl.line.Value()
	if err != nil {
		if cl.err == nil {
			slog.Warn("gpio read failed", "chip", c.chip, "pin", pin, "error", err)
		}
		cl.err = err
		return cl.last
	}
	cl.err = nil
	cl.last = encoder.Level(v != 0)
	return cl.last
}

// Err returns the most recent read error on pin, if the line is still failing.
func (c *Cdev) Err(pin int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.lines[pin]; ok {
		return cl.err
	}
	return nil
}

// InterruptCapable implements encoder.Interrupts.InterruptCapable.
// Every requested character device line supports edge detection.
func (c *Cdev) InterruptCapable(pin int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lines[pin]
	return ok
}

// Bind implements encoder.Interrupts.Bind. The line is re-requested with
// edge detection, since the event handler can only be set at request time.
func (c *Cdev) Bind(pin int, edge encoder.Edge, handler func()) error {
	var edgeOpt gpiocdev.LineReqOption = gpiocdev.WithFallingEdge
	if edge == encoder.EdgeRising {
		edgeOpt = gpiocdev.WithRisingEdge
	}
	return c.rerequest(pin,
		edgeOpt,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler()
		}))
}

// Unbind implements encoder.Interrupts.Unbind.
func (c *Cdev) Unbind(pin int) error {
	return c.rerequest(pin)
}

// rerequest replaces the line for pin, keeping its bias. The old line is
// closed without holding the lock, as its event handler may be reading pins.
func (c *Cdev) rerequest(pin int, extra ...gpiocdev.LineReqOption) error {
	c.mu.Lock()
	cl, ok := c.lines[pin]
	if ok {
		delete(c.lines, pin)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("line %d not configured", pin)
	}
	cl.line.Close()

	opts := append([]gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		cl.bias,
		gpiocdev.WithConsumer(c.consumer),
	}, extra...)
	l, err := gpiocdev.RequestLine(c.chip, pin, opts...)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", c.chip, pin, err)
	}
	cl.line = l

	c.mu.Lock()
	c.lines[pin] = cl
	c.mu.Unlock()
	return nil
}

// Close implements Provider.Close.
func (c *Cdev) Close() error {
	c.mu.Lock()
	lines := c.lines
	c.lines = map[int]*cdevLine{}
	c.mu.Unlock()

	var firstErr error
	for _, cl := range lines {
		if err := cl.line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
