// Package rotary runs a debounced rotary encoder from the host loop.
package rotary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"rotenc/encoder"
)

// Config holds configuration for a rotary encoder.
type Config struct {
	APin        int    `yaml:"a_pin"`
	BPin        int    `yaml:"b_pin"`
	Direction   string `yaml:"direction"`    // "cw" (default) or "ccw"
	Mode        string `yaml:"mode"`         // "pullup" (default) or "input"
	Active      string `yaml:"active"`       // "auto" (default), "low" or "high"
	ParalysisMS uint32 `yaml:"paralysis_ms"` // debounce window, default 2
	PollMS      int    `yaml:"poll_ms"`      // host loop interval, default 1
	Interrupt   bool   `yaml:"interrupt"`    // arm from an edge interrupt on A
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.APin == c.BPin {
		return fmt.Errorf("a_pin and b_pin must differ (both %d)", c.APin)
	}
	if c.APin < 0 || c.BPin < 0 {
		return fmt.Errorf("invalid pins a=%d b=%d", c.APin, c.BPin)
	}
	if _, err := encoder.ParseDirection(c.Direction); err != nil {
		return err
	}
	if _, err := encoder.ParseInputMode(c.Mode); err != nil {
		return err
	}
	if _, err := encoder.ParseActiveLevel(c.Active); err != nil {
		return err
	}
	if c.ParalysisMS == 0 {
		c.ParalysisMS = encoder.DefaultParalysisMS
	}
	if c.PollMS <= 0 {
		c.PollMS = 1
	}
	if uint32(c.PollMS) >= c.ParalysisMS {
		return fmt.Errorf("poll_ms (%d) must be shorter than paralysis_ms (%d)", c.PollMS, c.ParalysisMS)
	}
	return nil
}

// EncoderConfig converts to the encoder's construction parameters.
func (c Config) EncoderConfig() (encoder.Config, error) {
	dir, err := encoder.ParseDirection(c.Direction)
	if err != nil {
		return encoder.Config{}, err
	}
	mode, err := encoder.ParseInputMode(c.Mode)
	if err != nil {
		return encoder.Config{}, err
	}
	active, err := encoder.ParseActiveLevel(c.Active)
	if err != nil {
		return encoder.Config{}, err
	}
	return encoder.Config{
		PinA:        c.APin,
		PinB:        c.BPin,
		Direction:   dir,
		Mode:        mode,
		Active:      active,
		ParalysisMS: c.ParalysisMS,
	}, nil
}

// Handlers holds callback functions for rotary events.
type Handlers struct {
	OnTurn func(dir encoder.Direction, position int64) // Called once per detent
}

// Rotary drives an encoder.Encoder and tracks its position.
type Rotary struct {
	enc    *encoder.Encoder
	pins   encoder.Pins
	pinA   int
	pinB   int
	poll   time.Duration
	pos    atomic.Int64
	onTurn func(encoder.Direction, int64)
	log    *slog.Logger
}

// New creates the encoder on pins and, if requested, binds its edge
// interrupt. A pin without interrupt support falls back to polling.
func New(cfg Config, pins encoder.Pins, clock encoder.Clock, handlers Handlers, log *slog.Logger) (*Rotary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ecfg, err := cfg.EncoderConfig()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	enc, err := encoder.New(pins, clock, ecfg)
	if err != nil {
		return nil, err
	}

	r := &Rotary{
		enc:    enc,
		pins:   pins,
		pinA:   cfg.APin,
		pinB:   cfg.BPin,
		poll:   time.Duration(cfg.PollMS) * time.Millisecond,
		onTurn: handlers.OnTurn,
		log:    log,
	}
	enc.OnRotated(r.handleRotated)

	if cfg.Interrupt {
		err := enc.BindInterrupt()
		switch {
		case errors.Is(err, encoder.ErrNoInterrupt):
			log.Warn("edge interrupt unavailable, polling A instead", "pin", cfg.APin)
		case err != nil:
			return nil, err
		}
	}

	log.Info("rotary encoder initialized",
		"a_pin", cfg.APin, "b_pin", cfg.BPin,
		"direction", ecfg.Direction, "active", enc.ActiveLevel(),
		"paralysis_ms", enc.Paralysis(), "poll_ms", cfg.PollMS,
		"interrupt", enc.Bound())
	return r, nil
}

func (r *Rotary) handleRotated(dir encoder.Direction) {
	pos := r.pos.Add(int64(dir.Delta()))
	r.log.Debug("rotated", "direction", dir, "position", pos)
	if r.onTurn != nil {
		r.onTurn(dir, pos)
	}
}

// Run polls the encoder until ctx is cancelled.
func (r *Rotary) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.enc.Poll()
		}
	}
}

// Encoder returns the underlying encoder.
func (r *Rotary) Encoder() *encoder.Encoder {
	return r.enc
}

// Position returns the net number of detents turned, CW positive.
func (r *Rotary) Position() int64 {
	return r.pos.Load()
}

// SetPosition overrides the position counter.
func (r *Rotary) SetPosition(pos int64) {
	r.pos.Store(pos)
}

// lineErrer is implemented by backends that record failed line reads.
type lineErrer interface {
	Err(pin int) error
}

// LineErr returns the read error on A or B if either line is currently
// failing, or nil. Backends that cannot report read failures always return nil.
func (r *Rotary) LineErr() error {
	le, ok := r.pins.(lineErrer)
	if !ok {
		return nil
	}
	if err := le.Err(r.pinA); err != nil {
		return fmt.Errorf("a_pin %d: %w", r.pinA, err)
	}
	if err := le.Err(r.pinB); err != nil {
		return fmt.Errorf("b_pin %d: %w", r.pinB, err)
	}
	return nil
}

// SetParalysis changes the debounce window at runtime. The window must stay
// longer than the poll interval, as at startup.
func (r *Rotary) SetParalysis(ms uint32) error {
	pollMS := uint32(r.poll / time.Millisecond)
	if ms <= pollMS {
		return fmt.Errorf("paralysis window %dms must exceed poll_ms (%d)", ms, pollMS)
	}
	r.enc.SetParalysis(ms)
	r.log.Info("paralysis window changed", "ms", ms)
	return nil
}

// Release unbinds the edge interrupt.
func (r *Rotary) Release() error {
	return r.enc.UnbindInterrupt()
}
