package main

import (
	"log/slog"
	"time"

	"rotenc/encoder"
	"rotenc/eventpipe"
	"rotenc/pins"
	"rotenc/rotary"
)

// bench applies event pipe commands to the simulated encoder lines.
type bench struct {
	sim       *pins.Sim
	rotary    *rotary.Rotary
	pinA      int
	pinB      int
	direction encoder.Direction
	pollMS    int
	log       *slog.Logger
	wait      func(time.Duration)
}

func newBench(sim *pins.Sim, r *rotary.Rotary, cfg rotary.Config, log *slog.Logger) *bench {
	dir, err := encoder.ParseDirection(cfg.Direction)
	if err != nil {
		dir = encoder.CW
	}
	return &bench{
		sim:       sim,
		rotary:    r,
		pinA:      cfg.APin,
		pinB:      cfg.BPin,
		direction: dir,
		pollMS:    cfg.PollMS,
		log:       log,
		wait:      time.Sleep,
	}
}

func (b *bench) apply(cmd eventpipe.Command) {
	enc := b.rotary.Encoder()
	switch cmd.Op {
	case eventpipe.OpSetA:
		b.sim.Set(b.pinA, cmd.Level)
	case eventpipe.OpSetB:
		b.sim.Set(b.pinB, cmd.Level)
	case eventpipe.OpArm:
		enc.Arm()
	case eventpipe.OpWindow:
		if err := b.rotary.SetParalysis(cmd.WindowMS); err != nil {
			b.log.Warn("rejected window command", "error", err)
		}
	case eventpipe.OpTurn:
		b.turn(cmd.Direction)
	}
}

// turn drives one clean detent, holding each phase until the window has
// closed and the drive loop has polled at least once more.
func (b *bench) turn(dir encoder.Direction) {
	enc := b.rotary.Encoder()
	active := enc.ActiveLevel()
	inactive := !active
	hold := time.Duration(int(enc.Paralysis())+2*b.pollMS+1) * time.Millisecond

	// B inactive at the A edge decodes as the configured direction.
	bLevel := inactive
	if dir != b.direction {
		bLevel = active
	}

	b.log.Debug("synthesizing detent", "direction", dir, "hold", hold)
	b.sim.Set(b.pinB, bLevel)
	b.sim.Set(b.pinA, active)
	b.wait(hold)
	b.sim.Set(b.pinA, inactive)
	b.sim.Set(b.pinB, inactive)
	b.wait(hold)
}
