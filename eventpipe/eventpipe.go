// Package eventpipe reads bench commands from a named pipe, for driving a
// simulated encoder without hardware.
package eventpipe

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"rotenc/encoder"
)

// Config holds configuration for the event pipe.
type Config struct {
	Path string `yaml:"path"` // Path to named pipe (e.g., "/tmp/rotenc-events")
}

// Op identifies a bench command.
type Op int

const (
	OpSetA   Op = iota + 1 // drive the A-phase line
	OpSetB                 // drive the B-phase line
	OpArm                  // force-open the debounce window
	OpWindow               // change the debounce window
	OpTurn                 // synthesize one detent
)

// Command is one parsed pipe line.
type Command struct {
	Op        Op
	Level     encoder.Level
	WindowMS  uint32
	Direction encoder.Direction
}

// Handler is called when a command is received from the pipe.
type Handler func(Command)

// EventPipe listens for commands on a named pipe.
type EventPipe struct {
	path    string
	handler Handler
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new EventPipe. Returns nil if path is empty.
func New(cfg Config, handler Handler, log *slog.Logger) (*EventPipe, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}

	// Remove existing pipe if it exists
	os.Remove(cfg.Path)

	if err := syscall.Mkfifo(cfg.Path, 0666); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &EventPipe{
		path:    cfg.Path,
		handler: handler,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins listening for commands on the pipe.
// This should be called as a goroutine.
func (ep *EventPipe) Start() {
	ep.log.Info("event pipe listening", "path", ep.path)

	for {
		select {
		case <-ep.ctx.Done():
			return
		default:
		}

		// Blocks until a writer connects
		file, err := os.OpenFile(ep.path, os.O_RDONLY, 0)
		if err != nil {
			if ep.ctx.Err() != nil {
				return
			}
			ep.log.Warn("event pipe open", "error", err)
			continue
		}

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if ep.ctx.Err() != nil {
				file.Close()
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			cmd, err := ParseLine(line)
			if err != nil {
				ep.log.Warn("event pipe parse", "line", line, "error", err)
				continue
			}

			if ep.handler != nil {
				ep.handler(cmd)
			}
		}

		file.Close()
		// Writer closed the pipe, loop back to wait for next writer
	}
}

// Close stops the listener and removes the pipe. A blocked open is released
// by briefly opening the pipe for writing.
func (ep *EventPipe) Close() error {
	ep.cancel()
	if f, err := os.OpenFile(ep.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
		f.Close()
	}
	return os.Remove(ep.path)
}

// ParseLine parses a command line into a Command.
// Command format:
//
//	a <0|1>          - Drive the A-phase line low or high
//	b <0|1>          - Drive the B-phase line low or high
//	arm              - Force-open the debounce window
//	window <ms>      - Set the debounce window
//	turn <cw|ccw>    - Synthesize one clean detent
func ParseLine(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "a", "b":
		if len(parts) < 2 {
			return Command{}, fmt.Errorf("%s requires a level", cmd)
		}
		level, err := parseLevel(parts[1])
		if err != nil {
			return Command{}, err
		}
		op := OpSetA
		if cmd == "b" {
			op = OpSetB
		}
		return Command{Op: op, Level: level}, nil

	case "arm":
		return Command{Op: OpArm}, nil

	case "window":
		if len(parts) < 2 {
			return Command{}, fmt.Errorf("window requires milliseconds")
		}
		ms, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("invalid window: %s", parts[1])
		}
		return Command{Op: OpWindow, WindowMS: uint32(ms)}, nil

	case "turn":
		if len(parts) < 2 {
			return Command{}, fmt.Errorf("turn requires cw or ccw")
		}
		dir, err := encoder.ParseDirection(parts[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpTurn, Direction: dir}, nil

	default:
		return Command{}, fmt.Errorf("unknown command: %s", cmd)
	}
}

func parseLevel(s string) (encoder.Level, error) {
	switch strings.ToLower(s) {
	case "0", "low", "l":
		return encoder.Low, nil
	case "1", "high", "h":
		return encoder.High, nil
	default:
		return encoder.Low, fmt.Errorf("invalid level: %s", s)
	}
}
