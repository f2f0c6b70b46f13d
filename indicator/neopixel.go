package indicator

import (
	"fmt"
	"io"
	"os"
	"sync"

	"rotenc/encoder"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoConnectionLost = "@2 !150000 001010"
	neoNormalIdle     = "@3 !150000 400000"
	neoRotatedCW      = "@1 !20000 8000"
	neoRotatedCCW     = "@1 !20000 80"
	neoTerminated     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
type Neopixel struct {
	mu         sync.Mutex
	pipe       io.WriteCloser
	idleString string
}

// NewNeopixel creates a new Neopixel indicator.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return newNeopixel(f), nil
}

func newNeopixel(w io.WriteCloser) *Neopixel {
	return &Neopixel{
		pipe:       w,
		idleString: neoConnectionLost, // Start with connection lost until connected
	}
}

// Idle implements Indicator.Idle. Idle follows a successful connection, so
// the normal idle pattern replaces the connection lost one.
func (n *Neopixel) Idle() {
	n.mu.Lock()
	n.idleString = neoNormalIdle
	n.mu.Unlock()
	n.write(neoNormalIdle)
}

// Rotated implements Indicator.Rotated.
func (n *Neopixel) Rotated(dir encoder.Direction, position int64) {
	switch dir {
	case encoder.CW:
		n.write(neoRotatedCW)
	case encoder.CCW:
		n.write(neoRotatedCCW)
	default:
		return
	}
	n.mu.Lock()
	idle := n.idleString
	n.mu.Unlock()
	n.write(idle)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Neopixel) ConnectionLost() {
	n.mu.Lock()
	n.idleString = neoConnectionLost
	n.mu.Unlock()
	n.write(neoConnectionLost)
}

// Shutdown implements Indicator.Shutdown.
func (n *Neopixel) Shutdown() {
	n.write(neoTerminated)
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.pipe == nil {
		return nil
	}
	return n.pipe.Close()
}

func (n *Neopixel) write(s string) {
	if n.pipe == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pipe.Write([]byte(s + "\n"))
}
