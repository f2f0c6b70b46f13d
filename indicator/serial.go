package indicator

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"rotenc/encoder"
)

// Serial implements Indicator by writing one text line per event to a
// serial port, for hosts that consume the encoder over UART:
//
//	cw 12
//	ccw 11
//	status idle
type Serial struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// NewSerial opens device at baud (default 115200).
func NewSerial(device string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = 115200
	}
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &Serial{port: port}, nil
}

// Idle implements Indicator.Idle.
func (s *Serial) Idle() {
	s.printf("status idle\n")
}

// Rotated implements Indicator.Rotated.
func (s *Serial) Rotated(dir encoder.Direction, position int64) {
	s.printf("%s %d\n", dir, position)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (s *Serial) ConnectionLost() {
	s.printf("status disconnected\n")
}

// Shutdown implements Indicator.Shutdown.
func (s *Serial) Shutdown() {
	s.printf("status shutdown\n")
}

// Release implements Indicator.Release.
func (s *Serial) Release() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

func (s *Serial) printf(format string, args ...any) {
	if s.port == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.port, format, args...)
}
