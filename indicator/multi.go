package indicator

import "rotenc/encoder"

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// Idle implements Indicator.Idle.
func (m *Multi) Idle() {
	for _, ind := range m.indicators {
		ind.Idle()
	}
}

// Rotated implements Indicator.Rotated.
func (m *Multi) Rotated(dir encoder.Direction, position int64) {
	for _, ind := range m.indicators {
		ind.Rotated(dir, position)
	}
}

// ConnectionLost implements Indicator.ConnectionLost.
func (m *Multi) ConnectionLost() {
	for _, ind := range m.indicators {
		ind.ConnectionLost()
	}
}

// Shutdown implements Indicator.Shutdown.
func (m *Multi) Shutdown() {
	for _, ind := range m.indicators {
		ind.Shutdown()
	}
}

// Release implements Indicator.Release. All indicators are released; the
// first error is returned.
func (m *Multi) Release() error {
	var firstErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
