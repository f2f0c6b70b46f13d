package indicator

import "rotenc/encoder"

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

// Idle implements Indicator.Idle.
func (n *Noop) Idle() {}

// Rotated implements Indicator.Rotated.
func (n *Noop) Rotated(dir encoder.Direction, position int64) {}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Noop) ConnectionLost() {}

// Shutdown implements Indicator.Shutdown.
func (n *Noop) Shutdown() {}

// Release implements Indicator.Release.
func (n *Noop) Release() error {
	return nil
}
