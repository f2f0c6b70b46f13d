//go:build !screen

package indicator

import "rotenc/encoder"

// NewVideo returns an error when screen support is not compiled in.
func NewVideo(device, fontPath string) (*Video, error) {
	return nil, ErrScreenNotCompiled
}

// Video is a stub when screen support is not compiled in.
type Video struct{}

func (v *Video) Idle()                                         {}
func (v *Video) Rotated(dir encoder.Direction, position int64) {}
func (v *Video) ConnectionLost()                               {}
func (v *Video) Shutdown()                                     {}
func (v *Video) Release() error                                { return nil }
