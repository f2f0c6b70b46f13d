//go:build screen

package indicator

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"rotenc/encoder"
)

const (
	testWidth  = 64
	testHeight = 32
)

func newTestVideo(t *testing.T) (*Video, []byte) {
	t.Helper()
	pix := make([]byte, testWidth*2*testHeight)
	v := newVideo(pix, testWidth, testHeight, testWidth*2, filepath.Join(t.TempDir(), "missing.ttf"))
	return v, pix
}

// corner returns the RGB565 components of the top-left pixel, which is
// always background.
func corner(pix []byte) (r5, g6, b5 uint16) {
	p := binary.LittleEndian.Uint16(pix)
	return p >> 11, (p >> 5) & 0x3f, p & 0x1f
}

func allZero(pix []byte) bool {
	for _, b := range pix {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestVideo_Screens(t *testing.T) {
	v, pix := newTestVideo(t)

	tests := []struct {
		name  string
		apply func()
		check func(r, g, b uint16) bool
	}{
		{"idle is green", v.Idle, func(r, g, b uint16) bool { return r == 0 && g > 0 && b == 0 }},
		{"rotated is blue", func() { v.Rotated(encoder.CW, 3) }, func(r, g, b uint16) bool { return r == 0 && g == 0 && b > 0 }},
		{"connection lost is orange", v.ConnectionLost, func(r, g, b uint16) bool { return r > 0 && g > 0 && b == 0 }},
		{"rotated offline has no blue", func() { v.Rotated(encoder.CCW, 2) }, func(r, g, b uint16) bool { return r > 0 && b == 0 }},
	}
	for _, tc := range tests {
		tc.apply()
		v.render()
		r, g, b := corner(pix)
		if !tc.check(r, g, b) {
			t.Errorf("%s: corner = (%d,%d,%d)", tc.name, r, g, b)
		}
	}
	if v.position != 2 || v.dir != encoder.CCW {
		t.Errorf("state = %s %d, want ccw 2", v.dir, v.position)
	}

	v.Shutdown()
	v.render()
	if !allZero(pix) {
		t.Error("shutdown left pixels lit")
	}
}

func TestVideo_Release(t *testing.T) {
	v, pix := newTestVideo(t)
	v.Idle()
	v.render()
	if allZero(pix) {
		t.Fatal("idle drew nothing")
	}

	if err := v.Release(); err != nil {
		t.Fatal(err)
	}
	if !allZero(pix) {
		t.Error("release left pixels lit")
	}
	// Late events from the poll loop must not panic.
	v.Rotated(encoder.CW, 1)
	if err := v.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}
