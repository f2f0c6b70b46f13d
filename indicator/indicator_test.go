package indicator

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"rotenc/encoder"
)

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) Idle()           { r.calls = append(r.calls, "idle") }
func (r *recorder) ConnectionLost() { r.calls = append(r.calls, "lost") }
func (r *recorder) Shutdown()       { r.calls = append(r.calls, "shutdown") }
func (r *recorder) Release() error {
	r.calls = append(r.calls, "release")
	return r.err
}
func (r *recorder) Rotated(dir encoder.Direction, position int64) {
	r.calls = append(r.calls, dir.String())
}

func TestNew_NoneConfigured(t *testing.T) {
	ind, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ind.(*Noop); !ok {
		t.Errorf("got %T, want *Noop", ind)
	}
}

func TestNew_MissingPipe(t *testing.T) {
	_, err := New(Config{NeopixelPipe: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing neopixel pipe")
	}
}

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("busy")}
	m := &Multi{indicators: []Indicator{a, b}}

	m.Idle()
	m.Rotated(encoder.CW, 1)
	m.ConnectionLost()
	m.Shutdown()
	if err := m.Release(); err == nil {
		t.Error("expected release error to propagate")
	}

	want := "idle cw lost shutdown release"
	for _, r := range []*recorder{a, b} {
		if got := strings.Join(r.calls, " "); got != want {
			t.Errorf("calls = %q, want %q", got, want)
		}
	}
}

func TestSerial_Lines(t *testing.T) {
	buf := &bufCloser{}
	s := &Serial{port: buf}

	s.Idle()
	s.Rotated(encoder.CW, 3)
	s.Rotated(encoder.CCW, 2)
	s.ConnectionLost()
	if err := s.Release(); err != nil {
		t.Fatal(err)
	}

	want := "status idle\ncw 3\nccw 2\nstatus disconnected\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if !buf.closed {
		t.Error("port not closed")
	}
}

func TestNeopixel_Rotated(t *testing.T) {
	buf := &bufCloser{}
	n := newNeopixel(buf)

	n.Rotated(encoder.CCW, 0)
	n.Idle()
	n.Rotated(encoder.CW, 1)
	n.Rotated(encoder.None, 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{neoRotatedCCW, neoConnectionLost, neoNormalIdle, neoRotatedCW, neoNormalIdle}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
