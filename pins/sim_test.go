package pins

import (
	"testing"
	"time"

	"rotenc/encoder"
)

func TestSim_PullUpIdlesHigh(t *testing.T) {
	s := NewSim()
	if err := s.SetMode(4, encoder.InputPullUp); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMode(5, encoder.Input); err != nil {
		t.Fatal(err)
	}
	if s.Read(4) != encoder.High {
		t.Error("pulled-up pin should idle high")
	}
	if s.Read(5) != encoder.Low {
		t.Error("floating pin should read low")
	}
	if m, ok := s.Mode(5); !ok || m != encoder.Input {
		t.Errorf("Mode(5) = %s, %v", m, ok)
	}
}

func TestSim_EdgeHandler(t *testing.T) {
	s := NewSim()
	s.Set(1, encoder.High)

	fired := 0
	if err := s.Bind(1, encoder.EdgeFalling, func() { fired++ }); err != nil {
		t.Fatal(err)
	}

	s.Set(1, encoder.Low)  // falling
	s.Set(1, encoder.Low)  // no transition
	s.Set(1, encoder.High) // rising, ignored
	s.Set(1, encoder.Low)  // falling
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}

	if err := s.Unbind(1); err != nil {
		t.Fatal(err)
	}
	s.Set(1, encoder.High)
	s.Set(1, encoder.Low)
	if fired != 2 {
		t.Errorf("handler fired after unbind")
	}
	if s.Bound(1) {
		t.Error("still bound")
	}
}

func TestSim_Capable(t *testing.T) {
	s := NewSim()
	if !s.InterruptCapable(7) {
		t.Error("pins should default to capable")
	}
	s.SetCapable(7, false)
	if s.InterruptCapable(7) {
		t.Error("SetCapable(false) ignored")
	}
}

// TestSim_EncoderDetent runs a full encoder over the simulator in both
// drive modes.
func TestSim_EncoderDetent(t *testing.T) {
	for _, interrupt := range []bool{false, true} {
		s := NewSim()
		clk := &ManualClock{}
		e, err := encoder.New(s, clk, encoder.Config{PinA: 5, PinB: 6})
		if err != nil {
			t.Fatal(err)
		}
		if interrupt {
			if err := e.BindInterrupt(); err != nil {
				t.Fatal(err)
			}
			if !s.Bound(5) {
				t.Fatal("interrupt not bound on A")
			}
		}

		var got []encoder.Direction
		e.OnRotated(func(d encoder.Direction) { got = append(got, d) })

		// B leads A: active when A falls, so the step is counter-clockwise.
		s.Set(6, encoder.Low)
		s.Set(5, encoder.Low)
		for i := 0; i < 5; i++ {
			e.Poll()
			clk.Advance(1)
		}
		s.Set(6, encoder.High)
		s.Set(5, encoder.High)
		for i := 0; i < 5; i++ {
			e.Poll()
			clk.Advance(1)
		}

		if len(got) != 1 || got[0] != encoder.CCW {
			t.Errorf("interrupt=%v: got %v, want [ccw]", interrupt, got)
		}
	}
}

func TestSim_BindRefusedWhenIncapable(t *testing.T) {
	s := NewSim()
	s.SetCapable(5, false)
	e, err := encoder.New(s, &ManualClock{}, encoder.Config{PinA: 5, PinB: 6})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.BindInterrupt(); err != encoder.ErrNoInterrupt {
		t.Fatalf("err = %v, want ErrNoInterrupt", err)
	}
}

func TestManualClock(t *testing.T) {
	var c ManualClock
	c.Set(10)
	c.Advance(5)
	if c.Millis() != 15 {
		t.Errorf("Millis = %d, want 15", c.Millis())
	}
}

func TestMonotonic(t *testing.T) {
	m := NewMonotonic()
	a := m.Millis()
	time.Sleep(5 * time.Millisecond)
	if b := m.Millis(); b < a+5 {
		t.Errorf("clock advanced %d ms, want >= 5", b-a)
	}
}

func TestNew(t *testing.T) {
	p, err := New(Config{Driver: "sim"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*Sim); !ok {
		t.Errorf("sim driver returned %T", p)
	}
	if _, ok := p.(encoder.Interrupts); !ok {
		t.Error("sim should implement encoder.Interrupts")
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}

	if _, err := New(Config{Driver: "spi"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
