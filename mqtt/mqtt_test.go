package mqtt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseParalysis(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"5", 5, false},
		{" 12ms\n", 12, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"fast", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseParalysis([]byte(tc.in))
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseParalysis(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseParalysis(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDisabledClient(t *testing.T) {
	connected := false
	c, err := New(Config{}, "knob1", Handlers{OnConnect: func() { connected = true }}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if c.IsEnabled() {
		t.Fatal("client without host should be disabled")
	}
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	if !connected {
		t.Error("disabled Connect should call OnConnect")
	}

	// No-ops must not touch the nil paho client.
	c.Publish("x", "y")
	c.Ping(nil)
	c.PublishRotation(0, 0)
	c.Disconnect()
	if err := c.Subscribe("x"); err != nil {
		t.Error(err)
	}
}

func TestHandleMessage_Paralysis(t *testing.T) {
	var got []uint32
	c, err := New(Config{}, "knob1", Handlers{OnParalysis: func(ms uint32) { got = append(got, ms) }}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	c.handleMessage(nil, fakeMessage{topic: ParalysisTopic("knob1"), payload: []byte("7")})
	c.handleMessage(nil, fakeMessage{topic: ParalysisTopic("knob1"), payload: []byte("bogus")})
	c.handleMessage(nil, fakeMessage{topic: ParalysisTopic("other"), payload: []byte("9")})

	if len(got) != 1 || got[0] != 7 {
		t.Errorf("paralysis commands = %v, want [7]", got)
	}
}

func TestTopics(t *testing.T) {
	if got := RotationTopic("k"); got != "rotenc/status/node/k/rotation" {
		t.Errorf("RotationTopic = %s", got)
	}
	if got := ParalysisTopic("k"); got != "rotenc/control/node/k/paralysis" {
		t.Errorf("ParalysisTopic = %s", got)
	}
}

func TestNewPingMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, `{"status":"ok"}`},
		{errors.New("a_pin 5: input/output error"), `{"status":"degraded","error":"a_pin 5: input/output error"}`},
	}
	for _, tc := range tests {
		b, err := json.Marshal(NewPingMessage(tc.err))
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != tc.want {
			t.Errorf("ping = %s, want %s", b, tc.want)
		}
	}
}
