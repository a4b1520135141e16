package nats

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/pixelnode/internal/dispatch"
	"github.com/smazurov/pixelnode/internal/events"
	"github.com/smazurov/pixelnode/internal/runner"
	"github.com/smazurov/pixelnode/internal/strip"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(ServerOptions{Port: -1, Name: "test", Logger: testLogger()})
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

type fixture struct {
	bridge *Bridge
	conn   *nats.Conn
	runner *runner.Runner
}

func newFixture(t *testing.T, prefix string) *fixture {
	t.Helper()
	srv := startServer(t)
	logger := testLogger()
	bus := events.New()

	r := runner.New(strip.NewPainter(strip.NewMemory(3), strip.OrderGRB), runner.Options{Bus: bus, Logger: logger})
	t.Cleanup(func() { r.Shutdown() })

	b := NewBridge(srv.ClientURL(), prefix, dispatch.NewHandler(r, logger), bus, logger)
	if err := b.Start(); err != nil {
		t.Fatalf("start bridge: %v", err)
	}
	t.Cleanup(b.Stop)

	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(conn.Close)
	return &fixture{bridge: b, conn: conn, runner: r}
}

func (f *fixture) request(t *testing.T, subject, body string) dispatch.Response {
	t.Helper()
	msg, err := f.conn.Request(subject, []byte(body), 2*time.Second)
	if err != nil {
		t.Fatalf("request %s: %v", body, err)
	}
	var resp dispatch.Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("decode %q: %v", msg.Data, err)
	}
	return resp
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer(ServerOptions{Port: -1, Logger: testLogger()})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	if !srv.IsRunning() {
		t.Error("server should be running after Start")
	}
	if err := srv.Start(); err == nil {
		t.Error("second Start should fail while running")
	}
	srv.Stop()
	if srv.IsRunning() {
		t.Error("server should not be running after Stop")
	}
	srv.Stop()
}

func TestServerClientURLBeforeStart(t *testing.T) {
	srv := NewServer(ServerOptions{Logger: testLogger()})
	if got := srv.ClientURL(); got != "nats://127.0.0.1:4222" {
		t.Errorf("ClientURL() = %q", got)
	}
}

func TestCommandRequestReply(t *testing.T) {
	f := newFixture(t, "")
	subject := SubjectCommand(DefaultSubject)

	resp := f.request(t, subject, `{"command":"mode","mode":3}`)
	if resp.Status != dispatch.StatusSuccess || resp.Message != "mode 3 started" {
		t.Errorf("mode = %+v", resp)
	}

	resp = f.request(t, subject, `{"command":"status"}`)
	if resp.State == nil || resp.State.CurrentMode == nil || *resp.State.CurrentMode != 3 || !resp.State.Running {
		t.Errorf("status = %+v", resp)
	}

	resp = f.request(t, subject, `{"command":"mode","mode":9}`)
	if resp.Status != dispatch.StatusError || resp.Message != dispatch.MsgInvalidMode {
		t.Errorf("invalid mode = %+v", resp)
	}

	resp = f.request(t, subject, `not json`)
	if resp.Message != dispatch.MsgInvalidJSON {
		t.Errorf("bad json = %+v", resp)
	}

	if st := f.runner.Status(); st.Mode != 3 || !st.Running {
		t.Errorf("runner status = %+v", st)
	}
}

func TestStatePublished(t *testing.T) {
	f := newFixture(t, "lab.strip1")

	states := make(chan *nats.Msg, 8)
	sub, err := f.conn.ChanSubscribe(SubjectState("lab.strip1"), states)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()
	f.conn.Flush()

	f.request(t, SubjectCommand("lab.strip1"), `{"command":"mode","mode":1}`)
	f.request(t, SubjectCommand("lab.strip1"), `{"command":"off"}`)

	want := []struct {
		running bool
		reason  string
	}{{true, events.ReasonStart}, {false, events.ReasonOff}}

	for _, w := range want {
		select {
		case msg := <-states:
			m, err := UnmarshalState(msg.Data)
			if err != nil {
				t.Fatal(err)
			}
			if m.Running != w.running || m.Reason != w.reason {
				t.Errorf("state = %+v, want running=%v reason=%s", m, w.running, w.reason)
			}
			if m.Running && (m.CurrentMode == nil || *m.CurrentMode != 1) {
				t.Errorf("running state mode = %v", m.CurrentMode)
			}
			if !m.Running && m.CurrentMode != nil {
				t.Errorf("idle state mode = %v, want null", *m.CurrentMode)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no state message for %s", w.reason)
		}
	}
}

func TestPublishStateBeforeStart(t *testing.T) {
	b := NewBridge("nats://127.0.0.1:1", "", nil, nil, testLogger())
	if err := b.PublishState(StateMessage{}); err != ErrNotStarted {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}
	if b.IsConnected() {
		t.Error("unstarted bridge reports connected")
	}
	b.Stop()
}

func TestStartFailsWithoutServer(t *testing.T) {
	b := NewBridge("nats://127.0.0.1:1", "", nil, nil, testLogger())
	if err := b.Start(); err == nil {
		b.Stop()
		t.Fatal("expected connect error")
	}
}

func TestSubjects(t *testing.T) {
	tests := []struct {
		prefix, command, state string
	}{
		{"", "pixelnode.command", "pixelnode.state"},
		{"porch", "porch.command", "porch.state"},
		{"lab.strip1.", "lab.strip1.command", "lab.strip1.state"},
	}
	for _, tt := range tests {
		if got := SubjectCommand(tt.prefix); got != tt.command {
			t.Errorf("SubjectCommand(%q) = %q", tt.prefix, got)
		}
		if got := SubjectState(tt.prefix); got != tt.state {
			t.Errorf("SubjectState(%q) = %q", tt.prefix, got)
		}
	}
}

func TestNewStateMessage(t *testing.T) {
	m := NewStateMessage(events.ModeChangedEvent{Mode: 2, Pattern: "chase", Running: true, Reason: "start", Generation: 4})
	data, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	json.Unmarshal(data, &raw)
	if raw["current_mode"] != float64(2) || raw["pattern"] != "chase" || raw["generation"] != float64(4) {
		t.Errorf("running state = %s", data)
	}

	m = NewStateMessage(events.ModeChangedEvent{Mode: 2, Pattern: "chase", Running: false, Reason: "stop"})
	data, _ = m.Marshal()
	raw = nil
	json.Unmarshal(data, &raw)
	if v, ok := raw["current_mode"]; !ok || v != nil {
		t.Errorf("idle state = %s, want current_mode null", data)
	}
}
