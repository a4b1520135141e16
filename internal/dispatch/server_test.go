package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/pixelnode/internal/events"
	"github.com/smazurov/pixelnode/internal/runner"
	"github.com/smazurov/pixelnode/internal/strip"
)

type testServer struct {
	srv  *Server
	mem  *strip.Memory
	addr string
}

func startServer(t *testing.T, opts ServerOptions) *testServer {
	t.Helper()
	mem := strip.NewMemory(4)
	r := runner.New(strip.NewPainter(mem, strip.OrderGRB), runner.Options{Logger: testLogger()})
	opts.Logger = testLogger()
	srv := NewServer(NewHandler(r, testLogger()), opts)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(l) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
		if err := <-serveErr; !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve returned %v, want ErrServerClosed", err)
		}
		r.Shutdown()
	})
	return &testServer{srv: srv, mem: mem, addr: l.Addr().String()}
}

type session struct {
	t    *testing.T
	conn net.Conn
	in   *bufio.Reader
}

func dial(t *testing.T, addr string) *session {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return &session{t: t, conn: conn, in: bufio.NewReader(conn)}
}

func (s *session) send(raw string) {
	s.t.Helper()
	if _, err := s.conn.Write([]byte(raw)); err != nil {
		s.t.Fatalf("write: %v", err)
	}
}

func (s *session) recv() Response {
	s.t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := s.in.ReadBytes('\n')
	if err != nil {
		s.t.Fatalf("read response: %v", err)
	}
	var r Response
	if err := json.Unmarshal(line, &r); err != nil {
		s.t.Fatalf("decode %q: %v", line, err)
	}
	return r
}

func (s *session) call(raw string) Response {
	s.t.Helper()
	s.send(raw + "\n")
	return s.recv()
}

func TestSessionScenario(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	if r := c.call(`{"command":"mode","mode":1}`); r.Status != StatusSuccess || r.Message != "mode 1 started" {
		t.Fatalf("mode 1 = %+v", r)
	}

	r := c.call(`{"command":"status"}`)
	if r.State == nil || r.State.CurrentMode == nil || *r.State.CurrentMode != 1 || !r.State.Running {
		t.Fatalf("status while running = %+v", r.State)
	}

	if r := c.call(`{"command":"off"}`); r.Status != StatusSuccess || r.Message != MsgLEDsOff {
		t.Fatalf("off = %+v", r)
	}
	last, ok := ts.mem.Last()
	if !ok || !last.Dark() {
		t.Error("strip not dark after off")
	}

	r = c.call(`{"command":"status"}`)
	if r.State == nil || r.State.CurrentMode != nil || r.State.Running {
		t.Fatalf("status after off = %+v", r.State)
	}
}

func TestSessionInvalidJSONKeepsSessionOpen(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	if r := c.call(`{"command": "mode", "mode": }`); r.Status != StatusError || r.Message != MsgInvalidJSON {
		t.Fatalf("malformed = %+v", r)
	}
	if r := c.call(`not json at all`); r.Message != MsgInvalidJSON {
		t.Fatalf("garbage = %+v", r)
	}
	if r := c.call(`{"command":"status"}`); r.Status != StatusSuccess {
		t.Fatalf("status after bad input = %+v", r)
	}
}

func TestSessionInvalidAfterValid(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	if r := c.call(`{"command":"status"}`); r.Status != StatusSuccess {
		t.Fatalf("status = %+v", r)
	}
	if r := c.call(`{broken`); r.Message != MsgInvalidJSON {
		t.Fatalf("broken = %+v", r)
	}
	if r := c.call(`{"command":"off"}`); r.Message != MsgLEDsOff {
		t.Fatalf("off after broken line = %+v", r)
	}
}

func TestSessionBadLineThenGoodLineInOneWrite(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	c.send("{oops\n{\"command\":\"stop\"}\n")
	if r := c.recv(); r.Message != MsgInvalidJSON {
		t.Fatalf("first reply = %+v", r)
	}
	if r := c.recv(); r.Message != MsgModeStopped {
		t.Fatalf("second reply = %+v", r)
	}
}

func TestSessionTruncatedLine(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	if r := c.call(`{"command": "status"`); r.Status != StatusError || r.Message != MsgInvalidJSON {
		t.Fatalf("truncated object = %+v", r)
	}
	if r := c.call(`{"command":"status"}`); r.Status != StatusSuccess {
		t.Fatalf("status after truncated line = %+v", r)
	}
}

func TestSessionHangUpMidObject(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	c.send(`{"command": "mode", "mode": 1`)
	if err := c.conn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatal(err)
	}
	if r := c.recv(); r.Message != MsgInvalidJSON {
		t.Fatalf("reply = %+v", r)
	}
}

func TestSessionOversizedLine(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	c.send(`{"command":"` + strings.Repeat("x", maxLineSize+10) + "\n")
	if r := c.recv(); r.Message != MsgInvalidJSON {
		t.Fatalf("oversized line = %+v", r)
	}
	if r := c.call(`{"command":"stop"}`); r.Message != MsgModeStopped {
		t.Fatalf("stop after oversized line = %+v", r)
	}
}

func TestSessionBackToBackObjects(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	c.send(`{"command":"mode","mode":2}{"command":"status"}`)
	if r := c.recv(); r.Message != "mode 2 started" {
		t.Fatalf("first reply = %+v", r)
	}
	r := c.recv()
	if r.State == nil || r.State.CurrentMode == nil || *r.State.CurrentMode != 2 {
		t.Fatalf("second reply = %+v", r)
	}
}

func TestSessionWrongShape(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)

	if r := c.call(`[1,2,3]`); r.Message != MsgUnknown {
		t.Fatalf("array = %+v", r)
	}
	if r := c.call(`{"command":5}`); r.Message != MsgUnknown {
		t.Fatalf("numeric command = %+v", r)
	}
	if r := c.call(`{"command":"status"}`); r.Status != StatusSuccess {
		t.Fatalf("status = %+v", r)
	}
}

func TestConcurrentSessions(t *testing.T) {
	ts := startServer(t, ServerOptions{})

	done := make(chan struct{})
	for i := range 4 {
		go func(mode int) {
			defer func() { done <- struct{}{} }()
			conn, err := net.Dial("tcp", ts.addr)
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer conn.Close()
			in := bufio.NewReader(conn)
			for range 5 {
				fmt.Fprintf(conn, "{\"command\":\"mode\",\"mode\":%d}\n", mode)
				line, err := in.ReadBytes('\n')
				if err != nil {
					t.Errorf("read: %v", err)
					return
				}
				var r Response
				if err := json.Unmarshal(line, &r); err != nil || r.Status != StatusSuccess {
					t.Errorf("mode reply = %s (%v)", line, err)
				}
			}
		}(i%3 + 1)
	}
	for range 4 {
		<-done
	}

	c := dial(t, ts.addr)
	if r := c.call(`{"command":"stop"}`); r.Status != StatusSuccess {
		t.Fatalf("stop = %+v", r)
	}
	if n := ts.mem.Overlaps(); n != 0 {
		t.Errorf("observed %d overlapping writes", n)
	}
}

func TestIdleTimeoutClosesSession(t *testing.T) {
	ts := startServer(t, ServerOptions{IdleTimeout: 50 * time.Millisecond})
	c := dial(t, ts.addr)

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.in.ReadByte(); err == nil {
		t.Fatal("expected the server to close an idle session")
	}
}

func TestSessionEvents(t *testing.T) {
	bus := events.New()
	got := make(chan events.SessionEvent, 2)
	defer bus.Subscribe(func(e events.SessionEvent) { got <- e })()

	ts := startServer(t, ServerOptions{Bus: bus})
	c := dial(t, ts.addr)
	c.call(`{"command":"status"}`)
	c.conn.Close()

	for _, want := range []string{"opened", "closed"} {
		select {
		case e := <-got:
			if e.Action != want {
				t.Errorf("action = %q, want %q", e.Action, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("missing %s event", want)
		}
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	ts := startServer(t, ServerOptions{})
	c := dial(t, ts.addr)
	c.call(`{"command":"status"}`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ts.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := c.in.ReadByte(); err == nil {
		t.Error("session still open after Shutdown")
	}
	if _, err := net.DialTimeout("tcp", ts.addr, 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after Shutdown")
	}
}
