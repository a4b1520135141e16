package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/pixelnode/internal/client"
	"github.com/smazurov/pixelnode/internal/events"
)

func testOptions(t *testing.T) *Options {
	t.Helper()
	return &Options{
		Config:           filepath.Join(t.TempDir(), "config.toml"),
		Port:             "127.0.0.1:0",
		IdleTimeout:      "0s",
		StripDriver:      "memory",
		StripCount:       8,
		StripFrequency:   800,
		StripOrder:       "grb",
		StopTimeout:      "1s",
		NatsSubject:      "pixelnode",
		NatsEmbeddedPort: -1,
	}
}

func startApp(t *testing.T, opts *Options) (*app, *client.Client) {
	t.Helper()
	a := newApp(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := a.start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- a.serve() }()
	t.Cleanup(func() {
		a.stop()
		select {
		case err := <-served:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("serve did not return after stop")
		}
	})

	cl := client.New(a.listener.Addr().String(), time.Second)
	t.Cleanup(func() { cl.Close() })
	return a, cl
}

func TestAppCommandRoundTrip(t *testing.T) {
	a, cl := startApp(t, testOptions(t))
	ctx := context.Background()

	if _, err := cl.Mode(ctx, 1); err != nil {
		t.Fatal(err)
	}
	resp, err := cl.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if resp.State == nil || resp.State.CurrentMode == nil || *resp.State.CurrentMode != 1 {
		t.Errorf("status = %+v", resp)
	}

	if _, err := cl.Off(ctx); err != nil {
		t.Fatal(err)
	}
	if st := a.runner.Status(); st.Running {
		t.Errorf("runner still running after off: %+v", st)
	}
}

func TestAppRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Options)
	}{
		{"order", func(o *Options) { o.StripOrder = "rbg" }},
		{"driver", func(o *Options) { o.StripDriver = "dmx" }},
		{"count", func(o *Options) { o.StripCount = 0 }},
		{"timeout", func(o *Options) { o.StopTimeout = "soon" }},
		{"port", func(o *Options) { o.Port = "127.0.0.1:99999" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.edit(opts)
			a := newApp(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err := a.start(); err == nil {
				a.stop()
				t.Fatal("start succeeded")
			}
		})
	}
}

func TestAppReloadsPatterns(t *testing.T) {
	opts := testOptions(t)
	a, cl := startApp(t, opts)

	reloaded := make(chan events.SettingsReloadedEvent, 1)
	defer events.SubscribeToChannel[events.SettingsReloadedEvent](a.bus, reloaded)()

	if _, err := cl.Mode(context.Background(), 2); err != nil {
		t.Fatal(err)
	}

	settings := "[chase]\ncolor = \"#00ff00\"\ndelay = \"30ms\"\n"
	if err := os.WriteFile(opts.Config, []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-reloaded:
		if !e.Restarted || e.Path != opts.Config {
			t.Errorf("reload event = %+v", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload event")
	}
	if st := a.runner.Status(); !st.Running || st.Mode != 2 {
		t.Errorf("status after reload = %+v", st)
	}
}

func TestAppEmbeddedNATS(t *testing.T) {
	opts := testOptions(t)
	opts.NatsEmbedded = true
	a, _ := startApp(t, opts)

	if a.natsServer == nil || !a.natsServer.IsRunning() {
		t.Fatal("embedded NATS server not running")
	}
	if a.bridge == nil || !a.bridge.IsConnected() {
		t.Fatal("bridge not connected to embedded server")
	}
}

func TestStatusLine(t *testing.T) {
	if got := statusLine(events.ModeChangedEvent{}); got != "idle" {
		t.Errorf("idle = %q", got)
	}
	if got := statusLine(events.ModeChangedEvent{Mode: 3, Pattern: "fade", Running: true}); got != "mode 3 (fade) running" {
		t.Errorf("running = %q", got)
	}
}
