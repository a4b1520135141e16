package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/smazurov/pixelnode/internal/api"
	"github.com/smazurov/pixelnode/internal/config"
	"github.com/smazurov/pixelnode/internal/dispatch"
	"github.com/smazurov/pixelnode/internal/events"
	"github.com/smazurov/pixelnode/internal/led"
	"github.com/smazurov/pixelnode/internal/logging"
	"github.com/smazurov/pixelnode/internal/metrics/exporters"
	"github.com/smazurov/pixelnode/internal/nats"
	"github.com/smazurov/pixelnode/internal/pattern"
	"github.com/smazurov/pixelnode/internal/runner"
	"github.com/smazurov/pixelnode/internal/strip"
	"github.com/smazurov/pixelnode/internal/systemd"
)

const shutdownTimeout = 5 * time.Second

// app owns every long-lived component of the server command.
type app struct {
	opts   *Options
	logger *slog.Logger

	bus        *events.Bus
	painter    *strip.Painter
	runner     *runner.Runner
	server     *dispatch.Server
	listener   net.Listener
	api        *api.Server
	natsServer *nats.Server
	bridge     *nats.Bridge
	leds       *led.Manager
	watcher    *config.Watcher[*pattern.Set]
	notifier   *systemd.Notifier

	cancel      context.CancelFunc
	unsubStatus func()
	stopOnce    sync.Once
}

func newApp(opts *Options, logger *slog.Logger) *app {
	return &app{
		opts:     opts,
		logger:   logger,
		bus:      events.New(),
		notifier: systemd.NewNotifier(logging.GetLogger("systemd")),
	}
}

// patternsPath is the file pattern settings are read from and watched.
func (a *app) patternsPath() string {
	if a.opts.PatternsFile != "" {
		return a.opts.PatternsFile
	}
	return a.opts.Config
}

// start opens the strip, binds the command port and starts the optional
// components. On error everything opened so far is released.
func (a *app) start() (err error) {
	defer func() {
		if err != nil {
			a.stop()
		}
	}()

	idleTimeout, err := time.ParseDuration(a.opts.IdleTimeout)
	if err != nil {
		return fmt.Errorf("idle timeout: %w", err)
	}
	stopTimeout, err := time.ParseDuration(a.opts.StopTimeout)
	if err != nil {
		return fmt.Errorf("stop timeout: %w", err)
	}
	order, err := strip.ParseOrder(a.opts.StripOrder)
	if err != nil {
		return err
	}
	patterns, err := config.LoadPatterns(a.patternsPath())
	if err != nil {
		return err
	}

	driver, err := strip.New(strip.Config{
		Driver:       a.opts.StripDriver,
		Device:       a.opts.StripDevice,
		Count:        a.opts.StripCount,
		FrequencyKHz: a.opts.StripFrequency,
	}, logging.GetLogger("strip"))
	if err != nil {
		return fmt.Errorf("open strip: %w", err)
	}
	a.painter = strip.NewPainter(driver, order)

	a.runner = runner.New(a.painter, runner.Options{
		Patterns:         patterns,
		StopTimeoutFloor: stopTimeout,
		Bus:              a.bus,
		Logger:           logging.GetLogger("runner"),
	})
	handler := dispatch.NewHandler(a.runner, logging.GetLogger("dispatch"))

	a.listener, err = net.Listen("tcp", a.opts.Port)
	if err != nil {
		return fmt.Errorf("bind %s: %w", a.opts.Port, err)
	}
	a.server = dispatch.NewServer(handler, dispatch.ServerOptions{
		IdleTimeout: idleTimeout,
		Bus:         a.bus,
		Logger:      logging.GetLogger("dispatch"),
	})

	if err := a.startNATS(handler); err != nil {
		return err
	}
	a.startAPI(handler)
	a.startWatcher()
	if a.opts.FeaturesStatusLED {
		ledLogger := logging.GetLogger("led")
		a.leds = led.NewManager(led.New(ledLogger), a.bus, ledLogger)
		a.leds.Start()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.notifier.Watchdog(ctx)
	a.unsubStatus = a.bus.Subscribe(func(e events.ModeChangedEvent) {
		a.notifier.Status(statusLine(e))
	})
	a.notifier.Ready("listening on " + a.listener.Addr().String())

	a.logger.Info("pixelnode started",
		"addr", a.listener.Addr().String(),
		"pixels", a.painter.Len(),
		"order", a.opts.StripOrder)
	return nil
}

func (a *app) startNATS(handler *dispatch.Handler) error {
	url := a.opts.NatsURL
	if a.opts.NatsEmbedded {
		a.natsServer = nats.NewServer(nats.ServerOptions{
			Port:   a.opts.NatsEmbeddedPort,
			Logger: logging.GetLogger("nats"),
		})
		if err := a.natsServer.Start(); err != nil {
			return err
		}
		if url == "" {
			url = a.natsServer.ClientURL()
		}
	}
	if url == "" {
		return nil
	}

	a.bridge = nats.NewBridge(url, a.opts.NatsSubject, handler, a.bus, logging.GetLogger("nats"))
	if err := a.bridge.Start(); err != nil {
		// The TCP protocol is the primary interface; run without NATS.
		a.logger.Warn("NATS bridge unavailable", "url", url, "error", err)
		a.bridge = nil
	}
	return nil
}

func (a *app) startAPI(handler *dispatch.Handler) {
	if a.opts.HTTPPort == "" {
		return
	}
	a.api = api.NewServer(api.Options{
		AuthUsername:   a.opts.AuthUsername,
		AuthPassword:   a.opts.AuthPassword,
		Handler:        handler,
		Bus:            a.bus,
		MetricsHandler: exporters.HTTPHandler(),
		Logger:         logging.GetLogger("api"),
	})
	go func() {
		if err := a.api.Start(a.opts.HTTPPort); err != nil {
			a.logger.Error("HTTP API failed", "error", err)
		}
	}()
}

func (a *app) startWatcher() {
	path := a.patternsPath()
	if path == "" {
		return
	}
	a.watcher = config.NewWatcher(path, config.LoadPatterns, logging.GetLogger("config"))
	a.watcher.OnReload(a.reloadPatterns(path))
	if err := a.watcher.Start(); err != nil {
		a.logger.Warn("Pattern settings will not be reloaded", "path", path, "error", err)
		a.watcher = nil
	}
}

func (a *app) reloadPatterns(path string) func(*pattern.Set) {
	return func(set *pattern.Set) {
		restarted, err := a.runner.Reload(set)
		if err != nil {
			a.logger.Warn("Failed to apply pattern settings", "path", path, "error", err)
			return
		}
		a.logger.Info("Pattern settings reloaded", "path", path, "restarted", restarted)
		a.bus.Publish(events.SettingsReloadedEvent{
			Path:      path,
			Restarted: restarted,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// serve runs the command server until stop. A clean stop returns nil.
func (a *app) serve() error {
	if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, dispatch.ErrServerClosed) {
		return err
	}
	return nil
}

// stop tears down in reverse order: no new commands, then the runner, then
// the strip. The strip is left dark.
func (a *app) stop() {
	a.stopOnce.Do(func() {
		a.notifier.Stopping()
		if a.cancel != nil {
			a.cancel()
		}
		if a.unsubStatus != nil {
			a.unsubStatus()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Warn("Command server shutdown", "error", err)
			}
		} else if a.listener != nil {
			a.listener.Close()
		}
		if a.api != nil {
			if err := a.api.Stop(); err != nil {
				a.logger.Warn("HTTP API shutdown", "error", err)
			}
		}
		if a.bridge != nil {
			a.bridge.Stop()
		}
		if a.natsServer != nil {
			a.natsServer.Stop()
		}
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.leds != nil {
			a.leds.Stop()
		}

		if a.runner != nil {
			if err := a.runner.Shutdown(); err != nil {
				a.logger.Warn("Runner shutdown", "error", err)
			}
		}
		if a.painter != nil {
			if err := a.painter.Close(); err != nil {
				a.logger.Warn("Failed to close strip", "error", err)
			}
		}
		a.logger.Info("pixelnode stopped")
	})
}

func statusLine(e events.ModeChangedEvent) string {
	if !e.Running {
		return "idle"
	}
	return fmt.Sprintf("mode %d (%s) running", e.Mode, e.Pattern)
}
