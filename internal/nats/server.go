package nats

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const readyTimeout = 5 * time.Second

// ServerOptions configures the embedded NATS server. Port -1 picks a free
// port.
type ServerOptions struct {
	Host   string
	Port   int
	Name   string
	Logger *slog.Logger
}

// Server is a loopback NATS server for hosts without a broker. The bridge
// connects to it like to any other.
type Server struct {
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewServer fills unset options: 127.0.0.1:4222, named pixelnode.
func NewServer(opts ServerOptions) *Server {
	opts.Host = cmp.Or(opts.Host, "127.0.0.1")
	opts.Name = cmp.Or(opts.Name, "pixelnode")
	if opts.Port == 0 {
		opts.Port = 4222
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger.With("component", "nats-server")}
}

// Start runs the server and waits until it accepts connections.
func (s *Server) Start() error {
	if s.ns != nil {
		return errors.New("NATS server already running")
	}
	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		NoSigs:     true,
		MaxPayload: 64 * 1024, // commands and state messages are tiny
	})
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}
	ns.SetLoggerV2(serverLog{s.logger}, false, false, false)

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("NATS server on %s not ready within %s",
			net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)), readyTimeout)
	}

	s.ns = ns
	s.logger.Info("NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it to exit.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
	s.logger.Info("NATS server stopped")
}

// ClientURL returns the URL clients should connect to. Before Start it is
// built from the configured address.
func (s *Server) ClientURL() string {
	if s.ns != nil {
		return s.ns.ClientURL()
	}
	return "nats://" + net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}

// serverLog routes nats-server's printf-style logging into slog. Notices
// are chatty at startup, so they go to debug.
type serverLog struct{ l *slog.Logger }

func (s serverLog) Noticef(format string, v ...any) { s.l.Debug(sprintf(format, v)) }
func (s serverLog) Warnf(format string, v ...any)   { s.l.Warn(sprintf(format, v)) }
func (s serverLog) Errorf(format string, v ...any)  { s.l.Error(sprintf(format, v)) }
func (s serverLog) Fatalf(format string, v ...any)  { s.l.Error(sprintf(format, v), "fatal", true) }
func (s serverLog) Debugf(format string, v ...any)  { s.l.Debug(sprintf(format, v)) }
func (s serverLog) Tracef(format string, v ...any)  { s.l.Debug(sprintf(format, v), "trace", true) }

func sprintf(format string, v []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
