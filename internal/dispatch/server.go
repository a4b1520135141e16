package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/smazurov/pixelnode/internal/events"
	"github.com/smazurov/pixelnode/internal/metrics"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("dispatch: server closed")

const (
	writeTimeout = 5 * time.Second
	readChunk    = 4096
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// IdleTimeout closes sessions that send nothing for this long. Zero
	// disables it.
	IdleTimeout time.Duration
	Bus         *events.Bus
	Logger      *slog.Logger
}

// Server accepts TCP clients and runs one session goroutine per client.
// Commands on a session are handled strictly in order.
type Server struct {
	handler     *Handler
	idleTimeout time.Duration
	bus         *events.Bus
	logger      *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	sessions map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer creates a server backed by handler.
func NewServer(handler *Handler, opts ServerOptions) *Server {
	return &Server{
		handler:     handler,
		idleTimeout: opts.IdleTimeout,
		bus:         opts.Bus,
		logger:      opts.Logger,
		sessions:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown or an accept error.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("Command server listening", "addr", l.Addr().String())

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("Temporary accept error", "error", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}

		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.serveSession(conn)
	}
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, closes every open session and waits for the
// session goroutines to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	var err error
	if !s.closed && s.listener != nil {
		err = s.listener.Close()
	}
	s.closed = true
	for conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.sessions, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) serveSession(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)

	metrics.SessionOpened()
	s.bus.Publish(events.SessionEvent{Remote: remote, Action: "opened", Timestamp: now()})
	logger.Info("Client connected")

	defer func() {
		conn.Close()
		metrics.SessionClosed()
		s.bus.Publish(events.SessionEvent{Remote: remote, Action: "closed", Timestamp: now()})
		logger.Info("Client disconnected")
		s.untrack(conn)
	}()

	ctx := context.Background()
	enc := json.NewEncoder(conn)
	reply := func(frames []frame) bool {
		for _, f := range frames {
			for _, resp := range s.respond(ctx, f) {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := enc.Encode(resp); err != nil {
					logger.Debug("Failed to write response", "error", err)
					return false
				}
			}
		}
		return true
	}

	var fr framer
	buf := make([]byte, readChunk)
	for {
		if s.idleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		n, err := conn.Read(buf)
		if !reply(fr.feed(buf[:n])) {
			return
		}
		if err != nil {
			// A client that hangs up mid-command still gets its error.
			if errors.Is(err, io.EOF) {
				reply(fr.flush())
			}
			s.logSessionEnd(logger, err)
			return
		}
	}
}

// respond decodes every JSON value in f and runs it. Decoding stops at the
// first malformed value, which is answered with "invalid JSON".
func (s *Server) respond(ctx context.Context, f frame) []Response {
	if f.oversized {
		metrics.ObserveCommand("", StatusError)
		return []Response{failure(MsgInvalidJSON)}
	}
	dec := json.NewDecoder(bytes.NewReader(f.data))
	var out []Response
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		switch {
		case errors.Is(err, io.EOF):
			return out
		case err != nil:
			metrics.ObserveCommand("", StatusError)
			return append(out, failure(MsgInvalidJSON))
		}
		out = append(out, s.handler.HandleJSON(ctx, raw))
	}
}

func (s *Server) logSessionEnd(logger *slog.Logger, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.As(err, &ne) && ne.Timeout():
		logger.Info("Closing idle session", "idle_timeout", s.idleTimeout)
	default:
		logger.Debug("Session read failed", "error", err)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
