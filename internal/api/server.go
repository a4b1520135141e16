// Package api serves the optional HTTP admin API. Commands go through the
// same dispatch.Handler as the TCP protocol.
package api

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/pixelnode/internal/dispatch"
	"github.com/smazurov/pixelnode/internal/events"
	"github.com/smazurov/pixelnode/internal/logging"
)

// Options configures the API server.
type Options struct {
	AuthUsername   string
	AuthPassword   string
	Handler        *dispatch.Handler
	Bus            *events.Bus         // optional, enables /api/events
	Logs           *logging.RingBuffer // optional, defaults to the global buffer
	MetricsHandler http.Handler        // optional Prometheus handler
	Logger         *slog.Logger
}

// Server is the huma HTTP API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    Options
	logger     *slog.Logger
}

// NewServer creates the API server and registers its routes.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("api")
	}
	if opts.Logs == nil {
		opts.Logs = logging.GetBuffer()
	}

	mux := http.NewServeMux()
	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("pixelnode API", "1.0.0")
	config.Info.Description = "LED strip pattern control"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {Type: "http", Scheme: "basic"},
	}

	api := humago.New(mux, config)
	s := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  opts.Logger,
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.registerSystemRoutes()
	s.registerCommandRoutes()
	s.registerLogRoutes()
	s.registerEventRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Start serves on addr until Stop. It returns nil after a clean stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP API", "addr", addr)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes the listener and every open connection, event streams included.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP API")
	return s.httpServer.Close()
}

func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, ok := parseBasicAuth(ctx.Header("Authorization"))
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="pixelnode"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(ctx)
	}
}

// parseBasicAuth decodes an "Authorization: Basic" header value.
func parseBasicAuth(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}

func withAuth() []map[string][]string {
	return []map[string][]string{{"basicAuth": {}}}
}

func noAuth() []map[string][]string {
	return []map[string][]string{}
}

func (s *Server) registerEventRoutes() {
	if s.options.Bus == nil {
		return
	}
	registerEventStream(s.api, s.options.Bus)
}
