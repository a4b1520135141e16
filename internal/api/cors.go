package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// Origins lists allowed origins. "*" or an empty list allows any.
	Origins []string
	Methods []string
	Headers []string
	MaxAge  int // preflight cache, seconds
}

// DefaultCORSConfig allows any origin; the controller sits on a LAN.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Origins: []string{"*"},
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		Headers: []string{"Authorization", "Content-Type", "Accept", "Last-Event-ID"},
		MaxAge:  600,
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// from origin, or "" when the origin is refused.
func (c CORSConfig) allowOrigin(origin string) string {
	if len(c.Origins) == 0 || slices.Contains(c.Origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.Origins, origin) {
		return origin
	}
	return ""
}

func (c CORSConfig) apply(set func(k, v string), origin string, preflight bool) {
	allowed := c.allowOrigin(origin)
	if allowed == "" {
		return
	}
	set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		set("Vary", "Origin")
	}
	if preflight {
		set("Access-Control-Allow-Methods", strings.Join(c.Methods, ", "))
		set("Access-Control-Allow-Headers", strings.Join(c.Headers, ", "))
		set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

// NewCORSMiddleware adds CORS headers to huma operation responses.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		config.apply(ctx.SetHeader, ctx.Header("Origin"), false)
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests, which never reach huma routing.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		config.apply(w.Header().Set, r.Header.Get("Origin"), true)
		w.WriteHeader(http.StatusNoContent)
	})
}
