package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 500

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"` // per-module level overrides
}

// moduleLogger pairs a cached logger with the level it reads.
type moduleLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

type registry struct {
	mu      sync.RWMutex
	config  Config
	ready   bool // Initialize has run
	modules map[string]*moduleLogger
}

var (
	reg       = &registry{modules: make(map[string]*moduleLogger)}
	logBuffer = NewRingBuffer(defaultBufferSize)
)

// Initialize applies config. Loggers handed out earlier keep their identity;
// their level and output chain are refreshed in place.
func Initialize(config Config) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.config = config
	reg.ready = true
	for name, m := range reg.modules {
		m.level.Set(reg.levelFor(name))
		*m.logger = *newModuleLogger(name, config.Format, m.level)
	}

	root := &slog.LevelVar{}
	root.Set(levelOrDefault(config.Level, slog.LevelInfo))
	slog.SetDefault(slog.New(createHandler(config.Format, root)))
}

// GetBuffer returns the ring buffer holding recent log entries.
func GetBuffer() *RingBuffer {
	return logBuffer
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	return reg.get(module).logger
}

// SetModuleLevel changes a module's level at runtime. It reports false
// when level is not recognized.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}
	reg.get(module).level.Set(*parsed)
	return true
}

func (r *registry) get(module string) *moduleLogger {
	r.mu.RLock()
	m, ok := r.modules[module]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.modules[module]; ok {
		return m
	}

	level := &slog.LevelVar{}
	format := "text"
	if r.ready {
		level.Set(r.levelFor(module))
		format = r.config.Format
	}
	m = &moduleLogger{logger: newModuleLogger(module, format, level), level: level}
	r.modules[module] = m
	return m
}

// levelFor resolves the effective level for module. Caller holds mu.
func (r *registry) levelFor(module string) slog.Level {
	level := levelOrDefault(r.config.Level, slog.LevelInfo)
	return levelOrDefault(r.config.Modules[module], level)
}

func newModuleLogger(module, format string, level slog.Leveler) *slog.Logger {
	return slog.New(createHandler(format, level)).With("module", module)
}

// createHandler builds the output chain: stdout as text or json, journald
// when its socket exists, and the in-memory ring buffer.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout, journal slog.Handler
	if stdoutUsable() {
		if format == "json" {
			stdout = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			stdout = slog.NewTextHandler(os.Stdout, opts)
		}
	}
	if IsJournalAvailable() {
		journal = NewJournalHandler(level)
	}
	return NewMultiHandler(stdout, journal, NewBufferHandler(logBuffer, level))
}

// stdoutUsable reports whether stdout goes somewhere: a terminal, pipe,
// socket or file. Under systemd with StandardOutput=null it does not.
func stdoutUsable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode.IsRegular() || mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0
}

func levelOrDefault(level string, def slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return def
}

// parseLevel returns nil for anything but debug, info, warn(ing) or error.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
