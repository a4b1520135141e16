// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"runner":   "debug",
//			"dispatch": "warn",
//		},
//	})
//
//	logger := logging.GetLogger("runner")
//	logger.Info("Pattern started", "mode", 1)
//
// Records fan out to stdout (text or json), to the systemd journal when
// journald is reachable (see [github.com/coreos/go-systemd/v22/journal]),
// and to an in-memory ring buffer served by the HTTP API at /api/logs.
//
// Journal entries carry SYSLOG_IDENTIFIER=pixelnode and every attribute as
// an upper-cased field:
//
//	journalctl -t pixelnode MODULE=runner
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	runner = "debug"
package logging
