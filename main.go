package main

import (
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/pixelnode/cmd"
	"github.com/smazurov/pixelnode/internal/config"
	"github.com/smazurov/pixelnode/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Command server
	Port        string `help:"TCP command server address" short:"p" default:":8888" toml:"server.port" env:"SERVER_PORT"`
	IdleTimeout string `help:"Close sessions idle this long, 0 to disable" default:"0s" toml:"server.idle_timeout" env:"SERVER_IDLE_TIMEOUT"`

	// HTTP admin API
	HTTPPort     string `help:"HTTP API address, empty to disable" default:"" toml:"http.port" env:"HTTP_PORT"`
	AuthUsername string `help:"HTTP basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"HTTP basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Strip
	StripDriver    string `help:"Strip driver (auto, spi, noop, memory)" default:"auto" toml:"strip.driver" env:"STRIP_DRIVER"`
	StripDevice    string `help:"SPI device node" default:"/dev/spidev0.0" toml:"strip.device" env:"STRIP_DEVICE"`
	StripCount     int    `help:"Number of pixels" default:"20" toml:"strip.count" env:"STRIP_COUNT"`
	StripFrequency int    `help:"Signal frequency in kHz" default:"800" toml:"strip.frequency_khz" env:"STRIP_FREQUENCY"`
	StripOrder     string `help:"Channel order (rgb, grb, brg)" default:"grb" toml:"strip.order" env:"STRIP_ORDER"`

	// Runner
	StopTimeout  string `help:"Minimum wait for a pattern to stop" default:"1s" toml:"runner.stop_timeout" env:"RUNNER_STOP_TIMEOUT"`
	PatternsFile string `help:"Pattern settings file, defaults to the config file" default:"" toml:"patterns.file" env:"PATTERNS_FILE"`

	// NATS
	NatsURL          string `help:"NATS server URL, empty to disable the bridge" default:"" toml:"nats.url" env:"NATS_URL"`
	NatsSubject      string `help:"NATS subject prefix" default:"pixelnode" toml:"nats.subject" env:"NATS_SUBJECT"`
	NatsEmbedded     bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsEmbeddedPort int    `help:"Embedded NATS server port" default:"4222" toml:"nats.embedded_port" env:"NATS_EMBEDDED_PORT"`

	// Features
	FeaturesStatusLED bool `help:"Show runner state on the board status LED" default:"false" toml:"features.status_led" env:"FEATURES_STATUS_LED"`

	// Logging
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingRunner   string `help:"Runner logging level" default:"" toml:"logging.runner" env:"LOGGING_RUNNER"`
	LoggingDispatch string `help:"Command server logging level" default:"" toml:"logging.dispatch" env:"LOGGING_DISPATCH"`
	LoggingStrip    string `help:"Strip driver logging level" default:"" toml:"logging.strip" env:"LOGGING_STRIP"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingNats     string `help:"NATS logging level" default:"" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"runner":   opts.LoggingRunner,
				"dispatch": opts.LoggingDispatch,
				"strip":    opts.LoggingStrip,
				"api":      opts.LoggingAPI,
				"http":     opts.LoggingAPI,
				"nats":     opts.LoggingNats,
			},
		})

		logger := logging.GetLogger("main")
		a := newApp(opts, logger)

		// This callback also runs for subcommands, so hardware is only
		// touched once the server command starts.
		hooks.OnStart(func() {
			if startErr := a.start(); startErr != nil {
				logger.Error("Failed to start", "error", startErr)
				os.Exit(1)
			}
			if serveErr := a.serve(); serveErr != nil {
				logger.Error("Command server failed", "error", serveErr)
				a.stop()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			a.stop()
		})
	})

	cli.Root().Use = "pixelnode"
	cli.Root().Short = "LED strip pattern server"
	cli.Root().AddCommand(cmd.CreateClientCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
