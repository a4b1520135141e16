package strip

import (
	"fmt"
	"log/slog"
	"os"
)

// Config selects and sizes a driver.
type Config struct {
	Driver       string // auto, spi, noop or memory
	Device       string
	Count        int
	FrequencyKHz int
}

// New opens the configured driver. "auto" uses spi when the device node
// exists and falls back to noop otherwise.
func New(cfg Config, logger *slog.Logger) (Driver, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("invalid pixel count %d", cfg.Count)
	}

	switch cfg.Driver {
	case "spi":
		return openSPIDriver(cfg, logger)

	case "", "auto":
		if _, err := os.Stat(cfg.Device); err == nil {
			return openSPIDriver(cfg, logger)
		}
		if logger != nil {
			logger.Info("No SPI device found, using no-op strip driver", "device", cfg.Device)
		}
		return newNoop(cfg.Count, logger), nil

	case "noop":
		return newNoop(cfg.Count, logger), nil

	case "memory":
		return NewMemory(cfg.Count), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func openSPIDriver(cfg Config, logger *slog.Logger) (Driver, error) {
	if cfg.FrequencyKHz <= 0 {
		return nil, fmt.Errorf("invalid signal frequency %d kHz", cfg.FrequencyKHz)
	}
	d, err := openSPI(cfg.Device, cfg.Count, cfg.FrequencyKHz)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("Opened SPI strip driver",
			"device", cfg.Device,
			"pixels", cfg.Count,
			"clock_hz", spiClockHz(cfg.FrequencyKHz))
	}
	return d, nil
}
