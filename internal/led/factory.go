package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

type board struct {
	match  string
	leds   map[string]string
	status string
}

var boards = []board{
	{match: "NanoPC-T6", leds: map[string]string{"user": "usr_led", "system": "sys_led"}, status: "system"},
	{match: "Orange Pi", leds: map[string]string{"blue": "blue_led", "green": "green_led"}, status: "green"},
	{match: "Raspberry Pi", leds: map[string]string{"act": "ACT"}, status: "act"},
}

// New picks a controller for the detected board, falling back to a virtual LED.
func New(logger *slog.Logger) Controller {
	return forModel(detectBoard(), sysfsLEDPath, logger)
}

func forModel(model, root string, logger *slog.Logger) Controller {
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			logger.Info("Using sysfs LED controller", "board_model", model, "status_led", b.status)
			return newSysfs(root, b.leds, b.status)
		}
	}
	logger.Info("No LED support detected, using virtual status LED", "board_model", model)
	return newVirtual(logger)
}

// detectBoard reads the device tree model; "unknown" off device tree hosts.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
