package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through the Linux LED class interface.
type sysfs struct {
	root   string
	leds   map[string]string // name -> sysfs directory
	status string
}

func newSysfs(root string, leds map[string]string, status string) *sysfs {
	return &sysfs{root: root, leds: leds, status: status}
}

// Set switches the trigger first so that a manual brightness is not
// overridden by a previous trigger.
func (s *sysfs) Set(led string, p Pattern) error {
	dir, ok := s.leds[led]
	if !ok {
		return fmt.Errorf("LED %q not supported on this board", led)
	}
	ledPath := filepath.Join(s.root, dir)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q: %w", led, err)
	}

	switch p {
	case PatternHeartbeat:
		return writeAttr(ledPath, "trigger", "heartbeat")
	case PatternSolid:
		if err := writeAttr(ledPath, "trigger", "none"); err != nil {
			return err
		}
		return writeAttr(ledPath, "brightness", "1")
	case PatternOff:
		if err := writeAttr(ledPath, "trigger", "none"); err != nil {
			return err
		}
		return writeAttr(ledPath, "brightness", "0")
	default:
		return fmt.Errorf("unknown LED pattern %q", p)
	}
}

func writeAttr(ledPath, attr, value string) error {
	if err := os.WriteFile(filepath.Join(ledPath, attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("set LED %s: %w", attr, err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *sysfs) Status() string { return s.status }
