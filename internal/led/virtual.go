package led

import (
	"log/slog"
	"sync"
)

// virtual stands in on hosts without controllable LEDs. It accepts every
// LED name and remembers the last pattern so the state stays observable.
type virtual struct {
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]Pattern
}

func newVirtual(logger *slog.Logger) *virtual {
	return &virtual{logger: logger, last: make(map[string]Pattern)}
}

func (v *virtual) Set(led string, p Pattern) error {
	v.mu.Lock()
	v.last[led] = p
	v.mu.Unlock()
	v.logger.Debug("Status LED (virtual)", "led", led, "pattern", p)
	return nil
}

// Available is empty: nothing physical can be driven.
func (v *virtual) Available() []string { return nil }

// Status names a pseudo LED so the manager still tracks runner state.
func (v *virtual) Status() string { return "virtual" }

func (v *virtual) pattern(led string) Pattern {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last[led]
}
