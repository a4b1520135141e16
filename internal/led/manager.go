package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/pixelnode/internal/events"
)

// Manager mirrors runner state on the status LED: solid while a pattern
// runs, heartbeat while idle.
type Manager struct {
	controller  Controller
	bus         *events.Bus
	logger      *slog.Logger
	unsubscribe func()

	mu      sync.Mutex
	current Pattern
}

// NewManager creates a manager. It does nothing until Start.
func NewManager(controller Controller, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{controller: controller, bus: bus, logger: logger}
}

// Start shows the idle pattern and begins following mode changes.
func (m *Manager) Start() {
	if m.controller.Status() == "" {
		m.logger.Debug("No status LED on this board")
		return
	}
	m.apply(PatternHeartbeat)
	m.unsubscribe = m.bus.Subscribe(m.handleModeChanged)
	m.logger.Info("LED manager started", "led", m.controller.Status())
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	if m.unsubscribe == nil {
		return
	}
	m.unsubscribe()
	m.unsubscribe = nil
	m.apply(PatternOff)
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleModeChanged(e events.ModeChangedEvent) {
	p := PatternHeartbeat
	if e.Running {
		p = PatternSolid
	}
	m.apply(p)
}

func (m *Manager) apply(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == p {
		return
	}
	if err := m.controller.Set(m.controller.Status(), p); err != nil {
		m.logger.Warn("Failed to set status LED", "pattern", p, "error", err)
		return
	}
	m.current = p
	m.logger.Debug("Status LED updated", "pattern", p)
}
