package events

// Event type constants for kelindar/event.
const (
	TypeModeChanged uint32 = iota + 1
	TypeDriverError
	TypeSettingsReloaded
	TypeSession
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Reasons carried by ModeChangedEvent.
const (
	ReasonStart       = "start"
	ReasonStop        = "stop"
	ReasonOff         = "off"
	ReasonDriverError = "driver_error"
	ReasonShutdown    = "shutdown"
)

// ModeChangedEvent is published after every runner transition.
type ModeChangedEvent struct {
	Mode       int    `json:"current_mode" example:"2" doc:"Active mode, 0 when idle"`
	Pattern    string `json:"pattern" example:"chase" doc:"Active pattern name"`
	Running    bool   `json:"running" example:"true" doc:"Whether a pattern is running"`
	Reason     string `json:"reason" example:"start" doc:"What caused the change"`
	Generation uint64 `json:"generation" example:"7" doc:"Worker generation"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ModeChangedEvent.
func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// DriverErrorEvent is published when a strip write fails inside a worker.
type DriverErrorEvent struct {
	Pattern   string `json:"pattern" example:"fade" doc:"Pattern that was running"`
	Error     string `json:"error" example:"spi write: broken pipe" doc:"Driver error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DriverErrorEvent.
func (e DriverErrorEvent) Type() uint32 { return TypeDriverError }

// SettingsReloadedEvent is published after pattern settings were reloaded.
type SettingsReloadedEvent struct {
	Path      string `json:"path" example:"config.toml" doc:"Settings file"`
	Restarted bool   `json:"restarted" doc:"Whether the running pattern was restarted"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SettingsReloadedEvent.
func (e SettingsReloadedEvent) Type() uint32 { return TypeSettingsReloaded }

// SessionEvent is published when a TCP client connects or disconnects.
type SessionEvent struct {
	Remote    string `json:"remote" example:"192.168.1.20:51234" doc:"Client address"`
	Action    string `json:"action" example:"opened" doc:"opened or closed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionEvent.
func (e SessionEvent) Type() uint32 { return TypeSession }
