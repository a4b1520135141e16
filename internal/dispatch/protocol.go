// Package dispatch maps wire commands onto the runner and serves them to
// TCP clients. The same Handler backs the HTTP API and the NATS bridge.
package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
)

// Command names.
const (
	CommandMode   = "mode"
	CommandStop   = "stop"
	CommandOff    = "off"
	CommandStatus = "status"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response messages.
const (
	MsgModeStopped  = "mode stopped"
	MsgLEDsOff      = "LEDs off"
	MsgInvalidMode  = "invalid mode number (1-3)"
	MsgUnknown      = "unknown command"
	MsgInvalidJSON  = "invalid JSON"
	msgModeStartedF = "mode %d started"
)

// Command is one client request. Mode keeps the raw decoded JSON value so
// that non-integral and non-numeric modes can be rejected explicitly.
type Command struct {
	Command string `json:"command"`
	Mode    any    `json:"mode,omitempty"`
}

// State is the payload of a status response.
type State struct {
	CurrentMode *int `json:"current_mode"`
	Running     bool `json:"running"`
}

// Response is one reply. Status replies carry State instead of Message.
type Response struct {
	Status  string
	Message string
	State   *State
}

func success(msg string) Response { return Response{Status: StatusSuccess, Message: msg} }
func failure(msg string) Response { return Response{Status: StatusError, Message: msg} }

// MarshalJSON emits {"status","message"} or {"status","current_mode","running"}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.State != nil {
		return json.Marshal(struct {
			Status      string `json:"status"`
			CurrentMode *int   `json:"current_mode"`
			Running     bool   `json:"running"`
		}{r.Status, r.State.CurrentMode, r.State.Running})
	}
	return json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{r.Status, r.Message})
}

// UnmarshalJSON accepts either response shape.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status      string `json:"status"`
		Message     string `json:"message"`
		CurrentMode *int   `json:"current_mode"`
		Running     *bool  `json:"running"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Response{Status: raw.Status, Message: raw.Message}
	if raw.Running != nil {
		r.State = &State{CurrentMode: raw.CurrentMode, Running: *raw.Running}
	}
	return nil
}

// parseMode accepts integral numbers. JSON numbers decode as float64, so
// 2.0 is mode 2 while 2.5 is rejected.
func parseMode(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func modeStarted(m int) string {
	return fmt.Sprintf(msgModeStartedF, m)
}
