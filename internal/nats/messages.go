package nats

import (
	"encoding/json"
	"strings"

	"github.com/smazurov/pixelnode/internal/events"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "pixelnode"

// SubjectCommand returns the request/reply subject for commands.
func SubjectCommand(prefix string) string {
	return subject(prefix, "command")
}

// SubjectState returns the subject state changes are published on.
func SubjectState(prefix string) string {
	return subject(prefix, "state")
}

func subject(prefix, leaf string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubject
	}
	return prefix + "." + leaf
}

// StateMessage is published on the state subject. CurrentMode is null while
// idle, matching the status reply.
type StateMessage struct {
	CurrentMode *int   `json:"current_mode"`
	Running     bool   `json:"running"`
	Pattern     string `json:"pattern,omitempty"`
	Reason      string `json:"reason"`
	Generation  uint64 `json:"generation"`
	Timestamp   string `json:"timestamp"`
}

// NewStateMessage converts a runner event.
func NewStateMessage(e events.ModeChangedEvent) StateMessage {
	m := StateMessage{
		Running:    e.Running,
		Reason:     e.Reason,
		Generation: e.Generation,
		Timestamp:  e.Timestamp,
	}
	if e.Running {
		mode := e.Mode
		m.CurrentMode = &mode
		m.Pattern = e.Pattern
	}
	return m
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalState deserializes a state message.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
