// Package led drives the on-board status LED of the host computer.
package led

// Pattern is a status LED behaviour.
type Pattern string

const (
	PatternSolid     Pattern = "solid"
	PatternHeartbeat Pattern = "heartbeat"
	PatternOff       Pattern = "off"
)

// Controller abstracts board LEDs. LED names are board-specific, e.g.
// "system" on a NanoPC-T6 or "act" on a Raspberry Pi.
type Controller interface {
	Set(led string, p Pattern) error
	Available() []string
	// Status names the LED used to show runner state, "" when there is none.
	Status() string
}
