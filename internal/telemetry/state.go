package telemetry

import "time"

// StateRow captures a transition of the simulation loop.
type StateRow struct {
	State     string    `json:"state"`
	Pass      int       `json:"pass"`
	Submitted int       `json:"submitted"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"ts"`
}
