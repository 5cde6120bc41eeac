package sim

import (
	jsoniter "github.com/json-iterator/go"

	"fuelsensor-sim/internal/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StateWriter handles supervisor state transitions.
type StateWriter interface {
	WriteState(telemetry.StateRow) error
}

// EventWriter handles simulated tamper and refuel events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Optional: event writers may support batch mode.
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}

// AdminStatusWriter allows writers to receive admin server status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
