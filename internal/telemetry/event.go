package telemetry

import "time"

const (
	EventRefuel = "refuel"
	EventTamper = "tamper"
)

// EventRow represents a simulated anomaly or maintenance event for a sensor.
type EventRow struct {
	SensorID  string    `json:"sensor_id"`
	EventType string    `json:"event_type"`
	FuelLevel float64   `json:"fuel_level"`
	Drop      float64   `json:"drop"`
	Timestamp time.Time `json:"ts"`
}

// EventsFor converts a tick outcome into event rows.
func EventsFor(rec Record, out Outcome) []EventRow {
	var rows []EventRow
	if out.Tampered {
		rows = append(rows, EventRow{SensorID: rec.SensorID, EventType: EventTamper, FuelLevel: rec.FuelLevel, Drop: roundLevel(out.Drop), Timestamp: rec.Timestamp})
	}
	if out.Refueled {
		rows = append(rows, EventRow{SensorID: rec.SensorID, EventType: EventRefuel, FuelLevel: FuelFull, Timestamp: rec.Timestamp})
	}
	return rows
}
