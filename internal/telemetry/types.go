// Telemetry records emitted for simulated fuel sensors
package telemetry

import (
	"math"
	"os"
	"time"
)

// Record represents one telemetry sample posted to the ingestion endpoint.
type Record struct {
	SensorID     string    `json:"sensor_id"`     // TAG
	FuelLevel    float64   `json:"fuel_level"`    // FIELD, percent, 2 decimals
	ValveOpen    bool      `json:"valve_open"`    // FIELD
	Latitude     float64   `json:"latitude"`      // FIELD
	Longitude    float64   `json:"longitude"`     // FIELD
	TiltDetected bool      `json:"tilt_detected"` // FIELD
	Timestamp    time.Time `json:"timestamp"`     // TIME INDEX, UTC
}

// RecordTableName holds the table name used when mirroring records to GreptimeDB.
// It defaults to "fuel_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var RecordTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "fuel_telemetry"
}()

func (Record) TableName() string {
	return RecordTableName
}

// Fuel level bounds in percent.
const (
	FuelEmpty = 0.0
	FuelFull  = 100.0
)

// FuelState is the fuel level a sensor starts its next tick with.
type FuelState float64

// Outcome reports the anomalies produced by a single tick.
type Outcome struct {
	Tampered bool    // valve was open, tampering drop applied
	Refueled bool    // level hit empty, next tick starts full
	Drop     float64 // total depletion applied this tick
}

// roundLevel rounds a fuel level to two decimal places.
func roundLevel(v float64) float64 {
	return math.Round(v*100) / 100
}
