package sim

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/telemetry"
)

func TestJSONStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONStdoutWriter{out: &buf}
	rec := telemetry.Record{SensorID: "S1", FuelLevel: 50.5, Timestamp: time.Unix(0, 0).UTC()}
	if err := w.WriteBatch([]telemetry.Record{rec}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := w.WriteEvent(telemetry.EventRow{SensorID: "S1", EventType: telemetry.EventRefuel}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"sensor_id":"S1"`) || !strings.Contains(lines[0], `"fuel_level":50.5`) {
		t.Fatalf("unexpected record line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"event_type":"refuel"`) {
		t.Fatalf("unexpected event line: %s", lines[1])
	}
}

func TestColorStdoutWriter(t *testing.T) {
	cfg, err := config.Profile(config.ProfileSingle)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	var buf bytes.Buffer
	w := &ColorStdoutWriter{cfg: cfg, out: &buf}
	ts := time.Unix(0, 0).UTC()
	_ = w.Write(telemetry.Record{SensorID: "S1", FuelLevel: 5, ValveOpen: true, TiltDetected: true, Timestamp: ts})
	_ = w.WriteEvent(telemetry.EventRow{SensorID: "S1", EventType: telemetry.EventTamper, Drop: 12, Timestamp: ts})
	_ = w.WriteState(telemetry.StateRow{State: "disconnected", Error: "reset", Timestamp: ts})
	out := buf.String()
	if strings.Count(out, "Simulation Configuration:") != 1 {
		t.Fatalf("overview should be printed once: %s", out)
	}
	for _, want := range []string{"sensor=S1", colorRed + "fuel=5.00", "valve=open", "tilt", "ALERT", "drop=12.00", `err="reset"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
