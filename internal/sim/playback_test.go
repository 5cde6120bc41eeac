package sim

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"fuelsensor-sim/internal/session"
	"fuelsensor-sim/internal/telemetry"
)

type collectWriter struct{ rows []telemetry.Record }

func (c *collectWriter) Write(r telemetry.Record) error {
	c.rows = append(c.rows, r)
	return nil
}

func encodeRecords(t *testing.T, recs ...telemetry.Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	recs := []telemetry.Record{
		{SensorID: "S1", FuelLevel: 99, Timestamp: time.Unix(0, 0)},
		{SensorID: "S2", FuelLevel: 98, Timestamp: time.Unix(1, 0)},
	}
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), encodeRecords(t, recs...), cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != len(recs) || len(cw.rows) != len(recs) {
		t.Fatalf("expected %d rows, got %d", len(recs), len(cw.rows))
	}
	for i, r := range recs {
		if cw.rows[i].SensorID != r.SensorID {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.rows[i], r)
		}
	}
}

func TestReplayLogFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.log")
	fw, err := NewFileWriter(path, "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := fw.Write(telemetry.Record{SensorID: fmt.Sprintf("S%d", i), FuelLevel: 90, Timestamp: time.Now().UTC()}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	cw := &collectWriter{}
	n, err := ReplayLogFile(context.Background(), path, cw, 0)
	if err != nil {
		t.Fatalf("a complete log must replay without error: %v", err)
	}
	if n != 3 || cw.rows[2].SensorID != "S2" {
		t.Fatalf("expected 3 rows, got %d: %+v", n, cw.rows)
	}
}

func TestReplayLogMalformedLine(t *testing.T) {
	in := bytes.NewBufferString("{\"sensor_id\":\"S1\"}\n\nnot json\n")
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), in, cw, 0)
	if err == nil || n != 1 {
		t.Fatalf("expected error after one record, got n=%d err=%v", n, err)
	}
}

func TestReplayLogCancelled(t *testing.T) {
	recs := []telemetry.Record{
		{SensorID: "S1", Timestamp: time.Unix(0, 0)},
		{SensorID: "S1", Timestamp: time.Unix(3600, 0)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cw := &collectWriter{}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	n, err := ReplayLog(ctx, encodeRecords(t, recs...), cw, 1)
	if err == nil || n != 1 {
		t.Fatalf("expected cancellation after first record, got n=%d err=%v", n, err)
	}
}

func TestIngestWriterReauthenticatesOnce(t *testing.T) {
	fb := &fakeBackend{
		tokens: []string{"t1", "t2"},
		submitErrs: map[int]error{
			0: &session.TransportError{Op: "ingest", Err: fmt.Errorf("%w: status 401", session.ErrUnauthorized)},
		},
	}
	w := NewIngestWriter(context.Background(), fb, session.Credentials{})
	if err := w.Write(telemetry.Record{SensorID: "S1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fb.logins != 2 {
		t.Fatalf("expected 2 logins, got %d", fb.logins)
	}
	if err := w.Write(telemetry.Record{SensorID: "S2"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fb.logins != 2 {
		t.Fatalf("session should be reused, got %d logins", fb.logins)
	}
	if got := fb.submittedIDs(); len(got) != 2 || got[0] != "S1" || got[1] != "S2" {
		t.Fatalf("unexpected submissions: %v", got)
	}
	_ = w.Close()
}
