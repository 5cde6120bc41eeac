package sim

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"fuelsensor-sim/internal/logging"
	"fuelsensor-sim/internal/session"
	"fuelsensor-sim/internal/telemetry"
)

// ReplayLog replays records from r to writer. A speed >0 accelerates playback.
// If speed <= 0, no artificial delay is inserted.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var prev time.Time
	n := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec telemetry.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		if !prev.IsZero() && speed > 0 {
			diff := rec.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				if err := sleepCtx(ctx, diff); err != nil {
					return n, err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := writer.Write(rec); err != nil {
			return n, err
		}
		n++
		prev = rec.Timestamp
	}
	return n, sc.Err()
}

// ReplayLogFile opens a file and replays its records.
func ReplayLogFile(ctx context.Context, path string, writer TelemetryWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}

// IngestWriter submits records to the ingestion endpoint, logging in on first
// use and once more when the backend rejects the token.
type IngestWriter struct {
	ctx    context.Context
	client Submitter
	creds  session.Credentials

	mu   sync.Mutex
	sess *session.Session
}

// NewIngestWriter creates an IngestWriter bound to ctx.
func NewIngestWriter(ctx context.Context, client Submitter, creds session.Credentials) *IngestWriter {
	return &IngestWriter{ctx: ctx, client: client, creds: creds}
}

func (w *IngestWriter) session() (*session.Session, error) {
	if w.sess != nil && !w.sess.Expired(time.Now()) {
		return w.sess, nil
	}
	w.drop()
	sess, err := w.client.Login(w.ctx, w.creds)
	if err != nil {
		return nil, err
	}
	w.sess = sess
	return sess, nil
}

func (w *IngestWriter) drop() {
	if w.sess != nil {
		w.sess.Close()
		w.sess = nil
	}
}

// Write implements TelemetryWriter.
func (w *IngestWriter) Write(rec telemetry.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for attempt := 0; ; attempt++ {
		sess, err := w.session()
		if err != nil {
			return err
		}
		resp, err := w.client.Submit(w.ctx, sess, rec)
		if err == nil {
			logging.FromContext(w.ctx).Debug("record replayed", "sensor_id", rec.SensorID, "status", resp.Status)
			return nil
		}
		if attempt == 0 && errors.Is(err, session.ErrUnauthorized) {
			w.drop()
			continue
		}
		return err
	}
}

// Close releases the session.
func (w *IngestWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drop()
	return nil
}
