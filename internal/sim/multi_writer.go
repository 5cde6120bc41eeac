package sim

import (
	"errors"
	"io"

	"fuelsensor-sim/internal/telemetry"
)

// MultiWriter fan-outs records, state rows and events to multiple writers.
// Every writer receives every row; errors are joined.
type MultiWriter struct {
	telewriters  []TelemetryWriter
	statewriters []StateWriter
	eventwriters []EventWriter
}

// NewMultiWriter creates a MultiWriter. Telemetry writers that also implement
// StateWriter, EventWriter or AdminStatusWriter are picked up automatically.
func NewMultiWriter(tws ...TelemetryWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range tws {
		if w == nil {
			continue
		}
		mw.telewriters = append(mw.telewriters, w)
		if sw, ok := w.(StateWriter); ok {
			mw.statewriters = append(mw.statewriters, sw)
		}
		if ew, ok := w.(EventWriter); ok {
			mw.eventwriters = append(mw.eventwriters, ew)
		}
	}
	return mw
}

// Len reports the number of telemetry writers.
func (mw *MultiWriter) Len() int { return len(mw.telewriters) }

// Write sends a record to all writers.
func (mw *MultiWriter) Write(rec telemetry.Record) error {
	var errs []error
	for _, w := range mw.telewriters {
		if err := w.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple records to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(recs []telemetry.Record) error {
	var errs []error
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(recs); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range recs {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteState sends a state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.StateRow) error {
	var errs []error
	for _, w := range mw.statewriters {
		if err := w.WriteState(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteEvent sends an event to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	var errs []error
	for _, w := range mw.eventwriters {
		if err := w.WriteEvent(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteEvents sends multiple events to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	var errs []error
	for _, w := range mw.eventwriters {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteEvent(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin server status to interested writers.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.telewriters {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.telewriters {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
