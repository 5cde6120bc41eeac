package sim

import (
	"fmt"
	"io"
	"os"

	"fuelsensor-sim/internal/telemetry"
)

// JSONStdoutWriter prints records, events and state rows as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a record in JSON format.
func (w *JSONStdoutWriter) Write(rec telemetry.Record) error {
	return w.emit(rec)
}

// WriteBatch outputs multiple records in JSON format.
func (w *JSONStdoutWriter) WriteBatch(recs []telemetry.Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent outputs a fuel event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(e telemetry.EventRow) error {
	return w.emit(e)
}

// WriteState outputs a state transition in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.StateRow) error {
	return w.emit(row)
}
