package sim

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"fuelsensor-sim/internal/telemetry"
)

// FileWriter writes records, fuel events and state transitions to JSONL files.
type FileWriter struct {
	teleFile  *os.File
	eventFile *os.File
	stateFile *os.File
	teleEnc   *jsoniter.Encoder
	eventEnc  *jsoniter.Encoder
	stateEnc  *jsoniter.Encoder
}

// NewFileWriter creates a FileWriter. eventPath or statePath may be empty to skip those logs.
func NewFileWriter(telemetryPath, eventPath, statePath string) (*FileWriter, error) {
	tf, err := os.Create(telemetryPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{teleFile: tf, teleEnc: json.NewEncoder(tf)}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// Write logs a single record.
func (f *FileWriter) Write(rec telemetry.Record) error {
	return f.teleEnc.Encode(rec)
}

// WriteBatch logs multiple records.
func (f *FileWriter) WriteBatch(recs []telemetry.Record) error {
	for _, r := range recs {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a fuel event, if enabled.
func (f *FileWriter) WriteEvent(e telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(e)
}

// WriteEvents logs multiple fuel events.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, e := range rows {
		if err := f.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteState logs a state transition, if enabled.
func (f *FileWriter) WriteState(row telemetry.StateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.teleFile, f.eventFile, f.stateFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
