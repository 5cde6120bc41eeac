package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"

	"fuelsensor-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter mirrors records, fuel events and state transitions to GreptimeDB.
type GreptimeDBWriter struct {
	client     greptimeClient
	table      string
	eventTable string
	stateTable string
	timeout    time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and writes into database.
func NewGreptimeDBWriter(endpoint, database, eventTable, stateTable string) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid GreptimeDB port %q: %w", p, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if eventTable == "" {
		eventTable = telemetry.RecordTableName + "_events"
	}
	if stateTable == "" {
		stateTable = telemetry.RecordTableName + "_state"
	}
	return &GreptimeDBWriter{
		client:     client,
		table:      telemetry.RecordTableName,
		eventTable: eventTable,
		stateTable: stateTable,
		timeout:    5 * time.Second,
	}, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table, name string, rows int) error {
	timeout := w.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptimedb write %s: %w", name, err)
	}
	slog.Debug("greptimedb rows written", "table", name, "rows", rows)
	return nil
}

// Write inserts a single record.
func (w *GreptimeDBWriter) Write(rec telemetry.Record) error {
	return w.WriteBatch([]telemetry.Record{rec})
}

// WriteBatch inserts multiple records.
func (w *GreptimeDBWriter) WriteBatch(recs []telemetry.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("sensor_id", types.STRING)
	tbl.AddFieldColumn("fuel_level", types.FLOAT64)
	tbl.AddFieldColumn("valve_open", types.BOOLEAN)
	tbl.AddFieldColumn("latitude", types.FLOAT64)
	tbl.AddFieldColumn("longitude", types.FLOAT64)
	tbl.AddFieldColumn("tilt_detected", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	for _, r := range recs {
		if err := tbl.AddRow(r.SensorID, r.FuelLevel, r.ValveOpen, r.Latitude, r.Longitude, r.TiltDetected, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, w.table, len(recs))
}

// WriteEvent inserts a fuel event.
func (w *GreptimeDBWriter) WriteEvent(e telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{e})
}

// WriteEvents inserts multiple fuel events.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("sensor_id", types.STRING)
	tbl.AddTagColumn("event_type", types.STRING)
	tbl.AddFieldColumn("fuel_level", types.FLOAT64)
	tbl.AddFieldColumn("drop", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	for _, e := range rows {
		if err := tbl.AddRow(e.SensorID, e.EventType, e.FuelLevel, e.Drop, e.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, w.eventTable, len(rows))
}

// WriteState inserts a supervisor transition.
func (w *GreptimeDBWriter) WriteState(row telemetry.StateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("state", types.STRING)
	tbl.AddFieldColumn("pass", types.INT64)
	tbl.AddFieldColumn("submitted", types.INT64)
	tbl.AddFieldColumn("error", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	if err := tbl.AddRow(row.State, int64(row.Pass), int64(row.Submitted), row.Error, row.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, w.stateTable, 1)
}
