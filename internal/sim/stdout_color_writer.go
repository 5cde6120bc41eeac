// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints records using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

// NewStdoutWriter picks the colorized writer on a terminal and JSON lines otherwise.
func NewStdoutWriter(cfg *config.SimulationConfig) TelemetryWriter {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return NewColorStdoutWriter(cfg)
	}
	return NewJSONStdoutWriter()
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Profile:\t%s\n", w.cfg.Profile)
	fmt.Fprintf(tw, "Endpoint:\t%s\n", w.cfg.Endpoint.BaseURL)
	fmt.Fprintf(tw, "Sensors:\t%d\n", len(w.cfg.SensorIDs()))
	fmt.Fprintf(tw, "Center:\t%.4f, %.4f\n", w.cfg.Geo.CenterLat, w.cfg.Geo.CenterLng)
	fmt.Fprintf(tw, "Valve Open Probability:\t%.2f\n", w.cfg.Probabilities.ValveOpen)
	fmt.Fprintf(tw, "Tilt Probability:\t%.2f\n", w.cfg.Probabilities.Tilt)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.TickInterval)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// fuelColor grades a fuel level for display.
func fuelColor(level float64) string {
	switch {
	case level <= 10:
		return colorRed
	case level <= 30:
		return colorYellow
	default:
		return colorGreen
	}
}

// Write outputs a single record in colorized format.
func (w *ColorStdoutWriter) Write(rec telemetry.Record) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, rec.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%ssensor=%s%s ", colorBlue, rec.SensorID, colorReset)
	fmt.Fprintf(w.out, "%sfuel=%.2f%s ", fuelColor(rec.FuelLevel), rec.FuelLevel, colorReset)
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, rec.Latitude, colorReset)
	fmt.Fprintf(w.out, "%slon=%.5f%s", colorYellow, rec.Longitude, colorReset)
	if rec.ValveOpen {
		fmt.Fprintf(w.out, " %svalve=open%s", colorMagenta, colorReset)
	}
	if rec.TiltDetected {
		fmt.Fprintf(w.out, " %stilt%s", colorCyan, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple records.
func (w *ColorStdoutWriter) WriteBatch(recs []telemetry.Record) error {
	for _, r := range recs {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent prints a tamper or refuel alert.
func (w *ColorStdoutWriter) WriteEvent(e telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	switch e.EventType {
	case telemetry.EventTamper:
		fmt.Fprintf(w.out, "%s[%s]%s %sALERT%s possible fuel theft sensor=%s drop=%.2f fuel=%.2f\n",
			colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
			colorRed, colorReset, e.SensorID, e.Drop, e.FuelLevel)
	default:
		fmt.Fprintf(w.out, "%s[%s]%s %sREFUEL%s sensor=%s fuel=%.2f\n",
			colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
			colorGreen, colorReset, e.SensorID, e.FuelLevel)
	}
	return nil
}

// WriteState prints supervisor transitions.
func (w *ColorStdoutWriter) WriteState(row telemetry.StateRow) error {
	w.once.Do(w.printOverview)
	col := colorBlue
	if row.Error != "" {
		col = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sSTATE%s %s pass=%d submitted=%d",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		col, colorReset, row.State, row.Pass, row.Submitted)
	if row.Error != "" {
		fmt.Fprintf(w.out, " err=%q", row.Error)
	}
	fmt.Fprintln(w.out)
	return nil
}
