package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// recordMsg carries an accepted record for the sensor table.
type recordMsg struct{ telemetry.Record }

// eventMsg carries a fuel event line.
type eventMsg struct {
	line string
	row  telemetry.EventRow
}

// stateMsg carries a supervisor transition.
type stateMsg struct{ telemetry.StateRow }

// adminMsg reports admin server status.
type adminMsg struct{ active bool }

const (
	maxLogLines         = 500
	maxEventLines       = 100
	maxSectionHeightPct = 0.25
	lowFuelThreshold    = 15.0
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders telemetry using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		// Quitting the dashboard stops the simulator like Ctrl+C would.
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(rec telemetry.Record) error {
	line := fmt.Sprintf("[%s] sensor=%s fuel=%.2f lat=%.5f lon=%.5f valve=%t tilt=%t",
		rec.Timestamp.Format(time.RFC3339), rec.SensorID, rec.FuelLevel,
		rec.Latitude, rec.Longitude, rec.ValveOpen, rec.TiltDetected)
	w.program.Send(logMsg{line: line})
	w.program.Send(recordMsg{rec})
	return nil
}

// WriteBatch implements batchWriter.
func (w *TUIWriter) WriteBatch(recs []telemetry.Record) error {
	for _, r := range recs {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e telemetry.EventRow) error {
	var line string
	switch e.EventType {
	case telemetry.EventTamper:
		line = fmt.Sprintf("[%s] TAMPER sensor=%s drop=%.2f fuel=%.2f", e.Timestamp.Format(time.RFC3339), e.SensorID, e.Drop, e.FuelLevel)
	default:
		line = fmt.Sprintf("[%s] REFUEL sensor=%s", e.Timestamp.Format(time.RFC3339), e.SensorID)
	}
	w.program.Send(eventMsg{line: line, row: e})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.StateRow) error {
	w.program.Send(stateMsg{row})
	return nil
}

// SetAdminStatus implements AdminStatusWriter.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type sensorRow struct {
	rec     telemetry.Record
	tampers int
	refuels int
}

type tuiModel struct {
	cfg        *config.SimulationConfig
	sensors    table.Model
	vp         viewport.Model
	eventVP    viewport.Model
	logs       []string
	eventLogs  []string
	order      []string
	rows       map[string]*sensorRow
	state      telemetry.StateRow
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Sensor", Width: 16},
		{Title: "Fuel %", Width: 8},
		{Title: "Valve", Width: 6},
		{Title: "Tilt", Width: 5},
		{Title: "Tamper", Width: 7},
		{Title: "Refuel", Width: 7},
		{Title: "Updated", Width: 10},
	}
	m := tuiModel{
		cfg:        cfg,
		vp:         viewport.New(0, 0),
		eventVP:    viewport.New(0, 0),
		rows:       make(map[string]*sensorRow),
		autoscroll: true,
		state:      telemetry.StateRow{State: string(StateDisconnected)},
	}
	if cfg != nil {
		for _, id := range cfg.SensorIDs() {
			m.order = append(m.order, id)
			m.rows[id] = &sensorRow{rec: telemetry.Record{SensorID: id, FuelLevel: telemetry.FuelFull}}
		}
	}
	m.sensors = table.New(table.WithColumns(cols), table.WithHeight(len(m.order)+1))
	m.refreshSensors()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.sensors.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.updateHeights()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
		case "?":
			m.help = !m.help
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case logMsg:
		m.logs = appendCapped(m.logs, msg.line, maxLogLines)
		m.refreshViewport()
	case recordMsg:
		row, ok := m.rows[msg.SensorID]
		if !ok {
			row = &sensorRow{}
			m.rows[msg.SensorID] = row
			m.order = append(m.order, msg.SensorID)
		}
		row.rec = msg.Record
		m.refreshSensors()
	case eventMsg:
		if row, ok := m.rows[msg.row.SensorID]; ok {
			switch msg.row.EventType {
			case telemetry.EventTamper:
				row.tampers++
			case telemetry.EventRefuel:
				row.refuels++
			}
			m.refreshSensors()
		}
		m.eventLogs = appendCapped(m.eventLogs, msg.line, maxEventLines)
		m.eventVP.SetContent(strings.Join(m.eventLogs, "\n"))
		m.updateHeights()
		if m.autoscroll {
			m.eventVP.GotoBottom()
		}
	case stateMsg:
		m.state = msg.StateRow
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func appendCapped(lines []string, line string, max int) []string {
	lines = append(lines, line)
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines
}

func (m *tuiModel) refreshSensors() {
	rows := make([]table.Row, 0, len(m.order))
	for _, id := range m.order {
		r := m.rows[id]
		fuel := fmt.Sprintf("%.2f", r.rec.FuelLevel)
		if r.rec.FuelLevel <= lowFuelThreshold {
			fuel += " !"
		}
		updated := "-"
		if !r.rec.Timestamp.IsZero() {
			updated = r.rec.Timestamp.Format("15:04:05")
		}
		rows = append(rows, table.Row{
			truncate.StringWithTail(id, 16, "…"),
			fuel,
			yesNo(r.rec.ValveOpen),
			yesNo(r.rec.TiltDetected),
			fmt.Sprintf("%d", r.tampers),
			fmt.Sprintf("%d", r.refuels),
			updated,
		})
	}
	m.sensors.SetRows(rows)
	m.sensors.SetHeight(len(rows) + 1)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (m *tuiModel) updateHeights() {
	maxLines := int(float64(m.height) * maxSectionHeightPct)
	if maxLines < 1 {
		maxLines = 1
	}
	events := len(m.eventLogs)
	if events == 0 {
		events = 1
	}
	if events > maxLines {
		events = maxLines
	}
	m.eventVP.Height = events
	h := m.height - lipgloss.Height(m.sensors.View()) - m.eventVP.Height - 6
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderStatus() string {
	profile := ""
	if m.cfg != nil {
		profile = m.cfg.Profile
	}
	stateStyle := okStyle
	if m.state.State != string(StateRunning) {
		stateStyle = alertStyle
	}
	admin := dimStyle.Render("admin off")
	if m.admin {
		admin = okStyle.Render("admin on")
	}
	status := fmt.Sprintf("%s  profile=%s  state=%s  pass=%d  submitted=%d  %s",
		headerStyle.Render("fuelsensor-sim"), profile, stateStyle.Render(m.state.State),
		m.state.Pass, m.state.Submitted, admin)
	if m.state.Error != "" {
		status += "  " + alertStyle.Render(truncate.StringWithTail(m.state.Error, 60, "…"))
	}
	return status
}

func (m tuiModel) renderHelp() string {
	return strings.Join([]string{
		headerStyle.Render("Keys"),
		"q      quit",
		"w      toggle line wrap",
		"s      toggle autoscroll",
		"↑/↓    scroll log",
		"?      close help",
	}, "\n")
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.width)
	eventContent := m.eventVP.View()
	if len(m.eventLogs) == 0 {
		eventContent = dimStyle.Render("none")
	}
	return strings.Join([]string{
		m.renderStatus(),
		divider,
		m.sensors.View(),
		divider,
		m.vp.View(),
		divider,
		"Fuel events:",
		eventContent,
	}, "\n")
}
