package sim

import (
	"github.com/prometheus/client_golang/prometheus"

	"fuelsensor-sim/internal/telemetry"
)

var allStates = []State{StateDisconnected, StateAuthenticating, StateRunning, StateLoginFailed, StateStopped}

// Metrics exposes loop counters in Prometheus format. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	recordsTotal  *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	loginsTotal   *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
	passesTotal   prometheus.Counter
	fuelLevel     *prometheus.GaugeVec
	loopState     *prometheus.GaugeVec
}

// NewMetrics creates the loop metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelsim_records_submitted_total",
			Help: "Records accepted by the ingestion endpoint, by sensor.",
		}, []string{"sensor_id"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelsim_session_failures_total",
			Help: "Sessions ended by an error, by kind (transport, other).",
		}, []string{"kind"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelsim_logins_total",
			Help: "Login attempts by result (ok, rejected, unreachable).",
		}, []string{"result"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuelsim_fuel_events_total",
			Help: "Simulated tamper and refuel events.",
		}, []string{"event_type"}),
		passesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuelsim_passes_total",
			Help: "Completed passes over the sensor set.",
		}),
		fuelLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fuelsim_fuel_level_percent",
			Help: "Last submitted fuel level per sensor.",
		}, []string{"sensor_id"}),
		loopState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fuelsim_loop_state",
			Help: "1 for the current supervisor state, 0 otherwise.",
		}, []string{"state"}),
	}
	m.Registry.MustRegister(
		m.recordsTotal,
		m.failuresTotal,
		m.loginsTotal,
		m.eventsTotal,
		m.passesTotal,
		m.fuelLevel,
		m.loopState,
	)
	m.setState(StateDisconnected)
	return m
}

func (m *Metrics) submitted(rec telemetry.Record) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(rec.SensorID).Inc()
	m.fuelLevel.WithLabelValues(rec.SensorID).Set(rec.FuelLevel)
}

func (m *Metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) loginResult(result string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) event(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) passDone() {
	if m == nil {
		return
	}
	m.passesTotal.Inc()
}

func (m *Metrics) setState(st State) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		v := 0.0
		if s == st {
			v = 1
		}
		m.loopState.WithLabelValues(string(s)).Set(v)
	}
}
