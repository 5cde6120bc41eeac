// Simulator driving fuel sensor passes against the ingestion backend
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/logging"
	"fuelsensor-sim/internal/session"
	"fuelsensor-sim/internal/telemetry"
)

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.Record) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Record) error
}

// Submitter performs the backend calls the loop depends on.
type Submitter interface {
	Login(ctx context.Context, creds session.Credentials) (*session.Session, error)
	Submit(ctx context.Context, sess *session.Session, rec telemetry.Record) (session.Response, error)
}

// ErrSessionExpired ends a session whose bearer token carried an expiry that has passed.
var ErrSessionExpired = errors.New("session token expired")

// ErrStaleToken is returned when login hands out a token that has already
// expired. It is retried after the retry delay, not immediately.
var ErrStaleToken = errors.New("login returned an expired token")

// State is a step of the supervisor state machine.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateAuthenticating State = "authenticating"
	StateRunning        State = "running"
	StateLoginFailed    State = "login_failed"
	StateStopped        State = "stopped"
)

// Status is a point-in-time view of the loop for the admin server.
type Status struct {
	State         State     `json:"state"`
	Profile       string    `json:"profile"`
	Sensors       int       `json:"sensors"`
	Pass          int       `json:"pass"`
	Submitted     int       `json:"submitted"`
	LoginAttempts int       `json:"login_attempts"`
	LastError     string    `json:"last_error,omitempty"`
	LastSubmit    time.Time `json:"last_submit,omitempty"`
	Since         time.Time `json:"since"`
}

// SensorSnapshot is the last submitted record of one sensor.
type SensorSnapshot struct {
	SensorID     string    `json:"sensor_id"`
	FuelLevel    float64   `json:"fuel_level"`
	ValveOpen    bool      `json:"valve_open"`
	TiltDetected bool      `json:"tilt_detected"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Simulator owns the sensor set, their fuel state and the session lifecycle.
type Simulator struct {
	profile      string
	sensors      []string
	gen          *telemetry.Generator
	client       Submitter
	creds        session.Credentials
	tickInterval time.Duration
	retryDelay   time.Duration
	retryLogin   bool

	writer      TelemetryWriter
	stateWriter StateWriter
	eventWriter EventWriter
	metrics     *Metrics

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	// fuel is only touched by the loop goroutine.
	fuel map[string]telemetry.FuelState

	mu       sync.Mutex
	status   Status
	snapshot map[string]SensorSnapshot
	history  []telemetry.StateRow
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithRand replaces the random source of the synthesizer.
func WithRand(r telemetry.Rand) Option {
	return func(s *Simulator) {
		s.gen = telemetry.NewGenerator(s.gen.Geo, s.gen.Depletion, s.gen.Probability, r).WithClock(s.now)
	}
}

// WithClock replaces the wall clock used for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
		s.gen.WithClock(now)
	}
}

// WithSleep replaces the context-aware delay used between passes and retries.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(s *Simulator) { s.sleep = fn }
}

// WithMetrics records loop activity in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// NewSimulator builds a simulator for cfg. writer receives every record the
// backend accepted and may be nil; when it also implements StateWriter or
// EventWriter it receives loop transitions and fuel events.
func NewSimulator(cfg *config.SimulationConfig, client Submitter, creds session.Credentials, writer TelemetryWriter, opts ...Option) *Simulator {
	s := &Simulator{
		profile:      cfg.Profile,
		sensors:      cfg.SensorIDs(),
		gen:          telemetry.NewGenerator(cfg.GeoSampler(), cfg.Depletion(), cfg.Weights(), nil),
		client:       client,
		creds:        creds,
		tickInterval: cfg.TickInterval,
		retryDelay:   cfg.RetryDelay,
		retryLogin:   cfg.RetryLogin,
		writer:       writer,
		now:          time.Now,
		sleep:        sleepCtx,
		fuel:         make(map[string]telemetry.FuelState),
		snapshot:     make(map[string]SensorSnapshot),
	}
	if sw, ok := writer.(StateWriter); ok {
		s.stateWriter = sw
	}
	if ew, ok := writer.(EventWriter); ok {
		s.eventWriter = ew
	}
	for _, o := range opts {
		o(s)
	}
	for _, id := range s.sensors {
		s.fuel[id] = telemetry.FuelFull
	}
	s.status = Status{State: StateDisconnected, Profile: s.profile, Sensors: len(s.sensors), Since: s.now().UTC()}
	return s
}

// Run drives the supervisor until ctx is cancelled. It returns nil on
// cancellation and the login error when login retries are disabled.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "profile", s.profile, "sensors", len(s.sensors),
		"tick_interval", s.tickInterval, "retry_delay", s.retryDelay)

	for {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			s.setState(ctx, StateStopped, nil)
			log.Info("stopping simulator")
			return nil
		}

		var authErr *session.AuthError
		switch {
		case errors.As(err, &authErr):
			s.setState(ctx, StateLoginFailed, err)
			s.metrics.loginResult("rejected")
			if !s.retryLogin {
				log.Error("login failed, stopping", "status", authErr.Status, "response", authErr.Body)
				return err
			}
			log.Warn("login failed, retrying", "status", authErr.Status, "response", authErr.Body, "retry_in", s.retryDelay)
		case errors.Is(err, ErrStaleToken):
			s.metrics.failure("stale_token")
			s.setState(ctx, StateDisconnected, err)
			log.Warn("token expired on arrival, check clock skew", "retry_in", s.retryDelay)
		case errors.Is(err, ErrSessionExpired):
			log.Info("session token expired, re-authenticating")
			continue
		case session.IsTransport(err):
			s.metrics.failure("transport")
			s.setState(ctx, StateDisconnected, err)
			log.Warn("connection error, reconnecting", "err", err, "retry_in", s.retryDelay)
		default:
			s.metrics.failure("other")
			s.setState(ctx, StateDisconnected, err)
			log.Error("critical error, restarting", "err", err, "retry_in", s.retryDelay)
		}

		if err := s.sleep(ctx, s.retryDelay); err != nil {
			s.setState(ctx, StateStopped, nil)
			log.Info("stopping simulator")
			return nil
		}
	}
}

// runSession authenticates and runs passes until an error ends the session.
func (s *Simulator) runSession(ctx context.Context) error {
	s.setState(ctx, StateDisconnected, nil)
	s.setState(ctx, StateAuthenticating, nil)
	s.mu.Lock()
	s.status.LoginAttempts++
	s.mu.Unlock()

	sess, err := s.client.Login(ctx, s.creds)
	if err != nil {
		if session.IsTransport(err) {
			s.metrics.loginResult("unreachable")
		}
		return err
	}
	defer sess.Close()
	s.metrics.loginResult("ok")
	logging.FromContext(ctx).Info("authenticated", "expires_at", sess.ExpiresAt)
	s.setState(ctx, StateRunning, nil)

	for passes := 0; ; passes++ {
		if sess.Expired(s.now()) {
			if passes == 0 {
				return ErrStaleToken
			}
			return ErrSessionExpired
		}
		if err := s.pass(ctx, sess); err != nil {
			return err
		}
		if err := s.sleep(ctx, s.tickInterval); err != nil {
			return err
		}
	}
}

// pass submits one record per sensor in order. The first error abandons the
// rest of the pass.
func (s *Simulator) pass(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	s.status.Pass++
	s.mu.Unlock()
	for _, id := range s.sensors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.tick(ctx, sess, id); err != nil {
			return err
		}
	}
	s.metrics.passDone()
	return nil
}

// tick synthesizes and submits one record for sensorID.
func (s *Simulator) tick(ctx context.Context, sess *session.Session, sensorID string) error {
	log := logging.FromContext(ctx)

	rec, next, out := s.gen.Synthesize(sensorID, s.fuel[sensorID])
	s.fuel[sensorID] = next

	resp, err := s.client.Submit(ctx, sess, rec)
	if err != nil {
		return err
	}
	log.Info("telemetry submitted", "sensor_id", sensorID, "fuel_level", rec.FuelLevel,
		"valve_open", rec.ValveOpen, "tilt_detected", rec.TiltDetected, "status", resp.Status, "response", resp.Body)

	if out.Tampered {
		log.Warn("tampering detected", "sensor_id", sensorID, "drop", out.Drop, "fuel_level", rec.FuelLevel)
	}
	if out.Refueled {
		log.Info("fuel empty, refueling", "sensor_id", sensorID)
	}
	if rec.TiltDetected {
		log.Warn("tilt detected", "sensor_id", sensorID)
	}

	s.recordSubmitted(rec)
	s.mirror(ctx, rec, out)
	return nil
}

func (s *Simulator) recordSubmitted(rec telemetry.Record) {
	s.mu.Lock()
	s.status.Submitted++
	s.status.LastSubmit = rec.Timestamp
	s.snapshot[rec.SensorID] = SensorSnapshot{
		SensorID:     rec.SensorID,
		FuelLevel:    rec.FuelLevel,
		ValveOpen:    rec.ValveOpen,
		TiltDetected: rec.TiltDetected,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		UpdatedAt:    rec.Timestamp,
	}
	s.mu.Unlock()
	s.metrics.submitted(rec)
}

// mirror forwards an accepted record and its events. Mirror errors never
// reach the supervisor.
func (s *Simulator) mirror(ctx context.Context, rec telemetry.Record, out telemetry.Outcome) {
	log := logging.FromContext(ctx)
	events := telemetry.EventsFor(rec, out)
	for _, e := range events {
		s.metrics.event(e.EventType)
	}
	if s.writer != nil {
		if err := s.writer.Write(rec); err != nil {
			log.Error("mirror write failed", "sensor_id", rec.SensorID, "err", err)
		}
	}
	if s.eventWriter == nil {
		return
	}
	for _, e := range events {
		if err := s.eventWriter.WriteEvent(e); err != nil {
			log.Error("event write failed", "sensor_id", e.SensorID, "event_type", e.EventType, "err", err)
		}
	}
}

func (s *Simulator) setState(ctx context.Context, st State, cause error) {
	s.mu.Lock()
	if s.status.State == st && cause == nil {
		s.mu.Unlock()
		return
	}
	s.status.State = st
	s.status.Since = s.now().UTC()
	if cause != nil {
		s.status.LastError = cause.Error()
	}
	row := telemetry.StateRow{
		State:     string(st),
		Pass:      s.status.Pass,
		Submitted: s.status.Submitted,
		Timestamp: s.status.Since,
	}
	if cause != nil {
		row.Error = cause.Error()
	}
	s.logTransition(row)
	s.mu.Unlock()

	s.metrics.setState(st)
	logging.FromContext(ctx).Debug("state changed", "state", st)
	if s.stateWriter != nil {
		if err := s.stateWriter.WriteState(row); err != nil {
			logging.FromContext(ctx).Error("state write failed", "state", st, "err", err)
		}
	}
}

// Status returns a copy of the loop status.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Sensors returns the last submitted record of every sensor, in pass order.
// Sensors without a submission yet report a full tank.
func (s *Simulator) Sensors() []SensorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SensorSnapshot, 0, len(s.sensors))
	for _, id := range s.sensors {
		snap, ok := s.snapshot[id]
		if !ok {
			snap = SensorSnapshot{SensorID: id, FuelLevel: telemetry.FuelFull}
		}
		out = append(out, snap)
	}
	return out
}

// SensorIDs returns the deduplicated sensor set.
func (s *Simulator) SensorIDs() []string {
	return append([]string(nil), s.sensors...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
