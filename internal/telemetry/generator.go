package telemetry

import (
	"math/rand"
	"time"
)

// Probabilities weights the per-tick boolean draws.
type Probabilities struct {
	ValveOpen float64
	Tilt      float64
}

// Generator synthesizes telemetry for fuel sensors.
type Generator struct {
	Geo         GeoSampler
	Depletion   DepletionPolicy
	Probability Probabilities

	rand Rand
	now  func() time.Time
}

// NewGenerator creates a generator. A nil r falls back to a time-seeded source.
func NewGenerator(geo GeoSampler, depletion DepletionPolicy, p Probabilities, r Rand) *Generator {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{Geo: geo, Depletion: depletion, Probability: p, rand: r, now: time.Now}
}

// WithClock overrides the clock used to stamp records.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Synthesize produces the record for one tick of sensorID starting at state and
// returns the state for the next tick.
func (g *Generator) Synthesize(sensorID string, state FuelState) (Record, FuelState, Outcome) {
	lat, lng := g.Geo.Sample(g.rand)
	valveOpen := chance(g.rand, g.Probability.ValveOpen)
	tilt := chance(g.rand, g.Probability.Tilt)

	drop := g.Depletion.Depletion(g.rand, valveOpen)
	level := g.Depletion.Apply(float64(state), drop)
	next, refueled := NextState(level)

	rec := Record{
		SensorID:     sensorID,
		FuelLevel:    roundLevel(level),
		ValveOpen:    valveOpen,
		Latitude:     lat,
		Longitude:    lng,
		TiltDetected: tilt,
		Timestamp:    g.now().UTC(),
	}
	return rec, next, Outcome{Tampered: valveOpen, Refueled: refueled, Drop: drop}
}
