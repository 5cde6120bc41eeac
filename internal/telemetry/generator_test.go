package telemetry

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// seqRand replays fixed draws and repeats the last one when exhausted.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	if len(s.vals) == 0 {
		return 0
	}
	if s.i >= len(s.vals) {
		return s.vals[len(s.vals)-1]
	}
	v := s.vals[s.i]
	s.i++
	return v
}

var testGeo = GeoSampler{CenterLat: 23.6913, CenterLng: 85.2722, MinRadiusM: 1000, MaxRadiusM: 5000}

func TestGenerateTelemetry(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("IST", 19800))
	gen := NewGenerator(testGeo, DefaultDepletion, Probabilities{ValveOpen: 0.2, Tilt: 0.1}, rand.New(rand.NewSource(1))).
		WithClock(func() time.Time { return fixed })

	rec, next, _ := gen.Synthesize("SENSOR_ID11", FuelState(50))

	if rec.SensorID != "SENSOR_ID11" {
		t.Errorf("expected SENSOR_ID11, got %s", rec.SensorID)
	}
	if rec.Timestamp.Location() != time.UTC || !rec.Timestamp.Equal(fixed) {
		t.Errorf("expected UTC timestamp equal to clock, got %v", rec.Timestamp)
	}
	if rec.FuelLevel >= 50 {
		t.Errorf("expected fuel decrease, got %f", rec.FuelLevel)
	}
	if float64(next) >= 50 {
		t.Errorf("expected next state below 50, got %f", float64(next))
	}
	if rec.Latitude == testGeo.CenterLat && rec.Longitude == testGeo.CenterLng {
		t.Errorf("expected position away from center")
	}
}

func TestSynthesizeDrawOrder(t *testing.T) {
	// distance, bearing, valve, tilt, normal drop
	r := &seqRand{vals: []float64{0, 0, 0.9, 0.05, 1.0}}
	gen := NewGenerator(testGeo, DefaultDepletion, Probabilities{ValveOpen: 0.2, Tilt: 0.1}, r)

	rec, next, out := gen.Synthesize("s1", FuelState(1.0))
	if rec.ValveOpen {
		t.Errorf("expected valve closed")
	}
	if !rec.TiltDetected {
		t.Errorf("expected tilt detected")
	}
	if rec.FuelLevel != 0 {
		t.Errorf("expected level clamped to 0, got %f", rec.FuelLevel)
	}
	if !out.Refueled || float64(next) != FuelFull {
		t.Errorf("expected refuel to 100, got next=%f refueled=%v", float64(next), out.Refueled)
	}
	if out.Tampered {
		t.Errorf("closed valve must not report tampering")
	}
	wantLat := testGeo.CenterLat
	wantLng := testGeo.CenterLng + 1000/MetersPerDegree
	if math.Abs(rec.Latitude-wantLat) > 1e-12 || math.Abs(rec.Longitude-wantLng) > 1e-12 {
		t.Errorf("unexpected position %f,%f", rec.Latitude, rec.Longitude)
	}
}

func TestFuelLevelBoundsAndRounding(t *testing.T) {
	gen := NewGenerator(testGeo, DefaultDepletion, Probabilities{ValveOpen: 0.5, Tilt: 0.5}, rand.New(rand.NewSource(7)))
	state := FuelState(FuelFull)
	for i := 0; i < 2000; i++ {
		rec, next, _ := gen.Synthesize("s", state)
		if rec.FuelLevel < FuelEmpty || rec.FuelLevel > FuelFull {
			t.Fatalf("tick %d: fuel out of range: %f", i, rec.FuelLevel)
		}
		scaled := rec.FuelLevel * 100
		if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			t.Fatalf("tick %d: fuel not rounded to 2 decimals: %v", i, rec.FuelLevel)
		}
		state = next
	}
}

func TestRefuelAfterEmpty(t *testing.T) {
	gen := NewGenerator(testGeo, DefaultDepletion, Probabilities{ValveOpen: 0.9, Tilt: 0}, rand.New(rand.NewSource(3)))
	state := FuelState(FuelFull)
	refuels := 0
	for i := 0; i < 500; i++ {
		rec, next, out := gen.Synthesize("s", state)
		if rec.FuelLevel == 0 {
			refuels++
			if float64(next) != FuelFull || !out.Refueled {
				t.Fatalf("tick %d: expected next tick to start at 100, got %f", i, float64(next))
			}
		} else if out.Refueled {
			t.Fatalf("tick %d: refuel reported at level %f", i, rec.FuelLevel)
		}
		state = next
	}
	if refuels == 0 {
		t.Fatalf("expected at least one refuel with a mostly open valve")
	}
}

func TestDepletionScenarioClamp(t *testing.T) {
	p := DefaultDepletion
	level := p.Advance(&seqRand{vals: []float64{1.0}}, 1.0, false)
	if level != 0 {
		t.Fatalf("expected 0, got %f", level)
	}
	next, refueled := NextState(level)
	if !refueled || float64(next) != 100 {
		t.Fatalf("expected refuel to 100, got %f", float64(next))
	}
}

func TestDepletionDeterministic(t *testing.T) {
	p := DefaultDepletion
	a := p.Advance(&seqRand{vals: []float64{0.3, 0.6}}, 80, true)
	b := p.Advance(&seqRand{vals: []float64{0.3, 0.6}}, 80, true)
	if a != b {
		t.Fatalf("expected identical results, got %f and %f", a, b)
	}
	if got := p.Apply(80, 12.5); got != 67.5 {
		t.Fatalf("Apply(80, 12.5) = %f, want 67.5", got)
	}
}

func TestDepletionTamperingAddsDrop(t *testing.T) {
	p := DefaultDepletion
	closed := p.Depletion(&seqRand{vals: []float64{0.5, 0.0}}, false)
	open := p.Depletion(&seqRand{vals: []float64{0.5, 0.0}}, true)
	if closed != 1.5 {
		t.Fatalf("closed drop = %f, want 1.5", closed)
	}
	if open != 11.5 {
		t.Fatalf("open drop = %f, want 11.5", open)
	}
	if open <= closed {
		t.Fatalf("expected open valve to drain more")
	}
}

func TestApplyNeverNegative(t *testing.T) {
	p := DefaultDepletion
	for _, prev := range []float64{0, 0.01, 5, 30} {
		if got := p.Apply(prev, 40); got != 0 {
			t.Errorf("Apply(%f, 40) = %f, want 0", prev, got)
		}
	}
}

func TestGeoSamplerAnnulus(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	// Flat-Earth conversion shrinks east-west offsets by cos(lat).
	lower := testGeo.MinRadiusM * math.Cos(testGeo.CenterLat*math.Pi/180) * 0.99
	upper := testGeo.MaxRadiusM * 1.001
	for i := 0; i < 1000; i++ {
		lat, lng := testGeo.Sample(r)
		d := DistanceMeters(testGeo.CenterLat, testGeo.CenterLng, lat, lng)
		if d < lower || d > upper {
			t.Fatalf("sample %d: distance %f outside [%f, %f]", i, d, lower, upper)
		}
	}
}

func TestGeoSamplerFixedRadius(t *testing.T) {
	g := FixedRadius(23.6913, 85.2722, 3000)
	r := &seqRand{vals: []float64{0.25}}
	lat, lng := g.Sample(r)
	// A single bearing draw of a quarter turn points due north.
	if r.i != 1 {
		t.Fatalf("expected one draw, got %d", r.i)
	}
	if math.Abs(lng-g.CenterLng) > 1e-9 {
		t.Fatalf("expected no longitude offset, got %f", lng-g.CenterLng)
	}
	if math.Abs((lat-g.CenterLat)*MetersPerDegree-3000) > 1e-6 {
		t.Fatalf("expected 3000 m north, got %f", (lat-g.CenterLat)*MetersPerDegree)
	}
}

func TestDedupeSensorIDs(t *testing.T) {
	a := []string{"SENSOR_ID11", "SENSOR_ID22", "SENSOR_ID22", "SENSOR_ID44"}
	b := []string{"SENSOR_ID44", " SENSOR_ID55 ", "", "SENSOR_ID11"}
	got := DedupeSensorIDs(a, b)
	want := []string{"SENSOR_ID11", "SENSOR_ID22", "SENSOR_ID44", "SENSOR_ID55"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGenerateSensorIDs(t *testing.T) {
	ids := GenerateSensorIDs("TRUCK", 5)
	if len(DedupeSensorIDs(ids)) != 5 {
		t.Fatalf("expected 5 unique ids, got %v", ids)
	}
}

func TestEventsFor(t *testing.T) {
	rec := Record{SensorID: "s", FuelLevel: 0, Timestamp: time.Unix(0, 0).UTC()}
	rows := EventsFor(rec, Outcome{Tampered: true, Refueled: true, Drop: 12.345})
	if len(rows) != 2 || rows[0].EventType != EventTamper || rows[1].EventType != EventRefuel {
		t.Fatalf("unexpected events: %+v", rows)
	}
	if rows[0].Drop != 12.35 || rows[1].FuelLevel != FuelFull {
		t.Fatalf("unexpected event values: %+v", rows)
	}
	if len(EventsFor(rec, Outcome{})) != 0 {
		t.Fatalf("expected no events for a quiet tick")
	}
}

func TestRecordTableName(t *testing.T) {
	orig := RecordTableName
	RecordTableName = "custom"
	defer func() { RecordTableName = orig }()
	if (Record{}).TableName() != "custom" {
		t.Errorf("expected custom table name, got %s", (Record{}).TableName())
	}
}
