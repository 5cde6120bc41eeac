package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const schemaPath = "../../schemas/simulation.cue"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulation.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
profile: fleet
endpoint:
  base_url: http://127.0.0.1:9000
sensors: [A, B, A]
geo:
  center_lat: 48.2
  center_lng: 16.4
  min_radius_m: 200
  max_radius_m: 800
probabilities:
  valve_open: 0.3
tick_interval: 2s
`)
	cfg, err := Load("", path, schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Endpoint.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("unexpected base url: %s", cfg.Endpoint.BaseURL)
	}
	if cfg.TickInterval != 2*time.Second {
		t.Errorf("tick interval = %v, want 2s", cfg.TickInterval)
	}
	// Fields absent from the file keep the profile defaults.
	if cfg.Probabilities.Tilt != 0.1 || cfg.RetryDelay != 5*time.Second || !cfg.RetryLogin {
		t.Errorf("profile defaults not kept: %+v", cfg)
	}
	if ids := cfg.SensorIDs(); len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("unexpected sensor ids: %v", ids)
	}
	g := cfg.GeoSampler()
	if g.MinRadiusM != 200 || g.MaxRadiusM != 800 {
		t.Errorf("unexpected sampler: %+v", g)
	}
}

func TestLoadConfig_SchemaRejects(t *testing.T) {
	path := writeConfig(t, `
probabilities:
  valve_open: 1.5
`)
	if _, err := Load("", path, schemaPath); err == nil {
		t.Fatalf("expected schema validation error")
	}
	path = writeConfig(t, `
profile: convoy
`)
	if _, err := Load("", path, schemaPath); err == nil {
		t.Fatalf("expected unknown profile to be rejected")
	}
}

func TestLoadProfileOnly(t *testing.T) {
	cfg, err := Load(ProfileSingle, "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RetryLogin {
		t.Errorf("single profile must not retry login")
	}
	g := cfg.GeoSampler()
	if g.MinRadiusM != 3000 || g.MaxRadiusM != 3000 {
		t.Errorf("expected fixed radius sampler, got %+v", g)
	}
	if !strings.HasPrefix(cfg.Endpoint.BaseURL, "https://") {
		t.Errorf("expected hosted base url, got %s", cfg.Endpoint.BaseURL)
	}
	if cfg.Weights().ValveOpen != 0.5 || cfg.Weights().Tilt != 0.5 {
		t.Errorf("expected uniform weights, got %+v", cfg.Weights())
	}
}

func TestFleetProfileDedupesSensors(t *testing.T) {
	cfg, err := Profile(ProfileFleet)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	ids := cfg.SensorIDs()
	if len(ids) != 12 {
		t.Fatalf("expected 12 unique sensors, got %d: %v", len(ids), ids)
	}
}

func TestProfileReturnsCopy(t *testing.T) {
	a, _ := Profile(ProfileFleet)
	a.Sensors[0] = "mutated"
	b, _ := Profile(ProfileFleet)
	if b.Sensors[0] == "mutated" {
		t.Fatalf("profile defaults must not be shared")
	}
	if _, err := Profile("nope"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "750ms")
	t.Setenv("INGEST_BASE_URL", "http://backend:8000")
	cfg, err := Load(ProfileFleet, "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickInterval != 750*time.Millisecond || cfg.Endpoint.BaseURL != "http://backend:8000" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	t.Setenv("TICK_INTERVAL", "soon")
	if _, err := Load(ProfileFleet, "", ""); err == nil {
		t.Fatalf("expected invalid TICK_INTERVAL error")
	}
}

func TestValidate(t *testing.T) {
	base, _ := Profile(ProfileFleet)
	cases := map[string]func(c *SimulationConfig){
		"no sensors":      func(c *SimulationConfig) { c.Sensors = nil },
		"radius inverted": func(c *SimulationConfig) { c.Geo.MaxRadiusM = 10 },
		"tamper inverted": func(c *SimulationConfig) { c.Fuel.TamperDropMax = 1 },
		"tilt range":      func(c *SimulationConfig) { c.Probabilities.Tilt = -0.1 },
		"zero tick":       func(c *SimulationConfig) { c.TickInterval = 0 },
		"no base url":     func(c *SimulationConfig) { c.Endpoint.BaseURL = "" },
	}
	for name, mutate := range cases {
		c := *base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("fleet profile should be valid: %v", err)
	}
}

func TestSensorCountGeneratesIDs(t *testing.T) {
	cfg, _ := Profile(ProfileSingle)
	cfg.SensorCount = 3
	cfg.SensorPrefix = "TRUCK"
	ids := cfg.SensorIDs()
	if len(ids) != 4 {
		t.Fatalf("expected 4 sensors, got %v", ids)
	}
	for _, id := range ids[1:] {
		if !strings.HasPrefix(id, "TRUCK-") {
			t.Errorf("unexpected generated id %s", id)
		}
	}
}

func TestSensorIDsStableAcrossCalls(t *testing.T) {
	cfg, _ := Profile(ProfileFleet)
	cfg.SensorCount = 2
	first := cfg.SensorIDs()
	second := cfg.SensorIDs()
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Fatalf("generated ids changed between calls: %v vs %v", first, second)
	}
	second[0] = "mutated"
	if cfg.SensorIDs()[0] == "mutated" {
		t.Fatalf("SensorIDs must return a copy")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("SIMULATOR_USER", "sim@example.com")
	t.Setenv("SIMULATOR_PASS", "secret")
	creds := LoadCredentials()
	if creds.Email != "sim@example.com" || creds.Password != "secret" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}

func TestMarshalProfiles(t *testing.T) {
	out, err := MarshalProfiles()
	if err != nil {
		t.Fatalf("MarshalProfiles: %v", err)
	}
	for _, name := range ProfileNames() {
		if !strings.Contains(string(out), name+":") {
			t.Errorf("profile %s missing from output", name)
		}
	}
}
