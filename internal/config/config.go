// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fuelsensor-sim/internal/session"
	"fuelsensor-sim/internal/telemetry"
)

// Profile names.
const (
	ProfileFleet  = "fleet"
	ProfileSingle = "single"
)

// Endpoint locates the ingestion backend.
type Endpoint struct {
	BaseURL    string        `yaml:"base_url"`
	LoginPath  string        `yaml:"login_path"`
	IngestPath string        `yaml:"ingest_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Geo defines the sampling area. A non-zero FixedRadiusM overrides the annulus.
type Geo struct {
	CenterLat    float64 `yaml:"center_lat"`
	CenterLng    float64 `yaml:"center_lng"`
	MinRadiusM   float64 `yaml:"min_radius_m"`
	MaxRadiusM   float64 `yaml:"max_radius_m"`
	FixedRadiusM float64 `yaml:"fixed_radius_m"`
}

// Fuel defines per-tick depletion ranges in percent.
type Fuel struct {
	NormalDropMin float64 `yaml:"normal_drop_min"`
	NormalDropMax float64 `yaml:"normal_drop_max"`
	TamperDropMin float64 `yaml:"tamper_drop_min"`
	TamperDropMax float64 `yaml:"tamper_drop_max"`
}

// Probabilities weights the valve and tilt draws.
type Probabilities struct {
	ValveOpen float64 `yaml:"valve_open"`
	Tilt      float64 `yaml:"tilt"`
}

// SimulationConfig is the root configuration for the sensor fleet and its backend.
type SimulationConfig struct {
	Profile       string        `yaml:"profile"`
	Endpoint      Endpoint      `yaml:"endpoint"`
	Sensors       []string      `yaml:"sensors"`
	SensorCount   int           `yaml:"sensor_count"`
	SensorPrefix  string        `yaml:"sensor_prefix"`
	Geo           Geo           `yaml:"geo"`
	Fuel          Fuel          `yaml:"fuel"`
	Probabilities Probabilities `yaml:"probabilities"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RetryLogin    bool          `yaml:"retry_login"`

	// sensorIDs caches the resolved set so generated IDs stay stable.
	sensorIDs []string
}

var profiles = map[string]SimulationConfig{
	// Multi-sensor fleet that keeps retrying after login failures.
	ProfileFleet: {
		Profile:  ProfileFleet,
		Endpoint: Endpoint{BaseURL: "http://localhost:8000", Timeout: 10 * time.Second},
		Sensors: []string{
			"SENSOR_ID11", "SENSOR_ID22", "SENSOR_ID44", "SENSOR_ID55", "SENSOR_ID66", "SENSOR_ID77",
			"SENSOR_ID88", "SENSOR_ID99", "SENSOR_ID100", "SENSOR_ID21", "SENSOR_ID22", "SENSOR_ID123", "SENSOR_ID24",
		},
		Geo:           Geo{CenterLat: 23.6913, CenterLng: 85.2722, MinRadiusM: 1000, MaxRadiusM: 5000},
		Fuel:          Fuel{NormalDropMin: 0.5, NormalDropMax: 2.5, TamperDropMin: 10, TamperDropMax: 25},
		Probabilities: Probabilities{ValveOpen: 0.2, Tilt: 0.1},
		TickInterval:  5 * time.Second,
		RetryDelay:    5 * time.Second,
		RetryLogin:    true,
	},
	// One sensor against the hosted backend; stops on the first login failure.
	ProfileSingle: {
		Profile:       ProfileSingle,
		Endpoint:      Endpoint{BaseURL: "https://fuel-truck-monitoring-backend-1.onrender.com", Timeout: 15 * time.Second},
		Sensors:       []string{"SENSOR_ID11"},
		Geo:           Geo{CenterLat: 23.6913, CenterLng: 85.2722, FixedRadiusM: 3000},
		Fuel:          Fuel{NormalDropMin: 0.5, NormalDropMax: 2.5, TamperDropMin: 10, TamperDropMax: 25},
		Probabilities: Probabilities{ValveOpen: 0.5, Tilt: 0.5},
		TickInterval:  6 * time.Second,
		RetryDelay:    5 * time.Second,
		RetryLogin:    false,
	},
}

// Profile returns a copy of the named profile.
func Profile(name string) (*SimulationConfig, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (known: %v)", name, ProfileNames())
	}
	p.Sensors = append([]string(nil), p.Sensors...)
	return &p, nil
}

// ProfileNames lists the known profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load builds a configuration from the named profile, overlays the YAML file
// at configPath (if any) after validating it against cueSchemaPath (if any),
// and applies environment overrides.
func Load(profile, configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if cueSchemaPath != "" {
			if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
				return nil, err
			}
		}
		var head struct {
			Profile string `yaml:"profile"`
		}
		if err := yaml.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if profile == "" {
			profile = head.Profile
		}
		if profile == "" {
			profile = ProfileFleet
		}
		cfg, err := Profile(profile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg.Profile = profile
		return finish(cfg)
	}

	if profile == "" {
		profile = ProfileFleet
	}
	cfg, err := Profile(profile)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *SimulationConfig) (*SimulationConfig, error) {
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SensorIDs()
	slog.Info("loaded configuration", "profile", cfg.Profile, "base_url", cfg.Endpoint.BaseURL,
		"sensors", len(cfg.Sensors), "sensor_count", cfg.SensorCount, "tick_interval", cfg.TickInterval)
	return cfg, nil
}

// ApplyEnv applies TICK_INTERVAL and INGEST_BASE_URL overrides.
func (c *SimulationConfig) ApplyEnv() error {
	if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
		d, err := time.ParseDuration(envTick)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	if base := os.Getenv("INGEST_BASE_URL"); base != "" {
		c.Endpoint.BaseURL = base
	}
	return nil
}

// Validate checks ranges the schema cannot express across fields.
func (c *SimulationConfig) Validate() error {
	if c.Endpoint.BaseURL == "" {
		return fmt.Errorf("endpoint.base_url is required")
	}
	if len(c.Sensors) == 0 && c.SensorCount <= 0 {
		return fmt.Errorf("no sensors configured")
	}
	if c.Geo.FixedRadiusM < 0 || c.Geo.MinRadiusM < 0 || c.Geo.MaxRadiusM < c.Geo.MinRadiusM {
		return fmt.Errorf("invalid geo radius bounds: min=%v max=%v fixed=%v", c.Geo.MinRadiusM, c.Geo.MaxRadiusM, c.Geo.FixedRadiusM)
	}
	if c.Fuel.NormalDropMin < 0 || c.Fuel.NormalDropMax < c.Fuel.NormalDropMin {
		return fmt.Errorf("invalid normal drop range [%v, %v]", c.Fuel.NormalDropMin, c.Fuel.NormalDropMax)
	}
	if c.Fuel.TamperDropMin < 0 || c.Fuel.TamperDropMax < c.Fuel.TamperDropMin {
		return fmt.Errorf("invalid tamper drop range [%v, %v]", c.Fuel.TamperDropMin, c.Fuel.TamperDropMax)
	}
	for name, p := range map[string]float64{"valve_open": c.Probabilities.ValveOpen, "tilt": c.Probabilities.Tilt} {
		if p < 0 || p > 1 {
			return fmt.Errorf("probability %s must be within [0,1], got %v", name, p)
		}
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry_delay must be positive")
	}
	return nil
}

// SensorIDs returns the deduplicated sensor set, generating SensorCount extra
// IDs on the first call. Later calls return the same IDs.
func (c *SimulationConfig) SensorIDs() []string {
	if c.sensorIDs == nil {
		var generated []string
		if c.SensorCount > 0 {
			generated = telemetry.GenerateSensorIDs(c.SensorPrefix, c.SensorCount)
		}
		c.sensorIDs = telemetry.DedupeSensorIDs(c.Sensors, generated)
	}
	return append([]string(nil), c.sensorIDs...)
}

// GeoSampler builds the sampler for the configured area.
func (c *SimulationConfig) GeoSampler() telemetry.GeoSampler {
	if c.Geo.FixedRadiusM > 0 {
		return telemetry.FixedRadius(c.Geo.CenterLat, c.Geo.CenterLng, c.Geo.FixedRadiusM)
	}
	return telemetry.GeoSampler{
		CenterLat:  c.Geo.CenterLat,
		CenterLng:  c.Geo.CenterLng,
		MinRadiusM: c.Geo.MinRadiusM,
		MaxRadiusM: c.Geo.MaxRadiusM,
	}
}

// Depletion builds the fuel depletion policy.
func (c *SimulationConfig) Depletion() telemetry.DepletionPolicy {
	return telemetry.DepletionPolicy{
		NormalMin: c.Fuel.NormalDropMin,
		NormalMax: c.Fuel.NormalDropMax,
		TamperMin: c.Fuel.TamperDropMin,
		TamperMax: c.Fuel.TamperDropMax,
	}
}

// Weights builds the synthesizer probabilities.
func (c *SimulationConfig) Weights() telemetry.Probabilities {
	return telemetry.Probabilities{ValveOpen: c.Probabilities.ValveOpen, Tilt: c.Probabilities.Tilt}
}

// SessionConfig builds the backend client configuration.
func (c *SimulationConfig) SessionConfig() session.Config {
	return session.Config{
		BaseURL:    c.Endpoint.BaseURL,
		LoginPath:  c.Endpoint.LoginPath,
		IngestPath: c.Endpoint.IngestPath,
		Timeout:    c.Endpoint.Timeout,
	}
}

// LoadCredentials reads SIMULATOR_USER and SIMULATOR_PASS, honoring a .env file
// in the working directory when present.
func LoadCredentials() session.Credentials {
	_ = godotenv.Load() // ignore error, fallback to env vars
	return session.Credentials{
		Email:    os.Getenv("SIMULATOR_USER"),
		Password: os.Getenv("SIMULATOR_PASS"),
	}
}

// MarshalProfiles renders all profiles as YAML.
func MarshalProfiles() ([]byte, error) {
	out := make(map[string]SimulationConfig, len(profiles))
	for name, p := range profiles {
		out[name] = p
	}
	return yaml.Marshal(out)
}
