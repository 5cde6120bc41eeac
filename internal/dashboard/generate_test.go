package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

var testTables = Tables{Records: "fuel_telemetry", Events: "fuel_telemetry_events", State: "fuel_telemetry_state"}

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := Render(t.TempDir(), testTables); err == nil {
		t.Fatalf("expected error for missing datasource uid")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	dir := t.TempDir()
	if err := Render(dir, testTables); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "grafana-fuel-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	out := string(b)
	for _, want := range []string{"uid1", "FROM fuel_telemetry WHERE", "FROM fuel_telemetry_events", "FROM fuel_telemetry_state"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
	var doc map[string]any
	if err := jsoniter.Unmarshal(b, &doc); err != nil {
		t.Fatalf("rendered dashboard is not valid JSON: %v", err)
	}
	if panels, _ := doc["panels"].([]any); len(panels) != 4 {
		t.Fatalf("expected 4 panels, got %d", len(panels))
	}
}
