package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracking.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTrackingConfig()

	if got := cfg.GetDistanceThresholdMeters(); got != 10 {
		t.Errorf("distance threshold = %v, want 10", got)
	}
	if got := cfg.GetHeadingThresholdDegrees(); got != 15 {
		t.Errorf("heading threshold = %v, want 15", got)
	}
	ladder := cfg.GetIntervalLadder()
	want := []time.Duration{60 * time.Second, 120 * time.Second, 240 * time.Second, 480 * time.Second, 960 * time.Second}
	if len(ladder) != len(want) {
		t.Fatalf("ladder length = %d, want %d", len(ladder), len(want))
	}
	for i := range want {
		if ladder[i] != want[i] {
			t.Errorf("ladder[%d] = %v, want %v", i, ladder[i], want[i])
		}
	}
	if cfg.GetRecomputeSignificance() {
		t.Error("recompute_significance should default to false")
	}
	if cfg.GetUnits() != "m" {
		t.Errorf("units = %q, want m", cfg.GetUnits())
	}
}

func TestLoadTrackingConfigPartial(t *testing.T) {
	path := writeConfig(t, `{"distance_threshold_meters": 25, "flush_timeout": "10s"}`)

	cfg, err := LoadTrackingConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.GetDistanceThresholdMeters(); got != 25 {
		t.Errorf("distance threshold = %v, want 25", got)
	}
	if got := cfg.GetFlushTimeout(); got != 10*time.Second {
		t.Errorf("flush timeout = %v, want 10s", got)
	}
	// Untouched fields keep defaults.
	if got := cfg.GetHeadingThresholdDegrees(); got != 15 {
		t.Errorf("heading threshold = %v, want 15", got)
	}
}

func TestLoadTrackingConfigRejectsNonJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.yaml")
	if err := os.WriteFile(path, []byte("a: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrackingConfig(path); err == nil {
		t.Error("expected error for non-json extension")
	}
}

func TestValidateRejectsBadLadder(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty ladder", `{"interval_ladder": []}`},
		{"bad duration", `{"interval_ladder": ["60s", "sixty"]}`},
		{"not ascending", `{"interval_ladder": ["120s", "60s"]}`},
		{"negative threshold", `{"distance_threshold_meters": -1}`},
		{"heading out of range", `{"heading_threshold_degrees": 200}`},
		{"zero buffer", `{"sample_buffer_size": 0}`},
		{"bad flush timeout", `{"flush_timeout": "soon"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			if _, err := LoadTrackingConfig(path); err == nil {
				t.Errorf("expected validation error for %s", tc.body)
			}
		})
	}
}

func TestParseAuthTokens(t *testing.T) {
	tokens, err := parseAuthTokens("tok-a=worker-1, tok-b=worker-2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tokens["tok-a"] != "worker-1" || tokens["tok-b"] != "worker-2" {
		t.Errorf("tokens = %v", tokens)
	}

	if _, err := parseAuthTokens("justatoken"); err == nil {
		t.Error("expected error for entry without subject")
	}

	tokens, err = parseAuthTokens("")
	if err != nil || len(tokens) != 0 {
		t.Errorf("empty input: tokens=%v err=%v", tokens, err)
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("CREWTRACE_DB", "")
	t.Setenv("CREWTRACE_LISTEN", "")
	t.Setenv("CREWTRACE_AUTH_TOKENS", "tok=worker-9")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.DBPath != "crewtrace.db" {
		t.Errorf("DBPath = %q", env.DBPath)
	}
	if env.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", env.ListenAddr)
	}
	if env.AuthTokens["tok"] != "worker-9" {
		t.Errorf("AuthTokens = %v", env.AuthTokens)
	}
}
