package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Criteria.MaxPrice != 4200 || cfg.Criteria.MinArea != 50 {
		t.Errorf("criteria defaults: got %+v", cfg.Criteria)
	}
	if cfg.Criteria.MaxDistanceKM != 4 || cfg.Criteria.MaxDurationMin != 7 {
		t.Errorf("distance/duration defaults: got %+v", cfg.Criteria)
	}
	if cfg.Criteria.TopNSummary != 15 {
		t.Errorf("TopNSummary: got %d, want 15", cfg.Criteria.TopNSummary)
	}
	if cfg.Floor.C0 != 2300 || cfg.Floor.K != 1.9 || cfg.Floor.R != 0.095 {
		t.Errorf("floor defaults: got %+v", cfg.Floor)
	}
	if cfg.GeoTimeout != 10*time.Second {
		t.Errorf("GeoTimeout: got %v", cfg.GeoTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAX_PRICE", "3500.5")
	t.Setenv("MIN_AREA", "not-a-number")
	t.Setenv("GEO_TIMEOUT", "3s")
	t.Setenv("POSTGRES_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Criteria.MaxPrice != 3500.5 {
		t.Errorf("MaxPrice: got %v, want 3500.5", cfg.Criteria.MaxPrice)
	}
	if cfg.Criteria.MinArea != 50 {
		t.Errorf("invalid MIN_AREA should fall back to 50, got %v", cfg.Criteria.MinArea)
	}
	if cfg.GeoTimeout != 3*time.Second {
		t.Errorf("GeoTimeout: got %v", cfg.GeoTimeout)
	}
	if cfg.PostgresEnabled {
		t.Error("PostgresEnabled should be false")
	}
}

func TestCriteriaFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	body := []byte("criteria:\n  max_price: 3900\n  top_n_summary: 5\nfake_floor:\n  c0: 1800\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRITERIA_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Criteria.MaxPrice != 3900 || cfg.Criteria.TopNSummary != 5 {
		t.Errorf("overlaid criteria: got %+v", cfg.Criteria)
	}
	if cfg.Criteria.MinArea != 50 {
		t.Errorf("keys absent from the file must keep their value, MinArea=%v", cfg.Criteria.MinArea)
	}
	if cfg.Floor.C0 != 1800 || cfg.Floor.K != 1.9 {
		t.Errorf("overlaid floor: got %+v", cfg.Floor)
	}
}

func TestCriteriaFileMissing(t *testing.T) {
	t.Setenv("CRITERIA_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing criteria file")
	}
}
