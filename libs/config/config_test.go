package config

import (
	"testing"
	"time"
)

type testConfig struct {
	HTTP struct {
		Port string `env:"TESTCFG_HTTP_PORT"`
	}
	Meter struct {
		TickInterval time.Duration `env:"TESTCFG_TICK_INTERVAL"`
		Rate         float64       `env:"TESTCFG_RATE"`
	}
	Enabled bool `env:"TESTCFG_ENABLED"`
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TESTCFG_HTTP_PORT", "9090")
	t.Setenv("TESTCFG_TICK_INTERVAL", "250ms")
	t.Setenv("TESTCFG_RATE", "12.5")
	t.Setenv("TESTCFG_ENABLED", "true")

	cfg := &testConfig{}
	cfg.HTTP.Port = "8080"

	if err := LoadConfig(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.HTTP.Port)
	}
	if cfg.Meter.TickInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms tick interval, got %s", cfg.Meter.TickInterval)
	}
	if cfg.Meter.Rate != 12.5 {
		t.Fatalf("expected rate 12.5, got %f", cfg.Meter.Rate)
	}
	if !cfg.Enabled {
		t.Fatal("expected enabled true")
	}
}

func TestDefaultsSurviveWhenEnvUnset(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg := &testConfig{}
	cfg.HTTP.Port = "8080"
	cfg.Meter.TickInterval = 500 * time.Millisecond

	if err := LoadConfig(cfg); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Port != "8080" {
		t.Fatalf("expected default port kept, got %s", cfg.HTTP.Port)
	}
	if cfg.Meter.TickInterval != 500*time.Millisecond {
		t.Fatalf("expected default tick interval kept, got %s", cfg.Meter.TickInterval)
	}
}

func TestRejectsNonStructTarget(t *testing.T) {
	if err := LoadConfig(nil); err == nil {
		t.Fatal("expected error for nil target")
	}
	var notAStruct int
	if err := LoadConfig(&notAStruct); err == nil {
		t.Fatal("expected error for non-struct target")
	}
}
