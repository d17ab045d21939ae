package cohort

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Subjects = 40
	cfg.Intervention = 12
	cfg.Seed = 1
	cfg.ReferenceDate = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Subjects != 187 {
		t.Errorf("expected 187 subjects, got %d", cfg.Subjects)
	}
	if cfg.Intervention != 64 {
		t.Errorf("expected 64 intervention subjects, got %d", cfg.Intervention)
	}
	if cfg.Mode != CrossSectional {
		t.Errorf("expected cross-sectional mode, got %s", cfg.Mode)
	}
	if cfg.Tuning.CheckpointFraction != 0.60 {
		t.Errorf("expected checkpoint fraction 0.60, got %f", cfg.Tuning.CheckpointFraction)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero subjects", func(c *Config) { c.Subjects = 0 }, "subjects"},
		{"negative intervention", func(c *Config) { c.Intervention = -1 }, "intervention"},
		{"intervention exceeds subjects", func(c *Config) { c.Intervention = c.Subjects + 1 }, "intervention"},
		{"unknown mode", func(c *Config) { c.Mode = "panel" }, "mode"},
		{"zero reference date", func(c *Config) { c.ReferenceDate = time.Time{} }, "reference_date"},
		{"checkpoint fraction one", func(c *Config) { c.Tuning.CheckpointFraction = 1.0 }, "tuning.checkpoint_fraction"},
		{"max closure zero", func(c *Config) { c.Tuning.MaxClosure = 0 }, "tuning.max_closure"},
		{"rate multiplier floor zero", func(c *Config) { c.Tuning.MinRateMultiplier = 0 }, "tuning.min_rate_multiplier"},
		{"balance bias below one", func(c *Config) { c.Tuning.MaxBalanceBias = 0.5 }, "tuning.max_balance_bias"},
		{"min samples zero", func(c *Config) { c.Tuning.MinSamples = 0 }, "tuning.min_samples"},
		{
			"longitudinal without observations",
			func(c *Config) { c.Mode = Longitudinal; c.ObservationsPerSubject = 0 },
			"observations_per_subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if ce.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ce.Field)
			}
			if !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("unexpected error text: %v", err)
			}
		})
	}
}

func TestTotalObservations(t *testing.T) {
	cfg := testConfig()
	if got := cfg.TotalObservations(); got != 40 {
		t.Errorf("cross-sectional total = %d, want 40", got)
	}
	cfg.Mode = Longitudinal
	cfg.ObservationsPerSubject = 4
	if got := cfg.TotalObservations(); got != 160 {
		t.Errorf("longitudinal total = %d, want 160", got)
	}
}

func TestDirectivesZeroValues(t *testing.T) {
	var d Directives

	if got := d.Shift(MetricAge); got != 0 {
		t.Errorf("nil Directives Shift = %f, want 0", got)
	}
	if got := d.Multiplier(MetricLutealNightSweats); got != 1 {
		t.Errorf("nil Directives Multiplier = %f, want 1", got)
	}
	if got := d.Bias(MetricPhaseBalance); got != 1 {
		t.Errorf("nil Directives Bias = %f, want 1", got)
	}
}

func TestDirectivesKindMismatch(t *testing.T) {
	d := Directives{
		MetricAge: {Metric: MetricAge, Kind: KindShift, Value: 2.5},
	}

	if got := d.Shift(MetricAge); got != 2.5 {
		t.Errorf("Shift = %f, want 2.5", got)
	}
	// A shift directive must not leak through the multiplier or bias accessors.
	if got := d.Multiplier(MetricAge); got != 1 {
		t.Errorf("Multiplier for shift directive = %f, want 1", got)
	}
	if got := d.Bias(MetricAge); got != 1 {
		t.Errorf("Bias for shift directive = %f, want 1", got)
	}
}
