package params

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	p := Default()

	// Demographics defaults
	if p.Demographics.AgeMean != 31.5 {
		t.Errorf("expected AgeMean 31.5, got %f", p.Demographics.AgeMean)
	}
	if p.Demographics.AgeMin != 18 || p.Demographics.AgeMax != 45 {
		t.Errorf("expected age range [18, 45], got [%d, %d]", p.Demographics.AgeMin, p.Demographics.AgeMax)
	}

	// Delivery defaults
	if p.Delivery.PumpRatio != 0.65 {
		t.Errorf("expected PumpRatio 0.65, got %f", p.Delivery.PumpRatio)
	}

	// Glucose defaults
	if p.Glucose.Mean != 118.0 {
		t.Errorf("expected Glucose.Mean 118.0, got %f", p.Glucose.Mean)
	}
	if p.Glucose.Floor != 50.0 {
		t.Errorf("expected Glucose.Floor 50.0, got %f", p.Glucose.Floor)
	}

	// Luteal adjustment defaults
	if p.Luteal.InsulinIncrease != 0.14 {
		t.Errorf("expected InsulinIncrease 0.14, got %f", p.Luteal.InsulinIncrease)
	}
	if p.Luteal.GlucoseIncrease != 8.1 {
		t.Errorf("expected GlucoseIncrease 8.1, got %f", p.Luteal.GlucoseIncrease)
	}

	// Symptom defaults rise from follicular to luteal
	for name, probs := range map[string]PhaseProbs{
		"night_sweats": p.Symptoms.NightSweats,
		"dizziness":    p.Symptoms.Dizziness,
		"palpitations": p.Symptoms.Palpitations,
		"fatigue":      p.Symptoms.Fatigue,
	} {
		if probs.Luteal <= probs.Follicular {
			t.Errorf("expected %s luteal prob > follicular, got %f <= %f", name, probs.Luteal, probs.Follicular)
		}
	}

	if err := p.Validate(); err != nil {
		t.Errorf("default parameters should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "params.yaml")

	content := `
demographics:
  age_mean: 29.0
  age_std: 5.0
glucose:
  mean: 125.0
delivery:
  pump_ratio: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test params: %v", err)
	}

	p, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if p.Demographics.AgeMean != 29.0 {
		t.Errorf("expected AgeMean 29.0, got %f", p.Demographics.AgeMean)
	}
	if p.Glucose.Mean != 125.0 {
		t.Errorf("expected Glucose.Mean 125.0, got %f", p.Glucose.Mean)
	}
	if p.Delivery.PumpRatio != 0.7 {
		t.Errorf("expected PumpRatio 0.7, got %f", p.Delivery.PumpRatio)
	}

	// Fields absent from the file keep defaults.
	if p.Glucose.Std != 20.0 {
		t.Errorf("expected default Glucose.Std 20.0, got %f", p.Glucose.Std)
	}
	if p.Demographics.AgeMin != 18 {
		t.Errorf("expected default AgeMin 18, got %d", p.Demographics.AgeMin)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/params.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "params.yaml")
	if err := os.WriteFile(path, []byte("glucose: [not a map"), 0600); err != nil {
		t.Fatalf("failed to write test params: %v", err)
	}

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing") {
		t.Errorf("expected parse error, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr string
	}{
		{
			name:    "age range inverted",
			mutate:  func(p *Parameters) { p.Demographics.AgeMin = 50 },
			wantErr: "age_min",
		},
		{
			name:    "pump ratio above one",
			mutate:  func(p *Parameters) { p.Delivery.PumpRatio = 1.2 },
			wantErr: "pump_ratio",
		},
		{
			name:    "regularity does not sum to one",
			mutate:  func(p *Parameters) { p.Regularity.Irregular = 0.5 },
			wantErr: "regularity",
		},
		{
			name:    "basal mean outside range",
			mutate:  func(p *Parameters) { p.Basal.Mean = 40.0 },
			wantErr: "basal mean",
		},
		{
			name:    "glucose mean below floor",
			mutate:  func(p *Parameters) { p.Glucose.Mean = 40.0 },
			wantErr: "glucose mean",
		},
		{
			name:    "symptom probability above one",
			mutate:  func(p *Parameters) { p.Symptoms.Fatigue.Luteal = 1.5 },
			wantErr: "fatigue",
		},
		{
			name:    "tolerance zero",
			mutate:  func(p *Parameters) { p.Tolerance = 0 },
			wantErr: "tolerance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
