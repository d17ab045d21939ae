package models

import (
	"testing"
	"time"

	"github.com/cyclewise/cohortgen/internal/dist"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCycleDay(t *testing.T) {
	lmp := date(2026, 3, 1)

	tests := []struct {
		observed time.Time
		want     int
	}{
		{date(2026, 3, 1), 1},
		{date(2026, 3, 14), 14},
		{date(2026, 3, 15), 15},
		{date(2026, 3, 28), 28},
		{date(2026, 3, 29), 1},  // wraps into next cycle
		{date(2026, 4, 11), 14}, // day 42 -> 14
	}

	for _, tt := range tests {
		if got := CycleDay(lmp, tt.observed); got != tt.want {
			t.Errorf("CycleDay(%s) = %d, want %d", tt.observed.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestPhaseForDay(t *testing.T) {
	for day := 1; day <= 14; day++ {
		if got := PhaseForDay(day); got != Follicular {
			t.Errorf("day %d: expected follicular, got %s", day, got)
		}
	}
	for day := 15; day <= 28; day++ {
		if got := PhaseForDay(day); got != Luteal {
			t.Errorf("day %d: expected luteal, got %s", day, got)
		}
	}
}

func TestLMPForPhase(t *testing.T) {
	rng := dist.New(1)
	observed := date(2026, 6, 15)

	for i := 0; i < 1000; i++ {
		lmp := LMPForPhase(rng, observed, Follicular)
		if got := PhaseAt(lmp, observed); got != Follicular {
			t.Fatalf("LMP %s yields phase %s, want follicular", lmp.Format("2006-01-02"), got)
		}
		if lmp.After(observed) {
			t.Fatalf("LMP %s after observation date", lmp.Format("2006-01-02"))
		}
	}
	for i := 0; i < 1000; i++ {
		lmp := LMPForPhase(rng, observed, Luteal)
		if got := PhaseAt(lmp, observed); got != Luteal {
			t.Fatalf("LMP %s yields phase %s, want luteal", lmp.Format("2006-01-02"), got)
		}
	}
}

func TestPhaseOther(t *testing.T) {
	if Follicular.Other() != Luteal {
		t.Error("expected follicular.Other() == luteal")
	}
	if Luteal.Other() != Follicular {
		t.Error("expected luteal.Other() == follicular")
	}
}

func TestResponseID(t *testing.T) {
	obs := Observation{SubjectID: "patient-0042", Seq: 17}
	if got := obs.ResponseID(); got != "patient-0042-obs-0017" {
		t.Errorf("expected 'patient-0042-obs-0017', got %q", got)
	}
}

func TestHasSymptom(t *testing.T) {
	obs := Observation{Symptoms: []string{SymptomNightSweats, SymptomFatigue}}
	if !obs.HasSymptom(SymptomNightSweats) {
		t.Error("expected night sweats present")
	}
	if obs.HasSymptom(SymptomDizziness) {
		t.Error("expected dizziness absent")
	}
}
