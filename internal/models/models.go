// Package models defines the core value types of a generated cohort: subjects,
// observations, and the menstrual cycle math that relates them.
package models

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cyclewise/cohortgen/internal/constants"
)

// Phase identifies a menstrual cycle phase.
type Phase string

const (
	// Follicular covers cycle days 1 through 14.
	Follicular Phase = "follicular"

	// Luteal covers cycle days 15 through 28.
	Luteal Phase = "luteal"
)

// Other returns the opposite phase.
func (p Phase) Other() Phase {
	if p == Follicular {
		return Luteal
	}
	return Follicular
}

// Wire strings for categorical answers. These match the questionnaire's
// expected answer values exactly; validation matches on them verbatim.
const (
	DeliveryPump       = "Insulin Pump"
	DeliveryInjections = "Multiple Daily Injections"

	RegularityVeryRegular     = "Very regular (predictable)"
	RegularitySomewhatRegular = "Somewhat regular"
	RegularityIrregular       = "Irregular"

	SymptomNightSweats  = "Night sweats"
	SymptomDizziness    = "Dizziness"
	SymptomPalpitations = "Palpitations"
	SymptomFatigue      = "Weakness/Fatigue"
)

// Subject is one cohort member. All fields are fixed at enrollment and never
// change across the subject's observations.
type Subject struct {
	// ID is the stable subject identifier, e.g. "patient-0042".
	ID string `json:"id"`

	// Age in years, within the configured enrollment range.
	Age int `json:"age"`

	// YearsSinceDiagnosis is always at least 1 and at most Age-1.
	YearsSinceDiagnosis int `json:"years_since_diagnosis"`

	// DeliveryMethod is DeliveryPump or DeliveryInjections.
	DeliveryMethod string `json:"delivery_method"`

	// CycleRegularity is one of the Regularity wire strings.
	CycleRegularity string `json:"cycle_regularity"`

	// Intervention marks membership in the cycle-aware basal adjustment
	// program. Membership is assigned at enrollment, never per observation.
	Intervention bool `json:"intervention"`
}

// Observation is a single survey response by a subject on a given date.
type Observation struct {
	// SubjectID references the owning Subject.
	SubjectID string `json:"subject_id"`

	// Seq is the 1-based position of this observation in the whole run.
	Seq int `json:"seq"`

	// Authored is the survey date.
	Authored time.Time `json:"authored"`

	// LMP is the first day of the last menstrual period.
	LMP time.Time `json:"lmp"`

	// Phase is derived from LMP and Authored; stored for convenience.
	Phase Phase `json:"phase"`

	// BasalInsulin is the nightly basal dose in units.
	BasalInsulin float64 `json:"basal_insulin"`

	// NighttimeGlucose is the average 00:00-06:00 CGM glucose in mg/dL.
	NighttimeGlucose float64 `json:"nighttime_glucose"`

	// SleepAwakenings is the reported number of nightly awakenings.
	SleepAwakenings int `json:"sleep_awakenings"`

	// Symptoms lists the reported symptom strings, possibly empty.
	Symptoms []string `json:"symptoms"`

	// Narrative is the free-text answer. Intervention subjects' narratives
	// always contain "cycle-aware" so the arm is recoverable from the data.
	Narrative string `json:"narrative"`
}

// HasSymptom reports whether the observation lists the given symptom.
func (o *Observation) HasSymptom(symptom string) bool {
	for _, s := range o.Symptoms {
		if s == symptom {
			return true
		}
	}
	return false
}

// ResponseID returns the questionnaire response identifier for this
// observation, e.g. "patient-0042-obs-0017".
func (o *Observation) ResponseID() string {
	return fmt.Sprintf("%s-obs-%04d", o.SubjectID, o.Seq)
}

// CycleDay returns the 1-based cycle day at observed, assuming a fixed
// 28-day cycle starting at lmp. Dates wrap across cycles.
func CycleDay(lmp, observed time.Time) int {
	days := int(observed.Sub(lmp).Hours() / 24)
	day := days % constants.CycleLengthDays
	if day < 0 {
		day += constants.CycleLengthDays
	}
	return day + 1
}

// PhaseForDay maps a cycle day to its phase. Days 1-14 are follicular,
// days 15-28 luteal.
func PhaseForDay(cycleDay int) Phase {
	if cycleDay >= 1 && cycleDay <= constants.FollicularMaxDay {
		return Follicular
	}
	return Luteal
}

// PhaseAt returns the phase at observed for a cycle starting at lmp.
func PhaseAt(lmp, observed time.Time) Phase {
	return PhaseForDay(CycleDay(lmp, observed))
}

// DayRange returns the inclusive cycle-day range covered by the phase.
func (p Phase) DayRange() (lo, hi int) {
	if p == Follicular {
		return 1, constants.FollicularMaxDay
	}
	return constants.FollicularMaxDay + 1, constants.CycleLengthDays
}

// LMPForPhase returns an LMP date such that observed falls on a uniformly
// chosen cycle day within the target phase.
func LMPForPhase(rng *rand.Rand, observed time.Time, target Phase) time.Time {
	lo, hi := target.DayRange()
	day := lo + rng.IntN(hi-lo+1)
	return observed.AddDate(0, 0, -(day - 1))
}
