// Package constants provides named constants used throughout the cohortgen codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Default cohort dimensions. These mirror the study design the generator was
// built for: 187 enrolled subjects, 64 of them in the cycle-aware intervention
// arm, surveyed four times across two to three menstrual cycles.
const (
	// DefaultSubjects is the default number of unique subjects in a cohort.
	DefaultSubjects = 187

	// DefaultIntervention is the default number of intervention-arm subjects.
	DefaultIntervention = 64

	// DefaultObservationsPerSubject is the default number of survey responses
	// collected per subject in longitudinal mode.
	DefaultObservationsPerSubject = 4

	// DefaultSeed is the default random seed for reproducible generation.
	DefaultSeed = 42
)

// Menstrual cycle model constants. The generator assumes an idealized
// fixed-length cycle; regularity only affects the reported regularity answer,
// not the phase math.
const (
	// CycleLengthDays is the assumed cycle length.
	CycleLengthDays = 28

	// FollicularMaxDay is the last cycle day counted as follicular.
	// Days 1..FollicularMaxDay are follicular; the remainder is luteal.
	FollicularMaxDay = 14

	// ObservationWindowDays is how far into the past observation dates are
	// scattered, covering roughly three cycles.
	ObservationWindowDays = 90
)

// Checkpoint and correction defaults. These are empirically tuned starting
// points, not derived values; they can all be overridden per run through
// cohort.Tuning.
const (
	// DefaultCheckpointFraction is the fraction of the requested total after
	// which corrections are computed once and frozen.
	DefaultCheckpointFraction = 0.60

	// DefaultClosureFactor scales a continuous metric's target gap into a
	// per-sample additive shift for the remaining records.
	DefaultClosureFactor = 0.7

	// MaxClosureFactor bounds closure scaling when few samples remain.
	MaxClosureFactor = 2.0

	// MaxRateMultiplier caps Bernoulli rate boosts so an undershoot is not
	// converted into an equally visible overshoot.
	MaxRateMultiplier = 4.0

	// MinRateMultiplier caps Bernoulli rate damping.
	MinRateMultiplier = 0.2

	// MaxBalanceBias caps categorical balance biasing. Balance failures are
	// cheap to correct with biased coin flips, so this runs hotter than the
	// rate multiplier cap.
	MaxBalanceBias = 3.0

	// MinSamplesForCorrection is the minimum per-metric sample count before a
	// directive may be issued. Below this the running estimate is noise.
	MinSamplesForCorrection = 5
)

// Validation defaults.
const (
	// DefaultToleranceFraction is the relative tolerance band applied to
	// continuous metric means during validation.
	DefaultToleranceFraction = 0.10

	// ProportionTolerance is the absolute tolerance applied to proportions
	// and rates during validation.
	ProportionTolerance = 0.10

	// RateAbsoluteTolerance is the absolute fallback band for symptom rate
	// checks. For low-probability symptoms a relative band is tighter than
	// sampling noise, so a miss inside this band still passes.
	RateAbsoluteTolerance = 0.05
)
