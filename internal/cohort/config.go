package cohort

import (
	"fmt"
	"time"

	"github.com/cyclewise/cohortgen/internal/constants"
)

// Mode selects the cohort's observation structure.
type Mode string

const (
	// CrossSectional generates exactly one observation per subject.
	CrossSectional Mode = "cross-sectional"

	// Longitudinal generates ObservationsPerSubject observations per subject,
	// alternating cycle phases and spread across the observation window.
	Longitudinal Mode = "longitudinal"
)

// ConfigError reports an invalid generation configuration. It is returned
// before any sampling happens; a run that starts sampling never fails with it.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Config controls a single generation run.
type Config struct {
	// Subjects is the number of unique subjects to enroll.
	Subjects int `json:"subjects" yaml:"subjects"`

	// Intervention is the exact number of subjects assigned to the
	// cycle-aware intervention arm. Must not exceed Subjects.
	Intervention int `json:"intervention" yaml:"intervention"`

	// ObservationsPerSubject applies in longitudinal mode; ignored otherwise.
	ObservationsPerSubject int `json:"observations_per_subject" yaml:"observations_per_subject"`

	// Mode is CrossSectional or Longitudinal.
	Mode Mode `json:"mode" yaml:"mode"`

	// Seed fully determines the run together with the parameters and
	// ReferenceDate.
	Seed uint64 `json:"seed" yaml:"seed"`

	// ReferenceDate anchors all generated dates. Observation dates fall in
	// the window ending at this date.
	ReferenceDate time.Time `json:"reference_date" yaml:"reference_date"`

	// Tuning controls the checkpoint and correction behavior.
	Tuning Tuning `json:"tuning" yaml:"tuning"`
}

// Tuning holds the checkpoint and correction calibration. All values have
// working defaults from DefaultTuning; they exist as fields so experiments can
// adjust them without rebuilding.
type Tuning struct {
	// CheckpointFraction is the fraction of the total observation count after
	// which corrections are computed once and frozen.
	CheckpointFraction float64 `json:"checkpoint_fraction" yaml:"checkpoint_fraction"`

	// Activation thresholds. A metric whose observed-vs-target gap is inside
	// its threshold gets no directive.
	AgeThreshold        float64 `json:"age_threshold" yaml:"age_threshold"`
	GlucoseThreshold    float64 `json:"glucose_threshold" yaml:"glucose_threshold"`
	BasalThreshold      float64 `json:"basal_threshold" yaml:"basal_threshold"`
	AwakeningsThreshold float64 `json:"awakenings_threshold" yaml:"awakenings_threshold"`
	RateThreshold       float64 `json:"rate_threshold" yaml:"rate_threshold"`
	PhaseBand           float64 `json:"phase_band" yaml:"phase_band"`
	PumpBand            float64 `json:"pump_band" yaml:"pump_band"`

	// Closure factors scale a mean gap into the additive shift applied to
	// each remaining draw. Awakenings run hotter because integer rounding
	// absorbs small shifts.
	ClosureFactor     float64 `json:"closure_factor" yaml:"closure_factor"`
	BasalClosure      float64 `json:"basal_closure" yaml:"basal_closure"`
	AwakeningsClosure float64 `json:"awakenings_closure" yaml:"awakenings_closure"`

	// MaxClosure caps the effective closure factor. At the checkpoint the
	// factor is scaled by ingested/remaining, so the fewer draws are left to
	// absorb a gap the harder each one corrects; this bounds how hard.
	MaxClosure float64 `json:"max_closure" yaml:"max_closure"`

	// Clamp ranges for multiplicative directives.
	MinRateMultiplier float64 `json:"min_rate_multiplier" yaml:"min_rate_multiplier"`
	MaxRateMultiplier float64 `json:"max_rate_multiplier" yaml:"max_rate_multiplier"`
	MaxBalanceBias    float64 `json:"max_balance_bias" yaml:"max_balance_bias"`

	// MinSamples is the minimum per-metric sample count before a directive
	// may be issued.
	MinSamples int `json:"min_samples" yaml:"min_samples"`
}

// DefaultTuning returns the calibration the engine was tuned with.
func DefaultTuning() Tuning {
	return Tuning{
		CheckpointFraction:  constants.DefaultCheckpointFraction,
		AgeThreshold:        1.5,
		GlucoseThreshold:    3.0,
		BasalThreshold:      1.0,
		AwakeningsThreshold: 0.10,
		RateThreshold:       0.02,
		PhaseBand:           0.02,
		PumpBand:            0.05,
		ClosureFactor:       constants.DefaultClosureFactor,
		BasalClosure:        1.0,
		AwakeningsClosure:   constants.MaxClosureFactor,
		MaxClosure:          constants.MaxClosureFactor,
		MinRateMultiplier:   constants.MinRateMultiplier,
		MaxRateMultiplier:   constants.MaxRateMultiplier,
		MaxBalanceBias:      constants.MaxBalanceBias,
		MinSamples:          constants.MinSamplesForCorrection,
	}
}

// DefaultConfig returns a Config for the standard 187-subject cohort with the
// reference date fixed to the current day.
func DefaultConfig() Config {
	return Config{
		Subjects:               constants.DefaultSubjects,
		Intervention:           constants.DefaultIntervention,
		ObservationsPerSubject: constants.DefaultObservationsPerSubject,
		Mode:                   CrossSectional,
		Seed:                   constants.DefaultSeed,
		ReferenceDate:          time.Now().UTC().Truncate(24 * time.Hour),
		Tuning:                 DefaultTuning(),
	}
}

// TotalObservations returns the number of observations the run will emit.
func (c Config) TotalObservations() int {
	if c.Mode == Longitudinal {
		return c.Subjects * c.ObservationsPerSubject
	}
	return c.Subjects
}

// Validate checks the configuration. All failures are *ConfigError.
func (c Config) Validate() error {
	if c.Subjects <= 0 {
		return &ConfigError{Field: "subjects", Message: fmt.Sprintf("must be positive, got %d", c.Subjects)}
	}
	if c.Intervention < 0 {
		return &ConfigError{Field: "intervention", Message: fmt.Sprintf("must not be negative, got %d", c.Intervention)}
	}
	if c.Intervention > c.Subjects {
		return &ConfigError{
			Field:   "intervention",
			Message: fmt.Sprintf("count %d exceeds subject count %d", c.Intervention, c.Subjects),
		}
	}
	switch c.Mode {
	case CrossSectional:
	case Longitudinal:
		if c.ObservationsPerSubject <= 0 {
			return &ConfigError{
				Field:   "observations_per_subject",
				Message: fmt.Sprintf("must be positive in longitudinal mode, got %d", c.ObservationsPerSubject),
			}
		}
	default:
		return &ConfigError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", c.Mode)}
	}
	if c.ReferenceDate.IsZero() {
		return &ConfigError{Field: "reference_date", Message: "must be set"}
	}
	if f := c.Tuning.CheckpointFraction; f <= 0 || f >= 1 {
		return &ConfigError{
			Field:   "tuning.checkpoint_fraction",
			Message: fmt.Sprintf("must be in (0, 1), got %f", f),
		}
	}
	if c.Tuning.MaxClosure <= 0 {
		return &ConfigError{
			Field:   "tuning.max_closure",
			Message: fmt.Sprintf("must be positive, got %f", c.Tuning.MaxClosure),
		}
	}
	if c.Tuning.MinRateMultiplier <= 0 || c.Tuning.MinRateMultiplier > 1 {
		return &ConfigError{
			Field:   "tuning.min_rate_multiplier",
			Message: fmt.Sprintf("must be in (0, 1], got %f", c.Tuning.MinRateMultiplier),
		}
	}
	if c.Tuning.MaxRateMultiplier < 1 {
		return &ConfigError{
			Field:   "tuning.max_rate_multiplier",
			Message: fmt.Sprintf("must be at least 1, got %f", c.Tuning.MaxRateMultiplier),
		}
	}
	if c.Tuning.MaxBalanceBias < 1 {
		return &ConfigError{
			Field:   "tuning.max_balance_bias",
			Message: fmt.Sprintf("must be at least 1, got %f", c.Tuning.MaxBalanceBias),
		}
	}
	if c.Tuning.MinSamples < 1 {
		return &ConfigError{
			Field:   "tuning.min_samples",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Tuning.MinSamples),
		}
	}
	return nil
}
