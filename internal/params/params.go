// Package params provides the immutable population parameters that define the
// synthetic cohort. It supports loading from YAML files with defaults matching
// the published study design.
package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parameters holds every target statistic consumed during generation and
// validation. A Parameters value is loaded once per run and never mutated;
// generators and the tracker only ever read from it.
type Parameters struct {
	// Demographics contains age distribution targets.
	Demographics DemographicsParams `json:"demographics" yaml:"demographics"`

	// Diagnosis contains years-since-diagnosis distribution targets.
	Diagnosis DiagnosisParams `json:"diagnosis" yaml:"diagnosis"`

	// Delivery contains insulin delivery method proportions.
	Delivery DeliveryParams `json:"delivery" yaml:"delivery"`

	// Regularity contains cycle regularity category proportions.
	Regularity RegularityParams `json:"regularity" yaml:"regularity"`

	// Basal contains nightly basal insulin dose targets (follicular baseline).
	Basal BasalParams `json:"basal" yaml:"basal"`

	// Glucose contains nighttime CGM glucose targets (follicular baseline).
	Glucose GlucoseParams `json:"glucose" yaml:"glucose"`

	// Awakenings contains sleep awakening targets (follicular baseline).
	Awakenings AwakeningsParams `json:"awakenings" yaml:"awakenings"`

	// Symptoms contains per-phase symptom probabilities.
	Symptoms SymptomsParams `json:"symptoms" yaml:"symptoms"`

	// Luteal contains the luteal-phase adjustments applied on top of the
	// follicular baselines.
	Luteal LutealParams `json:"luteal" yaml:"luteal"`

	// Intervention contains the fixed physiological model of the cycle-aware
	// intervention effect. These are never subject to correction.
	Intervention InterventionParams `json:"intervention" yaml:"intervention"`

	// Tolerance is the relative tolerance fraction used by validation for
	// continuous metric means.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// DemographicsParams describes the age distribution.
type DemographicsParams struct {
	AgeMean float64 `json:"age_mean" yaml:"age_mean"`
	AgeStd  float64 `json:"age_std" yaml:"age_std"`
	AgeMin  int     `json:"age_min" yaml:"age_min"`
	AgeMax  int     `json:"age_max" yaml:"age_max"`
}

// DiagnosisParams describes the years-since-diagnosis distribution.
// The per-subject upper bound is min(age-1, YearsMax).
type DiagnosisParams struct {
	YearsMean float64 `json:"years_mean" yaml:"years_mean"`
	YearsStd  float64 `json:"years_std" yaml:"years_std"`
	YearsMin  int     `json:"years_min" yaml:"years_min"`
	YearsMax  int     `json:"years_max" yaml:"years_max"`
}

// DeliveryParams describes the insulin delivery method split.
type DeliveryParams struct {
	// PumpRatio is the target fraction of subjects using an insulin pump;
	// the remainder use multiple daily injections.
	PumpRatio float64 `json:"pump_ratio" yaml:"pump_ratio"`
}

// RegularityParams describes the cycle regularity category proportions.
// The three ratios must sum to 1.
type RegularityParams struct {
	VeryRegular     float64 `json:"very_regular" yaml:"very_regular"`
	SomewhatRegular float64 `json:"somewhat_regular" yaml:"somewhat_regular"`
	Irregular       float64 `json:"irregular" yaml:"irregular"`
}

// BasalParams describes the nightly basal insulin dose in units.
type BasalParams struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// GlucoseParams describes nighttime glucose in mg/dL.
type GlucoseParams struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`

	// Floor is the physiological lower clamp for generated values.
	Floor float64 `json:"floor" yaml:"floor"`
}

// AwakeningsParams describes nightly sleep awakenings.
type AwakeningsParams struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// PhaseProbs holds one symptom's probability in each cycle phase.
type PhaseProbs struct {
	Follicular float64 `json:"follicular" yaml:"follicular"`
	Luteal     float64 `json:"luteal" yaml:"luteal"`
}

// SymptomsParams describes the per-phase probability of each nighttime symptom.
type SymptomsParams struct {
	NightSweats  PhaseProbs `json:"night_sweats" yaml:"night_sweats"`
	Dizziness    PhaseProbs `json:"dizziness" yaml:"dizziness"`
	Palpitations PhaseProbs `json:"palpitations" yaml:"palpitations"`
	Fatigue      PhaseProbs `json:"fatigue" yaml:"fatigue"`
}

// LutealParams describes how luteal-phase physiology departs from the
// follicular baseline.
type LutealParams struct {
	// InsulinIncrease is the multiplicative basal dose increase (0.14 = +14%).
	InsulinIncrease float64 `json:"insulin_increase" yaml:"insulin_increase"`

	// GlucoseIncrease is the additive nighttime glucose increase in mg/dL.
	GlucoseIncrease float64 `json:"glucose_increase" yaml:"glucose_increase"`

	// AwakeningsIncrease is the additive awakenings increase.
	AwakeningsIncrease float64 `json:"awakenings_increase" yaml:"awakenings_increase"`
}

// InterventionParams describes the intervention arm's luteal response. Instead
// of the baseline luteal elevation, intervention subjects reduce their basal
// dose and show only a fraction of the glucose rise.
type InterventionParams struct {
	// DoseReductionMin and DoseReductionMax bound the random fractional dose
	// reduction applied in the luteal phase.
	DoseReductionMin float64 `json:"dose_reduction_min" yaml:"dose_reduction_min"`
	DoseReductionMax float64 `json:"dose_reduction_max" yaml:"dose_reduction_max"`

	// GlucoseFraction is the fraction of the luteal glucose increase that
	// intervention subjects still exhibit (0.10 = 10% of the baseline rise).
	GlucoseFraction float64 `json:"glucose_fraction" yaml:"glucose_fraction"`
}

// Default returns Parameters matching the study design the generator was
// calibrated against: T1D women aged 18-45 with a 65/35 pump split, 118 mg/dL
// follicular nighttime glucose, and the published luteal elevations.
func Default() *Parameters {
	return &Parameters{
		Demographics: DemographicsParams{
			AgeMean: 31.5,
			AgeStd:  7.0,
			AgeMin:  18,
			AgeMax:  45,
		},
		Diagnosis: DiagnosisParams{
			YearsMean: 12.0,
			YearsStd:  8.0,
			YearsMin:  1,
			YearsMax:  30,
		},
		Delivery: DeliveryParams{
			PumpRatio: 0.65,
		},
		Regularity: RegularityParams{
			VeryRegular:     0.55,
			SomewhatRegular: 0.30,
			Irregular:       0.15,
		},
		Basal: BasalParams{
			Mean: 14.0,
			Std:  3.5,
			Min:  5.0,
			Max:  30.0,
		},
		Glucose: GlucoseParams{
			Mean:  118.0,
			Std:   20.0,
			Floor: 50.0,
		},
		Awakenings: AwakeningsParams{
			Mean: 0.8,
			Std:  0.6,
		},
		Symptoms: SymptomsParams{
			NightSweats:  PhaseProbs{Follicular: 0.12, Luteal: 0.22},
			Dizziness:    PhaseProbs{Follicular: 0.04, Luteal: 0.09},
			Palpitations: PhaseProbs{Follicular: 0.05, Luteal: 0.11},
			Fatigue:      PhaseProbs{Follicular: 0.18, Luteal: 0.25},
		},
		Luteal: LutealParams{
			InsulinIncrease:    0.14,
			GlucoseIncrease:    8.1,
			AwakeningsIncrease: 0.6,
		},
		Intervention: InterventionParams{
			DoseReductionMin: 0.05,
			DoseReductionMax: 0.15,
			GlucoseFraction:  0.10,
		},
		Tolerance: 0.10,
	}
}

// LoadFromFile loads Parameters from a YAML file. Fields absent from the file
// keep their default values.
func LoadFromFile(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameters file: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing parameters file: %w", err)
	}

	return p, nil
}

// Validate checks internal consistency of the parameters. It is called once
// before generation; a failure here aborts the run before any sampling.
func (p *Parameters) Validate() error {
	if p.Demographics.AgeMin >= p.Demographics.AgeMax {
		return fmt.Errorf("age_min (%d) must be below age_max (%d)", p.Demographics.AgeMin, p.Demographics.AgeMax)
	}
	if p.Demographics.AgeStd <= 0 {
		return fmt.Errorf("age_std must be positive, got %f", p.Demographics.AgeStd)
	}
	if p.Diagnosis.YearsMin < 0 || p.Diagnosis.YearsMin > p.Diagnosis.YearsMax {
		return fmt.Errorf("diagnosis years range [%d, %d] is invalid", p.Diagnosis.YearsMin, p.Diagnosis.YearsMax)
	}
	if p.Delivery.PumpRatio < 0 || p.Delivery.PumpRatio > 1 {
		return fmt.Errorf("pump_ratio must be between 0 and 1, got %f", p.Delivery.PumpRatio)
	}
	regSum := p.Regularity.VeryRegular + p.Regularity.SomewhatRegular + p.Regularity.Irregular
	if regSum < 0.999 || regSum > 1.001 {
		return fmt.Errorf("regularity ratios must sum to 1, got %f", regSum)
	}
	if p.Basal.Min <= 0 || p.Basal.Min >= p.Basal.Max {
		return fmt.Errorf("basal dose range [%f, %f] is invalid", p.Basal.Min, p.Basal.Max)
	}
	if p.Basal.Mean < p.Basal.Min || p.Basal.Mean > p.Basal.Max {
		return fmt.Errorf("basal mean %f is outside [%f, %f]", p.Basal.Mean, p.Basal.Min, p.Basal.Max)
	}
	if p.Glucose.Mean <= p.Glucose.Floor {
		return fmt.Errorf("glucose mean %f must exceed floor %f", p.Glucose.Mean, p.Glucose.Floor)
	}
	for _, pr := range []struct {
		name string
		p    PhaseProbs
	}{
		{"night_sweats", p.Symptoms.NightSweats},
		{"dizziness", p.Symptoms.Dizziness},
		{"palpitations", p.Symptoms.Palpitations},
		{"fatigue", p.Symptoms.Fatigue},
	} {
		if pr.p.Follicular < 0 || pr.p.Follicular > 1 || pr.p.Luteal < 0 || pr.p.Luteal > 1 {
			return fmt.Errorf("symptom %s probabilities must be between 0 and 1", pr.name)
		}
	}
	if p.Intervention.DoseReductionMin < 0 || p.Intervention.DoseReductionMin > p.Intervention.DoseReductionMax {
		return fmt.Errorf("intervention dose reduction range [%f, %f] is invalid",
			p.Intervention.DoseReductionMin, p.Intervention.DoseReductionMax)
	}
	if p.Intervention.GlucoseFraction < 0 || p.Intervention.GlucoseFraction > 1 {
		return fmt.Errorf("intervention glucose_fraction must be between 0 and 1, got %f", p.Intervention.GlucoseFraction)
	}
	if p.Tolerance <= 0 || p.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be between 0 and 1, got %f", p.Tolerance)
	}
	return nil
}
