// Package validate checks a persisted cohort against its population targets.
// Every check is a report finding; a statistical miss never aborts anything.
package validate

import (
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/cyclewise/cohortgen/internal/constants"
	"github.com/cyclewise/cohortgen/internal/models"
	"github.com/cyclewise/cohortgen/internal/params"
	"github.com/cyclewise/cohortgen/internal/store"
)

// Check is one validation finding.
type Check struct {
	Metric    string  `json:"metric"`
	Expected  float64 `json:"expected"`
	Observed  float64 `json:"observed"`
	Tolerance float64 `json:"tolerance"`
	Passed    bool    `json:"passed"`
	Message   string  `json:"message"`
}

// Report is the full validation result for one run.
type Report struct {
	RunID  string  `json:"run_id"`
	Checks []Check `json:"checks"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failed checks.
func (r *Report) Failures() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Write renders the report. With failuresOnly set, passing checks are
// suppressed.
func (r *Report) Write(w io.Writer, failuresOnly bool) {
	fmt.Fprintf(w, "Validation report for run %s\n", r.RunID)
	passed := 0
	for _, c := range r.Checks {
		if c.Passed {
			passed++
			if failuresOnly {
				continue
			}
		}
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %s\n", status, c.Message)
	}
	fmt.Fprintf(w, "%d/%d checks passed\n", passed, len(r.Checks))
}

// relative builds a check comparing observed to expected within a relative
// tolerance band.
func relative(metric string, expected, observed, tolerance float64) Check {
	band := math.Abs(expected) * tolerance
	passed := math.Abs(observed-expected) <= band
	return Check{
		Metric:    metric,
		Expected:  expected,
		Observed:  observed,
		Tolerance: tolerance,
		Passed:    passed,
		Message: fmt.Sprintf("%s: expected %.2f, observed %.2f (±%.0f%%)",
			metric, expected, observed, tolerance*100),
	}
}

// exact builds a check requiring an exact integer count.
func exact(metric string, expected, observed int) Check {
	return Check{
		Metric:    metric,
		Expected:  float64(expected),
		Observed:  float64(observed),
		Passed:    expected == observed,
		Message:   fmt.Sprintf("%s: expected exactly %d, observed %d", metric, expected, observed),
	}
}

// Run validates a stored run against the parameters it was generated from.
func Run(run *store.StoredRun, p *params.Parameters) *Report {
	report := &Report{RunID: run.Info.ID}
	add := func(c Check) { report.Checks = append(report.Checks, c) }

	tol := p.Tolerance
	if tol == 0 {
		tol = constants.DefaultToleranceFraction
	}
	rateTol := 0.25

	subjects := make(map[string]*models.Subject)
	interventionSubjects := 0
	markedSubjects := 0

	var (
		ages                             []float64
		folGlucose, lutGlucoseControl    []float64
		lutGlucoseTreated                []float64
		folBasal, lutBasalControl        []float64
		folAwakenings, lutAwakenings     []float64
		pump, follicular, luteal         int
		veryRegular, somewhatRegular     int
		irregular                        int
	)
	symptomHits := map[string]int{}

	for _, r := range run.Records {
		s, obs := r.Subject, r.Observation
		if _, seen := subjects[s.ID]; !seen {
			subjects[s.ID] = s
			if s.Intervention {
				interventionSubjects++
			}
			if strings.Contains(strings.ToLower(obs.Narrative), "cycle-aware") {
				markedSubjects++
			}
		}

		ages = append(ages, float64(s.Age))
		if s.DeliveryMethod == models.DeliveryPump {
			pump++
		}
		switch s.CycleRegularity {
		case models.RegularityVeryRegular:
			veryRegular++
		case models.RegularitySomewhatRegular:
			somewhatRegular++
		default:
			irregular++
		}

		if obs.Phase == models.Follicular {
			follicular++
			folGlucose = append(folGlucose, obs.NighttimeGlucose)
			folBasal = append(folBasal, obs.BasalInsulin)
			folAwakenings = append(folAwakenings, float64(obs.SleepAwakenings))
		} else {
			luteal++
			lutAwakenings = append(lutAwakenings, float64(obs.SleepAwakenings))
			if s.Intervention {
				lutGlucoseTreated = append(lutGlucoseTreated, obs.NighttimeGlucose)
			} else {
				lutGlucoseControl = append(lutGlucoseControl, obs.NighttimeGlucose)
				lutBasalControl = append(lutBasalControl, obs.BasalInsulin)
			}
		}
		for _, symptom := range obs.Symptoms {
			symptomHits[string(obs.Phase)+"/"+symptom]++
		}
	}

	total := len(run.Records)

	// Cohort shape
	add(exact("cohort size", run.Info.Subjects, len(subjects)))
	add(exact("intervention subjects", run.Info.Intervention, interventionSubjects))
	add(exact("intervention narrative markers", run.Info.Intervention, markedSubjects))
	if total > 0 {
		add(relative("follicular share", 0.5, float64(follicular)/float64(total), constants.ProportionTolerance*2))
		add(relative("pump ratio", p.Delivery.PumpRatio, float64(pump)/float64(total), tol*2))
		add(relative("very regular share", p.Regularity.VeryRegular, float64(veryRegular)/float64(total), rateTol))
		add(relative("somewhat regular share", p.Regularity.SomewhatRegular, float64(somewhatRegular)/float64(total), rateTol))
		add(relative("irregular share", p.Regularity.Irregular, float64(irregular)/float64(total), rateTol))
	}

	// Continuous means
	if len(ages) > 0 {
		add(relative("age mean", p.Demographics.AgeMean, stat.Mean(ages, nil), tol))
	}
	if len(folGlucose) > 0 {
		add(relative("follicular glucose mean", p.Glucose.Mean, stat.Mean(folGlucose, nil), tol))
	}
	if len(lutGlucoseControl) > 0 {
		add(relative("luteal glucose mean (control)",
			p.Glucose.Mean+p.Luteal.GlucoseIncrease, stat.Mean(lutGlucoseControl, nil), tol))
	}
	if len(folBasal) > 0 {
		add(relative("follicular basal mean", p.Basal.Mean, stat.Mean(folBasal, nil), tol))
	}
	if len(lutBasalControl) > 0 {
		add(relative("luteal basal mean (control)",
			p.Basal.Mean*(1+p.Luteal.InsulinIncrease), stat.Mean(lutBasalControl, nil), tol))
	}
	if len(folAwakenings) > 0 {
		add(relative("follicular awakenings mean", p.Awakenings.Mean, stat.Mean(folAwakenings, nil), rateTol))
	}
	if len(lutAwakenings) > 0 {
		add(relative("luteal awakenings mean",
			p.Awakenings.Mean+p.Luteal.AwakeningsIncrease, stat.Mean(lutAwakenings, nil), rateTol))
	}

	// Symptom rates
	rates := []struct {
		name    string
		phase   models.Phase
		symptom string
		target  float64
		denom   int
	}{
		{"follicular night sweats rate", models.Follicular, models.SymptomNightSweats, p.Symptoms.NightSweats.Follicular, follicular},
		{"follicular dizziness rate", models.Follicular, models.SymptomDizziness, p.Symptoms.Dizziness.Follicular, follicular},
		{"follicular palpitations rate", models.Follicular, models.SymptomPalpitations, p.Symptoms.Palpitations.Follicular, follicular},
		{"follicular fatigue rate", models.Follicular, models.SymptomFatigue, p.Symptoms.Fatigue.Follicular, follicular},
		{"luteal night sweats rate", models.Luteal, models.SymptomNightSweats, p.Symptoms.NightSweats.Luteal, luteal},
		{"luteal dizziness rate", models.Luteal, models.SymptomDizziness, p.Symptoms.Dizziness.Luteal, luteal},
		{"luteal palpitations rate", models.Luteal, models.SymptomPalpitations, p.Symptoms.Palpitations.Luteal, luteal},
		{"luteal fatigue rate", models.Luteal, models.SymptomFatigue, p.Symptoms.Fatigue.Luteal, luteal},
	}
	for _, rt := range rates {
		if rt.denom == 0 {
			continue
		}
		observed := float64(symptomHits[string(rt.phase)+"/"+rt.symptom]) / float64(rt.denom)
		c := relative(rt.name, rt.target, observed, rateTol)
		// Low-probability events in small cohorts: allow an absolute band too.
		if !c.Passed && math.Abs(observed-rt.target) <= constants.RateAbsoluteTolerance {
			c.Passed = true
		}
		add(c)
	}

	// Intervention effect: treated luteal glucose must sit well below the
	// control luteal mean, near baseline plus the damped rise.
	if len(lutGlucoseTreated) > 0 && len(lutGlucoseControl) > 0 {
		treated := stat.Mean(lutGlucoseTreated, nil)
		control := stat.Mean(lutGlucoseControl, nil)
		expected := p.Glucose.Mean + p.Luteal.GlucoseIncrease*p.Intervention.GlucoseFraction
		c := relative("luteal glucose mean (intervention)", expected, treated, tol)
		c.Passed = c.Passed && treated < control
		add(c)
	}

	return report
}
