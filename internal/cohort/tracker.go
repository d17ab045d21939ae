package cohort

import (
	"fmt"
	"math"

	"github.com/cyclewise/cohortgen/internal/models"
	"github.com/cyclewise/cohortgen/internal/params"
)

// accumulator keeps running count/sum/min/max for one continuous metric.
// Sums are commutative, so ingest order does not affect the final state.
type accumulator struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 || v < a.min {
		a.min = v
	}
	if a.count == 0 || v > a.max {
		a.max = v
	}
	a.count++
	a.sum += v
}

// mean panics on an empty accumulator. Callers gate on count first; reaching
// the division with zero samples is a bug, not a data condition.
func (a *accumulator) mean() float64 {
	if a.count == 0 {
		panic("cohort: mean of empty accumulator")
	}
	return a.sum / float64(a.count)
}

// MetricStats is one metric's summary in a statistics snapshot.
type MetricStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func (a *accumulator) stats() MetricStats {
	s := MetricStats{Count: a.count, Min: a.min, Max: a.max}
	if a.count > 0 {
		s.Mean = a.mean()
	}
	return s
}

// Stats is a point-in-time snapshot of the tracker's running statistics.
type Stats struct {
	TotalObservations int `json:"total_observations"`
	FollicularCount   int `json:"follicular_count"`
	LutealCount       int `json:"luteal_count"`
	InterventionObs   int `json:"intervention_observations"`

	PumpCount      int `json:"pump_count"`
	InjectionCount int `json:"injection_count"`

	VeryRegularCount     int `json:"very_regular_count"`
	SomewhatRegularCount int `json:"somewhat_regular_count"`
	IrregularCount       int `json:"irregular_count"`

	Age                   MetricStats `json:"age"`
	FollicularGlucose     MetricStats `json:"follicular_glucose"`
	LutealGlucose         MetricStats `json:"luteal_glucose"`
	LutealGlucoseControl  MetricStats `json:"luteal_glucose_control"`
	LutealGlucoseTreated  MetricStats `json:"luteal_glucose_treated"`
	FollicularBasal       MetricStats `json:"follicular_basal"`
	LutealBasalControl    MetricStats `json:"luteal_basal_control"`
	LutealBasalTreated    MetricStats `json:"luteal_basal_treated"`
	FollicularAwakenings  MetricStats `json:"follicular_awakenings"`
	LutealAwakenings      MetricStats `json:"luteal_awakenings"`

	SymptomCounts map[Metric]int `json:"symptom_counts"`
}

// CheckpointEntry records one metric's evaluation at the checkpoint: what was
// observed, what was targeted, and the directive issued, if any.
type CheckpointEntry struct {
	Metric    Metric     `json:"metric"`
	Observed  float64    `json:"observed"`
	Target    float64    `json:"target"`
	Samples   int        `json:"samples"`
	Directive *Directive `json:"directive,omitempty"`

	// Clamped marks a directive whose raw value exceeded its clamp range.
	// Clamping is logged, never fatal.
	Clamped bool `json:"clamped,omitempty"`
}

// Tracker accumulates running statistics for a generation run and computes
// the checkpoint's correction directives. It is the run's only mutable state;
// each run owns its own Tracker, so there is no cross-run interference.
type Tracker struct {
	params      *params.Parameters
	tuning      Tuning
	targetTotal int

	total        int
	follicular   int
	luteal       int
	intervention int

	pump      int
	injection int

	veryRegular     int
	somewhatRegular int
	irregular       int

	age                  accumulator
	folGlucose           accumulator
	lutGlucose           accumulator
	lutGlucoseControl    accumulator
	lutGlucoseTreated    accumulator
	folBasal             accumulator
	lutBasalControl      accumulator
	lutBasalTreated      accumulator
	folAwakenings        accumulator
	lutAwakenings        accumulator

	symptomHits map[Metric]int
}

// NewTracker creates a Tracker for a run targeting targetTotal observations.
func NewTracker(p *params.Parameters, tuning Tuning, targetTotal int) *Tracker {
	return &Tracker{
		params:      p,
		tuning:      tuning,
		targetTotal: targetTotal,
		symptomHits: make(map[Metric]int),
	}
}

// Ingest records one emitted observation. The total observation count is
// strictly monotonic; nothing ever removes or rewrites ingested data.
func (t *Tracker) Ingest(subject *models.Subject, obs *models.Observation) {
	t.total++
	t.age.add(float64(subject.Age))

	if subject.DeliveryMethod == models.DeliveryPump {
		t.pump++
	} else {
		t.injection++
	}

	switch subject.CycleRegularity {
	case models.RegularityVeryRegular:
		t.veryRegular++
	case models.RegularitySomewhatRegular:
		t.somewhatRegular++
	default:
		t.irregular++
	}

	if subject.Intervention {
		t.intervention++
	}

	if obs.Phase == models.Follicular {
		t.follicular++
		t.folGlucose.add(obs.NighttimeGlucose)
		t.folBasal.add(obs.BasalInsulin)
		t.folAwakenings.add(float64(obs.SleepAwakenings))
		t.countSymptoms(obs, models.Follicular)
		return
	}

	t.luteal++
	t.lutGlucose.add(obs.NighttimeGlucose)
	t.lutAwakenings.add(float64(obs.SleepAwakenings))
	if subject.Intervention {
		t.lutGlucoseTreated.add(obs.NighttimeGlucose)
		t.lutBasalTreated.add(obs.BasalInsulin)
	} else {
		t.lutGlucoseControl.add(obs.NighttimeGlucose)
		t.lutBasalControl.add(obs.BasalInsulin)
	}
	t.countSymptoms(obs, models.Luteal)
}

func (t *Tracker) countSymptoms(obs *models.Observation, phase models.Phase) {
	for symptom, metric := range symptomMetrics(phase) {
		if obs.HasSymptom(symptom) {
			t.symptomHits[metric]++
		}
	}
}

func symptomMetrics(phase models.Phase) map[string]Metric {
	if phase == models.Follicular {
		return map[string]Metric{
			models.SymptomNightSweats:  MetricFollicularNightSweats,
			models.SymptomDizziness:    MetricFollicularDizziness,
			models.SymptomPalpitations: MetricFollicularPalpitations,
			models.SymptomFatigue:      MetricFollicularFatigue,
		}
	}
	return map[string]Metric{
		models.SymptomNightSweats:  MetricLutealNightSweats,
		models.SymptomDizziness:    MetricLutealDizziness,
		models.SymptomPalpitations: MetricLutealPalpitations,
		models.SymptomFatigue:      MetricLutealFatigue,
	}
}

// Total returns the number of observations ingested so far.
func (t *Tracker) Total() int { return t.total }

// Snapshot returns the current running statistics.
func (t *Tracker) Snapshot() Stats {
	hits := make(map[Metric]int, len(t.symptomHits))
	for m, n := range t.symptomHits {
		hits[m] = n
	}
	return Stats{
		TotalObservations:    t.total,
		FollicularCount:      t.follicular,
		LutealCount:          t.luteal,
		InterventionObs:      t.intervention,
		PumpCount:            t.pump,
		InjectionCount:       t.injection,
		VeryRegularCount:     t.veryRegular,
		SomewhatRegularCount: t.somewhatRegular,
		IrregularCount:       t.irregular,
		Age:                  t.age.stats(),
		FollicularGlucose:    t.folGlucose.stats(),
		LutealGlucose:        t.lutGlucose.stats(),
		LutealGlucoseControl: t.lutGlucoseControl.stats(),
		LutealGlucoseTreated: t.lutGlucoseTreated.stats(),
		FollicularBasal:      t.folBasal.stats(),
		LutealBasalControl:   t.lutBasalControl.stats(),
		LutealBasalTreated:   t.lutBasalTreated.stats(),
		FollicularAwakenings: t.folAwakenings.stats(),
		LutealAwakenings:     t.lutAwakenings.stats(),
		SymptomCounts:        hits,
	}
}

// ComputeCorrections evaluates every tracked metric against its target and
// returns the frozen directive set for the remaining samples, together with
// the full checkpoint summary. Metrics inside their activation threshold, or
// with too few samples, get no directive. Called exactly once per run.
func (t *Tracker) ComputeCorrections(remaining int) (Directives, []CheckpointEntry) {
	d := make(Directives)
	var entries []CheckpointEntry

	if remaining <= 0 || t.total == 0 {
		return d, entries
	}

	p := t.params

	// Continuous means. The shift is the gap scaled by the closure factor,
	// itself scaled by ingested/remaining so a late checkpoint corrects
	// harder per draw, then clamped so the shifted mean stays inside the
	// metric's physical bounds.
	continuous := []struct {
		metric    Metric
		acc       *accumulator
		target    float64
		threshold float64
		closure   float64
		lo, hi    float64
	}{
		{MetricAge, &t.age, p.Demographics.AgeMean, t.tuning.AgeThreshold, t.tuning.ClosureFactor,
			float64(p.Demographics.AgeMin), float64(p.Demographics.AgeMax)},
		{MetricFollicularGlucose, &t.folGlucose, p.Glucose.Mean, t.tuning.GlucoseThreshold,
			t.tuning.ClosureFactor, p.Glucose.Floor, math.Inf(1)},
		{MetricLutealGlucose, &t.lutGlucoseControl, p.Glucose.Mean + p.Luteal.GlucoseIncrease,
			t.tuning.GlucoseThreshold, t.tuning.ClosureFactor, p.Glucose.Floor, math.Inf(1)},
		{MetricFollicularBasal, &t.folBasal, p.Basal.Mean, t.tuning.BasalThreshold,
			t.tuning.BasalClosure, p.Basal.Min, p.Basal.Max},
		{MetricLutealBasal, &t.lutBasalControl, p.Basal.Mean * (1 + p.Luteal.InsulinIncrease),
			t.tuning.BasalThreshold, t.tuning.BasalClosure, p.Basal.Min, p.Basal.Max},
		{MetricFollicularAwakenings, &t.folAwakenings, p.Awakenings.Mean,
			t.tuning.AwakeningsThreshold, t.tuning.AwakeningsClosure, 0, math.Inf(1)},
		{MetricLutealAwakenings, &t.lutAwakenings, p.Awakenings.Mean + p.Luteal.AwakeningsIncrease,
			t.tuning.AwakeningsThreshold, t.tuning.AwakeningsClosure, 0, math.Inf(1)},
	}

	for _, c := range continuous {
		entry := CheckpointEntry{Metric: c.metric, Target: c.target, Samples: c.acc.count}
		if c.acc.count >= t.tuning.MinSamples {
			observed := c.acc.mean()
			entry.Observed = observed
			gap := c.target - observed
			if math.Abs(gap) > c.threshold {
				// Fewer remaining draws must absorb the same gap, so the
				// per-draw correction strengthens as the remainder shrinks.
				closure := clamp(c.closure*float64(t.total)/float64(remaining),
					c.closure, t.tuning.MaxClosure)
				shift := gap * closure
				shifted := c.target + shift
				if shifted < c.lo {
					shift = c.lo - c.target
					entry.Clamped = true
				} else if shifted > c.hi {
					shift = c.hi - c.target
					entry.Clamped = true
				}
				dir := Directive{Metric: c.metric, Kind: KindShift, Value: shift}
				d[c.metric] = dir
				entry.Directive = &dir
			}
		}
		entries = append(entries, entry)
	}

	// Bernoulli rates. The multiplier is target over observed, clamped; a
	// zero observed rate with a positive target gets the max boost.
	rates := []struct {
		metric      Metric
		denominator int
		target      float64
	}{
		{MetricFollicularNightSweats, t.follicular, p.Symptoms.NightSweats.Follicular},
		{MetricFollicularDizziness, t.follicular, p.Symptoms.Dizziness.Follicular},
		{MetricFollicularPalpitations, t.follicular, p.Symptoms.Palpitations.Follicular},
		{MetricFollicularFatigue, t.follicular, p.Symptoms.Fatigue.Follicular},
		{MetricLutealNightSweats, t.luteal, p.Symptoms.NightSweats.Luteal},
		{MetricLutealDizziness, t.luteal, p.Symptoms.Dizziness.Luteal},
		{MetricLutealPalpitations, t.luteal, p.Symptoms.Palpitations.Luteal},
		{MetricLutealFatigue, t.luteal, p.Symptoms.Fatigue.Luteal},
	}

	for _, r := range rates {
		entry := CheckpointEntry{Metric: r.metric, Target: r.target, Samples: r.denominator}
		if r.denominator >= t.tuning.MinSamples {
			observed := float64(t.symptomHits[r.metric]) / float64(r.denominator)
			entry.Observed = observed
			if math.Abs(observed-r.target) > t.tuning.RateThreshold {
				var mult float64
				if observed == 0 {
					mult = t.tuning.MaxRateMultiplier
				} else {
					mult = r.target / observed
				}
				clamped := clamp(mult, t.tuning.MinRateMultiplier, t.tuning.MaxRateMultiplier)
				entry.Clamped = clamped != mult
				dir := Directive{Metric: r.metric, Kind: KindMultiplier, Value: clamped}
				d[r.metric] = dir
				entry.Directive = &dir
			}
		}
		entries = append(entries, entry)
	}

	// Balance metrics. The bias re-weights the preferred outcome so the
	// remaining draws close the deficit exactly in expectation.
	entries = append(entries, t.balanceEntry(d, MetricPhaseBalance, 0.5, t.follicular, 0.5, t.tuning.PhaseBand, remaining))
	entries = append(entries, t.balanceEntry(d, MetricPumpRatio, p.Delivery.PumpRatio, t.pump, p.Delivery.PumpRatio, t.tuning.PumpBand, remaining))

	return d, entries
}

// balanceEntry evaluates one categorical share (observed count / total) against
// target and, if outside band, issues a bias directive on the base weight so
// the expected share of the remaining draws closes the gap.
func (t *Tracker) balanceEntry(d Directives, metric Metric, target float64, count int, baseWeight, band float64, remaining int) CheckpointEntry {
	entry := CheckpointEntry{Metric: metric, Target: target, Samples: t.total}
	if t.total < t.tuning.MinSamples {
		return entry
	}
	observed := float64(count) / float64(t.total)
	entry.Observed = observed
	if math.Abs(observed-target) <= band {
		return entry
	}

	// Share of the remaining draws that must land on the preferred outcome
	// for the final share to hit target.
	wanted := (target*float64(t.targetTotal) - float64(count)) / float64(remaining)
	wanted = clamp(wanted, 0.01, 0.99)

	// With base weight w biased by b, the outcome probability is
	// wb / (wb + (1-w)). Solve for b to realize the wanted probability.
	bias := wanted * (1 - baseWeight) / (baseWeight * (1 - wanted))
	clamped := clamp(bias, 1/t.tuning.MaxBalanceBias, t.tuning.MaxBalanceBias)
	entry.Clamped = clamped != bias

	dir := Directive{Metric: metric, Kind: KindBias, Value: clamped}
	d[metric] = dir
	entry.Directive = &dir
	return entry
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// String renders a short human-readable form for logs.
func (e CheckpointEntry) String() string {
	if e.Directive == nil {
		return fmt.Sprintf("%s: observed %.3f target %.3f (no correction)", e.Metric, e.Observed, e.Target)
	}
	return fmt.Sprintf("%s: observed %.3f target %.3f -> %s %.3f", e.Metric, e.Observed, e.Target, e.Directive.Kind, e.Directive.Value)
}
