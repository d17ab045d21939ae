package cohort

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cyclewise/cohortgen/internal/constants"
	"github.com/cyclewise/cohortgen/internal/dist"
	"github.com/cyclewise/cohortgen/internal/models"
	"github.com/cyclewise/cohortgen/internal/params"
)

// Narrative templates for the free-text answer. Intervention narratives all
// contain "cycle-aware"; that phrase is how downstream analysis recovers the
// study arm from the data, so it must survive any template edit.
var (
	controlNarratives = []string{
		"My glucose levels tend to be higher during certain times of the month.",
		"I notice more overnight highs in the week before my period.",
		"Sleep feels worse and my numbers run higher late in my cycle.",
		"I haven't changed my insulin routine around my cycle.",
	}

	interventionNarratives = []string{
		"I follow a cycle-aware plan and adjusted my basal during the luteal phase.",
		"Using cycle-aware basal adjustments, my overnight glucose stays steadier before my period.",
		"Since starting cycle tracking with a cycle-aware program I reduced my basal dose mid-cycle.",
		"My cycle-aware routine means I lower my nightly basal in the second half of my cycle.",
	}
)

// Generator draws subjects and observations from the population parameters,
// perturbed by whatever directives are active. It holds no mutable state of
// its own beyond the shared random stream.
type Generator struct {
	params *params.Parameters
	rng    *rand.Rand
}

// NewGenerator creates a Generator over the given parameters and random
// stream. The stream is owned by the caller; the coordinator threads one
// stream through the whole run.
func NewGenerator(p *params.Parameters, rng *rand.Rand) *Generator {
	return &Generator{params: p, rng: rng}
}

// NewSubject draws one subject. Subject attributes are fixed here and never
// revisited; corrections only influence subjects drawn after the checkpoint.
func (g *Generator) NewSubject(num int, intervention bool, d Directives) *models.Subject {
	p := g.params

	age := int(math.Round(dist.TruncNormal(g.rng,
		p.Demographics.AgeMean, p.Demographics.AgeStd,
		float64(p.Demographics.AgeMin), float64(p.Demographics.AgeMax),
		d.Shift(MetricAge))))

	yearsMax := min(age-1, p.Diagnosis.YearsMax)
	years := int(math.Round(dist.TruncNormal(g.rng,
		p.Diagnosis.YearsMean, p.Diagnosis.YearsStd,
		float64(p.Diagnosis.YearsMin), float64(yearsMax), 0)))

	delivery := models.DeliveryInjections
	if dist.Categorical(g.rng,
		[]float64{p.Delivery.PumpRatio, 1 - p.Delivery.PumpRatio},
		0, d.Bias(MetricPumpRatio)) == 0 {
		delivery = models.DeliveryPump
	}

	regularity := [...]string{
		models.RegularityVeryRegular,
		models.RegularitySomewhatRegular,
		models.RegularityIrregular,
	}[dist.Categorical(g.rng, []float64{
		p.Regularity.VeryRegular,
		p.Regularity.SomewhatRegular,
		p.Regularity.Irregular,
	}, -1, 1)]

	return &models.Subject{
		ID:                  fmt.Sprintf("patient-%04d", num),
		Age:                 age,
		YearsSinceDiagnosis: years,
		DeliveryMethod:      delivery,
		CycleRegularity:     regularity,
		Intervention:        intervention,
	}
}

// PickPhase draws the target phase for a cross-sectional observation, with
// the follicular weight biased by any phase balance directive.
func (g *Generator) PickPhase(d Directives) models.Phase {
	if dist.Categorical(g.rng, []float64{0.5, 0.5}, 0, d.Bias(MetricPhaseBalance)) == 0 {
		return models.Follicular
	}
	return models.Luteal
}

// NewObservation draws one observation for the subject in the target phase,
// dated within the observation window ending at reference. The intervention
// arm's luteal behavior (reduced basal, damped glucose rise) is part of the
// physiological model and ignores directives.
func (g *Generator) NewObservation(subject *models.Subject, seq int, reference time.Time, target models.Phase, d Directives) *models.Observation {
	authored := reference.AddDate(0, 0, -g.rng.IntN(constants.ObservationWindowDays))
	lmp := models.LMPForPhase(g.rng, authored, target)

	obs := &models.Observation{
		SubjectID: subject.ID,
		Seq:       seq,
		Authored:  authored,
		LMP:       lmp,
		Phase:     target,
	}

	obs.BasalInsulin = round1(g.drawBasal(subject, target, d))
	obs.NighttimeGlucose = round1(g.drawGlucose(subject, target, d))
	obs.SleepAwakenings = g.drawAwakenings(target, d)
	obs.Symptoms = g.drawSymptoms(target, d)
	obs.Narrative = g.drawNarrative(subject)
	return obs
}

func (g *Generator) drawBasal(subject *models.Subject, phase models.Phase, d Directives) float64 {
	p := g.params
	if phase == models.Follicular {
		return dist.TruncNormal(g.rng, p.Basal.Mean, p.Basal.Std,
			p.Basal.Min, p.Basal.Max, d.Shift(MetricFollicularBasal))
	}
	if subject.Intervention {
		// Cycle-aware subjects reduce their dose in the luteal phase instead
		// of raising it. Fixed model, no directive.
		base := dist.TruncNormal(g.rng, p.Basal.Mean, p.Basal.Std, p.Basal.Min, p.Basal.Max, 0)
		reduction := dist.Uniform(g.rng, p.Intervention.DoseReductionMin, p.Intervention.DoseReductionMax)
		dose := base * (1 - reduction)
		if dose < p.Basal.Min {
			dose = p.Basal.Min
		}
		return dose
	}
	return dist.TruncNormal(g.rng, p.Basal.Mean*(1+p.Luteal.InsulinIncrease), p.Basal.Std,
		p.Basal.Min, p.Basal.Max, d.Shift(MetricLutealBasal))
}

func (g *Generator) drawGlucose(subject *models.Subject, phase models.Phase, d Directives) float64 {
	p := g.params
	const upper = 400.0
	if phase == models.Follicular {
		return dist.TruncNormal(g.rng, p.Glucose.Mean, p.Glucose.Std,
			p.Glucose.Floor, upper, d.Shift(MetricFollicularGlucose))
	}
	if subject.Intervention {
		// Only a small fraction of the luteal rise shows through.
		mean := p.Glucose.Mean + p.Luteal.GlucoseIncrease*p.Intervention.GlucoseFraction
		return dist.TruncNormal(g.rng, mean, p.Glucose.Std, p.Glucose.Floor, upper, 0)
	}
	return dist.TruncNormal(g.rng, p.Glucose.Mean+p.Luteal.GlucoseIncrease, p.Glucose.Std,
		p.Glucose.Floor, upper, d.Shift(MetricLutealGlucose))
}

func (g *Generator) drawAwakenings(phase models.Phase, d Directives) int {
	p := g.params
	mean := p.Awakenings.Mean
	shift := d.Shift(MetricFollicularAwakenings)
	if phase == models.Luteal {
		mean += p.Luteal.AwakeningsIncrease
		shift = d.Shift(MetricLutealAwakenings)
	}
	return int(math.Round(dist.NonNegNormal(g.rng, mean, p.Awakenings.Std, shift)))
}

func (g *Generator) drawSymptoms(phase models.Phase, d Directives) []string {
	p := g.params
	var symptoms []string

	type draw struct {
		symptom string
		probs   params.PhaseProbs
		metric  Metric
	}
	var draws []draw
	if phase == models.Follicular {
		draws = []draw{
			{models.SymptomNightSweats, p.Symptoms.NightSweats, MetricFollicularNightSweats},
			{models.SymptomDizziness, p.Symptoms.Dizziness, MetricFollicularDizziness},
			{models.SymptomPalpitations, p.Symptoms.Palpitations, MetricFollicularPalpitations},
			{models.SymptomFatigue, p.Symptoms.Fatigue, MetricFollicularFatigue},
		}
	} else {
		draws = []draw{
			{models.SymptomNightSweats, p.Symptoms.NightSweats, MetricLutealNightSweats},
			{models.SymptomDizziness, p.Symptoms.Dizziness, MetricLutealDizziness},
			{models.SymptomPalpitations, p.Symptoms.Palpitations, MetricLutealPalpitations},
			{models.SymptomFatigue, p.Symptoms.Fatigue, MetricLutealFatigue},
		}
	}

	for _, dr := range draws {
		prob := dr.probs.Follicular
		if phase == models.Luteal {
			prob = dr.probs.Luteal
		}
		if dist.Bernoulli(g.rng, prob, d.Multiplier(dr.metric)) {
			symptoms = append(symptoms, dr.symptom)
		}
	}
	return symptoms
}

func (g *Generator) drawNarrative(subject *models.Subject) string {
	if subject.Intervention {
		return interventionNarratives[g.rng.IntN(len(interventionNarratives))]
	}
	return controlNarratives[g.rng.IntN(len(controlNarratives))]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
