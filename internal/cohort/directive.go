package cohort

// Metric identifies one tracked population statistic. Metrics are the keys
// under which the tracker accumulates values and the checkpoint issues
// correction directives.
type Metric string

const (
	// Continuous mean metrics.
	MetricAge                  Metric = "age"
	MetricFollicularGlucose    Metric = "follicular_glucose"
	MetricLutealGlucose        Metric = "luteal_glucose"
	MetricFollicularBasal      Metric = "follicular_basal"
	MetricLutealBasal          Metric = "luteal_basal"
	MetricFollicularAwakenings Metric = "follicular_awakenings"
	MetricLutealAwakenings     Metric = "luteal_awakenings"

	// Bernoulli rate metrics.
	MetricFollicularNightSweats  Metric = "follicular_night_sweats"
	MetricFollicularDizziness    Metric = "follicular_dizziness"
	MetricFollicularPalpitations Metric = "follicular_palpitations"
	MetricFollicularFatigue      Metric = "follicular_fatigue"
	MetricLutealNightSweats      Metric = "luteal_night_sweats"
	MetricLutealDizziness        Metric = "luteal_dizziness"
	MetricLutealPalpitations     Metric = "luteal_palpitations"
	MetricLutealFatigue          Metric = "luteal_fatigue"

	// Categorical balance metrics.
	MetricPhaseBalance Metric = "phase_balance"
	MetricPumpRatio    Metric = "pump_ratio"
)

// Kind discriminates the payload of a correction directive.
type Kind string

const (
	// KindShift is an additive adjustment to a continuous draw's mean.
	KindShift Kind = "shift"

	// KindMultiplier scales a Bernoulli probability.
	KindMultiplier Kind = "multiplier"

	// KindBias re-weights one outcome of a categorical draw.
	KindBias Kind = "bias"
)

// Directive is one frozen correction computed at the checkpoint.
type Directive struct {
	Metric Metric  `json:"metric"`
	Kind   Kind    `json:"kind"`
	Value  float64 `json:"value"`
}

// Directives is the frozen set of corrections applied during the corrected
// sampling pass. The zero value (nil map) applies no corrections, which is
// exactly what the free sampling pass uses. Directives are never modified
// after ComputeCorrections returns them.
type Directives map[Metric]Directive

// Shift returns the additive shift for a continuous metric, 0 if none.
func (d Directives) Shift(m Metric) float64 {
	if dir, ok := d[m]; ok && dir.Kind == KindShift {
		return dir.Value
	}
	return 0
}

// Multiplier returns the probability multiplier for a rate metric, 1 if none.
func (d Directives) Multiplier(m Metric) float64 {
	if dir, ok := d[m]; ok && dir.Kind == KindMultiplier {
		return dir.Value
	}
	return 1
}

// Bias returns the categorical weight bias for a balance metric, 1 if none.
func (d Directives) Bias(m Metric) float64 {
	if dir, ok := d[m]; ok && dir.Kind == KindBias {
		return dir.Value
	}
	return 1
}
