package mcp

import "github.com/cyclewise/cohortgen/internal/validate"

// CohortGenerateInput defines the input for the cohort_generate tool.
type CohortGenerateInput struct {
	Subjects     int     `json:"subjects,omitempty" jsonschema:"Number of unique subjects (default 187)"`
	Intervention *int    `json:"intervention,omitempty" jsonschema:"Exact number of intervention-arm subjects; zero is honored (default 64)"`
	Seed         *uint64 `json:"seed,omitempty" jsonschema:"Random seed; identical seeds reproduce identical cohorts (default 42)"`
	Mode         string  `json:"mode,omitempty" jsonschema:"Observation structure: 'cross-sectional' (one per subject) or 'longitudinal'"`
	Observations int     `json:"observations,omitempty" jsonschema:"Observations per subject in longitudinal mode (default 4)"`
	ExportJSON   bool    `json:"export_json,omitempty" jsonschema:"Also write one FHIR QuestionnaireResponse JSON file per record"`
}

// CohortGenerateOutput defines the output for the cohort_generate tool.
type CohortGenerateOutput struct {
	RunID           string `json:"run_id" jsonschema:"Identifier of the persisted run"`
	Records         int    `json:"records" jsonschema:"Number of observations generated"`
	Subjects        int    `json:"subjects" jsonschema:"Number of subjects generated"`
	CheckpointAt    int    `json:"checkpoint_at" jsonschema:"Record index after which corrections were frozen"`
	DirectivesCount int    `json:"directives" jsonschema:"Number of correction directives issued at the checkpoint"`
}

// CohortValidateInput defines the input for the cohort_validate tool.
type CohortValidateInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Run to validate; defaults to the latest run"`
}

// CohortValidateOutput defines the output for the cohort_validate tool.
type CohortValidateOutput struct {
	RunID    string           `json:"run_id" jsonschema:"Validated run"`
	Passed   bool             `json:"passed" jsonschema:"Whether every check passed"`
	Failures []validate.Check `json:"failures,omitempty" jsonschema:"Failed checks"`
	Checks   int              `json:"checks" jsonschema:"Total number of checks evaluated"`
}

// CohortStatsInput defines the input for the cohort_stats tool.
type CohortStatsInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"Run to summarize; defaults to the latest run"`
}

// CohortStatsOutput defines the output for the cohort_stats tool.
type CohortStatsOutput struct {
	RunID             string  `json:"run_id" jsonschema:"Summarized run"`
	TotalObservations int     `json:"total_observations"`
	Subjects          int     `json:"subjects"`
	FollicularCount   int     `json:"follicular_count"`
	LutealCount       int     `json:"luteal_count"`
	AgeMean           float64 `json:"age_mean"`
	FollicularGlucose float64 `json:"follicular_glucose_mean"`
	LutealGlucose     float64 `json:"luteal_glucose_mean"`
	PumpRatio         float64 `json:"pump_ratio"`
}
