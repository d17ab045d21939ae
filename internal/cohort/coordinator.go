package cohort

import (
	"io"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/cyclewise/cohortgen/internal/dist"
	"github.com/cyclewise/cohortgen/internal/logging"
	"github.com/cyclewise/cohortgen/internal/models"
	"github.com/cyclewise/cohortgen/internal/params"
)

// State is the coordinator's position in the run lifecycle.
type State string

const (
	StateInitializing      State = "initializing"
	StateFreeSampling      State = "free_sampling"
	StateCheckpoint        State = "checkpoint"
	StateCorrectedSampling State = "corrected_sampling"
	StateDone              State = "done"
)

// Record pairs an emitted observation with its subject, in emission order.
type Record struct {
	Subject     *models.Subject     `json:"subject"`
	Observation *models.Observation `json:"observation"`
}

// Result is the complete output of one generation run.
type Result struct {
	// RunID uniquely identifies the run for persistence and tracing.
	RunID string `json:"run_id"`

	Config Config `json:"config"`

	// Subjects in enrollment order.
	Subjects []*models.Subject `json:"subjects"`

	// Records in emission order. Records[i].Observation.Seq == i+1.
	Records []Record `json:"records"`

	// Stats is the tracker snapshot after the final record.
	Stats Stats `json:"stats"`

	// CheckpointAt is the 1-based record index after which corrections were
	// computed.
	CheckpointAt int `json:"checkpoint_at"`

	// Checkpoint is the per-metric evaluation made at the checkpoint.
	Checkpoint []CheckpointEntry `json:"checkpoint"`

	// Directives is the frozen correction set used for the second pass.
	Directives Directives `json:"directives"`
}

// Coordinator drives a generation run through its state machine:
// Initializing, FreeSampling, Checkpoint, CorrectedSampling, Done.
type Coordinator struct {
	cfg      Config
	params   *params.Parameters
	logger   *slog.Logger
	ckLogger *logging.CheckpointLogger
	state    State
}

// NewCoordinator validates the configuration and parameters and returns a
// ready Coordinator. Configuration failures are *ConfigError; nothing is
// sampled before both validations pass. logger and ckLogger may be nil.
func NewCoordinator(cfg Config, p *params.Parameters, logger *slog.Logger, ckLogger *logging.CheckpointLogger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, &ConfigError{Field: "parameters", Message: err.Error()}
	}
	if logger == nil {
		logger = logging.NewLogger("info", io.Discard)
	}
	return &Coordinator{
		cfg:      cfg,
		params:   p,
		logger:   logger,
		ckLogger: ckLogger,
		state:    StateInitializing,
	}, nil
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State { return c.state }

// Run executes the full generation run and returns its result. A Coordinator
// runs once; the result is fully determined by the config's seed, the
// parameters, and the reference date.
func (c *Coordinator) Run() (*Result, error) {
	rng := dist.New(c.cfg.Seed)
	gen := NewGenerator(c.params, rng)
	total := c.cfg.TotalObservations()
	tracker := NewTracker(c.params, c.cfg.Tuning, total)

	checkpointAt := int(math.Ceil(c.cfg.Tuning.CheckpointFraction * float64(total)))

	// Exact-count intervention assignment: a seeded shuffle of subject
	// indices, first Intervention entries in the arm.
	inArm := make([]bool, c.cfg.Subjects)
	for _, idx := range rng.Perm(c.cfg.Subjects)[:c.cfg.Intervention] {
		inArm[idx] = true
	}

	result := &Result{
		RunID:        uuid.NewString(),
		Config:       c.cfg,
		Subjects:     make([]*models.Subject, 0, c.cfg.Subjects),
		Records:      make([]Record, 0, total),
		CheckpointAt: checkpointAt,
	}

	c.logger.Info("starting generation run",
		"run_id", result.RunID,
		"mode", c.cfg.Mode,
		"subjects", c.cfg.Subjects,
		"intervention", c.cfg.Intervention,
		"total_observations", total,
		"checkpoint_at", checkpointAt,
		"seed", c.cfg.Seed)

	c.state = StateFreeSampling
	var directives Directives

	obsPerSubject := 1
	if c.cfg.Mode == Longitudinal {
		obsPerSubject = c.cfg.ObservationsPerSubject
	}

	seq := 0
	for i := 0; i < c.cfg.Subjects; i++ {
		subject := gen.NewSubject(i+1, inArm[i], directives)
		result.Subjects = append(result.Subjects, subject)

		for o := 0; o < obsPerSubject; o++ {
			seq++
			phase := c.targetPhase(gen, o, directives)
			obs := gen.NewObservation(subject, seq, c.cfg.ReferenceDate, phase, directives)
			tracker.Ingest(subject, obs)
			result.Records = append(result.Records, Record{Subject: subject, Observation: obs})

			if tracker.Total() == checkpointAt {
				directives = c.checkpoint(result, tracker, total-checkpointAt)
			}
		}
	}

	c.state = StateDone
	result.Stats = tracker.Snapshot()

	c.logger.Info("generation run complete",
		"run_id", result.RunID,
		"records", len(result.Records),
		"follicular", result.Stats.FollicularCount,
		"luteal", result.Stats.LutealCount,
		"directives", len(result.Directives))
	return result, nil
}

// targetPhase picks the phase for the o-th observation of a subject. In
// longitudinal mode phases alternate so each subject contributes to both
// arms of the comparison; cross-sectional draws are coin flips, biased after
// the checkpoint if the balance drifted.
func (c *Coordinator) targetPhase(gen *Generator, o int, d Directives) models.Phase {
	if c.cfg.Mode == Longitudinal {
		if o%2 == 0 {
			return models.Follicular
		}
		return models.Luteal
	}
	return gen.PickPhase(d)
}

// checkpoint computes and freezes the correction directives. Runs exactly
// once per run; the emitted records are left untouched.
func (c *Coordinator) checkpoint(result *Result, tracker *Tracker, remaining int) Directives {
	c.state = StateCheckpoint
	directives, entries := tracker.ComputeCorrections(remaining)
	result.Checkpoint = entries
	result.Directives = directives

	c.logger.Info("checkpoint reached",
		"run_id", result.RunID,
		"ingested", tracker.Total(),
		"remaining", remaining,
		"directives", len(directives))

	for _, e := range entries {
		if e.Clamped {
			c.logger.Warn("correction clamped", "run_id", result.RunID, "entry", e.String())
		} else if e.Directive != nil {
			c.logger.Debug("correction issued", "run_id", result.RunID, "entry", e.String())
		}
		event := map[string]any{
			"run_id":   result.RunID,
			"metric":   string(e.Metric),
			"observed": e.Observed,
			"target":   e.Target,
			"samples":  e.Samples,
			"clamped":  e.Clamped,
		}
		if e.Directive != nil {
			event["kind"] = string(e.Directive.Kind)
			event["value"] = e.Directive.Value
		}
		c.ckLogger.Log(event)
	}

	c.state = StateCorrectedSampling
	return directives
}
