package cohort

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/cyclewise/cohortgen/internal/models"
	"github.com/cyclewise/cohortgen/internal/params"
)

func runCohort(t *testing.T, cfg Config) *Result {
	t.Helper()
	coord, err := NewCoordinator(cfg, params.Default(), nil, nil)
	if err != nil {
		t.Fatalf("NewCoordinator failed: %v", err)
	}
	result, err := coord.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if coord.State() != StateDone {
		t.Fatalf("state after run = %s, want %s", coord.State(), StateDone)
	}
	return result
}

func TestCoordinatorRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Intervention = cfg.Subjects + 1

	_, err := NewCoordinator(cfg, params.Default(), nil, nil)
	if err == nil {
		t.Fatal("expected configuration error")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
}

func TestCoordinatorRejectsBadParameters(t *testing.T) {
	p := params.Default()
	p.Delivery.PumpRatio = 2.0

	_, err := NewCoordinator(testConfig(), p, nil, nil)
	if err == nil {
		t.Fatal("expected parameter validation error")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if ce.Field != "parameters" {
		t.Errorf("expected field 'parameters', got %q", ce.Field)
	}
}

func TestExactCounts(t *testing.T) {
	cfg := testConfig()
	result := runCohort(t, cfg)

	if len(result.Subjects) != cfg.Subjects {
		t.Errorf("subjects = %d, want %d", len(result.Subjects), cfg.Subjects)
	}
	if len(result.Records) != cfg.Subjects {
		t.Errorf("records = %d, want %d (cross-sectional)", len(result.Records), cfg.Subjects)
	}

	intervention := 0
	for _, s := range result.Subjects {
		if s.Intervention {
			intervention++
		}
	}
	if intervention != cfg.Intervention {
		t.Errorf("intervention subjects = %d, want exactly %d", intervention, cfg.Intervention)
	}
}

func TestDeterminism(t *testing.T) {
	cfg := testConfig()

	a := runCohort(t, cfg)
	b := runCohort(t, cfg)

	if !reflect.DeepEqual(a.Subjects, b.Subjects) {
		t.Error("identical seeds must produce identical subjects")
	}
	if !reflect.DeepEqual(a.Records, b.Records) {
		t.Error("identical seeds must produce identical records")
	}
	if !reflect.DeepEqual(a.Directives, b.Directives) {
		t.Error("identical seeds must produce identical directives")
	}

	cfg.Seed = 2
	c := runCohort(t, cfg)
	if reflect.DeepEqual(a.Records, c.Records) {
		t.Error("different seeds should produce different records")
	}
}

func TestCheckpointPosition(t *testing.T) {
	cfg := testConfig()
	result := runCohort(t, cfg)

	want := int(math.Ceil(0.6 * float64(cfg.Subjects)))
	if result.CheckpointAt != want {
		t.Errorf("checkpoint at %d, want %d", result.CheckpointAt, want)
	}
	if len(result.Checkpoint) == 0 {
		t.Error("expected checkpoint entries")
	}
}

func TestSequenceOrdering(t *testing.T) {
	result := runCohort(t, testConfig())
	for i, r := range result.Records {
		if r.Observation.Seq != i+1 {
			t.Fatalf("record %d has seq %d", i, r.Observation.Seq)
		}
		if r.Observation.SubjectID != r.Subject.ID {
			t.Fatalf("record %d observation subject %q != subject %q",
				i, r.Observation.SubjectID, r.Subject.ID)
		}
	}
}

func TestCheckpointDoesNotRewriteEarlierRecords(t *testing.T) {
	cfg := testConfig()
	corrected := runCohort(t, cfg)

	// Same seed, but every activation threshold widened so no directive can
	// fire. The records before the checkpoint must not depend on whether a
	// correction stage follows them.
	relaxed := cfg
	relaxed.Tuning.AgeThreshold = 1000
	relaxed.Tuning.GlucoseThreshold = 1000
	relaxed.Tuning.BasalThreshold = 1000
	relaxed.Tuning.AwakeningsThreshold = 1000
	relaxed.Tuning.RateThreshold = 1
	relaxed.Tuning.PhaseBand = 1
	relaxed.Tuning.PumpBand = 1
	uncorrected := runCohort(t, relaxed)

	if n := len(uncorrected.Directives); n != 0 {
		t.Fatalf("relaxed run issued %d directives, want 0", n)
	}
	if corrected.CheckpointAt != uncorrected.CheckpointAt {
		t.Fatalf("checkpoint positions differ: %d vs %d",
			corrected.CheckpointAt, uncorrected.CheckpointAt)
	}
	for i := 0; i < corrected.CheckpointAt; i++ {
		if !reflect.DeepEqual(corrected.Records[i], uncorrected.Records[i]) {
			t.Fatalf("record %d differs between corrected and uncorrected runs", i+1)
		}
	}
}

func TestLongitudinalMode(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = Longitudinal
	cfg.ObservationsPerSubject = 4

	result := runCohort(t, cfg)

	if len(result.Records) != cfg.Subjects*4 {
		t.Fatalf("records = %d, want %d", len(result.Records), cfg.Subjects*4)
	}

	// Each subject's observations alternate phases starting follicular.
	perSubject := make(map[string][]models.Phase)
	for _, r := range result.Records {
		perSubject[r.Subject.ID] = append(perSubject[r.Subject.ID], r.Observation.Phase)
	}
	for id, phases := range perSubject {
		if len(phases) != 4 {
			t.Fatalf("subject %s has %d observations, want 4", id, len(phases))
		}
		for i, phase := range phases {
			want := models.Follicular
			if i%2 == 1 {
				want = models.Luteal
			}
			if phase != want {
				t.Fatalf("subject %s observation %d phase %s, want %s", id, i, phase, want)
			}
		}
	}

	// Exact 50/50 phase balance falls out of the alternation.
	if result.Stats.FollicularCount != result.Stats.LutealCount {
		t.Errorf("longitudinal phase split %d/%d, want equal",
			result.Stats.FollicularCount, result.Stats.LutealCount)
	}
}

func TestPhaseBalanceCrossSectional(t *testing.T) {
	cfg := testConfig()
	cfg.Subjects = 200
	cfg.Intervention = 68

	result := runCohort(t, cfg)

	ratio := float64(result.Stats.FollicularCount) / float64(result.Stats.TotalObservations)
	if ratio < 0.35 || ratio > 0.65 {
		t.Errorf("phase ratio %f implausibly far from 0.5", ratio)
	}
}

func TestGlucoseMeanWithinTolerance(t *testing.T) {
	// The headline convergence property: across seeds, the full-cohort
	// follicular glucose mean lands within the 10% tolerance band.
	cfg := testConfig()
	cfg.Subjects = 187
	cfg.Intervention = 64

	misses := 0
	const seeds = 20
	for seed := uint64(1); seed <= seeds; seed++ {
		cfg.Seed = seed
		result := runCohort(t, cfg)

		mean := result.Stats.FollicularGlucose.Mean
		if math.Abs(mean-118.0) > 118.0*0.10 {
			misses++
		}
	}
	if misses > seeds/10 {
		t.Errorf("%d of %d seeds missed the glucose tolerance band", misses, seeds)
	}
}

func TestStatsMatchRecords(t *testing.T) {
	result := runCohort(t, testConfig())

	fol, lut := 0, 0
	for _, r := range result.Records {
		if r.Observation.Phase == models.Follicular {
			fol++
		} else {
			lut++
		}
	}
	if fol != result.Stats.FollicularCount || lut != result.Stats.LutealCount {
		t.Errorf("stats phase counts %d/%d do not match records %d/%d",
			result.Stats.FollicularCount, result.Stats.LutealCount, fol, lut)
	}
	if result.Stats.TotalObservations != len(result.Records) {
		t.Errorf("stats total %d != record count %d",
			result.Stats.TotalObservations, len(result.Records))
	}
}

func TestRunIDsUnique(t *testing.T) {
	a := runCohort(t, testConfig())
	b := runCohort(t, testConfig())
	if a.RunID == b.RunID {
		t.Error("run IDs must be unique per run")
	}
	if a.RunID == "" {
		t.Error("run ID must not be empty")
	}
}
