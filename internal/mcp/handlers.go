package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"gonum.org/v1/gonum/stat"

	"github.com/cyclewise/cohortgen/internal/cohort"
	"github.com/cyclewise/cohortgen/internal/models"
	"github.com/cyclewise/cohortgen/internal/store"
	"github.com/cyclewise/cohortgen/internal/validate"
)

func (s *Server) handleCohortGenerate(ctx context.Context, req *sdk.CallToolRequest, args CohortGenerateInput) (*sdk.CallToolResult, CohortGenerateOutput, error) {
	cfg := cohort.DefaultConfig()
	if args.Subjects > 0 {
		cfg.Subjects = args.Subjects
	}
	if args.Intervention != nil {
		cfg.Intervention = *args.Intervention
	}
	if args.Seed != nil {
		cfg.Seed = *args.Seed
	}
	if args.Mode != "" {
		cfg.Mode = cohort.Mode(args.Mode)
	}
	if args.Observations > 0 {
		cfg.ObservationsPerSubject = args.Observations
	}
	cfg.ReferenceDate = time.Now().UTC().Truncate(24 * time.Hour)

	coord, err := cohort.NewCoordinator(cfg, s.params, nil, nil)
	if err != nil {
		return nil, CohortGenerateOutput{}, err
	}
	result, err := coord.Run()
	if err != nil {
		return nil, CohortGenerateOutput{}, err
	}

	if err := s.store.SaveRun(ctx, result); err != nil {
		return nil, CohortGenerateOutput{}, fmt.Errorf("persisting run: %w", err)
	}
	if args.ExportJSON {
		dir := filepath.Join(s.outDir, "responses")
		if err := store.ExportJSON(dir, result.Records, true); err != nil {
			return nil, CohortGenerateOutput{}, fmt.Errorf("exporting responses: %w", err)
		}
	}

	return nil, CohortGenerateOutput{
		RunID:           result.RunID,
		Records:         len(result.Records),
		Subjects:        len(result.Subjects),
		CheckpointAt:    result.CheckpointAt,
		DirectivesCount: len(result.Directives),
	}, nil
}

func (s *Server) handleCohortValidate(ctx context.Context, req *sdk.CallToolRequest, args CohortValidateInput) (*sdk.CallToolResult, CohortValidateOutput, error) {
	run, err := s.loadRun(ctx, args.RunID)
	if err != nil {
		return nil, CohortValidateOutput{}, err
	}

	report := validate.Run(run, s.params)
	return nil, CohortValidateOutput{
		RunID:    run.Info.ID,
		Passed:   report.Passed(),
		Failures: report.Failures(),
		Checks:   len(report.Checks),
	}, nil
}

func (s *Server) handleCohortStats(ctx context.Context, req *sdk.CallToolRequest, args CohortStatsInput) (*sdk.CallToolResult, CohortStatsOutput, error) {
	run, err := s.loadRun(ctx, args.RunID)
	if err != nil {
		return nil, CohortStatsOutput{}, err
	}

	out := CohortStatsOutput{RunID: run.Info.ID, TotalObservations: len(run.Records)}

	var ages, folGlucose, lutGlucose []float64
	subjects := map[string]bool{}
	pump := 0
	for _, r := range run.Records {
		subjects[r.Subject.ID] = true
		ages = append(ages, float64(r.Subject.Age))
		if r.Subject.DeliveryMethod == models.DeliveryPump {
			pump++
		}
		if r.Observation.Phase == models.Follicular {
			out.FollicularCount++
			folGlucose = append(folGlucose, r.Observation.NighttimeGlucose)
		} else {
			out.LutealCount++
			lutGlucose = append(lutGlucose, r.Observation.NighttimeGlucose)
		}
	}

	out.Subjects = len(subjects)
	if len(ages) > 0 {
		out.AgeMean = stat.Mean(ages, nil)
		out.PumpRatio = float64(pump) / float64(len(run.Records))
	}
	if len(folGlucose) > 0 {
		out.FollicularGlucose = stat.Mean(folGlucose, nil)
	}
	if len(lutGlucose) > 0 {
		out.LutealGlucose = stat.Mean(lutGlucose, nil)
	}
	return nil, out, nil
}

func (s *Server) loadRun(ctx context.Context, runID string) (*store.StoredRun, error) {
	if runID != "" {
		return s.store.LoadRun(ctx, runID)
	}
	return s.store.LatestRun(ctx)
}
