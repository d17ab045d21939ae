package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyclewise/cohortgen/internal/cohort"
	"github.com/cyclewise/cohortgen/internal/logging"
	"github.com/cyclewise/cohortgen/internal/store"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic cohort and persist it",
		Long: `Generate runs the adaptive two-pass engine: free sampling up to the
checkpoint, correction directives frozen there, and corrected sampling for the
remainder. The run is persisted to cohort.db in the output directory, and each
record is exported as a FHIR QuestionnaireResponse JSON file unless
--no-export is set.`,
		RunE: runGenerate,
	}

	cmd.Flags().Int("subjects", 0, "Number of unique subjects (default 187)")
	cmd.Flags().Int("intervention", 0, "Exact number of intervention-arm subjects (default 64)")
	cmd.Flags().Int("observations", 0, "Observations per subject in longitudinal mode (default 4)")
	cmd.Flags().String("mode", "", "Observation structure: cross-sectional or longitudinal")
	cmd.Flags().Uint64("seed", 0, "Random seed; identical seeds reproduce identical cohorts (default 42)")
	cmd.Flags().String("reference-date", "", "Anchor date for observation timestamps (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("no-export", false, "Skip writing per-record FHIR JSON files")
	cmd.Flags().String("arrow", "", "Also export the flattened cohort as an Arrow IPC file at this path")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	outDir, _ := cmd.Flags().GetString("out")
	level, _ := cmd.Flags().GetString("log-level")

	p, err := loadParams(cmd)
	if err != nil {
		return err
	}

	cfg, err := generateConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(level, os.Stderr)
	ckLogger := logging.NewCheckpointLogger(outDir, level)
	defer ckLogger.Close()

	coord, err := cohort.NewCoordinator(cfg, p, logger, ckLogger)
	if err != nil {
		return err
	}
	result, err := coord.Run()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cohortStore, err := store.NewSQLiteCohortStore(outDir)
	if err != nil {
		return err
	}
	defer cohortStore.Close()

	if err := cohortStore.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("persisting run: %w", err)
	}

	noExport, _ := cmd.Flags().GetBool("no-export")
	if !noExport {
		dir := filepath.Join(outDir, "responses")
		if err := store.ExportJSON(dir, result.Records, true); err != nil {
			return fmt.Errorf("exporting responses: %w", err)
		}
	}

	arrowPath, _ := cmd.Flags().GetString("arrow")
	if arrowPath != "" {
		if err := store.ExportArrow(arrowPath, result.Records); err != nil {
			return fmt.Errorf("exporting arrow file: %w", err)
		}
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"run_id":        result.RunID,
			"records":       len(result.Records),
			"subjects":      len(result.Subjects),
			"checkpoint_at": result.CheckpointAt,
			"directives":    len(result.Directives),
		})
	}

	fmt.Printf("Run %s: %d records from %d subjects (%s)\n",
		result.RunID, len(result.Records), len(result.Subjects), cfg.Mode)
	fmt.Printf("Checkpoint after record %d issued %d correction directives\n",
		result.CheckpointAt, len(result.Directives))
	fmt.Printf("Saved to %s\n", filepath.Join(outDir, store.DBFileName))
	return nil
}

// generateConfig builds the run configuration from flags, starting from the
// study defaults. Only flags the user actually set override a default, so an
// explicit zero (--intervention 0, --seed 0) is honored rather than swallowed.
func generateConfig(cmd *cobra.Command) (cohort.Config, error) {
	cfg := cohort.DefaultConfig()
	flags := cmd.Flags()

	if flags.Changed("subjects") {
		cfg.Subjects, _ = flags.GetInt("subjects")
	}
	if flags.Changed("intervention") {
		cfg.Intervention, _ = flags.GetInt("intervention")
	}
	if flags.Changed("observations") {
		cfg.ObservationsPerSubject, _ = flags.GetInt("observations")
	}
	if flags.Changed("mode") {
		v, _ := flags.GetString("mode")
		cfg.Mode = cohort.Mode(v)
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("reference-date") {
		v, _ := flags.GetString("reference-date")
		ref, err := time.Parse("2006-01-02", v)
		if err != nil {
			return cfg, fmt.Errorf("invalid --reference-date %q: %w", v, err)
		}
		cfg.ReferenceDate = ref
	}
	return cfg, nil
}
