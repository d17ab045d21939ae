package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyclewise/cohortgen/internal/store"
	"github.com/cyclewise/cohortgen/internal/validate"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a persisted run against its population targets",
		Long: `Validate recomputes the cohort's aggregate statistics from the database
and checks every population target: exact counts, demographic means, phase
balance, symptom rates, and the intervention effect. The command exits
non-zero when any check fails unless --no-fail is set.`,
		RunE: runValidate,
	}

	cmd.Flags().String("run", "", "Run ID to validate (default: latest run)")
	cmd.Flags().Bool("failures-only", false, "Print only failed checks")
	cmd.Flags().Bool("no-fail", false, "Exit zero even when checks fail")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	failuresOnly, _ := cmd.Flags().GetBool("failures-only")
	noFail, _ := cmd.Flags().GetBool("no-fail")

	p, err := loadParams(cmd)
	if err != nil {
		return err
	}

	run, err := loadStoredRun(cmd)
	if err != nil {
		return err
	}

	report := validate.Run(run, p)

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
			return err
		}
	} else {
		report.Write(os.Stdout, failuresOnly)
	}

	if !report.Passed() && !noFail {
		return fmt.Errorf("validation failed: %d of %d checks",
			len(report.Failures()), len(report.Checks))
	}
	return nil
}

// loadStoredRun resolves the --run flag against the store in the output
// directory, defaulting to the most recent run.
func loadStoredRun(cmd *cobra.Command) (*store.StoredRun, error) {
	outDir, _ := cmd.Flags().GetString("out")
	runID, _ := cmd.Flags().GetString("run")

	cohortStore, err := store.NewSQLiteCohortStore(outDir)
	if err != nil {
		return nil, err
	}
	defer cohortStore.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID != "" {
		return cohortStore.LoadRun(ctx, runID)
	}
	run, err := cohortStore.LatestRun(ctx)
	if err != nil {
		return nil, errors.New("no runs found; generate a cohort first")
	}
	return run, nil
}
