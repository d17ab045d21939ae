package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyclewise/cohortgen/internal/cohort"
	"github.com/cyclewise/cohortgen/internal/store"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a persisted run's aggregate statistics",
		RunE:  runStats,
	}

	cmd.Flags().String("run", "", "Run ID to summarize (default: latest run)")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	p, err := loadParams(cmd)
	if err != nil {
		return err
	}

	run, err := loadStoredRun(cmd)
	if err != nil {
		return err
	}

	// Rebuild the running statistics from the stored records. The tracker is
	// the same aggregation the engine uses during generation.
	tracker := cohort.NewTracker(p, cohort.DefaultTuning(), len(run.Records))
	for _, r := range run.Records {
		tracker.Ingest(r.Subject, r.Observation)
	}
	stats := tracker.Snapshot()

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"run_id": run.Info.ID,
			"stats":  stats,
		})
	}

	fmt.Printf("Run %s (%s, seed %d)\n", run.Info.ID, run.Info.Mode, run.Info.Seed)
	fmt.Printf("  observations: %d (follicular %d, luteal %d)\n",
		stats.TotalObservations, stats.FollicularCount, stats.LutealCount)
	fmt.Printf("  delivery: %d pump, %d injections\n", stats.PumpCount, stats.InjectionCount)
	fmt.Printf("  age: mean %.1f [%.0f, %.0f]\n", stats.Age.Mean, stats.Age.Min, stats.Age.Max)
	fmt.Printf("  glucose: follicular %.1f, luteal %.1f mg/dL\n",
		stats.FollicularGlucose.Mean, stats.LutealGlucose.Mean)
	fmt.Printf("  basal: follicular %.1f, luteal control %.1f, luteal treated %.1f U\n",
		stats.FollicularBasal.Mean, stats.LutealBasalControl.Mean, stats.LutealBasalTreated.Mean)
	fmt.Printf("  awakenings: follicular %.2f, luteal %.2f\n",
		stats.FollicularAwakenings.Mean, stats.LutealAwakenings.Mean)
	return nil
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outDir, _ := cmd.Flags().GetString("out")

			cohortStore, err := store.NewSQLiteCohortStore(outDir)
			if err != nil {
				return err
			}
			defer cohortStore.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			runs, err := cohortStore.ListRuns(ctx)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}
			for _, info := range runs {
				fmt.Printf("%s  %s  subjects=%d intervention=%d seed=%d  %s\n",
					info.ID, info.Mode, info.Subjects, info.Intervention,
					info.Seed, info.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
