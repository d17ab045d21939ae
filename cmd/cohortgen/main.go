package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyclewise/cohortgen/internal/params"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cohortgen",
		Short: "Synthetic clinical cohort generator with adaptive statistical correction",
		Long: `cohortgen generates synthetic FHIR QuestionnaireResponse cohorts for a
menstrual-cycle study of women with Type 1 Diabetes.

Generation runs in two passes: a free sampling pass, a single checkpoint that
compares running statistics against the population targets, and a corrected
pass that steers the remaining records so the full cohort lands within
tolerance. Runs are reproducible from their seed.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("out", "output", "Output directory for the cohort database and exports")
	rootCmd.PersistentFlags().String("params", "", "YAML file overriding the default population parameters")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (info, debug, trace)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newValidateCmd(),
		newStatsCmd(),
		newRunsCmd(),
		newExportCmd(),
		newParamsCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("cohortgen version %s\n", version)
			}
		},
	}
}

// loadParams resolves the effective population parameters for a command.
func loadParams(cmd *cobra.Command) (*params.Parameters, error) {
	path, _ := cmd.Flags().GetString("params")
	if path == "" {
		return params.Default(), nil
	}
	p, err := params.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters in %s: %w", path, err)
	}
	return p, nil
}
