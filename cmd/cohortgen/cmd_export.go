package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyclewise/cohortgen/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a persisted run as FHIR JSON files or an Arrow IPC file",
		RunE:  runExport,
	}

	cmd.Flags().String("run", "", "Run ID to export (default: latest run)")
	cmd.Flags().String("format", "fhir", "Export format: fhir or arrow")
	cmd.Flags().String("path", "", "Destination (default: <out>/responses or <out>/cohort.arrow)")
	cmd.Flags().Bool("clean", true, "Remove stale JSON files from the destination first (fhir only)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	outDir, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("path")
	clean, _ := cmd.Flags().GetBool("clean")

	run, err := loadStoredRun(cmd)
	if err != nil {
		return err
	}

	switch format {
	case "fhir":
		if path == "" {
			path = filepath.Join(outDir, "responses")
		}
		if err := store.ExportJSON(path, run.Records, clean); err != nil {
			return err
		}
	case "arrow":
		if path == "" {
			path = filepath.Join(outDir, "cohort.arrow")
		}
		if err := store.ExportArrow(path, run.Records); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want fhir or arrow)", format)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"run_id":  run.Info.ID,
			"format":  format,
			"path":    path,
			"records": len(run.Records),
		})
	}
	fmt.Printf("Exported %d records from run %s to %s\n", len(run.Records), run.Info.ID, path)
	return nil
}
