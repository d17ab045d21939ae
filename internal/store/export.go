package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclewise/cohortgen/internal/cohort"
	"github.com/cyclewise/cohortgen/internal/fhir"
)

// ExportJSON writes one FHIR QuestionnaireResponse file per record into dir,
// named response-<subject>-obs-<seq>.json. When clean is set, existing JSON
// files in dir are removed first so the directory always reflects exactly one
// run.
func ExportJSON(dir string, records []cohort.Record, clean bool) error {
	if clean {
		if err := CleanJSON(dir); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	for _, r := range records {
		response := fhir.BuildResponse(r.Subject, r.Observation)
		path := filepath.Join(dir, response.ID+".json")
		if err := response.WriteFile(path); err != nil {
			return err
		}
	}
	return nil
}

// CleanJSON removes all JSON files from dir. A missing directory is fine.
func CleanJSON(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("globbing export directory: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("removing %s: %w", m, err)
		}
	}
	return nil
}
