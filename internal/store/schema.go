// Package store persists generation runs: a SQLite database for querying,
// per-response FHIR JSON files, and a columnar Arrow export for analysis.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
-- One row per generation run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    seed INTEGER NOT NULL,
    mode TEXT NOT NULL,
    subjects INTEGER NOT NULL,
    intervention INTEGER NOT NULL,
    observations_per_subject INTEGER NOT NULL,
    reference_date TEXT NOT NULL,
    checkpoint_at INTEGER NOT NULL,
    directives TEXT,  -- JSON, the frozen correction set
    created_at TEXT NOT NULL
);

-- One row per emitted observation (subject columns denormalized so a run can
-- be validated with a single scan)
CREATE TABLE IF NOT EXISTS observations (
    response_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    subject_id TEXT NOT NULL,
    authored TEXT NOT NULL,
    lmp TEXT NOT NULL,
    phase TEXT NOT NULL,

    age INTEGER NOT NULL,
    years_since_diagnosis INTEGER NOT NULL,
    delivery_method TEXT NOT NULL,
    cycle_regularity TEXT NOT NULL,
    intervention INTEGER NOT NULL,

    basal_insulin REAL NOT NULL,
    nighttime_glucose REAL NOT NULL,
    sleep_awakenings INTEGER NOT NULL,
    night_sweats INTEGER NOT NULL DEFAULT 0,
    dizziness INTEGER NOT NULL DEFAULT 0,
    palpitations INTEGER NOT NULL DEFAULT 0,
    fatigue INTEGER NOT NULL DEFAULT 0,
    narrative TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_run ON observations(run_id, seq);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InitSchema creates the schema if it does not exist and records the version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}
