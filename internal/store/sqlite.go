package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cyclewise/cohortgen/internal/cohort"
	"github.com/cyclewise/cohortgen/internal/models"
)

// DBFileName is the database file created inside the output directory.
const DBFileName = "cohort.db"

// RunInfo describes a persisted run.
type RunInfo struct {
	ID                     string            `json:"id"`
	Seed                   uint64            `json:"seed"`
	Mode                   cohort.Mode       `json:"mode"`
	Subjects               int               `json:"subjects"`
	Intervention           int               `json:"intervention"`
	ObservationsPerSubject int               `json:"observations_per_subject"`
	ReferenceDate          time.Time         `json:"reference_date"`
	CheckpointAt           int               `json:"checkpoint_at"`
	Directives             cohort.Directives `json:"directives,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
}

// StoredRun is a run loaded back from the database, with its records in
// emission order.
type StoredRun struct {
	Info    RunInfo         `json:"info"`
	Records []cohort.Record `json:"records"`
}

// SQLiteCohortStore persists runs to cohort.db in the output directory.
// SQLite works best with a single writer, so the pool is capped at one
// connection.
type SQLiteCohortStore struct {
	db  *sql.DB
	dir string
}

// NewSQLiteCohortStore opens (creating if needed) the database under dir.
func NewSQLiteCohortStore(dir string) (*SQLiteCohortStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteCohortStore{db: db, dir: dir}, nil
}

// Close closes the underlying database.
func (s *SQLiteCohortStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run and all its observations in one transaction.
func (s *SQLiteCohortStore) SaveRun(ctx context.Context, result *cohort.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	directivesJSON, err := json.Marshal(result.Directives)
	if err != nil {
		return fmt.Errorf("marshaling directives: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seed, mode, subjects, intervention,
			observations_per_subject, reference_date, checkpoint_at, directives, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		int64(result.Config.Seed),
		string(result.Config.Mode),
		result.Config.Subjects,
		result.Config.Intervention,
		result.Config.ObservationsPerSubject,
		result.Config.ReferenceDate.Format(time.RFC3339),
		result.CheckpointAt,
		string(directivesJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", result.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (response_id, run_id, seq, subject_id, authored, lmp, phase,
			age, years_since_diagnosis, delivery_method, cycle_regularity, intervention,
			basal_insulin, nighttime_glucose, sleep_awakenings,
			night_sweats, dizziness, palpitations, fatigue, narrative)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing observation insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range result.Records {
		obs, subject := r.Observation, r.Subject
		_, err := stmt.ExecContext(ctx,
			obs.ResponseID(),
			result.RunID,
			obs.Seq,
			subject.ID,
			obs.Authored.Format(time.RFC3339),
			obs.LMP.Format("2006-01-02"),
			string(obs.Phase),
			subject.Age,
			subject.YearsSinceDiagnosis,
			subject.DeliveryMethod,
			subject.CycleRegularity,
			boolToInt(subject.Intervention),
			obs.BasalInsulin,
			obs.NighttimeGlucose,
			obs.SleepAwakenings,
			boolToInt(obs.HasSymptom(models.SymptomNightSweats)),
			boolToInt(obs.HasSymptom(models.SymptomDizziness)),
			boolToInt(obs.HasSymptom(models.SymptomPalpitations)),
			boolToInt(obs.HasSymptom(models.SymptomFatigue)),
			obs.Narrative,
		)
		if err != nil {
			return fmt.Errorf("inserting observation %s: %w", obs.ResponseID(), err)
		}
	}

	return tx.Commit()
}

// LoadRun reads one run and its observations back, in emission order.
func (s *SQLiteCohortStore) LoadRun(ctx context.Context, runID string) (*StoredRun, error) {
	info, err := s.runInfo(ctx, `SELECT id, seed, mode, subjects, intervention,
		observations_per_subject, reference_date, checkpoint_at, directives, created_at
		FROM runs WHERE id = ?`, runID)
	if err != nil {
		return nil, err
	}
	return s.loadRecords(ctx, info)
}

// LatestRun loads the most recently saved run.
func (s *SQLiteCohortStore) LatestRun(ctx context.Context) (*StoredRun, error) {
	info, err := s.runInfo(ctx, `SELECT id, seed, mode, subjects, intervention,
		observations_per_subject, reference_date, checkpoint_at, directives, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	return s.loadRecords(ctx, info)
}

// ListRuns returns run metadata for all persisted runs, newest first.
func (s *SQLiteCohortStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, seed, mode, subjects, intervention,
		observations_per_subject, reference_date, checkpoint_at, directives, created_at
		FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteCohortStore) runInfo(ctx context.Context, query string, args ...any) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	info, err := scanRunInfo(row)
	if err == sql.ErrNoRows {
		return RunInfo{}, fmt.Errorf("no matching run found")
	}
	return info, err
}

func scanRunInfo(row rowScanner) (RunInfo, error) {
	var info RunInfo
	var seed int64
	var mode, refDate, directives, createdAt string
	if err := row.Scan(&info.ID, &seed, &mode, &info.Subjects, &info.Intervention,
		&info.ObservationsPerSubject, &refDate, &info.CheckpointAt, &directives, &createdAt); err != nil {
		return RunInfo{}, err
	}
	info.Seed = uint64(seed)
	info.Mode = cohort.Mode(mode)

	var err error
	if info.ReferenceDate, err = time.Parse(time.RFC3339, refDate); err != nil {
		return RunInfo{}, fmt.Errorf("parsing reference date: %w", err)
	}
	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return RunInfo{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if directives != "" {
		if err := json.Unmarshal([]byte(directives), &info.Directives); err != nil {
			return RunInfo{}, fmt.Errorf("parsing directives: %w", err)
		}
	}
	return info, nil
}

func (s *SQLiteCohortStore) loadRecords(ctx context.Context, info RunInfo) (*StoredRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, subject_id, authored, lmp, phase,
		age, years_since_diagnosis, delivery_method, cycle_regularity, intervention,
		basal_insulin, nighttime_glucose, sleep_awakenings,
		night_sweats, dizziness, palpitations, fatigue, narrative
		FROM observations WHERE run_id = ? ORDER BY seq`, info.ID)
	if err != nil {
		return nil, fmt.Errorf("querying observations for run %s: %w", info.ID, err)
	}
	defer rows.Close()

	run := &StoredRun{Info: info}
	subjects := make(map[string]*models.Subject)

	for rows.Next() {
		var (
			obs                 models.Observation
			authored, lmp       string
			phase               string
			age, years          int
			delivery, reg       string
			intervention        int
			sweats, dizzy       int
			palpitations, tired int
		)
		if err := rows.Scan(&obs.Seq, &obs.SubjectID, &authored, &lmp, &phase,
			&age, &years, &delivery, &reg, &intervention,
			&obs.BasalInsulin, &obs.NighttimeGlucose, &obs.SleepAwakenings,
			&sweats, &dizzy, &palpitations, &tired, &obs.Narrative); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}

		if obs.Authored, err = time.Parse(time.RFC3339, authored); err != nil {
			return nil, fmt.Errorf("parsing authored date: %w", err)
		}
		if obs.LMP, err = time.Parse("2006-01-02", lmp); err != nil {
			return nil, fmt.Errorf("parsing LMP date: %w", err)
		}
		obs.Phase = models.Phase(phase)
		obs.Symptoms = symptomList(sweats, dizzy, palpitations, tired)

		subject, ok := subjects[obs.SubjectID]
		if !ok {
			subject = &models.Subject{
				ID:                  obs.SubjectID,
				Age:                 age,
				YearsSinceDiagnosis: years,
				DeliveryMethod:      delivery,
				CycleRegularity:     reg,
				Intervention:        intervention != 0,
			}
			subjects[obs.SubjectID] = subject
		}

		o := obs
		run.Records = append(run.Records, cohort.Record{Subject: subject, Observation: &o})
	}
	return run, rows.Err()
}

func symptomList(sweats, dizzy, palpitations, tired int) []string {
	var symptoms []string
	if sweats != 0 {
		symptoms = append(symptoms, models.SymptomNightSweats)
	}
	if dizzy != 0 {
		symptoms = append(symptoms, models.SymptomDizziness)
	}
	if palpitations != 0 {
		symptoms = append(symptoms, models.SymptomPalpitations)
	}
	if tired != 0 {
		symptoms = append(symptoms, models.SymptomFatigue)
	}
	return symptoms
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
