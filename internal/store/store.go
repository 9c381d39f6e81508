// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store archives completed research runs in a SQLite database:
// one row per run, one row per populated profile field, one row per cycle
// of search history. Saved runs can be listed, reloaded, and exported.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/person-researcher/pkg/types"
)

const defaultDBPath = "runs/research.db"

// Store manages the run archive database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the archive database, creating the schema and
// any missing parent directories.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			seed TEXT NOT NULL,
			complete INTEGER NOT NULL,
			canceled INTEGER NOT NULL,
			cycles INTEGER NOT NULL,
			missing_fields TEXT,
			reasoning TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS fields (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			field TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence REAL NOT NULL,
			cycle INTEGER NOT NULL,
			sources TEXT,
			status TEXT NOT NULL,
			alternates TEXT,
			PRIMARY KEY (run_id, field)
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			cycle INTEGER NOT NULL,
			queries TEXT,
			results TEXT,
			failures TEXT,
			PRIMARY KEY (run_id, cycle)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun archives one run result. Saving the same run ID again replaces
// the previous record.
func (s *Store) SaveRun(ctx context.Context, result *types.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seedJSON, err := json.Marshal(result.Seed)
	if err != nil {
		return fmt.Errorf("marshaling seed: %w", err)
	}
	missingJSON, _ := json.Marshal(result.Verdict.MissingFields)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, seed, complete, canceled, cycles, missing_fields, reasoning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			created_at=excluded.created_at, seed=excluded.seed,
			complete=excluded.complete, canceled=excluded.canceled,
			cycles=excluded.cycles, missing_fields=excluded.missing_fields,
			reasoning=excluded.reasoning`,
		result.RunID, time.Now().UTC().Format(time.RFC3339Nano), string(seedJSON),
		boolInt(result.Verdict.Complete), boolInt(result.Canceled), result.Cycles,
		string(missingJSON), result.Verdict.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	// Replace dependent rows wholesale on re-save.
	for _, table := range []string{"fields", "history"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, result.RunID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fields (run_id, field, value, confidence, cycle, sources, status, alternates)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing field insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range result.Profile.Populated() {
		fv := result.Profile[name]
		sourcesJSON, _ := json.Marshal(fv.Provenance.Sources)
		alternatesJSON, _ := json.Marshal(fv.Provenance.Alternates)
		_, err := stmt.ExecContext(ctx,
			result.RunID, string(name), fv.Value, fv.Confidence,
			fv.Provenance.Cycle, string(sourcesJSON),
			string(fv.Provenance.Status), string(alternatesJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting field %s: %w", name, err)
		}
	}

	for _, rec := range result.History {
		queriesJSON, _ := json.Marshal(rec.Queries)
		resultsJSON, _ := json.Marshal(rec.Results)
		failuresJSON, _ := json.Marshal(rec.Failures)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO history (run_id, cycle, queries, results, failures) VALUES (?, ?, ?, ?, ?)`,
			result.RunID, rec.Cycle, string(queriesJSON), string(resultsJSON), string(failuresJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting history cycle %d: %w", rec.Cycle, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one archived run as listed.
type RunSummary struct {
	ID        string     `json:"id" yaml:"id"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	Seed      types.Seed `json:"seed" yaml:"seed"`
	Complete  bool       `json:"complete" yaml:"complete"`
	Canceled  bool       `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	Cycles    int        `json:"cycles" yaml:"cycles"`
	Fields    int        `json:"fields" yaml:"fields"`
}

// ListRuns returns summaries of every archived run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.created_at, r.seed, r.complete, r.canceled, r.cycles,
			(SELECT count(*) FROM fields f WHERE f.run_id = r.id)
		 FROM runs r ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			sum                RunSummary
			createdAt, seedStr string
			complete, canceled int
		)
		if err := rows.Scan(&sum.ID, &createdAt, &seedStr, &complete, &canceled, &sum.Cycles, &sum.Fields); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		sum.Complete = complete != 0
		sum.Canceled = canceled != 0
		if err := json.Unmarshal([]byte(seedStr), &sum.Seed); err != nil {
			return nil, fmt.Errorf("parsing seed for run %s: %w", sum.ID, err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// GetRun reloads one archived run in full.
func (s *Store) GetRun(ctx context.Context, runID string) (*types.RunResult, error) {
	var (
		seedStr, missingStr, reasoning string
		complete, canceled             int
		cycles                         int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT seed, complete, canceled, cycles, missing_fields, reasoning FROM runs WHERE id = ?`,
		runID,
	).Scan(&seedStr, &complete, &canceled, &cycles, &missingStr, &reasoning)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}

	result := &types.RunResult{
		RunID:    runID,
		Profile:  make(types.Profile),
		Cycles:   cycles,
		Canceled: canceled != 0,
		Verdict: types.ReflectionVerdict{
			Complete:  complete != 0,
			Reasoning: reasoning,
		},
	}
	if err := json.Unmarshal([]byte(seedStr), &result.Seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	if missingStr != "" {
		if err := json.Unmarshal([]byte(missingStr), &result.Verdict.MissingFields); err != nil {
			return nil, fmt.Errorf("parsing missing fields: %w", err)
		}
	}

	if err := s.loadFields(ctx, result); err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) loadFields(ctx context.Context, result *types.RunResult) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value, confidence, cycle, sources, status, alternates
		 FROM fields WHERE run_id = ? ORDER BY field`, result.RunID)
	if err != nil {
		return fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			field, value, sourcesStr, status, alternatesStr string
			confidence                                      float64
			cycle                                           int
		)
		if err := rows.Scan(&field, &value, &confidence, &cycle, &sourcesStr, &status, &alternatesStr); err != nil {
			return fmt.Errorf("scanning field row: %w", err)
		}

		fv := types.FieldValue{
			Value:      value,
			Confidence: confidence,
			Provenance: types.Provenance{
				Cycle:  cycle,
				Status: types.FieldStatus(status),
			},
		}
		if sourcesStr != "" {
			if err := json.Unmarshal([]byte(sourcesStr), &fv.Provenance.Sources); err != nil {
				return fmt.Errorf("parsing sources for %s: %w", field, err)
			}
		}
		if alternatesStr != "" {
			if err := json.Unmarshal([]byte(alternatesStr), &fv.Provenance.Alternates); err != nil {
				return fmt.Errorf("parsing alternates for %s: %w", field, err)
			}
		}
		result.Profile[types.FieldName(field)] = fv
	}
	return rows.Err()
}

func (s *Store) loadHistory(ctx context.Context, result *types.RunResult) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cycle, queries, results, failures FROM history WHERE run_id = ? ORDER BY cycle`,
		result.RunID)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec                                 types.CycleRecord
			queriesStr, resultsStr, failuresStr string
		)
		if err := rows.Scan(&rec.Cycle, &queriesStr, &resultsStr, &failuresStr); err != nil {
			return fmt.Errorf("scanning history row: %w", err)
		}
		for _, pair := range []struct {
			raw string
			out any
		}{
			{queriesStr, &rec.Queries},
			{resultsStr, &rec.Results},
			{failuresStr, &rec.Failures},
		} {
			if pair.raw == "" {
				continue
			}
			if err := json.Unmarshal([]byte(pair.raw), pair.out); err != nil {
				return fmt.Errorf("parsing history cycle %d: %w", rec.Cycle, err)
			}
		}
		result.History = append(result.History, rec)
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
