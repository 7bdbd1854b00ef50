// Package duckdb stores quantification results in a DuckDB database for
// ad hoc analysis across runs.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/ChrisMcGann/CitFinder/pkg/quant"
)

// Store manages a DuckDB connection holding quantification results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS quantification_results (
		run_id VARCHAR,
		protein VARCHAR,
		sequence VARCHAR,
		cit_xic DOUBLE,
		arg_xic DOUBLE,
		cit_percent DOUBLE,
		provenance VARCHAR,
		cit_file VARCHAR,
		arg_file VARCHAR,
		cit_rt DOUBLE,
		arg_rt DOUBLE,
		cit_charge BIGINT,
		arg_charge BIGINT,
		cit_spectrum_id BIGINT,
		arg_spectrum_id BIGINT,
		score DOUBLE,
		match_score DOUBLE
	)`)
	return err
}

// WriteResults batch-inserts the results of one run using the Appender API.
// Undefined percentages are stored as NULL.
func (s *Store) WriteResults(runID string, results []quant.Result) error {
	if len(results) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "quantification_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range results {
		var percent any
		if r.PercentDefined {
			percent = r.CitPercent
		}
		if err := appender.AppendRow(
			runID, r.Protein, r.Sequence,
			r.CitXIC, r.ArgXIC, percent, r.Provenance.String(),
			r.CitFileName, r.ArgFileName, r.CitRetentionTime, r.ArgRetentionTime,
			int64(r.CitCharge), int64(r.ArgCharge),
			int64(r.CitSpectrumID), int64(r.ArgSpectrumID),
			r.Score, r.MatchScore,
		); err != nil {
			return fmt.Errorf("append quantification result: %w", err)
		}
	}

	return appender.Flush()
}

// CountResults returns the number of stored results of a run.
func (s *Store) CountResults(runID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM quantification_results WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// ClearRun removes the stored results of a run.
func (s *Store) ClearRun(runID string) error {
	_, err := s.db.Exec("DELETE FROM quantification_results WHERE run_id = ?", runID)
	return err
}
