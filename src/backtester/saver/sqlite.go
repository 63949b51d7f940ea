package saver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	min_value REAL NOT NULL,
	max_value REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	r_squared REAL NOT NULL,
	end_value REAL NOT NULL,
	holdings TEXT NOT NULL
)`

// SqliteSaver stores metrics in the metrics table of <db>.sqlite.
type SqliteSaver struct {
	mutex   sync.Mutex
	db      *sql.DB
	path    string
	pending []models.MetricsRecord
}

func (s *SqliteSaver) WriteMetrics(ctx context.Context, record models.MetricsRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pending = append(s.pending, record)
	return nil
}

func (s *SqliteSaver) Commit(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SqliteSaver.Commit: begin: %w", err)
	}

	for _, r := range s.pending {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO metrics (start_time, end_time, min_value, max_value, sharpe_ratio, max_drawdown, r_squared, end_value, holdings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.StartTime.UTC().Format(time.RFC3339Nano), r.EndTime.UTC().Format(time.RFC3339Nano),
			r.MinValue, r.MaxValue, r.SharpeRatio, r.MaxDrawdown, r.RSquared, r.EndValue, r.Holdings)
		if err != nil {
			return fmt.Errorf("SqliteSaver.Commit: insert: %w", errors.Join(err, tx.Rollback()))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SqliteSaver.Commit: %w", err)
	}

	log.Debugf("committed %d metrics rows to %s", len(s.pending), s.path)
	s.pending = nil

	return nil
}

func (s *SqliteSaver) ReadMetrics(ctx context.Context) ([]models.MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_time, end_time, min_value, max_value, sharpe_ratio, max_drawdown, r_squared, end_value, holdings
		FROM metrics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("SqliteSaver.ReadMetrics: %w", err)
	}
	defer rows.Close()

	var records []models.MetricsRecord
	for rows.Next() {
		var r models.MetricsRecord
		var start, end string

		if err := rows.Scan(&start, &end, &r.MinValue, &r.MaxValue, &r.SharpeRatio, &r.MaxDrawdown, &r.RSquared, &r.EndValue, &r.Holdings); err != nil {
			return nil, fmt.Errorf("SqliteSaver.ReadMetrics: scan: %w", err)
		}

		if r.StartTime, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("SqliteSaver.ReadMetrics: start_time: %w", err)
		}

		if r.EndTime, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, fmt.Errorf("SqliteSaver.ReadMetrics: end_time: %w", err)
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

func (s *SqliteSaver) Close() error {
	return s.db.Close()
}

// NewSqliteSaver opens, and creates if needed, the database at path.
func NewSqliteSaver(path string) (*SqliteSaver, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("create metrics table: %w", errors.Join(err, db.Close()))
	}

	return &SqliteSaver{db: db, path: path}, nil
}

func newSqliteSaver(params Params) (StateSaver, error) {
	if params.DB == "" {
		return nil, ErrMissingDB
	}

	return NewSqliteSaver(params.DB + ".sqlite")
}
