package saver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/dbutils"
)

const maxTableNameLength = 63

var tableNameReplacer = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName turns a result name into a postgres identifier.
func TableName(db string) string {
	name := tableNameReplacer.ReplaceAllString(strings.ToLower(db), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "r_" + name
	}

	if len(name) > maxTableNameLength {
		name = name[:maxTableNameLength]
	}

	return name
}

// PostgresSaver writes each run's metrics to a table named after the run.
type PostgresSaver struct {
	mutex   sync.Mutex
	db      *gorm.DB
	table   string
	pending []models.MetricsRecord
}

func (s *PostgresSaver) Table() string {
	return s.table
}

func (s *PostgresSaver) WriteMetrics(ctx context.Context, record models.MetricsRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pending = append(s.pending, record)
	return nil
}

func (s *PostgresSaver) Commit(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Table(s.table).Create(&s.pending).Error; err != nil {
		return fmt.Errorf("PostgresSaver.Commit: %s: %w", s.table, err)
	}

	s.pending = nil

	return nil
}

func (s *PostgresSaver) ReadMetrics(ctx context.Context) ([]models.MetricsRecord, error) {
	var records []models.MetricsRecord
	if err := s.db.WithContext(ctx).Table(s.table).Order("start_time asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("PostgresSaver.ReadMetrics: %s: %w", s.table, err)
	}

	return records, nil
}

func (s *PostgresSaver) Close() error {
	return dbutils.Close(s.db)
}

func NewPostgresSaver(db *gorm.DB, name string) (*PostgresSaver, error) {
	table := TableName(name)
	if err := dbutils.MigrateMetrics(db, table); err != nil {
		return nil, err
	}

	return &PostgresSaver{db: db, table: table}, nil
}

func newPostgresSaver(params Params) (StateSaver, error) {
	if params.DSN == "" {
		return nil, ErrMissingDSN
	}

	db, err := dbutils.InitPostgresWithUrl(params.DSN)
	if err != nil {
		return nil, fmt.Errorf("newPostgresSaver: %w", err)
	}

	s, err := NewPostgresSaver(db, params.DB)
	if err != nil {
		return nil, fmt.Errorf("newPostgresSaver: %w", errors.Join(err, dbutils.Close(db)))
	}

	return s, nil
}
