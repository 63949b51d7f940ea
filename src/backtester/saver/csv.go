package saver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// TickRow is one audited tick in <db>_ticks.csv.
type TickRow struct {
	Symbol    eventmodels.StockSymbol `csv:"symbol"`
	Timestamp time.Time               `csv:"timestamp"`
	Open      float64                 `csv:"open"`
	High      float64                 `csv:"high"`
	Low       float64                 `csv:"low"`
	Close     float64                 `csv:"close"`
	Volume    float64                 `csv:"volume"`
	Price     float64                 `csv:"price"`
}

// CsvSaver writes metrics to <db>.csv and audited ticks to <db>_ticks.csv on commit.
type CsvSaver struct {
	mutex   sync.Mutex
	db      string
	metrics []*models.MetricsRecord
	ticks   []*TickRow
}

func (s *CsvSaver) MetricsPath() string {
	return s.db + ".csv"
}

func (s *CsvSaver) TicksPath() string {
	return s.db + "_ticks.csv"
}

func (s *CsvSaver) WriteMetrics(ctx context.Context, record models.MetricsRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metrics = append(s.metrics, &record)
	return nil
}

func (s *CsvSaver) AuditTick(tick models.Tick) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ticks = append(s.ticks, &TickRow{
		Symbol:    tick.Symbol,
		Timestamp: tick.Timestamp,
		Open:      tick.Open,
		High:      tick.High,
		Low:       tick.Low,
		Close:     tick.Close,
		Volume:    tick.Volume,
		Price:     tick.Price,
	})

	return nil
}

func writeCsv[T any](path string, rows []*T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}

func (s *CsvSaver) Commit(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.db), 0o755); err != nil {
		return fmt.Errorf("CsvSaver.Commit: %w", err)
	}

	if err := writeCsv(s.MetricsPath(), s.metrics); err != nil {
		return fmt.Errorf("CsvSaver.Commit: failed to write %s: %w", s.MetricsPath(), err)
	}

	if len(s.ticks) > 0 {
		if err := writeCsv(s.TicksPath(), s.ticks); err != nil {
			return fmt.Errorf("CsvSaver.Commit: failed to write %s: %w", s.TicksPath(), err)
		}
	}

	return nil
}

func (s *CsvSaver) ReadMetrics(ctx context.Context) ([]models.MetricsRecord, error) {
	f, err := os.Open(s.MetricsPath())
	if err != nil {
		return nil, fmt.Errorf("CsvSaver.ReadMetrics: %w", err)
	}
	defer f.Close()

	var rows []*models.MetricsRecord
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("CsvSaver.ReadMetrics: %w", err)
	}

	records := make([]models.MetricsRecord, len(rows))
	for i, row := range rows {
		records[i] = *row
	}

	return records, nil
}

func NewCsvSaver(db string) *CsvSaver {
	return &CsvSaver{db: db}
}

func newCsvSaver(params Params) (StateSaver, error) {
	if params.DB == "" {
		return nil, ErrMissingDB
	}

	return NewCsvSaver(params.DB), nil
}
