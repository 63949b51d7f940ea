package datasource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

var csvTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "20060102"}

// CsvTime accepts the timestamp formats commonly found in exported bar files, or unix seconds.
type CsvTime struct {
	time.Time
}

func (t *CsvTime) UnmarshalCSV(value string) error {
	value = strings.TrimSpace(value)

	for _, layout := range csvTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		t.Time = time.Unix(seconds, 0).UTC()
		return nil
	}

	return fmt.Errorf("CsvTime: unsupported timestamp %q", value)
}

func (t CsvTime) MarshalCSV() (string, error) {
	return t.Format(time.RFC3339), nil
}

// CsvBar is one row of a <SYMBOL>.csv file.
type CsvBar struct {
	Time   CsvTime `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// CsvDataSource reads one file per symbol from a directory.
type CsvDataSource struct {
	dir string
}

func (s *CsvDataSource) path(symbol eventmodels.StockSymbol) string {
	return filepath.Join(s.dir, symbol.String()+".csv")
}

func (s *CsvDataSource) ReadTicks(ctx context.Context, symbol eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) ([]models.Tick, error) {
	path := s.path(symbol)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("CsvDataSource.ReadTicks: %w: %s", ErrSymbolNotFound, path)
		}

		return nil, fmt.Errorf("CsvDataSource.ReadTicks: %w", err)
	}
	defer f.Close()

	var bars []*CsvBar
	if err := gocsv.UnmarshalFile(f, &bars); err != nil {
		return nil, fmt.Errorf("CsvDataSource.ReadTicks: failed to parse %s: %w", path, err)
	}

	ticks := make([]models.Tick, 0, len(bars))
	for _, bar := range bars {
		tick := models.NewTick(symbol, bar.Time.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, tradeType)
		if !tick.Within(start, end) {
			continue
		}

		ticks = append(ticks, tick)
	}

	log.Debugf("read %d of %d bars from %s", len(ticks), len(bars), path)

	return ticks, nil
}

// WriteCsvBars writes ticks in the layout CsvDataSource reads.
func WriteCsvBars(dir string, symbol eventmodels.StockSymbol, ticks []models.Tick) error {
	bars := make([]*CsvBar, len(ticks))
	for i, t := range ticks {
		bars[i] = &CsvBar{
			Time:   CsvTime{Time: t.Timestamp},
			Open:   t.Open,
			High:   t.High,
			Low:    t.Low,
			Close:  t.Close,
			Volume: t.Volume,
		}
	}

	f, err := os.Create(filepath.Join(dir, symbol.String()+".csv"))
	if err != nil {
		return fmt.Errorf("WriteCsvBars: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&bars, f); err != nil {
		return fmt.Errorf("WriteCsvBars: %w", err)
	}

	return nil
}

func NewCsvDataSource(dir string) *CsvDataSource {
	return &CsvDataSource{dir: dir}
}

func newCsvDataSource(params Params) (DataSource, error) {
	if params.DB == "" {
		return nil, ErrMissingDB
	}

	info, err := os.Stat(params.DB)
	if err != nil {
		return nil, fmt.Errorf("newCsvDataSource: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("newCsvDataSource: %s is not a directory", params.DB)
	}

	return NewCsvDataSource(params.DB), nil
}
