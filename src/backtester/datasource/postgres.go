package datasource

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/dbutils"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// PostgresDataSource reads bars from the ticks table.
type PostgresDataSource struct {
	db *gorm.DB
}

func (s *PostgresDataSource) ReadTicks(ctx context.Context, symbol eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) ([]models.Tick, error) {
	query := s.db.WithContext(ctx).Where("symbol = ?", symbol.String())

	if !start.IsZero() {
		query = query.Where("timestamp >= ?", start)
	}

	var records []models.TickRecord
	if err := query.Order("timestamp asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("PostgresDataSource.ReadTicks: %s: %w", symbol, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("PostgresDataSource.ReadTicks: %w: %s", ErrSymbolNotFound, symbol)
	}

	ticks := make([]models.Tick, 0, len(records))
	for _, r := range records {
		tick := r.ToTick(tradeType)
		if !tick.Within(start, end) {
			continue
		}

		ticks = append(ticks, tick)
	}

	return ticks, nil
}

func (s *PostgresDataSource) Close() error {
	return dbutils.Close(s.db)
}

func NewPostgresDataSource(db *gorm.DB) *PostgresDataSource {
	return &PostgresDataSource{db: db}
}

func newPostgresDataSource(params Params) (DataSource, error) {
	if params.DB == "" {
		return nil, ErrMissingDB
	}

	db, err := dbutils.InitPostgresWithUrl(params.DB)
	if err != nil {
		return nil, fmt.Errorf("newPostgresDataSource: %w", err)
	}

	return NewPostgresDataSource(db), nil
}
