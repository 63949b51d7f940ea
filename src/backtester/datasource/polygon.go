package datasource

import (
	"context"
	"fmt"
	"os"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polygon_models "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/utils"
)

const polygonFetchAttempts = 3

// PolygonDataSource fetches adjusted daily aggregates from the polygon.io REST API.
type PolygonDataSource struct {
	client *polygon.Client
}

func (s *PolygonDataSource) fetch(ctx context.Context, symbol eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) ([]models.Tick, error) {
	params := polygon_models.ListAggsParams{
		Ticker:     symbol.String(),
		Multiplier: 1,
		Timespan:   polygon_models.Timespan("day"),
		From:       polygon_models.Millis(start),
		To:         polygon_models.Millis(end),
	}.WithOrder(polygon_models.Asc).WithAdjusted(true)

	iter := s.client.ListAggs(ctx, params)

	var ticks []models.Tick
	for iter.Next() {
		agg := iter.Item()
		ticks = append(ticks, models.NewTick(symbol, time.Time(agg.Timestamp).UTC(), agg.Open, agg.High, agg.Low, agg.Close, agg.Volume, tradeType))
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return ticks, nil
}

func (s *PolygonDataSource) ReadTicks(ctx context.Context, symbol eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) ([]models.Tick, error) {
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}

	if end.IsZero() {
		end = time.Now().UTC()
	}

	log.Debugf("fetching polygon aggregates for %s from %s to %s", symbol, start.Format(time.DateOnly), end.Format(time.DateOnly))

	ticks, err := utils.FetchWithBackoff(ctx, "PolygonDataSource.ReadTicks", polygonFetchAttempts, func(ctx context.Context) ([]models.Tick, error) {
		return s.fetch(ctx, symbol, start, end, tradeType)
	})
	if err != nil {
		return nil, fmt.Errorf("PolygonDataSource.ReadTicks: %s: %w", symbol, err)
	}

	return ticks, nil
}

func NewPolygonDataSource(apiKey string) *PolygonDataSource {
	return &PolygonDataSource{
		client: polygon.New(apiKey),
	}
}

func newPolygonDataSource(params Params) (DataSource, error) {
	apiKey := params.DB
	if apiKey == "" {
		apiKey = os.Getenv("POLYGON_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("newPolygonDataSource: %w: set input_db or $POLYGON_API_KEY", ErrMissingDB)
	}

	return NewPolygonDataSource(apiKey), nil
}
