package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/tick-backtester/src/backtester/datasource"
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/backtester/saver"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/eventpubsub"
)

const tickFeederName = "TickFeeder"

// TickFeeder replays the ticks of a run in global timestamp order.
// Every tick goes into the history buffer before it is published, so a strategy can look it up.
type TickFeeder struct {
	bus            *eventpubsub.Bus
	source         datasource.DataSource
	history        *models.History
	auditor        saver.TickAuditor
	symbols        []eventmodels.StockSymbol
	indexSymbol    eventmodels.StockSymbol
	start          time.Time
	end            time.Time
	tradeType      models.TradeType
	indexPositions []models.PositionSnapshot
	published      uint
}

// SetIndexSymbol sets the benchmark. Its ticks become the index position series and are not delivered to the strategy.
func (f *TickFeeder) SetIndexSymbol(symbol eventmodels.StockSymbol) {
	f.indexSymbol = symbol
}

// SetAuditor forwards every published tick to auditor.
func (f *TickFeeder) SetAuditor(auditor saver.TickAuditor) {
	f.auditor = auditor
}

func (f *TickFeeder) loadIndex(ctx context.Context) error {
	if f.indexSymbol == "" {
		return nil
	}

	ticks, err := f.source.ReadTicks(ctx, f.indexSymbol, f.start, f.end, f.tradeType)
	if err != nil {
		return fmt.Errorf("failed to read index %s: %w", f.indexSymbol, err)
	}

	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})

	f.indexPositions = make([]models.PositionSnapshot, 0, len(ticks))
	for _, t := range ticks {
		if !t.Within(f.start, f.end) {
			continue
		}

		f.indexPositions = append(f.indexPositions, models.PositionSnapshot{Timestamp: t.Timestamp, Value: t.Price})
	}

	return nil
}

// Execute reads every symbol, then publishes the merged stream. It stops early when ctx ends.
func (f *TickFeeder) Execute(ctx context.Context) error {
	ctx, span := otel.Tracer(tickFeederName).Start(ctx, "TickFeeder.Execute")
	defer span.End()

	streams := make([][]models.Tick, 0, len(f.symbols))
	for _, symbol := range f.symbols {
		ticks, err := f.source.ReadTicks(ctx, symbol, f.start, f.end, f.tradeType)
		if err != nil {
			return fmt.Errorf("TickFeeder.Execute: failed to read %s: %w", symbol, err)
		}

		streams = append(streams, ticks)
	}

	if err := f.loadIndex(ctx); err != nil {
		return fmt.Errorf("TickFeeder.Execute: %w", err)
	}

	it := NewTickIterator(streams)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("TickFeeder.Execute: stopped after %d ticks: %w", f.published, err)
		}

		tick := it.Item()
		if !tick.Within(f.start, f.end) {
			continue
		}

		f.history.Append(tick)
		f.bus.Publish(eventpubsub.TopicTick, tick)
		f.published++

		if f.auditor != nil {
			if err := f.auditor.AuditTick(tick); err != nil {
				log.WithError(err).Warnf("%s: failed to audit %s", tickFeederName, tick)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("ticks", int(f.published)),
		attribute.Int("index_ticks", len(f.indexPositions)),
	)

	log.Debugf("%s: published %d ticks for %v", tickFeederName, f.published, f.symbols)

	return nil
}

// Complete signals that no more ticks follow.
func (f *TickFeeder) Complete() {
	f.bus.Publish(eventpubsub.TopicFeedComplete, models.FeedCompleteEvent{
		Ticks:      f.published,
		IndexTicks: uint(len(f.indexPositions)),
	})
}

func (f *TickFeeder) IndexPositions() []models.PositionSnapshot {
	return f.indexPositions
}

func (f *TickFeeder) Published() uint {
	return f.published
}

func uniqueSymbols(symbols []eventmodels.StockSymbol) []eventmodels.StockSymbol {
	seen := make(map[eventmodels.StockSymbol]struct{}, len(symbols))
	result := make([]eventmodels.StockSymbol, 0, len(symbols))

	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		result = append(result, s)
	}

	return result
}

func NewTickFeeder(bus *eventpubsub.Bus, source datasource.DataSource, history *models.History, symbols []eventmodels.StockSymbol, start, end time.Time, tradeType models.TradeType) *TickFeeder {
	return &TickFeeder{
		bus:       bus,
		source:    source,
		history:   history,
		symbols:   uniqueSymbols(symbols),
		start:     start,
		end:       end,
		tradeType: tradeType,
	}
}
