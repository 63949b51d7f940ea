package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	events "github.com/kataras/go-events"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jiaming2012/tick-backtester/src/backtester/config"
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// BacktesterOptions override the config file. Zero values keep what the file says.
type BacktesterOptions struct {
	StartTickDate  time.Time
	StartTradeDate time.Time
	EndTradeDate   time.Time
	Cash           float64
	SymbolLists    [][]eventmodels.StockSymbol
}

// Backtester runs one backtest per symbol list, strictly one after another.
type Backtester struct {
	mutex         sync.Mutex
	cfg           *config.Config
	opts          BacktesterOptions
	symbolLists   [][]eventmodels.StockSymbol
	metricManager *MetricManager
	accounts      []*models.Account
	reports       []*RunReport
	failed        map[string]error
	emitter       events.EventEmmiter
	isSetup       bool
}

// On registers a listener for a lifecycle event.
func (b *Backtester) On(event events.EventName, listener func(event *RunEvent)) {
	b.emitter.On(event, func(payload ...interface{}) {
		if len(payload) == 0 {
			return
		}

		if e, ok := payload[0].(*RunEvent); ok {
			listener(e)
		}
	})
}

// Setup applies the overrides and loads the symbol lists. Any error is a configuration error and no run starts.
func (b *Backtester) Setup() error {
	b.cfg.Override(b.opts.Cash, b.opts.StartTickDate, b.opts.StartTradeDate, b.opts.EndTradeDate)

	if err := b.cfg.SetupLog(); err != nil {
		return fmt.Errorf("Backtester.Setup: %w", err)
	}

	if err := b.cfg.Validate(); err != nil {
		return fmt.Errorf("Backtester.Setup: %w", err)
	}

	log.Debugf("symbol lists: %v", b.opts.SymbolLists)

	b.symbolLists = b.opts.SymbolLists
	if len(b.symbolLists) == 0 {
		symbolLists, err := b.cfg.LoadSymbolLists()
		if err != nil {
			return fmt.Errorf("Backtester.Setup: %w", err)
		}

		b.symbolLists = symbolLists
	}

	b.isSetup = true

	return nil
}

func (b *Backtester) runOne(ctx context.Context, symbols []eventmodels.StockSymbol) (*RunReport, error) {
	log.Debugf("Running backtest for %v", symbols)

	runner := NewTestRunner(b.cfg.Backtest, symbols, b.metricManager)
	return runner.Run(ctx)
}

// RunAll runs every symbol list. A failed run is logged and skipped; an interrupt aborts the batch with ErrInterrupted.
func (b *Backtester) RunAll(ctx context.Context) error {
	if !b.isSetup {
		return fmt.Errorf("Backtester.RunAll: %w: call Setup first", ErrInvalidRunState)
	}

	defer b.emitter.Emit(EventBatchDone, &RunEvent{Index: len(b.symbolLists)})

	for i, symbols := range b.symbolLists {
		if err := ctx.Err(); err != nil {
			log.Error("User Interrupted")
			return fmt.Errorf("%w: before run %d: %v", ErrInterrupted, i+1, err)
		}

		event := &RunEvent{
			Index:   i,
			Name:    ResultName(symbols, b.cfg.Backtest.StrategyName, b.cfg.Backtest.StartTickDate.Time, b.cfg.Backtest.EndTradeDate.Time),
			Symbols: MetricsKey(symbols),
		}

		b.emitter.Emit(EventRunStarted, event)

		report, err := b.runOne(ctx, symbols)
		if err != nil {
			if ctx.Err() != nil {
				log.Error("User Interrupted")
				return fmt.Errorf("%w: during %s: %v", ErrInterrupted, event.Name, err)
			}

			log.WithError(err).Errorf("Unexpected error when backtesting %v", symbols)

			b.mutex.Lock()
			b.failed[event.Symbols] = err
			b.mutex.Unlock()

			event.Err = err
			b.emitter.Emit(EventRunFailed, event)
			continue
		}

		b.mutex.Lock()
		b.accounts = append(b.accounts, report.Account)
		b.reports = append(b.reports, report)
		b.mutex.Unlock()

		event.Report = report
		b.emitter.Emit(EventRunCompleted, event)
	}

	return nil
}

func (b *Backtester) GetMetrics() map[string]models.MetricsResult {
	return b.metricManager.GetMetrics()
}

// Accounts returns the final account of every completed run, in run order.
func (b *Backtester) Accounts() []*models.Account {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return append([]*models.Account(nil), b.accounts...)
}

func (b *Backtester) Reports() []*RunReport {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return append([]*RunReport(nil), b.reports...)
}

// Failed returns the error of every failed run, keyed by its symbols.
func (b *Backtester) Failed() map[string]error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	failed := make(map[string]error, len(b.failed))
	for k, v := range b.failed {
		failed[k] = v
	}

	return failed
}

func (b *Backtester) SymbolLists() [][]eventmodels.StockSymbol {
	return b.symbolLists
}

// PrintMetrics writes one row per completed run.
func (b *Backtester) PrintMetrics(w io.Writer) {
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbols", "Start", "End", "Min", "Max", "Sharpe", "Max Drawdown", "R²", "End Value", "Holdings", "Clean"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, report := range b.Reports() {
		m := report.Metrics
		table.Append([]string{
			MetricsKey(report.Symbols),
			m.StartTime.Format(time.DateOnly),
			m.EndTime.Format(time.DateOnly),
			p.Sprintf("$%.2f", m.Min.Value),
			p.Sprintf("$%.2f", m.Max.Value),
			p.Sprintf("%.4f", m.SharpeRatio),
			p.Sprintf("%.2f%% @ %s", m.MaxDrawdown*100, m.MaxDrawdownTime.Format(time.DateOnly)),
			p.Sprintf("%.4f", m.RSquared),
			p.Sprintf("$%.2f", report.Account.TotalValue()),
			report.Account.Holdings.String(),
			fmt.Sprintf("%t", report.TerminatedCleanly),
		})
	}

	table.Render()

	failed := b.Failed()
	if len(failed) > 0 {
		keys := make([]string, 0, len(failed))
		for k := range failed {
			keys = append(keys, k)
		}

		fmt.Fprintf(w, "failed runs: %s\n", strings.Join(sortStrings(keys), ", "))
	}
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}

// Err summarizes the failed runs, or returns nil when every run completed.
func (b *Backtester) Err() error {
	var errs []error
	for symbols, err := range b.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", symbols, err))
	}

	return errors.Join(errs...)
}

func NewBacktester(cfg *config.Config, opts BacktesterOptions) *Backtester {
	return &Backtester{
		cfg:           cfg,
		opts:          opts,
		metricManager: NewMetricManager(),
		failed:        make(map[string]error),
		emitter:       events.New(),
	}
}
