package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/jiaming2012/tick-backtester/src/backtester/config"
	"github.com/jiaming2012/tick-backtester/src/backtester/datasource"
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/backtester/saver"
	"github.com/jiaming2012/tick-backtester/src/backtester/strategies"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/eventpubsub"
)

type RunState string

const (
	RunStateCreated    RunState = "created"
	RunStateConfigured RunState = "configured"
	RunStateRunning    RunState = "running"
	RunStateReported   RunState = "reported"
	RunStateDone       RunState = "done"
)

// RunReport is what one run leaves behind once it is reported.
type RunReport struct {
	Name              string
	Symbols           []eventmodels.StockSymbol
	AccountID         uuid.UUID
	Account           *models.Account
	Positions         []models.PositionSnapshot
	Metrics           models.MetricsResult
	TicksFed          uint
	StrategyFailures  uint64
	Rejections        []error
	TerminatedCleanly bool
	Persisted         bool
}

// TestRunner backtests one symbol list: setup, execute, report.
type TestRunner struct {
	state         RunState
	cfg           config.Backtest
	symbols       []eventmodels.StockSymbol
	name          string
	metricManager *MetricManager

	bus       *eventpubsub.Bus
	accounts  *AccountManager
	accountID uuid.UUID
	history   *models.History
	source    datasource.DataSource
	feeder    *TickFeeder
	center    *TradingCenter
	engine    *TradingEngine
	saver     saver.StateSaver
	report    *RunReport
}

func (r *TestRunner) State() RunState {
	return r.state
}

func (r *TestRunner) Name() string {
	return r.name
}

func (r *TestRunner) transition(from, to RunState) error {
	if r.state != from {
		return fmt.Errorf("%w: %s run cannot become %s", ErrInvalidRunState, r.state, to)
	}

	r.state = to
	return nil
}

func (r *TestRunner) setupSaver() error {
	if r.cfg.Saver == "" {
		log.Infof("%s: no saver configured, metrics will not be persisted", r.name)
		return nil
	}

	s, err := saver.New(r.cfg.Saver, saver.Params{
		DB:  r.cfg.OutputDBPrefix + r.name,
		DSN: r.cfg.OutputDSN,
	})
	if err != nil {
		return err
	}

	r.saver = s

	if auditor, ok := s.(saver.TickAuditor); ok {
		r.feeder.SetAuditor(auditor)
	}

	return nil
}

// Setup builds and wires the components of the run.
func (r *TestRunner) Setup() (err error) {
	if r.state != RunStateCreated {
		return fmt.Errorf("TestRunner.Setup: %w: %s", ErrInvalidRunState, r.state)
	}

	defer func() {
		if err != nil {
			r.close()
		}
	}()

	var source datasource.DataSource
	source, err = datasource.New(r.cfg.InputDAM, datasource.Params{DB: r.cfg.InputDB})
	if err != nil {
		return fmt.Errorf("TestRunner.Setup: %w", err)
	}
	r.source = source

	r.accountID = r.accounts.CreateAccount(r.cfg.InitCash)

	r.feeder = NewTickFeeder(r.bus, source, r.history, r.symbols, r.cfg.StartTickDate.Time, r.cfg.EndTradeDate.Time, r.cfg.TradeType)
	r.feeder.SetIndexSymbol(eventmodels.NewStockSymbol(r.cfg.Index))

	if r.center, err = NewTradingCenter(r.bus, r.accounts, r.accountID); err != nil {
		return fmt.Errorf("TestRunner.Setup: %w", err)
	}

	if r.engine, err = NewTradingEngine(r.bus, r.cfg.QueueSize); err != nil {
		return fmt.Errorf("TestRunner.Setup: %w", err)
	}

	strategy, err := strategies.New(r.cfg.StrategyName, strategies.Params{
		Config:    r.cfg.StrategyParams,
		Symbols:   r.symbols,
		History:   r.history,
		Accounts:  r.accounts,
		AccountID: r.accountID,
	})
	if err != nil {
		return fmt.Errorf("TestRunner.Setup: %w", err)
	}

	if err := r.engine.Register(strategy); err != nil {
		return fmt.Errorf("TestRunner.Setup: %w", err)
	}

	if err := r.setupSaver(); err != nil {
		return fmt.Errorf("TestRunner.Setup: %w", err)
	}

	return r.transition(RunStateCreated, RunStateConfigured)
}

// join waits for the worker up to the configured timeout. On timeout the worker is told to stop and left behind.
func (r *TestRunner) join(g *errgroup.Group) (bool, error) {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return true, err
	case <-time.After(r.cfg.WorkerTimeout):
		r.engine.Stop()
		log.WithError(ErrWorkerTimeout).Warnf("%s: detaching engine worker after %v", r.name, r.cfg.WorkerTimeout)
		return false, nil
	}
}

func (r *TestRunner) persist(ctx context.Context, result models.MetricsResult, account *models.Account) error {
	if r.saver == nil {
		return nil
	}

	record := models.NewMetricsRecord(result, account.TotalValue(), account.Holdings)
	if err := r.saver.WriteMetrics(ctx, record); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	log.Debugf("%s: writing state to saver", r.name)

	if err := r.saver.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func (r *TestRunner) close() {
	for _, collaborator := range []interface{}{r.source, r.saver} {
		if c, ok := collaborator.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.WithError(err).Warnf("%s: failed to close %T", r.name, c)
			}
		}
	}
}

// Execute replays the feed through the engine, then computes and persists the metrics.
func (r *TestRunner) Execute(ctx context.Context) (err error) {
	if err := r.transition(RunStateConfigured, RunStateRunning); err != nil {
		return fmt.Errorf("TestRunner.Execute: %w", err)
	}

	defer r.close()

	ctx, span := otel.Tracer("backtester").Start(ctx, "backtester.run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	span.SetAttributes(
		attribute.String("run.name", r.name),
		attribute.String("run.strategy", r.cfg.StrategyName),
		attribute.Int("run.symbols", len(r.symbols)),
	)

	log.Infof("Running backtest for %v", r.symbols)

	g := new(errgroup.Group)
	g.Go(func() error {
		return r.engine.RunListener(ctx)
	})

	if err := r.feeder.Execute(ctx); err != nil {
		r.engine.Stop()
		_, joinErr := r.join(g)
		return fmt.Errorf("TestRunner.Execute: %w", errors.Join(err, joinErr))
	}

	r.feeder.Complete()

	terminatedCleanly, err := r.join(g)
	if err != nil {
		return fmt.Errorf("TestRunner.Execute: engine: %w", err)
	}

	defer r.engine.Stop()

	positions, err := r.accounts.GetAccountPositions(r.accountID, r.cfg.StartTradeDate.Time)
	if err != nil {
		return fmt.Errorf("TestRunner.Execute: %w", err)
	}

	result, err := ComputeMetrics(positions, r.feeder.IndexPositions())
	if err != nil {
		return fmt.Errorf("TestRunner.Execute: %w", err)
	}

	account, err := r.accounts.GetAccount(r.accountID)
	if err != nil {
		return fmt.Errorf("TestRunner.Execute: %w", err)
	}

	if err := r.persist(ctx, result, account); err != nil {
		return fmt.Errorf("TestRunner.Execute: %w", err)
	}

	r.report = &RunReport{
		Name:              r.name,
		Symbols:           r.symbols,
		AccountID:         r.accountID,
		Account:           account,
		Positions:         positions,
		Metrics:           result,
		TicksFed:          r.feeder.Published(),
		StrategyFailures:  r.engine.Failures(),
		Rejections:        r.center.Rejections(),
		TerminatedCleanly: terminatedCleanly,
		Persisted:         r.saver != nil,
	}

	span.SetAttributes(
		attribute.Int("run.ticks", int(r.report.TicksFed)),
		attribute.Bool("run.terminated_cleanly", terminatedCleanly),
	)

	// Only a run that completed, persistence included, shows up in the batch metrics.
	r.metricManager.Record(r.symbols, result)

	return r.transition(RunStateRunning, RunStateReported)
}

// Report logs the account and its orders and hands back the run's report.
func (r *TestRunner) Report() (*RunReport, error) {
	if err := r.transition(RunStateReported, RunStateDone); err != nil {
		return nil, fmt.Errorf("TestRunner.Report: %w", err)
	}

	log.Infof("%s: %s", r.name, r.report.Account)

	for _, order := range r.report.Account.OrderHistory {
		log.Debugf("%s: %s", r.name, order)
	}

	log.Debugf("%s: account positions %v", r.name, r.report.Positions)

	if len(r.report.Rejections) > 0 {
		log.Warnf("%s: %d actions rejected", r.name, len(r.report.Rejections))
	}

	if r.report.StrategyFailures > 0 {
		log.Warnf("%s: strategy failed on %d ticks", r.name, r.report.StrategyFailures)
	}

	if !r.report.TerminatedCleanly {
		log.Warnf("%s: %v", r.name, ErrWorkerTimeout)
	}

	return r.report, nil
}

// Run performs the whole lifecycle.
func (r *TestRunner) Run(ctx context.Context) (*RunReport, error) {
	if err := r.Setup(); err != nil {
		return nil, err
	}

	if err := r.Execute(ctx); err != nil {
		return nil, err
	}

	return r.Report()
}

func NewTestRunner(cfg config.Backtest, symbols []eventmodels.StockSymbol, metricManager *MetricManager) *TestRunner {
	if cfg.TradeType == "" {
		cfg.TradeType = models.TradeTypeClose
	}

	if cfg.WorkerTimeout <= 0 {
		cfg.WorkerTimeout = config.DefaultWorkerTimeout
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultQueueSize
	}

	return &TestRunner{
		state:         RunStateCreated,
		cfg:           cfg,
		symbols:       symbols,
		name:          ResultName(symbols, cfg.StrategyName, cfg.StartTickDate.Time, cfg.EndTradeDate.Time),
		metricManager: metricManager,
		bus:           eventpubsub.New(),
		accounts:      NewAccountManager(),
		history:       models.NewHistory(cfg.HistorySize),
	}
}
