package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"

	"github.com/jiaming2012/tick-backtester/src/backtester/config"
	"github.com/jiaming2012/tick-backtester/src/backtester/datasource"
	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/backtester/services"
	"github.com/jiaming2012/tick-backtester/src/dbutils"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
	"github.com/jiaming2012/tick-backtester/src/utils"
)

const serviceName = "tick-backtester"

type RunArgs struct {
	ConfigPath     string
	StartTickDate  time.Time
	StartTradeDate time.Time
	EndTradeDate   time.Time
	Cash           float64
	SymbolLists    [][]eventmodels.StockSymbol
}

type ImportArgs struct {
	Dir     string
	DSN     string
	Symbols []eventmodels.StockSymbol
}

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Replay historical ticks through a trading strategy and report performance metrics",
}

var runCmd = &cobra.Command{
	Use:   "run --config backtest.yaml",
	Short: "Run a backtest for every symbol list",
	Run: func(cmd *cobra.Command, args []string) {
		runArgs, err := parseRunArgs(cmd)
		if err != nil {
			log.Fatalf("invalid arguments: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := Run(ctx, runArgs); err != nil {
			if errors.Is(err, services.ErrInterrupted) {
				log.Error(err)
				stop()
				os.Exit(130)
			}

			log.Fatalf("Error: %v", err)
		}

		log.Info("Done")
	},
}

var importCmd = &cobra.Command{
	Use:   "import --dir csv_data --dsn postgres://... --symbols AAPL,MSFT",
	Short: "Load <SYMBOL>.csv bars into postgres",
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := cmd.Flags().GetString("dir")
		if err != nil {
			log.Fatalf("error getting dir: %v", err)
		}

		dsn, err := cmd.Flags().GetString("dsn")
		if err != nil {
			log.Fatalf("error getting dsn: %v", err)
		}

		if dsn == "" {
			dsn = os.Getenv("POSTGRES_URL")
		}

		symbols, err := cmd.Flags().GetStringSlice("symbols")
		if err != nil {
			log.Fatalf("error getting symbols: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := Import(ctx, ImportArgs{
			Dir:     dir,
			DSN:     dsn,
			Symbols: eventmodels.NewStockSymbols(symbols),
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}

		log.Info("Done")
	},
}

func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return time.Time{}, err
	}

	date, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}

	return date, nil
}

func parseRunArgs(cmd *cobra.Command) (RunArgs, error) {
	var args RunArgs
	var err error

	if args.ConfigPath, err = cmd.Flags().GetString("config"); err != nil {
		return RunArgs{}, err
	}

	if args.StartTickDate, err = parseDateFlag(cmd, "start-tick-date"); err != nil {
		return RunArgs{}, err
	}

	if args.StartTradeDate, err = parseDateFlag(cmd, "start-trade-date"); err != nil {
		return RunArgs{}, err
	}

	if args.EndTradeDate, err = parseDateFlag(cmd, "end-trade-date"); err != nil {
		return RunArgs{}, err
	}

	if args.Cash, err = cmd.Flags().GetFloat64("cash"); err != nil {
		return RunArgs{}, err
	}

	symbolLists, err := cmd.Flags().GetStringArray("symbols")
	if err != nil {
		return RunArgs{}, err
	}

	for _, line := range symbolLists {
		if symbols := eventmodels.NewStockSymbols(strings.Fields(line)); len(symbols) > 0 {
			args.SymbolLists = append(args.SymbolLists, symbols)
		}
	}

	return args, nil
}

func Run(ctx context.Context, args RunArgs) (err error) {
	// Set up Telemetry
	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
	)))

	otelShutdown, err := utils.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to setup otel sdk: %w", err)
	}

	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
	}()

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return err
	}

	backtester := services.NewBacktester(cfg, services.BacktesterOptions{
		StartTickDate:  args.StartTickDate,
		StartTradeDate: args.StartTradeDate,
		EndTradeDate:   args.EndTradeDate,
		Cash:           args.Cash,
		SymbolLists:    args.SymbolLists,
	})

	if err := backtester.Setup(); err != nil {
		return err
	}

	backtester.On(services.EventRunFailed, func(e *services.RunEvent) {
		log.Warnf("run %d (%s) failed: %v", e.Index+1, e.Name, e.Err)
	})

	runErr := backtester.RunAll(ctx)

	backtester.PrintMetrics(os.Stdout)

	if failed := backtester.Failed(); len(failed) > 0 {
		log.Warnf("%d of %d runs failed", len(failed), len(backtester.SymbolLists()))
	}

	return runErr
}

func Import(ctx context.Context, args ImportArgs) error {
	if len(args.Symbols) == 0 {
		return fmt.Errorf("no symbols to import")
	}

	db, err := dbutils.InitPostgresWithUrl(args.DSN)
	if err != nil {
		return err
	}

	defer func() {
		if err := dbutils.Close(db); err != nil {
			log.Warnf("failed to close db: %v", err)
		}
	}()

	source := datasource.NewCsvDataSource(args.Dir)

	for _, symbol := range args.Symbols {
		ticks, err := source.ReadTicks(ctx, symbol, time.Time{}, time.Time{}, models.TradeTypeClose)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", symbol, err)
		}

		if err := dbutils.InsertTicks(db.WithContext(ctx), ticks); err != nil {
			return fmt.Errorf("failed to import %s: %w", symbol, err)
		}

		log.Infof("imported %d ticks for %s", len(ticks), symbol)
	}

	return nil
}

func main() {
	runCmd.PersistentFlags().String("config", "backtest.yaml", "The backtest config file.")
	runCmd.PersistentFlags().String("start-tick-date", "", "First tick fed to the strategy (2006-01-02 or 20060102).")
	runCmd.PersistentFlags().String("start-trade-date", "", "First timestamp included in the metrics.")
	runCmd.PersistentFlags().String("end-trade-date", "", "Last day fed to the strategy.")
	runCmd.PersistentFlags().Float64("cash", 0, "Initial cash per run. Overrides init_cash.")
	runCmd.PersistentFlags().StringArray("symbols", []string{}, "A whitespace separated symbol list. Repeat for more runs. Overrides symbol_file.")

	importCmd.PersistentFlags().String("dir", "csv_data", "The directory holding <SYMBOL>.csv files.")
	importCmd.PersistentFlags().String("dsn", "", "The postgres url. Defaults to $POSTGRES_URL.")
	importCmd.PersistentFlags().StringSlice("symbols", []string{}, "The symbols to import.")
	importCmd.MarkPersistentFlagRequired("symbols")

	rootCmd.AddCommand(runCmd, importCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
