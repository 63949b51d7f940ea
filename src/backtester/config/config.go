package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/utils"
)

const (
	DefaultInitCash      = 150000.0
	DefaultWorkerTimeout = 240 * time.Second
	DefaultQueueSize     = 64
)

type Config struct {
	Backtest Backtest `yaml:"backtest"`
	Log      Log      `yaml:"log"`
	dir      string
}

// Backtest holds the options shared by every run of a batch.
type Backtest struct {
	TradeType      models.TradeType   `yaml:"trade_type"`
	InitCash       float64            `yaml:"init_cash"`
	StartTickDate  Date               `yaml:"start_tick_date"`
	StartTradeDate Date               `yaml:"start_trade_date"`
	EndTradeDate   Date               `yaml:"end_trade_date"`
	SymbolFile     string             `yaml:"symbol_file"`
	Index          string             `yaml:"index"`
	InputDAM       string             `yaml:"input_dam"`
	InputDB        string             `yaml:"input_db"`
	Saver          string             `yaml:"saver"`
	OutputDBPrefix string             `yaml:"output_db_prefix"`
	OutputDSN      string             `yaml:"output_dsn"`
	StrategyName   string             `yaml:"strategy_name"`
	StrategyParams map[string]float64 `yaml:"strategy_params"`
	WorkerTimeout  time.Duration      `yaml:"worker_timeout"`
	QueueSize      int                `yaml:"queue_size"`
	HistorySize    int                `yaml:"history_size"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Dir is the directory relative paths in the config resolve against.
func (c *Config) Dir() string {
	return c.dir
}

// Override replaces the cash and trade window when set. Zero values keep what the file says.
func (c *Config) Override(cash float64, startTickDate, startTradeDate, endTradeDate time.Time) {
	if cash > 0 {
		c.Backtest.InitCash = cash
	}

	if !startTickDate.IsZero() {
		c.Backtest.StartTickDate = NewDate(startTickDate)
	}

	if !startTradeDate.IsZero() {
		c.Backtest.StartTradeDate = NewDate(startTradeDate)
	}

	if !endTradeDate.IsZero() {
		c.Backtest.EndTradeDate = NewDate(endTradeDate)
	}
}

func (c *Config) Validate() error {
	if err := c.Backtest.TradeType.Validate(); err != nil {
		return err
	}

	if c.Backtest.InitCash <= 0 {
		return ErrInvalidCash
	}

	if c.Backtest.StrategyName == "" {
		return ErrMissingStrategy
	}

	if c.Backtest.InputDAM == "" {
		return ErrMissingDataSource
	}

	return nil
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(c.dir, path)
}

func (c *Config) setDefaults() {
	if c.Backtest.TradeType == "" {
		c.Backtest.TradeType = models.TradeTypeClose
	}

	if c.Backtest.InitCash == 0 {
		c.Backtest.InitCash = DefaultInitCash
	}

	if c.Backtest.WorkerTimeout <= 0 {
		c.Backtest.WorkerTimeout = DefaultWorkerTimeout
	}

	if c.Backtest.QueueSize <= 0 {
		c.Backtest.QueueSize = DefaultQueueSize
	}

	if c.Backtest.HistorySize <= 0 {
		c.Backtest.HistorySize = models.DefaultHistorySize
	}

	c.Backtest.TradeType = models.TradeType(strings.ToLower(string(c.Backtest.TradeType)))
}

// Parse decodes a YAML document. Environment references like ${VAR} are expanded first.
// dir is used to resolve relative symbol_file and input_db paths.
func Parse(data []byte, dir string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(bytes.NewBufferString(expanded))
	decoder.KnownFields(true)

	cfg := &Config{dir: dir}
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: failed to decode: %w", err)
	}

	cfg.setDefaults()
	cfg.Backtest.SymbolFile = cfg.resolve(cfg.Backtest.SymbolFile)

	if cfg.Backtest.InputDAM == "csv" {
		cfg.Backtest.InputDB = cfg.resolve(cfg.Backtest.InputDB)
	}

	return cfg, nil
}

// Load reads the config file at path after loading the .env file from the same directory.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)

	if err := utils.InitEnvironmentVariables(dir); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: failed to read %s: %w", path, err)
	}

	cfg, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %s: %w", path, err)
	}

	log.Debugf("loaded config from %s", path)

	return cfg, nil
}
