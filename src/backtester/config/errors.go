package config

import "fmt"

var (
	ErrMissingSymbolFile = fmt.Errorf("symbol_file is required in config file when no symbol lists are given")
	ErrNoSymbols         = fmt.Errorf("no symbols provided")
	ErrMissingStrategy   = fmt.Errorf("strategy_name is required in config file")
	ErrMissingDataSource = fmt.Errorf("input_dam is required in config file")
	ErrInvalidCash       = fmt.Errorf("init_cash must be positive")
)
