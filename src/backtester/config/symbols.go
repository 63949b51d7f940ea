package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// LoadSymbolLists reads the symbol file: one run per line, symbols separated by whitespace.
// Blank lines and repeated lines are skipped.
func (c *Config) LoadSymbolLists() ([][]eventmodels.StockSymbol, error) {
	if c.Backtest.SymbolFile == "" {
		return nil, ErrMissingSymbolFile
	}

	log.Infof("loading symbols from %s", c.Backtest.SymbolFile)

	f, err := os.Open(c.Backtest.SymbolFile)
	if err != nil {
		return nil, fmt.Errorf("LoadSymbolLists: %w", err)
	}
	defer f.Close()

	var symbolLists [][]eventmodels.StockSymbol
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		symbols := eventmodels.NewStockSymbols(strings.Fields(scanner.Text()))
		if len(symbols) == 0 {
			continue
		}

		key := joinSymbols(symbols)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		symbolLists = append(symbolLists, symbols)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("LoadSymbolLists: failed to read %s: %w", c.Backtest.SymbolFile, err)
	}

	if len(symbolLists) == 0 {
		return nil, fmt.Errorf("LoadSymbolLists: %s: %w", c.Backtest.SymbolFile, ErrNoSymbols)
	}

	return symbolLists, nil
}

func joinSymbols(symbols []eventmodels.StockSymbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = s.String()
	}

	return strings.Join(parts, " ")
}
