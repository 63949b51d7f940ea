package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// Holdings maps a symbol to the quantity held. Symbols with a zero quantity are absent.
type Holdings map[eventmodels.StockSymbol]float64

// Symbols returns the held symbols in lexical order.
func (h Holdings) Symbols() []eventmodels.StockSymbol {
	symbols := make([]eventmodels.StockSymbol, 0, len(h))
	for symbol := range h {
		symbols = append(symbols, symbol)
	}

	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i] < symbols[j]
	})

	return symbols
}

func (h Holdings) Clone() Holdings {
	clone := make(Holdings, len(h))
	for symbol, quantity := range h {
		clone[symbol] = quantity
	}

	return clone
}

func (h Holdings) String() string {
	parts := make([]string, 0, len(h))
	for _, symbol := range h.Symbols() {
		parts = append(parts, fmt.Sprintf("%s:%g", symbol, h[symbol]))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func (h Holdings) MarshalCSV() (string, error) {
	if h == nil {
		return "{}", nil
	}

	b, err := json.Marshal(map[eventmodels.StockSymbol]float64(h))
	if err != nil {
		return "", fmt.Errorf("Holdings.MarshalCSV: %w", err)
	}

	return string(b), nil
}

func (h *Holdings) UnmarshalCSV(value string) error {
	result := make(Holdings)
	if strings.TrimSpace(value) != "" {
		if err := json.Unmarshal([]byte(value), (*map[eventmodels.StockSymbol]float64)(&result)); err != nil {
			return fmt.Errorf("Holdings.UnmarshalCSV: %w", err)
		}
	}

	*h = result
	return nil
}

func (h Holdings) Value() (driver.Value, error) {
	return h.MarshalCSV()
}

func (h *Holdings) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = make(Holdings)
		return nil
	case string:
		return h.UnmarshalCSV(v)
	case []byte:
		return h.UnmarshalCSV(string(v))
	default:
		return fmt.Errorf("Holdings.Scan: unsupported type %T", src)
	}
}
