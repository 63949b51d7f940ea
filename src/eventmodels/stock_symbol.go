package eventmodels

import (
	"encoding/json"
	"strings"
)

type StockSymbol string

func (s StockSymbol) String() string {
	return strings.ToUpper(string(s))
}

func (s StockSymbol) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s StockSymbol) MarshalCSV() (string, error) {
	return s.String(), nil
}

func (s *StockSymbol) UnmarshalCSV(value string) error {
	*s = NewStockSymbol(value)
	return nil
}

func NewStockSymbol(s string) StockSymbol {
	return StockSymbol(strings.ToUpper(strings.TrimSpace(s)))
}

// NewStockSymbols normalizes a symbol list, dropping blanks.
func NewStockSymbols(symbols []string) []StockSymbol {
	result := make([]StockSymbol, 0, len(symbols))
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			continue
		}

		result = append(result, NewStockSymbol(s))
	}

	return result
}
