package models

import (
	"fmt"
	"strings"
)

// TradeType selects which bar field a tick trades at.
type TradeType string

const (
	TradeTypeClose TradeType = "close"
	TradeTypeOpen  TradeType = "open"
)

func (t TradeType) Validate() error {
	switch t {
	case TradeTypeClose, TradeTypeOpen:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTradeType, string(t))
	}
}

// ParseTradeType defaults to close when the value is empty.
func ParseTradeType(s string) (TradeType, error) {
	if strings.TrimSpace(s) == "" {
		return TradeTypeClose, nil
	}

	t := TradeType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}

	return t, nil
}
