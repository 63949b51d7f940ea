package models

import "fmt"

var (
	ErrInsufficientHoldings   = fmt.Errorf("insufficient holdings")
	ErrInsufficientCash       = fmt.Errorf("insufficient cash")
	ErrInvalidOrderVolumeZero = fmt.Errorf("invalid order volume: quantity must be positive")
	ErrInvalidOrderSide       = fmt.Errorf("invalid order side")
	ErrNoPriceAvailable       = fmt.Errorf("no price available")
	ErrInvalidTradeType       = fmt.Errorf("invalid trade type")
)
