package services

import "fmt"

var (
	ErrAccountNotFound           = fmt.Errorf("account not found")
	ErrStrategyAlreadyRegistered = fmt.Errorf("a strategy is already registered on this engine")
	ErrNoStrategyRegistered      = fmt.Errorf("no strategy registered")
	ErrInvalidRunState           = fmt.Errorf("invalid run state")
	ErrNoPositions               = fmt.Errorf("no positions to calculate metrics from")
	ErrInterrupted               = fmt.Errorf("backtest interrupted")
	ErrWorkerTimeout             = fmt.Errorf("engine worker did not terminate in time")
)
