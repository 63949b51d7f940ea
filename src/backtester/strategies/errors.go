package strategies

import "fmt"

var (
	ErrUnknownStrategy   = fmt.Errorf("unknown strategy")
	ErrAlreadyRegistered = fmt.Errorf("strategy already registered")
	ErrNoSymbols         = fmt.Errorf("strategy needs at least one symbol")
	ErrNoAccount         = fmt.Errorf("strategy needs an account")
	ErrNoHistory         = fmt.Errorf("strategy needs a history buffer")
	ErrInvalidParam      = fmt.Errorf("invalid strategy parameter")
)
