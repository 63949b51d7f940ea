package saver

import "fmt"

var (
	ErrUnknownSaver      = fmt.Errorf("unknown saver")
	ErrAlreadyRegistered = fmt.Errorf("saver already registered")
	ErrMissingDB         = fmt.Errorf("output db is required")
	ErrMissingDSN        = fmt.Errorf("output_dsn is required")
)
