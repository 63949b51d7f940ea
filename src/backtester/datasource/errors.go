package datasource

import "fmt"

var (
	ErrUnknownDataSource = fmt.Errorf("unknown data source")
	ErrAlreadyRegistered = fmt.Errorf("data source already registered")
	ErrMissingDB         = fmt.Errorf("input_db is required")
	ErrSymbolNotFound    = fmt.Errorf("symbol not found")
)
