package saver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
)

// StateSaver persists the metrics of a run. Writes are buffered until Commit.
type StateSaver interface {
	WriteMetrics(ctx context.Context, record models.MetricsRecord) error
	Commit(ctx context.Context) error
}

// TickAuditor is implemented by savers that also keep every tick fed during a run.
type TickAuditor interface {
	AuditTick(tick models.Tick) error
}

// MetricsReader is implemented by savers that can load committed metrics back.
type MetricsReader interface {
	ReadMetrics(ctx context.Context) ([]models.MetricsRecord, error)
}

// Params locates the output. DB is the per-run result name with the configured prefix; DSN is used by postgres.
type Params struct {
	DB  string
	DSN string
}

type Factory func(params Params) (StateSaver, error)

var (
	registryMutex sync.RWMutex
	registry      = map[string]Factory{}
)

func Register(name string, factory Factory) error {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, ok := registry[name]; ok {
		return fmt.Errorf("saver.Register: %w: %s", ErrAlreadyRegistered, name)
	}

	registry[name] = factory
	return nil
}

func New(name string, params Params) (StateSaver, error) {
	registryMutex.RLock()
	factory, ok := registry[name]
	registryMutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("saver.New: %w: %q", ErrUnknownSaver, name)
	}

	s, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("saver.New: %s: %w", name, err)
	}

	return s, nil
}

func Names() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func init() {
	for name, factory := range map[string]Factory{
		"csv":      newCsvSaver,
		"memory":   newMemorySaver,
		"postgres": newPostgresSaver,
		"sqlite":   newSqliteSaver,
	} {
		if err := Register(name, factory); err != nil {
			panic(err)
		}
	}
}
