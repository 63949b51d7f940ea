package saver

import (
	"context"
	"sync"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
)

var memoryStore = struct {
	mutex   sync.RWMutex
	metrics map[string][]models.MetricsRecord
	ticks   map[string][]models.Tick
}{
	metrics: make(map[string][]models.MetricsRecord),
	ticks:   make(map[string][]models.Tick),
}

// MemorySaver keeps committed results in process memory, keyed by db name.
type MemorySaver struct {
	mutex          sync.Mutex
	db             string
	pendingMetrics []models.MetricsRecord
	pendingTicks   []models.Tick
}

func (s *MemorySaver) WriteMetrics(ctx context.Context, record models.MetricsRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pendingMetrics = append(s.pendingMetrics, record)
	return nil
}

func (s *MemorySaver) AuditTick(tick models.Tick) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pendingTicks = append(s.pendingTicks, tick)
	return nil
}

func (s *MemorySaver) Commit(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	memoryStore.mutex.Lock()
	defer memoryStore.mutex.Unlock()

	memoryStore.metrics[s.db] = append(memoryStore.metrics[s.db], s.pendingMetrics...)
	memoryStore.ticks[s.db] = append(memoryStore.ticks[s.db], s.pendingTicks...)

	s.pendingMetrics = nil
	s.pendingTicks = nil

	return nil
}

func (s *MemorySaver) ReadMetrics(ctx context.Context) ([]models.MetricsRecord, error) {
	return MemoryMetrics(s.db), nil
}

// MemoryMetrics returns what memory savers committed under db.
func MemoryMetrics(db string) []models.MetricsRecord {
	memoryStore.mutex.RLock()
	defer memoryStore.mutex.RUnlock()

	return append([]models.MetricsRecord(nil), memoryStore.metrics[db]...)
}

// MemoryTicks returns the ticks memory savers audited under db.
func MemoryTicks(db string) []models.Tick {
	memoryStore.mutex.RLock()
	defer memoryStore.mutex.RUnlock()

	return append([]models.Tick(nil), memoryStore.ticks[db]...)
}

// MemoryNames lists the db names that hold committed metrics.
func MemoryNames() []string {
	memoryStore.mutex.RLock()
	defer memoryStore.mutex.RUnlock()

	names := make([]string, 0, len(memoryStore.metrics))
	for name := range memoryStore.metrics {
		names = append(names, name)
	}

	return names
}

// DropMemory forgets everything committed under db.
func DropMemory(db string) {
	memoryStore.mutex.Lock()
	defer memoryStore.mutex.Unlock()

	delete(memoryStore.metrics, db)
	delete(memoryStore.ticks, db)
}

func NewMemorySaver(db string) *MemorySaver {
	return &MemorySaver{db: db}
}

func newMemorySaver(params Params) (StateSaver, error) {
	return NewMemorySaver(params.DB), nil
}
