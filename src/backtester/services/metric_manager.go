package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
	"github.com/jiaming2012/tick-backtester/src/eventmodels"
)

// TradingPeriodsPerYear annualizes the Sharpe ratio of per-snapshot returns.
const TradingPeriodsPerYear = 252

// MetricManager computes and keeps the metrics of every run in a batch, keyed by symbol list.
type MetricManager struct {
	mutex   sync.RWMutex
	results map[string]models.MetricsResult
}

// MetricsKey identifies a run's metrics by its symbols.
func MetricsKey(symbols []eventmodels.StockSymbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = s.String()
	}

	return strings.Join(parts, " ")
}

// Calculate computes the metrics of a run and records them under its symbols.
func (m *MetricManager) Calculate(symbols []eventmodels.StockSymbol, positions, indexPositions []models.PositionSnapshot) (models.MetricsResult, error) {
	result, err := ComputeMetrics(positions, indexPositions)
	if err != nil {
		return models.MetricsResult{}, fmt.Errorf("MetricManager.Calculate: %v: %w", symbols, err)
	}

	m.Record(symbols, result)

	return result, nil
}

// Record keeps result under symbols, replacing an earlier result for the same list.
func (m *MetricManager) Record(symbols []eventmodels.StockSymbol, result models.MetricsResult) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.results[MetricsKey(symbols)] = result
}

// GetMetrics returns a copy of every recorded result.
func (m *MetricManager) GetMetrics() map[string]models.MetricsResult {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	results := make(map[string]models.MetricsResult, len(m.results))
	for k, v := range m.results {
		results[k] = v
	}

	return results
}

// Keys returns the recorded symbol lists in lexical order.
func (m *MetricManager) Keys() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	keys := make([]string, 0, len(m.results))
	for k := range m.results {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// ComputeMetrics is a pure function of the equity curve and the benchmark series.
func ComputeMetrics(positions, indexPositions []models.PositionSnapshot) (models.MetricsResult, error) {
	if len(positions) == 0 {
		return models.MetricsResult{}, ErrNoPositions
	}

	result := models.MetricsResult{
		StartTime: positions[0].Timestamp,
		EndTime:   positions[len(positions)-1].Timestamp,
		Min:       positions[0],
		Max:       positions[0],
	}

	for _, p := range positions[1:] {
		if p.Value < result.Min.Value {
			result.Min = p
		}

		if p.Value > result.Max.Value {
			result.Max = p
		}
	}

	sharpe, err := SharpeRatio(positions)
	if err != nil {
		return models.MetricsResult{}, err
	}

	result.SharpeRatio = sharpe
	result.MaxDrawdown, result.MaxDrawdownTime = MaxDrawdown(positions)

	rSquared, err := RSquared(positions, indexPositions)
	if err != nil {
		return models.MetricsResult{}, err
	}

	result.RSquared = rSquared

	return result, nil
}

// Returns are the simple returns between consecutive snapshots. A step from a zero value is skipped.
func Returns(positions []models.PositionSnapshot) []float64 {
	returns := make([]float64, 0, len(positions))
	for i := 1; i < len(positions); i++ {
		prev := positions[i-1].Value
		if prev == 0 {
			continue
		}

		returns = append(returns, positions[i].Value/prev-1)
	}

	return returns
}

// SharpeRatio is mean/stddev of the simple returns with a zero risk-free rate, annualized by sqrt(252).
// It is 0 with fewer than two returns or when the returns do not vary.
func SharpeRatio(positions []models.PositionSnapshot) (float64, error) {
	returns := Returns(positions)
	if len(returns) < 2 {
		return 0, nil
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0, fmt.Errorf("SharpeRatio: mean: %w", err)
	}

	sd, err := stats.StandardDeviation(returns)
	if err != nil {
		return 0, fmt.Errorf("SharpeRatio: standard deviation: %w", err)
	}

	if sd == 0 {
		return 0, nil
	}

	return mean / sd * math.Sqrt(TradingPeriodsPerYear), nil
}

// MaxDrawdown is the most negative (value - running max) / running max, with the time it occurred.
// Without a drawdown it is 0 at the first snapshot.
func MaxDrawdown(positions []models.PositionSnapshot) (float64, time.Time) {
	if len(positions) == 0 {
		return 0, time.Time{}
	}

	maxDrawdown := 0.0
	at := positions[0].Timestamp
	runningMax := positions[0].Value

	for _, p := range positions {
		if p.Value > runningMax {
			runningMax = p.Value
		}

		if runningMax <= 0 {
			continue
		}

		if drawdown := (p.Value - runningMax) / runningMax; drawdown < maxDrawdown {
			maxDrawdown = drawdown
			at = p.Timestamp
		}
	}

	return maxDrawdown, at
}

// RSquared regresses account value on benchmark value over the timestamps both series share.
// For a simple linear regression it equals the squared Pearson correlation. It is 0 with fewer than two shared points.
func RSquared(positions, indexPositions []models.PositionSnapshot) (float64, error) {
	if len(indexPositions) == 0 {
		return 0, nil
	}

	index := make(map[int64]float64, len(indexPositions))
	for _, p := range indexPositions {
		index[p.Timestamp.UnixNano()] = p.Value
	}

	var values, benchmark []float64
	for _, p := range positions {
		if v, ok := index[p.Timestamp.UnixNano()]; ok {
			values = append(values, p.Value)
			benchmark = append(benchmark, v)
		}
	}

	if len(values) < 2 {
		return 0, nil
	}

	correlation, err := stats.Correlation(values, benchmark)
	if err != nil {
		return 0, fmt.Errorf("RSquared: %w", err)
	}

	if math.IsNaN(correlation) {
		return 0, nil
	}

	return correlation * correlation, nil
}

func NewMetricManager() *MetricManager {
	return &MetricManager{
		results: make(map[string]models.MetricsResult),
	}
}
