package models

import (
	"fmt"
	"time"
)

// MetricsResult summarizes one run's equity curve. It is a value and is never modified after construction.
type MetricsResult struct {
	StartTime       time.Time
	EndTime         time.Time
	Min             PositionSnapshot
	Max             PositionSnapshot
	SharpeRatio     float64
	MaxDrawdown     float64
	MaxDrawdownTime time.Time
	RSquared        float64
}

func (m MetricsResult) String() string {
	return fmt.Sprintf("start=%s end=%s min=%s max=%s sharpe=%.4f max_drawdown=%.4f@%s r_squared=%.4f",
		m.StartTime.Format(time.RFC3339), m.EndTime.Format(time.RFC3339), m.Min, m.Max, m.SharpeRatio,
		m.MaxDrawdown, m.MaxDrawdownTime.Format(time.RFC3339), m.RSquared)
}

// MetricsRecord is the persisted form of a run's metrics.
type MetricsRecord struct {
	StartTime   time.Time `csv:"start_time" gorm:"column:start_time;type:timestamptz;not null"`
	EndTime     time.Time `csv:"end_time" gorm:"column:end_time;type:timestamptz;not null"`
	MinValue    float64   `csv:"min_value" gorm:"column:min_value;type:numeric;not null"`
	MaxValue    float64   `csv:"max_value" gorm:"column:max_value;type:numeric;not null"`
	SharpeRatio float64   `csv:"sharpe_ratio" gorm:"column:sharpe_ratio;type:numeric;not null"`
	MaxDrawdown float64   `csv:"max_drawdown" gorm:"column:max_drawdown;type:numeric;not null"`
	RSquared    float64   `csv:"r_squared" gorm:"column:r_squared;type:numeric;not null"`
	EndValue    float64   `csv:"end_value" gorm:"column:end_value;type:numeric;not null"`
	Holdings    Holdings  `csv:"holdings" gorm:"column:holdings;type:text;not null"`
}

func NewMetricsRecord(result MetricsResult, endValue float64, holdings Holdings) MetricsRecord {
	return MetricsRecord{
		StartTime:   result.StartTime,
		EndTime:     result.EndTime,
		MinValue:    result.Min.Value,
		MaxValue:    result.Max.Value,
		SharpeRatio: result.SharpeRatio,
		MaxDrawdown: result.MaxDrawdown,
		RSquared:    result.RSquared,
		EndValue:    endValue,
		Holdings:    holdings.Clone(),
	}
}
