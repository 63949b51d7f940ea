package models

import (
	"fmt"
	"time"
)

// PositionSnapshot is a point on an equity curve: the total value at a timestamp.
type PositionSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

func (p PositionSnapshot) String() string {
	return fmt.Sprintf("(%s, %.2f)", p.Timestamp.Format(time.RFC3339), p.Value)
}

// FilterPositionsFrom drops snapshots before start. A zero start keeps everything.
func FilterPositionsFrom(positions []PositionSnapshot, start time.Time) []PositionSnapshot {
	result := make([]PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		if !start.IsZero() && p.Timestamp.Before(start) {
			continue
		}

		result = append(result, p)
	}

	return result
}
