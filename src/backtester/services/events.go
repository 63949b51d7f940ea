package services

import (
	events "github.com/kataras/go-events"
)

// Batch lifecycle events emitted by Backtester. Listeners receive a *RunEvent.
const (
	EventRunStarted   events.EventName = "run.started"
	EventRunCompleted events.EventName = "run.completed"
	EventRunFailed    events.EventName = "run.failed"
	EventBatchDone    events.EventName = "batch.done"
)

type RunEvent struct {
	Index   int
	Name    string
	Symbols string
	Report  *RunReport
	Err     error
}
