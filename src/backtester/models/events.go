package models

// FeedCompleteEvent is published once the feeder has released every tick of a run.
type FeedCompleteEvent struct {
	Ticks      uint
	IndexTicks uint
}
