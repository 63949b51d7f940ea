package eventpubsub

const (
	// TopicTick carries every tick the feeder releases, in global timestamp order.
	TopicTick = "tick"
	// TopicMarket is published by the engine worker before the strategy sees a tick.
	TopicMarket       = "market"
	TopicAction       = "action"
	TopicFeedComplete = "feed.complete"
)
