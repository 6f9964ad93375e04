package solana

import "context"

// LogsSubscriber streams logsSubscribe notifications. The watcher uses it to poll a
// wallet as soon as the node reports a transaction mentioning it.
type LogsSubscriber interface {
	// SubscribeLogs subscribes to logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (*LogsSubscription, error)

	// Unsubscribe cancels a subscription and closes its channel.
	Unsubscribe(ctx context.Context, sub *LogsSubscription) error

	// Close closes the WebSocket connection and every subscription channel.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these accounts. Nodes accept one entry.
	Mentions []string
}

// LogsSubscription is a live subscription. Its handle survives reconnects even though
// the node assigns a new subscription id each time.
type LogsSubscription struct {
	handle uint64
	Filter LogsFilter
	C      <-chan LogNotification
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
