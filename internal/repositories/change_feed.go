package repositories

import "context"

// ChangeFeed signals that a collection changed. It carries no payload:
// subscribers re-read the full matching set on every signal.
type ChangeFeed interface {
	Publish(ctx context.Context, collection string) error

	// Subscribe returns a channel that receives one value per change and is
	// closed when ctx is cancelled or the feed shuts down.
	Subscribe(ctx context.Context, collection string) (<-chan struct{}, error)

	Close() error
}
