package changefeed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisFeed publishes change notices over Redis Pub/Sub. The client is owned
// by the caller and is not closed by Close.
type RedisFeed struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisFeed(client *redis.Client, logger *slog.Logger) *RedisFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeed{client: client, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, collection string) error {
	if err := f.client.Publish(ctx, channelName(collection), "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", collection, err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, collection string) (<-chan struct{}, error) {
	pubsub := f.client.Subscribe(ctx, channelName(collection))

	// Wait for the subscription confirmation so no publish after return is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				f.logger.Warn("Failed to close change subscription", "collection", collection, "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()

	return out, nil
}

func (f *RedisFeed) Close() error {
	return nil
}
