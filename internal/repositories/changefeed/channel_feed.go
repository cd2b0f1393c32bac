package changefeed

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ChannelFeed is an in-process change feed backed by a watermill GoChannel
type ChannelFeed struct {
	pubSub *gochannel.GoChannel
}

func NewChannelFeed(logger watermill.LoggerAdapter) *ChannelFeed {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &ChannelFeed{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger),
	}
}

func (f *ChannelFeed) Publish(ctx context.Context, collection string) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	msg.SetContext(ctx)

	if err := f.pubSub.Publish(channelName(collection), msg); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", collection, err)
	}
	return nil
}

func (f *ChannelFeed) Subscribe(ctx context.Context, collection string) (<-chan struct{}, error) {
	messages, err := f.pubSub.Subscribe(ctx, channelName(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for msg := range messages {
			msg.Ack()
			signal(out)
		}
	}()

	return out, nil
}

func (f *ChannelFeed) Close() error {
	return f.pubSub.Close()
}
