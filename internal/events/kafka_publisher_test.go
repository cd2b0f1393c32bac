package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func TestKafkaEventPublisher_Envelope(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "recruitx.activity")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	publisher := newKafkaEventPublisher(pubSub, "recruitx.activity", slog.Default())
	event := NewEvent(TypeUserLoggedOut, "u1", UserLoggedOutEvent{UID: "u1"})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("Expected message id %s, got %s", event.ID, msg.UUID)
		}
		if msg.Metadata.Get("event_type") != TypeUserLoggedOut {
			t.Errorf("Unexpected event_type metadata %q", msg.Metadata.Get("event_type"))
		}
		if msg.Metadata.Get(partitionKeyMetadata) != "u1" {
			t.Errorf("Expected partition key u1, got %q", msg.Metadata.Get(partitionKeyMetadata))
		}

		var decoded Event
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("Payload is not an event: %v", err)
		}
		if decoded.Source != EventSource || decoded.Version != EventVersion {
			t.Errorf("Unexpected envelope %+v", decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for message")
	}
}

func TestNewKafkaEventPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaEventPublisher(nil, "topic", slog.Default()); err == nil {
		t.Error("Expected error without brokers")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	ctx := context.Background()

	_ = mock.Publish(ctx, NewEvent(TypeUserLoggedIn, "u1", nil))
	if n := len(mock.GetPublishedEvents()); n != 1 {
		t.Fatalf("Expected 1 event, got %d", n)
	}

	mock.ClearEvents()
	mock.FailWith(context.DeadlineExceeded)
	if err := mock.Publish(ctx, NewEvent(TypeUserLoggedIn, "u1", nil)); err == nil {
		t.Error("Expected configured failure")
	}
	if n := len(mock.GetPublishedEvents()); n != 0 {
		t.Errorf("Expected no events after failure, got %d", n)
	}
}
