package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Handler receives decoded events. Returning an error nacks the message.
type Handler func(ctx context.Context, e Event) error

// Stream publishes and subscribes to progress events over watermill.
type Stream struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewStream wraps an existing publisher and subscriber.
func NewStream(pub message.Publisher, sub message.Subscriber) *Stream {
	return &Stream{publisher: pub, subscriber: sub}
}

// NewInProcessStream creates a stream over an in-memory go channel pub/sub.
// Events published with no subscriber are dropped.
func NewInProcessStream(logger *slog.Logger) *Stream {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)
	return NewStream(pubSub, pubSub)
}

// Publish sends e on Topic. ID and Timestamp are assigned by the caller.
func (s *Stream) Publish(_ context.Context, e Event) error {
	if e.ID == "" {
		e.ID = watermill.NewULID()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(EventMetadataKey, e.RequestID)
	msg.Metadata.Set(EventTypeMetadataKey, string(e.Type))

	return s.publisher.Publish(Topic, msg)
}

// Subscribe delivers events to handler until ctx is done. When requestID is
// non-empty, events of other requests are acked and skipped.
func (s *Stream) Subscribe(ctx context.Context, requestID string, handler Handler) error {
	messages, err := s.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	go func() {
		for msg := range messages {
			if requestID != "" && msg.Metadata.Get(EventMetadataKey) != requestID {
				msg.Ack()
				continue
			}

			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				// undecodable payloads would be redelivered forever
				msg.Ack()
				continue
			}
			if err := handler(ctx, e); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

// Close closes the publisher and, when distinct, the subscriber.
func (s *Stream) Close() error {
	err := s.publisher.Close()
	if sub, ok := s.subscriber.(message.Publisher); !ok || sub != s.publisher {
		if cerr := s.subscriber.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
