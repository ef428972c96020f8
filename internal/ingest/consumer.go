// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/metrics"
	"github.com/splitstat/splitstat/internal/models"
)

// EventSink accepts decoded events for storage.
type EventSink interface {
	Record(ctx context.Context, event *models.Event, source string) error
}

// MessageSource provides a stream of messages for a topic.
type MessageSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Consumer reads experiment events from a topic and records them.
type Consumer struct {
	source     MessageSource
	sink       EventSink
	serializer *Serializer
	topic      string
}

// NewConsumer creates a consumer for the given topic.
func NewConsumer(source MessageSource, sink EventSink, topic string) *Consumer {
	return &Consumer{
		source:     source,
		sink:       sink,
		serializer: NewSerializer(),
		topic:      topic,
	}
}

// Run processes messages until context cancellation. Malformed
// messages are acked and dropped so they cannot poison the stream;
// recorder failures nack the message for redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.source.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	logging.Info().Str("topic", c.topic).Msg("Event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *message.Message) {
	event, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		metrics.NATSMessagesParseFailed.Inc()
		logging.Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping unparseable event message")
		msg.Ack()
		return
	}

	if err := c.sink.Record(ctx, event, "nats"); err != nil {
		logging.Err(err).
			Str("message_uuid", msg.UUID).
			Str("event_id", event.EventID).
			Msg("Event record failed, message will be redelivered")
		msg.Nack()
		return
	}

	metrics.NATSMessagesConsumed.Inc()
	msg.Ack()
}
