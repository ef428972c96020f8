// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/splitstat/splitstat/internal/config"
	"github.com/splitstat/splitstat/internal/eventstore"
	"github.com/splitstat/splitstat/internal/ingest"
	"github.com/splitstat/splitstat/internal/logging"
	"github.com/splitstat/splitstat/internal/supervisor"
	"github.com/splitstat/splitstat/internal/supervisor/services"
)

// ingestComponents holds the NATS event ingestion pipeline. All fields
// are nil when NATS is disabled.
type ingestComponents struct {
	embedded   *ingest.EmbeddedServer
	publisher  *ingest.Publisher
	subscriber *ingest.Subscriber
	consumer   *ingest.Consumer
}

// initIngest wires up the NATS JetStream ingestion path: an optional
// embedded server, a publisher for the HTTP ingest endpoints, a durable
// subscriber, and a consumer feeding the event recorder. Returns
// nil, nil when NATS is disabled.
func initIngest(cfg *config.Config, recorder *eventstore.Recorder) (*ingestComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS ingest disabled, events accepted over HTTP only")
		return nil, nil
	}

	wmLogger := ingest.NewWatermillLogger()
	components := &ingestComponents{}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		embedded, err := ingest.NewEmbeddedServer(cfg.NATS.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.embedded = embedded
		url = embedded.ClientURL()
		logging.Info().
			Str("url", url).
			Str("store_dir", cfg.NATS.StoreDir).
			Msg("Embedded NATS server started")
	}

	publisher, err := ingest.NewPublisher(url, wmLogger)
	if err != nil {
		closeIngest(components)
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	components.publisher = publisher

	subscriber, err := ingest.NewSubscriber(ingest.SubscriberConfig{
		URL:              url,
		DurableName:      cfg.NATS.DurableName,
		QueueGroup:       cfg.NATS.QueueGroup,
		SubscribersCount: cfg.NATS.Subscribers,
	}, wmLogger)
	if err != nil {
		closeIngest(components)
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	components.subscriber = subscriber

	components.consumer = ingest.NewConsumer(subscriber, recorder, cfg.NATS.Topic)

	logging.Info().
		Str("url", url).
		Str("topic", cfg.NATS.Topic).
		Str("durable", cfg.NATS.DurableName).
		Int("subscribers", cfg.NATS.Subscribers).
		Msg("NATS ingest initialized")

	return components, nil
}

// addIngestToSupervisor registers the consumer with the supervisor
// tree. No-op when NATS is disabled.
func addIngestToSupervisor(tree *supervisor.Tree, components *ingestComponents) {
	if components == nil {
		return
	}
	tree.AddIngestService(services.NewConsumerService(components.consumer))
	logging.Info().Msg("Event consumer added to supervisor tree")
}

// closeIngest shuts down ingest components in reverse construction
// order. Safe on nil and on partially initialized components.
func closeIngest(components *ingestComponents) {
	if components == nil {
		return
	}
	if components.subscriber != nil {
		if err := components.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS subscriber")
		}
	}
	if components.publisher != nil {
		if err := components.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS publisher")
		}
	}
	if components.embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := components.embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}
