// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package services

import (
	"context"
)

// ConsumerRunner matches the NATS event consumer's blocking Run.
type ConsumerRunner interface {
	Run(ctx context.Context) error
}

// ConsumerService wraps the event consumer as a supervised service.
// If the consumer exits with an error, suture restarts it with backoff,
// which re-establishes the JetStream subscription.
type ConsumerService struct {
	consumer ConsumerRunner
}

// NewConsumerService creates a consumer service wrapper.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{consumer: consumer}
}

// Serve implements suture.Service.
func (c *ConsumerService) Serve(ctx context.Context) error {
	return c.consumer.Run(ctx)
}

// String implements fmt.Stringer for suture log messages.
func (c *ConsumerService) String() string {
	return "event-consumer"
}
