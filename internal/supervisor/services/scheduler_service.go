// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package services

import (
	"context"
	"fmt"
)

// SchedulerRunner matches the scheduler's Start/Stop lifecycle.
type SchedulerRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// SchedulerService wraps the analysis scheduler as a supervised service.
type SchedulerService struct {
	scheduler SchedulerRunner
}

// NewSchedulerService creates a scheduler service wrapper.
func NewSchedulerService(scheduler SchedulerRunner) *SchedulerService {
	return &SchedulerService{scheduler: scheduler}
}

// Serve implements suture.Service. It starts the scheduler and blocks
// until the context is canceled, then stops it.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	s.scheduler.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture log messages.
func (s *SchedulerService) String() string {
	return "analysis-scheduler"
}
