// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/splitstat/splitstat/internal/analysis"
	"github.com/splitstat/splitstat/internal/eventstore"
	"github.com/splitstat/splitstat/internal/models"
	"github.com/splitstat/splitstat/internal/report"
)

// maxBatchSize bounds a single batch ingestion request.
const maxBatchSize = 1000

// EventPublisher forwards events onto the message bus for asynchronous
// recording.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *models.Event) error
}

// Handler holds dependencies for all API endpoints.
type Handler struct {
	recorder  *eventstore.Recorder
	engine    *analysis.Engine
	generator *report.Generator
	history   *report.History
	publisher EventPublisher
	topic     string
	startTime time.Time
}

// NewHandler creates an API handler.
func NewHandler(recorder *eventstore.Recorder, engine *analysis.Engine, generator *report.Generator, history *report.History) *Handler {
	return &Handler{
		recorder:  recorder,
		engine:    engine,
		generator: generator,
		history:   history,
		startTime: time.Now(),
	}
}

// SetEventPublisher routes ingested events through the message bus on
// the given topic instead of recording them in-process.
func (h *Handler) SetEventPublisher(publisher EventPublisher, topic string) {
	h.publisher = publisher
	h.topic = topic
}

// ingestEvent accepts one event, either by publishing it to the bus or
// by recording it directly.
func (h *Handler) ingestEvent(ctx context.Context, event *models.Event) error {
	if h.publisher != nil {
		if err := event.Validate(); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
		if event.EventID == "" {
			event.EventID = uuid.New().String()
		}
		return h.publisher.PublishEvent(ctx, h.topic, event)
	}
	return h.recorder.Record(ctx, event, "http")
}

// RecordEvent handles POST /api/v1/events.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}

	if err := h.ingestEvent(r.Context(), &event); err != nil {
		rw.ValidationError("event rejected", err.Error())
		return
	}

	if h.publisher != nil {
		rw.Accepted(map[string]string{"event_id": event.EventID})
		return
	}
	rw.Created(map[string]string{"event_id": event.EventID})
}

// BatchResult summarizes a batch ingestion request.
type BatchResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// RecordEventBatch handles POST /api/v1/events/batch.
func (h *Handler) RecordEventBatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var events []models.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if len(events) == 0 {
		rw.BadRequest("empty batch")
		return
	}
	if len(events) > maxBatchSize {
		rw.BadRequest(fmt.Sprintf("batch exceeds %d events", maxBatchSize))
		return
	}

	result := BatchResult{}
	for i := range events {
		if err := h.ingestEvent(r.Context(), &events[i]); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("event %d: %v", i, err))
			continue
		}
		result.Accepted++
	}

	if h.publisher != nil {
		rw.Accepted(result)
		return
	}
	rw.Created(result)
}

// EventStats handles GET /api/v1/events/stats.
func (h *Handler) EventStats(w http.ResponseWriter, r *http.Request) {
	store := h.recorder.Store()
	NewResponseWriter(w, r).Success(map[string]int{
		"events": store.Len(),
		"users":  store.DistinctUsers(),
	})
}

// Experiments handles GET /api/v1/experiments.
func (h *Handler) Experiments(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Experiments())
}

// ExperimentGet handles GET /api/v1/experiments/{id}.
func (h *Handler) ExperimentGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	exp, ok := h.engine.Experiment(chi.URLParam(r, "id"))
	if !ok {
		rw.NotFound("experiment not found")
		return
	}
	rw.Success(exp)
}

// ExperimentDecision handles GET /api/v1/experiments/{id}/decision.
func (h *Handler) ExperimentDecision(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := chi.URLParam(r, "id")
	if _, ok := h.engine.Experiment(id); !ok {
		rw.NotFound("experiment not found")
		return
	}

	decision, ok := h.engine.Decision(id)
	if !ok {
		rw.NotFound("no analysis pass has run yet")
		return
	}
	rw.Success(decision)
}

// RunAnalysis handles POST /api/v1/analysis/run.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	decisions, err := h.engine.RunAnalysisPass(r.Context())
	if err != nil {
		rw.InternalError("analysis pass failed")
		return
	}
	rw.Success(decisions)
}

// Reports handles GET /api/v1/reports/{type}.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	reportType, ok := h.reportType(rw, r)
	if !ok {
		return
	}
	rw.Success(h.history.Reports(reportType))
}

// ReportLatest handles GET /api/v1/reports/{type}/latest.
func (h *Handler) ReportLatest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	reportType, ok := h.reportType(rw, r)
	if !ok {
		return
	}

	rep, ok := h.history.Latest(reportType)
	if !ok {
		rw.NotFound("no reports generated yet")
		return
	}
	rw.Success(rep)
}

// ReportGet handles GET /api/v1/reports/{type}/{id}.
func (h *Handler) ReportGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	reportType, ok := h.reportType(rw, r)
	if !ok {
		return
	}

	rep, ok := h.history.Find(chi.URLParam(r, "id"))
	if !ok || rep.Type != reportType {
		rw.NotFound("report not found")
		return
	}
	rw.Success(rep)
}

// GenerateReportRequest is the body for POST /api/v1/reports/generate.
type GenerateReportRequest struct {
	Type models.ReportType `json:"type"`
}

// GenerateReport handles POST /api/v1/reports/generate.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if !req.Type.Valid() {
		rw.BadRequest("type must be daily, weekly, or monthly")
		return
	}

	// Reports reflect fresh decisions.
	if _, err := h.engine.RunAnalysisPass(r.Context()); err != nil {
		rw.InternalError("analysis pass failed")
		return
	}

	rep := h.generator.Generate(req.Type, h.engine, time.Now())
	rw.Created(rep)
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady handles GET /api/v1/health/ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "ready",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"experiments":    len(h.engine.Experiments()),
	})
}

func (h *Handler) reportType(rw *ResponseWriter, r *http.Request) (models.ReportType, bool) {
	reportType := models.ReportType(chi.URLParam(r, "type"))
	if !reportType.Valid() {
		rw.BadRequest("type must be daily, weekly, or monthly")
		return "", false
	}
	return reportType, true
}
