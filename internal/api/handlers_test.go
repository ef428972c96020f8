// SplitStat - Experimentation Analytics and Decision Engine
// Copyright 2026 SplitStat Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/splitstat/splitstat

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/splitstat/splitstat/internal/analysis"
	"github.com/splitstat/splitstat/internal/eventstore"
	"github.com/splitstat/splitstat/internal/models"
	"github.com/splitstat/splitstat/internal/report"
)

type testEnv struct {
	store   *eventstore.Store
	engine  *analysis.Engine
	history *report.History
	handler *Handler
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := eventstore.NewStore()
	recorder := eventstore.NewRecorder(store, eventstore.NopLog{})

	exp := &models.Experiment{
		ID:              "thumbnail",
		Name:            "Thumbnail Test",
		Variants:        []models.Variant{{ID: "A", Name: "Current"}, {ID: "B", Name: "New"}},
		PrimaryMetric:   models.MetricCompletionRate,
		StartDate:       time.Now().Add(-10 * 24 * time.Hour),
		MinimumSample:   100,
		MinimumDuration: 7 * 24 * time.Hour,
		ConfidenceLevel: 0.95,
	}
	engine := analysis.NewEngine(store, analysis.NewRegistry(), []*models.Experiment{exp}, analysis.DefaultSessionTimeout)

	history := report.NewHistory(30, 10, 10)
	generator := report.NewGenerator(history, nil)

	handler := NewHandler(recorder, engine, generator, history)
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	server := httptest.NewServer(NewRouter(handler, mw).Setup())
	t.Cleanup(server.Close)

	return &testEnv{store: store, engine: engine, history: history, handler: handler, server: server}
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeResponse(t *testing.T, resp *http.Response, data interface{}) testEnvelope {
	t.Helper()
	defer resp.Body.Close()

	var envelope testEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if data != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return envelope
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getJSON(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

type capturePublisher struct {
	mu     sync.Mutex
	topic  string
	events []*models.Event
}

func (p *capturePublisher) PublishEvent(_ context.Context, topic string, event *models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.events = append(p.events, event)
	return nil
}

func TestRecordEvent(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.server.URL+"/api/v1/events", map[string]interface{}{
		"userId":    "u1",
		"event":     "start",
		"timestamp": 1700000000000,
		"properties": map[string]string{
			"exp_thumbnail": "A",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var data map[string]string
	envelope := decodeResponse(t, resp, &data)
	if !envelope.Success {
		t.Error("expected success envelope")
	}
	if data["event_id"] == "" {
		t.Error("expected event_id in response")
	}
	if env.store.Len() != 1 {
		t.Errorf("expected 1 stored event, got %d", env.store.Len())
	}
}

func TestRecordEventValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{
			name: "missing user",
			body: map[string]interface{}{"event": "start", "timestamp": 1700000000000},
			want: http.StatusBadRequest,
		},
		{
			name: "missing type",
			body: map[string]interface{}{"userId": "u1", "timestamp": 1700000000000},
			want: http.StatusBadRequest,
		},
		{
			name: "zero timestamp",
			body: map[string]interface{}{"userId": "u1", "event": "start"},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, env.server.URL+"/api/v1/events", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}

	if env.store.Len() != 0 {
		t.Errorf("invalid events must not be stored, got %d", env.store.Len())
	}
}

func TestRecordEventMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/v1/events", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRecordEventBatch(t *testing.T) {
	env := newTestEnv(t)

	batch := []map[string]interface{}{
		{"userId": "u1", "event": "start", "timestamp": 1700000000000},
		{"event": "start", "timestamp": 1700000001000}, // missing user
		{"userId": "u2", "event": "complete", "timestamp": 1700000002000},
	}

	resp := postJSON(t, env.server.URL+"/api/v1/events/batch", batch)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var result BatchResult
	decodeResponse(t, resp, &result)
	if result.Accepted != 2 || result.Rejected != 1 {
		t.Errorf("expected 2 accepted / 1 rejected, got %d/%d", result.Accepted, result.Rejected)
	}
	if env.store.Len() != 2 {
		t.Errorf("expected 2 stored events, got %d", env.store.Len())
	}
}

func TestRecordEventPublishesToBus(t *testing.T) {
	env := newTestEnv(t)
	pub := &capturePublisher{}
	env.handler.SetEventPublisher(pub, "events.tracked")

	resp := postJSON(t, env.server.URL+"/api/v1/events", map[string]interface{}{
		"userId":    "u1",
		"event":     "start",
		"timestamp": 1700000000000,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var data map[string]string
	decodeResponse(t, resp, &data)
	if data["event_id"] == "" {
		t.Error("expected assigned event_id")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	if pub.topic != "events.tracked" {
		t.Errorf("expected topic events.tracked, got %q", pub.topic)
	}
	if pub.events[0].EventID != data["event_id"] {
		t.Errorf("published event_id %q does not match response %q", pub.events[0].EventID, data["event_id"])
	}
	// Recording happens on the consumer side, not in the handler.
	if env.store.Len() != 0 {
		t.Errorf("expected no direct store writes, got %d", env.store.Len())
	}
}

func TestRecordEventBatchPublishesToBus(t *testing.T) {
	env := newTestEnv(t)
	pub := &capturePublisher{}
	env.handler.SetEventPublisher(pub, "events.tracked")

	batch := []map[string]interface{}{
		{"userId": "u1", "event": "start", "timestamp": 1700000000000},
		{"event": "start", "timestamp": 1700000001000}, // missing user
	}

	resp := postJSON(t, env.server.URL+"/api/v1/events/batch", batch)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var result BatchResult
	decodeResponse(t, resp, &result)
	if result.Accepted != 1 || result.Rejected != 1 {
		t.Errorf("expected 1 accepted / 1 rejected, got %d/%d", result.Accepted, result.Rejected)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Errorf("expected 1 published event, got %d", len(pub.events))
	}
}

func TestEventStats(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, env.server.URL+"/api/v1/events", map[string]interface{}{
			"userId": fmt.Sprintf("u%d", i), "event": "start", "timestamp": 1700000000000 + i,
		})
		resp.Body.Close()
	}

	resp := getJSON(t, env.server.URL+"/api/v1/events/stats")
	var stats map[string]int
	decodeResponse(t, resp, &stats)
	if stats["events"] != 3 || stats["users"] != 3 {
		t.Errorf("expected 3 events / 3 users, got %+v", stats)
	}
}

func TestExperimentEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := getJSON(t, env.server.URL+"/api/v1/experiments")
	var experiments []models.Experiment
	decodeResponse(t, resp, &experiments)
	if len(experiments) != 1 || experiments[0].ID != "thumbnail" {
		t.Fatalf("unexpected experiments: %+v", experiments)
	}

	resp = getJSON(t, env.server.URL+"/api/v1/experiments/thumbnail")
	var exp models.Experiment
	decodeResponse(t, resp, &exp)
	if exp.Name != "Thumbnail Test" {
		t.Errorf("unexpected experiment: %+v", exp)
	}

	resp = getJSON(t, env.server.URL+"/api/v1/experiments/missing")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown experiment, got %d", resp.StatusCode)
	}
}

func TestDecisionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// No pass has run yet.
	resp := getJSON(t, env.server.URL+"/api/v1/experiments/thumbnail/decision")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before first pass, got %d", resp.StatusCode)
	}

	resp = postJSON(t, env.server.URL+"/api/v1/analysis/run", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from analysis run, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, env.server.URL+"/api/v1/experiments/thumbnail/decision")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after pass, got %d", resp.StatusCode)
	}
	var decision models.Decision
	decodeResponse(t, resp, &decision)
	if decision.State != models.DecisionAccumulating {
		t.Errorf("empty store should be accumulating, got %s", decision.State)
	}
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t)

	// Nothing generated yet.
	resp := getJSON(t, env.server.URL+"/api/v1/reports/daily/latest")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before first report, got %d", resp.StatusCode)
	}

	resp = postJSON(t, env.server.URL+"/api/v1/reports/generate", GenerateReportRequest{Type: models.ReportDaily})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from generate, got %d", resp.StatusCode)
	}
	var generated models.Report
	decodeResponse(t, resp, &generated)
	if generated.Type != models.ReportDaily || generated.ID == "" {
		t.Fatalf("unexpected report: %+v", generated)
	}

	resp = getJSON(t, env.server.URL+"/api/v1/reports/daily")
	var reports []models.Report
	decodeResponse(t, resp, &reports)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	resp = getJSON(t, env.server.URL+"/api/v1/reports/daily/latest")
	var latest models.Report
	decodeResponse(t, resp, &latest)
	if latest.ID != generated.ID {
		t.Errorf("latest report ID = %q, want %q", latest.ID, generated.ID)
	}

	resp = getJSON(t, env.server.URL+"/api/v1/reports/daily/"+generated.ID)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 fetching report by ID, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, env.server.URL+"/api/v1/reports/hourly")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown report type, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		resp := getJSON(t, env.server.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	resp := getJSON(t, env.server.URL+"/api/v1/health/live")
	defer resp.Body.Close()

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Meta == nil || envelope.Meta.RequestID == "" {
		t.Error("expected request ID in response meta")
	}
}
