package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

func TestHealthHandlerHealthy(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{status: types.SystemStatus{
		State: types.HealthHealthy,
		Components: map[string]types.ComponentHealth{
			"corpus": {State: types.HealthHealthy, Message: "1 documents, 4 chunks"},
		},
		CheckedAt: time.Now(),
	}}
	h := NewHealthHandler(engine, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status types.SystemStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.State != types.HealthHealthy || len(status.Components) != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestHealthHandlerDownIs503(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{status: types.SystemStatus{State: types.HealthDown, CheckedAt: time.Now()}}
	h := NewHealthHandler(engine, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", rec.Code)
	}
}

func TestHealthHandlerDegradedStaysReady(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{status: types.SystemStatus{State: types.HealthDegraded, CheckedAt: time.Now()}}
	h := NewHealthHandler(engine, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHealthHandlerLiveness(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(&fakeEngine{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}

func TestHealthHandlerVersion(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(&fakeEngine{}, zap.NewNop())
	handler := h.HandleVersion("1.2.3", "2026-08-30", "abc123")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.GitCommit != "abc123" {
		t.Fatalf("unexpected version info: %+v", info)
	}
}
