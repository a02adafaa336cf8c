package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServer_HealthReflectsRunningState(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New("127.0.0.1:0", reg)
	s.SetRunning(true)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health body: %v", err)
	}
	if !body["running"] {
		t.Fatalf("expected running=true, got %v", body)
	}

	s.SetRunning(false)
	rec = httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health body: %v", err)
	}
	if body["running"] {
		t.Fatalf("expected running=false, got %v", body)
	}
}

func TestServer_MetricsEndpointExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.TicksTotal.Inc()
	m.Connections.Set(3)

	s := New("127.0.0.1:0", reg)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "soratop_ticks_total 1") {
		t.Errorf("expected soratop_ticks_total 1 in output:\n%s", out)
	}
	if !strings.Contains(out, "soratop_connections 3") {
		t.Errorf("expected soratop_connections 3 in output:\n%s", out)
	}
}
