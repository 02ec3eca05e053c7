package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_HandlerExposesRegisteredMetrics(t *testing.T) {
	r := NewRegistry()
	r.MessagesIngested.WithLabelValues("log").Inc()
	r.ChunksCreated.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "quiry_messages_ingested_total") {
		t.Errorf("expected messages_ingested metric in output")
	}
	if !strings.Contains(body, "quiry_chunks_created_total") {
		t.Errorf("expected chunks_created metric in output")
	}
}

func TestNewRegistry_IndependentInstances(t *testing.T) {
	// must not panic on duplicate registration across independent registries
	NewRegistry()
	NewRegistry()
}
