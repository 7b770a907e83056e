package opshttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagedesk/pagedesk/internal/health"
	"github.com/pagedesk/pagedesk/internal/metrics"
)

func TestMuxHealthRoutes(t *testing.T) {
	mux := NewMux(Options{
		Health:    health.Fixed(true, ""),
		Readiness: health.Fixed(false, "repo not open"),
	})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/-/healthy", nil))
	if w.Code != http.StatusOK {
		t.Errorf("healthy = %d", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/-/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "repo not open") {
		t.Errorf("ready body = %q", w.Body.String())
	}
}

func TestMuxMetrics(t *testing.T) {
	m := metrics.New()
	mux := NewMux(Options{Metrics: m.Handler()})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}

func TestMuxPprofGating(t *testing.T) {
	mux := NewMux(Options{})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/debug/pprof/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("pprof disabled = %d, want 404", w.Code)
	}

	mux = NewMux(Options{EnablePprof: true})
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/debug/pprof/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("pprof enabled = %d, want 200", w.Code)
	}
}
