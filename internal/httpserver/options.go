package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagedesk/pagedesk/internal/health"
	"github.com/pagedesk/pagedesk/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	Health       health.Probe
	Readiness    health.Probe

	// APIRoutes registers the editing endpoints on the router.
	APIRoutes func(chi.Router)
}
