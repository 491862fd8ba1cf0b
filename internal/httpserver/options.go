package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commonshub/commonshub-web/internal/health"
	"github.com/commonshub/commonshub-web/internal/httpmw"
	"github.com/commonshub/commonshub-web/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	UseRecoverMW bool
	PanicCounter httpmw.PanicCounter

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler

	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe

	// ContentInfo drives the X-Content-Checked / X-Content-Failing headers.
	ContentInfo httpmw.ContentInfo

	// APIRoutes mounts the content API onto the public router.
	APIRoutes func(chi.Router)
}
