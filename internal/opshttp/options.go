package opshttp

import (
	"net/http"

	"github.com/commonshub/commonshub-web/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe

	// ContentStatus, if set, is served as JSON at /-/content for operators.
	ContentStatus http.Handler
}
