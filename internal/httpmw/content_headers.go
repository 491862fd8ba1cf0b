package httpmw

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContentInfo reports the state of the last content validation pass for
// response headers. content.Status satisfies it via a small adapter in
// httpserver.
type ContentInfo interface {
	// ContentCheckedAt is the time of the last completed validation pass,
	// zero if none has run.
	ContentCheckedAt() time.Time
	// ContentFailing is the number of registered files currently failing.
	ContentFailing() int
}

// ContentHeaders adds X-Content-Checked and X-Content-Failing headers so
// operators can see validation state on any response, and mirrors them onto
// the active span.
func ContentHeaders(info ContentInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info != nil {
				checked := info.ContentCheckedAt()
				failing := info.ContentFailing()
				if !checked.IsZero() {
					w.Header().Set("X-Content-Checked", checked.UTC().Format(time.RFC3339))
					w.Header().Set("X-Content-Failing", strconv.Itoa(failing))
				}
				if span := trace.SpanFromContext(r.Context()); span != nil && span.IsRecording() {
					if !checked.IsZero() {
						span.SetAttributes(
							attribute.String("content.checked_at", checked.UTC().Format(time.RFC3339)),
							attribute.Int("content.failing", failing),
						)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
