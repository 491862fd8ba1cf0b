package httpmw

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/commonshub/commonshub-web/internal/log"
)

// responseWriter wraps http.ResponseWriter to capture status and bytes written
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// support Flush if the underlying writer does.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// support Hijack (websockets, etc).
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

// WithLogger enriches the request context with a logger carrying stable
// request identity fields, and mirrors them onto the active span.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			reqID := RequestIDFromContext(ctx)

			clientAddr := ClientIPFromContext(ctx)
			if clientAddr == "" {
				clientAddr = r.RemoteAddr
			}
			peerAddr := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peerAddr); err == nil {
				peerAddr = host
			}

			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span != nil {
				if sc := span.SpanContext(); sc.IsValid() {
					span.SetAttributes(
						attribute.String("request_id", reqID),
						attribute.String("server.address", r.Host),
						attribute.String("client.address", clientAddr),
						attribute.String("network.peer.address", peerAddr),
						attribute.String("url.scheme", scheme),
					)
				}
			}

			L := base.With(
				"request_id", reqID,
				"client.address", clientAddr,
				"network.peer.address", peerAddr,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			ctx = log.WithContext(ctx, L)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog writes one structured record per completed request, using the
// logger WithLogger placed in the context. Health endpoints are skipped.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var reqBodySize int64
			if r.ContentLength > 0 {
				reqBodySize = r.ContentLength
			}

			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			ctx := r.Context()
			L := log.FromContext(ctx)

			if r.URL.Path == "/-/ready" || r.URL.Path == "/-/healthy" {
				return
			}

			status := rw.status
			if status == 0 {
				status = http.StatusOK
			}

			routePat := ""
			if rc := chi.RouteContext(ctx); rc != nil {
				routePat = rc.RoutePattern()
			}
			if routePat == "" {
				routePat = r.URL.Path
			}

			L.Info(ctx, "http request",
				"http.response.status_code", status,
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.response.body.size", rw.bytes,
				"http.request.body.size", reqBodySize,
				"http.route", routePat,
			)
		})
	}
}

func schemeFromRequest(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	if r.URL != nil && r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the context logger and span with the handling component.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			L := log.FromContext(ctx).With("handler", handler)
			ctx = log.WithContext(ctx, L)

			if span := trace.SpanFromContext(ctx); span != nil && span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
