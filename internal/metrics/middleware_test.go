package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func histogramCount(t *testing.T, m *ServerMetrics, name string) uint64 {
	t.Helper()
	f := gatherMetric(t, m.reg, name)
	if f == nil {
		t.Fatalf("metric %q not found", name)
	}
	var count uint64
	for _, metric := range f.GetMetric() {
		count += metric.GetHistogram().GetSampleCount()
	}
	return count
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	sw.WriteHeader(http.StatusNotFound)

	if sw.status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", sw.status)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("underlying code = %d, want 404", rec.Code)
	}
}

func TestStatusWriter_Write_DefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	n, err := sw.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
	if sw.status != http.StatusOK {
		t.Fatalf("status = %d, want 200", sw.status)
	}
	if sw.n != 5 {
		t.Fatalf("bytes = %d, want 5", sw.n)
	}
}

func TestStatusWriter_Write_AccumulatesBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	sw.Write([]byte("aaa"))
	sw.Write([]byte("bbbbb"))

	if sw.n != 8 {
		t.Fatalf("bytes = %d, want 8", sw.n)
	}
}

func TestMiddleware_IncrementsReqTotal(t *testing.T) {
	m := New()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/content", http.NoBody)
	handler.ServeHTTP(rec, req)

	f := gatherMetric(t, m.reg, "http_requests_total")
	if f == nil {
		t.Fatal("http_requests_total not found")
	}
	var total float64
	for _, metric := range f.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 1 {
		t.Fatalf("http_requests_total = %f, want 1", total)
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	m := New()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/content", http.NoBody))

	if count := histogramCount(t, m, "http_request_duration_seconds"); count != 1 {
		t.Fatalf("duration histogram count = %d, want 1", count)
	}
}

func TestMiddleware_RecordsResponseSize(t *testing.T) {
	m := New()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello world")) // 11 bytes
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	f := gatherMetric(t, m.reg, "http_response_size_bytes")
	if f == nil {
		t.Fatal("http_response_size_bytes not found")
	}
	h := f.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Fatalf("response size count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() != 11 {
		t.Fatalf("response size sum = %f, want 11", h.GetSampleSum())
	}
}

func TestMiddleware_ChiRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/content/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/content/events.json", http.NoBody)
	r.ServeHTTP(rec, req)

	f := gatherMetric(t, m.reg, "http_requests_total")
	if f == nil {
		t.Fatal("metric not found")
	}

	labels := make(map[string]string)
	for _, lp := range f.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["route"] != "/api/content/{name}" {
		t.Fatalf("route = %q, want /api/content/{name}", labels["route"])
	}
}

func TestMiddleware_NoRouterFallsBackToPath(t *testing.T) {
	m := New()

	// No chi router - middleware creates its own route context and the
	// pattern stays empty, so the raw path is used.
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/custom/path", http.NoBody))

	f := gatherMetric(t, m.reg, "http_requests_total")
	labels := make(map[string]string)
	for _, lp := range f.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["route"] != "/custom/path" {
		t.Fatalf("route = %q, want /custom/path", labels["route"])
	}
}

func TestMiddleware_ServerErrorsCounted(t *testing.T) {
	m := New()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/content", http.NoBody))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/content", http.NoBody))

	if val := counterValue(t, m.reg, "http_errors_total"); val != 2 {
		t.Fatalf("http_errors_total = %f, want 2", val)
	}
}

func TestMiddleware_MultipleRequests(t *testing.T) {
	m := New()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", http.NoBody))
	}

	f := gatherMetric(t, m.reg, "http_requests_total")
	var total float64
	for _, metric := range f.GetMetric() {
		total += metric.GetCounter().GetValue()
	}
	if total != 10 {
		t.Fatalf("total requests = %f, want 10", total)
	}
	if count := histogramCount(t, m, "http_request_duration_seconds"); count != 10 {
		t.Fatalf("duration count = %d, want 10", count)
	}
}
