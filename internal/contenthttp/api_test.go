package contenthttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/commonshub/commonshub-web/internal/content"
	"github.com/commonshub/commonshub-web/internal/log"
)

// newTestAPI builds an API over a temp content root seeded with the given
// files, plus a router with the routes registered.
func newTestAPI(t *testing.T, files map[string]string) (*API, *chi.Mux) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	loader, err := content.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	api := NewAPI(FixedSource{L: loader}, content.Default(), content.NewStatus(), log.Nop())
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return api, r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

const validEvents = `{"items":[{"id":"ev-1","title":"Intro Night","date":"2026-03-01"}]}`

func TestHandleDocument_ServesValidDocument(t *testing.T) {
	_, r := newTestAPI(t, map[string]string{"events.json": validEvents})

	rec := get(t, r, "/api/content/events.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Intro Night") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleDocument_UnregisteredNameIs404(t *testing.T) {
	_, r := newTestAPI(t, nil)

	rec := get(t, r, "/api/content/secrets.json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleDocument_MissingFileIs404(t *testing.T) {
	_, r := newTestAPI(t, nil)

	rec := get(t, r, "/api/content/events.json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleDocument_InvalidDocumentIs500WithoutDetail(t *testing.T) {
	// date is numeric, so the shape check fails
	_, r := newTestAPI(t, map[string]string{
		"events.json": `{"items":[{"id":"ev-1","title":"Intro Night","date":20260301}]}`,
	})

	rec := get(t, r, "/api/content/events.json")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "date") || strings.Contains(body, "violation") {
		t.Errorf("violation detail leaked to client: %q", body)
	}
	if !strings.Contains(body, "content unavailable") {
		t.Errorf("body = %q", body)
	}
}

func TestHandleList_ReflectsValidationReport(t *testing.T) {
	api, r := newTestAPI(t, map[string]string{"events.json": validEvents})

	// simulate a completed validation pass with one failing file
	report, err := content.ValidateAll(context.Background(), mustLoader(t, api), content.Default())
	if err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	api.status.Set(report)

	rec := get(t, r, "/api/content")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Documents) != content.Default().Len() {
		t.Fatalf("documents = %d", len(resp.Documents))
	}
	if resp.CheckedAt == nil {
		t.Error("checkedAt missing after a validation pass")
	}
	for _, d := range resp.Documents {
		switch d.Filename {
		case "events.json":
			if !d.OK {
				t.Errorf("events.json reported failing")
			}
		case "site.json":
			if d.OK {
				t.Errorf("site.json reported ok but file is absent")
			}
			if d.Kind != "not_found" {
				t.Errorf("site.json kind = %q", d.Kind)
			}
		}
	}
}

func mustLoader(t *testing.T, api *API) *content.Loader {
	t.Helper()
	return api.source.Loader()
}

func TestTypedRoute_ServesEvents(t *testing.T) {
	_, r := newTestAPI(t, map[string]string{"events.json": validEvents})

	rec := get(t, r, "/api/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var doc content.EventsDoc
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Items) != 1 || doc.Items[0].ID != "ev-1" {
		t.Fatalf("items = %+v", doc.Items)
	}
}

func TestTypedRoute_MissingFileIs404(t *testing.T) {
	_, r := newTestAPI(t, nil)

	rec := get(t, r, "/api/cities")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	api, _ := newTestAPI(t, map[string]string{"events.json": validEvents})
	h := api.StatusHandler()

	// no pass yet
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/-/content", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before pass = %d", rec.Code)
	}

	report, err := content.ValidateAll(context.Background(), mustLoader(t, api), content.Default())
	if err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	api.status.Set(report)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/-/content", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status after pass = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "results") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
