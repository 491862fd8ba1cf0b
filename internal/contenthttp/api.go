package contenthttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commonshub/commonshub-web/internal/content"
	"github.com/commonshub/commonshub-web/internal/log"
	"github.com/commonshub/commonshub-web/internal/schema"
)

// LoaderSource yields the loader the API should read through. The bundle
// manager swaps loaders when a new content bundle lands; a static content
// root uses FixedSource.
type LoaderSource interface {
	Loader() *content.Loader
}

// FixedSource wraps a single loader that never changes.
type FixedSource struct {
	L *content.Loader
}

func (f FixedSource) Loader() *content.Loader { return f.L }

// API serves validated content documents over HTTP.
type API struct {
	source   LoaderSource
	registry *content.Registry
	status   *content.Status
	logger   log.Logger
}

// NewAPI creates a content API handler.
func NewAPI(source LoaderSource, registry *content.Registry, status *content.Status, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		source:   source,
		registry: registry,
		status:   status,
		logger:   logger,
	}
}

// RegisterRoutes attaches content endpoints to the router.
func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/content", api.HandleList)
	r.Get("/api/content/{name}", api.HandleDocument)

	// Convenience routes for the documents the frontend fetches directly.
	r.Get("/api/events", typedHandler[content.EventsDoc](api, "events.json", content.EventsDescriptor()))
	r.Get("/api/cities", typedHandler[content.CitiesDoc](api, "cities.json", content.CitiesDescriptor()))
	r.Get("/api/presenters", typedHandler[content.PresentersDoc](api, "presenters.json", content.PresentersDescriptor()))
	r.Get("/api/presentations", typedHandler[content.PresentationsDoc](api, "presentations.json", content.PresentationsDescriptor()))
}

// ListEntry is one row of the document listing.
type ListEntry struct {
	Filename string `json:"filename"`
	OK       bool   `json:"ok"`
	Kind     string `json:"kind,omitempty"`
}

// ListResponse is the /api/content response body.
type ListResponse struct {
	Documents []ListEntry `json:"documents"`
	CheckedAt *time.Time  `json:"checkedAt,omitempty"`
}

// HandleList serves the registered document names with the pass/fail state
// from the most recent validation report.
func (api *API) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	byName := map[string]content.FileResult{}
	resp := ListResponse{}
	if report := api.status.Get(); report != nil {
		t := report.CheckedAt
		resp.CheckedAt = &t
		for _, res := range report.Results {
			byName[res.Filename] = res
		}
	}

	for _, name := range api.registry.Names() {
		entry := ListEntry{Filename: name, OK: true}
		if res, ok := byName[name]; ok && !res.OK() {
			entry.OK = false
			entry.Kind = res.Err.Kind.String()
		}
		resp.Documents = append(resp.Documents, entry)
	}

	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// HandleDocument loads and serves one registered document by filename.
// Validation runs on every request; a document that fails its shape check
// is never served.
func (api *API) HandleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	desc, ok := api.registry.Lookup(name)
	if !ok {
		api.writeError(w, http.StatusNotFound, "not found")
		return
	}

	loader := api.source.Loader()
	if loader == nil {
		api.writeError(w, http.StatusServiceUnavailable, "content not loaded")
		return
	}

	doc, err := loader.Load(ctx, name, desc)
	if err != nil {
		api.serveLoadError(ctx, w, name, err)
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, doc)
}

func typedHandler[T any](api *API, filename string, desc *schema.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		loader := api.source.Loader()
		if loader == nil {
			api.writeError(w, http.StatusServiceUnavailable, "content not loaded")
			return
		}
		doc, err := content.LoadAs[T](ctx, loader, filename, desc)
		if err != nil {
			api.serveLoadError(ctx, w, filename, err)
			return
		}
		api.writeJSON(ctx, w, http.StatusOK, doc)
	}
}

// serveLoadError maps a load failure to an HTTP status. Missing files are
// 404s; everything else is a generic 500. Violation detail stays in the
// logs, it is never echoed to clients.
func (api *API) serveLoadError(ctx context.Context, w http.ResponseWriter, name string, err error) {
	var lerr *content.LoadError
	if errors.As(err, &lerr) && lerr.Kind == content.NotFound {
		api.writeError(w, http.StatusNotFound, "not found")
		return
	}
	api.logger.Error(ctx, err, "content request failed", "filename", name)
	api.writeError(w, http.StatusInternalServerError, "content unavailable")
}

// StatusHandler serves the most recent batch validation report as JSON.
// The ops server mounts this at /-/content.
func (api *API) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := api.status.Get()
		if report == nil {
			api.writeError(w, http.StatusServiceUnavailable, "content validation has not completed")
			return
		}
		api.writeJSON(r.Context(), w, http.StatusOK, report)
	})
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}

func (api *API) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
