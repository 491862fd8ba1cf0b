package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/commonshub/commonshub-web/internal/content"
)

// fakeFetcher serves bundles from pre-extracted local directories.
type fakeFetcher struct {
	hash     string
	hashErr  error
	dirs     map[string]string
	fetchErr error
}

func (f *fakeFetcher) CurrentHash(ctx context.Context) (string, error) {
	return f.hash, f.hashErr
}

func (f *fakeFetcher) Fetch(ctx context.Context, hash string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	dir, ok := f.dirs[hash]
	if !ok {
		return "", errors.New("no such bundle")
	}
	return dir, nil
}

type recordingMetrics struct {
	polls, swaps int
	errs         []string
	durations    int
	bundleHash   string
}

func (m *recordingMetrics) IncBundlePolls()                      { m.polls++ }
func (m *recordingMetrics) IncBundleSwaps()                      { m.swaps++ }
func (m *recordingMetrics) IncBundleError(errType string)        { m.errs = append(m.errs, errType) }
func (m *recordingMetrics) ObserveBundleLoadDuration(s float64)  { m.durations++ }
func (m *recordingMetrics) SetBundle(sha256 string)              { m.bundleHash = sha256 }

const validSite = `{"name":"Commons Hub","description":"community site","baseUrl":"https://example.org"}`

// siteRegistry registers the single document the watcher tests validate.
func siteRegistry() *content.Registry {
	r := content.NewRegistry()
	r.Register("site.json", content.SiteDescriptor())
	return r
}

// bundleDir writes files into a fresh directory and returns its path.
func bundleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newTestWatcher(t *testing.T, fetcher *fakeFetcher, m Metrics) (*Watcher, *Manager, *content.Status) {
	t.Helper()
	mgr := NewManager()
	status := content.NewStatus()
	w, err := NewWatcher(&WatcherOptions{
		Fetcher:  fetcher,
		Manager:  mgr,
		Registry: siteRegistry(),
		Status:   status,
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return w, mgr, status
}

func TestNewWatcher_RequiresCollaborators(t *testing.T) {
	if _, err := NewWatcher(&WatcherOptions{}); err == nil {
		t.Fatal("empty options accepted")
	}
}

func TestCheckOnce_SwapsValidBundle(t *testing.T) {
	dir := bundleDir(t, map[string]string{"site.json": validSite})
	fetcher := &fakeFetcher{hash: "hash-1", dirs: map[string]string{"hash-1": dir}}
	m := &recordingMetrics{}
	w, mgr, status := newTestWatcher(t, fetcher, m)

	if got := w.checkOnce(context.Background()); got != pollSwapped {
		t.Fatalf("result = %d, want pollSwapped", got)
	}

	if mgr.Loader() == nil {
		t.Fatal("manager has no loader after swap")
	}
	if mgr.Hash() != "hash-1" {
		t.Errorf("manager hash = %q", mgr.Hash())
	}
	if report := status.Get(); report == nil || !report.OK() {
		t.Errorf("status report = %+v", report)
	}
	if m.swaps != 1 || m.polls != 1 || m.bundleHash != "hash-1" {
		t.Errorf("metrics = %+v", m)
	}

	// the installed loader serves the bundle's content
	doc, err := mgr.Loader().Load(context.Background(), "site.json", content.SiteDescriptor())
	if err != nil {
		t.Fatalf("load from swapped bundle: %v", err)
	}
	if doc == nil {
		t.Fatal("nil document")
	}
}

func TestCheckOnce_NoChange(t *testing.T) {
	dir := bundleDir(t, map[string]string{"site.json": validSite})
	fetcher := &fakeFetcher{hash: "hash-1", dirs: map[string]string{"hash-1": dir}}
	w, _, _ := newTestWatcher(t, fetcher, nil)

	if got := w.checkOnce(context.Background()); got != pollSwapped {
		t.Fatalf("first poll = %d", got)
	}
	if got := w.checkOnce(context.Background()); got != pollNoChange {
		t.Fatalf("second poll = %d, want pollNoChange", got)
	}
}

func TestCheckOnce_RejectsInvalidBundle(t *testing.T) {
	good := bundleDir(t, map[string]string{"site.json": validSite})
	bad := bundleDir(t, map[string]string{"site.json": `{"name":""}`})
	fetcher := &fakeFetcher{hash: "hash-1", dirs: map[string]string{
		"hash-1": good,
		"hash-2": bad,
	}}
	m := &recordingMetrics{}
	w, mgr, _ := newTestWatcher(t, fetcher, m)

	if got := w.checkOnce(context.Background()); got != pollSwapped {
		t.Fatalf("first poll = %d", got)
	}

	fetcher.hash = "hash-2"
	if got := w.checkOnce(context.Background()); got != pollValidationError {
		t.Fatalf("second poll = %d, want pollValidationError", got)
	}

	// the good bundle stays active
	if mgr.Hash() != "hash-1" {
		t.Errorf("manager hash = %q, want hash-1", mgr.Hash())
	}
	if len(m.errs) != 1 || m.errs[0] != "validation" {
		t.Errorf("error metrics = %v", m.errs)
	}
}

func TestCheckOnce_SSMError(t *testing.T) {
	fetcher := &fakeFetcher{hashErr: errors.New("ssm unavailable")}
	m := &recordingMetrics{}
	w, _, _ := newTestWatcher(t, fetcher, m)

	if got := w.checkOnce(context.Background()); got != pollSSMError {
		t.Fatalf("result = %d, want pollSSMError", got)
	}
	if len(m.errs) != 1 || m.errs[0] != "ssm" {
		t.Errorf("error metrics = %v", m.errs)
	}
}

func TestCheckOnce_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{hash: "hash-1", fetchErr: errors.New("s3 unavailable")}
	m := &recordingMetrics{}
	w, mgr, _ := newTestWatcher(t, fetcher, m)

	if got := w.checkOnce(context.Background()); got != pollLoadError {
		t.Fatalf("result = %d, want pollLoadError", got)
	}
	if mgr.Loader() != nil {
		t.Error("loader installed despite fetch failure")
	}
	if len(m.errs) != 1 || m.errs[0] != "load" {
		t.Errorf("error metrics = %v", m.errs)
	}
}

func TestCheckOnce_OnSwapPanicContained(t *testing.T) {
	dir := bundleDir(t, map[string]string{"site.json": validSite})
	fetcher := &fakeFetcher{hash: "hash-1", dirs: map[string]string{"hash-1": dir}}

	mgr := NewManager()
	w, err := NewWatcher(&WatcherOptions{
		Fetcher:  fetcher,
		Manager:  mgr,
		Registry: siteRegistry(),
		Status:   content.NewStatus(),
		OnSwap:   func(hash string) { panic("callback boom") },
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	if got := w.checkOnce(context.Background()); got != pollSwapped {
		t.Fatalf("result = %d, swap must survive a panicking callback", got)
	}
	if mgr.Hash() != "hash-1" {
		t.Errorf("manager hash = %q", mgr.Hash())
	}
}

func TestBackoffDuration(t *testing.T) {
	w := &Watcher{interval: time.Second}

	w.consecutiveErrs = 1
	if got := w.backoffDuration(); got != 2*time.Second {
		t.Errorf("backoff(1) = %v", got)
	}
	w.consecutiveErrs = 3
	if got := w.backoffDuration(); got != 8*time.Second {
		t.Errorf("backoff(3) = %v", got)
	}
	w.consecutiveErrs = 20
	if got := w.backoffDuration(); got != maxBackoff {
		t.Errorf("backoff(20) = %v, want cap", got)
	}
}

func TestManager_EmptyBeforeFirstSwap(t *testing.T) {
	mgr := NewManager()
	if mgr.Loader() != nil || mgr.Hash() != "" || !mgr.LoadedAt().IsZero() {
		t.Error("fresh manager not empty")
	}
	mgr.Set(nil, "x")
	if mgr.Loader() != nil {
		t.Error("nil loader installed")
	}
}
