package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/commonshub/commonshub-web/internal/log"
	"github.com/commonshub/commonshub-web/internal/pathutil"
	"github.com/commonshub/commonshub-web/internal/schema"
	"github.com/commonshub/commonshub-web/internal/xerrors"
)

// LoadMetrics receives the outcome of every load attempt. Implementations
// live in internal/metrics; the interface keeps this package free of a
// prometheus dependency.
type LoadMetrics interface {
	LoadObserved(filename, result string)
	LoadFailed(filename, kind string)
}

// Loader reads and validates content documents from a root filesystem.
// Every call opens the file fresh; the loader keeps no state between calls.
type Loader struct {
	fsys    fs.FS
	root    string
	logger  log.Logger
	metrics LoadMetrics
}

type LoaderOption func(*Loader)

func WithLogger(l log.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

func WithMetrics(m LoadMetrics) LoaderOption {
	return func(ld *Loader) { ld.metrics = m }
}

// WithFS replaces the OS-backed root with an arbitrary filesystem. Tests
// and the bundle manager use this.
func WithFS(fsys fs.FS) LoaderOption {
	return func(ld *Loader) { ld.fsys = fsys }
}

// NewLoader returns a loader rooted at dir. Pass options to override the
// logger, attach metrics, or substitute the filesystem.
func NewLoader(dir string, opts ...LoaderOption) (*Loader, error) {
	if dir == "" {
		return nil, xerrors.New("content: root directory is required")
	}
	ld := &Loader{
		root:   dir,
		logger: log.Nop(),
	}
	for _, o := range opts {
		o(ld)
	}
	if ld.fsys == nil {
		ld.fsys = os.DirFS(dir)
	}
	return ld, nil
}

// Root returns the configured content root directory.
func (l *Loader) Root() string { return l.root }

// Result carries the outcome of an asynchronous load. Exactly one of Doc
// and Err is set.
type Result struct {
	Doc any
	Err error
}

// Load reads filename under the content root, parses it as JSON, and checks
// it against desc. On success it returns the decoded document. On failure it
// returns a *LoadError classified as NotFound, ParseFailure, ShapeMismatch,
// or Unknown; the error is logged before it is returned.
func (l *Loader) Load(ctx context.Context, filename string, desc *schema.Descriptor) (any, error) {
	doc, _, lerr := l.load(ctx, filename, desc)
	if lerr != nil {
		return nil, lerr
	}
	return doc, nil
}

// LoadAsync performs the same load as Load on a separate goroutine and
// delivers the single Result on the returned channel. The channel is
// buffered; the caller may abandon it without leaking the goroutine.
func (l *Loader) LoadAsync(ctx context.Context, filename string, desc *schema.Descriptor) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		doc, _, lerr := l.load(ctx, filename, desc)
		if lerr != nil {
			ch <- Result{Err: lerr}
			return
		}
		ch <- Result{Doc: doc}
	}()
	return ch
}

// LoadAs loads and validates filename, then unmarshals the raw document
// into T. Validation runs against the generic decoded form first, so T only
// sees documents that already conform to desc.
func LoadAs[T any](ctx context.Context, l *Loader, filename string, desc *schema.Descriptor) (T, error) {
	var zero T
	_, raw, lerr := l.load(ctx, filename, desc)
	if lerr != nil {
		return zero, lerr
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		e := unknownError(filename, err)
		l.diagnose(ctx, e)
		return zero, e
	}
	return out, nil
}

// load is the single path every public load variant routes through, so the
// sync and async forms cannot diverge.
func (l *Loader) load(ctx context.Context, filename string, desc *schema.Descriptor) (any, []byte, *LoadError) {
	if !pathutil.SafeRelative(filename) {
		e := unknownError(filename, fmt.Errorf("unsafe content filename %q", filename))
		l.diagnose(ctx, e)
		return nil, nil, e
	}
	if desc == nil {
		e := unknownError(filename, fmt.Errorf("no descriptor for %q", filename))
		l.diagnose(ctx, e)
		return nil, nil, e
	}

	raw, err := fs.ReadFile(l.fsys, filename)
	if err != nil {
		e := classifyRead(filename, err)
		l.diagnose(ctx, e)
		return nil, nil, e
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		e := classifyParse(filename, err)
		l.diagnose(ctx, e)
		return nil, nil, e
	}

	if violations := desc.Check(doc); len(violations) > 0 {
		e := shapeError(filename, violations)
		l.diagnose(ctx, e)
		return nil, nil, e
	}

	l.observe(filename, "ok")
	return doc, raw, nil
}

// diagnose logs a load failure before it propagates. Logging is best
// effort; a panicking log sink must not mask the original error.
func (l *Loader) diagnose(ctx context.Context, e *LoadError) {
	l.observe(e.Filename, "error")
	if l.metrics != nil {
		l.metrics.LoadFailed(e.Filename, e.Kind.String())
	}

	defer func() {
		_ = recover()
	}()

	kv := []any{
		"filename", e.Filename,
		"kind", e.Kind.String(),
	}
	if len(e.Violations) > 0 {
		kv = append(kv, "violations", len(e.Violations))
		for _, v := range e.Violations {
			l.logger.Warn(ctx, "content shape violation",
				"filename", e.Filename,
				"path", v.Path,
				"expected", v.Expected,
				"actual", v.Actual,
			)
		}
	}
	l.logger.Error(ctx, e, "content load failed", kv...)
}

func (l *Loader) observe(filename, result string) {
	if l.metrics != nil {
		l.metrics.LoadObserved(filename, result)
	}
}
