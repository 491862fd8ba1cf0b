package content

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/commonshub/commonshub-web/internal/log"
	"github.com/commonshub/commonshub-web/internal/xerrors"
)

// WatchMetrics receives watcher activity counts. Implementations live in
// internal/metrics.
type WatchMetrics interface {
	WatchEvent()
	WatchPass(ok bool)
}

// WatcherOptions configures a dev-mode content watcher.
type WatcherOptions struct {
	Loader   *Loader
	Registry *Registry
	Status   *Status

	// Debounce collapses bursts of filesystem events into one validation
	// pass. Defaults to 250ms.
	Debounce time.Duration

	// OnPass, if set, is called after each completed validation pass.
	// Panics in the callback are contained.
	OnPass func(*Report)

	Logger  log.Logger
	Metrics WatchMetrics
}

// Watcher re-validates the content root whenever files under it change.
// It is a local development aid; deployed instances use the bundle watcher.
type Watcher struct {
	opts WatcherOptions
}

func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Loader == nil {
		return nil, xerrors.New("content watcher requires a loader")
	}
	if opts.Registry == nil {
		return nil, xerrors.New("content watcher requires a registry")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Watcher{opts: opts}, nil
}

// Run watches the content root until ctx is canceled. Each debounced burst
// of events triggers one full validation pass; the resulting report is
// stored in Status (when configured) regardless of pass/fail, so probes see
// the current truth.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create fs watcher")
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Loader.Root()); err != nil {
		return xerrors.Wrapf(err, "watch %s", w.opts.Loader.Root())
	}

	w.opts.Logger.Info(ctx, "content watcher started",
		"root", w.opts.Loader.Root(),
		"debounce", w.opts.Debounce.String(),
	)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return xerrors.New("fs watcher event channel closed")
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.opts.Metrics != nil {
				w.opts.Metrics.WatchEvent()
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return xerrors.New("fs watcher error channel closed")
			}
			w.opts.Logger.Error(ctx, err, "fs watcher error")

		case <-fire:
			timer = nil
			fire = nil
			w.revalidate(ctx)
		}
	}
}

func (w *Watcher) revalidate(ctx context.Context) {
	report, err := ValidateAll(ctx, w.opts.Loader, w.opts.Registry)
	if err != nil {
		w.opts.Logger.Error(ctx, err, "content revalidation aborted")
		return
	}
	if w.opts.Status != nil {
		w.opts.Status.Set(report)
	}
	if w.opts.Metrics != nil {
		w.opts.Metrics.WatchPass(report.OK())
	}
	if report.OK() {
		w.opts.Logger.Info(ctx, "content revalidated",
			"files", len(report.Results),
		)
	} else {
		w.opts.Logger.Warn(ctx, "content revalidation found failures",
			"failed", report.Failed(),
			"passed", report.Passed(),
		)
	}
	w.notify(ctx, report)
}

func (w *Watcher) notify(ctx context.Context, report *Report) {
	if w.opts.OnPass == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.opts.Logger.Error(ctx, xerrors.Newf("panic: %v", r), "content watch callback panicked")
		}
	}()
	w.opts.OnPass(report)
}
