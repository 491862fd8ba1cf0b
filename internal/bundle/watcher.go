// Watcher polls SSM for content bundle hash changes, downloads and verifies
// new bundles, validates every registered document, and hot-swaps the active
// loader in the Manager only when the whole bundle passes.
package bundle

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/commonshub/commonshub-web/internal/content"
	"github.com/commonshub/commonshub-web/internal/log"
)

const (
	// DefaultPollInterval is how often the watcher checks SSM for a new hash.
	DefaultPollInterval = time.Minute

	// maxBackoff caps exponential backoff on consecutive SSM errors.
	maxBackoff = 5 * time.Minute
)

// pollResult describes what happened during a single poll cycle.
type pollResult int

const (
	pollNoChange        pollResult = iota // SSM hash matches current
	pollSwapped                           // new hash detected, bundle validated and swapped
	pollSSMError                          // SSM fetch failed, caller should back off
	pollLoadError                         // download/extract failed
	pollValidationError                   // bundle extracted but content failed validation
)

// HashFetcher is the interface the Watcher needs from a Fetcher. Extracted
// to enable test doubles.
type HashFetcher interface {
	CurrentHash(ctx context.Context) (string, error)
	Fetch(ctx context.Context, hash string) (string, error)
}

// Metrics is implemented by the metrics package to observe watcher behavior.
type Metrics interface {
	IncBundlePolls()
	IncBundleSwaps()
	IncBundleError(errType string)
	ObserveBundleLoadDuration(seconds float64)
	SetBundle(sha256 string)
}

// WatcherOptions configures the bundle watcher.
type WatcherOptions struct {
	Logger       log.Logger
	Fetcher      HashFetcher
	Manager      *Manager
	Registry     *content.Registry
	Status       *content.Status
	PollInterval time.Duration

	// LoaderMetrics is attached to the loader built for each new bundle.
	LoaderMetrics content.LoadMetrics

	// OnSwap is called after a successful bundle swap, synchronously on the
	// poll goroutine.
	OnSwap func(hash string)

	// Metrics receives poll, swap, error, and duration signals.
	Metrics Metrics
}

// Watcher polls for bundle changes and swaps validated bundles into the
// manager.
type Watcher struct {
	fetcher       HashFetcher
	manager       *Manager
	registry      *content.Registry
	status        *content.Status
	logger        log.Logger
	interval      time.Duration
	loaderMetrics content.LoadMetrics
	onSwap        func(hash string)
	metrics       Metrics

	currentHash     string
	consecutiveErrs int

	pollCount int64
	swapCount int64
}

// NewWatcher creates a bundle watcher. Call Run to start the poll loop.
func NewWatcher(opts *WatcherOptions) (*Watcher, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("bundle: Fetcher is required")
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("bundle: Manager is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("bundle: Registry is required")
	}
	if opts.Status == nil {
		return nil, fmt.Errorf("bundle: Status is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Watcher{
		fetcher:       opts.Fetcher,
		manager:       opts.Manager,
		registry:      opts.Registry,
		status:        opts.Status,
		logger:        logger,
		interval:      interval,
		loaderMetrics: opts.LoaderMetrics,
		onSwap:        opts.OnSwap,
		metrics:       opts.Metrics,
		// seed from the manager so the first poll does not re-install what
		// startup already loaded
		currentHash: opts.Manager.Hash(),
	}, nil
}

// Run starts the poll loop. Blocks until ctx is cancelled.
// Intended to be launched as: go watcher.Run(ctx)
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "bundle watcher starting",
		"poll_interval", w.interval.String(),
		"current_hash", truncHash(w.currentHash),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "bundle watcher stopping",
				"reason", ctx.Err(),
				"polls", w.pollCount,
				"swaps", w.swapCount,
			)
			return ctx.Err()
		case <-ticker.C:
			result := w.checkOnce(ctx)

			if result == pollSSMError {
				w.consecutiveErrs++
				backoff := w.backoffDuration()
				w.logger.Warn(ctx, "bundle watcher: backing off",
					"consecutive_errors", w.consecutiveErrs,
					"next_poll_in", backoff.String(),
				)
				ticker.Reset(backoff)
			} else if w.consecutiveErrs > 0 {
				w.logger.Info(ctx, "bundle watcher: recovered, resuming normal interval",
					"had_consecutive_errors", w.consecutiveErrs,
				)
				w.consecutiveErrs = 0
				ticker.Reset(w.interval)
			}
		}
	}
}

// checkOnce performs a single poll-compare-swap cycle.
func (w *Watcher) checkOnce(ctx context.Context) pollResult {
	w.pollCount++
	if w.metrics != nil {
		w.metrics.IncBundlePolls()
	}

	hash, err := w.fetcher.CurrentHash(ctx)
	if err != nil {
		w.logger.Error(ctx, err, "bundle watcher: SSM poll failed")
		if w.metrics != nil {
			w.metrics.IncBundleError("ssm")
		}
		return pollSSMError
	}

	// no change is the common path
	if hashEqual(hash, w.currentHash) {
		return pollNoChange
	}

	w.logger.Info(ctx, "bundle watcher: new bundle hash detected",
		"old_hash", truncHash(w.currentHash),
		"new_hash", truncHash(hash),
	)

	loadStart := time.Now()
	dir, err := w.fetcher.Fetch(ctx, hash)
	loadDur := time.Since(loadStart).Seconds()
	if w.metrics != nil {
		w.metrics.ObserveBundleLoadDuration(loadDur)
	}
	if err != nil {
		w.logger.Error(ctx, err, "bundle watcher: failed to fetch bundle",
			"hash", truncHash(hash),
		)
		if w.metrics != nil {
			w.metrics.IncBundleError("load")
		}
		return pollLoadError
	}

	loader, err := content.NewLoader(dir,
		content.WithLogger(w.logger),
		content.WithMetrics(w.loaderMetrics),
	)
	if err != nil {
		w.logger.Error(ctx, err, "bundle watcher: failed to open bundle",
			"hash", truncHash(hash),
		)
		if w.metrics != nil {
			w.metrics.IncBundleError("load")
		}
		return pollLoadError
	}

	// validate every registered document before swapping
	report, err := content.ValidateAll(ctx, loader, w.registry)
	if err != nil {
		w.logger.Error(ctx, err, "bundle watcher: validation interrupted",
			"hash", truncHash(hash),
		)
		if w.metrics != nil {
			w.metrics.IncBundleError("validation")
		}
		return pollValidationError
	}
	if !report.OK() {
		w.logger.Error(ctx, fmt.Errorf("%d of %d file(s) failing", report.Failed(), len(report.Results)),
			"bundle watcher: new bundle failed validation, keeping current content",
			"rejected_hash", truncHash(hash),
			"current_hash", truncHash(w.currentHash),
		)
		if w.metrics != nil {
			w.metrics.IncBundleError("validation")
		}
		return pollValidationError
	}

	// atomic swap; requests in flight keep the old loader
	oldHash := w.currentHash
	w.manager.Set(loader, hash)
	w.status.Set(report)
	w.currentHash = hash
	w.swapCount++

	w.logger.Info(ctx, "bundle watcher: bundle swapped",
		"old_hash", truncHash(oldHash),
		"new_hash", truncHash(hash),
		"total_swaps", w.swapCount,
	)

	if w.metrics != nil {
		w.metrics.IncBundleSwaps()
		w.metrics.SetBundle(hash)
	}

	if w.onSwap != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error(ctx, fmt.Errorf("OnSwap panic: %v", r),
						"bundle watcher: OnSwap callback panicked, continuing",
						"hash", truncHash(hash),
					)
				}
			}()
			w.onSwap(hash)
		}()
	}

	return pollSwapped
}

// backoffDuration computes exponential backoff capped at maxBackoff.
// consecutiveErrs=1 gives 2x interval, =2 gives 4x, and so on.
func (w *Watcher) backoffDuration() time.Duration {
	mult := math.Pow(2, float64(w.consecutiveErrs))
	d := time.Duration(float64(w.interval) * mult)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
