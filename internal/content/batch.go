package content

import (
	"context"
	"errors"
	"time"
)

// FileResult is the outcome of validating one registered document.
type FileResult struct {
	Filename string     `json:"filename"`
	Err      *LoadError `json:"error,omitempty"`
}

// OK reports whether the file validated cleanly.
func (r FileResult) OK() bool { return r.Err == nil }

// Report is the outcome of one batch validation pass over a registry.
// Results are ordered by filename.
type Report struct {
	Root      string       `json:"root"`
	CheckedAt time.Time    `json:"checkedAt"`
	Results   []FileResult `json:"results"`
}

// Passed counts files that validated cleanly.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed counts files that did not validate.
func (r *Report) Failed() int { return len(r.Results) - r.Passed() }

// OK reports whether every registered file validated.
func (r *Report) OK() bool { return r.Failed() == 0 }

// ValidateAll loads every registered document and collects per-file results.
// It always checks every file; a failure in one never short-circuits the
// rest. The only error return is context cancellation.
func ValidateAll(ctx context.Context, loader *Loader, registry *Registry) (*Report, error) {
	report := &Report{
		Root:      loader.Root(),
		CheckedAt: time.Now().UTC(),
	}
	for _, name := range registry.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desc, _ := registry.Lookup(name)
		_, err := loader.Load(ctx, name, desc)
		res := FileResult{Filename: name}
		if err != nil {
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				lerr = unknownError(name, err)
			}
			res.Err = lerr
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}
