package content

import (
	"sync/atomic"
	"time"

	"github.com/commonshub/commonshub-web/internal/xerrors"
)

// Status holds the most recent batch validation report behind an atomic
// pointer. Readiness probes and handlers read it lock-free; the startup
// pass and the watchers write it.
type Status struct {
	active atomic.Pointer[Report]
}

func NewStatus() *Status { return &Status{} }

// Set records a completed batch report as the current one.
func (s *Status) Set(r *Report) {
	if r == nil {
		return
	}
	s.active.Store(r)
}

// Get returns the current report, or nil if no pass has completed yet.
func (s *Status) Get() *Report { return s.active.Load() }

// ContentCheckedAt returns the time of the last completed validation pass,
// or the zero time if none has run. With ContentFailing it backs the
// X-Content-Checked and X-Content-Failing response headers.
func (s *Status) ContentCheckedAt() time.Time {
	r := s.active.Load()
	if r == nil {
		return time.Time{}
	}
	return r.CheckedAt
}

// ContentFailing returns the number of files failing in the last pass.
func (s *Status) ContentFailing() int {
	r := s.active.Load()
	if r == nil {
		return 0
	}
	return r.Failed()
}

// ReadyErr returns nil once a validation pass has completed and every
// registered file passed. It is the readiness probe's check function.
func (s *Status) ReadyErr() error {
	r := s.active.Load()
	if r == nil {
		return xerrors.New("content validation has not completed")
	}
	if !r.OK() {
		return xerrors.Newf("content validation failing for %d file(s)", r.Failed())
	}
	return nil
}
