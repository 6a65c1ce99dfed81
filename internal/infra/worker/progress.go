package worker

import (
	"context"
	"sync"
	"time"

	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// DefaultProgressInterval is the write throttle when none is configured.
const DefaultProgressInterval = 5 * time.Second

// ProgressStore is the slice of the job store the reporter writes to.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, tx repository.Tx, id string, progress float64) error
}

// ProgressReporter journals fractional completion at most once per
// interval per job. Final and 1.0 reports always go through. One reporter
// lives for one worker invocation.
type ProgressReporter struct {
	store    ProgressStore
	interval time.Duration
	now      func() time.Time
	log      *zerolog.Logger

	mu   sync.Mutex
	last map[string]time.Time
}

type ProgressOption func(*ProgressReporter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ProgressOption {
	return func(r *ProgressReporter) { r.now = now }
}

func NewProgressReporter(store ProgressStore, interval time.Duration, logger *zerolog.Logger, opts ...ProgressOption) *ProgressReporter {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	r := &ProgressReporter{
		store:    store,
		interval: interval,
		now:      time.Now,
		log:      logger,
		last:     make(map[string]time.Time),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Report persists fraction for jobID unless the previous write is younger
// than the interval. It returns whether a write was attempted.
func (r *ProgressReporter) Report(ctx context.Context, jobID string, fraction float64, final bool) (bool, error) {
	fraction = clamp(fraction)
	now := r.now()

	r.mu.Lock()
	last, seen := r.last[jobID]
	if seen && now.Sub(last) < r.interval && !final && fraction < 1 {
		r.mu.Unlock()
		metrics.IncProgressWrite("throttled")
		return false, nil
	}
	r.last[jobID] = now
	r.mu.Unlock()

	if err := r.store.UpdateProgress(ctx, repository.NoTX, jobID, fraction); err != nil {
		metrics.IncProgressWrite("failed")
		return true, err
	}
	metrics.IncProgressWrite("written")
	return true, nil
}

// Bind returns a sink that reports on behalf of one job. Write failures
// are logged and otherwise ignored; progress is best effort.
func (r *ProgressReporter) Bind(jobID string) adapter.ProgressSink {
	return &boundSink{r: r, jobID: jobID}
}

type boundSink struct {
	r     *ProgressReporter
	jobID string
}

func (s *boundSink) Report(ctx context.Context, fraction float64) {
	if _, err := s.r.Report(ctx, s.jobID, fraction, false); err != nil {
		s.r.log.Warn().Err(err).Str("job_id", s.jobID).Float64("progress", fraction).Msg("progress write failed")
	}
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
