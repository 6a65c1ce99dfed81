package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/domain/ports/usecase"
	"course-copy/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// StaleJobReaper periodically fails jobs left EXECUTING by a process that
// died mid-copy, and exports whose task was lost before any worker started
// them, together with the import still waiting on them.
type StaleJobReaper struct {
	interval   time.Duration
	staleAfter time.Duration
	jobs       repository.CopyJobRepository
	notifier   usecase.CompletionNotifier
	log        *zerolog.Logger
	now        func() time.Time
}

func NewStaleJobReaper(interval, staleAfter time.Duration, jobs repository.CopyJobRepository, notifier usecase.CompletionNotifier, logger *zerolog.Logger) *StaleJobReaper {
	reaperLog := logger.With().Str("component", "StaleJobReaper").Logger()
	return &StaleJobReaper{
		interval:   interval,
		staleAfter: staleAfter,
		jobs:       jobs,
		notifier:   notifier,
		log:        &reaperLog,
		now:        time.Now,
	}
}

func (w *StaleJobReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("stale_after", w.staleAfter).Msg("Starting stale job reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale job reaper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.Sweep(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("stale job sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stale jobs failed")
			}
		}
	}
}

// Sweep fails every stale job once and returns how many records it moved.
func (w *StaleJobReaper) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.staleAfter)
	stale, err := w.jobs.ListStale(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}

	failed := 0
	for _, job := range stale {
		reason := fmt.Sprintf("no progress since %s", job.UpdatedAt.UTC().Format(time.RFC3339))
		if job.Status == model.JobStatusAwaiting {
			reason = fmt.Sprintf("never started, queued at %s", job.CreatedAt.UTC().Format(time.RFC3339))
		}
		moved, err := w.fail(ctx, job, reason)
		if err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to reap job")
			continue
		}
		if !moved {
			continue
		}
		failed++

		other, err := w.jobs.FindByID(ctx, repository.NoTX, job.PairedJobID)
		if err != nil {
			w.log.Warn().Err(err).Str("job_id", job.PairedJobID).Msg("paired job not loaded")
			continue
		}
		if !other.Status.IsTerminal() {
			ok, err := w.fail(ctx, other, "source job failed: "+reason)
			if err != nil {
				w.log.Error().Err(err).Str("job_id", other.ID).Msg("failed to reap paired job")
				continue
			}
			if ok {
				failed++
			}
		}
		w.notify(ctx, job, other)
	}
	return failed, nil
}

func (w *StaleJobReaper) fail(ctx context.Context, job *model.JobRecord, reason string) (bool, error) {
	err := w.jobs.Fail(ctx, repository.NoTX, job.ID, reason)
	switch {
	case err == nil:
		job.Status, job.Progress, job.LastError = model.JobStatusFinishedError, 1, reason
		metrics.IncCopyJobFinished(string(job.Kind), string(model.JobStatusFinishedError))
		w.log.Warn().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("stale job failed")
		return true, nil
	case errors.Is(err, domain.ErrInvalidTransition):
		return false, nil
	}
	return false, err
}

func (w *StaleJobReaper) notify(ctx context.Context, a, b *model.JobRecord) {
	if w.notifier == nil || !a.Status.IsTerminal() || !b.Status.IsTerminal() {
		return
	}
	export, imp := a, b
	if a.Kind == model.JobKindImport {
		export, imp = b, a
	}
	if err := w.notifier.NotifyCompletion(ctx, export, imp); err != nil {
		metrics.IncNotification("failed")
		w.log.Error().Err(err).Str("export_job_id", export.ID).Msg("completion notification failed")
		return
	}
	metrics.IncNotification("sent")
}
