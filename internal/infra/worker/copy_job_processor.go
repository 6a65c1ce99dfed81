package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/domain/ports/usecase"
	"course-copy/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const terminalWriteAttempts = 3

var errFinishedElsewhere = errors.New("job finished by another writer")

// Locker claims a copy for one worker process.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// LockKey is the lock guarding one copy, keyed by its export job.
func LockKey(exportJobID string) string { return "copy_lock:" + exportJobID }

type ProcessorConfig struct {
	ProgressInterval time.Duration
	// PhaseTimeout bounds each of the export and import phases. Zero means
	// no bound.
	PhaseTimeout time.Duration
	LockTTL      time.Duration
	RetryBackoff time.Duration
}

// CopyJobProcessor drives one export/import pair to terminal states.
type CopyJobProcessor struct {
	jobs     repository.CopyJobRepository
	requests repository.CopyRequestRepository
	courses  repository.CourseRepository
	exporter adapter.Exporter
	importer adapter.Importer
	notifier usecase.CompletionNotifier
	locker   Locker
	cfg      ProcessorConfig
	log      *zerolog.Logger
}

func NewCopyJobProcessor(
	jobs repository.CopyJobRepository,
	requests repository.CopyRequestRepository,
	courses repository.CourseRepository,
	exporter adapter.Exporter,
	importer adapter.Importer,
	notifier usecase.CompletionNotifier,
	locker Locker,
	cfg ProcessorConfig,
	logger *zerolog.Logger,
) *CopyJobProcessor {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 6 * time.Hour
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	compLog := logger.With().Str("component", "CopyJobProcessor").Logger()
	return &CopyJobProcessor{
		jobs:     jobs,
		requests: requests,
		courses:  courses,
		exporter: exporter,
		importer: importer,
		notifier: notifier,
		locker:   locker,
		cfg:      cfg,
		log:      &compLog,
	}
}

// copyRun is the state of one Execute call.
type copyRun struct {
	export   *model.JobRecord
	imp      *model.JobRecord
	reporter *ProgressReporter
	archives []*adapter.ArchiveHandle
	changed  bool
	log      *zerolog.Logger
}

func (r *copyRun) hold(h *adapter.ArchiveHandle) {
	if h != nil {
		r.archives = append(r.archives, h)
	}
}

// Execute runs the copy described by task. Phase failures end up in the
// job records, not in the returned error; an error means the task could
// not be claimed or loaded.
func (p *CopyJobProcessor) Execute(ctx context.Context, task model.CopyTask) error {
	log := p.log.With().
		Str("export_job_id", task.ExportJobID).
		Str("import_job_id", task.ImportJobID).
		Logger()

	if p.locker != nil {
		key := LockKey(task.ExportJobID)
		token, err := p.locker.TryLock(ctx, key, p.cfg.LockTTL)
		if err != nil {
			log.Warn().Err(err).Msg("copy already claimed")
			return fmt.Errorf("claim copy %s: %w", task.ExportJobID, err)
		}
		defer func() {
			if err := p.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn().Err(err).Msg("failed to release copy lock")
			}
		}()
	}

	export, err := p.jobs.FindByID(ctx, repository.NoTX, task.ExportJobID)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	imp, err := p.jobs.FindByID(ctx, repository.NoTX, task.ImportJobID)
	if err != nil {
		return fmt.Errorf("load import job: %w", err)
	}
	if export.Kind != model.JobKindExport || !export.PairedWith(imp) {
		log.Error().Msg("task does not reference an export/import pair")
		return domain.ErrJobPairMismatch
	}

	run := &copyRun{
		export:   export,
		imp:      imp,
		reporter: NewProgressReporter(p.jobs, p.cfg.ProgressInterval, &log),
		log:      &log,
	}
	// Deferred in this order so archives are released before the user
	// hears about the outcome.
	defer p.notify(ctx, run)
	defer p.release(ctx, run)

	log.Info().Str("course_id", export.SubjectID).Str("target_course_id", imp.SubjectID).Msg("copy started")

	if err := p.start(ctx, run.export); err != nil {
		log.Error().Err(err).Msg("export precondition failed")
		p.fail(ctx, run, run.export, err)
		p.fail(ctx, run, run.imp, fmt.Errorf("export %s did not run: %w", export.ID, err))
		return nil
	}

	started := time.Now()
	handoff, err := p.exportPhase(ctx, run)
	metrics.ObservePhase(string(model.JobKindExport), time.Since(started), err == nil)
	if err != nil {
		log.Error().Err(err).Msg("export phase failed")
		p.fail(ctx, run, run.export, err)
		p.fail(ctx, run, run.imp, fmt.Errorf("export %s failed: %w", export.ID, err))
		return nil
	}
	p.finalProgress(ctx, run, run.export)
	if !p.succeed(ctx, run, run.export) {
		p.fail(ctx, run, run.imp, errors.New("export result could not be recorded"))
		return nil
	}

	started = time.Now()
	err = p.importPhase(ctx, run, handoff)
	metrics.ObservePhase(string(model.JobKindImport), time.Since(started), err == nil)
	if errors.Is(err, errFinishedElsewhere) {
		// whoever finished the import also notifies
		log.Warn().Err(err).Msg("import finished by another writer, overrides skipped")
		run.changed = false
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("import phase failed")
		p.fail(ctx, run, run.imp, err)
		return nil
	}
	p.finalProgress(ctx, run, run.imp)
	p.succeed(ctx, run, run.imp)
	return nil
}

// start moves job from AWAITING to EXECUTING.
func (p *CopyJobProcessor) start(ctx context.Context, job *model.JobRecord) error {
	if job.Status != model.JobStatusAwaiting {
		return fmt.Errorf("%w: %s job %s is %s", domain.ErrUnexpectedJobState, job.Kind, job.ID, job.Status)
	}
	err := p.jobs.Transition(ctx, repository.NoTX, job.ID, model.JobStatusAwaiting, model.JobStatusExecuting, "")
	if errors.Is(err, domain.ErrInvalidTransition) {
		return fmt.Errorf("%w: %s job %s changed before start", domain.ErrUnexpectedJobState, job.Kind, job.ID)
	}
	if err != nil {
		return fmt.Errorf("start %s job: %w", job.Kind, err)
	}
	job.Status = model.JobStatusExecuting
	return nil
}

func (p *CopyJobProcessor) exportPhase(ctx context.Context, run *copyRun) (*adapter.ArchiveHandle, error) {
	pctx, cancel := p.phaseContext(ctx)
	defer cancel()

	archive, err := p.exporter.Run(pctx, run.export.SubjectID, run.reporter.Bind(run.export.ID))
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	run.hold(archive)

	handoff, err := p.exporter.Extract(pctx, archive, run.imp.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("extract archive: %w", err)
	}
	if handoff != nil && (archive == nil || handoff.Key != archive.Key) {
		run.hold(handoff)
	}
	return handoff, nil
}

func (p *CopyJobProcessor) importPhase(ctx context.Context, run *copyRun, handoff *adapter.ArchiveHandle) error {
	pctx, cancel := p.phaseContext(ctx)
	defer cancel()

	target := run.imp.SubjectID
	if err := p.importer.Convert(pctx, handoff, target); err != nil {
		return fmt.Errorf("convert archive: %w", err)
	}

	fresh, err := p.jobs.FindByID(ctx, repository.NoTX, run.imp.ID)
	if err != nil {
		return fmt.Errorf("reload import job: %w", err)
	}
	run.imp = fresh
	if err := p.start(ctx, run.imp); err != nil {
		return err
	}

	req, err := p.requests.FindByExportJobID(ctx, repository.NoTX, run.export.ID)
	if err != nil {
		return fmt.Errorf("load copy request: %w", err)
	}
	opts := adapter.ImportOptions{IncludeMemberData: req.IncludeMemberData, KeepMemberIDs: req.KeepMemberIDs}
	if err := p.importer.Run(pctx, handoff, target, opts, run.reporter.Bind(run.imp.ID)); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	// Another writer (the stale reaper) may have finished the job while
	// the importer ran; the overrides belong to a successful import only.
	current, err := p.jobs.FindByID(ctx, repository.NoTX, run.imp.ID)
	if err != nil {
		return fmt.Errorf("reload import job: %w", err)
	}
	if current.Status != model.JobStatusExecuting {
		run.imp = current
		return fmt.Errorf("%w: import job %s is %s", errFinishedElsewhere, current.ID, current.Status)
	}

	// The importer writes its own defaults; the caller's values go last.
	if err := p.courses.ApplyOverrides(ctx, repository.NoTX, target, req.Overrides()); err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	return nil
}

func (p *CopyJobProcessor) phaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.PhaseTimeout > 0 {
		return context.WithTimeout(ctx, p.cfg.PhaseTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *CopyJobProcessor) finalProgress(ctx context.Context, run *copyRun, job *model.JobRecord) {
	if _, err := run.reporter.Report(ctx, job.ID, 1, true); err != nil {
		run.log.Warn().Err(err).Str("job_id", job.ID).Msg("final progress write failed")
	}
}

func (p *CopyJobProcessor) succeed(ctx context.Context, run *copyRun, job *model.JobRecord) bool {
	return p.terminal(ctx, run, job, model.JobStatusFinishedOK, func(ctx context.Context) error {
		return p.jobs.Transition(ctx, repository.NoTX, job.ID, model.JobStatusExecuting, model.JobStatusFinishedOK, "")
	})
}

func (p *CopyJobProcessor) fail(ctx context.Context, run *copyRun, job *model.JobRecord, cause error) bool {
	reason := cause.Error()
	return p.terminal(ctx, run, job, model.JobStatusFinishedError, func(ctx context.Context) error {
		return p.jobs.Fail(ctx, repository.NoTX, job.ID, reason)
	})
}

// terminal performs a terminal status write. It survives cancellation of
// ctx and is retried, since a job left non-terminal is never cleaned up.
func (p *CopyJobProcessor) terminal(ctx context.Context, run *copyRun, job *model.JobRecord, status model.JobStatus, write func(context.Context) error) bool {
	wctx := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= terminalWriteAttempts; attempt++ {
		if err = write(wctx); err == nil {
			job.Status, job.Progress = status, 1
			run.changed = true
			metrics.IncCopyJobFinished(string(job.Kind), string(status))
			run.log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Str("status", string(status)).Msg("job finished")
			return true
		}
		if errors.Is(err, domain.ErrInvalidTransition) {
			run.log.Warn().Str("job_id", job.ID).Msg("job already terminal")
			return false
		}
		if attempt < terminalWriteAttempts {
			time.Sleep(p.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	metrics.IncTerminalWriteFailure()
	run.log.Error().Err(err).Str("job_id", job.ID).Str("status", string(status)).Msg("terminal status write failed")
	return false
}

func (p *CopyJobProcessor) release(ctx context.Context, run *copyRun) {
	rctx := context.WithoutCancel(ctx)
	for _, h := range run.archives {
		if err := p.exporter.Release(rctx, h); err != nil {
			run.log.Warn().Err(err).Str("archive", h.Key).Msg("failed to release archive")
		}
	}
}

// notify tells the initiator about the outcome, once, from the run that
// moved the pair into its final state.
func (p *CopyJobProcessor) notify(ctx context.Context, run *copyRun) {
	if !run.changed || p.notifier == nil {
		return
	}
	nctx := context.WithoutCancel(ctx)
	export, err := p.jobs.FindByID(nctx, repository.NoTX, run.export.ID)
	if err != nil {
		export = run.export
	}
	imp, err := p.jobs.FindByID(nctx, repository.NoTX, run.imp.ID)
	if err != nil {
		imp = run.imp
	}
	if !export.Status.IsTerminal() || !imp.Status.IsTerminal() {
		run.log.Warn().Str("export_status", string(export.Status)).Str("import_status", string(imp.Status)).Msg("copy not finished, skipping notification")
		return
	}
	if err := p.notifier.NotifyCompletion(nctx, export, imp); err != nil {
		metrics.IncNotification("failed")
		run.log.Error().Err(err).Msg("completion notification failed")
		return
	}
	metrics.IncNotification("sent")
}
