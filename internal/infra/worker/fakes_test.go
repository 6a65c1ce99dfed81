//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/adapter"
	"course-copy/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

type memJobs struct {
	mu            sync.Mutex
	jobs          map[string]*model.JobRecord
	progress      map[string][]float64
	failTerminal  int // number of terminal writes to reject before succeeding
	terminalCalls int
	failFind      int // number of FindByID calls to reject before succeeding
}

func newMemJobs(jobs ...*model.JobRecord) *memJobs {
	m := &memJobs{jobs: map[string]*model.JobRecord{}, progress: map[string][]float64{}}
	for _, j := range jobs {
		cp := *j
		m.jobs[j.ID] = &cp
	}
	return m
}

func (m *memJobs) get(id string) model.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

func (m *memJobs) CreatePair(ctx context.Context, tx repository.Tx, export, imp *model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, i := *export, *imp
	m.jobs[e.ID], m.jobs[i.ID] = &e, &i
	return nil
}

func (m *memJobs) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind > 0 {
		m.failFind--
		return nil, errors.New("connection reset")
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.JobRecord, error) {
	var out []*model.JobRecord
	for _, id := range ids {
		if j, err := m.FindByID(ctx, tx, id); err == nil {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJobs) terminalWrite() error {
	m.terminalCalls++
	if m.failTerminal > 0 {
		m.failTerminal--
		return errors.New("db unavailable")
	}
	return nil
}

func (m *memJobs) Transition(ctx context.Context, tx repository.Tx, id string, from, to model.JobStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != from || !model.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}
	if to.IsTerminal() {
		if err := m.terminalWrite(); err != nil {
			return err
		}
		j.Progress = 1
	}
	j.Status, j.LastError = to, lastError
	return nil
}

func (m *memJobs) Fail(ctx context.Context, tx repository.Tx, id string, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	if err := m.terminalWrite(); err != nil {
		return err
	}
	j.Status, j.LastError, j.Progress = model.JobStatusFinishedError, lastError, 1
	return nil
}

func (m *memJobs) UpdateProgress(ctx context.Context, tx repository.Tx, id string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.progress[id] = append(m.progress[id], progress)
	if j.Status == model.JobStatusExecuting && progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

func (m *memJobs) ListActiveByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.JobRecord, error) {
	return nil, nil
}

func (m *memJobs) ListStale(ctx context.Context, tx repository.Tx, updatedBefore time.Time) ([]*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.JobRecord
	for _, j := range m.jobs {
		executing := j.Status == model.JobStatusExecuting && j.UpdatedAt.Before(updatedBefore)
		waiting := j.Kind == model.JobKindExport && j.Status == model.JobStatusAwaiting && j.CreatedAt.Before(updatedBefore)
		if executing || waiting {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memCourses struct {
	mu      sync.Mutex
	courses map[string]*model.Course
}

func newMemCourses(cs ...*model.Course) *memCourses {
	m := &memCourses{courses: map[string]*model.Course{}}
	for _, c := range cs {
		m.courses[c.ID] = c
	}
	return m
}

func (m *memCourses) Create(ctx context.Context, tx repository.Tx, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m *memCourses) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCourses) ShortNameExists(ctx context.Context, tx repository.Tx, shortName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.ShortName == shortName {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCourses) ReplaceContent(ctx context.Context, tx repository.Tx, id, fullName, summary string, sections []model.Section, memberIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.FullName, c.Summary, c.Sections, c.MemberIDs = fullName, summary, sections, memberIDs
	return nil
}

func (m *memCourses) ApplyOverrides(ctx context.Context, tx repository.Tx, id string, o model.CourseOverrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Apply(o)
	return nil
}

type memCategories map[string]bool

func (m memCategories) Exists(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return m[id], nil
}

type memRequests struct {
	mu   sync.Mutex
	reqs map[string]*model.CopyRequest
}

func (m *memRequests) Save(ctx context.Context, tx repository.Tx, req *model.CopyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reqs == nil {
		m.reqs = map[string]*model.CopyRequest{}
	}
	cp := *req
	m.reqs[req.ExportJobID] = &cp
	return nil
}

func (m *memRequests) FindByExportJobID(ctx context.Context, tx repository.Tx, id string) (*model.CopyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reqs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

type noTx struct{}

func (noTx) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type captureQueue struct{ tasks []model.CopyTask }

func (q *captureQueue) Enqueue(ctx context.Context, task model.CopyTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}

type fakeExporter struct {
	mu         sync.Mutex
	runErr     error
	extractErr error
	steps      []float64
	runCalls   int
	released   []string
}

func (e *fakeExporter) Run(ctx context.Context, src string, sink adapter.ProgressSink) (*adapter.ArchiveHandle, error) {
	e.mu.Lock()
	e.runCalls++
	e.mu.Unlock()
	for _, s := range e.steps {
		sink.Report(ctx, s)
	}
	if e.runErr != nil {
		return nil, e.runErr
	}
	return &adapter.ArchiveHandle{Key: "staging/" + src, SourceCourseID: src}, nil
}

func (e *fakeExporter) Extract(ctx context.Context, h *adapter.ArchiveHandle, target string) (*adapter.ArchiveHandle, error) {
	if e.extractErr != nil {
		return nil, e.extractErr
	}
	return &adapter.ArchiveHandle{Key: "handoff/" + target, SourceCourseID: h.SourceCourseID}, nil
}

func (e *fakeExporter) Release(ctx context.Context, h *adapter.ArchiveHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = append(e.released, h.Key)
	return nil
}

type fakeImporter struct {
	mu           sync.Mutex
	courses      *memCourses
	convertErr   error
	runErr       error
	convertCalls int
	runCalls     int
	lastOpts     adapter.ImportOptions
	afterRun     func()
}

func (i *fakeImporter) Convert(ctx context.Context, h *adapter.ArchiveHandle, target string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.convertCalls++
	return i.convertErr
}

func (i *fakeImporter) Run(ctx context.Context, h *adapter.ArchiveHandle, target string, opts adapter.ImportOptions, sink adapter.ProgressSink) error {
	i.mu.Lock()
	i.runCalls++
	i.lastOpts = opts
	i.mu.Unlock()
	sink.Report(ctx, 0.5)
	if i.afterRun != nil {
		defer i.afterRun()
	}
	if i.runErr != nil {
		return i.runErr
	}
	// Importers write their own defaults over the placeholder.
	if i.courses != nil {
		return i.courses.ReplaceContent(ctx, nil, target, "imported default", "", nil, nil)
	}
	return nil
}

type notifyCall struct{ export, imp model.JobRecord }

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) NotifyCompletion(ctx context.Context, export, imp *model.JobRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{export: *export, imp: *imp})
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	l.held[key] = "token"
	return "token", nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
