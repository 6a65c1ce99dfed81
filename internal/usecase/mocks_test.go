//go:build !integration

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"course-copy/internal/domain"
	"course-copy/internal/domain/model"
	"course-copy/internal/domain/ports/repository"
	"course-copy/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger { return logging.Nop() }

// memJobRepo is a small in-memory job store used by unit tests.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.JobRecord
}

func newMemJobRepo(jobs ...*model.JobRecord) *memJobRepo {
	m := &memJobRepo{jobs: map[string]*model.JobRecord{}}
	for _, j := range jobs {
		cp := *j
		m.jobs[j.ID] = &cp
	}
	return m
}

func (m *memJobRepo) CreatePair(ctx context.Context, tx repository.Tx, export, imp *model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, i := *export, *imp
	m.jobs[e.ID] = &e
	m.jobs[i.ID] = &i
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.JobRecord
	for _, id := range ids {
		if j, ok := m.jobs[id]; ok {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) Transition(ctx context.Context, tx repository.Tx, id string, from, to model.JobStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != from || !model.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}
	j.Status = to
	j.LastError = lastError
	if to.IsTerminal() {
		j.Progress = 1
	}
	return nil
}

func (m *memJobRepo) Fail(ctx context.Context, tx repository.Tx, id string, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	j.Status = model.JobStatusFinishedError
	j.LastError = lastError
	j.Progress = 1
	return nil
}

func (m *memJobRepo) UpdateProgress(ctx context.Context, tx repository.Tx, id string, progress float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status == model.JobStatusExecuting && progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

func (m *memJobRepo) ListActiveByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.JobRecord
	for _, j := range m.jobs {
		if j.OwnerID != ownerID {
			continue
		}
		if p, ok := m.jobs[j.PairedJobID]; ok && j.Status.IsTerminal() && p.Status.IsTerminal() {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *memJobRepo) ListStale(ctx context.Context, tx repository.Tx, updatedBefore time.Time) ([]*model.JobRecord, error) {
	return nil, nil
}

func (m *memJobRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

type memCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*model.Course
}

func newMemCourseRepo(cs ...*model.Course) *memCourseRepo {
	m := &memCourseRepo{courses: map[string]*model.Course{}}
	for _, c := range cs {
		m.courses[c.ID] = c
	}
	return m
}

func (m *memCourseRepo) Create(ctx context.Context, tx repository.Tx, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m *memCourseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCourseRepo) ShortNameExists(ctx context.Context, tx repository.Tx, shortName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.ShortName == shortName {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCourseRepo) ReplaceContent(ctx context.Context, tx repository.Tx, id, fullName, summary string, sections []model.Section, memberIDs []string) error {
	return nil
}

func (m *memCourseRepo) ApplyOverrides(ctx context.Context, tx repository.Tx, id string, o model.CourseOverrides) error {
	return nil
}

type memCategoryRepo struct{ ids map[string]bool }

func (m memCategoryRepo) Exists(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return m.ids[id], nil
}

type memRequestRepo struct {
	mu   sync.Mutex
	reqs map[string]*model.CopyRequest
}

func (m *memRequestRepo) Save(ctx context.Context, tx repository.Tx, req *model.CopyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reqs == nil {
		m.reqs = map[string]*model.CopyRequest{}
	}
	cp := *req
	m.reqs[req.ExportJobID] = &cp
	return nil
}

func (m *memRequestRepo) FindByExportJobID(ctx context.Context, tx repository.Tx, id string) (*model.CopyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reqs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

type memUserRepo struct{ users map[string]*model.User }

func (m memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// fakeTxManager runs fn without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []model.CopyTask
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, task model.CopyTask) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type fakeChannel struct {
	Sent []sentMessage
	err  error
}

func (c *fakeChannel) Send(ctx context.Context, recipient *model.User, subject, body string) error {
	if c.err != nil {
		return c.err
	}
	c.Sent = append(c.Sent, sentMessage{To: recipient.ID, Subject: subject, Body: body})
	return nil
}
