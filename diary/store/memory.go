package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diarypete/diarypete/diary/model"
)

// Memory is an in-memory Store implementation for tests and development.
// Entities are copied on the way in and out so callers never share memory
// with the store.
//
// WithTx serializes transactions on a dedicated mutex; individual calls are
// guarded separately so a transaction body may keep calling the store.
type Memory struct {
	txMu sync.Mutex

	mu      sync.Mutex
	users   map[int64]*model.User
	records map[int64]*model.Record
	jobs    map[int64]*model.Job

	nextUser   int64
	nextRecord int64
	nextJob    int64
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]*model.User),
		records: make(map[int64]*model.Record),
		jobs:    make(map[int64]*model.Job),
	}
}

func (m *Memory) WithTx(ctx context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *Memory) GetOrCreateUser(ctx context.Context, telegramID, chatID int64) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, false, nil
		}
	}
	u := model.NewUser(telegramID, chatID)
	m.nextUser++
	u.ID = m.nextUser
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return u, true, nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) SaveUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) CreateRecord(ctx context.Context, r *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRecord++
	r.ID = m.nextRecord
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *Memory) SaveRecord(ctx context.Context, r *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		return ErrNotFound
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *Memory) RecentRecords(ctx context.Context, userID int64, since time.Time) ([]*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Record
	for _, r := range m.records {
		if r.UserID == userID && !r.CreatedAt.Before(since) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetOrCreateJob(ctx context.Context, j *model.Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.jobs {
		if existing.UserID == j.UserID && existing.Coach == j.Coach && existing.State == j.State {
			*j = *existing
			return false, nil
		}
	}
	m.nextJob++
	j.ID = m.nextJob
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return true, nil
}

func (m *Memory) HasJob(ctx context.Context, userID int64, coach string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.UserID == userID && j.Coach == coach {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *Memory) ListJobs(ctx context.Context) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.jobs {
		if j.Disabled {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
