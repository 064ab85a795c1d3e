package lock

import (
	"context"
	"sort"
	"sync"
	"time"

	"seclock.org/internal/audit"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and local development. Each
// mutation appends its entry through the audit store's shared append so a
// transition and its entry land together, mirroring the database transaction.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*Lock
	trail *audit.Memory
}

func NewInMemory(trail *audit.Memory) *Memory {
	return &Memory{
		locks: make(map[string]*Lock),
		trail: trail,
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *Memory) List(ctx context.Context) ([]Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Lock, 0, len(m.locks))
	for _, l := range m.locks {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Create(ctx context.Context, l *Lock, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[l.ID]; ok {
		return ErrConflict
	}
	cp := *l
	m.locks[l.ID] = &cp
	m.trail.AppendShared(entry)
	return nil
}

func (m *Memory) SetState(ctx context.Context, id string, open bool, entry *audit.Entry) (*Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.IsOpen = open
	l.LastModified = time.Now().UTC()
	m.trail.AppendShared(entry)
	cp := *l
	return &cp, nil
}

func (m *Memory) Delete(ctx context.Context, id string, entry *audit.Entry) error {
	m.mu.Lock()
	if _, ok := m.locks[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.locks, id)
	m.mu.Unlock()

	m.trail.ClearLock(id)
	entry.LockID = nil
	if entry.Detail == nil {
		entry.Detail = map[string]any{}
	}
	entry.Detail["lock_id"] = id
	m.trail.AppendShared(entry)
	return nil
}
