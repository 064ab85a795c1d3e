package audit

import (
	"context"
	"sync"
	"time"

	"seclock.org/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and local development.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(e)
	return nil
}

// append assumes m.mu is held. Shared with the in-memory lock store so a
// transition and its entry land under one critical section.
func (m *Memory) append(e *Entry) {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	m.entries = append(m.entries, *e)
}

// AppendShared is the same-transaction append for sibling in-memory stores:
// they call it while holding their own lock so a mutation and its entry
// publish together. It takes m's lock itself.
func (m *Memory) AppendShared(e *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(e)
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *Memory) ListForLock(ctx context.Context, lockID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.LockID != nil && *e.LockID == lockID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ClearUser nulls the user reference on historical entries, mirroring the
// database's on-delete-set-null behaviour.
func (m *Memory) ClearUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].UserID != nil && *m.entries[i].UserID == userID {
			m.entries[i].UserID = nil
		}
	}
}

// ClearLock nulls the lock reference on historical entries.
func (m *Memory) ClearLock(lockID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].LockID != nil && *m.entries[i].LockID == lockID {
			m.entries[i].LockID = nil
		}
	}
}
