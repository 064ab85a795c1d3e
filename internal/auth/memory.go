package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"seclock.org/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and local development.
type Memory struct {
	mu         sync.Mutex
	users      map[string]*User // by id
	privileges map[string]*Privilege
	onDelete   func(userID string)
}

// NewInMemory constructs an empty in-memory credential store. onDelete, if
// set, runs after a user row disappears (the memory analogue of the
// on-delete-set-null foreign key on log entries).
func NewInMemory(onDelete func(userID string)) *Memory {
	return &Memory{
		users:      make(map[string]*User),
		privileges: make(map[string]*Privilege),
		onDelete:   onDelete,
	}
}

func (m *Memory) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Login == u.Login || strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) FindUserByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.users[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.users, id)
	onDelete := m.onDelete
	m.mu.Unlock()
	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

func (m *Memory) SetActiveToken(ctx context.Context, userID, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Token = &token
	u.TokenExpiry = &expiry
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) EnsurePrivilege(ctx context.Context, name, description string) (*Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.privileges[name]; ok {
		cp := *p
		return &cp, nil
	}
	p := &Privilege{
		ID:          ids.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	m.privileges[name] = p
	cp := *p
	return &cp, nil
}

// SeedUser inserts a user with an explicit privilege tier, bypassing
// registration. Test helper.
func (m *Memory) SeedUser(u *User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	cp := *u
	m.users[u.ID] = &cp
}
