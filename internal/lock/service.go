package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"seclock.org/internal/audit"
	"seclock.org/internal/auth"
)

// Service gates every lock mutation behind the privilege resolver and pairs
// it with exactly one audit entry.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("lock: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get and List are read actions: any authenticated identity may call them.

func (s *Service) Get(ctx context.Context, id string) (*Lock, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Lock, error) {
	return s.store.List(ctx)
}

// Create registers a new lock owned by ownerPrivilege, CLOSED by default.
func (s *Service) Create(ctx context.Context, actor auth.Identity, id, ownerPrivilege string) (*Lock, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: lock id is required", auth.ErrInvalidInput)
	}
	ownerPrivilege = strings.ToLower(strings.TrimSpace(ownerPrivilege))
	if ownerPrivilege == "" {
		ownerPrivilege = auth.PrivilegeDefault
	}
	if !auth.KnownPrivilege(ownerPrivilege) {
		return nil, fmt.Errorf("%w: unknown owner privilege %q", auth.ErrInvalidInput, ownerPrivilege)
	}
	if err := auth.Authorize(actor, ownerPrivilege, audit.ActionCreate); err != nil {
		return nil, err
	}
	l := &Lock{
		ID:             id,
		OwnerPrivilege: ownerPrivilege,
		IsOpen:         false,
		LastModified:   s.now().UTC(),
	}
	entry := s.entry(actor, id, audit.ActionCreate, map[string]any{
		"owner_privilege": ownerPrivilege,
	})
	if err := s.store.Create(ctx, l, entry); err != nil {
		return nil, err
	}
	return l, nil
}

// SetState transitions the lock to the desired state. Requesting the current
// state is accepted, still bumps last_modified and still logs: every accepted
// request is auditable, by policy.
func (s *Service) SetState(ctx context.Context, actor auth.Identity, id string, open bool) (*Lock, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, current.OwnerPrivilege, audit.ActionUpdate); err != nil {
		return nil, err
	}
	entry := s.entry(actor, id, audit.ActionUpdate, map[string]any{
		"is_open": open,
	})
	return s.store.SetState(ctx, id, open, entry)
}

// Delete removes the lock. Its audit history survives with a null lock ref.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id string) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(actor, current.OwnerPrivilege, audit.ActionDelete); err != nil {
		return err
	}
	entry := s.entry(actor, id, audit.ActionDelete, nil)
	return s.store.Delete(ctx, id, entry)
}

func (s *Service) entry(actor auth.Identity, lockID string, action audit.Action, detail map[string]any) *audit.Entry {
	userID := actor.UserID
	e := &audit.Entry{
		LockID:     &lockID,
		Action:     action,
		Detail:     detail,
		OccurredAt: s.now().UTC(),
	}
	if userID != "" {
		e.UserID = &userID
	}
	return e
}
