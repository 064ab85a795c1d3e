package lock

import (
	"context"

	"seclock.org/internal/audit"
)

// Store persists lock rows. Every mutating call receives the audit entry that
// must commit atomically with the row change: implementations either persist
// both or neither.
type Store interface {
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Lock, error)
	// List returns all locks ordered by id.
	List(ctx context.Context) ([]Lock, error)
	// Create inserts the lock and the entry in one unit. ErrConflict when the
	// id exists.
	Create(ctx context.Context, l *Lock, entry *audit.Entry) error
	// SetState writes the desired state, bumps last_modified and appends the
	// entry in one unit. Requesting the current state is still a write.
	SetState(ctx context.Context, id string, open bool, entry *audit.Entry) (*Lock, error)
	// Delete removes the lock and appends the entry in one unit. Historical
	// entries referencing the lock keep existing with a null lock reference.
	Delete(ctx context.Context, id string, entry *audit.Entry) error
}
