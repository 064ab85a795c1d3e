package audit

import "context"

// Store is the append-only persistence surface for audit entries. Entries are
// never updated; deletion is a retention concern outside this service.
type Store interface {
	// Append inserts one entry. It fails only when storage is unavailable.
	Append(ctx context.Context, e *Entry) error
	// List returns all entries, newest first.
	List(ctx context.Context) ([]Entry, error)
	// ListForLock returns entries referencing the lock, newest first.
	ListForLock(ctx context.Context, lockID string) ([]Entry, error)
}
