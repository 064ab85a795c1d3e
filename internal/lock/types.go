package lock

import (
	"errors"
	"time"
)

// Lock is the authoritative state of one physical lock. IsOpen flips only
// through an authorized transition, and LastModified moves with every
// accepted transition in the same write.
type Lock struct {
	ID             string    `json:"id"`
	OwnerPrivilege string    `json:"owner_privilege"`
	IsOpen         bool      `json:"is_open"`
	LastModified   time.Time `json:"last_modified"`
}

var (
	ErrNotFound = errors.New("lock: not found")
	ErrConflict = errors.New("lock: already exists")
)
