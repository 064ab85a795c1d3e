package audit

import "time"

// Action enumerates the closed set of auditable action kinds. The catalog is
// fixed; callers never invent new kinds at runtime.
type Action string

const (
	ActionCreate      Action = "CREATE"
	ActionUpdate      Action = "UPDATE"
	ActionDelete      Action = "DELETE"
	ActionLogin       Action = "LOGIN"
	ActionLoginFailed Action = "LOGIN_FAILED"
)

// ValidAction reports whether a belongs to the catalog.
func ValidAction(a Action) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLoginFailed:
		return true
	}
	return false
}

// Entry is one append-only audit record. UserID and LockID are nullable:
// system actions carry no user, authentication actions carry no lock, and
// deleting a referenced user or lock degrades the reference to null without
// touching the entry itself.
type Entry struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"user_id"`
	LockID     *string        `json:"lock_id"`
	Action     Action         `json:"action"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
