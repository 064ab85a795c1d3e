package auth

import (
	"strings"

	"seclock.org/internal/audit"
)

// Privilege tier names. Tiers form a partial order for write access; auditor
// sits outside the order with read-only rights.
const (
	PrivilegeAdmin    = "admin"
	PrivilegeOperator = "operator"
	PrivilegeDefault  = "default"
	PrivilegeGuest    = "guest"
	PrivilegeAuditor  = "auditor"
)

var privilegeRank = map[string]int{
	PrivilegeGuest:    0,
	PrivilegeDefault:  1,
	PrivilegeOperator: 2,
	PrivilegeAdmin:    3,
}

// KnownPrivilege reports whether name belongs to the fixed tier catalog.
// Resource owners must come from this set; the catalog is closed at runtime.
func KnownPrivilege(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == PrivilegeAuditor {
		return true
	}
	_, ok := privilegeRank[name]
	return ok
}

// writeAction reports whether the action mutates state.
func writeAction(a audit.Action) bool {
	switch a {
	case audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete:
		return true
	}
	return false
}

// Authorize decides whether the identity may perform the action on a resource
// owned by ownerPrivilege. Pure function: no I/O, no side effects.
//
// Reads require only a valid identity. Writes require the identity's tier to
// meet or exceed the owner's tier; auditors never write. Unknown tiers rank
// below guest so a misconfigured row fails closed.
func Authorize(id Identity, ownerPrivilege string, action audit.Action) error {
	if !writeAction(action) {
		return nil
	}
	actor := strings.ToLower(strings.TrimSpace(id.Privilege))
	if actor == PrivilegeAuditor {
		return ErrDenied
	}
	owner := strings.ToLower(strings.TrimSpace(ownerPrivilege))
	actorRank, ok := privilegeRank[actor]
	if !ok {
		return ErrDenied
	}
	ownerRank, ok := privilegeRank[owner]
	if !ok {
		// Owner tier outside the order (e.g. auditor-owned): only admin writes.
		ownerRank = privilegeRank[PrivilegeAdmin]
	}
	if actorRank < ownerRank {
		return ErrDenied
	}
	return nil
}
