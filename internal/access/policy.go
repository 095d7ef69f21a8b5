// Package access holds the single decision function for patient record
// access. Every patient endpoint consults it; there are no role checks
// anywhere else.
package access

import (
	"fmt"

	"github.com/carehub/patienthub/internal/domain/user"
)

// Operation is what the requester wants to do with a specific record.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ListScope says which rows a list query may return at all. Scoping happens
// in the query, not by filtering fetched rows.
type ListScope int

const (
	ScopeAll ListScope = iota
	ScopeOwn
)

// Decision is the typed outcome of a policy check. Reason is stable and
// machine-readable; handlers map denials to 403.
type Decision struct {
	Allowed bool
	Reason  string
}

func permit() Decision {
	return Decision{Allowed: true, Reason: "permitted"}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// ScopeFor returns the list scope for a role. Admin, doctor and nurse see
// the whole table; everyone else only rows they own.
func ScopeFor(role user.Role) ListScope {
	switch role {
	case user.RoleAdmin, user.RoleDoctor, user.RoleNurse:
		return ScopeAll
	case user.RolePatient:
		return ScopeOwn
	default:
		// unknown roles get the narrowest scope
		return ScopeOwn
	}
}

// Can decides whether a requester may perform op on a record owned by
// ownerID. The role switch is exhaustive over the closed role set so that
// adding a role forces this function to be revisited.
//
// Nurse is the asymmetric case: read over everything, but update/delete
// only on owned records. A denial here is always a 403, even when the
// requester could not have known the record exists; the existence leak is
// an accepted tradeoff for an unambiguous error taxonomy.
func Can(role user.Role, requesterID, ownerID string, op Operation) Decision {
	switch role {
	case user.RoleAdmin, user.RoleDoctor:
		return permit()

	case user.RoleNurse:
		if op == OpRead {
			return permit()
		}
		if requesterID == ownerID {
			return permit()
		}
		return deny(fmt.Sprintf("nurse may not %s a record owned by another user", op))

	case user.RolePatient:
		if requesterID == ownerID {
			return permit()
		}
		return deny(fmt.Sprintf("only the record owner may %s it", op))

	default:
		return deny("unknown role")
	}
}
