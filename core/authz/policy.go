// Package authz centralizes the row-level access rules that every data
// query must honor. Handlers build a Scope from the authenticated profile
// and repositories apply it; no call site filters rows ad hoc.
package authz

import "github.com/tabunganku/backend/core/profile"

// Scope identifies the acting profile for row-level filtering.
type Scope struct {
	Role      string
	ProfileID string
}

// ScopeFor builds the query scope of an authenticated profile.
func ScopeFor(prof profile.Profile) Scope {
	return Scope{Role: prof.Role, ProfileID: prof.ID}
}

// Privileged is the scope of server-internal operations that act with
// service credentials rather than on behalf of a caller.
func Privileged() Scope {
	return Scope{Role: profile.RoleAdmin}
}

// Unrestricted reports whether the scope may read every row (admin).
func (s Scope) Unrestricted() bool {
	return s.Role == profile.RoleAdmin
}

// StudentColumn returns the students column the scope is filtered on, and
// whether a filter applies at all: teachers own rows via teacher_id,
// parents via parent_id, admins see everything.
func (s Scope) StudentColumn() (string, bool) {
	switch s.Role {
	case profile.RoleTeacher:
		return "teacher_id", true
	case profile.RoleParent:
		return "parent_id", true
	}
	return "", false
}

// AllowsStudent reports whether the scope may read a student row with the
// given owner ids. Used by in-memory repositories and guards outside SQL.
func (s Scope) AllowsStudent(teacherID, parentID string) bool {
	switch s.Role {
	case profile.RoleAdmin:
		return true
	case profile.RoleTeacher:
		return teacherID == s.ProfileID
	case profile.RoleParent:
		return parentID == s.ProfileID
	}
	return false
}

// CanWriteTransactions reports whether the scope may record transactions.
// Only teachers enter deposits/withdrawals; admins manage (delete) them.
func (s Scope) CanWriteTransactions() bool {
	return s.Role == profile.RoleTeacher
}
