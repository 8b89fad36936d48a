// Package access decides whether an actor may perform an action.  It
// combines a role hierarchy, department scoping and resource ownership
// into checks that never write state; denials are reported to an
// Observer supplied by the caller.
package access

import "github.com/iliyamo/civic-service-portal/internal/model"

// RoleTable assigns each role its rank.  A higher rank satisfies any
// lower requirement.
type RoleTable map[model.Role]int

// Roles is the process-wide role hierarchy.  It is never mutated after
// initialisation and is safe for concurrent reads.
var Roles = RoleTable{
	model.RoleCitizen:        1,
	model.RoleOfficer:        2,
	model.RoleDepartmentHead: 3,
	model.RoleAdmin:          4,
}

// Rank returns the rank of r, or 0 for roles outside the table.
func (t RoleTable) Rank(r model.Role) int {
	return t[r]
}

// MinRank returns the lowest rank among roles.  Roles outside the table
// are ignored; ok is false when no role contributes a rank.
func (t RoleTable) MinRank(roles ...model.Role) (rank int, ok bool) {
	for _, r := range roles {
		n, known := t[r]
		if !known {
			continue
		}
		if !ok || n < rank {
			rank, ok = n, true
		}
	}
	return rank, ok
}

// Satisfies reports whether have meets the lowest bar among allowed.
// An empty allowed list is satisfied by every role.
func (t RoleTable) Satisfies(have model.Role, allowed ...model.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	floor, ok := t.MinRank(allowed...)
	if !ok {
		return false
	}
	return t.Rank(have) >= floor
}
