package access

import (
	"fmt"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

// Decision is the outcome of a check.  A denied decision carries the
// error kind to surface and a short reason for logs.
type Decision struct {
	Granted bool
	Kind    apperr.Kind
	Reason  string
}

// Grant is the granted decision.
var Grant = Decision{Granted: true}

func deny(kind apperr.Kind, reason string) Decision {
	return Decision{Kind: kind, Reason: reason}
}

// Err converts a denied decision into an *apperr.Error; it returns nil
// for a grant.
func (d Decision) Err() error {
	if d.Granted {
		return nil
	}
	return apperr.New(d.Kind, d.Reason)
}

// Authorize grants actor iff its rank reaches the lowest rank among
// allowed.  A nil or inactive actor is unauthenticated.
func Authorize(actor *model.User, allowed ...model.Role) Decision {
	if actor == nil || !actor.IsActive {
		return deny(apperr.Unauthenticated, "authentication required")
	}
	if !Roles.Satisfies(actor.Role, allowed...) {
		return deny(apperr.Forbidden, fmt.Sprintf("insufficient rank: role %q", actor.Role))
	}
	return Grant
}

// CheckDepartmentAccess scopes staff to their own department.  Admins
// and citizens are not scoped.  An empty target is always granted; a
// staff actor without a department is granted nothing else.
func CheckDepartmentAccess(actor *model.User, targetDepartmentID string) Decision {
	if actor == nil {
		return deny(apperr.Unauthenticated, "authentication required")
	}
	switch actor.Role {
	case model.RoleAdmin, model.RoleCitizen:
		return Grant
	}
	if targetDepartmentID == "" || actor.InDepartment(targetDepartmentID) {
		return Grant
	}
	return deny(apperr.Forbidden, "department mismatch")
}

// OwnerSource lists the places an owner id may come from, in
// precedence order: a resource already loaded by the caller, a path
// parameter, a body field, a query parameter.
type OwnerSource struct {
	Resource string
	Param    string
	Body     string
	Query    string
}

// Resolve returns the first non-empty owner id.
func (s OwnerSource) Resolve() string {
	return FirstNonEmpty(s.Resource, s.Param, s.Body, s.Query)
}

// CheckResourceOwnership grants admins and the resolved owner.  When no
// owner id can be resolved the check grants; callers that care about
// ownership must supply the loaded resource.
func CheckResourceOwnership(actor *model.User, src OwnerSource) Decision {
	if actor == nil {
		return deny(apperr.Unauthenticated, "authentication required")
	}
	if actor.Role == model.RoleAdmin {
		return Grant
	}
	owner := src.Resolve()
	if owner == "" || owner == actor.ID {
		return Grant
	}
	return deny(apperr.Forbidden, "ownership mismatch")
}

// CheckSelf grants only the actor whose id is ownerID.  Unlike
// CheckResourceOwnership it does not let admins through.
func CheckSelf(actor *model.User, ownerID string) Decision {
	if actor == nil {
		return deny(apperr.Unauthenticated, "authentication required")
	}
	if ownerID != "" && ownerID == actor.ID {
		return Grant
	}
	return deny(apperr.Forbidden, "not the owner")
}

// FirstNonEmpty returns the first non-empty value.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
