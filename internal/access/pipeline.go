package access

import (
	"sort"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

// Stage fixes where a check runs in a pipeline.
type Stage int

const (
	StageRank Stage = iota + 1
	StageDepartment
	StageOwnership
)

func (s Stage) String() string {
	switch s {
	case StageRank:
		return "rank"
	case StageDepartment:
		return "department"
	case StageOwnership:
		return "ownership"
	}
	return "unknown"
}

// Check is a single guard bound to its arguments.
type Check struct {
	Stage Stage
	Eval  func(actor *model.User) Decision
}

// RequireRole binds Authorize.
func RequireRole(allowed ...model.Role) Check {
	return Check{Stage: StageRank, Eval: func(a *model.User) Decision { return Authorize(a, allowed...) }}
}

// RequireDepartment binds CheckDepartmentAccess.
func RequireDepartment(targetDepartmentID string) Check {
	return Check{Stage: StageDepartment, Eval: func(a *model.User) Decision { return CheckDepartmentAccess(a, targetDepartmentID) }}
}

// RequireOwner binds CheckResourceOwnership.
func RequireOwner(src OwnerSource) Check {
	return Check{Stage: StageOwnership, Eval: func(a *model.User) Decision { return CheckResourceOwnership(a, src) }}
}

// RequireSelf binds CheckSelf.
func RequireSelf(ownerID string) Check {
	return Check{Stage: StageOwnership, Eval: func(a *model.User) Decision { return CheckSelf(a, ownerID) }}
}

// Denial describes a refused action for an Observer.
type Denial struct {
	ActorID string
	Role    model.Role
	Action  string
	Stage   Stage
	Decision
}

// Observer receives denials.  Implementations must be safe for
// concurrent use.
type Observer interface {
	Denied(Denial)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Denial)

func (f ObserverFunc) Denied(d Denial) { f(d) }

// Pipeline evaluates checks rank first, then department, then
// ownership, stopping at the first denial.
type Pipeline struct {
	observer Observer
}

// NewPipeline returns a pipeline reporting to obs, which may be nil.
func NewPipeline(obs Observer) *Pipeline {
	return &Pipeline{observer: obs}
}

// Evaluate runs checks for action and returns the first denial as an
// *apperr.Error, or nil when every check grants.
func (p *Pipeline) Evaluate(action string, actor *model.User, checks ...Check) error {
	ordered := make([]Check, len(checks))
	copy(ordered, checks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Stage < ordered[j].Stage })

	for _, c := range ordered {
		d := c.Eval(actor)
		if d.Granted {
			continue
		}
		if p != nil && p.observer != nil {
			den := Denial{Action: action, Stage: c.Stage, Decision: d}
			if actor != nil {
				den.ActorID, den.Role = actor.ID, actor.Role
			}
			p.observer.Denied(den)
		}
		return d.Err()
	}
	return nil
}
