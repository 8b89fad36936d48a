package access

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

type recorder struct {
	mu      sync.Mutex
	denials []Denial
}

func (r *recorder) Denied(d Denial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denials = append(r.denials, d)
}

func TestPipelineGrants(t *testing.T) {
	rec := &recorder{}
	p := NewPipeline(rec)
	officer := actor("o1", model.RoleOfficer, "d1")

	err := p.Evaluate("request.decide", officer,
		RequireRole(model.RoleOfficer, model.RoleDepartmentHead, model.RoleAdmin),
		RequireDepartment("d1"),
	)
	require.NoError(t, err)
	assert.Empty(t, rec.denials)
}

func TestPipelineOrderIsFixed(t *testing.T) {
	rec := &recorder{}
	p := NewPipeline(rec)
	citizen := actor("c1", model.RoleCitizen, "")

	// passed out of order; rank must still be evaluated first
	err := p.Evaluate("request.decide", citizen,
		RequireOwner(OwnerSource{Resource: "someone-else"}),
		RequireRole(model.RoleOfficer),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	require.Len(t, rec.denials, 1)
	assert.Equal(t, StageRank, rec.denials[0].Stage)
	assert.Equal(t, "c1", rec.denials[0].ActorID)
	assert.Equal(t, "request.decide", rec.denials[0].Action)
}

func TestPipelineDepartmentDenial(t *testing.T) {
	rec := &recorder{}
	p := NewPipeline(rec)
	officer := actor("o1", model.RoleOfficer, "d1")

	err := p.Evaluate("request.decide", officer,
		RequireRole(model.RoleOfficer),
		RequireDepartment("d2"),
	)
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	require.Len(t, rec.denials, 1)
	assert.Equal(t, StageDepartment, rec.denials[0].Stage)
	assert.Equal(t, "department mismatch", rec.denials[0].Reason)
}

func TestPipelineUnauthenticated(t *testing.T) {
	err := NewPipeline(nil).Evaluate("request.create", nil, RequireRole(model.RoleCitizen))
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestObserverFunc(t *testing.T) {
	var got Denial
	p := NewPipeline(ObserverFunc(func(d Denial) { got = d }))
	_ = p.Evaluate("x", actor("c1", model.RoleCitizen, ""), RequireOwner(OwnerSource{Param: "c2"}))
	assert.Equal(t, StageOwnership, got.Stage)
	assert.Equal(t, "ownership", got.Stage.String())
}
