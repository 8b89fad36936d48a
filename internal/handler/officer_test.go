package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/apperr"
	"github.com/iliyamo/civic-service-portal/internal/model"
)

func newOfficerHandler() (*OfficerHandler, *fakeEngine, *fakeRequests, *denials) {
	engine := &fakeEngine{}
	reqs := newFakeRequests(
		view("r1", "c1", "d1", model.StatusSubmitted),
		view("r2", "c1", "d1", model.StatusUnderReview),
		view("r3", "c2", "d2", model.StatusSubmitted),
	)
	obs := &denials{}
	return &OfficerHandler{
		Engine:    engine,
		Guard:     access.NewPipeline(obs),
		Requests:  reqs,
		Payments:  fakePayments{},
		Documents: newFakeDocuments(),
	}, engine, reqs, obs
}

func TestDecideWithinDepartment(t *testing.T) {
	h, engine, _, _ := newOfficerHandler()
	route := "/v1/officer/requests/:id/decision"

	rec := serve(t, http.MethodPost, route, "/v1/officer/requests/r1/decision",
		map[string]string{"decision": "Approved", "remarks": "ok"}, user("o1", model.RoleOfficer, "d1"), h.Decide)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decode(t, rec)["status"])
	require.Len(t, engine.calls, 1)
	assert.Equal(t, model.StatusApproved, engine.calls[0].decision)
	assert.Equal(t, "r1", engine.calls[0].request.ID)
}

func TestDecideOtherDepartmentIsForbidden(t *testing.T) {
	h, engine, _, obs := newOfficerHandler()
	route := "/v1/officer/requests/:id/decision"

	rec := serve(t, http.MethodPost, route, "/v1/officer/requests/r3/decision",
		map[string]string{"decision": "approved"}, user("o1", model.RoleOfficer, "d1"), h.Decide)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, engine.calls)
	require.Len(t, obs.list, 1)
	assert.Equal(t, access.StageDepartment, obs.list[0].Stage)
	assert.Equal(t, "o1", obs.list[0].ActorID)

	// admins are not department scoped
	rec = serve(t, http.MethodPost, route, "/v1/officer/requests/r3/decision",
		map[string]string{"decision": "rejected"}, user("a1", model.RoleAdmin, ""), h.Decide)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransitionErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
		kind string
	}{
		{apperr.New(apperr.InvalidTransition, "cannot move"), http.StatusConflict, "invalid_transition"},
		{apperr.New(apperr.ConcurrentModification, "moved"), http.StatusConflict, "concurrent_modification"},
		{apperr.New(apperr.StoreUnavailable, "down"), http.StatusInternalServerError, "store_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			h, engine, _, _ := newOfficerHandler()
			engine.err = tt.err
			rec := serve(t, http.MethodPost, "/v1/officer/requests/:id/complete", "/v1/officer/requests/r2/complete",
				nil, user("o1", model.RoleOfficer, "d1"), h.Complete)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.kind, decode(t, rec)["error"])
		})
	}
}

func TestStartReview(t *testing.T) {
	h, engine, _, _ := newOfficerHandler()

	rec := serve(t, http.MethodPost, "/v1/officer/requests/:id/review", "/v1/officer/requests/r1/review",
		nil, user("h1", model.RoleDepartmentHead, "d1"), h.StartReview)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "under_review", decode(t, rec)["status"])
	assert.Equal(t, "start_review", engine.calls[0].op)
}

func TestOfficerListIsDepartmentScoped(t *testing.T) {
	h, _, reqs, obs := newOfficerHandler()
	o1 := user("o1", model.RoleOfficer, "d1")

	rec := serve(t, http.MethodGet, "/l", "/l", nil, o1, h.ListRequests)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "d1", reqs.filter.DepartmentID)
	assert.EqualValues(t, 2, decode(t, rec)["total"])

	rec = serve(t, http.MethodGet, "/l", "/l?department_id=d2", nil, o1, h.ListRequests)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, obs.list, 1)

	rec = serve(t, http.MethodGet, "/l", "/l", nil, user("a1", model.RoleAdmin, ""), h.ListRequests)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", reqs.filter.DepartmentID)
	assert.EqualValues(t, 3, decode(t, rec)["total"])

	rec = serve(t, http.MethodGet, "/l", "/l", nil, user("o9", model.RoleOfficer, ""), h.ListRequests)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOfficerDashboard(t *testing.T) {
	h, _, _, _ := newOfficerHandler()

	rec := serve(t, http.MethodGet, "/d", "/d", nil, user("o1", model.RoleOfficer, "d1"), h.Dashboard)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "d1", body["department_id"])
	assert.EqualValues(t, 2, body["pending"])
	assert.Len(t, body["recent_submitted"], 1)
}

func TestOfficerGetRequest(t *testing.T) {
	h, _, _, _ := newOfficerHandler()
	route := "/v1/officer/requests/:id"

	rec := serve(t, http.MethodGet, route, "/v1/officer/requests/r1", nil, user("o1", model.RoleOfficer, "d1"), h.GetRequest)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", decode(t, rec)["request"].(map[string]any)["id"])

	rec = serve(t, http.MethodGet, route, "/v1/officer/requests/r3", nil, user("o1", model.RoleOfficer, "d1"), h.GetRequest)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
