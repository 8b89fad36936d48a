package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("decide", "ok"))
	RecordTransition("decide", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("decide", "ok")))
}

func TestRecordReferenceCollision(t *testing.T) {
	before := testutil.ToFloat64(referenceCollisions)
	RecordReferenceCollision()
	assert.Equal(t, before+1, testutil.ToFloat64(referenceCollisions))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordHTTPRequest("get", "/v1/services", http.StatusOK, 3*time.Millisecond)
	RecordDenial("rank", "forbidden")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `civic_portal_http_requests_total{method="GET",route="/v1/services",status="200"}`)
	assert.Contains(t, body, `civic_portal_access_denials_total{kind="forbidden",stage="rank"}`)
}
