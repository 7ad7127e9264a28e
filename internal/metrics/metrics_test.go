package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, registry)

	m.JoinRequests.Inc()
	m.JoinRequests.Inc()
	m.Approvals.Inc()
	m.PendingRequests.Set(3)
	m.ReportsSent.WithLabelValues("hourly").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JoinRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Approvals))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PendingRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsSent.WithLabelValues("hourly")))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry, registry)
	m.MembersLeft.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "joinkeeper_members_left_total 1")
}
