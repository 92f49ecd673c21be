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

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/api/list", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/list", http.StatusOK, 7*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestObserveLoginAndHandler(t *testing.T) {
	m := New()
	m.ObserveLogin(LoginFailure)
	m.ObserveLogin(LoginFailure)
	m.ObserveLogin(LoginSuccess)
	m.RegisterSessionGauge(func() int { return 3 })

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginFailure)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `todostack_login_attempts_total{outcome="success"} 1`)
	assert.Contains(t, body, "todostack_sessions 3")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.ObserveLogin(LoginSuccess)
	})
}
