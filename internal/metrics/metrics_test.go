package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.ObserveRequest("GET", "/api/v1/me", "200", 0.01)
	m.IncDecision("user_token")
	m.IncVerification("delegated", OutcomeOK)
	m.ObserveQuery("user_token", OutcomeOK, 1)
}

func TestPromCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("lakegate", reg)

	p.IncDecision("user_token")
	p.IncDecision("user_token")
	p.IncVerification("caller_supplied", OutcomeFailed)
	p.ObserveRequest("GET", "/api/v1/trips", "401", 0.2)
	p.ObserveQuery("service_principal", OutcomeOK, 1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.decisions.WithLabelValues("user_token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.verifications.WithLabelValues("caller_supplied", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues("GET", "/api/v1/trips", "401")))
	assert.Equal(t, 2, testutil.CollectAndCount(p.latency)+testutil.CollectAndCount(p.queries))
}

func TestPromDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewProm("lakegate", reg)
	assert.Panics(t, func() { NewProm("lakegate", reg) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("lakegate", reg)
	p.IncDecision("verified_token")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `lakegate_auth_decisions_total{method="verified_token"} 1`))
}
