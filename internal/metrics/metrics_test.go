package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.CheckoutOutcome("created")
	m.CheckoutOutcome("created")
	m.VerificationOutcome("paid")
	m.Shortfall()
	m.ObserveRequest("/api/v1/checkout", http.MethodPost, http.StatusCreated, 12*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Shortfalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/checkout", http.MethodPost, "201")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CheckoutOutcome("created")
		m.Shortfall()
		m.GatewayCall("ok", time.Second)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Shortfall()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "storefront_inventory_shortfalls_total 1")
}

func TestNewTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
