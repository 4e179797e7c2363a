package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MovementRecorded("sale")
		m.InsufficientStock()
		m.OrderTransition("completed", "ok")
		m.VariantsCreated(3)
		m.NotificationRaised("low_stock")
		m.EmailFailed()
	})
}

func TestCounters(t *testing.T) {
	m := New("test")
	m.MovementRecorded("sale")
	m.MovementRecorded("sale")
	m.VariantsCreated(4)
	m.OrderTransition("completed", "INSUFFICIENT_STOCK")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MovementsTotal.WithLabelValues("sale")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.VariantsCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderTransitionsTotal.WithLabelValues("completed", "INSUFFICIENT_STOCK")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_variants_created_total 4"))
}
