package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := NewRegistry()
	m.Documents.WithLabelValues("parsed").Inc()
	m.ParseErrors.WithLabelValues("unknown_month").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Documents.WithLabelValues("parsed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParseErrors.WithLabelValues("unknown_month")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orderscan_documents_total{status="parsed"} 1`)
}
