package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndExport(t *testing.T) {
	m := NewMetrics()

	m.Bids.WithLabelValues(ResultAccepted, "none").Inc()
	m.Bids.WithLabelValues(ResultRejected, "too_low").Add(2)
	m.HighestTotal.Set(106)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bids.WithLabelValues(ResultAccepted, "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Bids.WithLabelValues(ResultRejected, "too_low")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	res := rec.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "auction_highest_total 106"))
}
