package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { RegisterMetrics(reg) })
	assert.Panics(t, func() { RegisterMetrics(reg) })
}

func TestRecordAuth(t *testing.T) {
	before := testutil.ToFloat64(AuthOperations.WithLabelValues("login", OutcomeRejected))
	RecordAuth("login", OutcomeRejected)
	assert.Equal(t, before+1, testutil.ToFloat64(AuthOperations.WithLabelValues("login", OutcomeRejected)))
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/denied", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden) })

	okBefore := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/ok", "204"))
	deniedBefore := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/denied", "403"))

	for _, path := range []string{"/ok", "/denied"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, okBefore+1, testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/ok", "204")))
	assert.Equal(t, deniedBefore+1, testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/denied", "403")))
}
