package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/reviews/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, p := range []string{"/api/reviews/1", "/api/reviews/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/reviews/:id", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "bitelogs_http_requests_total"))
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.ReviewSubmitted(ResultOK)
	m.ReviewSubmitted(ResultOK)
	m.ReviewSubmitted(ResultConflict)
	m.ReviewDeleted()
	m.RatingRecomputed(ResultError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reviewsSubmitted.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsSubmitted.WithLabelValues(ResultConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputations.WithLabelValues(ResultError)))
}
