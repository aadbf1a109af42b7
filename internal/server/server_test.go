package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitelogs/internal/auth"
	"bitelogs/internal/feed"
	"bitelogs/internal/media"
	"bitelogs/internal/metrics"
	"bitelogs/internal/testutil"
	"bitelogs/pkg/logger"
	"bitelogs/pkg/utils"
)

type env struct {
	t      *testing.T
	router *gin.Engine
}

func newEnv(t *testing.T, rateLimited bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewSQLite(t)
	log := logger.Discard()
	m := metrics.New()
	cfg := utils.Config{
		AppEnv:            "test",
		UploadDir:         t.TempDir(),
		MaxFileSize:       1 << 20,
		RateLimitDisabled: !rateLimited,
	}
	r := New(Deps{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Tokens:  auth.TokenService{Secret: []byte("server-test"), Issuer: "bitelogs", Duration: time.Hour},
		Media:   media.NewLocalStore(cfg.UploadDir, "/uploads"),
		Metrics: m,
		Feed:    feed.NewHub(log, m.FeedClients),
	})
	return &env{t: t, router: r}
}

func (e *env) call(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (e *env) register(email string) string {
	e.t.Helper()
	w, out := e.call(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "Str0ng!pass", "displayName": "Eater",
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return out["token"].(string)
}

func id(t *testing.T, obj any) int64 {
	t.Helper()
	m, ok := obj.(map[string]any)
	require.True(t, ok)
	return int64(m["id"].(float64))
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t, false)

	w, out := e.call(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "connected", out["database"])
	assert.Equal(t, Version, out["version"])

	w, out = e.call(http.MethodGet, "/api/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])

	w, out = e.call(http.MethodGet, "/api/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", out["status"])
}

func TestHealthReportsClosedDatabase(t *testing.T) {
	db := testutil.NewSQLite(t)
	h := NewHealth(db, "x")
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	require.NoError(t, db.Close())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "disconnected")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "database unavailable")
}

func TestReviewFlowThroughRouter(t *testing.T) {
	e := newEnv(t, false)
	alice := e.register("alice@example.com")
	bob := e.register("bob@example.com")

	w, out := e.call(http.MethodPost, "/api/restaurants", alice, map[string]any{
		"name": "Taqueria", "address": "1 Main", "city": "Austin", "state": "TX",
		"zipCode": "78701", "cuisine": "Mexican", "priceRange": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rid := id(t, out["restaurant"])

	w, out = e.call(http.MethodPost, "/api/menu-items", alice, map[string]any{
		"restaurantId": rid, "name": "Al Pastor", "category": "Tacos", "price": 3.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := id(t, out["menuItem"])

	// anonymous submit is 401, not 403
	w, out = e.call(http.MethodPost, "/api/reviews", "", map[string]any{"menuItemId": itemID, "rating": 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", out["error"])

	w, out = e.call(http.MethodPost, "/api/reviews", alice, map[string]any{"menuItemId": itemID, "rating": 5, "comment": "great"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reviewID := id(t, out["review"])

	w, _ = e.call(http.MethodPost, "/api/reviews", bob, map[string]any{"menuItemId": itemID, "rating": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w, out = e.call(http.MethodGet, fmt.Sprintf("/api/menu-items/%d", itemID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	item := out["menuItem"].(map[string]any)
	assert.Equal(t, 4.0, item["avgRating"])
	assert.Equal(t, 2.0, item["reviewCount"])

	// authenticated non-owner delete is 403
	w, out = e.call(http.MethodDelete, fmt.Sprintf("/api/reviews/%d", reviewID), bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", out["error"])

	w, _ = e.call(http.MethodDelete, fmt.Sprintf("/api/reviews/%d", reviewID), alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, out = e.call(http.MethodGet, fmt.Sprintf("/api/menu-items/%d/reviews", itemID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["data"], 1)

	w, out = e.call(http.MethodGet, "/api/discover/top-rated", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["items"], 1)

	w, _ = e.call(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bitelogs_reviews_submitted_total{result="ok"} 2`)
}

func TestLoginRateLimit(t *testing.T) {
	e := newEnv(t, true)
	e.register("limit@example.com")

	creds := map[string]any{"email": "limit@example.com", "password": "wrong-Pass1!"}
	for i := 0; i < 5; i++ {
		w, _ := e.call(http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i)
	}

	w, out := e.call(http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "AUTH_RATE_LIMIT_EXCEEDED", out["error"])
}

func TestUnknownRouteAndHeaders(t *testing.T) {
	e := newEnv(t, false)

	w, out := e.call(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", out["error"])
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
