package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"VALIDATION_ERROR","message":"Validation failed","errors":[{"field":"rating","message":"Rating must be between 1 and 5"}]}`))
	}))
	defer srv.Close()

	c := &apiClient{http: srv.Client(), baseURL: srv.URL}
	err := c.do(context.Background(), http.MethodPost, "/reviews", "tok", map[string]any{"rating": 9}, nil)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "rating: Rating must be between 1 and 5")
}

func TestClientDecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var out map[string]string
	c := &apiClient{http: srv.Client(), baseURL: srv.URL}
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/live", "", nil, &out))
	assert.Equal(t, "ok", out["status"])
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	require.NoError(t, saveToken(path, "abc"))

	tok, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path))
	assert.Error(t, saveToken(path, ""))
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://api.example.com/api", "/ws/reviews")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/ws/reviews", u)

	u, err = websocketURL("http://localhost:3001/api", "/ws/reviews")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3001/ws/reviews", u)
}
