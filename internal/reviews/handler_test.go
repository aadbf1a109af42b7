package reviews

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
	"bitelogs/internal/testutil"
)

type httpEnv struct {
	fixture
	router *gin.Engine
	tokens auth.TokenService
}

func newHTTPEnv(t *testing.T) httpEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	tokens := auth.TokenService{Secret: []byte("test"), Issuer: "bitelogs", Duration: time.Hour}

	r := gin.New()
	r.Use(apperr.Middleware(apperr.Responder{}))
	h := NewHandler(f.svc, 1<<20)
	requireAuth := auth.AuthMiddleware(tokens, auth.NewRepo(f.db))
	h.RegisterRoutes(r.Group("/api/reviews"), requireAuth, nil)
	h.RegisterMenuItemRoutes(r.Group("/api/menu-items"))

	return httpEnv{fixture: f, router: r, tokens: tokens}
}

func (e httpEnv) token(t *testing.T, email string, admin bool) string {
	t.Helper()
	id := testutil.CreateUser(t, e.db, email, admin)
	tok, _, err := e.tokens.Sign(&auth.User{ID: id, Email: email})
	require.NoError(t, err)
	return tok
}

func (e httpEnv) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonReq(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e httpEnv) submit(t *testing.T, token string, rating int) int64 {
	t.Helper()
	w := e.do(t, jsonReq(http.MethodPost, "/api/reviews", gin.H{"menuItemId": e.item, "rating": rating}), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Review struct {
			ID int64 `json:"id"`
		} `json:"review"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Review.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Error
}

func TestSubmitHTTP(t *testing.T) {
	e := newHTTPEnv(t)
	ann := e.token(t, "ann@example.com", false)

	w := e.do(t, jsonReq(http.MethodPost, "/api/reviews", gin.H{"menuItemId": e.item, "rating": 5}), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = e.do(t, jsonReq(http.MethodPost, "/api/reviews", gin.H{"menuItemId": e.item, "rating": 6}), ann)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = e.do(t, jsonReq(http.MethodPost, "/api/reviews", gin.H{"menuItemId": e.item, "rating": "five"}), ann)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	e.submit(t, ann, 5)

	w = e.do(t, jsonReq(http.MethodPost, "/api/reviews", gin.H{"menuItemId": e.item, "rating": 4}), ann)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))

	w = e.do(t, jsonReq(http.MethodPost, "/api/reviews", gin.H{"menuItemId": 4040, "rating": 4}), ann)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteHTTP(t *testing.T) {
	e := newHTTPEnv(t)
	ann := e.token(t, "ann@example.com", false)
	bo := e.token(t, "bo@example.com", false)
	admin := e.token(t, "root@example.com", true)

	id := e.submit(t, ann, 3)
	path := fmt.Sprintf("/api/reviews/%d", id)

	w := e.do(t, httptest.NewRequest(http.MethodDelete, path, nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, httptest.NewRequest(http.MethodDelete, path, nil), bo)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = e.do(t, httptest.NewRequest(http.MethodDelete, path, nil), admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = e.do(t, httptest.NewRequest(http.MethodDelete, path, nil), ann)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, httptest.NewRequest(http.MethodDelete, "/api/reviews/zero", nil), ann)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHTTP(t *testing.T) {
	e := newHTTPEnv(t)
	ann := e.token(t, "ann@example.com", false)
	bo := e.token(t, "bo@example.com", false)
	e.submit(t, ann, 5)
	e.submit(t, bo, 4)

	w := e.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/menu-items/%d/reviews?limit=1", e.item), nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Data []struct {
			Rating int `json:"rating"`
			User   struct {
				DisplayName string `json:"displayName"`
			} `json:"user"`
		} `json:"data"`
		Pagination struct {
			Total      int `json:"total"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 1)
	assert.NotEmpty(t, page.Data[0].User.DisplayName)

	w = e.do(t, httptest.NewRequest(http.MethodGet, "/api/menu-items/777/reviews", nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, httptest.NewRequest(http.MethodGet, "/api/reviews/user/1", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadImageHTTP(t *testing.T) {
	e := newHTTPEnv(t)
	ann := e.token(t, "ann@example.com", false)
	bo := e.token(t, "bo@example.com", false)
	id := e.submit(t, ann, 5)

	upload := func() *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("image", "dish.png")
		require.NoError(t, err)
		_, err = fw.Write(pngData(t))
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reviews/%d/image", id), &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	w := e.do(t, upload(), bo)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, upload(), ann)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "/uploads/reviews/")

	w = e.do(t, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/reviews/%d/image", id), nil), ann)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Image file is required")
}
