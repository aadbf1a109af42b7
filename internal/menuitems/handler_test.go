package menuitems

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
	"bitelogs/internal/media"
	"bitelogs/internal/testutil"
	"bitelogs/pkg/logger"
)

func fakeAuth(c *gin.Context) {
	id, err := strconv.ParseInt(c.GetHeader("X-User"), 10, 64)
	if err != nil {
		apperr.Respond(c, apperr.Unauthenticated(""))
		return
	}
	c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: id})
	c.Next()
}

func TestMenuItemHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewSQLite(t)
	uid := testutil.CreateUser(t, db, "cook@example.com", false)
	rid := testutil.CreateRestaurant(t, db, "Diner", "Austin", "American")

	h := NewHandler(NewRepo(db), media.NewLocalStore(t.TempDir(), "/uploads"), 1<<20, logger.Discard())
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/menu-items"), fakeAuth)
	h.RegisterRestaurantRoutes(r.Group("/api/restaurants"))

	send := func(method, path string, user int64, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(body)
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if user > 0 {
			req.Header.Set("X-User", strconv.FormatInt(user, 10))
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodPost, "/api/menu-items", 0, gin.H{"restaurantId": rid, "name": "Pie", "price": 4, "category": "Desserts"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(http.MethodPost, "/api/menu-items", uid, gin.H{
		"restaurantId": rid, "name": "Pie", "price": 4, "category": "Desserts",
		"avgRating": 5, "reviewCount": 40,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		MenuItem struct {
			ID          int64   `json:"id"`
			AvgRating   float64 `json:"avgRating"`
			ReviewCount int     `json:"reviewCount"`
			Restaurant  struct {
				Name string `json:"name"`
			} `json:"restaurant"`
		} `json:"menuItem"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Zero(t, out.MenuItem.AvgRating)
	assert.Zero(t, out.MenuItem.ReviewCount)
	assert.Equal(t, "Diner", out.MenuItem.Restaurant.Name)

	w = send(http.MethodPost, "/api/menu-items", uid, gin.H{"restaurantId": rid, "name": "Free", "category": "X"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(http.MethodPost, "/api/menu-items", uid, gin.H{"restaurantId": rid, "name": "Neg", "price": -1, "category": "X"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(http.MethodPost, "/api/menu-items", uid, gin.H{"restaurantId": 999, "name": "Lost", "price": 1, "category": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(http.MethodGet, "/api/menu-items/"+strconv.FormatInt(out.MenuItem.ID, 10), 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(http.MethodGet, "/api/menu-items/31337", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Menu item not found")

	w = send(http.MethodGet, "/api/restaurants/"+strconv.FormatInt(rid, 10)+"/menu-items?category=desserts", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = send(http.MethodGet, "/api/menu-items/restaurant/"+strconv.FormatInt(rid, 10)+"?category=desserts", 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), `"name":"Pie"`)

	w = send(http.MethodGet, "/api/menu-items/restaurant/abc", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
