package restaurants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitelogs/internal/apperr"
	"bitelogs/internal/testutil"
	"bitelogs/pkg/models"
)

func TestCreateAndGet(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewRepo(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com", false)

	m := &models.Restaurant{
		Name: "Taqueria Sol", Address: "1 Mission St", City: "San Francisco", State: "CA",
		ZipCode: "94103", Cuisine: "Mexican", PriceRange: 1, Website: "https://sol.example", CreatedByID: owner,
	}
	require.NoError(t, repo.Create(ctx, m))
	assert.NotZero(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Taqueria Sol", got.Name)
	assert.Equal(t, "https://sol.example", got.Website)
	assert.Empty(t, got.Phone)
	assert.Equal(t, owner, got.CreatedByID)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateWithoutCreator(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewRepo(db)
	ctx := context.Background()

	m := &models.Restaurant{Name: "Seeded", Address: "2 Main St", City: "Austin", State: "TX", ZipCode: "78701", Cuisine: "BBQ", PriceRange: 2}
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Zero(t, got.CreatedByID)

	err = repo.Create(ctx, &models.Restaurant{Name: "Orphan", Address: "3 Main St", City: "Austin", State: "TX", ZipCode: "78701", Cuisine: "BBQ", PriceRange: 2, CreatedByID: 4242})
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "User not found", err.Error())
}

func TestPageFilters(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewRepo(db)
	ctx := context.Background()

	testutil.CreateRestaurant(t, db, "Pasta Place", "Oakland", "Italian")
	testutil.CreateRestaurant(t, db, "Pizza Corner", "San Francisco", "Italian")
	testutil.CreateRestaurant(t, db, "Sushi Bar", "San Francisco", "Japanese")

	page, err := repo.Page(ctx, ListQuery{City: "san fran"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	page, err = repo.Page(ctx, ListQuery{Cuisine: "ITAL", Search: "pi"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Pizza Corner", page.Data[0].Name)

	page, err = repo.Page(ctx, ListQuery{Search: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Pagination.TotalPages)
}

func TestPagePagination(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewRepo(db)
	ctx := context.Background()

	for _, n := range []string{"A", "B", "C", "D", "E"} {
		testutil.CreateRestaurant(t, db, n, "Austin", "BBQ")
	}

	page, err := repo.Page(ctx, ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, page.Pagination)
	// newest first; same-second rows fall back to id
	require.Len(t, page.Data, 2)
	assert.Equal(t, "C", page.Data[0].Name)
	assert.Equal(t, "B", page.Data[1].Name)

	page, err = repo.Page(ctx, ListQuery{Page: 0, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, models.DefaultPageSize, page.Pagination.Limit)
}

func TestBuildListSQL(t *testing.T) {
	sqlStr, args := buildListSQL(ListQuery{City: " Austin ", Limit: 10, Page: 3}, false)
	assert.Contains(t, sqlStr, "WHERE LOWER(city) LIKE ?")
	assert.Contains(t, sqlStr, "LIMIT ? OFFSET ?")
	assert.Equal(t, []any{"%austin%", 10, 20}, args)

	sqlStr, args = buildListSQL(ListQuery{}, true)
	assert.Equal(t, "SELECT COUNT(*) FROM restaurants", sqlStr)
	assert.Empty(t, args)
}

func TestUpdateImage(t *testing.T) {
	db := testutil.NewSQLite(t)
	repo := NewRepo(db)
	ctx := context.Background()
	id := testutil.CreateRestaurant(t, db, "Cafe", "Austin", "Coffee")

	old, err := repo.UpdateImage(ctx, id, "/uploads/restaurants/a.jpg")
	require.NoError(t, err)
	assert.Empty(t, old)

	old, err = repo.UpdateImage(ctx, id, "/uploads/restaurants/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/restaurants/a.jpg", old)

	_, err = repo.UpdateImage(ctx, 4242, "/x.jpg")
	assert.Error(t, err)
}
