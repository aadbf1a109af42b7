// Package testutil opens throwaway databases and inserts fixture rows.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"bitelogs/pkg/database"
)

// NewSQLite opens a migrated sqlite database in a temp dir. It is closed
// when the test ends.
func NewSQLite(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insert(t testing.TB, db *sqlx.DB, query string, args ...any) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(db.Rebind(query+" RETURNING id"), args...).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t testing.TB, db *sqlx.DB, email string, admin bool) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO users (email, password_hash, display_name, is_admin)
		VALUES (?, ?, ?, ?)`,
		email, "x", email, admin)
}

func CreateRestaurant(t testing.TB, db *sqlx.DB, name, city, cuisine string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO restaurants (name, address, city, state, zip_code, cuisine, price_range)
		VALUES (?, '1 Main St', ?, 'CA', '94000', ?, 2)`,
		name, city, cuisine)
}

func CreateMenuItem(t testing.TB, db *sqlx.DB, restaurantID int64, name, category string) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO menu_items (restaurant_id, name, price, category)
		VALUES (?, ?, 9.5, ?)`,
		restaurantID, name, category)
}

// CreateReview inserts a review row directly, bypassing aggregate upkeep.
func CreateReview(t testing.TB, db *sqlx.DB, menuItemID, userID int64, rating int) int64 {
	t.Helper()
	return insert(t, db, `
		INSERT INTO reviews (menu_item_id, user_id, rating)
		VALUES (?, ?, ?)`,
		menuItemID, userID, rating)
}
