package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) Config {
	t.Helper()
	return Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "nested", "test.db")}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", sqliteDSN("a.db"))
	assert.Equal(t, "file:a.db?mode=rw&_foreign_keys=1&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", sqliteDSN("file:a.db?mode=rw"))
	assert.Equal(t, ":memory:?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate", sqliteDSN(":memory:"))
}

func TestOpenCreatesDataDirAndMigrates(t *testing.T) {
	cfg := openTemp(t)

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(cfg.DSN))
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	// second run is a no-op
	require.NoError(t, Migrate(db))

	require.NoError(t, Ping(context.Background(), db))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM reviews`))
	assert.Equal(t, 0, n)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestConstraintDetection(t *testing.T) {
	db, err := Open(openTemp(t))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO users (email, password_hash, display_name) VALUES ('a@b.c', 'x', 'A')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO users (email, password_hash, display_name) VALUES ('a@b.c', 'y', 'B')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))

	_, err = db.Exec(`INSERT INTO menu_items (restaurant_id, name, price, category) VALUES (999, 'x', 1, 'c')`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
}

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := Open(Config{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, Ping(context.Background(), db))
}
