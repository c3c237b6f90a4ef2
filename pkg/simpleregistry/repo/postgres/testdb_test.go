package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// TestDB represents a test database connection
type TestDB struct {
	Pool *pgxpool.Pool
}

// NewTestDB connects to TEST_DATABASE_URL, skipping the test when unset
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")

	err = pool.Ping(ctx)
	require.NoError(t, err, "Failed to ping test database")

	return &TestDB{Pool: pool}
}

// Setup creates the package version tables
func (db *TestDB) Setup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS dists (
			id BIGSERIAL PRIMARY KEY,
			dist_id VARCHAR(24) NOT NULL UNIQUE,
			name VARCHAR(214) NOT NULL,
			size BIGINT NOT NULL,
			shasum VARCHAR(512) NOT NULL,
			integrity VARCHAR(512) NOT NULL,
			path VARCHAR(512) NOT NULL
		)
	`)
	require.NoError(t, err, "Failed to create dists table")

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS package_versions (
			id BIGSERIAL PRIMARY KEY,
			package_id VARCHAR(24) NOT NULL,
			package_version_id VARCHAR(24) NOT NULL UNIQUE,
			version VARCHAR(256) NOT NULL,
			abbreviated_dist_id VARCHAR(24) NOT NULL,
			manifest_dist_id VARCHAR(24) NOT NULL,
			tar_dist_id VARCHAR(24) NOT NULL,
			readme_dist_id VARCHAR(24) NOT NULL,
			publish_time TIMESTAMPTZ NOT NULL,
			CONSTRAINT unique_package_version UNIQUE (package_id, version)
		)
	`)
	require.NoError(t, err, "Failed to create package_versions table")
}

// Cleanup removes all test data from the database
func (db *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(), "TRUNCATE package_versions, dists")
	require.NoError(t, err, "Failed to truncate tables")
}

// RunTest runs a test with database setup and cleanup
func RunTest(t *testing.T, testFunc func(t *testing.T, db *TestDB)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db := NewTestDB(t)
	defer db.Pool.Close()

	db.Setup(t)

	t.Run("", func(t *testing.T) {
		db.Cleanup(t)
		testFunc(t, db)
	})
}
