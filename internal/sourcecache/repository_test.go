package sourcecache

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE feed_sources (source TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE snapshots (name TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);

CREATE INDEX idx_feed_sources_expires ON feed_sources(expires_at);
CREATE INDEX idx_snapshots_expires ON snapshots(expires_at);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestNewRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	assert.NotNil(t, repo)
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	body := []byte("metric,value\ntotal_bets,512\n")
	err := repo.Store("feed_sources", "metrics", body, 10*time.Minute)
	require.NoError(t, err)

	// Verify data was stored
	var storedData []byte
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM feed_sources WHERE source = ?", "metrics").Scan(&storedData, &expiresAt)
	require.NoError(t, err)
	assert.Equal(t, body, storedData)

	// Verify expiration is roughly 10 minutes from now
	expectedExpires := time.Now().Add(10 * time.Minute).Unix()
	assert.InDelta(t, expectedExpires, expiresAt, 5) // Allow 5 second tolerance
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Store initial data
	err := repo.Store("feed_sources", "metrics", []byte("v1"), time.Hour)
	require.NoError(t, err)

	// Store updated data with same key
	err = repo.Store("feed_sources", "metrics", []byte("v2"), time.Hour)
	require.NoError(t, err)

	// Verify only one row exists with updated data
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM feed_sources WHERE source = ?", "metrics").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	result, err := repo.GetIfFresh("feed_sources", "metrics")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), result)
}

func TestGetIfFresh_Fresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store("feed_sources", "bankroll_series", []byte("fresh"), time.Hour)
	require.NoError(t, err)

	result, err := repo.GetIfFresh("feed_sources", "bankroll_series")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), result)
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Insert expired data directly (expired 1 hour ago)
	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO feed_sources (source, data, expires_at) VALUES (?, ?, ?)",
		"settled_bets", []byte("expired"), expiredAt,
	)
	require.NoError(t, err)

	// Should return nil for expired data
	result, err := repo.GetIfFresh("feed_sources", "settled_bets")
	require.NoError(t, err)
	assert.Nil(t, result, "Expected nil for expired data")
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Insert expired data directly (expired 1 hour ago)
	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO feed_sources (source, data, expires_at) VALUES (?, ?, ?)",
		"settled_bets", []byte("stale_but_useful"), expiredAt,
	)
	require.NoError(t, err)

	// GetIfFresh should return nil
	result, err := repo.GetIfFresh("feed_sources", "settled_bets")
	require.NoError(t, err)
	assert.Nil(t, result, "GetIfFresh should return nil for expired data")

	// Get should return the stale data (useful when downloads fail)
	result, err = repo.Get("feed_sources", "settled_bets")
	require.NoError(t, err)
	assert.Equal(t, []byte("stale_but_useful"), result)
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	result, err := repo.Get("feed_sources", "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGetIfFresh_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	result, err := repo.GetIfFresh("feed_sources", "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTouch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Insert an entry that expired an hour ago
	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(
		"INSERT INTO feed_sources (source, data, expires_at) VALUES (?, ?, ?)",
		"metrics", []byte("unchanged upstream"), expiredAt,
	)
	require.NoError(t, err)

	// Touch extends the expiry without rewriting the body
	touched, err := repo.Touch("feed_sources", "metrics", time.Hour)
	require.NoError(t, err)
	assert.True(t, touched)

	result, err := repo.GetIfFresh("feed_sources", "metrics")
	require.NoError(t, err)
	assert.Equal(t, []byte("unchanged upstream"), result)
}

func TestTouch_MissingKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	touched, err := repo.Touch("feed_sources", "nonexistent", time.Hour)
	require.NoError(t, err)
	assert.False(t, touched)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store("snapshots", "latest", []byte{0x81}, time.Hour)
	require.NoError(t, err)

	result, err := repo.GetIfFresh("snapshots", "latest")
	require.NoError(t, err)
	require.NotNil(t, result)

	err = repo.Delete("snapshots", "latest")
	require.NoError(t, err)

	result, err = repo.GetIfFresh("snapshots", "latest")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDeleteNonExistent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// Deleting non-existent key should not error
	err := repo.Delete("snapshots", "nonexistent")
	require.NoError(t, err)
}

func TestDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	now := time.Now()

	// Insert 3 expired entries and 2 fresh entries
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	for _, row := range []struct {
		source    string
		expiresAt int64
	}{
		{"metrics", expiredAt},
		{"settled_bets", expiredAt},
		{"bankroll_series", expiredAt},
		{"unified_games", freshAt},
		{"parlay_wins", freshAt},
	} {
		_, err := db.Exec(
			"INSERT INTO feed_sources (source, data, expires_at) VALUES (?, ?, ?)",
			row.source, []byte{}, row.expiresAt,
		)
		require.NoError(t, err)
	}

	deleted, err := repo.DeleteExpired("feed_sources")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	// Verify only 2 remain
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM feed_sources").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	_, err := db.Exec("INSERT INTO feed_sources (source, data, expires_at) VALUES (?, ?, ?)", "metrics", []byte{}, expiredAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO feed_sources (source, data, expires_at) VALUES (?, ?, ?)", "settled_bets", []byte{}, freshAt)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO snapshots (name, data, expires_at) VALUES (?, ?, ?)", "latest", []byte{}, expiredAt)
	require.NoError(t, err)

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)

	assert.Equal(t, int64(1), results["feed_sources"])
	assert.Equal(t, int64(1), results["snapshots"])

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM feed_sources").Scan(&count))
	assert.Equal(t, 1, count) // 1 fresh entry remains
}

func TestGetKeyColumn(t *testing.T) {
	tests := []struct {
		table    string
		expected string
	}{
		{"feed_sources", "source"},
		{"snapshots", "name"},
	}

	for _, tc := range tests {
		t.Run(tc.table, func(t *testing.T) {
			result := getKeyColumn(tc.table)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestInvalidTableName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	// All methods should reject invalid table names
	t.Run("Store", func(t *testing.T) {
		err := repo.Store("invalid_table; DROP TABLE feed_sources;--", "key", []byte{}, time.Hour)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("GetIfFresh", func(t *testing.T) {
		_, err := repo.GetIfFresh("users", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Get", func(t *testing.T) {
		_, err := repo.Get("passwords", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Touch", func(t *testing.T) {
		_, err := repo.Touch("secrets", "key", time.Hour)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("Delete", func(t *testing.T) {
		err := repo.Delete("secrets", "key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		_, err := repo.DeleteExpired("nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})
}

func TestValidateTable(t *testing.T) {
	// All tables in AllTables should be valid
	for _, table := range AllTables {
		t.Run(table, func(t *testing.T) {
			err := validateTable(table)
			assert.NoError(t, err)
		})
	}
}
