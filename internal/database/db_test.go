package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrate_PortfolioSchema(t *testing.T) {
	db := newTestDB(t, "portfolio", ProfileLedger)

	for _, table := range []string{"users", "lots", "orders"} {
		assert.True(t, tableExists(t, db, table), "missing table %s", table)
	}

	// Idempotent
	require.NoError(t, db.Migrate())
}

func TestMigrate_CacheSchema(t *testing.T) {
	db := newTestDB(t, "cache", ProfileCache)

	assert.True(t, tableExists(t, db, "ticker_validation"))
	assert.True(t, tableExists(t, db, "historical_closes"))
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch", ProfileStandard)
	assert.False(t, tableExists(t, db, "orders"))
}

func TestForeignKeysEnabled(t *testing.T) {
	db := newTestDB(t, "portfolio", ProfileLedger)

	_, err := db.Exec(`INSERT INTO lots (id, owner, ticker, shares, entry_price, purchase_date)
		VALUES ('l1', 'ghost', 'AAPL', '1', '1', 0)`)
	assert.Error(t, err, "lot for unknown owner must violate the users foreign key")
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t, "portfolio", ProfileLedger)

	insertUser := func(tx *sql.Tx, name string) error {
		_, err := tx.Exec("INSERT INTO users (username, created_at) VALUES (?, 0)", name)
		return err
	}
	countUsers := func() int {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
		return n
	}

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			return insertUser(tx, "alice")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countUsers())
	})

	t.Run("rolls back and preserves error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insertUser(tx, "bob"))
			return sentinel
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, countUsers())
	})

	t.Run("recovers panics", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insertUser(tx, "carol"))
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.Equal(t, 1, countUsers())
	})

	t.Run("nil connection", func(t *testing.T) {
		err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
		assert.Error(t, err)
	})
}

func TestWALCheckpoint(t *testing.T) {
	db := newTestDB(t, "portfolio", ProfileLedger)

	res, err := db.WALCheckpoint("PASSIVE")
	require.NoError(t, err)
	assert.False(t, res.Busy)

	_, err = db.WALCheckpoint("BOGUS")
	assert.Error(t, err)
}

func TestBackupTo(t *testing.T) {
	db := newTestDB(t, "portfolio", ProfileLedger)
	_, err := db.Exec("INSERT INTO users (username, created_at) VALUES ('alice', 0)")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup", "portfolio.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))

	restored, err := New(Config{Path: dest, Name: "restored"})
	require.NoError(t, err)
	defer restored.Close()

	var n int
	require.NoError(t, restored.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestHealthCheckAndStats(t *testing.T) {
	db := newTestDB(t, "portfolio", ProfileLedger)

	require.NoError(t, db.HealthCheck(context.Background()))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
