package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// testSchema mirrors cache.db
const testSchema = `
CREATE TABLE ticker_validation (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE historical_closes (key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

type closesEntry struct {
	Dates  []int64  `msgpack:"d"`
	Closes []string `msgpack:"c"`
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func newTestRepo(t *testing.T, now time.Time) (*Repository, *sql.DB) {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	repo.now = func() time.Time { return now }
	return repo, db
}

func TestStore(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, db := newTestRepo(t, now)

	entry := closesEntry{Dates: []int64{1709251200}, Closes: []string{"180.5"}}
	require.NoError(t, repo.Store(TableHistoricalCloses, "AAPL|1mo", entry, TTLHistory))

	var blob []byte
	var expiresAt int64
	err := db.QueryRow("SELECT data, expires_at FROM historical_closes WHERE key = ?", "AAPL|1mo").Scan(&blob, &expiresAt)
	require.NoError(t, err)
	assert.Equal(t, now.Add(TTLHistory).Unix(), expiresAt)

	var decoded closesEntry
	require.NoError(t, msgpack.Unmarshal(blob, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestStore_Upserts(t *testing.T) {
	repo, db := newTestRepo(t, time.Now())

	require.NoError(t, repo.Store(TableTickerValidation, "AAPL", true, TTLTickerInvalid))
	require.NoError(t, repo.Store(TableTickerValidation, "AAPL", false, TTLTickerInvalid))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ticker_validation").Scan(&count))
	assert.Equal(t, 1, count)

	var valid bool
	found, err := repo.GetIfFresh(TableTickerValidation, "AAPL", &valid)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, valid)
}

func TestInvalidTable(t *testing.T) {
	repo, _ := newTestRepo(t, time.Now())

	assert.Error(t, repo.Store("users; DROP TABLE orders", "k", 1, time.Hour))
	_, err := repo.GetIfFresh("current_prices", "k", new(int))
	assert.Error(t, err)
	_, err = repo.Get("nope", "k", new(int))
	assert.Error(t, err)
	assert.Error(t, repo.Delete("nope", "k"))
	_, err = repo.DeleteExpired("nope")
	assert.Error(t, err)
}

func TestGetIfFresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, _ := newTestRepo(t, now)

	require.NoError(t, repo.Store(TableTickerValidation, "AAPL", true, time.Hour))

	var valid bool
	found, err := repo.GetIfFresh(TableTickerValidation, "AAPL", &valid)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, valid)

	found, err = repo.GetIfFresh(TableTickerValidation, "MSFT", &valid)
	require.NoError(t, err)
	assert.False(t, found)

	// Expired entries are invisible to GetIfFresh but still returned by Get
	repo.now = func() time.Time { return now.Add(2 * time.Hour) }
	valid = false
	found, err = repo.GetIfFresh(TableTickerValidation, "AAPL", &valid)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.Get(TableTickerValidation, "AAPL", &valid)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, valid)
}

func TestGetIfFresh_ExpiresExactlyAtTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, _ := newTestRepo(t, now)

	require.NoError(t, repo.Store(TableTickerValidation, "AAPL", true, time.Hour))

	repo.now = func() time.Time { return now.Add(time.Hour) }
	var valid bool
	found, err := repo.GetIfFresh(TableTickerValidation, "AAPL", &valid)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t, time.Now())

	require.NoError(t, repo.Store(TableTickerValidation, "AAPL", true, time.Hour))
	require.NoError(t, repo.Delete(TableTickerValidation, "AAPL"))

	var valid bool
	found, err := repo.Get(TableTickerValidation, "AAPL", &valid)
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting a missing key is not an error
	assert.NoError(t, repo.Delete(TableTickerValidation, "AAPL"))
}

func TestDeleteAllExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, db := newTestRepo(t, now)

	require.NoError(t, repo.Store(TableTickerValidation, "OLD", false, time.Minute))
	require.NoError(t, repo.Store(TableTickerValidation, "NEW", true, TTLTickerValid))
	require.NoError(t, repo.Store(TableHistoricalCloses, "OLD|1mo", closesEntry{}, time.Minute))
	require.NoError(t, repo.Store(TableHistoricalCloses, "NEW|1mo", closesEntry{}, TTLHistory))

	repo.now = func() time.Time { return now.Add(time.Hour) }
	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TableTickerValidation])
	assert.Equal(t, int64(1), results[TableHistoricalCloses])

	var remaining int
	require.NoError(t, db.QueryRow("SELECT (SELECT COUNT(*) FROM ticker_validation) + (SELECT COUNT(*) FROM historical_closes)").Scan(&remaining))
	assert.Equal(t, 2, remaining)
}
