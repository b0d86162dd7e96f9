package reliability

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/portfoliobot/internal/database"
	testutil "github.com/aristath/portfoliobot/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyBackupJob_LocalOnly(t *testing.T) {
	backups, backupDir := setupBackupService(t)
	job := NewDailyBackupJob(backups, nil, nil, backupDir, 30, zerolog.Nop())

	assert.Equal(t, "daily_backup", job.Name())
	require.NoError(t, job.Run())

	entries, err := os.ReadDir(filepath.Join(backupDir, "daily"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.FileExists(t, filepath.Join(backupDir, "daily", entries[0].Name(), "portfolio.db"))
}

func TestDailyBackupJob_WithArchive(t *testing.T) {
	backups, backupDir := setupBackupService(t)
	store := newMemStore()
	archives := NewArchiveBackupService(store, backups, t.TempDir(), nil, zerolog.Nop())

	job := NewDailyBackupJob(backups, archives, nil, backupDir, 30, zerolog.Nop())
	require.NoError(t, job.Run())

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], archivePrefix)
}

func TestVacuumJob(t *testing.T) {
	cacheDB, cleanup := testutil.NewTestDB(t, "cache")
	defer cleanup()

	for i := 0; i < 50; i++ {
		_, err := cacheDB.Exec("INSERT INTO historical_closes (key, data, expires_at) VALUES (?, zeroblob(4096), ?)",
			fmt.Sprintf("AAPL|%d", i), 0)
		require.NoError(t, err)
	}
	_, err := cacheDB.Exec("DELETE FROM historical_closes")
	require.NoError(t, err)

	job := NewVacuumJob(map[string]*database.DB{"cache": cacheDB}, zerolog.Nop())
	assert.Equal(t, "vacuum", job.Name())
	assert.NoError(t, job.Run())

	stats, err := cacheDB.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.FreelistCount)
}
