// Package reliability provides database backups and maintenance jobs.
package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/rs/zerolog"
)

// DefaultLocalRetentionDays is how many daily local backups are kept
const DefaultLocalRetentionDays = 7

// BackupService writes daily local copies of every database
type BackupService struct {
	databases     map[string]*database.DB
	backupDir     string
	retentionDays int
	log           zerolog.Logger
	now           func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(
	databases map[string]*database.DB,
	backupDir string,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		databases:     databases,
		backupDir:     backupDir,
		retentionDays: DefaultLocalRetentionDays,
		log:           log.With().Str("service", "backup").Logger(),
		now:           time.Now,
	}
}

// DatabaseNames returns the backed-up database names in stable order
func (s *BackupService) DatabaseNames() []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DailyBackup copies every database into backupDir/daily/YYYY-MM-DD and rotates old days.
// Returns the directory written.
func (s *BackupService) DailyBackup(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting daily backup")
	startTime := s.now()

	dailyDir := filepath.Join(s.backupDir, "daily", startTime.Format("2006-01-02"))
	if err := os.MkdirAll(dailyDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create daily backup directory: %w", err)
	}

	failed := 0
	for _, name := range s.DatabaseNames() {
		backupPath := filepath.Join(dailyDir, name+".db")

		if err := s.BackupDatabase(ctx, name, backupPath); err != nil {
			s.log.Error().
				Str("database", name).
				Err(err).
				Msg("Failed to backup database")
			failed++
		}
	}

	if err := s.rotateDailyBackups(); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate daily backups")
	}

	if failed > 0 {
		return dailyDir, fmt.Errorf("%d of %d database backups failed", failed, len(s.databases))
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("backup_dir", dailyDir).
		Msg("Daily backup completed successfully")

	return dailyDir, nil
}

// BackupDatabase writes a verified copy of one database to backupPath, replacing any existing file
func (s *BackupService) BackupDatabase(ctx context.Context, name, backupPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("database %s not found", name)
	}

	// VACUUM INTO refuses to overwrite
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove previous backup: %w", err)
	}

	if err := db.BackupTo(ctx, backupPath); err != nil {
		return err
	}

	if err := verifyBackup(ctx, backupPath); err != nil {
		_ = os.Remove(backupPath)
		return fmt.Errorf("backup verification failed: %w", err)
	}

	if info, err := os.Stat(backupPath); err == nil {
		s.log.Debug().
			Str("database", name).
			Int64("size_bytes", info.Size()).
			Msg("Backup created")
	}

	return nil
}

// verifyBackup runs an integrity check on a backup file
func verifyBackup(ctx context.Context, backupPath string) error {
	backupDB, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer backupDB.Close()

	var result string
	if err := backupDB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// rotateDailyBackups deletes daily directories older than the retention period
func (s *BackupService) rotateDailyBackups() error {
	dailyDir := filepath.Join(s.backupDir, "daily")
	today := s.now()
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -s.retentionDays)

	entries, err := os.ReadDir(dailyDir)
	if err != nil {
		return fmt.Errorf("failed to read daily backup directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirDate, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			s.log.Warn().
				Str("dir", entry.Name()).
				Msg("Failed to parse date from directory name")
			continue
		}

		if !dirDate.After(cutoff) {
			path := filepath.Join(dailyDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.log.Warn().
					Str("path", path).
					Err(err).
					Msg("Failed to delete old daily backup")
			} else {
				s.log.Debug().
					Str("path", path).
					Msg("Deleted old daily backup")
			}
		}
	}

	return nil
}
