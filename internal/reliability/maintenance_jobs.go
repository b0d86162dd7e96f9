package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/aristath/portfoliobot/internal/events"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// minFreeBytes is the free space below which backups are not attempted
const minFreeBytes = 500 * 1024 * 1024

// DailyBackupJob writes the local daily backup and, when configured, uploads an archive
type DailyBackupJob struct {
	backups       *BackupService
	archives      *ArchiveBackupService
	eventManager  *events.Manager
	dataDir       string
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewDailyBackupJob creates a new daily backup job. archives and eventManager may be nil.
func NewDailyBackupJob(
	backups *BackupService,
	archives *ArchiveBackupService,
	eventManager *events.Manager,
	dataDir string,
	retentionDays int,
	log zerolog.Logger,
) *DailyBackupJob {
	return &DailyBackupJob{
		backups:       backups,
		archives:      archives,
		eventManager:  eventManager,
		dataDir:       dataDir,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "daily_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DailyBackupJob) Name() string {
	return "daily_backup"
}

// Run executes the daily backup job
func (j *DailyBackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	dir, err := j.backups.DailyBackup(ctx)
	if err != nil {
		return fmt.Errorf("local backup failed: %w", err)
	}

	if j.eventManager != nil {
		j.eventManager.EmitTyped("reliability", &events.BackupCompletedData{
			Location: "local",
			Name:     dir,
		})
	}

	if j.archives == nil {
		return nil
	}

	if _, err := j.archives.CreateAndUploadBackup(ctx); err != nil {
		return fmt.Errorf("archive backup failed: %w", err)
	}

	if _, err := j.archives.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// The upload succeeded; rotation is retried tomorrow
		j.log.Error().Err(err).Msg("Failed to rotate archives")
	}

	return nil
}

// checkDiskSpace verifies sufficient disk space is available in the data directory
func (j *DailyBackupJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	j.log.Debug().
		Uint64("free_bytes", usage.Free).
		Float64("used_percent", usage.UsedPercent).
		Msg("Disk space check")

	if usage.Free < minFreeBytes {
		j.log.Error().
			Uint64("free_bytes", usage.Free).
			Msg("Insufficient disk space, skipping backup")
		return fmt.Errorf("only %d bytes free in %s", usage.Free, j.dataDir)
	}

	return nil
}

// VacuumJob reclaims space in databases with high churn (the market data cache)
type VacuumJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewVacuumJob creates a new vacuum job
func NewVacuumJob(databases map[string]*database.DB, log zerolog.Logger) *VacuumJob {
	return &VacuumJob{
		databases: databases,
		log:       log.With().Str("job", "vacuum").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *VacuumJob) Name() string {
	return "vacuum"
}

// Run executes VACUUM on every configured database
func (j *VacuumJob) Run() error {
	startTime := time.Now()

	for name, db := range j.databases {
		if err := j.vacuumDatabase(db, name); err != nil {
			j.log.Error().
				Str("database", name).
				Err(err).
				Msg("VACUUM failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Vacuum completed")

	return nil
}

func (j *VacuumJob) vacuumDatabase(db *database.DB, name string) error {
	before, err := db.GetStats()
	if err != nil {
		return err
	}

	if err := db.Vacuum(); err != nil {
		return err
	}

	after, err := db.GetStats()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", name).
		Int64("size_before_bytes", before.SizeBytes).
		Int64("size_after_bytes", after.SizeBytes).
		Msg("VACUUM completed")

	return nil
}
