// Package di provides dependency injection for scheduled jobs.
package di

import (
	"fmt"

	"github.com/aristath/portfoliobot/internal/clientdata"
	"github.com/aristath/portfoliobot/internal/config"
	"github.com/aristath/portfoliobot/internal/reliability"
	"github.com/aristath/portfoliobot/internal/scheduler"
	"github.com/rs/zerolog"
)

// Cron schedules (with seconds field)
const (
	walCheckpointSchedule = "0 */30 * * * *" // every 30 minutes
	cacheCleanupSchedule  = "0 15 * * * *"   // hourly
	vacuumSchedule        = "0 0 4 * * 0"    // Sundays 04:00
)

// RegisterJobs creates the scheduler and registers every job. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	instances := &JobInstances{Scheduler: sched}

	// The pass itself never outlives the tick that started it
	instances.OrderCheck = scheduler.NewOrderCheckJob(container.Engine, cfg.OrderCheckInterval, log)
	if err := sched.Every(cfg.OrderCheckInterval, instances.OrderCheck); err != nil {
		return nil, fmt.Errorf("failed to register order check job: %w", err)
	}

	instances.WALCheckpoint = scheduler.NewCheckWALCheckpointsJob(container.Databases(), log)
	if err := sched.AddJob(walCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	instances.CacheCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := sched.AddJob(cacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	instances.Vacuum = reliability.NewVacuumJob(container.Databases(), log)
	if err := sched.AddJob(vacuumSchedule, instances.Vacuum); err != nil {
		return nil, fmt.Errorf("failed to register vacuum job: %w", err)
	}

	if cfg.Backup != nil && cfg.Backup.Enabled {
		instances.DailyBackup = reliability.NewDailyBackupJob(
			container.BackupService,
			container.ArchiveService,
			container.EventManager,
			cfg.DataDir,
			cfg.Backup.RetentionDays,
			log,
		)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.DailyBackup); err != nil {
			return nil, fmt.Errorf("failed to register daily backup job: %w", err)
		}
	}

	log.Info().
		Dur("order_check_interval", cfg.OrderCheckInterval).
		Bool("backups", instances.DailyBackup != nil).
		Msg("Jobs registered")

	return instances, nil
}
