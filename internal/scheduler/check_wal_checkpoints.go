package scheduler

import (
	"sort"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/rs/zerolog"
)

// walTruncateThreshold is the WAL size, in frames, above which the log is truncated
const walTruncateThreshold = 1000

// CheckWALCheckpointsJob checkpoints WAL files and truncates them when they grow large
type CheckWALCheckpointsJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(databases map[string]*database.DB, log zerolog.Logger) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		log:       log.With().Str("job", "check_wal_checkpoints").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the check WAL checkpoints job
func (j *CheckWALCheckpointsJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	checkedCount := 0
	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			continue
		}

		result, err := db.WALCheckpoint("PASSIVE")
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", name).
				Msg("Failed to check WAL checkpoint")
			continue
		}

		if result.LogFrames > walTruncateThreshold {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", result.LogFrames).
				Int("checkpointed", result.Checkpointed).
				Msg("WAL file is large, truncating")

			if _, err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().Err(err).Str("database", name).Msg("WAL truncate failed")
			}
		} else {
			j.log.Debug().
				Str("database", name).
				Int("wal_frames", result.LogFrames).
				Msg("WAL checkpoint status OK")
		}

		checkedCount++
	}

	j.log.Debug().
		Int("checked", checkedCount).
		Msg("WAL checkpoint check completed")

	return nil
}
