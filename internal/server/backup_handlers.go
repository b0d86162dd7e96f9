package server

import (
	"net/http"

	"github.com/aristath/portfoliobot/internal/reliability"
	"github.com/rs/zerolog"
)

// BackupHandlers exposes remote archive backups
type BackupHandlers struct {
	archives *reliability.ArchiveBackupService
	log      zerolog.Logger
}

// NewBackupHandlers creates backup handlers. archives may be nil.
func NewBackupHandlers(archives *reliability.ArchiveBackupService, log zerolog.Logger) *BackupHandlers {
	return &BackupHandlers{
		archives: archives,
		log:      log.With().Str("handler", "backups").Logger(),
	}
}

// HandleList lists stored archives, newest first
// GET /api/backups
func (h *BackupHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "archive backups not configured")
		return
	}

	backups, err := h.archives.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeError(w, h.log, http.StatusBadGateway, "failed to list backups")
		return
	}

	writeJSON(w, h.log, http.StatusOK, backups)
}

// HandleCreate uploads a new archive immediately
// POST /api/backups
func (h *BackupHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "archive backups not configured")
		return
	}

	info, err := h.archives.CreateAndUploadBackup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeError(w, h.log, http.StatusInternalServerError, "backup failed")
		return
	}

	writeJSON(w, h.log, http.StatusCreated, info)
}
