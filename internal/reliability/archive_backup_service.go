package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/portfoliobot/internal/events"
	"github.com/rs/zerolog"
)

const (
	archivePrefix     = "portfoliobot-backup-"
	archiveSuffix     = ".tar.gz"
	archiveTimeLayout = "2006-01-02-150405"
	manifestName      = "backup-manifest.json"

	// MinArchivesToKeep is kept regardless of age
	MinArchivesToKeep = 3
)

// BackupManifest is written into every archive
type BackupManifest struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseManifest `json:"databases"`
}

// DatabaseManifest describes a single database in the archive
type DatabaseManifest struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo represents an archive stored remotely
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// ArchiveBackupService uploads tar.gz archives of all databases to object storage
type ArchiveBackupService struct {
	store         ObjectStore
	backupService *BackupService
	dataDir       string
	eventManager  *events.Manager
	log           zerolog.Logger
	now           func() time.Time
}

// NewArchiveBackupService creates a new archive backup service. eventManager may be nil.
func NewArchiveBackupService(
	store ObjectStore,
	backupService *BackupService,
	dataDir string,
	eventManager *events.Manager,
	log zerolog.Logger,
) *ArchiveBackupService {
	return &ArchiveBackupService{
		store:         store,
		backupService: backupService,
		dataDir:       dataDir,
		eventManager:  eventManager,
		log:           log.With().Str("service", "archive_backup").Logger(),
		now:           time.Now,
	}
}

// CreateAndUploadBackup creates a backup archive and uploads it
func (s *ArchiveBackupService) CreateAndUploadBackup(ctx context.Context) (*BackupInfo, error) {
	s.log.Info().Msg("Starting archive backup")
	startTime := s.now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "archive-staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	dbNames := s.backupService.DatabaseNames()
	manifest := BackupManifest{
		Timestamp: startTime.UTC(),
		Version:   "1",
		Databases: make([]DatabaseManifest, 0, len(dbNames)),
	}

	files := make([]string, 0, len(dbNames)+1)
	for _, dbName := range dbNames {
		filename := dbName + ".db"
		dbPath := filepath.Join(stagingDir, filename)

		if err := s.backupService.BackupDatabase(ctx, dbName, dbPath); err != nil {
			return nil, fmt.Errorf("failed to backup %s: %w", dbName, err)
		}

		info, err := os.Stat(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s backup: %w", dbName, err)
		}

		checksum, err := calculateChecksum(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate checksum for %s: %w", dbName, err)
		}

		manifest.Databases = append(manifest.Databases, DatabaseManifest{
			Name:      dbName,
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, filename)
	}

	if err := writeManifest(filepath.Join(stagingDir, manifestName), manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	files = append(files, manifestName)

	archiveName := archivePrefix + startTime.UTC().Format(archiveTimeLayout) + archiveSuffix
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, stagingDir, files); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	archiveInfo, err := archiveFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := s.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return nil, err
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Archive backup completed successfully")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("reliability", &events.BackupCompletedData{
			Location:  "remote",
			Name:      archiveName,
			SizeBytes: archiveInfo.Size(),
		})
	}

	return &BackupInfo{
		Filename:  archiveName,
		Timestamp: manifest.Timestamp,
		SizeBytes: archiveInfo.Size(),
	}, nil
}

// ListBackups lists stored archives, newest first
func (s *ArchiveBackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := s.now()

	for _, obj := range objects {
		// portfoliobot-backup-2026-01-08-143022.tar.gz
		if !strings.HasPrefix(obj.Key, archivePrefix) || !strings.HasSuffix(obj.Key, archiveSuffix) {
			continue
		}

		timestampStr := strings.TrimSuffix(strings.TrimPrefix(obj.Key, archivePrefix), archiveSuffix)
		timestamp, err := time.Parse(archiveTimeLayout, timestampStr)
		if err != nil {
			s.log.Warn().Str("filename", obj.Key).Msg("Failed to parse timestamp from filename")
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes archives older than retentionDays.
// The newest MinArchivesToKeep are kept regardless of age; retentionDays <= 0 keeps everything.
// Returns the number of archives deleted.
func (s *ArchiveBackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	if len(backups) <= MinArchivesToKeep || retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := s.now().AddDate(0, 0, -retentionDays)

	deletedCount := 0
	for _, backup := range backups[MinArchivesToKeep:] {
		if !backup.Timestamp.Before(cutoffTime) {
			continue
		}

		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().
				Err(err).
				Str("filename", backup.Filename).
				Msg("Failed to delete old backup")
			continue
		}

		s.log.Info().
			Str("filename", backup.Filename).
			Time("timestamp", backup.Timestamp).
			Msg("Deleted old backup")

		deletedCount++
	}

	s.log.Info().
		Int("deleted", deletedCount).
		Int("remaining", len(backups)-deletedCount).
		Msg("Backup rotation completed")

	return deletedCount, nil
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeManifest(path string, manifest BackupManifest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(manifest)
}

// createArchive creates a tar.gz archive of the named files in sourceDir
func createArchive(archivePath, sourceDir string, filenames []string) (err error) {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := archiveFile.Close(); err == nil {
			err = cerr
		}
	}()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
