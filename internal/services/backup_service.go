package services

import (
	"context"
	"time"

	"github.com/kazesawa-dev/certtrack/internal/storage"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// BackupService orchestrates whole-store snapshots of the local file store
// and applies the retention policy. The remote backend needs no backups:
// every accepted write is already an immutable revision.
type BackupService struct {
	store         *storage.FileStore
	retentionDays int
}

// NewBackupService creates a new instance of BackupService.
func NewBackupService(store *storage.FileStore, retentionDays int) *BackupService {
	return &BackupService{
		store:         store,
		retentionDays: retentionDays,
	}
}

// CreateBackup snapshots every collection and returns the backup id.
func (s *BackupService) CreateBackup(ctx context.Context) (string, error) {
	backupID, err := s.store.Snapshot(ctx, time.Now())
	if err != nil {
		logger.Log.WithError(err).Error("Backup failed")
		return "", err
	}
	return backupID, nil
}

// Restore replaces the live collection set with a snapshot's contents.
func (s *BackupService) Restore(ctx context.Context, backupID string) error {
	if err := s.store.Restore(ctx, backupID); err != nil {
		logger.Log.WithError(err).WithField("backup_id", backupID).Error("Restore failed")
		return err
	}
	return nil
}

// ListBackups returns the available backup ids, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	return s.store.ListSnapshots()
}

// CleanupOldBackups removes backups older than the retention window and
// returns how many were deleted.
func (s *BackupService) CleanupOldBackups(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -s.retentionDays)
	return s.store.PruneSnapshots(cutoff)
}
