package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

const backupPrefix = "backup-"
const backupTimeLayout = "20060102-150405"

// FileStore persists each collection as one JSON file in a local directory.
// It has no concurrency control: a save overwrites whatever is on disk
// (last-write-wins), so callers must load fresh content immediately before
// mutating and saving.
type FileStore struct {
	dataDir   string
	backupDir string
}

func NewFileStore(dataDir, backupDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, apperrors.StorageIOf("create data directory %s: %v", dataDir, err)
	}
	if backupDir != "" {
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return nil, apperrors.StorageIOf("create backup directory %s: %v", backupDir, err)
		}
	}
	return &FileStore{dataDir: dataDir, backupDir: backupDir}, nil
}

// Load reads a collection file. A file that does not exist yet is treated as
// the empty scaffold, never as an error.
func (s *FileStore) Load(ctx context.Context, collection string) (*Document, error) {
	file, err := FileFor(collection)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(filepath.Join(s.dataDir, file))
	if os.IsNotExist(err) {
		return &Document{Collection: collection, Content: Scaffold(collection)}, nil
	}
	if err != nil {
		logger.Log.WithError(err).WithField("collection", collection).Error("Failed to read collection file")
		return nil, apperrors.StorageIOf("read collection %s: %v", collection, err)
	}

	return &Document{Collection: collection, Content: content}, nil
}

// Save writes a collection file atomically via a temp file and rename. The
// revision is ignored: the file backend is last-write-wins by contract.
func (s *FileStore) Save(ctx context.Context, collection string, content []byte, revision string) (string, error) {
	file, err := FileFor(collection)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.dataDir, file)
	tmp, err := os.CreateTemp(s.dataDir, file+".tmp-*")
	if err != nil {
		return "", apperrors.StorageIOf("create temp file for %s: %v", collection, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", apperrors.StorageIOf("write collection %s: %v", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", apperrors.StorageIOf("close collection %s: %v", collection, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", apperrors.StorageIOf("replace collection %s: %v", collection, err)
	}

	return "", nil
}

// Snapshot copies every existing collection file into a timestamped backup
// directory and returns the backup id. This is a whole-store operation.
func (s *FileStore) Snapshot(ctx context.Context, now time.Time) (string, error) {
	if s.backupDir == "" {
		return "", apperrors.Validationf("no backup directory configured")
	}

	backupID := backupPrefix + now.UTC().Format(backupTimeLayout)
	dir := filepath.Join(s.backupDir, backupID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.StorageIOf("create backup %s: %v", backupID, err)
	}

	for _, collection := range Collections() {
		file, _ := FileFor(collection)
		content, err := os.ReadFile(filepath.Join(s.dataDir, file))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", apperrors.StorageIOf("read %s for backup: %v", collection, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), content, 0o644); err != nil {
			return "", apperrors.StorageIOf("write %s to backup: %v", collection, err)
		}
	}

	logger.Log.WithField("backup_id", backupID).Info("Snapshot created")
	return backupID, nil
}

// Restore replaces the live collection set with the files from a snapshot.
// Collections absent from the snapshot are reset to the empty scaffold so the
// store matches the snapshot exactly.
func (s *FileStore) Restore(ctx context.Context, backupID string) error {
	if s.backupDir == "" {
		return apperrors.Validationf("no backup directory configured")
	}

	dir := filepath.Join(s.backupDir, backupID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return apperrors.NotFoundf("backup %s", backupID)
	} else if err != nil {
		return apperrors.StorageIOf("stat backup %s: %v", backupID, err)
	}

	for _, collection := range Collections() {
		file, _ := FileFor(collection)
		content, err := os.ReadFile(filepath.Join(dir, file))
		if os.IsNotExist(err) {
			content = Scaffold(collection)
		} else if err != nil {
			return apperrors.StorageIOf("read %s from backup: %v", collection, err)
		}
		if _, err := s.Save(ctx, collection, content, ""); err != nil {
			return err
		}
	}

	logger.Log.WithField("backup_id", backupID).Info("Snapshot restored")
	return nil
}

// ListSnapshots returns the available backup ids, newest first.
func (s *FileStore) ListSnapshots() ([]string, error) {
	if s.backupDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, apperrors.StorageIOf("list backups: %v", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), backupPrefix) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// PruneSnapshots removes backups taken before the cutoff and returns how
// many were deleted.
func (s *FileStore) PruneSnapshots(cutoff time.Time) (int, error) {
	ids, err := s.ListSnapshots()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		taken, err := time.Parse(backupTimeLayout, strings.TrimPrefix(id, backupPrefix))
		if err != nil {
			continue
		}
		if taken.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(s.backupDir, id)); err != nil {
				logger.Log.WithError(err).WithField("backup_id", id).Warn("Failed to remove old backup")
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		logger.Log.WithField("count", removed).Info("Old backups pruned")
	}
	return removed, nil
}
