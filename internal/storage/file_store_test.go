package storage

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFileStoreLoadMissingReturnsScaffold(t *testing.T) {
	store := newTestFileStore(t)

	doc, err := store.Load(context.Background(), CollectionUsers)
	require.NoError(t, err)
	assert.Empty(t, doc.Revision)

	var data map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Content, &data))
	assert.Len(t, data, 1)
	assert.Empty(t, data["users"])
}

func TestFileStoreLoadUnknownCollection(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Load(context.Background(), "nonsense")
	require.Error(t, err)
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	content := []byte(`{"certifications": [{"id": "cert-1", "name": "Test Certification"}]}`)
	_, err := store.Save(ctx, CollectionCertifications, content, "")
	require.NoError(t, err)

	doc, err := store.Load(ctx, CollectionCertifications)
	require.NoError(t, err)
	assert.Equal(t, content, doc.Content)
	assert.Empty(t, doc.Revision, "file store has no revisions")
}

func TestFileStoreLastWriteWins(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	first := []byte(`{"users": [{"id": "a"}]}`)
	second := []byte(`{"users": [{"id": "b"}]}`)

	_, err := store.Save(ctx, CollectionUsers, first, "")
	require.NoError(t, err)
	// Saving with a revision from before the first write still succeeds;
	// the later write silently replaces the earlier one.
	_, err = store.Save(ctx, CollectionUsers, second, "")
	require.NoError(t, err)

	doc, err := store.Load(ctx, CollectionUsers)
	require.NoError(t, err)
	assert.Equal(t, second, doc.Content)
}

func TestFileStoreSnapshotRestore(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	original := []byte(`{"users": [{"id": "backup-test-id"}]}`)
	_, err := store.Save(ctx, CollectionUsers, original, "")
	require.NoError(t, err)

	backupID, err := store.Snapshot(ctx, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "backup-20260301-100000", backupID)

	// Mutate the live data, then restore.
	_, err = store.Save(ctx, CollectionUsers, []byte(`{"users": []}`), "")
	require.NoError(t, err)

	require.NoError(t, store.Restore(ctx, backupID))

	doc, err := store.Load(ctx, CollectionUsers)
	require.NoError(t, err)
	assert.Equal(t, original, doc.Content)
}

func TestFileStoreRestoreUnknownBackup(t *testing.T) {
	store := newTestFileStore(t)

	err := store.Restore(context.Background(), "backup-19990101-000000")
	require.Error(t, err)
}

func TestFileStorePruneSnapshots(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, CollectionUsers, []byte(`{"users": []}`), "")
	require.NoError(t, err)

	old, err := store.Snapshot(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	recent, err := store.Snapshot(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	removed, err := store.PruneSnapshots(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ids, err := store.ListSnapshots()
	require.NoError(t, err)
	assert.Equal(t, []string{recent}, ids)
	assert.NotContains(t, ids, old)
}
