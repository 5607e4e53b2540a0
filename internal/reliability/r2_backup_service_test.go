package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	testingpkg "github.com/aristath/tipster/internal/testing"
	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ObjectStorage for tests.
type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) Download(_ context.Context, key string, w io.WriterAt) (int64, error) {
	data, ok := m.objects[key]
	if !ok {
		return 0, fmt.Errorf("no such key: %s", key)
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func (m *memStore) List(_ context.Context, prefix string) ([]s3types.Object, error) {
	var out []s3types.Object
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, s3types.Object{
				Key:  aws.String(key),
				Size: aws.Int64(int64(len(data))),
			})
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func archiveKey(ts string) string {
	return backupPrefix + ts + ".tar.gz"
}

func TestCreateAndUploadBackupArchivesDatabase(t *testing.T) {
	db := testingpkg.NewCacheDB(t)
	seedFeedRow(t, db, "metrics")

	dataDir := t.TempDir()
	backups := NewBackupService(db, filepath.Join(dataDir, "backups"), zerolog.Nop())
	store := newMemStore()
	svc := NewR2BackupService(store, backups, dataDir, zerolog.Nop())

	require.NoError(t, svc.CreateAndUploadBackup(context.Background()))
	require.Len(t, store.objects, 1)

	var key string
	var blob []byte
	for k, v := range store.objects {
		key, blob = k, v
	}
	assert.True(t, strings.HasPrefix(key, backupPrefix), "key %s", key)
	assert.True(t, strings.HasSuffix(key, ".tar.gz"), "key %s", key)

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	contents := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = data
	}

	require.Contains(t, contents, "cache.db")
	require.Contains(t, contents, "backup-metadata.json")

	var meta BackupMetadata
	require.NoError(t, json.Unmarshal(contents["backup-metadata.json"], &meta))
	assert.Equal(t, "cache", meta.Database.Name)
	assert.Equal(t, "cache.db", meta.Database.Filename)
	assert.Equal(t, int64(len(contents["cache.db"])), meta.Database.SizeBytes)
	assert.True(t, strings.HasPrefix(meta.Database.Checksum, "sha256:"))
	assert.False(t, meta.Timestamp.IsZero())

	_, err = os.Stat(filepath.Join(dataDir, "r2-staging"))
	assert.True(t, os.IsNotExist(err), "staging directory should be cleaned up")
}

func TestListBackupsSortsNewestFirst(t *testing.T) {
	store := newMemStore()
	store.objects[archiveKey("2026-08-20-010203")] = []byte("a")
	store.objects[archiveKey("2026-08-22-050607")] = []byte("bb")
	store.objects[archiveKey("garbage")] = []byte("c")
	store.objects[backupPrefix+"2026-08-21-000000.zip"] = []byte("d")

	svc := NewR2BackupService(store, nil, "", zerolog.Nop())

	list, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2, "malformed names should be skipped")

	assert.Equal(t, archiveKey("2026-08-22-050607"), list[0].Filename)
	assert.Equal(t, time.Date(2026, 8, 22, 5, 6, 7, 0, time.UTC), list[0].Timestamp)
	assert.Equal(t, int64(2), list[0].SizeBytes)
	assert.Equal(t, archiveKey("2026-08-20-010203"), list[1].Filename)
}

func TestRotateOldBackupsKeepsMinimumOfThree(t *testing.T) {
	store := newMemStore()
	store.objects[archiveKey("2020-01-01-000000")] = []byte("a")
	store.objects[archiveKey("2020-01-02-000000")] = []byte("b")
	store.objects[archiveKey("2020-01-03-000000")] = []byte("c")

	svc := NewR2BackupService(store, nil, "", zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background(), 7))
	assert.Len(t, store.objects, 3, "the minimum set is kept regardless of age")
}

func TestRotateOldBackupsDeletesBeyondRetention(t *testing.T) {
	store := newMemStore()
	recent := time.Now().Add(-time.Hour).Format(backupTimestampFormat)
	store.objects[archiveKey(recent)] = []byte("r")
	store.objects[archiveKey("2020-01-01-000000")] = []byte("a")
	store.objects[archiveKey("2020-01-02-000000")] = []byte("b")
	store.objects[archiveKey("2020-01-03-000000")] = []byte("c")
	store.objects[archiveKey("2020-01-04-000000")] = []byte("d")

	svc := NewR2BackupService(store, nil, "", zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background(), 7))

	assert.Len(t, store.objects, 3)
	assert.Contains(t, store.objects, archiveKey(recent))
	assert.Contains(t, store.objects, archiveKey("2020-01-04-000000"))
	assert.Contains(t, store.objects, archiveKey("2020-01-03-000000"))
	assert.NotContains(t, store.objects, archiveKey("2020-01-01-000000"))
	assert.NotContains(t, store.objects, archiveKey("2020-01-02-000000"))
}

func TestRotateOldBackupsZeroRetentionKeepsEverything(t *testing.T) {
	store := newMemStore()
	for day := 1; day <= 5; day++ {
		store.objects[archiveKey(fmt.Sprintf("2020-01-%02d-000000", day))] = []byte("x")
	}

	svc := NewR2BackupService(store, nil, "", zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background(), 0))
	assert.Len(t, store.objects, 5)
}

func TestDownloadBackupWritesFile(t *testing.T) {
	store := newMemStore()
	key := archiveKey("2026-01-01-000000")
	store.objects[key] = []byte("payload")

	svc := NewR2BackupService(store, nil, "", zerolog.Nop())

	destPath := filepath.Join(t.TempDir(), "restore.tar.gz")
	n, err := svc.DownloadBackup(context.Background(), key, destPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), n)

	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestR2BackupJob(t *testing.T) {
	db := testingpkg.NewCacheDB(t)
	seedFeedRow(t, db, "metrics")

	dataDir := t.TempDir()
	backups := NewBackupService(db, filepath.Join(dataDir, "backups"), zerolog.Nop())
	store := newMemStore()
	svc := NewR2BackupService(store, backups, dataDir, zerolog.Nop())

	job := NewR2BackupJob(svc, 7)
	assert.Equal(t, "r2_backup", job.Name())

	require.NoError(t, job.Run())
	assert.Len(t, store.objects, 1)
}
