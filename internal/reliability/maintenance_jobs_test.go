package reliability

import (
	"testing"
	"time"

	"github.com/aristath/tipster/internal/sourcecache"
	testingpkg "github.com/aristath/tipster/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaintenanceJob(t *testing.T) (*DailyMaintenanceJob, *sourcecache.Repository) {
	t.Helper()

	db := testingpkg.NewCacheDB(t)
	repo := sourcecache.NewRepository(db.Conn())

	job := NewDailyMaintenanceJob(DailyMaintenanceConfig{
		DB:      db,
		Cache:   repo,
		DataDir: t.TempDir(),
		Log:     zerolog.Nop(),
	})

	return job, repo
}

func TestDailyMaintenancePurgesExpiredRows(t *testing.T) {
	job, repo := newMaintenanceJob(t)

	require.NoError(t, repo.Store("feed_sources", "metrics", []byte("expired"), -time.Minute))
	require.NoError(t, repo.Store("feed_sources", "bankroll_series", []byte("fresh"), time.Hour))

	require.NoError(t, job.Run())

	data, err := repo.Get("feed_sources", "metrics")
	require.NoError(t, err)
	assert.Nil(t, data, "expired row should be purged")

	data, err = repo.Get("feed_sources", "bankroll_series")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), data)
}

func TestDailyMaintenanceRunsCleanOnEmptyDatabase(t *testing.T) {
	job, _ := newMaintenanceJob(t)

	assert.NoError(t, job.Run())
}

func TestDailyMaintenanceName(t *testing.T) {
	job, _ := newMaintenanceJob(t)

	assert.Equal(t, "daily_maintenance", job.Name())
}
