package dataset

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/sourcecache"
)

const (
	snapshotTable = "snapshots"
	snapshotName  = "dataset"
)

// Snapshots persists the last good dataset so a restart can serve data
// before its first refresh finishes. Entries are msgpack-encoded; the
// format is internal and a decode failure just means a cold start.
type Snapshots struct {
	repo *sourcecache.Repository
	log  zerolog.Logger
}

// NewSnapshots creates a snapshot store on the cache database.
func NewSnapshots(repo *sourcecache.Repository, log zerolog.Logger) *Snapshots {
	return &Snapshots{
		repo: repo,
		log:  log.With().Str("component", "snapshots").Logger(),
	}
}

// Save overwrites the stored dataset.
func (s *Snapshots) Save(ds *domain.Dataset) error {
	raw, err := msgpack.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.repo.Store(snapshotTable, snapshotName, raw, sourcecache.TTLSnapshot); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	s.log.Debug().Int("bytes", len(raw)).Msg("saved dataset snapshot")
	return nil
}

// Load returns the stored dataset, or nil when none exists. Expiry is
// ignored on read; a week-old snapshot still beats an empty page.
func (s *Snapshots) Load() (*domain.Dataset, error) {
	raw, err := s.repo.Get(snapshotTable, snapshotName)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var ds domain.Dataset
	if err := msgpack.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &ds, nil
}
