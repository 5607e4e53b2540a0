package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/tipster/internal/dataset"
	"github.com/aristath/tipster/internal/domain"
	"github.com/rs/zerolog"
)

// defaultRefreshTimeout bounds one full feed refresh, covering every
// source download plus derivation.
const defaultRefreshTimeout = 2 * time.Minute

// RefreshDatasetJob reloads every feed source and swaps the assembled
// dataset in. A failed refresh leaves the previous dataset serving.
type RefreshDatasetJob struct {
	assembler *dataset.Assembler
	timeout   time.Duration
	log       zerolog.Logger
}

// RefreshDatasetConfig holds configuration for the refresh job.
type RefreshDatasetConfig struct {
	Assembler *dataset.Assembler
	Timeout   time.Duration
	Log       zerolog.Logger
}

// NewRefreshDatasetJob creates a new dataset refresh job.
func NewRefreshDatasetJob(cfg RefreshDatasetConfig) *RefreshDatasetJob {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &RefreshDatasetJob{
		assembler: cfg.Assembler,
		timeout:   timeout,
		log:       cfg.Log.With().Str("job", "refresh_dataset").Logger(),
	}
}

// Name returns the job name.
func (j *RefreshDatasetJob) Name() string {
	return "refresh_dataset"
}

// Run performs one full refresh cycle.
func (j *RefreshDatasetJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	ds, err := j.assembler.LoadAll(ctx)
	if err != nil {
		var loadErr *domain.DataLoadError
		if errors.As(err, &loadErr) {
			j.log.Error().
				Strs("sources", loadErr.Sources()).
				Msg("Refresh failed, keeping previous dataset")
		}
		return err
	}

	j.log.Info().
		Str("load_id", ds.LoadID).
		Int64("epoch", ds.Epoch).
		Int("games", len(ds.Games)).
		Int("degraded_sources", len(ds.Degraded)).
		Msg("Dataset refreshed")
	return nil
}
