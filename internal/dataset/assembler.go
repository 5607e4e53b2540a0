package dataset

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/handicap"
	"github.com/aristath/tipster/internal/ingest"
	"github.com/aristath/tipster/internal/parlay"
)

// Fetcher downloads one source body. Satisfied by the feed client.
type Fetcher interface {
	Fetch(ctx context.Context, source string, ttl time.Duration) ([]byte, error)
}

// Assembler owns the canonical dataset. Loads replace it wholesale;
// readers always see either the previous complete dataset or the new
// one, never a half-updated mix.
type Assembler struct {
	fetcher Fetcher
	parser  *ingest.Parser
	deriver *handicap.Deriver
	builder *parlay.Builder
	snaps   *Snapshots
	log     zerolog.Logger

	group singleflight.Group
	epoch atomic.Int64

	mu      sync.RWMutex
	current *domain.Dataset
}

// NewAssembler wires the load pipeline. The snapshot store is optional;
// without it restarts begin cold.
func NewAssembler(fetcher Fetcher, parser *ingest.Parser, deriver *handicap.Deriver, builder *parlay.Builder, snaps *Snapshots, log zerolog.Logger) *Assembler {
	return &Assembler{
		fetcher: fetcher,
		parser:  parser,
		deriver: deriver,
		builder: builder,
		snaps:   snaps,
		log:     log.With().Str("component", "dataset").Logger(),
	}
}

// Current returns the installed dataset, or nil before the first
// successful load. Callers must treat it as read-only.
func (a *Assembler) Current() *domain.Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// LoadAll fetches every source concurrently, assembles a fresh dataset
// and installs it. Optional sources degrade to empty sections; required
// failures aggregate into one error and leave the previous dataset in
// place. Concurrent callers share a single load.
func (a *Assembler) LoadAll(ctx context.Context) (*domain.Dataset, error) {
	ds, err, _ := a.group.Do("load", func() (interface{}, error) {
		return a.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return ds.(*domain.Dataset), nil
}

func (a *Assembler) load(ctx context.Context) (*domain.Dataset, error) {
	epoch := a.epoch.Add(1)
	started := time.Now()

	var (
		collect  sync.Mutex
		wg       sync.WaitGroup
		results  partial
		failures = make(map[string]error)
		degraded = make(map[string]string)
	)

	for _, src := range feedSources {
		wg.Add(1)
		go func(src feedSource) {
			defer wg.Done()

			body, err := a.fetcher.Fetch(ctx, src.name, src.ttl)
			if err == nil {
				collect.Lock()
				err = src.ingest(a, &results, body)
				collect.Unlock()
			}
			if err == nil {
				return
			}

			collect.Lock()
			defer collect.Unlock()
			if src.required {
				failures[src.name] = err
				return
			}
			degraded[src.name] = err.Error()
			a.log.Warn().Err(err).Str("source", src.name).Msg("optional source unavailable")
		}(src)
	}
	wg.Wait()

	if len(failures) > 0 {
		loadErr := domain.NewDataLoadError(failures)
		a.log.Error().Err(loadErr).Int64("epoch", epoch).Msg("dataset load failed")
		return nil, loadErr
	}

	ds := a.assemble(epoch, &results, degraded)
	a.install(ds)

	if a.snaps != nil {
		if err := a.snaps.Save(ds); err != nil {
			a.log.Warn().Err(err).Msg("failed to snapshot dataset")
		}
	}

	a.log.Info().
		Int64("epoch", epoch).
		Int("games", len(ds.Games)).
		Int("recommendations", len(ds.Recommendations)).
		Int("settled_bets", len(ds.SettledBets)).
		Int("parlay_wins", len(ds.ParlayWins)).
		Int("degraded_sources", len(degraded)).
		Dur("took", time.Since(started)).
		Msg("dataset loaded")
	return ds, nil
}

// assemble runs the derivation passes over the parsed rows and freezes
// them into a dataset.
func (a *Assembler) assemble(epoch int64, results *partial, degraded map[string]string) *domain.Dataset {
	a.deriver.DeriveAll(results.games, results.recommendations)

	// Completed recommended fixtures missing from the results export are
	// settled locally so recent wins show up without waiting a day.
	bets := results.settledBets
	if bridged := parlay.Bridge(results.games, bets); len(bridged) > 0 {
		a.log.Debug().Int("count", len(bridged)).Msg("bridged settled bets from completed fixtures")
		bets = append(bets, bridged...)
	}

	wins := results.parlayWins
	if len(wins) == 0 && a.builder != nil {
		wins = a.builder.Build(bets)
	}

	ds := &domain.Dataset{
		LoadID:          uuid.NewString(),
		Epoch:           epoch,
		LoadedAt:        time.Now().UTC(),
		Metrics:         results.metrics,
		Games:           results.games,
		Recommendations: results.recommendations,
		SettledBets:     bets,
		Bankroll:        results.bankroll,
		ROIHeatmap:      results.roiHeatmap,
		TopSegments:     results.topSegments,
		ParlayWins:      wins,
		Degraded:        degraded,
	}
	if ds.Metrics == nil {
		ds.Metrics = map[string]string{}
	}
	return ds
}

// install makes the dataset current unless a newer load already won.
func (a *Assembler) install(ds *domain.Dataset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil && a.current.Epoch >= ds.Epoch {
		a.log.Debug().
			Int64("epoch", ds.Epoch).
			Int64("current_epoch", a.current.Epoch).
			Msg("discarding superseded load")
		return
	}
	a.current = ds
}

// Restore installs the snapshotted dataset from the previous run, when
// one exists. Called once at startup so the dashboard has data before
// the first refresh completes.
func (a *Assembler) Restore() bool {
	if a.snaps == nil {
		return false
	}
	ds, err := a.snaps.Load()
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to restore dataset snapshot")
		return false
	}
	if ds == nil {
		return false
	}

	// Snapshots never outrank a live load.
	ds.Epoch = 0
	a.install(ds)
	a.log.Info().
		Time("loaded_at", ds.LoadedAt).
		Int("games", len(ds.Games)).
		Msg("restored dataset snapshot")
	return true
}
