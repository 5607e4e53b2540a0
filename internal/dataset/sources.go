// Package dataset assembles every feed source into one cohesive,
// immutable dataset and owns its lifecycle across refreshes.
package dataset

import (
	"time"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/sourcecache"
)

// partial collects per-source results while a load is in flight. Access
// is serialized by the assembler's collect mutex.
type partial struct {
	metrics         map[string]string
	games           []domain.Game
	recommendations []domain.Recommendation
	settledBets     []domain.SettledBet
	bankroll        []domain.BankrollPoint
	roiHeatmap      []domain.SegmentStat
	topSegments     []domain.SegmentStat
	parlayWins      []domain.ParlayWin
}

// feedSource describes one CSV export: its cache TTL, whether the load
// can survive without it, and how its rows land in the dataset.
type feedSource struct {
	name     string
	required bool
	ttl      time.Duration
	ingest   func(a *Assembler, p *partial, body []byte) error
}

// SourceInfo describes one feed source for status reporting.
type SourceInfo struct {
	Name     string
	Required bool
	TTL      time.Duration
}

// Sources lists every feed source the assembler pulls, in fetch order.
func Sources() []SourceInfo {
	infos := make([]SourceInfo, 0, len(feedSources))
	for _, src := range feedSources {
		infos = append(infos, SourceInfo{Name: src.name, Required: src.required, TTL: src.ttl})
	}
	return infos
}

// Required sources carry the dashboard's primary panels; the rest
// degrade to empty sections.
var feedSources = []feedSource{
	{
		name:     "metrics",
		required: true,
		ttl:      sourcecache.TTLMetrics,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			metrics, err := a.parser.Metrics(body)
			if err != nil {
				return err
			}
			p.metrics = metrics
			return nil
		},
	},
	{
		name:     "latest_recommendations",
		required: true,
		ttl:      sourcecache.TTLRecommendations,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			recs, err := a.parser.Recommendations(body)
			if err != nil {
				return err
			}
			p.recommendations = recs
			return nil
		},
	},
	{
		name:     "settled_bets",
		required: true,
		ttl:      sourcecache.TTLSettledBets,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			bets, err := a.parser.SettledBets(body)
			if err != nil {
				return err
			}
			p.settledBets = bets
			return nil
		},
	},
	{
		name:     "bankroll_series",
		required: true,
		ttl:      sourcecache.TTLBankrollSeries,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			points, err := a.parser.BankrollSeries(body)
			if err != nil {
				return err
			}
			p.bankroll = points
			return nil
		},
	},
	{
		name:     "unified_games",
		required: true,
		ttl:      sourcecache.TTLUnifiedGames,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			games, err := a.parser.Games(body)
			if err != nil {
				return err
			}
			p.games = games
			return nil
		},
	},
	{
		name: "roi_heatmap",
		ttl:  sourcecache.TTLSegments,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			segs, err := a.parser.ROIHeatmap(body)
			if err != nil {
				return err
			}
			p.roiHeatmap = segs
			return nil
		},
	},
	{
		name: "top_segments",
		ttl:  sourcecache.TTLSegments,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			segs, err := a.parser.TopSegments(body)
			if err != nil {
				return err
			}
			p.topSegments = segs
			return nil
		},
	},
	{
		name: "parlay_wins",
		ttl:  sourcecache.TTLParlayWins,
		ingest: func(a *Assembler, p *partial, body []byte) error {
			wins, err := a.parser.ParlayWins(body)
			if err != nil {
				return err
			}
			p.parlayWins = wins
			return nil
		},
	},
}
