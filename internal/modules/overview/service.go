// Package overview aggregates the assembled dataset into the
// dashboard's headline views.
package overview

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/parlay"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const defaultListLimit = 50

// ErrNoDataset is returned while no feed load has completed yet.
var ErrNoDataset = errors.New("no dataset loaded")

// DatasetProvider hands out the currently installed dataset.
type DatasetProvider interface {
	Current() *domain.Dataset
}

// Summary is the headline block at the top of the dashboard.
type Summary struct {
	LoadID          string            `json:"load_id"`
	Epoch           int64             `json:"epoch"`
	LoadedAt        time.Time         `json:"loaded_at"`
	Metrics         map[string]string `json:"metrics"`
	TotalBets       int               `json:"total_bets"`
	Wins            int               `json:"wins"`
	Pushes          int               `json:"pushes"`
	WinRatePct      float64           `json:"win_rate_pct"`
	TotalStaked     float64           `json:"total_staked"`
	TotalProfit     float64           `json:"total_profit"`
	ROIPct          float64           `json:"roi_pct"`
	AvgStake        float64           `json:"avg_stake"`
	AvgOdds         float64           `json:"avg_odds"`
	AvgProfit       float64           `json:"avg_profit"`
	ProfitStdDev    float64           `json:"profit_stddev"`
	CurrentBankroll float64           `json:"current_bankroll"`
	MaxDrawdown     float64           `json:"max_drawdown"`
	GamesTracked    int               `json:"games_tracked"`
	GamesWithLines  int               `json:"games_with_lines"`
	EstimatedLines  int               `json:"estimated_lines"`
	Recommendations int               `json:"recommendations"`
	ParlayCount     int               `json:"parlay_count"`
	ParlayProfit    float64           `json:"parlay_profit"`
	Degraded        map[string]string `json:"degraded,omitempty"`
}

// GameView is a game row decorated for display.
type GameView struct {
	domain.Game
	LeagueCode string `json:"league_code"`
}

// RecommendationView is a recommendation row joined against its game.
type RecommendationView struct {
	domain.Recommendation
	Reconciled    bool `json:"reconciled"`
	LineEstimated bool `json:"line_estimated"`
	GameHasAHData bool `json:"game_has_ah_data"`
}

// ParlayView is a parlay ticket decorated for display.
type ParlayView struct {
	domain.ParlayWin
	WindowLabel string  `json:"window_label"`
	LegCount    int     `json:"leg_count"`
	ReturnPct   float64 `json:"return_pct"`
}

// SegmentsView bundles the two per-segment ROI tables.
type SegmentsView struct {
	TopSegments []domain.SegmentStat `json:"top_segments"`
	ROIHeatmap  []domain.SegmentStat `json:"roi_heatmap"`
}

// CandidatesView is a hypothetical slip built from the open picks.
type CandidatesView struct {
	Legs         []domain.ParlayLeg `json:"legs"`
	LegCount     int                `json:"leg_count"`
	CombinedOdds float64            `json:"combined_odds"`
	ReturnPct    float64            `json:"return_pct"`
}

// Service provides dashboard overview operations.
type Service struct {
	data DatasetProvider
	log  zerolog.Logger
}

// NewService creates a new overview service.
func NewService(data DatasetProvider, log zerolog.Logger) *Service {
	return &Service{
		data: data,
		log:  log.With().Str("service", "overview").Logger(),
	}
}

// Summary computes the headline aggregates for the current dataset.
func (s *Service) Summary() (*Summary, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	summary := &Summary{
		LoadID:          ds.LoadID,
		Epoch:           ds.Epoch,
		LoadedAt:        ds.LoadedAt,
		Metrics:         ds.Metrics,
		TotalBets:       len(ds.SettledBets),
		GamesTracked:    len(ds.Games),
		Recommendations: len(ds.Recommendations),
		ParlayCount:     len(ds.ParlayWins),
		Degraded:        ds.Degraded,
	}

	stakes := make([]float64, 0, len(ds.SettledBets))
	profits := make([]float64, 0, len(ds.SettledBets))
	odds := make([]float64, 0, len(ds.SettledBets))
	for i := range ds.SettledBets {
		b := &ds.SettledBets[i]
		stakes = append(stakes, b.Stake)
		profits = append(profits, b.Profit)
		odds = append(odds, b.Odds)
		if b.IsWin() {
			summary.Wins++
		} else if b.IsPush() {
			summary.Pushes++
		}
	}
	summary.TotalStaked = floats.Sum(stakes)
	summary.TotalProfit = floats.Sum(profits)

	// Pushes return the stake and say nothing about pick quality, so
	// the hit rate only counts decided bets.
	if decided := summary.TotalBets - summary.Pushes; decided > 0 {
		summary.WinRatePct = float64(summary.Wins) / float64(decided) * 100
	}
	if summary.TotalStaked > 0 {
		summary.ROIPct = summary.TotalProfit / summary.TotalStaked * 100
	}
	if len(profits) > 0 {
		summary.AvgStake = stat.Mean(stakes, nil)
		summary.AvgOdds = stat.Mean(odds, nil)
		summary.AvgProfit = stat.Mean(profits, nil)
	}
	// The sample deviation is undefined for a single bet; zero reads
	// better than NaN in JSON.
	if len(profits) > 1 {
		summary.ProfitStdDev = stat.StdDev(profits, nil)
	}

	for i := range ds.Games {
		g := &ds.Games[i]
		if g.HasAHData() {
			summary.GamesWithLines++
		}
		if g.LineApproximate {
			summary.EstimatedLines++
		}
	}

	parlayProfits := make([]float64, 0, len(ds.ParlayWins))
	for i := range ds.ParlayWins {
		parlayProfits = append(parlayProfits, ds.ParlayWins[i].Profit)
	}
	summary.ParlayProfit = floats.Sum(parlayProfits)

	if n := len(ds.Bankroll); n > 0 {
		summary.CurrentBankroll = ds.Bankroll[n-1].Bankroll
	}
	peak := math.Inf(-1)
	for _, p := range ds.Bankroll {
		if p.Bankroll > peak {
			peak = p.Bankroll
		}
		if dd := peak - p.Bankroll; dd > summary.MaxDrawdown {
			summary.MaxDrawdown = dd
		}
	}

	return summary, nil
}

// UpcomingGames lists fixtures that have not finished, soonest first.
// A non-empty league filters to that league only.
func (s *Service) UpcomingGames(league string, limit int) ([]GameView, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	games := make([]GameView, 0, len(ds.Games))
	for i := range ds.Games {
		g := ds.Games[i]
		if g.IsComplete() {
			continue
		}
		if league != "" && !strings.EqualFold(g.League, league) {
			continue
		}
		games = append(games, GameView{Game: g, LeagueCode: g.LeagueCode()})
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Kickoff.Before(games[j].Kickoff)
	})

	if len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// RecentResults lists settled bets, newest first.
func (s *Service) RecentResults(limit int) ([]domain.SettledBet, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	bets := make([]domain.SettledBet, len(ds.SettledBets))
	copy(bets, ds.SettledBets)
	sort.SliceStable(bets, func(i, j int) bool {
		return bets[i].Kickoff.After(bets[j].Kickoff)
	})

	if len(bets) > limit {
		bets = bets[:limit]
	}
	return bets, nil
}

// Recommendations lists current picks joined with the derived handicap
// state of their games, soonest kickoff first.
func (s *Service) Recommendations() ([]RecommendationView, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	type fixtureKey struct {
		kickoff    time.Time
		home, away string
	}
	games := make(map[fixtureKey]*domain.Game, len(ds.Games))
	for i := range ds.Games {
		g := &ds.Games[i]
		games[fixtureKey{g.Kickoff, g.Home, g.Away}] = g
	}

	views := make([]RecommendationView, 0, len(ds.Recommendations))
	for i := range ds.Recommendations {
		rec := ds.Recommendations[i]
		view := RecommendationView{Recommendation: rec}
		if g, ok := games[fixtureKey{rec.Kickoff, rec.Home, rec.Away}]; ok {
			view.Reconciled = rec.ReconcilesWith(g)
			view.LineEstimated = g.LineApproximate
			view.GameHasAHData = g.HasAHData()
		}
		views = append(views, view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Kickoff.Before(views[j].Kickoff)
	})

	return views, nil
}

// Parlays lists winning tickets, latest window first.
func (s *Service) Parlays() ([]ParlayView, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	views := make([]ParlayView, 0, len(ds.ParlayWins))
	for i := range ds.ParlayWins {
		w := ds.ParlayWins[i]
		views = append(views, ParlayView{
			ParlayWin:   w,
			WindowLabel: w.WindowLabel(),
			LegCount:    w.LegCount(),
			ReturnPct:   w.ReturnPct(),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].WindowStart.After(views[j].WindowStart)
	})

	return views, nil
}

// Segments returns the per-segment ROI tables from the current dataset.
// Both tables are optional feed sources and may be empty.
func (s *Service) Segments() (*SegmentsView, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	view := &SegmentsView{
		TopSegments: make([]domain.SegmentStat, len(ds.TopSegments)),
		ROIHeatmap:  make([]domain.SegmentStat, len(ds.ROIHeatmap)),
	}
	copy(view.TopSegments, ds.TopSegments)
	copy(view.ROIHeatmap, ds.ROIHeatmap)
	return view, nil
}

// ParlayCandidates prices an everything-on slip from the open picks:
// one leg per recommendation whose game has not finished, at the
// recommended odds. Picks without a usable price are left out, soonest
// kickoff first.
func (s *Service) ParlayCandidates() (*CandidatesView, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	type fixtureKey struct {
		kickoff    time.Time
		home, away string
	}
	finished := make(map[fixtureKey]bool, len(ds.Games))
	for i := range ds.Games {
		g := &ds.Games[i]
		finished[fixtureKey{g.Kickoff, g.Home, g.Away}] = g.IsComplete()
	}

	type candidate struct {
		kickoff time.Time
		leg     domain.ParlayLeg
	}
	candidates := make([]candidate, 0, len(ds.Recommendations))
	for i := range ds.Recommendations {
		rec := ds.Recommendations[i]
		if finished[fixtureKey{rec.Kickoff, rec.Home, rec.Away}] {
			continue
		}
		if rec.Odds <= 0 {
			continue
		}
		candidates = append(candidates, candidate{
			kickoff: rec.Kickoff,
			leg: domain.ParlayLeg{
				Home: rec.Home,
				Away: rec.Away,
				Pick: parlay.PickLabel(rec.Side, rec.Line),
				Odds: rec.Odds,
			},
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].kickoff.Before(candidates[j].kickoff)
	})

	view := &CandidatesView{Legs: make([]domain.ParlayLeg, 0, len(candidates))}
	for _, c := range candidates {
		view.Legs = append(view.Legs, c.leg)
	}
	view.LegCount = len(view.Legs)
	if view.LegCount > 0 {
		view.CombinedOdds = parlay.CombinedOdds(view.Legs)
		view.ReturnPct = (view.CombinedOdds - 1) * 100
	}
	return view, nil
}
