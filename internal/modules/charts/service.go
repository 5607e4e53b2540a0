// Package charts builds renderable chart scenes from the assembled dataset.
package charts

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/geometry"
	talib "github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// smaPeriod is the window of the moving-average overlay on the
// bankroll chart.
const smaPeriod = 7

// ErrNoDataset is returned while no feed load has completed yet.
var ErrNoDataset = errors.New("no dataset loaded")

// ErrUnknownChart is returned for chart names the dashboard does not
// serve.
var ErrUnknownChart = errors.New("unknown chart")

// ChartPoint is a single aggregated sample in a sparkline response.
type ChartPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// DatasetProvider hands out the currently installed dataset.
type DatasetProvider interface {
	Current() *domain.Dataset
}

// Service provides chart layout operations.
type Service struct {
	data DatasetProvider
	log  zerolog.Logger
}

// NewService creates a new charts service.
func NewService(data DatasetProvider, log zerolog.Logger) *Service {
	return &Service{
		data: data,
		log:  log.With().Str("service", "charts").Logger(),
	}
}

// Chart lays out the named dashboard chart.
func (s *Service) Chart(name string) (*geometry.Scene, error) {
	switch name {
	case "bankroll":
		return s.BankrollChart()
	case "profit":
		return s.ProfitChart()
	case "winloss":
		return s.WinLossChart()
	case "segments":
		return s.SegmentROIChart()
	case "parlays":
		return s.ParlayProfitChart()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
}

// BankrollChart lays out the cumulative bankroll as an area line with a
// moving-average overlay once enough samples exist.
func (s *Service) BankrollChart() (*geometry.Scene, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	points := make([]geometry.Point, 0, len(ds.Bankroll))
	values := make([]float64, 0, len(ds.Bankroll))
	for _, p := range ds.Bankroll {
		points = append(points, geometry.Point{
			Label: p.Date.In(domain.FeedLocation).Format("2006-01-02"),
			Value: p.Bankroll,
		})
		values = append(values, p.Bankroll)
	}

	series := []geometry.Series{{Name: "Bankroll", Points: points}}
	if len(values) >= smaPeriod {
		sma := talib.Sma(values, smaPeriod)
		overlay := make([]geometry.Point, len(points))
		for i := range points {
			overlay[i] = geometry.Point{Label: points[i].Label, Value: sma[i]}
			if i < smaPeriod-1 {
				// talib leaves the warmup prefix at zero; hide it
				// instead of plotting a false dip.
				overlay[i].Value = math.NaN()
			}
		}
		series = append(series, geometry.Series{
			Name:   fmt.Sprintf("%d-day average", smaPeriod),
			Points: overlay,
		})
	}

	opts := geometry.DefaultLineOptions()
	opts.ShowArea = true
	return geometry.LayoutLine(series, opts), nil
}

// ProfitChart lays out realized profit per calendar month. Winning and
// losing months are separate series so the stacked layout draws winning
// months above the zero line and losing months below it.
func (s *Service) ProfitChart() (*geometry.Scene, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	months, byMonth := monthlyProfits(ds.SettledBets)

	wins := geometry.Series{Name: "Winning months", Points: make([]geometry.Point, len(months))}
	losses := geometry.Series{Name: "Losing months", Points: make([]geometry.Point, len(months))}
	for i, month := range months {
		net := byMonth[month].win - byMonth[month].loss
		wins.Points[i] = geometry.Point{Label: month, Value: math.Max(net, 0)}
		losses.Points[i] = geometry.Point{Label: month, Value: math.Min(net, 0)}
	}

	opts := geometry.DefaultBarOptions()
	opts.Mode = geometry.BarsStacked
	return geometry.LayoutBars([]geometry.Series{wins, losses}, opts), nil
}

// WinLossChart compares gross winnings against gross losses per calendar
// month, as side-by-side columns. Both magnitudes are positive; the gap
// between the two columns is the month's net result.
func (s *Service) WinLossChart() (*geometry.Scene, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	months, byMonth := monthlyProfits(ds.SettledBets)

	won := geometry.Series{Name: "Gross won", Points: make([]geometry.Point, len(months))}
	lost := geometry.Series{Name: "Gross lost", Points: make([]geometry.Point, len(months))}
	for i, month := range months {
		won.Points[i] = geometry.Point{Label: month, Value: byMonth[month].win}
		lost.Points[i] = geometry.Point{Label: month, Value: byMonth[month].loss}
	}

	opts := geometry.DefaultBarOptions()
	opts.Mode = geometry.BarsSeparated
	return geometry.LayoutBars([]geometry.Series{won, lost}, opts), nil
}

// monthTotals accumulates gross profit and gross loss, both as positive
// magnitudes.
type monthTotals struct {
	win  float64
	loss float64
}

// monthlyProfits buckets settled bets by feed-local calendar month and
// returns the months in order plus per-month gross totals.
func monthlyProfits(bets []domain.SettledBet) ([]string, map[string]monthTotals) {
	byMonth := make(map[string]monthTotals)
	for _, b := range bets {
		month := b.Kickoff.In(domain.FeedLocation).Format("2006-01")
		totals := byMonth[month]
		if b.Profit >= 0 {
			totals.win += b.Profit
		} else {
			totals.loss += -b.Profit
		}
		byMonth[month] = totals
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	return months, byMonth
}

// SegmentROIChart lays out the strongest (tier, line) segments as a
// bar per segment.
func (s *Service) SegmentROIChart() (*geometry.Scene, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	points := make([]geometry.Point, 0, len(ds.TopSegments))
	for _, seg := range ds.TopSegments {
		points = append(points, geometry.Point{
			Label: segmentLabel(seg),
			Value: seg.ROIPct,
		})
	}

	series := []geometry.Series{{Name: "ROI %", Points: points}}
	return geometry.LayoutBars(series, geometry.DefaultBarOptions()), nil
}

// ParlayProfitChart lays out realized parlay profit per betting window.
func (s *Service) ParlayProfitChart() (*geometry.Scene, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	wins := make([]domain.ParlayWin, len(ds.ParlayWins))
	copy(wins, ds.ParlayWins)
	sort.SliceStable(wins, func(i, j int) bool {
		return wins[i].WindowStart.Before(wins[j].WindowStart)
	})

	points := make([]geometry.Point, 0, len(wins))
	for _, w := range wins {
		points = append(points, geometry.Point{
			Label: w.WindowStart.In(domain.FeedLocation).Format("01-02 15:04"),
			Value: w.Profit,
		})
	}

	series := []geometry.Series{{Name: "Parlay profit", Points: points}}
	return geometry.LayoutBars(series, geometry.DefaultBarOptions()), nil
}

// LeagueSparklines returns per-league profit series with the requested
// aggregation: weekly buckets over the last three months, or monthly
// buckets over the last year.
func (s *Service) LeagueSparklines(period string) (map[string][]ChartPoint, error) {
	ds := s.data.Current()
	if ds == nil {
		return nil, ErrNoDataset
	}

	now := time.Now().In(domain.FeedLocation)
	var cutoff time.Time
	var groupBy string
	switch period {
	case "3M":
		cutoff = now.AddDate(0, -3, 0)
		groupBy = "week"
	case "1Y":
		cutoff = now.AddDate(-1, 0, 0)
		groupBy = "month"
	default:
		return nil, fmt.Errorf("invalid period: %s (must be 3M or 1Y)", period)
	}

	// league -> bucket -> summed profit
	aggregated := make(map[string]map[string]float64)
	for _, b := range ds.SettledBets {
		local := b.Kickoff.In(domain.FeedLocation)
		if local.Before(cutoff) {
			continue
		}

		var bucket string
		if groupBy == "week" {
			year, week := local.ISOWeek()
			bucket = fmt.Sprintf("%d-W%02d", year, week)
		} else {
			bucket = local.Format("2006-01")
		}

		league := b.League
		if league == "" {
			continue
		}
		if aggregated[league] == nil {
			aggregated[league] = make(map[string]float64)
		}
		aggregated[league][bucket] += b.Profit
	}

	result := make(map[string][]ChartPoint, len(aggregated))
	for league, buckets := range aggregated {
		keys := make([]string, 0, len(buckets))
		for k := range buckets {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		points := make([]ChartPoint, 0, len(keys))
		for _, k := range keys {
			points = append(points, ChartPoint{Time: k, Value: buckets[k]})
		}
		result[league] = points
	}

	return result, nil
}

// segmentLabel renders a compact axis label for one segment bucket.
func segmentLabel(seg domain.SegmentStat) string {
	return strings.TrimSpace(seg.Tier + " " + seg.Line)
}
