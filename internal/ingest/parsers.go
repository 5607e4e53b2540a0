package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/parlay"
)

// Parser converts raw feed exports into typed rows. A row missing its
// identity fields is dropped and logged; malformed numeric fields fall
// back to neutral values so one bad cell never loses a row.
type Parser struct {
	log zerolog.Logger
}

// NewParser creates a parser for feed exports.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{
		log: log.With().Str("component", "ingest").Logger(),
	}
}

// dropRow records a skipped row. Debug level: a stale export can drop
// hundreds of rows and that must not drown operational logs.
func (p *Parser) dropRow(source string, row int, reason string) {
	p.log.Debug().
		Str("source", source).
		Int("row", row).
		Str("reason", reason).
		Msg("dropped malformed row")
}

// Metrics parses the sparse metric/value export into a lookup table.
func (p *Parser) Metrics(data []byte) (map[string]string, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}

	metrics := make(map[string]string, len(records))
	for i, rec := range records {
		name := rec.Str("metric")
		if name == "" {
			p.dropRow("metrics", i+1, "missing metric name")
			continue
		}
		metrics[name] = rec.Str("value")
	}
	return metrics, nil
}

// Recommendations parses the open-picks export. The matched team and side
// are resolved later by the handicap derivation pass.
func (p *Parser) Recommendations(data []byte) ([]domain.Recommendation, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}

	recs := make([]domain.Recommendation, 0, len(records))
	for i, rec := range records {
		home, away := rec.Str("home"), rec.Str("away")
		if home == "" || away == "" {
			p.dropRow("latest_recommendations", i+1, "missing team names")
			continue
		}
		kickoff, err := ParseExportTime(rec.Str("dt_gmt8"))
		if err != nil {
			p.dropRow("latest_recommendations", i+1, err.Error())
			continue
		}

		recs = append(recs, domain.Recommendation{
			Kickoff:    kickoff,
			League:     rec.Str("league"),
			Home:       home,
			Away:       away,
			Text:       rec.Str("rec_text"),
			Line:       rec.Float("line", 0),
			Odds:       rec.Float("odds", 1.0),
			EV:         rec.Float("ev", 0),
			Confidence: rec.Str("confidence"),
		})
	}
	return recs, nil
}

// SettledBets parses the historical results export.
func (p *Parser) SettledBets(data []byte) ([]domain.SettledBet, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse settled bets: %w", err)
	}

	bets := make([]domain.SettledBet, 0, len(records))
	for i, rec := range records {
		home, away := rec.Str("home"), rec.Str("away")
		if home == "" || away == "" {
			p.dropRow("settled_bets", i+1, "missing team names")
			continue
		}
		kickoff, err := ParseExportTime(rec.Str("dt_gmt8"))
		if err != nil {
			p.dropRow("settled_bets", i+1, err.Error())
			continue
		}

		fixtureID := rec.Str("fixture_id")
		if fixtureID == "" {
			// Reconstruct the exporter's key: wall clock + team names.
			fixtureID = fmt.Sprintf("%s_%s_%s",
				kickoff.In(domain.FeedLocation).Format("2006-01-02 15:04:05"), home, away)
		}

		bets = append(bets, domain.SettledBet{
			FixtureID: fixtureID,
			Kickoff:   kickoff,
			League:    rec.Str("league"),
			Home:      home,
			Away:      away,
			HomeScore: rec.Int("home_score", 0),
			AwayScore: rec.Int("away_score", 0),
			Side:      betSide(rec.Str("bet_type_refined_ah")),
			Line:      rec.Float("line_betted_on_refined", 0),
			Odds:      rec.Float("odds_betted_on_refined", 1.0),
			Stake:     rec.Float("stake", 0),
			Profit:    rec.Float("pl", 0),
			Status:    rec.Str("status"),
		})
	}
	return bets, nil
}

// betSide maps the exporter's bet type markers onto a side of the match.
func betSide(betType string) domain.Side {
	betType = strings.ToLower(betType)
	switch {
	case strings.Contains(betType, "home"):
		return domain.SideHome
	case strings.Contains(betType, "away"):
		return domain.SideAway
	default:
		return domain.SideUnknown
	}
}

// BankrollSeries parses the cumulative bankroll export. Points are sorted
// ascending by date; the chart layer walks the series in order.
func (p *Parser) BankrollSeries(data []byte) ([]domain.BankrollPoint, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse bankroll series: %w", err)
	}

	points := make([]domain.BankrollPoint, 0, len(records))
	for i, rec := range records {
		date, err := ParseExportTime(rec.Str("dt_gmt8"))
		if err != nil {
			p.dropRow("bankroll_series", i+1, err.Error())
			continue
		}
		points = append(points, domain.BankrollPoint{
			Date:     date,
			Bankroll: rec.Float("cum_bankroll", 0),
		})
	}

	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Date.Before(points[b].Date)
	})
	return points, nil
}

// ROIHeatmap parses the tier/line ROI breakdown.
func (p *Parser) ROIHeatmap(data []byte) ([]domain.SegmentStat, error) {
	return p.segments("roi_heatmap", data)
}

// TopSegments parses the best-performing segment export.
func (p *Parser) TopSegments(data []byte) ([]domain.SegmentStat, error) {
	return p.segments("top_segments", data)
}

func (p *Parser) segments(source string, data []byte) ([]domain.SegmentStat, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	segs := make([]domain.SegmentStat, 0, len(records))
	for i, rec := range records {
		tier, line := rec.Str("tier"), rec.Str("line")
		if tier == "" && line == "" {
			p.dropRow(source, i+1, "missing segment key")
			continue
		}
		segs = append(segs, domain.SegmentStat{
			Tier:   tier,
			Line:   line,
			ROIPct: rec.Float("roi_pct", 0),
			N:      rec.Int("n", 0),
		})
	}
	return segs, nil
}

// Games parses the merged fixture+pick export. Handicap lines arrive on a
// minority of rows; the derivation pass fills the rest.
func (p *Parser) Games(data []byte) ([]domain.Game, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse unified games: %w", err)
	}

	games := make([]domain.Game, 0, len(records))
	for i, rec := range records {
		home, away := rec.Str("home_name"), rec.Str("away_name")
		if home == "" || away == "" {
			p.dropRow("unified_games", i+1, "missing team names")
			continue
		}
		kickoff, err := ParseExportTime(rec.Str("datetime_gmt8"))
		if err != nil {
			p.dropRow("unified_games", i+1, err.Error())
			continue
		}

		league := rec.Str("league")
		g := domain.Game{
			Kickoff:    kickoff,
			League:     league,
			LeagueTier: rec.Int("league_tier", domain.TierForLeague(league)),
			Home:       home,
			Away:       away,
			HomeOdds:   rec.Float("odds_1", 1.0),
			DrawOdds:   rec.Float("odds_x", 1.0),
			AwayOdds:   rec.Float("odds_2", 1.0),
			Status:     rec.Str("status"),
			HomeScore:  rec.IntPtr("home_score"),
			AwayScore:  rec.IntPtr("away_score"),
			HomeLine:   rec.FloatPtr("ah_line_home"),
			AwayLine:   rec.FloatPtr("ah_line_away"),
			HasRec:     rec.Bool("has_recommendation", false),
		}
		if g.HasRec {
			g.RecText = rec.Str("rec_text")
			g.RecLine = rec.Float("line", 0)
			g.RecOdds = rec.Float("rec_odds", 1.0)
			g.RecEV = rec.Float("ev", 0)
			g.Confidence = rec.Str("confidence")
		}
		games = append(games, g)
	}
	return games, nil
}

// ParlayWins parses the multi-leg winner export. Legs are stored as a
// single formatted string; rows whose leg text yields no legs are dropped.
func (p *Parser) ParlayWins(data []byte) ([]domain.ParlayWin, error) {
	records, err := ReadRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parse parlay wins: %w", err)
	}

	wins := make([]domain.ParlayWin, 0, len(records))
	for i, rec := range records {
		label, legs := parlay.ParseLegsText(rec.Str("legs"))
		if len(legs) == 0 {
			p.dropRow("parlay_wins", i+1, "no parseable legs")
			continue
		}
		start, err := ParseExportTime(rec.Str("window_start"))
		if err != nil {
			p.dropRow("parlay_wins", i+1, err.Error())
			continue
		}
		end, err := ParseExportTime(rec.Str("window_end"))
		if err != nil {
			end = start
		}

		// The stored odds are authoritative (they may carry a bonus the
		// raw leg product does not); recompute only when absent.
		odds := rec.Float("total_odds", 0)
		if odds <= 0 {
			odds = parlay.CombinedOdds(legs)
		}
		stake := rec.Float("stake", 0)
		payout := rec.Float("payout", 0)
		if payout == 0 && stake > 0 {
			payout = stake * odds
		}
		profit := rec.Float("profit", payout-stake)

		wins = append(wins, domain.ParlayWin{
			Label:       label,
			Legs:        legs,
			TotalOdds:   odds,
			Stake:       stake,
			Payout:      payout,
			Profit:      profit,
			WindowStart: start,
			WindowEnd:   end,
		})
	}
	return wins, nil
}
