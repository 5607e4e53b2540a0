// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Side identifies which team a bet or handicap line refers to.
type Side string

const (
	SideHome    Side = "home"
	SideAway    Side = "away"
	SideUnknown Side = ""
)

// LineTolerance bounds the difference allowed when reconciling a
// recommendation line against a game's derived handicap pair.
const LineTolerance = 0.01

// FeedLocation is the fixed UTC+8 offset all upstream datetime columns are
// exported in. Window labels and calendar grouping use this offset so they
// match the exporter's notion of a day.
var FeedLocation = time.FixedZone("UTC+8", 8*60*60)

// Game represents one fixture in the unified odds view.
// Games are built fresh on every dataset load and never mutated.
type Game struct {
	Kickoff         time.Time `json:"kickoff"`
	League          string    `json:"league"`
	LeagueTier      int       `json:"league_tier"`
	Home            string    `json:"home"`
	Away            string    `json:"away"`
	HomeOdds        float64   `json:"home_odds"`
	DrawOdds        float64   `json:"draw_odds"`
	AwayOdds        float64   `json:"away_odds"`
	Status          string    `json:"status,omitempty"`
	HomeScore       *int      `json:"home_score,omitempty"`
	AwayScore       *int      `json:"away_score,omitempty"`
	HomeLine        *float64  `json:"home_line,omitempty"`
	AwayLine        *float64  `json:"away_line,omitempty"`
	LineApproximate bool      `json:"line_approximate"` // lines estimated from three-way odds
	IsPk            bool      `json:"is_pk"`
	HasRec          bool      `json:"has_recommendation"`
	RecText         string    `json:"rec_text,omitempty"`
	RecLine         float64   `json:"rec_line,omitempty"`
	RecOdds         float64   `json:"rec_odds,omitempty"`
	RecEV           float64   `json:"rec_ev,omitempty"`
	Confidence      string    `json:"confidence,omitempty"`
}

// HasAHData reports whether both handicap lines were derived.
func (g *Game) HasAHData() bool {
	return g.HomeLine != nil && g.AwayLine != nil
}

// IsComplete reports whether the fixture has been played out.
func (g *Game) IsComplete() bool {
	return strings.EqualFold(g.Status, "complete")
}

// LeagueCode returns a compact badge for the league name, built from the
// initials of its words ("England Premier League" -> "EPL").
func (g *Game) LeagueCode() string {
	return LeagueShortCode(g.League)
}

// Recommendation is a single suggested bet for an upcoming game.
type Recommendation struct {
	Kickoff    time.Time `json:"kickoff"`
	League     string    `json:"league"`
	Home       string    `json:"home"`
	Away       string    `json:"away"`
	Text       string    `json:"text"` // "<team> <signed line>"
	Team       string    `json:"team"` // matched team name, empty when unmatched
	Side       Side      `json:"side"`
	Line       float64   `json:"line"`
	Odds       float64   `json:"odds"`
	EV         float64   `json:"ev"`
	Confidence string    `json:"confidence"`
}

// ReconcilesWith reports whether the recommendation's line agrees with the
// game's derived handicap pair for the recommended side. A recommendation
// that does not reconcile is treated as unmatched, never as an error.
func (r *Recommendation) ReconcilesWith(g *Game) bool {
	if g == nil || !g.HasAHData() {
		return false
	}
	switch r.Side {
	case SideHome:
		return math.Abs(*g.HomeLine-r.Line) <= LineTolerance
	case SideAway:
		return math.Abs(*g.AwayLine-r.Line) <= LineTolerance
	default:
		return false
	}
}

// SettledBet is a historical resolved wager.
type SettledBet struct {
	FixtureID string    `json:"fixture_id"`
	Kickoff   time.Time `json:"kickoff"`
	League    string    `json:"league"`
	Home      string    `json:"home"`
	Away      string    `json:"away"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
	Side      Side      `json:"side"`
	Line      float64   `json:"line"`
	Odds      float64   `json:"odds"`
	Stake     float64   `json:"stake"`
	Profit    float64   `json:"profit"`
	Status    string    `json:"status"`
}

// IsWin reports whether the bet won. A positive realized profit or an
// explicit "won" status both count.
func (b *SettledBet) IsWin() bool {
	return b.Profit > 0 || strings.EqualFold(b.Status, "won")
}

// IsPush reports whether the bet pushed (stake returned, no profit or loss).
func (b *SettledBet) IsPush() bool {
	return b.Profit == 0
}

// EffectiveOdds returns the odds this bet contributes to a parlay product.
// A push contributes a neutral 1.0 multiplier, never zero.
func (b *SettledBet) EffectiveOdds() float64 {
	if b.IsPush() {
		return 1.0
	}
	return b.Odds
}

// ParlayLeg is one pick inside a parlay ticket.
type ParlayLeg struct {
	Home string  `json:"home"`
	Away string  `json:"away"`
	Pick string  `json:"pick"` // e.g. "Home -0.75"
	Odds float64 `json:"odds"`
}

// String renders the leg in the feed's canonical text form.
func (l ParlayLeg) String() string {
	return fmt.Sprintf("%s vs %s | %s@%.2f", l.Home, l.Away, l.Pick, l.Odds)
}

// ParlayWin is a combined multi-leg ticket that paid out.
type ParlayWin struct {
	Label       string      `json:"label,omitempty"` // grouping tag without brackets, e.g. "TIER 1"
	Legs        []ParlayLeg `json:"legs"`
	TotalOdds   float64     `json:"total_odds"`
	Stake       float64     `json:"stake"`
	Payout      float64     `json:"payout"`
	Profit      float64     `json:"profit"`
	WindowStart time.Time   `json:"window_start"`
	WindowEnd   time.Time   `json:"window_end"`
}

// LegCount returns the number of legs on the ticket.
func (p *ParlayWin) LegCount() int {
	return len(p.Legs)
}

// ReturnPct is the profit as a percentage of stake.
func (p *ParlayWin) ReturnPct() float64 {
	if p.Stake == 0 {
		return 0
	}
	return p.Profit / p.Stake * 100
}

// WindowLabel renders the calendar window the legs span, collapsed to a
// single date when start and end fall on the same feed-local day.
func (p *ParlayWin) WindowLabel() string {
	start := p.WindowStart.In(FeedLocation)
	end := p.WindowEnd.In(FeedLocation)

	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return start.Format("2006-01-02")
	}
	return start.Format("2006-01-02") + " to " + end.Format("2006-01-02")
}

// BankrollPoint is one sample of the cumulative bankroll series.
type BankrollPoint struct {
	Date     time.Time `json:"date"`
	Bankroll float64   `json:"bankroll"`
}

// SegmentStat is an aggregate ROI figure for one (tier, line) bucket.
type SegmentStat struct {
	Tier   string  `json:"tier"`
	Line   string  `json:"line"`
	ROIPct float64 `json:"roi_pct"`
	N      int     `json:"n"`
}

// Dataset is one cohesive load of every feed source. It is rebuilt wholesale
// per refresh and never mutated afterwards; consumers treat it as read-only.
type Dataset struct {
	LoadID          string            `json:"load_id"`
	Epoch           int64             `json:"epoch"`
	LoadedAt        time.Time         `json:"loaded_at"`
	Metrics         map[string]string `json:"metrics"`
	Games           []Game            `json:"games"`
	Recommendations []Recommendation  `json:"recommendations"`
	SettledBets     []SettledBet      `json:"settled_bets"`
	Bankroll        []BankrollPoint   `json:"bankroll"`
	ROIHeatmap      []SegmentStat     `json:"roi_heatmap"`
	TopSegments     []SegmentStat     `json:"top_segments"`
	ParlayWins      []ParlayWin       `json:"parlay_wins"`
	Degraded        map[string]string `json:"degraded,omitempty"` // optional sources that fell back to empty, keyed by source name
}
