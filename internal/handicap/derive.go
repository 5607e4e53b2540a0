package handicap

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/tipster/internal/domain"
)

// Deriver fills the handicap line pair of fixtures through an ordered
// fallback chain. Each strategy either produces a pair or passes; the
// first producer wins and later strategies never run.
type Deriver struct {
	log zerolog.Logger
}

// NewDeriver creates a deriver.
func NewDeriver(log zerolog.Logger) *Deriver {
	return &Deriver{
		log: log.With().Str("component", "handicap").Logger(),
	}
}

type strategy struct {
	name  string
	apply func(g *domain.Game) bool
}

// Strategies in priority order. Supplied pairs are authoritative,
// recommendation text is exact, odds estimation is a last resort and is
// flagged approximate.
var strategies = []strategy{
	{"supplied_pair", suppliedPair},
	{"recommendation_text", recommendationText},
	{"odds_estimate", oddsEstimate},
}

// Apply derives the line pair for one game in place and returns the name
// of the strategy that produced it, or "" when none could.
func (d *Deriver) Apply(g *domain.Game) string {
	for _, s := range strategies {
		if !s.apply(g) {
			continue
		}
		normalize(g)
		if g.LineApproximate {
			d.log.Debug().
				Str("home", g.Home).
				Str("away", g.Away).
				Float64("home_line", *g.HomeLine).
				Msg("handicap estimated from three-way odds")
		}
		return s.name
	}
	return ""
}

// DeriveAll derives lines for every game and resolves the parsed team
// and side of every recommendation. One summary line is logged per call.
func (d *Deriver) DeriveAll(games []domain.Game, recs []domain.Recommendation) {
	counts := make(map[string]int, len(strategies)+1)
	for i := range games {
		name := d.Apply(&games[i])
		if name == "" {
			name = "none"
		}
		counts[name]++
	}

	for i := range recs {
		d.Resolve(&recs[i])
	}

	d.log.Debug().
		Int("games", len(games)).
		Int("supplied", counts["supplied_pair"]).
		Int("from_text", counts["recommendation_text"]).
		Int("estimated", counts["odds_estimate"]).
		Int("unresolved", counts["none"]).
		Msg("derived handicap lines")
}

// Resolve fills the matched team and side of a recommendation from its
// free text. Text that names neither team leaves the side unknown.
func (d *Deriver) Resolve(rec *domain.Recommendation) {
	team, _, ok := SplitRecommendation(rec.Text)
	if !ok {
		return
	}
	rec.Team = team
	rec.Side = MatchTeam(team, rec.Home, rec.Away)
}

// suppliedPair trusts an export that carried both lines directly.
func suppliedPair(g *domain.Game) bool {
	return g.HomeLine != nil && g.AwayLine != nil
}

// recommendationText back-derives the pair from "<team> <signed line>".
// The named side's line is authoritative and the other side mirrors it.
func recommendationText(g *domain.Game) bool {
	if !g.HasRec || g.RecText == "" {
		return false
	}
	team, line, ok := SplitRecommendation(g.RecText)
	if !ok {
		return false
	}

	mirror := -line
	switch MatchTeam(team, g.Home, g.Away) {
	case domain.SideHome:
		g.HomeLine, g.AwayLine = &line, &mirror
	case domain.SideAway:
		g.AwayLine, g.HomeLine = &line, &mirror
	default:
		return false
	}
	return true
}

// oddsEstimate reconstructs the pair from the three-way market: the
// normalized probability gap scales to a goal-difference proxy that is
// snapped onto the quarter-line table. Always flagged approximate.
func oddsEstimate(g *domain.Game) bool {
	if g.HomeOdds <= 1 || g.DrawOdds <= 1 || g.AwayOdds <= 1 {
		return false
	}

	probs := ImpliedProbabilities(g.HomeOdds, g.DrawOdds, g.AwayOdds)
	proxy := (probs[0] - probs[2]) * goalProxyScale

	// The favored side gives goals, so its line is the negated proxy
	// bucket.
	edge := lineForProxy(proxy)
	home, away := -edge, edge
	g.HomeLine, g.AwayLine = &home, &away
	g.LineApproximate = true
	return true
}

// normalize applies the post-derivation invariants no matter which
// strategy ran: quarter-step rounding and the pick-'em flag.
func normalize(g *domain.Game) {
	if g.HomeLine != nil {
		*g.HomeLine = RoundQuarter(*g.HomeLine)
		if *g.HomeLine == 0 {
			*g.HomeLine = 0 // strip the sign off negative zero
		}
	}
	if g.AwayLine != nil {
		*g.AwayLine = RoundQuarter(*g.AwayLine)
		if *g.AwayLine == 0 {
			*g.AwayLine = 0
		}
	}
	g.IsPk = g.HomeLine != nil && g.AwayLine != nil &&
		*g.HomeLine == 0 && *g.AwayLine == 0
}

// SplitRecommendation splits "<team> <signed line>" into its parts. The
// line is whatever follows the last space, so multi-word team names
// survive.
func SplitRecommendation(text string) (string, float64, bool) {
	text = strings.TrimSpace(text)
	i := strings.LastIndexByte(text, ' ')
	if i <= 0 {
		return "", 0, false
	}
	line, err := strconv.ParseFloat(text[i+1:], 64)
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSpace(text[:i]), line, true
}

// MatchTeam resolves a (possibly partial) team name against the two
// sides of a fixture. Exact matches win over containment, and the home
// side wins ties in either round.
func MatchTeam(name, home, away string) domain.Side {
	name = strings.ToLower(strings.TrimSpace(name))
	home = strings.ToLower(strings.TrimSpace(home))
	away = strings.ToLower(strings.TrimSpace(away))
	if name == "" {
		return domain.SideUnknown
	}

	switch name {
	case home:
		return domain.SideHome
	case away:
		return domain.SideAway
	}

	switch {
	case strings.Contains(home, name) || strings.Contains(name, home):
		return domain.SideHome
	case strings.Contains(away, name) || strings.Contains(name, away):
		return domain.SideAway
	}
	return domain.SideUnknown
}
