// Package parlay builds and prices multi-leg combinations from settled
// single bets.
//
// Legs travel through the feed as one formatted string per parlay:
//
//	[SAME LEAGUE - Spain La Liga] A vs B | Home -0.75@1.90 || C vs D | Away +0.25@2.05
//
// The optional bracketed prefix labels how the combination was grouped.
// This package owns that grammar in both directions.
package parlay

import (
	"math"
	"strconv"
	"strings"

	"github.com/aristath/tipster/internal/domain"
)

const legSeparator = " || "

// ParseLegsText splits a formatted legs string into its grouping label and
// individual legs. Malformed segments are skipped; an unlabelled string
// returns an empty label.
func ParseLegsText(s string) (string, []domain.ParlayLeg) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	var label string
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]"); end > 0 {
			label = strings.TrimSpace(s[1:end])
			s = strings.TrimSpace(s[end+1:])
		}
	}

	var legs []domain.ParlayLeg
	for _, part := range strings.Split(s, legSeparator) {
		if leg, ok := parseLeg(part); ok {
			legs = append(legs, leg)
		}
	}
	return label, legs
}

// parseLeg decodes one "home vs away | pick@odds" segment.
func parseLeg(s string) (domain.ParlayLeg, bool) {
	s = strings.TrimSpace(s)
	teams, bet, ok := strings.Cut(s, " | ")
	if !ok {
		return domain.ParlayLeg{}, false
	}
	home, away, ok := strings.Cut(teams, " vs ")
	if !ok {
		return domain.ParlayLeg{}, false
	}

	// Odds follow the last "@"; picks never contain one.
	at := strings.LastIndex(bet, "@")
	if at <= 0 {
		return domain.ParlayLeg{}, false
	}
	odds, err := strconv.ParseFloat(strings.TrimSpace(bet[at+1:]), 64)
	if err != nil || math.IsNaN(odds) || math.IsInf(odds, 0) {
		odds = 0
	}

	home = strings.TrimSpace(home)
	away = strings.TrimSpace(away)
	if home == "" || away == "" {
		return domain.ParlayLeg{}, false
	}

	return domain.ParlayLeg{
		Home: home,
		Away: away,
		Pick: strings.TrimSpace(bet[:at]),
		Odds: odds,
	}, true
}

// FormatLegsText renders legs back into the feed's single-string form.
func FormatLegsText(label string, legs []domain.ParlayLeg) string {
	parts := make([]string, len(legs))
	for i, leg := range legs {
		parts[i] = leg.String()
	}
	joined := strings.Join(parts, legSeparator)
	if label == "" {
		return joined
	}
	return "[" + label + "] " + joined
}

// LegFromBet converts a settled bet into a parlay leg. A pushed bet
// carries effective odds of 1.0 so it cannot change the combined price.
func LegFromBet(b domain.SettledBet) domain.ParlayLeg {
	return domain.ParlayLeg{
		Home: b.Home,
		Away: b.Away,
		Pick: PickLabel(b.Side, b.Line),
		Odds: b.EffectiveOdds(),
	}
}

// PickLabel renders a side and line as the feed writes them:
// "Home -0.75", "Away +0.25". Whole lines keep one decimal ("-1.0").
func PickLabel(side domain.Side, line float64) string {
	word := "Home"
	if side == domain.SideAway {
		word = "Away"
	}
	if line < 0 {
		return word + " -" + formatLine(-line)
	}
	return word + " +" + formatLine(line)
}

func formatLine(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
