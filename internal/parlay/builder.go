package parlay

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tipster/internal/domain"
)

const (
	// Windows collapse bets that settled within the same 6-hour slot of
	// the feed's wall clock.
	windowSize = 6 * time.Hour

	minLegs          = 3
	maxLegsPerWindow = 12

	maxSameLeagueLegs = 5
	maxSameTierLegs   = 4

	// Same-league combinations of four or more legs price slightly above
	// the raw product.
	sameLeagueBonus     = 1.05
	sameLeagueBonusFrom = 4
)

// Builder constructs winning parlay combinations from settled single
// bets. Within each time window it prefers same-league groupings, then
// same-tier, then a mixed fallback, never reusing a fixture across
// groupings inside one window.
type Builder struct {
	stake float64
	log   zerolog.Logger
}

// NewBuilder creates a builder that prices every combination at the given
// stake.
func NewBuilder(stake float64, log zerolog.Logger) *Builder {
	return &Builder{
		stake: stake,
		log:   log.With().Str("component", "parlay_builder").Logger(),
	}
}

// candidate is one winning bet plus the precomputed grouping keys.
type candidate struct {
	bet  domain.SettledBet
	leg  domain.ParlayLeg
	tier int
}

// Build assembles parlay wins from the winning subset of the given bets.
// Output is deterministic: windows ascend by start time and combinations
// within a window keep priority order.
func (b *Builder) Build(bets []domain.SettledBet) []domain.ParlayWin {
	windows := make(map[int64][]candidate)
	winners := 0
	for _, bet := range bets {
		if bet.Profit <= 0 {
			continue
		}
		winners++
		key := windowStart(bet.Kickoff).Unix()
		windows[key] = append(windows[key], candidate{
			bet:  bet,
			leg:  LegFromBet(bet),
			tier: domain.TierForLeague(bet.League),
		})
	}

	keys := make([]int64, 0, len(windows))
	for key := range windows {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, c int) bool { return keys[a] < keys[c] })

	var wins []domain.ParlayWin
	for _, key := range keys {
		wins = append(wins, b.buildWindow(windows[key])...)
	}

	b.log.Debug().
		Int("winning_bets", winners).
		Int("windows", len(windows)).
		Int("parlays", len(wins)).
		Msg("built parlay combinations")
	return wins
}

// windowStart truncates an instant to its 6-hour slot on the feed's wall
// clock, so slots begin at 00:00, 06:00, 12:00 and 18:00 local.
func windowStart(t time.Time) time.Time {
	wall := t.In(domain.FeedLocation)
	hour := (wall.Hour() / int(windowSize.Hours())) * int(windowSize.Hours())
	return time.Date(wall.Year(), wall.Month(), wall.Day(), hour, 0, 0, 0, domain.FeedLocation)
}

func (b *Builder) buildWindow(legs []candidate) []domain.ParlayWin {
	if len(legs) < minLegs {
		return nil
	}

	sort.SliceStable(legs, func(a, c int) bool {
		return legs[a].bet.Kickoff.Before(legs[c].bet.Kickoff)
	})
	if len(legs) > maxLegsPerWindow {
		legs = legs[:maxLegsPerWindow]
	}

	var wins []domain.ParlayWin
	used := make(map[string]bool)

	// Same-league combinations first, best product per size per league.
	for _, league := range leagueOrder(legs) {
		group := filter(legs, func(c candidate) bool { return c.bet.League == league })
		if len(group) < minLegs {
			continue
		}
		for size := minLegs; size <= maxSameLeagueLegs && size <= len(group); size++ {
			bonus := 1.0
			if size >= sameLeagueBonusFrom {
				bonus = sameLeagueBonus
			}
			if combo, odds, ok := bestCombo(group, size, bonus); ok {
				wins = append(wins, b.win("SAME LEAGUE - "+league, combo, odds))
				markUsed(used, combo)
			}
		}
	}

	// Same-tier combinations from fixtures not yet placed.
	for _, tier := range tierOrder(legs) {
		group := filter(legs, func(c candidate) bool {
			return c.tier == tier && !used[fixtureKey(c)]
		})
		if len(group) < minLegs {
			continue
		}
		for size := minLegs; size <= maxSameTierLegs && size <= len(group); size++ {
			if combo, odds, ok := bestCombo(group, size, 1.0); ok {
				wins = append(wins, b.win(fmt.Sprintf("TIER %d", tier), combo, odds))
				markUsed(used, combo)
			}
		}
	}

	// Mixed fallback: a single best triple from whatever remains.
	remaining := filter(legs, func(c candidate) bool { return !used[fixtureKey(c)] })
	if len(remaining) >= minLegs {
		if combo, odds, ok := bestCombo(remaining, minLegs, 1.0); ok {
			wins = append(wins, b.win("MIXED", combo, odds))
		}
	}

	return wins
}

// bestCombo returns the size-leg combination with the highest combined
// odds, bonus included. Ties keep the earliest combination.
func bestCombo(group []candidate, size int, bonus float64) ([]candidate, float64, bool) {
	if size > len(group) {
		return nil, 0, false
	}

	var (
		best     []candidate
		bestOdds float64
	)
	combinations(len(group), size, func(idx []int) {
		product := 1.0
		for _, i := range idx {
			odds := group[i].leg.Odds
			if odds <= 0 {
				odds = 1.0
			}
			product *= odds
		}
		product *= bonus
		if product > bestOdds {
			bestOdds = product
			best = make([]candidate, size)
			for j, i := range idx {
				best[j] = group[i]
			}
		}
	})

	return best, bestOdds, best != nil
}

// combinations invokes fn with each k-element index subset of [0,n), in
// lexicographic order. The slice is reused between calls.
func combinations(n, k int, fn func(idx []int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			fn(idx)
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			idx[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}

// win prices one combination. Stored odds are rounded to 4 decimals and
// money values to cents, matching the feed's own rows.
func (b *Builder) win(label string, combo []candidate, odds float64) domain.ParlayWin {
	legs := make([]domain.ParlayLeg, len(combo))
	start, end := combo[0].bet.Kickoff, combo[0].bet.Kickoff
	for i, c := range combo {
		legs[i] = c.leg
		if c.bet.Kickoff.Before(start) {
			start = c.bet.Kickoff
		}
		if c.bet.Kickoff.After(end) {
			end = c.bet.Kickoff
		}
	}

	odds = round(odds, 4)
	payout := round(b.stake*odds, 2)
	return domain.ParlayWin{
		Label:       label,
		Legs:        legs,
		TotalOdds:   odds,
		Stake:       b.stake,
		Payout:      payout,
		Profit:      round(payout-b.stake, 2),
		WindowStart: start,
		WindowEnd:   end,
	}
}

func round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}

func fixtureKey(c candidate) string {
	return c.bet.Home + "\x00" + c.bet.Away
}

func markUsed(used map[string]bool, combo []candidate) {
	for _, c := range combo {
		used[fixtureKey(c)] = true
	}
}

func filter(legs []candidate, keep func(candidate) bool) []candidate {
	var out []candidate
	for _, c := range legs {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// leagueOrder lists the leagues present, in first-seen order.
func leagueOrder(legs []candidate) []string {
	seen := make(map[string]bool)
	var order []string
	for _, c := range legs {
		if !seen[c.bet.League] {
			seen[c.bet.League] = true
			order = append(order, c.bet.League)
		}
	}
	return order
}

// tierOrder lists the tiers present, strongest first.
func tierOrder(legs []candidate) []int {
	seen := make(map[int]bool)
	var order []int
	for _, c := range legs {
		if !seen[c.tier] {
			seen[c.tier] = true
			order = append(order, c.tier)
		}
	}
	sort.Ints(order)
	return order
}
