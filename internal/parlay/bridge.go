package parlay

import (
	"fmt"
	"strings"

	"github.com/aristath/tipster/internal/domain"
	"github.com/aristath/tipster/internal/handicap"
)

// defaultRecOdds is the price assumed for a recommendation exported
// without one.
const defaultRecOdds = 1.925

// bridgeStake settles bridged bets in units of one, so profit doubles as
// a return multiple.
const bridgeStake = 1.0

// Bridge settles completed recommended fixtures that the results export
// has not caught up with yet. Fixtures already present in the settled
// list are skipped, so re-running a load never duplicates a bet.
func Bridge(games []domain.Game, settled []domain.SettledBet) []domain.SettledBet {
	known := make(map[string]bool, len(settled))
	for _, bet := range settled {
		known[bet.FixtureID] = true
	}

	var bridged []domain.SettledBet
	for _, g := range games {
		if !g.IsComplete() || !g.HasRec || g.HomeScore == nil || g.AwayScore == nil {
			continue
		}

		fixtureID := fmt.Sprintf("%s_%s_%s",
			g.Kickoff.In(domain.FeedLocation).Format("2006-01-02 15:04:05"), g.Home, g.Away)
		if known[fixtureID] {
			continue
		}

		side := pickedSide(g)
		if side == domain.SideUnknown {
			continue
		}

		odds := g.RecOdds
		if odds <= 1.0 {
			odds = defaultRecOdds
		}

		profit, _ := handicap.SettleProfit(*g.HomeScore, *g.AwayScore, g.RecLine, side, odds, bridgeStake)
		bridged = append(bridged, domain.SettledBet{
			FixtureID: fixtureID,
			Kickoff:   g.Kickoff,
			League:    g.League,
			Home:      g.Home,
			Away:      g.Away,
			HomeScore: *g.HomeScore,
			AwayScore: *g.AwayScore,
			Side:      side,
			Line:      g.RecLine,
			Odds:      odds,
			Stake:     bridgeStake,
			Profit:    profit,
			Status:    "settled",
		})
	}
	return bridged
}

// pickedSide resolves which team the recommendation text names. Raw
// containment is the fallback for text that does not split cleanly.
func pickedSide(g domain.Game) domain.Side {
	if team, _, ok := handicap.SplitRecommendation(g.RecText); ok {
		if side := handicap.MatchTeam(team, g.Home, g.Away); side != domain.SideUnknown {
			return side
		}
	}

	text := strings.ToLower(g.RecText)
	switch {
	case strings.Contains(text, strings.ToLower(g.Home)):
		return domain.SideHome
	case strings.Contains(text, strings.ToLower(g.Away)):
		return domain.SideAway
	default:
		return domain.SideUnknown
	}
}
