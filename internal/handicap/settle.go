package handicap

import "github.com/aristath/tipster/internal/domain"

// SettleProfit resolves an Asian-handicap bet against a final score and
// returns the realized profit for the stake, plus whether the bet won.
// The line is the picked team's own line; the effective score is the
// picked team's goal difference plus that line. Quarter lines split the
// stake: an effective score of exactly +0.25 wins half, -0.25 loses
// half, and zero pushes the whole stake back.
func SettleProfit(homeGoals, awayGoals int, line float64, side domain.Side, odds, stake float64) (float64, bool) {
	margin := float64(homeGoals - awayGoals)

	var effective float64
	switch side {
	case domain.SideHome:
		effective = margin + line
	case domain.SideAway:
		effective = -margin + line
	default:
		return 0, false
	}

	switch {
	case effective > 0.25:
		return (odds - 1.0) * stake, true
	case effective == 0.25:
		return (odds - 1.0) * stake / 2, true
	case effective == 0:
		return 0, false
	case effective == -0.25:
		return -stake / 2, false
	default:
		return -stake, false
	}
}
