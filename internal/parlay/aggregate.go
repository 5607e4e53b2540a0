package parlay

import (
	"errors"

	"github.com/aristath/tipster/internal/domain"
)

// ErrNoLegs is returned when a slip is priced with zero legs.
var ErrNoLegs = errors.New("parlay has no legs")

// Slip is a priced parlay ticket.
type Slip struct {
	CombinedOdds float64 `json:"combined_odds"`
	Stake        float64 `json:"stake"`
	Payout       float64 `json:"payout"`
	Profit       float64 `json:"profit"`
	ReturnPct    float64 `json:"return_pct"`
}

// CombinedOdds multiplies the decimal odds of every leg. Legs without a
// usable price count as 1.0 and leave the product unchanged.
func CombinedOdds(legs []domain.ParlayLeg) float64 {
	product := 1.0
	for _, leg := range legs {
		odds := leg.Odds
		if odds <= 0 {
			odds = 1.0
		}
		product *= odds
	}
	return product
}

// Evaluate prices a slip: payout is stake times the combined odds, profit
// is payout minus stake. A slip with no legs is rejected rather than
// priced as a guaranteed 1.0.
func Evaluate(legs []domain.ParlayLeg, stake float64) (Slip, error) {
	if len(legs) == 0 {
		return Slip{}, ErrNoLegs
	}

	odds := CombinedOdds(legs)
	payout := stake * odds
	profit := payout - stake

	slip := Slip{
		CombinedOdds: odds,
		Stake:        stake,
		Payout:       payout,
		Profit:       profit,
	}
	if stake != 0 {
		slip.ReturnPct = profit / stake * 100
	}
	return slip, nil
}
