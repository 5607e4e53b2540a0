package handicap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/tipster/internal/domain"
)

func TestSettleProfit(t *testing.T) {
	tests := []struct {
		name       string
		homeGoals  int
		awayGoals  int
		line       float64
		side       domain.Side
		odds       float64
		wantProfit float64
		wantWon    bool
	}{
		{
			name:      "away quarter line survives a one goal win",
			homeGoals: 1, awayGoals: 2, line: 0.25, side: domain.SideAway,
			odds: 1.925, wantProfit: 0.925, wantWon: true,
		},
		{
			name:      "away plus a quarter wins half on a draw",
			homeGoals: 1, awayGoals: 1, line: 0.25, side: domain.SideAway,
			odds: 1.90, wantProfit: 0.45, wantWon: true,
		},
		{
			name:      "home minus a quarter loses half on a draw",
			homeGoals: 0, awayGoals: 0, line: -0.25, side: domain.SideHome,
			odds: 1.90, wantProfit: -0.5, wantWon: false,
		},
		{
			name:      "home minus one pushes a one goal win",
			homeGoals: 2, awayGoals: 1, line: -1.0, side: domain.SideHome,
			odds: 1.925, wantProfit: 0, wantWon: false,
		},
		{
			name:      "home minus one loses a draw",
			homeGoals: 1, awayGoals: 1, line: -1.0, side: domain.SideHome,
			odds: 1.925, wantProfit: -1.0, wantWon: false,
		},
		{
			name:      "away giving a goal and a half covers a three goal win",
			homeGoals: 0, awayGoals: 3, line: -1.5, side: domain.SideAway,
			odds: 1.93, wantProfit: 0.93, wantWon: true,
		},
		{
			name:      "away giving a goal and a half loses a one goal win",
			homeGoals: 1, awayGoals: 2, line: -1.5, side: domain.SideAway,
			odds: 1.93, wantProfit: -1.0, wantWon: false,
		},
		{
			name:      "flat line pushes a draw",
			homeGoals: 2, awayGoals: 2, line: 0, side: domain.SideHome,
			odds: 1.90, wantProfit: 0, wantWon: false,
		},
		{
			name:      "unknown side never settles",
			homeGoals: 3, awayGoals: 0, line: -0.5, side: domain.SideUnknown,
			odds: 1.90, wantProfit: 0, wantWon: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profit, won := SettleProfit(tt.homeGoals, tt.awayGoals, tt.line, tt.side, tt.odds, 1.0)
			assert.Equal(t, tt.wantWon, won)
			assert.InDelta(t, tt.wantProfit, profit, 1e-12)
		})
	}
}
