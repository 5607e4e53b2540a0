package ingest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tipster/internal/domain"
)

func newTestParser() *Parser {
	return NewParser(zerolog.Nop())
}

func TestParserMetrics(t *testing.T) {
	data := []byte("metric,value\ntotal_bets,412\n,orphaned\nroi_pct,8.4\n")

	metrics, err := newTestParser().Metrics(data)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"total_bets": "412",
		"roi_pct":    "8.4",
	}, metrics, "row without a metric name is dropped")
}

func TestParserRecommendations(t *testing.T) {
	data := []byte(`dt_gmt8,league,home,away,rec_text,line,odds,ev,confidence
2025-08-15 20:00:00,England Premier League,Arsenal,Chelsea,Arsenal -0.75,-0.75,1.90,0.06,HIGH
2025-08-15 21:00:00,Spain La Liga,,Girona FC,Girona FC +0.25,0.25,2.05,0.03,MEDIUM
not-a-date,Spain La Liga,Sevilla,Valencia,Sevilla -0.25,-0.25,1.98,0.02,LOW
2025-08-16 03:00:00,France Ligue 1,Lyon,Nice,Lyon -0.50,-0.50,abc,,
`)

	recs, err := newTestParser().Recommendations(data)
	require.NoError(t, err)
	require.Len(t, recs, 2, "rows missing identity fields are dropped")

	first := recs[0]
	assert.Equal(t, time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC), first.Kickoff)
	assert.Equal(t, "Arsenal", first.Home)
	assert.Equal(t, "Arsenal -0.75", first.Text)
	assert.Equal(t, -0.75, first.Line)
	assert.Equal(t, 1.90, first.Odds)
	assert.Equal(t, 0.06, first.EV)
	assert.Equal(t, "HIGH", first.Confidence)
	assert.Equal(t, domain.SideUnknown, first.Side, "side resolution happens in derivation")

	second := recs[1]
	assert.Equal(t, 1.0, second.Odds, "unparseable odds fall back to 1.0")
	assert.Equal(t, 0.0, second.EV)
}

func TestParserSettledBets(t *testing.T) {
	data := []byte(`fixture_id,league,home,away,home_score,away_score,line_betted_on_refined,bet_type_refined_ah,odds_betted_on_refined,stake,pl,status,dt_gmt8
fx-1,England Premier League,Burnley,Liverpool,0,3,-1.5,bet_away_refined_ah,1.93,1.0,0.93,settled,2025-09-14 21:00:00
,Spain La Liga,Celta de Vigo,Girona FC,1,1,-1.0,bet_home_refined_ah,1.93,1.0,-1.0,settled,2025-09-14 20:00:00
fx-3,Spain La Liga,,Girona FC,1,1,-1.0,bet_home_refined_ah,1.93,1.0,-1.0,settled,2025-09-14 20:00:00
`)

	bets, err := newTestParser().SettledBets(data)
	require.NoError(t, err)
	require.Len(t, bets, 2)

	away := bets[0]
	assert.Equal(t, "fx-1", away.FixtureID)
	assert.Equal(t, domain.SideAway, away.Side)
	assert.Equal(t, -1.5, away.Line)
	assert.Equal(t, 0.93, away.Profit)
	assert.True(t, away.IsWin())

	home := bets[1]
	assert.Equal(t, "2025-09-14 20:00:00_Celta de Vigo_Girona FC", home.FixtureID,
		"missing fixture id is rebuilt from wall clock and teams")
	assert.Equal(t, domain.SideHome, home.Side)
	assert.False(t, home.IsWin())
}

func TestParserBankrollSeriesSortsAscending(t *testing.T) {
	data := []byte(`dt_gmt8,cum_bankroll
2025-08-17 00:00:00,1080.50
2025-08-15 00:00:00,1000.00
2025-08-16 00:00:00,1042.25
bad-date,9999
`)

	points, err := newTestParser().BankrollSeries(data)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, 1000.00, points[0].Bankroll)
	assert.Equal(t, 1042.25, points[1].Bankroll)
	assert.Equal(t, 1080.50, points[2].Bankroll)
	assert.True(t, points[0].Date.Before(points[1].Date))
}

func TestParserSegments(t *testing.T) {
	data := []byte("tier,line,roi_pct,n\n1,-0.75,12.4,38\n,,0,0\n2,+0.25,-3.1,17\n")

	heatmap, err := newTestParser().ROIHeatmap(data)
	require.NoError(t, err)
	require.Len(t, heatmap, 2, "row without tier or line is dropped")
	assert.Equal(t, "1", heatmap[0].Tier)
	assert.Equal(t, 12.4, heatmap[0].ROIPct)
	assert.Equal(t, 38, heatmap[0].N)

	top, err := newTestParser().TopSegments(data)
	require.NoError(t, err)
	assert.Equal(t, heatmap, top, "both segment exports share one shape")
}

func TestParserGames(t *testing.T) {
	data := []byte(`datetime_gmt8,league,home_name,away_name,odds_1,odds_x,odds_2,league_tier,status,home_score,away_score,has_recommendation,rec_text,line,rec_odds,ev,confidence,ah_line_home,ah_line_away
2025-09-14 20:00:00,Spain La Liga,Celta de Vigo,Girona FC,2.00,3.40,3.80,1,complete,1,1,True,Celta de Vigo -1.0,-1.0,1.925,0.04,HIGH,-1.0,1.0
2025-09-15 18:00:00,Japan J1 League,Tokyo,Tokyo Verdy,2.60,3.20,2.70,,incomplete,,,False,,,,,,,
`)

	games, err := newTestParser().Games(data)
	require.NoError(t, err)
	require.Len(t, games, 2)

	g := games[0]
	assert.Equal(t, time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC), g.Kickoff)
	assert.Equal(t, 1, g.LeagueTier)
	assert.Equal(t, 2.00, g.HomeOdds)
	assert.True(t, g.IsComplete())
	require.NotNil(t, g.HomeScore)
	assert.Equal(t, 1, *g.HomeScore)
	require.NotNil(t, g.HomeLine)
	assert.Equal(t, -1.0, *g.HomeLine)
	require.NotNil(t, g.AwayLine)
	assert.Equal(t, 1.0, *g.AwayLine)
	assert.True(t, g.HasRec)
	assert.Equal(t, 1.925, g.RecOdds)

	future := games[1]
	assert.Equal(t, 4, future.LeagueTier, "unlisted league falls back to the default tier")
	assert.False(t, future.IsComplete())
	assert.Nil(t, future.HomeScore)
	assert.Nil(t, future.HomeLine)
	assert.False(t, future.HasRec)
	assert.Empty(t, future.RecText)
}

func TestParserGames_MissingIdentityDropped(t *testing.T) {
	data := []byte(`datetime_gmt8,league,home_name,away_name,odds_1,odds_x,odds_2
2025-09-14 20:00:00,Spain La Liga,,Girona FC,2.00,3.40,3.80
garbage,Spain La Liga,Sevilla,Valencia,2.00,3.40,3.80
`)

	games, err := newTestParser().Games(data)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestParserParlayWins(t *testing.T) {
	data := []byte(`legs,leg_count,total_odds,stake,payout,profit,window_start,window_end
"[SAME LEAGUE - Spain La Liga] A vs B | Home -0.75@1.90 || C vs D | Away +0.25@2.05 || E vs F | Home -1.0@1.85",3,7.2048,100.0,720.48,620.48,2025-09-14 18:00:00,2025-09-14 21:00:00
no legs here,0,1.0,100.0,100.0,0.0,2025-09-14 18:00:00,2025-09-14 21:00:00
`)

	wins, err := newTestParser().ParlayWins(data)
	require.NoError(t, err)
	require.Len(t, wins, 1, "row whose leg text yields no legs is dropped")

	win := wins[0]
	assert.Equal(t, "SAME LEAGUE - Spain La Liga", win.Label)
	require.Len(t, win.Legs, 3)
	assert.Equal(t, "A", win.Legs[0].Home)
	assert.Equal(t, "Home -0.75", win.Legs[0].Pick)
	assert.Equal(t, 1.90, win.Legs[0].Odds)
	assert.Equal(t, 7.2048, win.TotalOdds, "stored odds win over the raw leg product")
	assert.Equal(t, 620.48, win.Profit)
	assert.Equal(t, time.Date(2025, 9, 14, 10, 0, 0, 0, time.UTC), win.WindowStart)
}

func TestParserParlayWins_RecomputesMissingMoney(t *testing.T) {
	data := []byte(`legs,leg_count,total_odds,stake,payout,profit,window_start,window_end
A vs B | Home -0.75@2.00 || C vs D | Away +0.25@1.50,2,,100.0,,,2025-09-14 18:00:00,
`)

	wins, err := newTestParser().ParlayWins(data)
	require.NoError(t, err)
	require.Len(t, wins, 1)

	win := wins[0]
	assert.Empty(t, win.Label)
	assert.Equal(t, 3.0, win.TotalOdds, "missing total odds recompute from the legs")
	assert.Equal(t, 300.0, win.Payout)
	assert.Equal(t, 200.0, win.Profit)
	assert.Equal(t, win.WindowStart, win.WindowEnd, "missing window end collapses onto the start")
}
