package domain

import "strings"

// leagueTiers maps league names to coarse strength tiers.
// Leagues not listed default to tier 4.
var leagueTiers = map[string]int{
	"England Premier League": 1,
	"Spain La Liga":          1,
	"Germany Bundesliga":     1,
	"Italy Serie A":          1,
	"France Ligue 1":         1,

	"England Championship":   2,
	"Netherlands Eredivisie": 2,
	"Portugal Liga NOS":      2,
	"Belgium Pro League":     2,
	"Scotland Premiership":   2,
}

// TierForLeague returns the strength tier for a league name.
func TierForLeague(league string) int {
	if tier, ok := leagueTiers[league]; ok {
		return tier
	}
	return 4
}

// LeagueShortCode builds a compact badge from the initials of the league
// name's words, capped at four characters.
func LeagueShortCode(league string) string {
	var code strings.Builder
	for _, word := range strings.Fields(league) {
		r := []rune(word)
		if len(r) == 0 {
			continue
		}
		code.WriteString(strings.ToUpper(string(r[0])))
		if code.Len() >= 4 {
			break
		}
	}
	return code.String()
}
