package handicap

import "math"

// goalProxyScale converts a normalized home/away probability gap into an
// expected goal-difference estimate. Empirically tuned upstream; changing
// it shifts every estimated line, so it is kept verbatim.
const goalProxyScale = 2.5

// quarterLines is the supported handicap range in quarter-goal steps.
// An estimate outside the range clamps to the nearest end.
var quarterLines = [17]float64{
	-2.00, -1.75, -1.50, -1.25, -1.00, -0.75, -0.50, -0.25,
	0.00,
	0.25, 0.50, 0.75, 1.00, 1.25, 1.50, 1.75, 2.00,
}

// lineForProxy maps a goal-difference estimate onto the quarter-line
// table. Bucket boundaries sit at the midpoints between adjacent lines,
// so 0.56 resolves to 0.50 and 0.63 to 0.75.
func lineForProxy(proxy float64) float64 {
	for i := 0; i < len(quarterLines)-1; i++ {
		threshold := (quarterLines[i] + quarterLines[i+1]) / 2
		if proxy < threshold {
			return quarterLines[i]
		}
	}
	return quarterLines[len(quarterLines)-1]
}

// RoundQuarter rounds a line to the nearest quarter step.
func RoundQuarter(v float64) float64 {
	return math.Round(v*4) / 4
}
