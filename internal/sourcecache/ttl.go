package sourcecache

import "time"

// TTL constants for the cached feed sources.
// These are added to time.Now() when storing to calculate expires_at.
// An expired entry is not evicted immediately: it stays available for
// stale fallback until the cleanup job removes it.
const (
	// Fast-moving data (regenerated with every upstream export)
	TTLMetrics         = 10 * time.Minute // Headline KPI key/value pairs
	TTLRecommendations = 10 * time.Minute // Open picks change as models re-run
	TTLUnifiedGames    = 10 * time.Minute // Merged fixture/odds view follows the markets

	// Hourly data (only moves when matches finish)
	TTLSettledBets    = time.Hour // Results settle after full time
	TTLBankrollSeries = time.Hour // One point per settled day

	// Slow-moving aggregates
	TTLSegments   = 6 * time.Hour // ROI heatmap and top segment tables
	TTLParlayWins = 6 * time.Hour // Historical parlay tickets

	// Derived data
	TTLSnapshot = 7 * 24 * time.Hour // Assembled dataset snapshot for warm starts
)
