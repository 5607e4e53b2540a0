package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/tipster/internal/domain"
)

// Wall-clock layouts the exporter writes when it omits the zone.
// These are interpreted in the feed's fixed UTC+8 zone.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseExportTime converts a feed datetime string into an absolute UTC
// instant. Zone-qualified values are taken as-is; naive values are wall
// clocks in UTC+8, so "2025-08-15 20:00:00" resolves to 12:00 UTC the
// same day.
func ParseExportTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, domain.FeedLocation); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}
