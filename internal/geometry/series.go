package geometry

// Point is one labelled value in a series. The label carries whatever
// the caller wants on the axis, usually a date; layout spaces points
// by index and never parses it.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is an ordered run of points under one name. Multi-series
// charts align series by point index.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// finiteValues collects every usable value across the given series.
func finiteValues(series []Series) []float64 {
	var out []float64
	for _, s := range series {
		for _, p := range s.Points {
			if finite(p.Value) {
				out = append(out, p.Value)
			}
		}
	}
	return out
}

// categoryLabels picks axis labels for grouped charts from the longest
// series, so a short overlay never truncates the axis.
func categoryLabels(series []Series) []string {
	longest := 0
	for _, s := range series {
		if len(s.Points) > longest {
			longest = len(s.Points)
		}
	}
	labels := make([]string, longest)
	for i := range labels {
		for _, s := range series {
			if i < len(s.Points) && s.Points[i].Label != "" {
				labels[i] = s.Points[i].Label
				break
			}
		}
	}
	return labels
}
