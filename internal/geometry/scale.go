package geometry

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// gridlineCount fixes the horizontal guide count for every chart, so
// axes read the same across the dashboard.
const gridlineCount = 6

// linearScale maps a value domain onto a pixel range. The range may be
// inverted, which is how y axes put larger values higher on screen.
type linearScale struct {
	domainMin, domainMax float64
	rangeMin, rangeMax   float64
}

func (s linearScale) mapValue(v float64) float64 {
	span := s.domainMax - s.domainMin
	if span == 0 {
		return s.rangeMin
	}
	return s.rangeMin + (v-s.domainMin)/span*(s.rangeMax-s.rangeMin)
}

// clamp keeps a value inside the scale domain.
func (s linearScale) clamp(v float64) float64 {
	if v < s.domainMin {
		return s.domainMin
	}
	if v > s.domainMax {
		return s.domainMax
	}
	return v
}

// valueDomain widens the observed extent by 10% of the range on each
// end so extremes never touch the plot border. A series that is zero
// everywhere gets the fixed [0, 1] domain; a flat nonzero series is
// padded by 10% of its magnitude.
func valueDomain(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}
	min := floats.Min(values)
	max := floats.Max(values)
	if min == 0 && max == 0 {
		return 0, 1
	}
	if min == max {
		pad := 0.1 * math.Abs(min)
		return min - pad, max + pad
	}
	pad := (max - min) * 0.1
	return min - pad, max + pad
}

// indexX places point i of n across the plot width. Points are spaced
// uniformly by position, never by any value parsed out of the label.
func indexX(i, n int, left, width float64) float64 {
	if n <= 1 {
		return left + width/2
	}
	return left + float64(i)/float64(n-1)*width
}

// gridlines draws the fixed count of horizontal guides with their tick
// labels, spanning the value domain in equal steps.
func (s *Scene) gridlines(y linearScale, left, right, labelX float64) {
	step := (y.domainMax - y.domainMin) / float64(gridlineCount-1)
	for i := 0; i < gridlineCount; i++ {
		v := y.domainMin + float64(i)*step
		py := y.mapValue(v)
		s.add(Primitive{
			Kind:  KindGridline,
			X:     left,
			Y:     py,
			X2:    right,
			Y2:    py,
			Color: "#e4e7ec",
		})
		s.add(Primitive{
			Kind:   KindLabel,
			X:      labelX,
			Y:      py,
			Text:   formatTick(v),
			Anchor: "end",
		})
	}
}

// formatTick renders an axis value compactly. Large magnitudes drop
// the fraction, small ones keep two places with trailing zeros
// trimmed.
func formatTick(v float64) string {
	if math.Abs(v) >= 1000 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	out := strconv.FormatFloat(v, 'f', 2, 64)
	for len(out) > 0 && out[len(out)-1] == '0' {
		out = out[:len(out)-1]
	}
	if len(out) > 0 && out[len(out)-1] == '.' {
		out = out[:len(out)-1]
	}
	if out == "-0" {
		return "0"
	}
	return out
}
