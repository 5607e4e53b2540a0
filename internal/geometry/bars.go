package geometry

import (
	"fmt"
	"math"
)

// BarMode selects how multiple series share a category slot.
type BarMode string

const (
	// BarsStacked piles positive values upward from zero in series
	// order and negative values downward in their own stack.
	BarsStacked BarMode = "stacked"
	// BarsSeparated draws each series as its own sub-column rising or
	// falling from the zero baseline.
	BarsSeparated BarMode = "separated"
)

// BarOptions configures a bar chart layout.
type BarOptions struct {
	Width      float64
	Height     float64
	Mode       BarMode
	MaxXLabels int
}

// DefaultBarOptions returns the dashboard's standard bar chart
// framing.
func DefaultBarOptions() BarOptions {
	return BarOptions{Width: 800, Height: 300, Mode: BarsSeparated, MaxXLabels: 6}
}

// LayoutBars arranges index-aligned series as bars per category. The
// zero line is always inside the value domain because every bar grows
// from it. Without a single usable value the no-data scene comes back.
func LayoutBars(series []Series, opts BarOptions) *Scene {
	opts = withBarDefaults(opts)

	labels := categoryLabels(series)
	n := len(labels)
	if n == 0 || len(finiteValues(series)) == 0 {
		return noDataScene(opts.Width, opts.Height)
	}

	scene := &Scene{Width: opts.Width, Height: opts.Height}
	plotLeft := marginLeft
	plotRight := opts.Width - marginRight
	plotTop := marginTop
	plotBottom := opts.Height - marginBottom
	plotWidth := plotRight - plotLeft

	domainMin, domainMax := valueDomain(barExtent(series, n, opts.Mode))
	y := linearScale{
		domainMin: domainMin,
		domainMax: domainMax,
		rangeMin:  plotBottom,
		rangeMax:  plotTop,
	}

	scene.gridlines(y, plotLeft, plotRight, plotLeft-8)
	barAxisLabels(scene, labels, plotLeft, plotWidth, plotBottom, opts.MaxXLabels)

	band := plotWidth / float64(n)
	if opts.Mode == BarsStacked {
		layoutStacked(scene, series, n, y, plotLeft, band)
	} else {
		layoutSeparated(scene, series, n, y, plotLeft, band)
	}
	return scene
}

// barExtent gathers the values the y domain must cover. Zero is
// always included since bars are anchored there; stacked mode covers
// the cumulative tops of both stacks rather than raw values.
func barExtent(series []Series, n int, mode BarMode) []float64 {
	extent := []float64{0}
	if mode != BarsStacked {
		return append(extent, finiteValues(series)...)
	}
	for i := 0; i < n; i++ {
		var up, down float64
		for _, s := range series {
			if i >= len(s.Points) || !finite(s.Points[i].Value) {
				continue
			}
			if v := s.Points[i].Value; v >= 0 {
				up += v
			} else {
				down += v
			}
		}
		extent = append(extent, up, down)
	}
	return extent
}

func layoutStacked(scene *Scene, series []Series, n int, y linearScale, left, band float64) {
	barWidth := band * 0.6
	for i := 0; i < n; i++ {
		x := left + (float64(i)+0.5)*band - barWidth/2
		var up, down float64
		for si, s := range series {
			if i >= len(s.Points) || !finite(s.Points[i].Value) {
				continue
			}
			v := s.Points[i].Value
			if v == 0 {
				continue
			}
			var top, bottom float64
			if v > 0 {
				top = y.mapValue(up + v)
				bottom = y.mapValue(up)
				up += v
			} else {
				top = y.mapValue(down)
				bottom = y.mapValue(down + v)
				down += v
			}
			addBar(scene, series[si], si, i, x, barWidth, top, bottom)
		}
	}
}

func layoutSeparated(scene *Scene, series []Series, n int, y linearScale, left, band float64) {
	group := band * 0.8
	sub := group / float64(len(series))
	zeroY := y.mapValue(0)
	for i := 0; i < n; i++ {
		groupLeft := left + (float64(i)+0.5)*band - group/2
		for si, s := range series {
			if i >= len(s.Points) || !finite(s.Points[i].Value) {
				continue
			}
			v := s.Points[i].Value
			if v == 0 {
				continue
			}
			top := math.Min(zeroY, y.mapValue(v))
			bottom := math.Max(zeroY, y.mapValue(v))
			addBar(scene, s, si, i, groupLeft+float64(si)*sub, sub, top, bottom)
		}
	}
}

func addBar(scene *Scene, s Series, si, ci int, x, width, top, bottom float64) {
	id := fmt.Sprintf("bar-s%d-c%d", si, ci)
	scene.add(Primitive{
		ID:    id,
		Kind:  KindBar,
		X:     x,
		Y:     top,
		W:     width,
		H:     bottom - top,
		Color: ColorAt(si),
	})
	scene.tooltip(id, tooltipText(s.Name, s.Points[ci].Label, s.Points[ci].Value))
}

func withBarDefaults(opts BarOptions) BarOptions {
	def := DefaultBarOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.MaxXLabels <= 0 {
		opts.MaxXLabels = def.MaxXLabels
	}
	return opts
}

// barAxisLabels writes category names under their band centers,
// thinned to at most maxLabels entries.
func barAxisLabels(scene *Scene, labels []string, left, width, bottom float64, maxLabels int) {
	n := len(labels)
	if n == 0 || maxLabels <= 0 {
		return
	}
	step := 1
	if n > maxLabels {
		step = (n + maxLabels - 1) / maxLabels
	}
	band := width / float64(n)
	for i := 0; i < n; i += step {
		if labels[i] == "" {
			continue
		}
		scene.add(Primitive{
			Kind:   KindLabel,
			X:      left + (float64(i)+0.5)*band,
			Y:      bottom + 16,
			Text:   labels[i],
			Anchor: "middle",
		})
	}
}
