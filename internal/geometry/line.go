package geometry

import (
	"fmt"
	"strconv"
)

// Plot margins leave room for tick labels on the left and category
// labels underneath.
const (
	marginLeft   = 56.0
	marginRight  = 16.0
	marginTop    = 16.0
	marginBottom = 28.0
)

// LineOptions configures a line chart layout.
type LineOptions struct {
	Width       float64
	Height      float64
	ShowArea    bool // fill between the first series and the baseline
	ShowMarkers bool
	MaxXLabels  int
}

// DefaultLineOptions returns the dashboard's standard line chart
// framing.
func DefaultLineOptions() LineOptions {
	return LineOptions{Width: 800, Height: 300, ShowMarkers: true, MaxXLabels: 6}
}

// LayoutLine arranges one or more series as polylines on a shared
// index x-axis and a shared value y-axis. Non-finite values are
// skipped and the line bridges straight to the next usable point.
// Without a single usable value the explicit no-data scene comes back
// instead.
func LayoutLine(series []Series, opts LineOptions) *Scene {
	opts = withLineDefaults(opts)

	values := finiteValues(series)
	if len(values) == 0 {
		return noDataScene(opts.Width, opts.Height)
	}

	n := 0
	for _, s := range series {
		if len(s.Points) > n {
			n = len(s.Points)
		}
	}

	scene := &Scene{Width: opts.Width, Height: opts.Height}
	plotLeft := marginLeft
	plotRight := opts.Width - marginRight
	plotTop := marginTop
	plotBottom := opts.Height - marginBottom
	plotWidth := plotRight - plotLeft

	domainMin, domainMax := valueDomain(values)
	y := linearScale{
		domainMin: domainMin,
		domainMax: domainMax,
		rangeMin:  plotBottom,
		rangeMax:  plotTop,
	}

	scene.gridlines(y, plotLeft, plotRight, plotLeft-8)
	xAxisLabels(scene, categoryLabels(series), n, plotLeft, plotWidth, plotBottom, opts.MaxXLabels)

	baseY := y.mapValue(y.clamp(0))
	for si, s := range series {
		var pts []Pt
		for i, p := range s.Points {
			if !finite(p.Value) {
				continue
			}
			pts = append(pts, Pt{
				X: indexX(i, n, plotLeft, plotWidth),
				Y: y.mapValue(p.Value),
			})
		}
		if len(pts) == 0 {
			continue
		}
		color := ColorAt(si)

		if opts.ShowArea && si == 0 {
			area := make([]Pt, 0, len(pts)+2)
			area = append(area, Pt{X: pts[0].X, Y: baseY})
			area = append(area, pts...)
			area = append(area, Pt{X: pts[len(pts)-1].X, Y: baseY})
			scene.add(Primitive{
				ID:     fmt.Sprintf("area-s%d", si),
				Kind:   KindArea,
				Points: area,
				Color:  color,
			})
		}

		scene.add(Primitive{
			ID:     fmt.Sprintf("line-s%d", si),
			Kind:   KindPath,
			Points: pts,
			Color:  color,
		})

		if opts.ShowMarkers {
			mi := 0
			for i, p := range s.Points {
				if !finite(p.Value) {
					continue
				}
				id := fmt.Sprintf("s%d-p%d", si, i)
				scene.add(Primitive{
					ID:    id,
					Kind:  KindMarker,
					X:     pts[mi].X,
					Y:     pts[mi].Y,
					R:     3,
					Color: color,
				})
				scene.tooltip(id, tooltipText(s.Name, p.Label, p.Value))
				mi++
			}
		}
	}

	return scene
}

func withLineDefaults(opts LineOptions) LineOptions {
	def := DefaultLineOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.MaxXLabels <= 0 {
		opts.MaxXLabels = def.MaxXLabels
	}
	return opts
}

// xAxisLabels spreads at most maxLabels category labels under the
// plot, keeping their index positions.
func xAxisLabels(scene *Scene, labels []string, n int, left, width, bottom float64, maxLabels int) {
	if n == 0 || maxLabels <= 0 {
		return
	}
	step := 1
	if n > maxLabels {
		step = (n + maxLabels - 1) / maxLabels
	}
	for i := 0; i < n && i < len(labels); i += step {
		if labels[i] == "" {
			continue
		}
		scene.add(Primitive{
			Kind:   KindLabel,
			X:      indexX(i, n, left, width),
			Y:      bottom + 16,
			Text:   labels[i],
			Anchor: "middle",
		})
	}
}

// tooltipText builds the hover line for one data point.
func tooltipText(name, label string, v float64) string {
	value := strconv.FormatFloat(v, 'f', 2, 64)
	if name == "" {
		return fmt.Sprintf("%s: %s", label, value)
	}
	return fmt.Sprintf("%s (%s): %s", label, name, value)
}
