package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byKind(s *Scene, k Kind) []Primitive {
	var out []Primitive
	for _, p := range s.Primitives {
		if p.Kind == k {
			out = append(out, p)
		}
	}
	return out
}

func byID(t *testing.T, s *Scene, id string) Primitive {
	t.Helper()
	for _, p := range s.Primitives {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("primitive %q not in scene", id)
	return Primitive{}
}

func bankrollSeries() []Series {
	return []Series{{
		Name: "Bankroll",
		Points: []Point{
			{Label: "2025-09-10", Value: 1000},
			{Label: "2025-09-11", Value: 1080},
			{Label: "2025-09-12", Value: 1040},
			{Label: "2025-09-13", Value: 1150},
			{Label: "2025-09-14", Value: 1200},
		},
	}}
}

func TestLayoutLineDrawsOnePolylinePerSeries(t *testing.T) {
	scene := LayoutLine(bankrollSeries(), DefaultLineOptions())

	require.False(t, scene.NoData)
	paths := byKind(scene, KindPath)
	require.Len(t, paths, 1)
	assert.Len(t, paths[0].Points, 5)
	assert.Equal(t, ColorAt(0), paths[0].Color)
	assert.Len(t, byKind(scene, KindMarker), 5)
}

func TestLayoutLineSpacesPointsUniformlyByIndex(t *testing.T) {
	scene := LayoutLine(bankrollSeries(), DefaultLineOptions())

	pts := byKind(scene, KindPath)[0].Points
	require.Len(t, pts, 5)
	step := pts[1].X - pts[0].X
	for i := 1; i < len(pts); i++ {
		assert.InDelta(t, step, pts[i].X-pts[i-1].X, 1e-9)
	}
	assert.Equal(t, marginLeft, pts[0].X)
	assert.Equal(t, 800-marginRight, pts[4].X)
}

func TestLayoutLineDrawsExactlyMaxGridlines(t *testing.T) {
	assert.Len(t, byKind(LayoutLine(bankrollSeries(), DefaultLineOptions()), KindGridline), 6)

	short := []Series{{Points: []Point{{Label: "a", Value: 3}}}}
	assert.Len(t, byKind(LayoutLine(short, DefaultLineOptions()), KindGridline), 6)
}

func TestLayoutLinePadsValueDomain(t *testing.T) {
	series := []Series{{Points: []Point{
		{Label: "a", Value: 100},
		{Label: "b", Value: 200},
	}}}
	scene := LayoutLine(series, DefaultLineOptions())

	grid := byKind(scene, KindGridline)
	require.Len(t, grid, 6)
	// Domain is [90, 210], so the extreme points sit inside the
	// outermost gridlines rather than on them.
	pts := byKind(scene, KindPath)[0].Points
	assert.Less(t, pts[0].Y, grid[0].Y)
	assert.Greater(t, pts[1].Y, grid[5].Y)

	var labels []string
	for _, p := range byKind(scene, KindLabel) {
		labels = append(labels, p.Text)
	}
	assert.Contains(t, labels, "90")
	assert.Contains(t, labels, "210")
}

func TestLayoutLineFlatZeroSeriesUsesUnitDomain(t *testing.T) {
	series := []Series{{Points: []Point{
		{Label: "a", Value: 0},
		{Label: "b", Value: 0},
		{Label: "c", Value: 0},
	}}}
	scene := LayoutLine(series, DefaultLineOptions())

	require.False(t, scene.NoData)
	for _, p := range byKind(scene, KindPath)[0].Points {
		assert.Equal(t, 300-marginBottom, p.Y)
	}
	var labels []string
	for _, p := range byKind(scene, KindLabel) {
		labels = append(labels, p.Text)
	}
	assert.Contains(t, labels, "0")
	assert.Contains(t, labels, "1")
}

func TestLayoutLineAreaClosesToBaseline(t *testing.T) {
	opts := DefaultLineOptions()
	opts.ShowArea = true
	series := []Series{{Points: []Point{
		{Label: "a", Value: -50},
		{Label: "b", Value: 150},
		{Label: "c", Value: 100},
	}}}
	scene := LayoutLine(series, opts)

	areas := byKind(scene, KindArea)
	require.Len(t, areas, 1)
	area := areas[0].Points
	require.Len(t, area, 5)

	pts := byKind(scene, KindPath)[0].Points
	y := linearScale{domainMin: -70, domainMax: 170, rangeMin: 272, rangeMax: 16}
	baseY := y.mapValue(0)

	assert.InDelta(t, baseY, area[0].Y, 1e-9)
	assert.InDelta(t, baseY, area[4].Y, 1e-9)
	assert.Equal(t, pts[0].X, area[0].X)
	assert.Equal(t, pts[2].X, area[4].X)
	assert.Equal(t, pts, area[1:4])
}

func TestLayoutLineSkipsNonFiniteValues(t *testing.T) {
	series := []Series{{Points: []Point{
		{Label: "a", Value: 10},
		{Label: "b", Value: math.NaN()},
		{Label: "c", Value: 30},
	}}}
	scene := LayoutLine(series, DefaultLineOptions())

	pts := byKind(scene, KindPath)[0].Points
	require.Len(t, pts, 2)
	// The line bridges the gap but both survivors keep their index
	// positions.
	assert.Equal(t, indexX(0, 3, marginLeft, 800-marginLeft-marginRight), pts[0].X)
	assert.Equal(t, indexX(2, 3, marginLeft, 800-marginLeft-marginRight), pts[1].X)
	assert.Len(t, byKind(scene, KindMarker), 2)
}

func TestLayoutLineNoUsableValues(t *testing.T) {
	cases := map[string][]Series{
		"empty":     nil,
		"no points": {{Name: "x"}},
		"all nan":   {{Points: []Point{{Label: "a", Value: math.NaN()}}}},
	}
	for name, series := range cases {
		t.Run(name, func(t *testing.T) {
			scene := LayoutLine(series, DefaultLineOptions())
			assert.True(t, scene.NoData)
			assert.Empty(t, byKind(scene, KindPath))
			assert.Empty(t, byKind(scene, KindArea))
			assert.Empty(t, byKind(scene, KindBar))
			msgs := byKind(scene, KindMessage)
			require.Len(t, msgs, 1)
			assert.Equal(t, "No data available", msgs[0].Text)
		})
	}
}

func TestLayoutLineSinglePointIsCentered(t *testing.T) {
	series := []Series{{Points: []Point{{Label: "only", Value: 42}}}}
	scene := LayoutLine(series, DefaultLineOptions())

	pts := byKind(scene, KindPath)[0].Points
	require.Len(t, pts, 1)
	assert.Equal(t, marginLeft+(800-marginLeft-marginRight)/2, pts[0].X)
}

func TestLayoutLineTooltips(t *testing.T) {
	scene := LayoutLine(bankrollSeries(), DefaultLineOptions())

	marker := byID(t, scene, "s0-p3")
	assert.Equal(t, "2025-09-13 (Bankroll): 1150.00", scene.Tooltips[marker.ID])
}

func TestLayoutLineIsDeterministic(t *testing.T) {
	first := LayoutLine(bankrollSeries(), DefaultLineOptions())
	second := LayoutLine(bankrollSeries(), DefaultLineOptions())
	assert.Equal(t, first, second)
}
