// Package geometry lays out charts as declarative scenes of drawing
// primitives, with no rendering dependency.
//
// Layout is pure: the same series and options always produce the same
// scene, so every visual rule is testable without a drawing surface.
// Rendering a scene to SVG happens separately and touches nothing but
// the primitive list.
package geometry

import "math"

// Kind discriminates the primitive types a scene can hold.
type Kind string

const (
	KindGridline Kind = "gridline"
	KindPath     Kind = "path"
	KindArea     Kind = "area"
	KindMarker   Kind = "marker"
	KindBar      Kind = "bar"
	KindLabel    Kind = "label"
	KindMessage  Kind = "message"
)

// Pt is one coordinate pair in pixel space.
type Pt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Primitive is a single drawable element. Only the fields relevant to
// its kind are set.
type Primitive struct {
	ID     string  `json:"id,omitempty"`
	Kind   Kind    `json:"kind"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`
	W      float64 `json:"w,omitempty"`
	H      float64 `json:"h,omitempty"`
	R      float64 `json:"r,omitempty"`
	Points []Pt    `json:"points,omitempty"`
	Text   string  `json:"text,omitempty"`
	Color  string  `json:"color,omitempty"`
	Anchor string  `json:"anchor,omitempty"`
}

// Scene is the complete layout of one chart: an ordered primitive list
// plus the tooltip text keyed by primitive ID. A scene with NoData set
// holds a message primitive and nothing drawable.
type Scene struct {
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	NoData     bool              `json:"no_data,omitempty"`
	Primitives []Primitive       `json:"primitives"`
	Tooltips   map[string]string `json:"tooltips,omitempty"`
}

// add appends a primitive in draw order.
func (s *Scene) add(p Primitive) {
	s.Primitives = append(s.Primitives, p)
}

// tooltip registers hover text for a primitive ID.
func (s *Scene) tooltip(id, text string) {
	if s.Tooltips == nil {
		s.Tooltips = make(map[string]string)
	}
	s.Tooltips[id] = text
}

// noDataScene is the explicit empty state: a centered message and zero
// drawable primitives.
func noDataScene(width, height float64) *Scene {
	s := &Scene{Width: width, Height: height, NoData: true}
	s.add(Primitive{
		Kind:   KindMessage,
		X:      width / 2,
		Y:      height / 2,
		Text:   "No data available",
		Anchor: "middle",
	})
	return s
}

// finite reports whether a value is usable for layout arithmetic.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
