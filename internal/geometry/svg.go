package geometry

import (
	"strconv"
	"strings"
)

var svgEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// RenderSVG serializes a scene as a standalone SVG document.
// Primitives render in list order with fixed-precision coordinates, so
// equal scenes produce byte-identical markup. Primitives with hover
// text carry it in a data-tip attribute for the tooltip layer to pick
// up.
func RenderSVG(s *Scene) []byte {
	var b strings.Builder
	b.Grow(1024 + 96*len(s.Primitives))

	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	b.WriteString(num(s.Width))
	b.WriteString(`" height="`)
	b.WriteString(num(s.Height))
	b.WriteString(`" viewBox="0 0 `)
	b.WriteString(num(s.Width))
	b.WriteString(" ")
	b.WriteString(num(s.Height))
	b.WriteString(`" font-family="system-ui, sans-serif">`)
	b.WriteString("\n")

	for _, p := range s.Primitives {
		writePrimitive(&b, s, p)
	}

	b.WriteString("</svg>\n")
	return []byte(b.String())
}

func writePrimitive(b *strings.Builder, s *Scene, p Primitive) {
	switch p.Kind {
	case KindGridline:
		b.WriteString(`<line x1="` + num(p.X) + `" y1="` + num(p.Y) +
			`" x2="` + num(p.X2) + `" y2="` + num(p.Y2) +
			`" stroke="` + attr(p.Color) + `" stroke-width="1"/>`)
	case KindArea:
		b.WriteString(`<polygon points="` + joinPoints(p.Points) +
			`" fill="` + attr(p.Color) + `" fill-opacity="0.15" stroke="none"/>`)
	case KindPath:
		b.WriteString(`<polyline points="` + joinPoints(p.Points) +
			`" fill="none" stroke="` + attr(p.Color) +
			`" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"/>`)
	case KindMarker:
		b.WriteString(`<circle cx="` + num(p.X) + `" cy="` + num(p.Y) +
			`" r="` + num(p.R) + `" fill="` + attr(p.Color) + `"` + tipAttr(s, p.ID) + `/>`)
	case KindBar:
		b.WriteString(`<rect x="` + num(p.X) + `" y="` + num(p.Y) +
			`" width="` + num(p.W) + `" height="` + num(p.H) +
			`" fill="` + attr(p.Color) + `"` + tipAttr(s, p.ID) + `/>`)
	case KindLabel:
		b.WriteString(`<text x="` + num(p.X) + `" y="` + num(p.Y) +
			`" text-anchor="` + anchor(p.Anchor) +
			`" font-size="11" fill="#667085" dominant-baseline="middle">` +
			svgEscaper.Replace(p.Text) + `</text>`)
	case KindMessage:
		b.WriteString(`<text x="` + num(p.X) + `" y="` + num(p.Y) +
			`" text-anchor="` + anchor(p.Anchor) +
			`" font-size="13" fill="#98a2b3">` +
			svgEscaper.Replace(p.Text) + `</text>`)
	default:
		return
	}
	b.WriteString("\n")
}

// tipAttr emits the data-tip attribute when the primitive has hover
// text registered.
func tipAttr(s *Scene, id string) string {
	if id == "" {
		return ""
	}
	text, ok := s.Tooltips[id]
	if !ok {
		return ""
	}
	return ` data-tip="` + attr(text) + `"`
}

func joinPoints(pts []Pt) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(num(p.X))
		b.WriteString(",")
		b.WriteString(num(p.Y))
	}
	return b.String()
}

func num(v float64) string {
	out := strconv.FormatFloat(v, 'f', 2, 64)
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if out == "-0" || out == "" {
		return "0"
	}
	return out
}

func attr(v string) string {
	return svgEscaper.Replace(v)
}

func anchor(a string) string {
	if a == "" {
		return "start"
	}
	return a
}
