package geometry

// palette is the fixed series color cycle. Colors are assigned by
// series index and wrap around, so the same input order always paints
// the same way.
var palette = [...]string{
	"#4f8ef7",
	"#34c38f",
	"#f06292",
	"#f4b942",
	"#8e7cc3",
	"#50b8c1",
	"#e57368",
	"#9bb45c",
}

// ColorAt returns the palette entry for a series index.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}
