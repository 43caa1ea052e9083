package render

// Buffer is a rendered single slice or slice grid. Values are normalised to
// [0, 1] against the volume range; Opacity already includes the renderer's
// alpha. Blank grid cells have zero opacity.
type Buffer struct {
	Width  int
	Height int

	Values  []float64
	Opacity []float64

	// Alpha is the renderer alpha the buffer was produced with.
	Alpha float64
	// Filter is the colortable mapping for the compositor, nil for plain gray.
	Filter *Filter
}

// Empty reports whether the buffer holds no pixels.
func (b Buffer) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// At returns value and opacity of a pixel.
func (b Buffer) At(x, y int) (value, opacity float64) {
	i := y*b.Width + x
	return b.Values[i], b.Opacity[i]
}

func (b Buffer) clone() Buffer {
	c := b
	c.Values = append([]float64(nil), b.Values...)
	c.Opacity = append([]float64(nil), b.Opacity...)
	return c
}
