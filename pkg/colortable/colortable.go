// Package colortable provides the lookup tables used to colorize rendered
// slices.
package colortable

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// Linear interpolates between evenly spaced color stops.
type Linear struct {
	colors []color.RGBA
}

// NewLinear creates a table from at least one color stop.
func NewLinear(stops ...color.RGBA) Linear {
	if len(stops) == 0 {
		stops = []color.RGBA{{0, 0, 0, 255}}
	}
	return Linear{colors: append([]color.RGBA(nil), stops...)}
}

// At returns the color at position t (0-1).
func (c Linear) At(t float64) color.Color {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}

	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	upper := min(lower+1, len(c.colors)-1)
	return interpolate(c.colors[lower], c.colors[upper], idx-float64(lower))
}

func interpolate(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c1.R) + t*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + t*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + t*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

var (
	Gray = NewLinear(
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 255, 255, 255},
	)

	// Hot runs black, red, yellow, white. Used for positive activation.
	Hot = NewLinear(
		color.RGBA{0, 0, 0, 255},
		color.RGBA{255, 0, 0, 255},
		color.RGBA{255, 255, 0, 255},
		color.RGBA{255, 255, 255, 255},
	)

	// Cold runs black, blue, cyan, white. Used for negative activation.
	Cold = NewLinear(
		color.RGBA{0, 0, 0, 255},
		color.RGBA{0, 0, 255, 255},
		color.RGBA{0, 255, 255, 255},
		color.RGBA{255, 255, 255, 255},
	)

	// Viridis colormap (matplotlib viridis)
	Viridis = NewLinear(
		color.RGBA{68, 1, 84, 255},
		color.RGBA{72, 35, 116, 255},
		color.RGBA{64, 67, 135, 255},
		color.RGBA{52, 94, 141, 255},
		color.RGBA{41, 120, 142, 255},
		color.RGBA{32, 144, 140, 255},
		color.RGBA{34, 167, 132, 255},
		color.RGBA{68, 190, 112, 255},
		color.RGBA{121, 209, 81, 255},
		color.RGBA{189, 222, 38, 255},
		color.RGBA{253, 231, 37, 255},
	)

	// Selection paints ROI masks in a single color.
	Selection = NewLinear(color.RGBA{0, 200, 255, 255})
)

var tables = map[string]Colormap{
	"gray":      Gray,
	"hot":       Hot,
	"cold":      Cold,
	"viridis":   Viridis,
	"selection": Selection,
}

// Lookup returns the table registered under a case-insensitive name. The
// empty name is gray.
func Lookup(name string) (Colormap, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Gray, nil
	}
	c, ok := tables[name]
	if !ok {
		return nil, fmt.Errorf("unknown colortable: %s (available: %s)", name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names returns the registered table names, sorted.
func Names() []string {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
