// Package slicesel decides which slices of a volume populate a multi-slice grid.
package slicesel

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/volume"
)

// Selector picks slice indices from a volume viewed in a target orientation.
//
// Implementations return min(n, slice count) indices, ascending, unique and
// in range, and must be deterministic for identical inputs.
type Selector interface {
	Select(n int, vol volume.Accessor, target orientation.Orientation) []int
}

// EvenlySpaced spreads n slices evenly over the whole slice range. The first
// and last slice are always included for n >= 2; n == 1 selects the middle.
type EvenlySpaced struct{}

// Select implements Selector.
func (EvenlySpaced) Select(n int, vol volume.Accessor, target orientation.Orientation) []int {
	if vol == nil {
		return nil
	}
	return spread(n, 0, orientation.SliceDimensionSize(vol, target)-1)
}

// spread picks min(n, last-first+1) evenly spaced indices in [first, last].
func spread(n, first, last int) []int {
	size := last - first + 1
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []int{first + (size-1)/2}
	}

	// Rounded i*(size-1)/(n-1). The step is at least 1, so the result is
	// strictly ascending.
	indices := make([]int, n)
	for i := range indices {
		indices[i] = first + (i*(size-1)+(n-1)/2)/(n-1)
	}
	return indices
}

// Content biases the selection toward slices with structure. Slices whose
// standard deviation does not exceed MinStdDev count as background; the
// selection is spread between the first and last non-background slice.
// When that range is narrower than n it falls back to EvenlySpaced.
type Content struct {
	// Timestep is the volume timestep that is evaluated.
	Timestep int
	// MinStdDev is the standard deviation a slice needs to count as content.
	MinStdDev float64
}

// Select implements Selector.
func (c Content) Select(n int, vol volume.Accessor, target orientation.Orientation) []int {
	if vol == nil {
		return nil
	}

	m := orientation.AxisMapping(vol.MainOrientation(), target)
	width, height, slices := m.Sizes(vol.Extents())
	t := min(max(c.Timestep, 0), vol.Extents().Timesteps-1)

	first, last := -1, -1
	values := make([]float64, width*height)
	for s := 0; s < slices; s++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				col, row, sl := m.Native(x, y, s)
				values[y*width+x] = vol.ValueAt(col, row, sl, t)
			}
		}
		if stat.PopStdDev(values, nil) > c.MinStdDev {
			if first < 0 {
				first = s
			}
			last = s
		}
	}

	if first < 0 || last-first+1 < n {
		return spread(n, 0, slices-1)
	}
	return spread(n, first, last)
}

// ByName returns the selector registered under name: "even" (the default
// when name is empty) or "content".
func ByName(name string) (Selector, error) {
	switch name {
	case "", "even":
		return EvenlySpaced{}, nil
	case "content":
		return Content{}, nil
	}
	return nil, fmt.Errorf("unknown slice selector: %s", name)
}
