package render

import (
	"errors"
	"fmt"
	"math"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/voxel"
)

// ErrOutOfBounds is returned when a point does not hit any rendered slice.
var ErrOutOfBounds = errors.New("point outside of rendered slices")

// layout describes how target image space relates to the native volume for
// one set of render parameters.
type layout struct {
	ext     orientation.Extents
	mapping orientation.Mapping
	flips   orientation.Flips

	// cellW and cellH are the size of a single slice plane.
	cellW int
	cellH int
	// slices holds the slice of every grid cell in row-major order.
	slices []int

	// min and max is the volume range used for normalisation.
	min float64
	max float64
}

func (r *Renderer) layout() layout {
	main := r.vol.MainOrientation()
	ext := r.vol.Extents()
	m := orientation.AxisMapping(main, r.target)
	w, h, _ := m.Sizes(ext)
	lo, hi := r.vol.MinMax()

	lay := layout{
		ext:     ext,
		mapping: m,
		flips:   orientation.MirrorFlags(r.vol.RowVector(), r.vol.ColumnVector(), main),
		cellW:   w,
		cellH:   h,
		min:     lo,
		max:     hi,
	}

	if r.gridW == 1 && r.gridH == 1 {
		lay.slices = []int{r.slice}
	} else {
		lay.slices = r.selector.Select(r.gridW*r.gridH, r.vol, r.target)
	}
	return lay
}

// currentLayout returns the layout of the cached buffer if it is still
// valid, otherwise a freshly computed one.
func (r *Renderer) currentLayout() layout {
	if r.cache != nil && r.state == Clean && r.cache.key == r.key() {
		return r.cache.layout
	}
	return r.layout()
}

// toNative resolves a target (x, y, slice) to a native voxel index. Native
// dimensions shown along x or y are reflected when mirrored; the slice axis
// keeps native order so slice numbers match native indices.
func (l layout) toNative(x, y, slice int) (column, row, s int) {
	native := [3]int{}
	native[0], native[1], native[2] = l.mapping.Native(x, y, slice)

	for _, d := range l.mapping[:2] {
		if l.flips.Flipped(d) {
			native[d] = l.ext.Size(d) - 1 - native[d]
		}
	}
	return native[orientation.Width], native[orientation.Height], native[orientation.Slice]
}

// PointToVoxel returns the voxel, in the volume's native space, shown at a
// point of the rendered buffer. Points that fall outside every rendered
// slice, including blank grid cells, return ErrOutOfBounds.
func (r *Renderer) PointToVoxel(x, y float64) (voxel.Coordinate, error) {
	if r.vol == nil {
		return voxel.Coordinate{}, fmt.Errorf("%w: no volume bound", ErrOutOfBounds)
	}

	lay := r.currentLayout()
	width, height := lay.cellW*r.gridW, lay.cellH*r.gridH
	// Compared as floats so NaN and values beyond the int range fail here.
	if !(x >= 0 && y >= 0 && x < float64(width) && y < float64(height)) {
		return voxel.Coordinate{}, fmt.Errorf("%w: (%.1f, %.1f) outside %dx%d",
			ErrOutOfBounds, x, y, width, height)
	}
	px, py := int(math.Floor(x)), int(math.Floor(y))

	col, row := px/lay.cellW, py/lay.cellH
	cell := row*r.gridW + col
	if cell >= len(lay.slices) {
		return voxel.Coordinate{}, fmt.Errorf("%w: grid cell %d is blank", ErrOutOfBounds, cell)
	}

	c, rr, s := lay.toNative(px-col*lay.cellW, py-row*lay.cellH, lay.slices[cell])
	return voxel.New(c, rr, s, r.timestep), nil
}
