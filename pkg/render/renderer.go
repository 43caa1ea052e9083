// Package render converts a volume into displayable scalar buffers: a single
// slice or a grid of slices, in any target orientation.
//
// A Renderer keeps the last rendered buffer and only samples the volume again
// when the volume, slice, timestep, target orientation or grid size changed.
// Alpha and the colortable filter are applied on top of the cached buffer.
package render

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/logs"
	lru "github.com/hashicorp/golang-lru/v2"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/slicesel"
	"imagedataview/pkg/volume"
)

// DefaultPlaneCacheSize is the number of sampled planes a renderer keeps.
const DefaultPlaneCacheSize = 64

// Config contains renderer configuration.
type Config struct {
	// Selector picks the slices of a multi-slice grid. Defaults to
	// slicesel.EvenlySpaced.
	Selector slicesel.Selector
	// PlaneCacheSize bounds the number of memoised planes.
	PlaneCacheSize int
}

// Renderer renders one volume. It is owned by a single caller and is not safe
// for concurrent use.
type Renderer struct {
	vol volume.Accessor
	// generation identifies the bound volume in cache keys; it changes on
	// every SetData, even when the same volume is bound again.
	generation uint64

	slice    int
	timestep int
	target   orientation.Orientation
	gridW    int
	gridH    int
	alpha    float64
	filter   *Filter

	selector slicesel.Selector
	state    State
	cache    *renderCache
	planes   *lru.Cache[planeKey, []float64]
	hook     func(Buffer)
}

type cacheKey struct {
	generation uint64
	slice      int
	timestep   int
	target     orientation.Orientation
	gridW      int
	gridH      int
}

type renderCache struct {
	key    cacheKey
	layout layout
	buffer Buffer
}

type planeKey struct {
	generation uint64
	target     orientation.Orientation
	slice      int
	timestep   int
}

// New creates a renderer without a volume, showing a single axial slice.
func New(cfg Config) *Renderer {
	if cfg.Selector == nil {
		cfg.Selector = slicesel.EvenlySpaced{}
	}
	if cfg.PlaneCacheSize <= 0 {
		cfg.PlaneCacheSize = DefaultPlaneCacheSize
	}

	planes, err := lru.New[planeKey, []float64](cfg.PlaneCacheSize)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}

	return &Renderer{
		target:   orientation.Axial,
		gridW:    1,
		gridH:    1,
		alpha:    1,
		selector: cfg.Selector,
		state:    Dirty,
		planes:   planes,
	}
}

// SetData binds a volume, keeping the current slice and timestep as far as
// the new volume allows.
func (r *Renderer) SetData(vol volume.Accessor) {
	r.SetDataAt(vol, r.slice, r.timestep)
}

// SetDataAt binds a volume and moves to slice and timestep, both clamped to
// the volume. Passing nil unbinds the volume.
func (r *Renderer) SetDataAt(vol volume.Accessor, slice, timestep int) {
	r.vol = vol
	r.generation++
	r.cache = nil
	r.slice = r.clampSlice(slice)
	r.timestep = r.clampTimestep(timestep)
	r.state = transition(r.state, dataChanged)
}

// SetSlice moves to another slice of the target orientation. Out-of-range
// values are clamped.
func (r *Renderer) SetSlice(slice int) {
	slice = r.clampSlice(slice)
	if slice == r.slice {
		return
	}
	r.slice = slice
	r.state = transition(r.state, sliceChanged)
}

// SetTimestep moves to another timestep. Out-of-range values are clamped.
func (r *Renderer) SetTimestep(timestep int) {
	timestep = r.clampTimestep(timestep)
	if timestep == r.timestep {
		return
	}
	r.timestep = timestep
	r.state = transition(r.state, timestepChanged)
}

// SetGridSize sets the number of grid columns and rows. (1, 1) renders the
// current slice only; sizes below 1 are raised to 1.
func (r *Renderer) SetGridSize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if width == r.gridW && height == r.gridH {
		return
	}
	r.gridW, r.gridH = width, height
	r.state = transition(r.state, gridChanged)
}

// SetTargetOrientation sets the display orientation. The current slice is
// clamped to the slice count of the new orientation.
func (r *Renderer) SetTargetOrientation(o orientation.Orientation) {
	if o == r.target {
		return
	}
	r.target = o
	r.slice = r.clampSlice(r.slice)
	r.state = transition(r.state, orientationChanged)
}

// SetAlpha sets the opacity applied to every rendered pixel, clamped to [0, 1].
func (r *Renderer) SetAlpha(alpha float64) {
	r.alpha = min(max(alpha, 0), 1)
	r.state = transition(r.state, alphaChanged)
}

// SetFilter sets the colortable filter, nil removes it.
func (r *Renderer) SetFilter(f *Filter) {
	if f != nil {
		c := *f
		f = &c
	}
	r.filter = f
	r.state = transition(r.state, filterChanged)
}

// SetRenderHook registers a function called with every buffer Render returns.
func (r *Renderer) SetRenderHook(hook func(Buffer)) {
	r.hook = hook
}

// invalidator is implemented by volumes that cache derived values, such as
// volume.Memory.
type invalidator interface {
	Invalidate()
}

// Render returns the buffer for the current parameters. The volume is only
// sampled again when the renderer is dirty or force is set. Changes made to
// the bound volume in place, including its direction vectors, only show up
// after Render(true).
func (r *Renderer) Render(force bool) Buffer {
	if r.vol == nil {
		return Buffer{}
	}

	key := r.key()
	if force {
		if inv, ok := r.vol.(invalidator); ok {
			inv.Invalidate()
		}
		r.planes.Purge()
	}
	if force || r.state == Dirty || r.cache == nil || r.cache.key != key {
		r.cache = r.sample(key)
		r.state = transition(r.state, rendered)
	}

	out := r.cache.buffer.clone()
	if r.filter != nil {
		lo, hi := r.cache.layout.min, r.cache.layout.max
		r.filter.apply(out.Values, out.Opacity, lo, hi)
	}
	for i := range out.Opacity {
		out.Opacity[i] *= r.alpha
	}
	out.Alpha = r.alpha
	out.Filter = r.filter

	if r.hook != nil {
		r.hook(out)
	}
	return out
}

// sample renders the volume into a new cache entry.
//
// Steps:
//  1. Resolve axis mapping and mirror flags for main -> target orientation
//  2. Decide the slices: the current one, or the selector's choice for grids
//  3. Sample (or reuse) each slice plane, normalised against the volume range
//  4. Tile the planes row-major into the composite, unused cells stay blank
func (r *Renderer) sample(key cacheKey) *renderCache {
	lay := r.layout()
	width := lay.cellW * r.gridW
	height := lay.cellH * r.gridH

	logs.WithTag("orientation", r.target.String()).
		WithTag("slice", r.slice).
		WithTag("timestep", r.timestep).
		WithTag("grid", fmt.Sprintf("%dx%d", r.gridW, r.gridH)).
		Debug("rendering volume")

	buf := Buffer{
		Width:   width,
		Height:  height,
		Values:  make([]float64, width*height),
		Opacity: make([]float64, width*height),
	}

	for k, s := range lay.slices {
		plane := r.plane(lay, s)
		ox := (k % r.gridW) * lay.cellW
		oy := (k / r.gridW) * lay.cellH

		for y := 0; y < lay.cellH; y++ {
			row := (oy+y)*width + ox
			copy(buf.Values[row:row+lay.cellW], plane[y*lay.cellW:(y+1)*lay.cellW])
			for x := 0; x < lay.cellW; x++ {
				buf.Opacity[row+x] = 1
			}
		}
	}

	return &renderCache{key: key, layout: lay, buffer: buf}
}

// plane returns the normalised samples of one slice in target orientation.
// The returned slice is shared with the plane cache and must not be modified.
func (r *Renderer) plane(lay layout, slice int) []float64 {
	pk := planeKey{generation: r.generation, target: r.target, slice: slice, timestep: r.timestep}
	if p, ok := r.planes.Get(pk); ok {
		return p
	}

	span := lay.max - lay.min
	p := make([]float64, lay.cellW*lay.cellH)
	for y := 0; y < lay.cellH; y++ {
		for x := 0; x < lay.cellW; x++ {
			c, row, s := lay.toNative(x, y, slice)
			v := r.vol.ValueAt(c, row, s, r.timestep)

			if span > 0 {
				p[y*lay.cellW+x] = min(max((v-lay.min)/span, 0), 1)
			}
		}
	}

	r.planes.Add(pk, p)
	return p
}

func (r *Renderer) key() cacheKey {
	return cacheKey{
		generation: r.generation,
		slice:      r.slice,
		timestep:   r.timestep,
		target:     r.target,
		gridW:      r.gridW,
		gridH:      r.gridH,
	}
}

func (r *Renderer) clampSlice(slice int) int {
	n := r.SliceCount()
	if n == 0 {
		return max(slice, 0)
	}
	return min(max(slice, 0), n-1)
}

func (r *Renderer) clampTimestep(timestep int) int {
	n := r.TimestepCount()
	if n == 0 {
		return max(timestep, 0)
	}
	return min(max(timestep, 0), n-1)
}

// Volume returns the bound volume, nil if there is none.
func (r *Renderer) Volume() volume.Accessor { return r.vol }

// MinMax returns the value range of the bound volume.
func (r *Renderer) MinMax() (float64, float64) {
	if r.vol == nil {
		return 0, 0
	}
	return r.vol.MinMax()
}

// Slice returns the current slice in target orientation.
func (r *Renderer) Slice() int { return r.slice }

// SliceCount returns the number of slices in target orientation.
func (r *Renderer) SliceCount() int {
	if r.vol == nil {
		return 0
	}
	return orientation.SliceDimensionSize(r.vol, r.target)
}

// Timestep returns the current timestep.
func (r *Renderer) Timestep() int { return r.timestep }

// TimestepCount returns the number of timesteps of the bound volume.
func (r *Renderer) TimestepCount() int {
	if r.vol == nil {
		return 0
	}
	return r.vol.Extents().Timesteps
}

// GridSize returns the grid columns and rows.
func (r *Renderer) GridSize() (width, height int) { return r.gridW, r.gridH }

// TargetOrientation returns the display orientation.
func (r *Renderer) TargetOrientation() orientation.Orientation { return r.target }

// Alpha returns the opacity applied to rendered pixels.
func (r *Renderer) Alpha() float64 { return r.alpha }

// Filter returns a copy of the colortable filter, nil if none is set.
func (r *Renderer) Filter() *Filter {
	if r.filter == nil {
		return nil
	}
	c := *r.filter
	return &c
}

// State returns whether the next Render reuses the cache.
func (r *Renderer) State() State { return r.state }

// RelevantSlices returns the slices shown in the grid, in cell order.
func (r *Renderer) RelevantSlices() []int {
	if r.vol == nil {
		return nil
	}
	return append([]int(nil), r.currentLayout().slices...)
}
