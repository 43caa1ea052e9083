// Package volume defines the read-only view of a 4D scalar volume consumed by
// the renderer and the ROI selections, plus an in-memory implementation that is
// also used for binary masks.
package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/voxel"
)

// Extents is the size of a volume in every dimension.
type Extents = orientation.Extents

// Accessor is read-only access to voxel values and volume metadata.
type Accessor interface {
	Extents() Extents
	ValueAt(column, row, slice, timestep int) float64
	// MinMax returns the cached value range over the whole volume.
	MinMax() (min, max float64)
	MainOrientation() orientation.Orientation
	RowVector() r3.Vec
	ColumnVector() r3.Vec
	VoxelSize() r3.Vec
	VoxelGap() r3.Vec
}

// Memory is a volume held in memory.
//
// Data is laid out as t*(C*R*S) + s*(C*R) + r*C + c.
type Memory struct {
	// Data holds every voxel value of every timestep. Writing to it directly
	// bypasses the cached range; call Invalidate afterwards.
	Data []float64

	ext    Extents
	orient orientation.Orientation

	// rowVec and colVec indicate flips of the x- and y-axis.
	rowVec r3.Vec
	colVec r3.Vec

	// voxelSize and voxelGap are the physical voxel dimensions in mm.
	voxelSize r3.Vec
	voxelGap  r3.Vec

	min, max   float64
	rangeValid bool
}

// NewMemory allocates a zero-filled volume. Extents smaller than 1 are raised
// to 1. Row and column vectors default to the unmirrored vectors of o and the
// voxel size to 1mm isotropic.
func NewMemory(ext Extents, o orientation.Orientation) *Memory {
	ext.Columns = max(ext.Columns, 1)
	ext.Rows = max(ext.Rows, 1)
	ext.Slices = max(ext.Slices, 1)
	ext.Timesteps = max(ext.Timesteps, 1)

	row, col := orientation.DefaultVectors(o)
	return &Memory{
		Data:      make([]float64, ext.Columns*ext.Rows*ext.Slices*ext.Timesteps),
		ext:       ext,
		orient:    o,
		rowVec:    row,
		colVec:    col,
		voxelSize: r3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// NewMask creates a zero-filled volume with the shape, orientation and
// geometry of like.
func NewMask(like Accessor) *Memory {
	m := NewMemory(like.Extents(), like.MainOrientation())
	m.rowVec = like.RowVector()
	m.colVec = like.ColumnVector()
	m.voxelSize = like.VoxelSize()
	m.voxelGap = like.VoxelGap()
	return m
}

func (m *Memory) Extents() Extents                         { return m.ext }
func (m *Memory) MainOrientation() orientation.Orientation { return m.orient }
func (m *Memory) RowVector() r3.Vec                        { return m.rowVec }
func (m *Memory) ColumnVector() r3.Vec                     { return m.colVec }
func (m *Memory) VoxelSize() r3.Vec                        { return m.voxelSize }
func (m *Memory) VoxelGap() r3.Vec                         { return m.voxelGap }

// SetVectors overrides the row and column direction vectors.
func (m *Memory) SetVectors(row, col r3.Vec) {
	m.rowVec = row
	m.colVec = col
}

// SetVoxelGeometry overrides voxel size and gap.
func (m *Memory) SetVoxelGeometry(size, gap r3.Vec) {
	m.voxelSize = size
	m.voxelGap = gap
}

// Index returns the position of a voxel in Data.
func (m *Memory) Index(column, row, slice, timestep int) int {
	plane := m.ext.Columns * m.ext.Rows
	return timestep*plane*m.ext.Slices + slice*plane + row*m.ext.Columns + column
}

// Contains reports whether the voxel lies inside the volume.
func (m *Memory) Contains(column, row, slice, timestep int) bool {
	return voxel.New(column, row, slice, timestep).Within(m.ext)
}

// ValueAt returns the value of a voxel. Voxels outside the volume read as 0.
func (m *Memory) ValueAt(column, row, slice, timestep int) float64 {
	if !m.Contains(column, row, slice, timestep) {
		return 0
	}
	return m.Data[m.Index(column, row, slice, timestep)]
}

// Set stores a voxel value. Voxels outside the volume are ignored.
func (m *Memory) Set(column, row, slice, timestep int, value float64) {
	if !m.Contains(column, row, slice, timestep) {
		return
	}
	m.Data[m.Index(column, row, slice, timestep)] = value
	m.rangeValid = false
}

// SetAt stores a voxel value addressed by a coordinate.
func (m *Memory) SetAt(v voxel.Coordinate, value float64) {
	m.Set(v.Column, v.Row, v.Slice, v.Timestep, value)
}

// Fill sets every voxel to value.
func (m *Memory) Fill(value float64) {
	for i := range m.Data {
		m.Data[i] = value
	}
	m.rangeValid = false
}

// Invalidate drops the cached value range after Data was modified directly.
func (m *Memory) Invalidate() {
	m.rangeValid = false
}

// MinMax returns the smallest and largest voxel value. The result is cached
// until the next write.
func (m *Memory) MinMax() (float64, float64) {
	if !m.rangeValid {
		m.min, m.max = floats.Min(m.Data), floats.Max(m.Data)
		m.rangeValid = true
	}
	return m.min, m.max
}

// Count returns the number of voxels equal to value.
func (m *Memory) Count(value float64) int {
	n := 0
	for _, v := range m.Data {
		if v == value {
			n++
		}
	}
	return n
}

func (m *Memory) String() string {
	return fmt.Sprintf("volume %dx%dx%dx%d (%s)", m.ext.Columns, m.ext.Rows, m.ext.Slices, m.ext.Timesteps, m.orient)
}
