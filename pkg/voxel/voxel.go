// Package voxel provides the 4D voxel index used to address volumes.
package voxel

import (
	"fmt"

	"imagedataview/pkg/orientation"
)

// Coordinate is a 4D point (column, row, slice, timestep) relative to one
// orientation. Conversions return new values.
type Coordinate struct {
	Column   int
	Row      int
	Slice    int
	Timestep int
}

// New creates a coordinate.
func New(column, row, slice, timestep int) Coordinate {
	return Coordinate{Column: column, Row: row, Slice: slice, Timestep: timestep}
}

// Convert returns the coordinate expressed in orientation to, assuming v is
// currently expressed in from. The timestep is never touched.
func (v Coordinate) Convert(from, to orientation.Orientation) Coordinate {
	m := orientation.AxisMapping(from, to)
	x, y, s := m.Target(v.Column, v.Row, v.Slice)
	return Coordinate{Column: x, Row: y, Slice: s, Timestep: v.Timestep}
}

// ConvertInPlace converts v from one orientation to another, overwriting it.
func (v *Coordinate) ConvertInPlace(from, to orientation.Orientation) {
	*v = v.Convert(from, to)
}

// At returns the index along a spatial dimension.
func (v Coordinate) At(d orientation.Dimension) int {
	switch d {
	case orientation.Width:
		return v.Column
	case orientation.Height:
		return v.Row
	default:
		return v.Slice
	}
}

// Within reports whether v addresses a voxel inside ext.
func (v Coordinate) Within(ext orientation.Extents) bool {
	return v.Column >= 0 && v.Column < ext.Columns &&
		v.Row >= 0 && v.Row < ext.Rows &&
		v.Slice >= 0 && v.Slice < ext.Slices &&
		v.Timestep >= 0 && v.Timestep < ext.Timesteps
}

func (v Coordinate) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", v.Column, v.Row, v.Slice, v.Timestep)
}
