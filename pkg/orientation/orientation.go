// Package orientation maps a volume's main (storage) orientation onto a requested
// display orientation.
//
// All functions are pure and table driven: the axis permutation between two
// orientations is a fixed lookup, and mirroring is derived from the volume's
// row and column direction vectors.
package orientation

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation is one of the three anatomical viewing planes.
type Orientation int

const (
	Axial Orientation = iota
	Sagittal
	Coronal
)

// All lists every orientation in table order.
var All = []Orientation{Axial, Sagittal, Coronal}

func (o Orientation) String() string {
	switch o {
	case Axial:
		return "axial"
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// Parse converts a case-insensitive orientation name.
func Parse(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "axial", "a", "z":
		return Axial, nil
	case "sagittal", "s", "x":
		return Sagittal, nil
	case "coronal", "c", "y":
		return Coronal, nil
	}
	return Axial, fmt.Errorf("invalid orientation: %s (must be axial, sagittal or coronal)", s)
}

// Dimension names one of the native volume dimensions.
type Dimension int

const (
	Width Dimension = iota
	Height
	Slice
)

func (d Dimension) String() string {
	switch d {
	case Width:
		return "width"
	case Height:
		return "height"
	case Slice:
		return "slice"
	default:
		return fmt.Sprintf("dimension(%d)", int(d))
	}
}

// Extents holds the size of every native dimension of a volume.
type Extents struct {
	Columns   int
	Rows      int
	Slices    int
	Timesteps int
}

// Size returns the extent of a native spatial dimension.
func (e Extents) Size(d Dimension) int {
	switch d {
	case Width:
		return e.Columns
	case Height:
		return e.Rows
	default:
		return e.Slices
	}
}

// Mapping tells, for the x-, y- and slice-axis of the target image (in that
// order), which native dimension supplies it.
type Mapping [3]Dimension

// axisTable is indexed [main][target].
//
// A sagittal volume shown axially is (Slice, Width, Height): the native slice
// dimension runs along the display x-axis.
var axisTable = [3][3]Mapping{
	Axial: {
		Axial:    {Width, Height, Slice},
		Sagittal: {Height, Slice, Width},
		Coronal:  {Width, Slice, Height},
	},
	Sagittal: {
		Axial:    {Slice, Width, Height},
		Sagittal: {Width, Height, Slice},
		Coronal:  {Slice, Height, Width},
	},
	Coronal: {
		Axial:    {Width, Slice, Height},
		Sagittal: {Slice, Height, Width},
		Coronal:  {Width, Height, Slice},
	},
}

// mirrorTable holds the relevant (row vector, column vector) component index
// per main orientation.
var mirrorTable = [3][2]int{
	Axial:    {0, 1},
	Sagittal: {1, 2},
	Coronal:  {0, 2},
}

const (
	// RowFlipThreshold flips the image horizontally if the relevant row vector
	// component is below it.
	RowFlipThreshold = 0.0
	// ColumnFlipThreshold flips the image vertically if the relevant column
	// vector component is below it.
	ColumnFlipThreshold = 0.0
)

func init() {
	if err := validateTable(axisTable); err != nil {
		panic(err)
	}
}

// validateTable checks that every entry is a permutation of the native
// dimensions, that same-orientation entries are the identity and that
// converting back and forth is the identity.
func validateTable(table [3][3]Mapping) error {
	for _, main := range All {
		for _, target := range All {
			m := table[main][target]
			if !m.IsPermutation() {
				return fmt.Errorf("axis mapping %s->%s is not a permutation: %v", main, target, m)
			}
			if main == target && m != (Mapping{Width, Height, Slice}) {
				return fmt.Errorf("axis mapping %s->%s is not the identity: %v", main, target, m)
			}
			if m.Inverse() != table[target][main] {
				return fmt.Errorf("axis mappings %s<->%s are not inverse to each other", main, target)
			}
		}
	}
	return nil
}

func (o Orientation) valid() bool {
	return o >= Axial && o <= Coronal
}

// AxisMapping returns the native dimensions that supply the target image's
// x-, y- and slice-axis when a volume stored in main is displayed in target.
//
// Passing an unknown orientation is a programming error and panics.
func AxisMapping(main, target Orientation) Mapping {
	if !main.valid() || !target.valid() {
		panic(fmt.Sprintf("no axis mapping for %s->%s", main, target))
	}
	return axisTable[main][target]
}

// IsPermutation reports whether m names every native dimension exactly once.
func (m Mapping) IsPermutation() bool {
	var seen [3]bool
	for _, d := range m {
		if d < Width || d > Slice || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

// Inverse returns the mapping that undoes m.
func (m Mapping) Inverse() Mapping {
	var inv Mapping
	for axis, d := range m {
		inv[d] = Dimension(axis)
	}
	return inv
}

// Native converts a target (x, y, slice) triple into native (column, row, slice).
func (m Mapping) Native(x, y, s int) (column, row, slice int) {
	var native [3]int
	native[m[0]] = x
	native[m[1]] = y
	native[m[2]] = s
	return native[Width], native[Height], native[Slice]
}

// Target converts native (column, row, slice) into a target (x, y, slice) triple.
func (m Mapping) Target(column, row, slice int) (x, y, s int) {
	native := [3]int{column, row, slice}
	return native[m[0]], native[m[1]], native[m[2]]
}

// Sizes returns width, height and slice count of the target image space.
func (m Mapping) Sizes(ext Extents) (width, height, slices int) {
	return ext.Size(m[0]), ext.Size(m[1]), ext.Size(m[2])
}

// MirrorComponents returns the index of the row vector component and of the
// column vector component that decide mirroring for a main orientation.
func MirrorComponents(main Orientation) (row, col int) {
	if !main.valid() {
		panic(fmt.Sprintf("no mirror components for %s", main))
	}
	c := mirrorTable[main]
	return c[0], c[1]
}

// Flips tells which native axes are stored mirrored.
type Flips struct {
	X bool
	Y bool
	Z bool
}

// Flipped reports whether the native dimension d is mirrored.
func (f Flips) Flipped(d Dimension) bool {
	switch d {
	case Width:
		return f.X
	case Height:
		return f.Y
	default:
		return f.Z
	}
}

// MirrorFlags derives the mirror flags of a volume from its row and column
// vectors. A component equal to the threshold is not flipped.
//
// Z is set when the slice normal (row x column) points against the normal of
// the unmirrored default vectors of main.
func MirrorFlags(rowVec, colVec r3.Vec, main Orientation) Flips {
	ri, ci := MirrorComponents(main)
	defRow, defCol := DefaultVectors(main)
	normal := r3.Cross(rowVec, colVec)
	return Flips{
		X: component(rowVec, ri) < RowFlipThreshold,
		Y: component(colVec, ci) < ColumnFlipThreshold,
		Z: r3.Dot(normal, r3.Cross(defRow, defCol)) < 0,
	}
}

func component(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Sized is the part of a volume needed to compute slice counts.
type Sized interface {
	Extents() Extents
	MainOrientation() Orientation
}

// SliceDimensionSize returns the number of slices of v when viewed in target.
func SliceDimensionSize(v Sized, target Orientation) int {
	m := AxisMapping(v.MainOrientation(), target)
	return v.Extents().Size(m[2])
}

// DefaultVectors returns the row and column vectors of an unmirrored volume
// stored in o.
func DefaultVectors(o Orientation) (row, col r3.Vec) {
	switch o {
	case Sagittal:
		return r3.Vec{Y: 1}, r3.Vec{Z: 1}
	case Coronal:
		return r3.Vec{X: 1}, r3.Vec{Z: 1}
	default:
		return r3.Vec{X: 1}, r3.Vec{Y: 1}
	}
}
