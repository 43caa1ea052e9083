// Package roi builds regions of interest as trees of selections and folds
// them into binary masks.
//
// A Selection either adds its region to the mask or removes it. Children are
// applied before their parent, in insertion order, so later selections win
// over earlier ones where they overlap.
package roi

import (
	"errors"
	"fmt"

	"imagedataview/pkg/volume"
	"imagedataview/pkg/voxel"
)

// Mode tells whether a selection sets or clears mask voxels.
type Mode int

const (
	Add Mode = iota
	Remove
)

func (m Mode) String() string {
	if m == Remove {
		return "remove"
	}
	return "add"
}

// ParseMode converts "add" or "remove".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "add":
		return Add, nil
	case "remove":
		return Remove, nil
	}
	return Add, fmt.Errorf("invalid ROI mode: %s (must be add or remove)", s)
}

// Kind is the variant of a selection.
type Kind int

const (
	// Group contributes nothing itself and only combines its children.
	Group Kind = iota
	// Threshold flood fills voxels with value > threshold.
	Threshold
	// Range flood fills voxels with min <= value <= max.
	Range
	// PointSet selects an explicit list of voxels.
	PointSet
)

func (k Kind) String() string {
	switch k {
	case Group:
		return "group"
	case Threshold:
		return "threshold"
	case Range:
		return "range"
	case PointSet:
		return "pointset"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrCycle is returned when adding a child would make the tree cyclic.
var ErrCycle = errors.New("selection would become its own ancestor")

// Selection is a node of a ROI tree. A node owns its children; the parent
// link is informational only.
type Selection struct {
	kind Kind
	mode Mode

	parent   *Selection
	children []*Selection

	// Threshold and Range.
	ref  volume.Accessor
	seed voxel.Coordinate
	// lower is the threshold of a Threshold selection.
	lower float64
	upper float64

	// PointSet.
	points []voxel.Coordinate
}

// NewGroup creates an empty node that combines its children.
func NewGroup(mode Mode) *Selection {
	return &Selection{kind: Group, mode: mode}
}

// NewThreshold creates a selection of all voxels connected to seed whose
// value in ref exceeds threshold.
func NewThreshold(ref volume.Accessor, seed voxel.Coordinate, mode Mode, threshold float64) *Selection {
	return &Selection{kind: Threshold, mode: mode, ref: ref, seed: seed, lower: threshold}
}

// NewRange creates a selection of all voxels connected to seed whose value
// in ref lies within [lower, upper].
func NewRange(ref volume.Accessor, seed voxel.Coordinate, mode Mode, lower, upper float64) *Selection {
	return &Selection{kind: Range, mode: mode, ref: ref, seed: seed, lower: lower, upper: upper}
}

// NewPointSet creates a selection of exactly the given voxels.
func NewPointSet(mode Mode, points []voxel.Coordinate) *Selection {
	return &Selection{kind: PointSet, mode: mode, points: append([]voxel.Coordinate(nil), points...)}
}

func (s *Selection) Kind() Kind { return s.kind }
func (s *Selection) Mode() Mode { return s.mode }

// Parent returns the node s was added to, nil for a root.
func (s *Selection) Parent() *Selection { return s.parent }

// Children returns the children in insertion order.
func (s *Selection) Children() []*Selection {
	return append([]*Selection(nil), s.children...)
}

// Seed returns the flood fill seed of a Threshold or Range selection.
func (s *Selection) Seed() voxel.Coordinate { return s.seed }

// Bounds returns the value predicate bounds. For Threshold only lower is
// meaningful.
func (s *Selection) Bounds() (lower, upper float64) { return s.lower, s.upper }

// Points returns the voxels of a PointSet selection.
func (s *Selection) Points() []voxel.Coordinate {
	return append([]voxel.Coordinate(nil), s.points...)
}

// AddChild appends child to the children of s. A child that already belongs
// to another node is moved.
func (s *Selection) AddChild(child *Selection) error {
	if child == nil {
		return errors.New("nil selection")
	}
	for n := s; n != nil; n = n.parent {
		if n == child {
			return ErrCycle
		}
	}

	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = s
	s.children = append(s.children, child)
	return nil
}

// RemoveChild detaches child from s. Removing a node that is not a child of
// s does nothing.
func (s *Selection) RemoveChild(child *Selection) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Region returns the voxels contributed by s itself, without its children.
func (s *Selection) Region() []voxel.Coordinate {
	switch s.kind {
	case Threshold:
		t := s.lower
		return floodFill(s.ref, s.seed, func(v float64) bool { return v > t })
	case Range:
		lo, hi := s.lower, s.upper
		return floodFill(s.ref, s.seed, func(v float64) bool { return v >= lo && v <= hi })
	case PointSet:
		return append([]voxel.Coordinate(nil), s.points...)
	default:
		return nil
	}
}

// AddToBinaryMask draws the tree rooted at s onto mask and returns it.
// Children are applied first, in insertion order, then s itself. Add sets
// voxels to 1, Remove sets them to 0. Voxels outside mask are ignored.
func (s *Selection) AddToBinaryMask(mask *volume.Memory) *volume.Memory {
	for _, c := range s.children {
		c.AddToBinaryMask(mask)
	}

	value := 1.0
	if s.mode == Remove {
		value = 0
	}
	for _, v := range s.Region() {
		mask.SetAt(v, value)
	}
	return mask
}

// Count returns the number of nodes in the tree rooted at s.
func (s *Selection) Count() int {
	n := 1
	for _, c := range s.children {
		n += c.Count()
	}
	return n
}
