package roi

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/render"
	"imagedataview/pkg/volume"
	"imagedataview/pkg/voxel"
)

// plusVolume is a 3x3 plane with the centre and its four face neighbours at
// 0.5 and the corners at 0.
func plusVolume() *volume.Memory {
	vol := volume.NewMemory(volume.Extents{Columns: 3, Rows: 3, Slices: 1, Timesteps: 1}, orientation.Axial)
	for _, p := range [][2]int{{1, 1}, {0, 1}, {2, 1}, {1, 0}, {1, 2}} {
		vol.Set(p[0], p[1], 0, 0, 0.5)
	}
	return vol
}

// rampVolume holds value c in column c.
func rampVolume(ext volume.Extents) *volume.Memory {
	vol := volume.NewMemory(ext, orientation.Axial)
	for t := 0; t < ext.Timesteps; t++ {
		for s := 0; s < ext.Slices; s++ {
			for r := 0; r < ext.Rows; r++ {
				for c := 0; c < ext.Columns; c++ {
					vol.Set(c, r, s, t, float64(c))
				}
			}
		}
	}
	return vol
}

func sorted(region []voxel.Coordinate) []voxel.Coordinate {
	out := append([]voxel.Coordinate(nil), region...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Slice != b.Slice {
			return a.Slice < b.Slice
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
	return out
}

func TestThresholdSelectsPlusShape(t *testing.T) {
	vol := plusVolume()
	sel := NewThreshold(vol, voxel.New(1, 1, 0, 0), Add, 0.2)

	require.Equal(t, []voxel.Coordinate{
		voxel.New(1, 0, 0, 0),
		voxel.New(0, 1, 0, 0),
		voxel.New(1, 1, 0, 0),
		voxel.New(2, 1, 0, 0),
		voxel.New(1, 2, 0, 0),
	}, sorted(sel.Region()))

	mask := sel.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, 5, mask.Count(1))
	for _, corner := range [][2]int{{0, 0}, {2, 0}, {0, 2}, {2, 2}} {
		require.Zero(t, mask.ValueAt(corner[0], corner[1], 0, 0))
	}
}

func TestThresholdIsStrict(t *testing.T) {
	vol := plusVolume()
	require.Empty(t, NewThreshold(vol, voxel.New(1, 1, 0, 0), Add, 0.5).Region())
}

func TestSeedFailingPredicateSelectsNothing(t *testing.T) {
	vol := plusVolume()
	require.Empty(t, NewThreshold(vol, voxel.New(0, 0, 0, 0), Add, 0.2).Region())
	require.Empty(t, NewThreshold(vol, voxel.New(9, 0, 0, 0), Add, 0.2).Region())
	require.Empty(t, NewThreshold(nil, voxel.New(1, 1, 0, 0), Add, 0.2).Region())

	mask := volume.NewMask(vol)
	NewThreshold(vol, voxel.New(0, 0, 0, 0), Remove, 0.2).AddToBinaryMask(mask)
	require.Zero(t, mask.Count(1))
}

func TestFloodFillStaysInSeedTimestep(t *testing.T) {
	vol := volume.NewMemory(volume.Extents{Columns: 4, Rows: 4, Slices: 4, Timesteps: 2}, orientation.Axial)
	vol.Fill(1)

	region := NewThreshold(vol, voxel.New(0, 0, 0, 1), Add, 0.5).Region()
	require.Len(t, region, 64)
	for _, v := range region {
		require.Equal(t, 1, v.Timestep)
	}
}

func TestFloodFillIsSixConnected(t *testing.T) {
	// Two voxels touching only along an edge are not connected.
	vol := volume.NewMemory(volume.Extents{Columns: 2, Rows: 2, Slices: 2, Timesteps: 1}, orientation.Axial)
	vol.Set(0, 0, 0, 0, 1)
	vol.Set(1, 1, 0, 0, 1)
	vol.Set(0, 0, 1, 0, 1)

	require.Equal(t, []voxel.Coordinate{
		voxel.New(0, 0, 0, 0),
		voxel.New(0, 0, 1, 0),
	}, sorted(NewThreshold(vol, voxel.New(0, 0, 0, 0), Add, 0.5).Region()))
}

func TestThresholdMonotonic(t *testing.T) {
	vol := volume.NewPhantom(volume.Extents{Columns: 17, Rows: 17, Slices: 17, Timesteps: 1})
	seed := voxel.New(8, 8, 8, 0)

	prev := -1
	for _, th := range []float64{0.9, 0.6, 0.4, 0.1, 0} {
		mask := NewThreshold(vol, seed, Add, th).AddToBinaryMask(volume.NewMask(vol))
		n := mask.Count(1)
		require.GreaterOrEqual(t, n, prev, "threshold %v", th)
		prev = n
	}
}

func TestRangeMonotonic(t *testing.T) {
	vol := rampVolume(volume.Extents{Columns: 10, Rows: 3, Slices: 2, Timesteps: 1})
	seed := voxel.New(5, 1, 0, 0)

	prev := -1
	for _, b := range [][2]float64{{5, 5}, {4, 6}, {4, 8}, {2, 8}, {0, 9}, {-1, 20}} {
		mask := NewRange(vol, seed, Add, b[0], b[1]).AddToBinaryMask(volume.NewMask(vol))
		n := mask.Count(1)
		require.GreaterOrEqual(t, n, prev, "range %v", b)
		prev = n
	}
	require.Equal(t, 60, prev)
}

func TestRangeSelection(t *testing.T) {
	vol := rampVolume(volume.Extents{Columns: 8, Rows: 2, Slices: 1, Timesteps: 1})
	sel := NewRange(vol, voxel.New(3, 0, 0, 0), Add, 2, 5)
	require.Equal(t, Range, sel.Kind())

	lower, upper := sel.Bounds()
	require.Equal(t, 2.0, lower)
	require.Equal(t, 5.0, upper)

	mask := sel.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, 8, mask.Count(1))
	for c := 0; c < 8; c++ {
		want := 0.0
		if c >= 2 && c <= 5 {
			want = 1
		}
		require.Equal(t, want, mask.ValueAt(c, 1, 0, 0), "column %d", c)
	}

	// Bounds are inclusive on both ends.
	require.Len(t, NewRange(vol, voxel.New(2, 0, 0, 0), Add, 2, 2).Region(), 2)
}

func TestPointSetSelection(t *testing.T) {
	vol := plusVolume()
	points := []voxel.Coordinate{voxel.New(0, 0, 0, 0), voxel.New(2, 2, 0, 0), voxel.New(7, 7, 0, 0)}
	sel := NewPointSet(Add, points)
	points[0] = voxel.New(1, 1, 0, 0)

	mask := sel.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, 2, mask.Count(1))
	require.Equal(t, 1.0, mask.ValueAt(0, 0, 0, 0))
	require.Equal(t, 1.0, mask.ValueAt(2, 2, 0, 0))
}

func TestMaskAlgebra(t *testing.T) {
	vol := rampVolume(volume.Extents{Columns: 10, Rows: 1, Slices: 1, Timesteps: 1})
	a := func(mode Mode) *Selection { return NewRange(vol, voxel.New(1, 0, 0, 0), mode, 0, 5) }
	b := func(mode Mode) *Selection { return NewRange(vol, voxel.New(8, 0, 0, 0), mode, 4, 9) }

	// Add A then remove B leaves A minus B.
	root := NewGroup(Add)
	require.NoError(t, root.AddChild(a(Add)))
	require.NoError(t, root.AddChild(b(Remove)))
	mask := root.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, []float64{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}, mask.Data)

	// Remove B then add A leaves A.
	root = NewGroup(Add)
	require.NoError(t, root.AddChild(b(Remove)))
	require.NoError(t, root.AddChild(a(Add)))
	mask = root.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, []float64{1, 1, 1, 1, 1, 1, 0, 0, 0, 0}, mask.Data)

	// Add A then remove A restores every voxel.
	root = NewGroup(Add)
	require.NoError(t, root.AddChild(a(Add)))
	require.NoError(t, root.AddChild(a(Remove)))
	mask = root.AddToBinaryMask(volume.NewMask(vol))
	require.Zero(t, mask.Count(1))
	require.Equal(t, make([]float64, 10), mask.Data)

	// Remove alone leaves a fresh mask untouched.
	mask = b(Remove).AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, make([]float64, 10), mask.Data)

	// Union of siblings.
	root = NewGroup(Add)
	require.NoError(t, root.AddChild(a(Add)))
	require.NoError(t, root.AddChild(b(Add)))
	mask = root.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, 10, mask.Count(1))
}

func TestChildrenBeforeParent(t *testing.T) {
	vol := plusVolume()
	parent := NewPointSet(Remove, []voxel.Coordinate{voxel.New(1, 1, 0, 0)})
	require.NoError(t, parent.AddChild(NewThreshold(vol, voxel.New(1, 1, 0, 0), Add, 0.2)))

	mask := parent.AddToBinaryMask(volume.NewMask(vol))
	require.Equal(t, 4, mask.Count(1))
	require.Zero(t, mask.ValueAt(1, 1, 0, 0))
}

func TestAddToBinaryMaskReturnsSameMask(t *testing.T) {
	vol := plusVolume()
	mask := volume.NewMask(vol)
	mask.Set(0, 0, 0, 0, 1)

	got := NewGroup(Add).AddToBinaryMask(mask)
	require.Same(t, mask, got)
	require.Equal(t, 1, got.Count(1))
}

func TestTreeMutation(t *testing.T) {
	root := NewGroup(Add)
	a := NewGroup(Add)
	b := NewGroup(Remove)
	c := NewPointSet(Add, nil)

	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))
	require.NoError(t, a.AddChild(c))
	require.Same(t, root, a.Parent())
	require.Equal(t, []*Selection{a, b}, root.Children())
	require.Equal(t, 4, root.Count())

	// Removing a node that is not a child is a no-op.
	root.RemoveChild(c)
	require.Equal(t, []*Selection{a, b}, root.Children())
	require.Same(t, a, c.Parent())

	// Moving c to b detaches it from a.
	require.NoError(t, b.AddChild(c))
	require.Empty(t, a.Children())
	require.Same(t, b, c.Parent())

	require.ErrorIs(t, c.AddChild(root), ErrCycle)
	require.ErrorIs(t, root.AddChild(root), ErrCycle)
	require.Error(t, root.AddChild(nil))

	root.RemoveChild(a)
	require.Nil(t, a.Parent())
	require.Equal(t, []*Selection{b}, root.Children())

	// The returned children are a copy.
	children := root.Children()
	children[0] = nil
	require.Equal(t, []*Selection{b}, root.Children())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("remove")
	require.NoError(t, err)
	require.Equal(t, Remove, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	require.Equal(t, Add, m)

	_, err = ParseMode("xor")
	require.Error(t, err)
}

func TestControllerClicks(t *testing.T) {
	vol := plusVolume()
	sr := render.New(render.Config{})
	c := NewController(sr)
	require.Equal(t, render.SelectionColortable, sr.Filter().Colortable)

	require.ErrorIs(t, c.ClickOn(vol, voxel.New(1, 1, 0, 0)), ErrNoROI)

	require.NoError(t, c.AddROI("lesion"))
	require.ErrorIs(t, c.AddROI("lesion"), ErrDuplicateROI)
	require.Equal(t, "lesion", c.Current())

	c.SetThreshold(0.2)
	require.NoError(t, c.ClickOn(vol, voxel.New(1, 1, 0, 0)))
	shown, ok := sr.Volume().(*volume.Memory)
	require.True(t, ok)
	require.Equal(t, 5, shown.Count(1))

	c.SetMode(Remove)
	require.NoError(t, c.AddPoints(vol, []voxel.Coordinate{voxel.New(1, 0, 0, 0)}))
	mask, ok := c.BinaryMask("lesion")
	require.True(t, ok)
	require.Equal(t, 4, mask.Count(1))

	require.True(t, c.Undo())
	mask, _ = c.BinaryMask("lesion")
	require.Equal(t, 5, mask.Count(1))

	c.SetMode(Add)
	require.NoError(t, c.ClickOnRange(vol, voxel.New(0, 0, 0, 0), 0, 0))
	mask, _ = c.BinaryMask("lesion")
	require.Equal(t, 6, mask.Count(1), "the corner has no face neighbour inside the range")
}

func TestControllerROIs(t *testing.T) {
	vol := plusVolume()
	sr := render.New(render.Config{})
	c := NewController(sr)

	require.NoError(t, c.AddROI("a"))
	c.SetThreshold(0.2)
	require.NoError(t, c.ClickOn(vol, voxel.New(1, 1, 0, 0)))
	require.NoError(t, c.AddROI("b"))
	require.Nil(t, sr.Volume(), "an empty ROI has no mask to show")

	_, ok := c.BinaryMask("b")
	require.False(t, ok)
	_, ok = c.BinaryMask("missing")
	require.False(t, ok)

	require.ErrorIs(t, c.SelectROI("missing"), ErrUnknownROI)
	require.NoError(t, c.SelectROI("a"))
	require.NotNil(t, sr.Volume())

	c.RemoveROI("missing")
	require.Equal(t, []string{"a", "b"}, c.ROIs())

	c.RemoveROI("a")
	require.Equal(t, []string{"b"}, c.ROIs())
	require.Equal(t, "b", c.Current())
	require.Nil(t, sr.Volume())

	c.RemoveROI("b")
	require.Empty(t, c.Current())
	require.False(t, c.Undo())
}
