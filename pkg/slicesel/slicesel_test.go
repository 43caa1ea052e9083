package slicesel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"imagedataview/pkg/orientation"
	"imagedataview/pkg/volume"
)

func requireContract(t *testing.T, got []int, n, size int) {
	t.Helper()
	require.Len(t, got, min(n, size))
	for i, s := range got {
		require.GreaterOrEqual(t, s, 0)
		require.Less(t, s, size)
		if i > 0 {
			require.Greater(t, s, got[i-1], "indices must be strictly ascending: %v", got)
		}
	}
}

func TestEvenlySpacedContract(t *testing.T) {
	vol := volume.NewMemory(volume.Extents{Columns: 64, Rows: 48, Slices: 30, Timesteps: 1}, orientation.Axial)
	for _, target := range orientation.All {
		size := orientation.SliceDimensionSize(vol, target)
		for n := 1; n <= 70; n++ {
			got := EvenlySpaced{}.Select(n, vol, target)
			requireContract(t, got, n, size)
			if n >= 2 {
				require.Equal(t, 0, got[0])
				require.Equal(t, size-1, got[len(got)-1])
			}
			require.Equal(t, got, EvenlySpaced{}.Select(n, vol, target), "selection must be deterministic")
		}
	}
}

func TestEvenlySpacedValues(t *testing.T) {
	vol := volume.NewMemory(volume.Extents{Columns: 4, Rows: 4, Slices: 30, Timesteps: 1}, orientation.Axial)
	require.Equal(t, []int{14}, EvenlySpaced{}.Select(1, vol, orientation.Axial))
	require.Equal(t, []int{0, 29}, EvenlySpaced{}.Select(2, vol, orientation.Axial))
	require.Equal(t, []int{0, 15, 29}, EvenlySpaced{}.Select(3, vol, orientation.Axial))
	require.Equal(t, []int{0, 1, 2, 3}, EvenlySpaced{}.Select(36, vol, orientation.Sagittal))
	require.Empty(t, EvenlySpaced{}.Select(0, vol, orientation.Axial))
	require.Empty(t, EvenlySpaced{}.Select(4, nil, orientation.Axial))
}

func TestContentSelectorSkipsBackground(t *testing.T) {
	vol := volume.NewMemory(volume.Extents{Columns: 8, Rows: 8, Slices: 20, Timesteps: 1}, orientation.Axial)
	// Structure only in slices 5..14
	for s := 5; s <= 14; s++ {
		for r := 2; r < 6; r++ {
			vol.Set(3, r, s, 0, 1)
		}
	}

	sel := Content{}
	got := sel.Select(4, vol, orientation.Axial)
	requireContract(t, got, 4, 20)
	require.Equal(t, 5, got[0])
	require.Equal(t, 14, got[len(got)-1])
	require.Equal(t, got, sel.Select(4, vol, orientation.Axial))
}

func TestContentSelectorFallsBack(t *testing.T) {
	vol := volume.NewMemory(volume.Extents{Columns: 8, Rows: 8, Slices: 20, Timesteps: 1}, orientation.Axial)
	vol.Set(3, 3, 10, 0, 1)
	vol.Set(3, 4, 10, 0, 1)

	// Only one slice has content, a 3-slice grid needs the full range
	got := Content{}.Select(3, vol, orientation.Axial)
	require.Equal(t, EvenlySpaced{}.Select(3, vol, orientation.Axial), got)

	// An empty volume behaves like EvenlySpaced as well
	empty := volume.NewMemory(volume.Extents{Columns: 4, Rows: 4, Slices: 9, Timesteps: 1}, orientation.Axial)
	require.Equal(t, EvenlySpaced{}.Select(5, empty, orientation.Axial), Content{}.Select(5, empty, orientation.Axial))
}

func TestContentSelectorOtherOrientation(t *testing.T) {
	vol := volume.NewPhantom(volume.Extents{Columns: 24, Rows: 24, Slices: 24, Timesteps: 1})
	got := Content{}.Select(6, vol, orientation.Coronal)
	requireContract(t, got, 6, 24)
	require.Greater(t, got[0], 0, "background slices at the border are skipped")
	require.Less(t, got[len(got)-1], 23)
}

func TestByName(t *testing.T) {
	sel, err := ByName("")
	require.NoError(t, err)
	require.IsType(t, EvenlySpaced{}, sel)

	sel, err = ByName("content")
	require.NoError(t, err)
	require.IsType(t, Content{}, sel)

	_, err = ByName("random")
	require.Error(t, err)
}
