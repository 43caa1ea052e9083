package roi

import (
	"github.com/aukilabs/go-tooling/pkg/logs"

	"imagedataview/pkg/volume"
	"imagedataview/pkg/voxel"
)

// neighbours are the six face-adjacent offsets (column, row, slice).
var neighbours = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// floodFill returns the voxels 6-connected to seed, within the seed's
// timestep, whose value satisfies accept. The result is empty if the seed
// lies outside ref or does not satisfy accept itself.
func floodFill(ref volume.Accessor, seed voxel.Coordinate, accept func(float64) bool) []voxel.Coordinate {
	if ref == nil {
		return nil
	}
	ext := ref.Extents()
	if !seed.Within(ext) {
		return nil
	}
	t := seed.Timestep
	if !accept(ref.ValueAt(seed.Column, seed.Row, seed.Slice, t)) {
		return nil
	}

	index := func(c, r, s int) int {
		return (s*ext.Rows+r)*ext.Columns + c
	}
	visited := make([]bool, ext.Columns*ext.Rows*ext.Slices)
	visited[index(seed.Column, seed.Row, seed.Slice)] = true

	region := []voxel.Coordinate{seed}
	for head := 0; head < len(region); head++ {
		p := region[head]
		for _, n := range neighbours {
			c, r, s := p.Column+n[0], p.Row+n[1], p.Slice+n[2]
			if c < 0 || r < 0 || s < 0 || c >= ext.Columns || r >= ext.Rows || s >= ext.Slices {
				continue
			}
			i := index(c, r, s)
			if visited[i] {
				continue
			}
			visited[i] = true
			if accept(ref.ValueAt(c, r, s, t)) {
				region = append(region, voxel.New(c, r, s, t))
			}
		}
	}

	logs.WithTag("seed", seed.String()).
		WithTag("voxels", len(region)).
		Debug("flood fill done")
	return region
}
