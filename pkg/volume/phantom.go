package volume

import (
	"math"

	"imagedataview/pkg/orientation"
)

// NewPhantom creates an axial test volume: a bright sphere (1.0) with a
// dimmer inner core (0.5) on a zero background. Every timestep shifts the
// sphere one voxel along the column axis.
func NewPhantom(ext Extents) *Memory {
	vol := NewMemory(ext, orientation.Axial)
	ext = vol.ext

	radius := float64(min(ext.Columns, ext.Rows, ext.Slices)) / 3.0
	core := radius / 2.0
	cy := float64(ext.Rows-1) / 2.0
	cz := float64(ext.Slices-1) / 2.0

	for t := 0; t < ext.Timesteps; t++ {
		cx := float64(ext.Columns-1)/2.0 + float64(t)
		for s := 0; s < ext.Slices; s++ {
			for r := 0; r < ext.Rows; r++ {
				for c := 0; c < ext.Columns; c++ {
					dx := float64(c) - cx
					dy := float64(r) - cy
					dz := float64(s) - cz
					dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

					switch {
					case dist < core:
						vol.Data[vol.Index(c, r, s, t)] = 0.5
					case dist < radius:
						vol.Data[vol.Index(c, r, s, t)] = 1.0
					}
				}
			}
		}
	}
	return vol
}
