package render

// FilterKind selects how many value domains a colortable filter maps.
type FilterKind int

const (
	SingleDomain FilterKind = iota
	TwoDomain
)

// SelectionColortable is the colortable name used for ROI masks.
const SelectionColortable = "selection"

// Filter describes the colortable mapping the compositor applies to a
// rendered buffer. Bounds are given in volume value units.
//
// Values inside [Min, Max] are rescaled to [0, 1] (single domain) or to
// [0, 0.5] and, for [Min2, Max2], to [0.5, 1] (two domains). Values outside
// every domain become transparent.
type Filter struct {
	Kind       FilterKind
	Min, Max   float64
	Min2, Max2 float64
	Colortable string
}

// SelectionFilter returns the filter that shows the set voxels of a binary
// mask and hides the rest.
func SelectionFilter() *Filter {
	return &Filter{Kind: SingleDomain, Min: 0.5, Max: 1, Colortable: SelectionColortable}
}

// apply windows normalised values in place. lo and hi are the volume range
// the values were normalised against.
func (f *Filter) apply(values, opacity []float64, lo, hi float64) {
	for i, v := range values {
		raw := lo + v*(hi-lo)

		switch {
		case inDomain(raw, f.Min, f.Max):
			values[i] = rescale(raw, f.Min, f.Max)
			if f.Kind == TwoDomain {
				values[i] *= 0.5
			}
		case f.Kind == TwoDomain && inDomain(raw, f.Min2, f.Max2):
			values[i] = 0.5 + 0.5*rescale(raw, f.Min2, f.Max2)
		default:
			values[i] = 0
			opacity[i] = 0
		}
	}
}

func inDomain(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func rescale(v, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}
