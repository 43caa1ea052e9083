package render

// State tells whether the render cache can be reused.
type State int

const (
	// Dirty means the volume has to be sampled again.
	Dirty State = iota
	// Clean means the cached buffer matches the render parameters.
	Clean
)

func (s State) String() string {
	if s == Clean {
		return "clean"
	}
	return "dirty"
}

type event int

const (
	dataChanged event = iota
	sliceChanged
	timestepChanged
	gridChanged
	orientationChanged
	alphaChanged
	filterChanged
	rendered
)

// transition returns the state following s after e. Alpha and filter are
// applied on top of the cached buffer and never invalidate it.
func transition(s State, e event) State {
	switch e {
	case rendered:
		return Clean
	case alphaChanged, filterChanged:
		return s
	default:
		return Dirty
	}
}
