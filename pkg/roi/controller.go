package roi

import (
	"errors"
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/logs"

	"imagedataview/pkg/render"
	"imagedataview/pkg/volume"
	"imagedataview/pkg/voxel"
)

var (
	// ErrNoROI is returned by click handlers when no ROI is selected.
	ErrNoROI = errors.New("no ROI selected")
	// ErrUnknownROI is returned for labels the controller does not know.
	ErrUnknownROI = errors.New("unknown ROI")
	// ErrDuplicateROI is returned when adding a label twice.
	ErrDuplicateROI = errors.New("ROI already exists")
)

type entry struct {
	root *Selection
	// ref is the volume the ROI was last clicked on. It defines the shape of
	// the ROI's mask.
	ref  volume.Accessor
	mask *volume.Memory
}

// Controller manages named ROIs and turns clicks on a volume into
// selections of the current ROI. After every change the mask of the current
// ROI is rebuilt and bound to the selection renderer.
type Controller struct {
	renderer *render.Renderer

	labels  []string
	rois    map[string]*entry
	current string

	mode      Mode
	threshold float64
}

// NewController creates a controller that displays the current ROI mask with
// renderer. renderer may be nil.
func NewController(renderer *render.Renderer) *Controller {
	if renderer != nil {
		renderer.SetFilter(render.SelectionFilter())
	}
	return &Controller{
		renderer: renderer,
		rois:     make(map[string]*entry),
	}
}

// AddROI adds an empty ROI and makes it the current one.
func (c *Controller) AddROI(label string) error {
	if label == "" {
		return errors.New("empty ROI label")
	}
	if _, ok := c.rois[label]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateROI, label)
	}

	c.labels = append(c.labels, label)
	c.rois[label] = &entry{root: NewGroup(Add)}
	c.current = label
	c.show()
	return nil
}

// RemoveROI deletes a ROI with all its selections. Unknown labels are
// ignored. Removing the current ROI selects the most recently added
// remaining one.
func (c *Controller) RemoveROI(label string) {
	if _, ok := c.rois[label]; !ok {
		return
	}
	delete(c.rois, label)
	for i, l := range c.labels {
		if l == label {
			c.labels = append(c.labels[:i], c.labels[i+1:]...)
			break
		}
	}

	if c.current == label {
		c.current = ""
		if n := len(c.labels); n > 0 {
			c.current = c.labels[n-1]
		}
		c.show()
	}
}

// SelectROI makes label the current ROI.
func (c *Controller) SelectROI(label string) error {
	if _, ok := c.rois[label]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownROI, label)
	}
	c.current = label
	c.show()
	return nil
}

// ROIs returns the ROI labels in the order they were added.
func (c *Controller) ROIs() []string { return append([]string(nil), c.labels...) }

// Current returns the label of the current ROI, empty if there is none.
func (c *Controller) Current() string { return c.current }

// Root returns the selection tree of a ROI.
func (c *Controller) Root(label string) (*Selection, bool) {
	e, ok := c.rois[label]
	if !ok {
		return nil, false
	}
	return e.root, true
}

func (c *Controller) SetMode(m Mode)             { c.mode = m }
func (c *Controller) Mode() Mode                 { return c.mode }
func (c *Controller) SetThreshold(t float64)     { c.threshold = t }
func (c *Controller) Threshold() float64         { return c.threshold }
func (c *Controller) Renderer() *render.Renderer { return c.renderer }

// ClickOn adds a threshold selection seeded at p, using the controller's
// mode and threshold, to the current ROI. p is given in vol's native space.
func (c *Controller) ClickOn(vol volume.Accessor, p voxel.Coordinate) error {
	return c.add(vol, NewThreshold(vol, p, c.mode, c.threshold))
}

// ClickOnRange adds a range selection seeded at p to the current ROI.
func (c *Controller) ClickOnRange(vol volume.Accessor, p voxel.Coordinate, lower, upper float64) error {
	return c.add(vol, NewRange(vol, p, c.mode, lower, upper))
}

// AddPoints adds an explicit point set to the current ROI.
func (c *Controller) AddPoints(vol volume.Accessor, points []voxel.Coordinate) error {
	return c.add(vol, NewPointSet(c.mode, points))
}

// Undo removes the most recent selection of the current ROI. It reports
// whether there was anything to remove.
func (c *Controller) Undo() bool {
	e, ok := c.rois[c.current]
	if !ok {
		return false
	}
	children := e.root.Children()
	if len(children) == 0 {
		return false
	}
	e.root.RemoveChild(children[len(children)-1])
	c.rebuild(e)
	return true
}

func (c *Controller) add(vol volume.Accessor, s *Selection) error {
	e, ok := c.rois[c.current]
	if !ok {
		return ErrNoROI
	}
	if vol == nil {
		return errors.New("no volume to select on")
	}
	if err := e.root.AddChild(s); err != nil {
		return err
	}
	e.ref = vol

	logs.WithTag("roi", c.current).
		WithTag("kind", s.Kind().String()).
		WithTag("mode", s.Mode().String()).
		Debug("selection added")

	c.rebuild(e)
	return nil
}

// rebuild recomputes the mask of e and displays it if e is current.
func (c *Controller) rebuild(e *entry) {
	e.mask = nil
	if e.ref != nil {
		e.mask = e.root.AddToBinaryMask(volume.NewMask(e.ref))
	}
	if c.rois[c.current] == e {
		c.show()
	}
}

// show binds the mask of the current ROI to the selection renderer.
func (c *Controller) show() {
	if c.renderer == nil {
		return
	}
	if e, ok := c.rois[c.current]; ok && e.mask != nil {
		c.renderer.SetData(e.mask)
		return
	}
	c.renderer.SetData(nil)
}

// BinaryMask returns a new binary mask of a ROI, shaped like the volume the
// ROI was last clicked on. It returns false for unknown labels and for ROIs
// without any selection.
func (c *Controller) BinaryMask(label string) (*volume.Memory, bool) {
	e, ok := c.rois[label]
	if !ok || e.ref == nil {
		return nil, false
	}
	return e.root.AddToBinaryMask(volume.NewMask(e.ref)), true
}
