// Package visualization composes rendered slices into images: a gray
// background volume, an optional colored overlay and the ROI selection on
// top, all kept on the same slice, timestep, orientation and grid.
package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/fogleman/gg"

	"imagedataview/pkg/colortable"
	"imagedataview/pkg/orientation"
	"imagedataview/pkg/render"
	"imagedataview/pkg/slicesel"
	"imagedataview/pkg/volume"
	"imagedataview/pkg/voxel"
)

// DefaultJPEGQuality is used when Config.JPEGQuality is not set.
const DefaultJPEGQuality = 90

// ErrNoVolume is returned when composing without a background volume.
var ErrNoVolume = errors.New("no background volume")

// Config contains viewer configuration.
type Config struct {
	// Selector picks the slices of grid layouts for every layer.
	Selector slicesel.Selector
	// PlaneCacheSize is passed on to every layer's renderer.
	PlaneCacheSize int
	// Labels draws the slice number into every grid cell.
	Labels bool
	// JPEGQuality is the quality of exported JPEG images (1-100).
	JPEGQuality int
	// Background is the colortable of the background layer.
	Background string
	// Overlay is the colortable used for overlays added without a filter.
	Overlay string
}

// Viewer keeps a background, overlay and selection renderer in sync and
// composes their output.
type Viewer struct {
	cfg Config

	background *render.Renderer
	selection  *render.Renderer

	overlays map[string]*render.Renderer
	order    []string
	// active is the shown overlay, empty when overlays are hidden.
	active string
}

// NewViewer creates a viewer without any volume.
func NewViewer(cfg Config) *Viewer {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Overlay == "" {
		cfg.Overlay = "hot"
	}

	v := &Viewer{
		cfg:      cfg,
		overlays: make(map[string]*render.Renderer),
	}
	v.background = v.newRenderer()
	v.selection = v.newRenderer()
	v.selection.SetFilter(render.SelectionFilter())
	return v
}

func (v *Viewer) newRenderer() *render.Renderer {
	return render.New(render.Config{Selector: v.cfg.Selector, PlaneCacheSize: v.cfg.PlaneCacheSize})
}

// Background returns the renderer of the background layer.
func (v *Viewer) Background() *render.Renderer { return v.background }

// Selection returns the renderer of the ROI selection layer. It is meant to
// be handed to a roi.Controller.
func (v *Viewer) Selection() *render.Renderer { return v.selection }

// SetData binds the background volume.
func (v *Viewer) SetData(vol volume.Accessor) {
	v.background.SetData(vol)
}

// AddOverlay adds an overlay volume under id and shows it. A nil filter
// colors the overlay with the configured overlay colortable.
func (v *Viewer) AddOverlay(id string, vol volume.Accessor, filter *render.Filter) error {
	if _, ok := v.overlays[id]; ok {
		return fmt.Errorf("overlay %q already exists", id)
	}

	r := v.newRenderer()
	r.SetTargetOrientation(v.background.TargetOrientation())
	r.SetGridSize(v.background.GridSize())
	r.SetDataAt(vol, v.background.Slice(), v.background.Timestep())
	if filter == nil {
		lo, hi := r.MinMax()
		filter = &render.Filter{Kind: render.SingleDomain, Min: lo, Max: hi, Colortable: v.cfg.Overlay}
	}
	r.SetFilter(filter)

	v.overlays[id] = r
	v.order = append(v.order, id)
	v.active = id
	return nil
}

// RemoveOverlay deletes an overlay. Unknown ids are ignored.
func (v *Viewer) RemoveOverlay(id string) {
	if _, ok := v.overlays[id]; !ok {
		return
	}
	delete(v.overlays, id)
	for i, o := range v.order {
		if o == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	if v.active == id {
		v.active = ""
	}
}

// ShowOverlay makes id the shown overlay.
func (v *Viewer) ShowOverlay(id string) error {
	if _, ok := v.overlays[id]; !ok {
		return fmt.Errorf("unknown overlay %q", id)
	}
	v.active = id
	return nil
}

// HideOverlay hides the shown overlay.
func (v *Viewer) HideOverlay() { v.active = "" }

// Overlays returns the overlay ids in the order they were added.
func (v *Viewer) Overlays() []string { return append([]string(nil), v.order...) }

// ActiveOverlay returns the id of the shown overlay, empty if none is shown.
func (v *Viewer) ActiveOverlay() string { return v.active }

// Overlay returns the renderer of an overlay.
func (v *Viewer) Overlay(id string) (*render.Renderer, bool) {
	r, ok := v.overlays[id]
	return r, ok
}

func (v *Viewer) each(fn func(r *render.Renderer)) {
	fn(v.background)
	for _, id := range v.order {
		fn(v.overlays[id])
	}
	fn(v.selection)
}

func (v *Viewer) SetSlice(slice int) {
	v.each(func(r *render.Renderer) { r.SetSlice(slice) })
}

func (v *Viewer) SetTimestep(timestep int) {
	v.each(func(r *render.Renderer) { r.SetTimestep(timestep) })
}

func (v *Viewer) SetTargetOrientation(o orientation.Orientation) {
	v.each(func(r *render.Renderer) { r.SetTargetOrientation(o) })
}

func (v *Viewer) SetGridSize(width, height int) {
	v.each(func(r *render.Renderer) { r.SetGridSize(width, height) })
}

// PointToVoxel resolves a point of the composed image to a background voxel.
func (v *Viewer) PointToVoxel(x, y float64) (voxel.Coordinate, error) {
	return v.background.PointToVoxel(x, y)
}

// Compose renders every visible layer and blends them: background, then the
// shown overlay, then the selection. Layers with a different size than the
// background are scaled to fit.
func (v *Viewer) Compose() (image.Image, error) {
	bg := v.background.Render(false)
	if bg.Empty() {
		return nil, ErrNoVolume
	}

	dc := gg.NewContext(bg.Width, bg.Height)
	dc.SetColor(color.Black)
	dc.Clear()

	dc.DrawImage(Colorize(bg, v.colormap(bg, v.cfg.Background)), 0, 0)

	if o, ok := v.overlays[v.active]; ok {
		v.drawLayer(dc, o.Render(false), bg, v.cfg.Overlay)
	}
	v.drawLayer(dc, v.selection.Render(false), bg, render.SelectionColortable)

	if v.cfg.Labels {
		v.drawLabels(dc)
	}
	return dc.Image(), nil
}

func (v *Viewer) drawLayer(dc *gg.Context, buf, bg render.Buffer, fallback string) {
	if buf.Empty() {
		return
	}
	img := Colorize(buf, v.colormap(buf, fallback))

	if buf.Width == bg.Width && buf.Height == bg.Height {
		dc.DrawImage(img, 0, 0)
		return
	}

	dc.Push()
	dc.Scale(float64(bg.Width)/float64(buf.Width), float64(bg.Height)/float64(buf.Height))
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

// drawLabels writes the slice number into the top left corner of every
// grid cell.
func (v *Viewer) drawLabels(dc *gg.Context) {
	gw, gh := v.background.GridSize()
	cellW := float64(dc.Width()) / float64(gw)
	cellH := float64(dc.Height()) / float64(gh)

	dc.SetColor(color.White)
	for k, s := range v.background.RelevantSlices() {
		x := float64(k%gw) * cellW
		y := float64(k/gw) * cellH
		dc.DrawStringAnchored(fmt.Sprintf("%d", s), x+2, y+2, 0, 1)
	}
}

func (v *Viewer) colormap(buf render.Buffer, fallback string) colortable.Colormap {
	name := fallback
	if buf.Filter != nil && buf.Filter.Colortable != "" {
		name = buf.Filter.Colortable
	}
	c, err := colortable.Lookup(name)
	if err != nil {
		logs.Warn(err)
		return colortable.Gray
	}
	return c
}

// Colorize maps a rendered buffer through a colortable. Opacity becomes the
// alpha channel.
func Colorize(buf render.Buffer, cmap colortable.Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	if cmap == nil {
		cmap = colortable.Gray
	}

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			value, opacity := buf.At(x, y)
			c := color.NRGBAModel.Convert(cmap.At(value)).(color.NRGBA)
			c.A = uint8(math.Round(min(max(opacity, 0), 1) * 255))
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// SaveJPEG composes the current view and saves it as a JPEG image.
func (v *Viewer) SaveJPEG(filename string) error {
	img, err := v.Compose()
	if err != nil {
		return err
	}
	return gg.SaveJPG(filename, img, v.cfg.JPEGQuality)
}

// SavePNG composes the current view and saves it as a PNG image.
func (v *Viewer) SavePNG(filename string) error {
	img, err := v.Compose()
	if err != nil {
		return err
	}
	return gg.SavePNG(filename, img)
}

// SaveSliceSequence saves every slice of the current orientation as a
// single-slice JPEG image. Slice and grid size are restored afterwards.
func (v *Viewer) SaveSliceSequence(outputDir string) error {
	if v.background.Volume() == nil {
		return ErrNoVolume
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	slice := v.background.Slice()
	gw, gh := v.background.GridSize()
	defer func() {
		v.SetGridSize(gw, gh)
		v.SetSlice(slice)
	}()
	v.SetGridSize(1, 1)

	n := v.background.SliceCount()
	for pos := 0; pos < n; pos++ {
		v.SetSlice(pos)
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%03d.jpg", pos))
		if err := v.SaveJPEG(filename); err != nil {
			return fmt.Errorf("failed to save slice %d: %w", pos, err)
		}
	}

	logs.WithTag("orientation", v.background.TargetOrientation().String()).
		WithTag("slices", n).
		WithTag("dir", outputDir).
		Info("slice sequence saved")
	return nil
}
