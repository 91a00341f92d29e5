// Package viewer shows a calibrated sheet in a desktop window and lets the
// user pick the calibration marker with a click.
//
// The window closes on Escape or through the window manager. Every click
// that lands on a different marker recalibrates and prints the new result.
package viewer

import (
	"errors"
	"fmt"
	"image"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/ironsheep/sheet-calibration-mcp/internal/calibration"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
	"github.com/ironsheep/sheet-calibration-mcp/internal/pipeline"
	"github.com/ironsheep/sheet-calibration-mcp/internal/session"
)

// ErrNothingToShow is returned for runs that produced no markers.
var ErrNothingToShow = errors.New("run has no markers to show")

// Controller holds the selection state behind the window. It does not
// depend on a display and is driven by Click.
type Controller struct {
	pipeline *pipeline.Pipeline
	outcome  *pipeline.Outcome
	style    imaging.Style
	out      io.Writer

	state  session.Session
	result *calibration.Result
}

// NewController starts with the run's primary marker selected.
func NewController(p *pipeline.Pipeline, o *pipeline.Outcome, style imaging.Style, out io.Writer) (*Controller, error) {
	if o == nil || len(o.Markers) == 0 || o.SheetRaster == nil {
		return nil, ErrNothingToShow
	}
	return &Controller{
		pipeline: p,
		outcome:  o,
		style:    style,
		out:      out,
		state:    session.New(o.SheetRaster, o.Markers),
		result:   o.Calibration,
	}, nil
}

// Render draws the current selection.
func (c *Controller) Render() (*image.RGBA, error) {
	return c.state.Render(c.style)
}

// Selected returns the index of the selected marker.
func (c *Controller) Selected() int { return c.state.Selected }

// Result returns the calibration for the selected marker.
func (c *Controller) Result() *calibration.Result { return c.result }

// Click selects the marker under p, in sheet coordinates. When the
// selection changes the sheet is recalibrated and the report printed.
func (c *Controller) Click(p image.Point) (bool, error) {
	next, changed := session.HandleClick(c.state, p)
	if !changed {
		return false, nil
	}
	res, err := c.pipeline.RecalibrateWith(c.outcome, next.Selected)
	if err != nil {
		return false, err
	}
	c.state = next
	c.result = res

	fmt.Fprintf(c.out, "Selected marker %d at (%d, %d)\n", next.Selected, next.Markers[next.Selected].Center.X, next.Markers[next.Selected].Center.Y)
	return true, calibration.WriteReport(c.out, res)
}

// Show opens the window and blocks until it is closed.
func Show(title string, c *Controller) error {
	img, err := c.Render()
	if err != nil {
		return err
	}

	a := app.New()
	w := a.NewWindow(title)

	view := newSheetView(img)
	view.onTap = func(p image.Point) {
		changed, err := c.Click(p)
		if err != nil {
			fmt.Fprintf(c.out, "recalibration failed: %v\n", err)
			return
		}
		if !changed {
			return
		}
		if img, err := c.Render(); err == nil {
			view.setImage(img)
		}
	}

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			w.Close()
		}
	})
	w.SetContent(view)
	w.Resize(view.MinSize())
	w.ShowAndRun()
	return nil
}

// sheetView displays the annotated sheet and reports taps in image
// coordinates.
type sheetView struct {
	widget.BaseWidget
	image  *fynecanvas.Image
	bounds image.Rectangle
	onTap  func(image.Point)
}

func newSheetView(img image.Image) *sheetView {
	v := &sheetView{}
	v.image = fynecanvas.NewImageFromImage(img)
	v.image.FillMode = fynecanvas.ImageFillStretch
	v.image.SetMinSize(fyne.NewSize(float32(img.Bounds().Dx()), float32(img.Bounds().Dy())))
	v.bounds = img.Bounds()
	v.ExtendBaseWidget(v)
	return v
}

func (v *sheetView) setImage(img image.Image) {
	v.image.Image = img
	v.image.Refresh()
}

func (v *sheetView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.image)
}

// Tapped handles left-click events.
func (v *sheetView) Tapped(ev *fyne.PointEvent) {
	if v.onTap == nil {
		return
	}
	if p, ok := toImagePoint(ev.Position, v.Size(), v.bounds); ok {
		v.onTap(p)
	}
}

// toImagePoint maps a position inside a widget of the given size to the
// stretched image's pixel grid. Positions outside the widget are rejected.
func toImagePoint(pos fyne.Position, size fyne.Size, bounds image.Rectangle) (image.Point, bool) {
	if size.Width <= 0 || size.Height <= 0 ||
		pos.X < 0 || pos.Y < 0 || pos.X >= size.Width || pos.Y >= size.Height {
		return image.Point{}, false
	}
	x := int(pos.X * float32(bounds.Dx()) / size.Width)
	y := int(pos.Y * float32(bounds.Dy()) / size.Height)
	return image.Pt(bounds.Min.X+x, bounds.Min.Y+y), true
}
