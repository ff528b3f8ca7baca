// Package display shows annotated frames in an OpenCV window.
package display

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/pipeline"
)

const (
	boxThickness   = 2
	textThickness  = 2
	plateFontScale = 0.8
	labelFontScale = 0.7
	waitDelayMs    = 1
)

// Window is a preview window. It must be used from the goroutine that
// created it.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window titled name.
func NewWindow(name string) *Window {
	return &Window{win: gocv.NewWindow(name)}
}

// Render draws ov on frame, shows it and polls the keyboard. quit is true
// once the user presses q or closes the window.
func (w *Window) Render(frame image.Image, ov pipeline.Overlay) (bool, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return false, errors.New(err).
			Component("display").
			Category(errors.CategoryImage).
			Build()
	}
	defer mat.Close()

	Draw(&mat, ov)

	w.win.IMShow(mat)
	key := w.win.WaitKey(waitDelayMs)
	if key&0xFF == 'q' {
		return true, nil
	}
	return !w.win.IsOpen(), nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Draw paints the plate box, the plate text and the owner label onto mat.
func Draw(mat *gocv.Mat, ov pipeline.Overlay) {
	if !ov.HasBox() {
		return
	}

	gocv.Rectangle(mat, ov.Box, pipeline.BoxColor, boxThickness)
	if ov.Plate != "" {
		gocv.PutText(mat, ov.Plate, ov.PlateAt, gocv.FontHersheySimplex,
			plateFontScale, pipeline.PlateColor, textThickness)
	}
	if ov.Label != "" {
		gocv.PutText(mat, ov.Label, ov.LabelAt, gocv.FontHersheySimplex,
			labelFontScale, labelColor(ov), textThickness)
	}
}

func labelColor(ov pipeline.Overlay) color.RGBA {
	if ov.Label == pipeline.LookupErrorLabel {
		return color.RGBA{R: 255, A: 255}
	}
	return pipeline.LabelColor
}

// Annotate draws ov on img and writes the result to path. The format
// follows the file extension.
func Annotate(img image.Image, ov pipeline.Overlay, path string) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.New(err).
			Component("display").
			Category(errors.CategoryImage).
			Build()
	}
	defer mat.Close()

	Draw(&mat, ov)

	if !gocv.IMWrite(path, mat) {
		return errors.Newf("failed to write annotated image").
			Component("display").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
