package pipeline

import (
	"image"
	"image/color"
)

// Labels drawn under the plate box.
const (
	NotFoundLabel    = "No encontrada en BD"
	LookupErrorLabel = "Error al consultar BD"
)

// Overlay colors, RGBA.
var (
	BoxColor   = color.RGBA{G: 255, A: 255}
	PlateColor = color.RGBA{G: 255, A: 255}
	LabelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Text offsets in pixels relative to the plate box.
const (
	plateTextOffset      = 10
	labelTextOffset      = 25
	labelTextAboveOffset = 10
)

// Overlay is what a Renderer draws on a frame. A zero Overlay draws nothing.
type Overlay struct {
	Box        image.Rectangle
	Plate      string
	PlateAt    image.Point
	Label      string
	LabelAt    image.Point
	Registered bool
}

// HasBox reports whether there is a plate box to draw.
func (o Overlay) HasBox() bool { return !o.Box.Empty() }

// layoutOverlay positions the plate text above box and the label below it.
// The label moves inside the box bottom when it would fall off the frame.
func layoutOverlay(box, frame image.Rectangle, plateText, label string, registered bool) Overlay {
	if box.Empty() {
		return Overlay{}
	}

	ov := Overlay{
		Box:        box,
		Plate:      plateText,
		Label:      label,
		Registered: registered,
	}

	ov.PlateAt = image.Pt(box.Min.X, max(box.Min.Y-plateTextOffset, frame.Min.Y))

	labelY := box.Max.Y + labelTextOffset
	if labelY >= frame.Max.Y {
		labelY = box.Max.Y - labelTextAboveOffset
	}
	ov.LabelAt = image.Pt(box.Min.X, labelY)

	return ov
}

// OverlayFor lays out the overlay for a single recognition, as drawn for
// still images.
func OverlayFor(rec *Recognition, frame image.Rectangle) Overlay {
	if rec == nil {
		return Overlay{}
	}
	label := NotFoundLabel
	switch {
	case rec.LookupErr != nil:
		label = LookupErrorLabel
	case rec.Registered && rec.Record != nil:
		label = rec.Record.OwnerName
	}
	return layoutOverlay(rec.Detection.Box, frame, rec.Plate, label, rec.Registered)
}
