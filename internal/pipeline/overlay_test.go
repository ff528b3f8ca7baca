package pipeline

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/platewatch/internal/datastore"
)

func TestLayoutOverlay(t *testing.T) {
	frame := image.Rect(0, 0, 640, 480)

	tests := []struct {
		name    string
		box     image.Rectangle
		plateAt image.Point
		labelAt image.Point
	}{
		{"middle of frame", image.Rect(100, 200, 300, 260), image.Pt(100, 190), image.Pt(100, 285)},
		{"touching top", image.Rect(50, 4, 200, 60), image.Pt(50, 0), image.Pt(50, 85)},
		{"near bottom", image.Rect(100, 400, 300, 460), image.Pt(100, 390), image.Pt(100, 450)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov := layoutOverlay(tt.box, frame, "ABC123", NotFoundLabel, false)
			assert.True(t, ov.HasBox())
			assert.Equal(t, tt.plateAt, ov.PlateAt)
			assert.Equal(t, tt.labelAt, ov.LabelAt)
			assert.Equal(t, "ABC123", ov.Plate)
			assert.Equal(t, NotFoundLabel, ov.Label)
		})
	}
}

func TestLayoutOverlayWithoutBox(t *testing.T) {
	ov := layoutOverlay(image.Rectangle{}, image.Rect(0, 0, 640, 480), "ABC123", "Ana", true)
	assert.False(t, ov.HasBox())
	assert.Equal(t, Overlay{}, ov)
}

func TestMapToFrame(t *testing.T) {
	frame := image.Rect(0, 0, 1920, 1080)

	assert.Equal(t, image.Rect(300, 150, 600, 300),
		mapToFrame(image.Rect(100, 50, 200, 100), 1.0/3.0, frame))

	// Boxes padded past the scaled image edge are clamped to the frame.
	assert.Equal(t, image.Rect(1800, 900, 1920, 1080),
		mapToFrame(image.Rect(600, 300, 700, 400), 1.0/3.0, frame))

	assert.True(t, mapToFrame(image.Rect(10, 10, 20, 20), 0, frame).Empty())
}

func TestScaleForDetection(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))

	small, scale := scaleForDetection(img, 640)
	assert.InDelta(t, 0.5, scale, 1e-9)
	assert.Equal(t, 640, small.Bounds().Dx())
	assert.Equal(t, 360, small.Bounds().Dy())

	same, scale := scaleForDetection(img, 1280)
	assert.InDelta(t, 1.0, scale, 1e-9)
	assert.Same(t, img, same)
}

func TestOverlayFor(t *testing.T) {
	frame := image.Rect(0, 0, 640, 480)
	rec := &Recognition{Plate: "ABC123"}
	rec.Detection.Box = image.Rect(10, 100, 110, 140)

	assert.Equal(t, NotFoundLabel, OverlayFor(rec, frame).Label)

	rec.Registered = true
	rec.Record = &datastore.VehicleRecord{OwnerName: "Ana"}
	ov := OverlayFor(rec, frame)
	assert.Equal(t, "Ana", ov.Label)
	assert.True(t, ov.Registered)

	assert.False(t, OverlayFor(nil, frame).HasBox())
}
