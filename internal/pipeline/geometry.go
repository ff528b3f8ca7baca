package pipeline

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// scaleForDetection resizes frame to width pixels wide, keeping the aspect
// ratio, and returns the resized copy with the applied scale factor.
func scaleForDetection(frame image.Image, width int) (image.Image, float64) {
	w := frame.Bounds().Dx()
	if w == 0 || w == width {
		return frame, 1
	}
	scale := float64(width) / float64(w)
	return imaging.Resize(frame, width, 0, imaging.Linear), scale
}

// mapToFrame converts a box found on the scaled copy back to frame
// coordinates and clamps it to the frame.
func mapToFrame(box image.Rectangle, scale float64, frame image.Rectangle) image.Rectangle {
	if scale <= 0 {
		return image.Rectangle{}
	}
	back := func(v int) int { return int(math.Round(float64(v) / scale)) }
	r := image.Rect(
		frame.Min.X+back(box.Min.X),
		frame.Min.Y+back(box.Min.Y),
		frame.Min.X+back(box.Max.X),
		frame.Min.Y+back(box.Max.Y),
	)
	return r.Intersect(frame)
}

// crop copies box out of frame.
func crop(frame image.Image, box image.Rectangle) image.Image {
	return imaging.Crop(frame, box)
}
