package detector

import (
	"cmp"
	"image"
	"image/color"
	"slices"

	"github.com/disintegration/imaging"
)

// letterboxFill is the grey used by YOLO exports to pad the model input.
var letterboxFill = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox describes how a frame was scaled and padded into the model
// input, so boxes can be mapped back.
type letterbox struct {
	scale float64
	padX  int
	padY  int
}

// toModel resizes img to fit w×h without distortion, pads the remainder and
// returns the padded image with its letterbox parameters.
func toModel(img image.Image, w, h int) (*image.NRGBA, letterbox) {
	b := img.Bounds()
	scale := min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	nw := max(1, int(float64(b.Dx())*scale+0.5))
	nh := max(1, int(float64(b.Dy())*scale+0.5))

	resized := imaging.Resize(img, nw, nh, imaging.Linear)
	lb := letterbox{scale: scale, padX: (w - nw) / 2, padY: (h - nh) / 2}

	canvas := imaging.New(w, h, letterboxFill)
	return imaging.Paste(canvas, resized, image.Pt(lb.padX, lb.padY)), lb
}

// toFrame maps a box in model input pixels back to frame pixels.
func (lb letterbox) toFrame(x1, y1, x2, y2 float64, frame image.Rectangle) image.Rectangle {
	unmap := func(v float64, pad int) int {
		return int((v - float64(pad)) / lb.scale)
	}
	r := image.Rect(
		unmap(x1, lb.padX)+frame.Min.X, unmap(y1, lb.padY)+frame.Min.Y,
		unmap(x2, lb.padX)+frame.Min.X, unmap(y2, lb.padY)+frame.Min.Y,
	)
	return r.Intersect(frame)
}

// outputLayout describes a YOLO detection head of shape [1, 4+classes, N]
// (channels first, the default export) or [1, N, 4+classes].
type outputLayout struct {
	anchors       int
	channels      int
	channelsFirst bool
}

// newOutputLayout infers the layout from the tensor dimensions. The smaller
// of the two trailing dimensions holds the box and class channels.
func newOutputLayout(dims []int) (outputLayout, bool) {
	if len(dims) != 3 || dims[0] != 1 {
		return outputLayout{}, false
	}
	a, b := dims[1], dims[2]
	if min(a, b) < 5 {
		return outputLayout{}, false
	}
	if a < b {
		return outputLayout{anchors: b, channels: a, channelsFirst: true}, true
	}
	return outputLayout{anchors: a, channels: b}, true
}

func (l outputLayout) at(out []float32, anchor, channel int) float32 {
	if l.channelsFirst {
		return out[channel*l.anchors+anchor]
	}
	return out[anchor*l.channels+channel]
}

// candidate is a raw model box in input pixel coordinates.
type candidate struct {
	x1, y1, x2, y2 float64
	score          float32
	class          int
}

func (c candidate) area() float64 {
	return max(0, c.x2-c.x1) * max(0, c.y2-c.y1)
}

// decode extracts boxes scoring at or above threshold. Exports that emit
// normalized coordinates are scaled to the input size. An output shorter
// than the layout yields no boxes.
func decode(out []float32, layout outputLayout, inputW, inputH int, threshold float32) []candidate {
	if layout.anchors <= 0 || layout.channels < 5 || len(out) < layout.anchors*layout.channels {
		return nil
	}
	var cands []candidate
	normalized := true

	for i := range layout.anchors {
		best, class := float32(0), 0
		for c := 4; c < layout.channels; c++ {
			if s := layout.at(out, i, c); s > best {
				best, class = s, c-4
			}
		}
		if best < threshold {
			continue
		}

		cx, cy := float64(layout.at(out, i, 0)), float64(layout.at(out, i, 1))
		w, h := float64(layout.at(out, i, 2)), float64(layout.at(out, i, 3))
		if cx > 2 || cy > 2 || w > 2 || h > 2 {
			normalized = false
		}
		cands = append(cands, candidate{
			x1: cx - w/2, y1: cy - h/2, x2: cx + w/2, y2: cy + h/2,
			score: best, class: class,
		})
	}

	if normalized {
		sx, sy := float64(inputW), float64(inputH)
		for i := range cands {
			cands[i].x1 *= sx
			cands[i].x2 *= sx
			cands[i].y1 *= sy
			cands[i].y2 *= sy
		}
	}
	return cands
}

func iou(a, b candidate) float64 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)
	inter := max(0, ix2-ix1) * max(0, iy2-iy1)
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nms sorts candidates by descending score and drops any box overlapping a
// higher scoring box of the same class by more than threshold.
func nms(cands []candidate, threshold float64) []candidate {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})

	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k, c) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

// expand pads r by marginX of its width on each side and marginY of its
// height on top and bottom, then clamps it to bounds.
func expand(r image.Rectangle, marginX, marginY float64, bounds image.Rectangle) image.Rectangle {
	mx := int(float64(r.Dx()) * marginX)
	my := int(float64(r.Dy()) * marginY)
	return image.Rect(r.Min.X-mx, r.Min.Y-my, r.Max.X+mx, r.Max.Y+my).Intersect(bounds)
}
