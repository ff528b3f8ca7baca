package ocr

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/tphakala/platewatch/internal/errors"
)

const upscaleFactor = 2

// blurKernel is the Gaussian kernel applied after upscaling.
var blurKernel = image.Pt(3, 3)

// Preprocess prepares a plate crop for recognition: grayscale, 2× upscale
// with cubic interpolation, a 3×3 Gaussian blur and Otsu binarization.
// The result is a single channel image holding only 0 and 255.
func Preprocess(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.Newf("cannot preprocess an empty image").
			Component("ocr").
			Category(errors.CategoryImage).
			Build()
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, preprocessError(err, "to_mat")
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(src, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, preprocessError(err, "grayscale")
	}

	up := gocv.NewMat()
	defer up.Close()
	size := image.Pt(b.Dx()*upscaleFactor, b.Dy()*upscaleFactor)
	if err := gocv.Resize(gray, &up, size, 0, 0, gocv.InterpolationCubic); err != nil {
		return nil, preprocessError(err, "resize")
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if err := gocv.GaussianBlur(up, &blurred, blurKernel, 0, 0, gocv.BorderDefault); err != nil {
		return nil, preprocessError(err, "blur")
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(blurred, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	out, err := binary.ToImage()
	if err != nil {
		return nil, preprocessError(err, "to_image")
	}
	return out, nil
}

func preprocessError(err error, step string) error {
	return errors.New(err).
		Component("ocr").
		Category(errors.CategoryImage).
		Context("operation", "preprocess").
		Context("step", step).
		Build()
}
