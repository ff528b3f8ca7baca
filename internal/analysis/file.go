package analysis

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/display"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/pipeline"
	"github.com/tphakala/platewatch/internal/search"
)

// FileAnalysis recognizes the plate in a single still image, prints the
// owner report and optionally writes an annotated copy of the image.
func FileAnalysis(settings *conf.Settings) error {
	img, err := loadImage(settings.Input.Path)
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer closeStore(store)

	rec, err := newRecognizer(settings, nil)
	if err != nil {
		return err
	}
	defer rec.Close()

	p, err := pipeline.New(settings, pipeline.Deps{
		Frames:   stillFrame{},
		Detector: rec.detector,
		Reader:   rec.reader,
		Lookup:   search.New(store, 0, nil),
	})
	if err != nil {
		return err
	}

	return analyzeImage(context.Background(), p, img, settings.Input.Annotate, os.Stdout)
}

// analyzeImage runs one recognition on img and reports it to w. A missing
// plate is reported, not returned as an error.
func analyzeImage(ctx context.Context, p *pipeline.Pipeline, img image.Image, annotate string, w io.Writer) error {
	result, ok, err := p.Recognize(ctx, img)
	if !ok {
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "No se detectó ninguna placa.")
		return nil
	}
	if err != nil {
		GetLogger().Warn("vehicle lookup failed",
			logger.String("plate", result.Plate),
			logger.Error(err))
	}

	pipeline.PrintReport(w, result)

	if annotate != "" {
		ov := pipeline.OverlayFor(result, img.Bounds())
		if err := display.Annotate(img, ov, annotate); err != nil {
			return err
		}
		GetLogger().Info("annotated image written", logger.String("path", annotate))
	}
	return err
}

// loadImage decodes path, honoring EXIF orientation.
func loadImage(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	if info.IsDir() {
		return nil, errors.Newf("%s is a directory, not an image", filepath.Base(path)).
			Component("analysis").
			Category(errors.CategoryValidation).
			FileContext(path, 0).
			Build()
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryImage).
			FileContext(path, info.Size()).
			Build()
	}
	return img, nil
}

// stillFrame satisfies the pipeline frame source for single image runs,
// which never read frames.
type stillFrame struct{}

func (stillFrame) Read(context.Context) (image.Image, error) {
	return nil, io.EOF
}
