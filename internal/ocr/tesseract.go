package ocr

import (
	"context"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
)

// tesseract recognizes text with a local Tesseract installation. The
// client is not safe for concurrent use and is guarded by mu.
type tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func newTesseract(settings *conf.OCRSettings) (*tesseract, error) {
	client := gosseract.NewClient()

	configure := func() error {
		if settings.Language != "" {
			if err := client.SetLanguage(settings.Language); err != nil {
				return err
			}
		}
		if settings.Allowlist != "" {
			if err := client.SetWhitelist(settings.Allowlist); err != nil {
				return err
			}
		}
		if settings.PageSegMode > 0 {
			if err := client.SetPageSegMode(gosseract.PageSegMode(settings.PageSegMode)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := configure(); err != nil {
		_ = client.Close()
		return nil, errors.New(err).
			Component("ocr").
			Category(errors.CategoryConfiguration).
			Context("engine", conf.OCREngineTesseract).
			Context("language", settings.Language).
			Build()
	}

	return &tesseract{client: client}, nil
}

func (t *tesseract) name() string { return conf.OCREngineTesseract }

// recognize returns one fragment per word with Tesseract's word confidence
// scaled to [0,1].
func (t *tesseract) recognize(ctx context.Context, png []byte) ([]fragment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.client.SetImageFromBytes(png); err != nil {
		return nil, err
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, err
	}

	fragments := make([]fragment, 0, len(boxes))
	for _, b := range boxes {
		fragments = append(fragments, fragment{text: b.Word, confidence: b.Confidence / 100})
	}
	return fragments, nil
}

func (t *tesseract) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
