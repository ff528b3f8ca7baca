package ocr

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
)

// azureConfidence is reported for Azure reads; the printed text endpoint
// returns no per-word confidence.
const azureConfidence = 1.0

// printedTextRecognizer is the part of the Computer Vision client used here.
type printedTextRecognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// azure recognizes text with the Azure Computer Vision OCR API.
type azure struct {
	client printedTextRecognizer
}

func newAzure(settings *conf.OCRSettings) (*azure, error) {
	if settings.Azure.Endpoint == "" || settings.Azure.Key == "" {
		return nil, errors.Newf("azure OCR requires an endpoint and key").
			Component("ocr").
			Category(errors.CategoryConfiguration).
			Context("engine", conf.OCREngineAzure).
			Build()
	}

	client := computervision.New(settings.Azure.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(settings.Azure.Key)
	return &azure{client: client}, nil
}

func (a *azure) name() string { return conf.OCREngineAzure }

// recognize returns one fragment per recognized word.
func (a *azure) recognize(ctx context.Context, png []byte) ([]fragment, error) {
	result, err := a.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(png)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		return nil, errors.New(err).
			Component("ocr").
			Category(errors.CategoryNetwork).
			Context("engine", conf.OCREngineAzure).
			Build()
	}
	return azureFragments(result), nil
}

func (a *azure) close() error { return nil }

// azureFragments flattens regions, lines and words in reading order.
func azureFragments(result computervision.OcrResult) []fragment {
	if result.Regions == nil {
		return nil
	}

	var fragments []fragment
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			for _, word := range *line.Words {
				if word.Text == nil || strings.TrimSpace(*word.Text) == "" {
					continue
				}
				fragments = append(fragments, fragment{text: *word.Text, confidence: azureConfidence})
			}
		}
	}
	return fragments
}
