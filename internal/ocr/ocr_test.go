package ocr

import (
	"context"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/observability/metrics"
)

// fakeEngine returns canned fragments and records the images it received.
type fakeEngine struct {
	fragments []fragment
	err       error
	calls     int
	lastPNG   []byte
}

func (f *fakeEngine) name() string { return "fake" }

func (f *fakeEngine) recognize(_ context.Context, png []byte) ([]fragment, error) {
	f.calls++
	f.lastPNG = png
	return f.fragments, f.err
}

func (f *fakeEngine) close() error { return nil }

func plateImage() image.Image {
	return imaging.New(120, 40, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
}

func TestReadJoinsAndCleansFragments(t *testing.T) {
	t.Parallel()

	e := &fakeEngine{fragments: []fragment{
		{text: "abc-", confidence: 0.9},
		{text: "12 3", confidence: 0.6},
		{text: "·", confidence: 0.1},
	}}
	r := newReader(e, &conf.OCRSettings{}, nil)

	got, err := r.Read(context.Background(), plateImage())
	require.NoError(t, err)
	assert.Equal(t, "ABC123", got.Text)
	assert.InDelta(t, 0.75, got.Confidence, 1e-9, "confidence is weighted by characters kept")
	assert.NotEmpty(t, e.lastPNG)
}

func TestReadEmptyResultIsNoText(t *testing.T) {
	t.Parallel()

	r := newReader(&fakeEngine{fragments: []fragment{{text: " -- ", confidence: 0.9}}}, &conf.OCRSettings{}, nil)

	_, err := r.Read(context.Background(), plateImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoText)

	_, err = r.Read(context.Background(), image.NewGray(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestReadRespectsMinConfidence(t *testing.T) {
	t.Parallel()

	e := &fakeEngine{fragments: []fragment{{text: "ABC123", confidence: 0.3}}}
	r := newReader(e, &conf.OCRSettings{MinConfidence: 0.4}, nil)

	_, err := r.Read(context.Background(), plateImage())
	assert.ErrorIs(t, err, ErrNoText)
}

func TestReadAllowlistRestrictsCharacters(t *testing.T) {
	t.Parallel()

	e := &fakeEngine{fragments: []fragment{{text: "AB12XY", confidence: 1}}}
	r := newReader(e, &conf.OCRSettings{Allowlist: "0123456789"}, nil)

	got, err := r.Read(context.Background(), plateImage())
	require.NoError(t, err)
	assert.Equal(t, "12", got.Text)
}

func TestReadEngineErrorAndMetrics(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewOCRMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	e := &fakeEngine{err: io.ErrUnexpectedEOF}
	r := newReader(e, &conf.OCRSettings{}, m)

	_, err = r.Read(context.Background(), plateImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, errors.IsCategory(err, errors.CategoryOCR))

	e.err = nil
	e.fragments = []fragment{{text: "XYZ1", confidence: 0.8}}
	_, err = r.Read(context.Background(), plateImage())
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ReadsTotal.WithLabelValues("fake", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReadsTotal.WithLabelValues("fake", "text")), 0)
}

func TestReadHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	e := &fakeEngine{fragments: []fragment{{text: "ABC", confidence: 1}}}
	r := newReader(e, &conf.OCRSettings{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Read(ctx, plateImage())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, e.calls)
}

func TestNewRejectsUnknownEngineAndMissingAzureCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(&conf.OCRSettings{Engine: "easyocr"}, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(&conf.OCRSettings{Engine: "azure"}, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestPreprocessBinarizesAndUpscales(t *testing.T) {
	t.Parallel()

	// Dark text block on a light plate.
	src := imaging.New(60, 20, color.NRGBA{R: 220, G: 220, B: 220, A: 255})
	dark := imaging.New(20, 10, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	src = imaging.Paste(src, dark, image.Pt(20, 5))

	img, err := Preprocess(src)
	require.NoError(t, err)
	out, ok := img.(*image.Gray)
	require.True(t, ok, "expected a single channel image, got %T", img)
	assert.Equal(t, image.Rect(0, 0, 120, 40), out.Bounds())

	for _, v := range out.Pix {
		require.True(t, v == 0 || v == 255, "pixel %d is not binary", v)
	}
	assert.Equal(t, uint8(255), out.GrayAt(4, 4).Y, "background is white")
	assert.Equal(t, uint8(0), out.GrayAt(60, 20).Y, "text is black")
}

func TestPreprocessRejectsEmptyImage(t *testing.T) {
	t.Parallel()

	_, err := Preprocess(image.NewRGBA(image.Rectangle{}))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImage))
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	allow := allowFunc("")
	assert.Equal(t, "ABC123", cleanText("a b-c.1|2_3", allow))
	assert.Empty(t, cleanText("  ", allow))
}

// fakeComputerVision returns a fixed OCR result.
type fakeComputerVision struct {
	result computervision.OcrResult
}

func (f fakeComputerVision) RecognizePrintedTextInStream(_ context.Context, _ bool, image io.ReadCloser, _ computervision.OcrLanguages) (computervision.OcrResult, error) {
	_, _ = io.Copy(io.Discard, image)
	return f.result, nil
}

func strPtr(s string) *string { return &s }

func TestAzureFlattensWords(t *testing.T) {
	t.Parallel()

	words := []computervision.OcrWord{{Text: strPtr("ABC")}, {Text: strPtr(" ")}, {Text: strPtr("123")}}
	lines := []computervision.OcrLine{{Words: &words}, {}}
	regions := []computervision.OcrRegion{{Lines: &lines}}

	a := &azure{client: fakeComputerVision{result: computervision.OcrResult{Regions: &regions}}}
	r := newReader(a, &conf.OCRSettings{}, nil)

	got, err := r.Read(context.Background(), plateImage())
	require.NoError(t, err)
	assert.Equal(t, "ABC123", got.Text)
	assert.InDelta(t, azureConfidence, got.Confidence, 1e-9)

	assert.Empty(t, azureFragments(computervision.OcrResult{}))
}
