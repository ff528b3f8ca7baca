// Package ocr reads plate text from cropped plate images.
package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/observability/metrics"
)

// ErrNoText is wrapped by the error Read returns when the crop holds no
// usable characters.
var ErrNoText = errors.NewStd("no text recognized")

// Result is the recognized plate text and the engine's confidence in [0,1].
type Result struct {
	Text       string
	Confidence float64
}

// Reader recognizes plate text.
type Reader interface {
	Read(ctx context.Context, img image.Image) (Result, error)
	Name() string
	Close() error
}

// fragment is one piece of text reported by an engine, usually a word.
type fragment struct {
	text       string
	confidence float64
}

// engine is a text recognition backend. It receives a PNG encoded image.
type engine interface {
	name() string
	recognize(ctx context.Context, png []byte) ([]fragment, error)
	close() error
}

// reader applies preprocessing, cleanup and the confidence floor around an
// engine.
type reader struct {
	engine        engine
	preprocess    bool
	minConfidence float64
	allow         func(rune) bool
	metrics       *metrics.OCRMetrics
	log           logger.Logger
}

// New creates a Reader for settings.Engine. m may be nil.
func New(settings *conf.OCRSettings, m *metrics.OCRMetrics) (Reader, error) {
	var (
		e   engine
		err error
	)
	switch strings.ToLower(strings.TrimSpace(settings.Engine)) {
	case conf.OCREngineTesseract, "":
		e, err = newTesseract(settings)
	case conf.OCREngineAzure:
		e, err = newAzure(settings)
	default:
		err = errors.Newf("unknown OCR engine %q", settings.Engine).
			Component("ocr").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}
	return newReader(e, settings, m), nil
}

func newReader(e engine, settings *conf.OCRSettings, m *metrics.OCRMetrics) *reader {
	return &reader{
		engine:        e,
		preprocess:    settings.Preprocess,
		minConfidence: settings.MinConfidence,
		allow:         allowFunc(settings.Allowlist),
		metrics:       m,
		log:           logger.Global().Module("ocr"),
	}
}

// Name returns the engine name.
func (r *reader) Name() string { return r.engine.name() }

// Close releases the engine.
func (r *reader) Close() error { return r.engine.close() }

// Read recognizes the text in img. Fragments are joined, uppercased and
// reduced to allowed characters. An empty result, or one below the
// configured minimum confidence, fails with an error wrapping ErrNoText.
func (r *reader) Read(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return Result{}, r.noText("empty_image", 0)
	}

	src := img
	if r.preprocess {
		pre, err := Preprocess(img)
		if err != nil {
			return Result{}, err
		}
		src = pre
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return Result{}, errors.New(err).
			Component("ocr").
			Category(errors.CategoryImage).
			Context("operation", "encode_png").
			Build()
	}

	start := time.Now()
	fragments, err := r.engine.recognize(ctx, buf.Bytes())
	elapsed := time.Since(start)
	if err != nil {
		r.record(metrics.StatusError, elapsed)
		return Result{}, errors.New(err).
			Component("ocr").
			Category(errors.CategoryOCR).
			Context("engine", r.engine.name()).
			Timing("recognize", elapsed).
			Build()
	}

	result := r.combine(fragments)
	if result.Text == "" {
		r.record("empty", elapsed)
		return Result{}, r.noText("no_characters", 0)
	}
	if result.Confidence < r.minConfidence {
		r.record("empty", elapsed)
		return Result{}, r.noText("low_confidence", result.Confidence)
	}

	r.record("text", elapsed)
	r.log.Trace("plate text read",
		logger.String("engine", r.engine.name()),
		logger.String("text", result.Text),
		logger.Float64("confidence", result.Confidence),
		logger.Duration("duration", elapsed))
	return result, nil
}

// combine joins fragment texts and averages their confidences, weighted by
// the number of characters each contributes.
func (r *reader) combine(fragments []fragment) Result {
	var (
		b        strings.Builder
		weighted float64
		chars    int
	)
	for _, f := range fragments {
		cleaned := cleanText(f.text, r.allow)
		if cleaned == "" {
			continue
		}
		b.WriteString(cleaned)
		n := len(cleaned)
		weighted += f.confidence * float64(n)
		chars += n
	}
	if chars == 0 {
		return Result{}
	}
	return Result{Text: b.String(), Confidence: weighted / float64(chars)}
}

func (r *reader) record(status string, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordRead(r.engine.name(), status, elapsed.Seconds())
	}
}

func (r *reader) noText(reason string, confidence float64) error {
	return errors.New(ErrNoText).
		Component("ocr").
		Category(errors.CategoryOCR).
		Priority(errors.PriorityLow).
		Context("engine", r.engine.name()).
		Context("reason", reason).
		Context("confidence", confidence).
		Build()
}

// cleanText uppercases s and keeps the runes allow accepts.
func cleanText(s string, allow func(rune) bool) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if allow(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// allowFunc returns a predicate for the characters in allowlist. An empty
// allowlist accepts A-Z and 0-9.
func allowFunc(allowlist string) func(rune) bool {
	if allowlist == "" {
		allowlist = conf.DefaultAllowlist
	}
	set := make(map[rune]struct{}, len(allowlist))
	for _, r := range strings.ToUpper(allowlist) {
		set[r] = struct{}{}
	}
	return func(r rune) bool {
		_, ok := set[r]
		return ok
	}
}
