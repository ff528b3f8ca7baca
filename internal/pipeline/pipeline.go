// Package pipeline runs the capture loop: read a frame, detect the plate on
// a downscaled copy every few frames, read its text, look the plate up and
// render the result.
package pipeline

import (
	"context"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/detector"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/mqtt"
	"github.com/tphakala/platewatch/internal/observability/metrics"
	"github.com/tphakala/platewatch/internal/ocr"
	"github.com/tphakala/platewatch/internal/plate"
)

const (
	defaultFrameSkip   = 10
	defaultDetectWidth = 640
	publishTimeout     = 5 * time.Second
	logInterval        = 5 * time.Second

	// maxCaptureFailures consecutive read errors end the loop.
	maxCaptureFailures = 5
)

// FrameSource yields frames until it returns an error. ErrEndOfStream ends
// the loop without error.
type FrameSource interface {
	Read(ctx context.Context) (image.Image, error)
}

// PlateDetector finds the most likely plate region in an image.
type PlateDetector interface {
	Best(img image.Image) (detector.Detection, bool, error)
}

// TextReader reads the plate text from a cropped region.
type TextReader interface {
	Read(ctx context.Context, img image.Image) (ocr.Result, error)
}

// VehicleLookup resolves a plate to its registered vehicle and owner.
type VehicleLookup interface {
	Lookup(ctx context.Context, plate string) (*datastore.VehicleRecord, error)
}

// Publisher receives an event for every new plate. The MQTT publisher and
// the push notifier implement it.
type Publisher interface {
	PublishPlate(ctx context.Context, ev mqtt.PlateEvent) error
}

// Renderer draws an overlay on a frame. quit is true when the user asked
// to stop.
type Renderer interface {
	Render(frame image.Image, ov Overlay) (quit bool, err error)
}

// Deps are the components the pipeline drives. Publishers, Renderer and
// Metrics are optional.
type Deps struct {
	Frames     FrameSource
	Detector   PlateDetector
	Reader     TextReader
	Lookup     VehicleLookup
	Publishers []Publisher
	Renderer   Renderer
	Metrics    *metrics.PipelineMetrics

	// Console receives the owner report for each new plate, os.Stdout when nil.
	Console io.Writer

	// EndOfStream is the error Frames returns once exhausted.
	EndOfStream error

	// SourceLost is the error Frames returns once it can no longer deliver
	// frames. Run returns it.
	SourceLost error
}

// Recognition is the outcome of one detect, read and lookup cycle.
type Recognition struct {
	Plate      string
	OCR        ocr.Result
	Detection  detector.Detection
	Record     *datastore.VehicleRecord
	LookupErr  error
	Registered bool
}

// Pipeline holds the loop configuration and the state carried between
// frames.
type Pipeline struct {
	deps        Deps
	frameSkip   int
	detectWidth int
	source      string
	format      *plate.Format
	console     io.Writer
	log         logger.Logger

	frameLog  rate.Sometimes
	detectLog rate.Sometimes

	mu         sync.Mutex
	frames     int64
	lastPlate  string
	lastRecord *datastore.VehicleRecord
	lastLabel  string
	lastBox    image.Rectangle

	// shownPlate is the text drawn with lastLabel. It differs from lastPlate
	// while a lookup for a new read is failing.
	shownPlate string
}

// New validates deps and builds a pipeline from settings.
func New(settings *conf.Settings, deps Deps) (*Pipeline, error) {
	if deps.Frames == nil || deps.Detector == nil || deps.Reader == nil || deps.Lookup == nil {
		return nil, errors.Newf("pipeline requires a frame source, detector, reader and lookup").
			Component("pipeline").
			Category(errors.CategoryConfiguration).
			Build()
	}

	format, err := plate.NewFormat(settings.OCR.PlateFormat)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		deps:        deps,
		frameSkip:   settings.Camera.FrameSkip,
		detectWidth: settings.Camera.DetectWidth,
		source:      settings.Main.Name,
		format:      format,
		console:     deps.Console,
		log:         GetLogger(),
		frameLog:    rate.Sometimes{Interval: logInterval},
		detectLog:   rate.Sometimes{Interval: logInterval},
	}
	if p.frameSkip <= 0 {
		p.frameSkip = defaultFrameSkip
	}
	if p.detectWidth <= 0 {
		p.detectWidth = defaultDetectWidth
	}
	if p.console == nil {
		p.console = os.Stdout
	}
	return p, nil
}

// Run reads frames until ctx is canceled, the source is exhausted or the
// renderer asks to quit. Isolated capture failures are logged and skipped;
// a lost source or maxCaptureFailures failures in a row end the loop with
// an error.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Info("pipeline started",
		logger.Int("frame_skip", p.frameSkip),
		logger.Int("detect_width", p.detectWidth))
	defer p.log.Info("pipeline stopped", logger.Int64("frames", p.frameCount()))

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := p.deps.Frames.Read(ctx)
		if err != nil {
			if p.deps.EndOfStream != nil && errors.Is(err, p.deps.EndOfStream) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			p.stageError(metrics.StageCapture)
			failures++
			lost := p.deps.SourceLost != nil && errors.Is(err, p.deps.SourceLost)
			if lost || failures >= maxCaptureFailures {
				p.log.Error("frame source unavailable, stopping",
					logger.Int("consecutive_failures", failures),
					logger.Error(err))
				return errors.New(err).
					Component("pipeline").
					Category(errors.CategoryCamera).
					Context("consecutive_failures", failures).
					Build()
			}
			p.frameLog.Do(func() {
				p.log.Warn("frame capture failed", logger.Error(err))
			})
			continue
		}
		failures = 0

		ov := p.ProcessFrame(ctx, frame)

		if p.deps.Renderer != nil {
			quit, err := p.deps.Renderer.Render(frame, ov)
			if err != nil {
				p.frameLog.Do(func() {
					p.log.Warn("render failed", logger.Error(err))
				})
			}
			if quit {
				return nil
			}
		}
	}
}

// ProcessFrame advances the frame counter, runs a recognition cycle on
// every frameSkip-th frame and returns the overlay for the frame. Frames
// in between reuse the last box, plate and label.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame image.Image) Overlay {
	p.mu.Lock()
	p.frames++
	run := p.frames%int64(p.frameSkip) == 0
	p.mu.Unlock()

	if p.deps.Metrics != nil {
		p.deps.Metrics.FramesTotal.Inc()
	}

	if run {
		p.detectionFrame(ctx, frame)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return layoutOverlay(p.lastBox, frame.Bounds(), p.shownPlate, p.lastLabel, p.lastRecord != nil)
}

func (p *Pipeline) detectionFrame(ctx context.Context, frame image.Image) {
	start := time.Now()
	if p.deps.Metrics != nil {
		p.deps.Metrics.DetectionRuns.Inc()
		defer func() {
			p.deps.Metrics.FrameDuration.Observe(time.Since(start).Seconds())
		}()
	}

	det, ok, err := p.locate(frame)
	if err != nil {
		p.stageError(metrics.StageDetect)
		p.detectLog.Do(func() {
			p.log.Warn("plate detection failed", logger.Error(err))
		})
		return
	}
	if !ok {
		return
	}

	p.mu.Lock()
	p.lastBox = det.Box
	p.mu.Unlock()

	text, result, err := p.read(ctx, frame, det.Box)
	if err != nil {
		if !errors.Is(err, ocr.ErrNoText) && !errors.IsCategory(err, errors.CategoryPlate) {
			p.stageError(metrics.StageOCR)
		}
		p.detectLog.Do(func() {
			p.log.Debug("no usable plate text", logger.Error(err))
		})
		return
	}

	p.mu.Lock()
	changed := text != p.lastPlate
	p.mu.Unlock()
	if !changed {
		return
	}

	rec := p.lookup(ctx, text)
	rec.OCR = result
	rec.Detection = det

	p.mu.Lock()
	switch {
	case rec.LookupErr != nil:
		// Leave lastPlate unchanged so the next detection retries the query.
		p.shownPlate = text
		p.lastLabel = LookupErrorLabel
		p.lastRecord = nil
		p.mu.Unlock()
		return
	case rec.Registered:
		p.lastPlate = text
		p.shownPlate = text
		p.lastRecord = rec.Record
		p.lastLabel = rec.Record.OwnerName
	default:
		p.lastPlate = text
		p.shownPlate = text
		p.lastRecord = nil
		p.lastLabel = NotFoundLabel
	}
	p.mu.Unlock()

	p.log.Info("plate recognized",
		logger.String("plate", text),
		logger.Float64("ocr_confidence", result.Confidence),
		logger.Float64("detection_confidence", float64(det.Confidence)),
		logger.Bool("registered", rec.Registered))

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordRecognition(rec.Registered)
	}
	PrintReport(p.console, rec)
	p.publish(ctx, rec)
}

// Recognize runs one detect, read and lookup cycle on img without touching
// the loop state. ok is false when no plate was detected. When the plate
// was read but the query failed, rec is returned along with the error.
func (p *Pipeline) Recognize(ctx context.Context, img image.Image) (rec *Recognition, ok bool, err error) {
	det, found, err := p.locate(img)
	if err != nil || !found {
		return nil, false, err
	}

	text, result, err := p.read(ctx, img, det.Box)
	if err != nil {
		return nil, false, err
	}

	rec = p.lookup(ctx, text)
	rec.OCR = result
	rec.Detection = det
	return rec, true, rec.LookupErr
}

// locate runs the detector on a copy of frame scaled to the detection width
// and maps the best box back to frame coordinates.
func (p *Pipeline) locate(frame image.Image) (detector.Detection, bool, error) {
	small, scale := scaleForDetection(frame, p.detectWidth)

	det, ok, err := p.deps.Detector.Best(small)
	if err != nil || !ok {
		return detector.Detection{}, false, err
	}

	det.Box = mapToFrame(det.Box, scale, frame.Bounds())
	if det.Box.Empty() {
		return detector.Detection{}, false, nil
	}
	return det, true, nil
}

// read crops box out of the full resolution frame and returns the
// normalized plate text.
func (p *Pipeline) read(ctx context.Context, frame image.Image, box image.Rectangle) (string, ocr.Result, error) {
	result, err := p.deps.Reader.Read(ctx, crop(frame, box))
	if err != nil {
		return "", ocr.Result{}, err
	}
	text, err := p.format.Parse(result.Text)
	if err != nil {
		return "", result, err
	}
	return text, result, nil
}

func (p *Pipeline) lookup(ctx context.Context, text string) *Recognition {
	rec := &Recognition{Plate: text}

	record, err := p.deps.Lookup.Lookup(ctx, text)
	switch {
	case err == nil:
		rec.Record = record
		rec.Registered = true
	case errors.IsNotFound(err):
	default:
		rec.LookupErr = err
		p.stageError(metrics.StageLookup)
		p.log.Error("vehicle lookup failed",
			logger.String("plate", text),
			logger.Error(err))
	}
	return rec
}

func (p *Pipeline) publish(ctx context.Context, rec *Recognition) {
	if len(p.deps.Publishers) == 0 {
		return
	}

	ev := mqtt.NewPlateEvent(p.source, rec.Plate, rec.OCR.Confidence,
		float64(rec.Detection.Confidence), rec.Record, time.Now())

	for _, pub := range p.deps.Publishers {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := pub.PublishPlate(pubCtx, ev)
		cancel()
		if err != nil {
			p.stageError(metrics.StagePublish)
			p.log.Warn("failed to publish plate event",
				logger.String("plate", rec.Plate),
				logger.Error(err))
		}
	}
}

func (p *Pipeline) stageError(stage string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordStageError(stage)
	}
}

func (p *Pipeline) frameCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// LastPlate returns the most recent plate that completed a lookup.
func (p *Pipeline) LastPlate() (string, *datastore.VehicleRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPlate, p.lastRecord
}
