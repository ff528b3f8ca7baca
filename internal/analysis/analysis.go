// Package analysis wires the platewatch components together for the
// realtime, file, lookup and seed commands.
package analysis

import (
	"sync"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/detector"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/observability"
	"github.com/tphakala/platewatch/internal/observability/metrics"
	"github.com/tphakala/platewatch/internal/ocr"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the analysis package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("analysis")
	})
	return serviceLogger
}

// openStore opens the configured vehicle registry.
func openStore(settings *conf.Settings) (datastore.Interface, error) {
	store := datastore.New(settings)
	if store == nil {
		return nil, errors.Newf("no database backend enabled").
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

func closeStore(store datastore.Interface) {
	if err := store.Close(); err != nil {
		GetLogger().Error("failed to close database", logger.Error(err))
	}
}

// recognizer bundles the detector and reader used by the realtime and file
// commands.
type recognizer struct {
	detector *detector.Detector
	reader   ocr.Reader
}

// newRecognizer loads the detection model and the OCR engine. m may be nil.
func newRecognizer(settings *conf.Settings, m *observability.Metrics) (*recognizer, error) {
	var (
		detMetrics *metrics.DetectorMetrics
		ocrMetrics *metrics.OCRMetrics
	)
	if m != nil {
		detMetrics, ocrMetrics = m.Detector, m.OCR
	}

	det, err := detector.New(&settings.Detector, detMetrics)
	if err != nil {
		return nil, err
	}

	reader, err := ocr.New(&settings.OCR, ocrMetrics)
	if err != nil {
		det.Close()
		return nil, err
	}

	GetLogger().Info("recognizer ready",
		logger.String("model", settings.Detector.ModelPath),
		logger.String("ocr_engine", reader.Name()))

	return &recognizer{detector: det, reader: reader}, nil
}

func (r *recognizer) Close() {
	r.detector.Close()
	if err := r.reader.Close(); err != nil {
		GetLogger().Warn("failed to close OCR engine", logger.Error(err))
	}
}
