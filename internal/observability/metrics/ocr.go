package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// OCRMetrics tracks text recognition on plate crops.
type OCRMetrics struct {
	ReadDuration *prometheus.HistogramVec
	ReadsTotal   *prometheus.CounterVec
}

// NewOCRMetrics creates and registers the OCR collectors.
func NewOCRMetrics(registry prometheus.Registerer) (*OCRMetrics, error) {
	m := &OCRMetrics{
		ReadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "platewatch_ocr_read_seconds",
			Help:    "Time taken to read one plate crop",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}, []string{"engine"}),
		ReadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platewatch_ocr_reads_total",
			Help: "Plate crops read, partitioned by engine and outcome (text, empty, error)",
		}, []string{"engine", "status"}),
	}

	if err := registry.Register(m.ReadDuration); err != nil {
		return nil, fmt.Errorf("failed to register OCR metrics: %w", err)
	}
	if err := registry.Register(m.ReadsTotal); err != nil {
		return nil, fmt.Errorf("failed to register OCR metrics: %w", err)
	}
	return m, nil
}

// RecordRead records one read attempt. status is "text", "empty" or "error".
func (m *OCRMetrics) RecordRead(engine, status string, seconds float64) {
	m.ReadsTotal.WithLabelValues(engine, status).Inc()
	if status != StatusError {
		m.ReadDuration.WithLabelValues(engine).Observe(seconds)
	}
}
