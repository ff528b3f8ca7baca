package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectorMetrics tracks plate detection model usage.
type DetectorMetrics struct {
	InvokeDuration  prometheus.Histogram
	InvokeTotal     *prometheus.CounterVec
	BoxesTotal      prometheus.Counter
	BoxConfidence   prometheus.Histogram
	ModelLoadTotal  *prometheus.CounterVec
	ModelLoadedFlag prometheus.Gauge
}

// NewDetectorMetrics creates and registers the detector collectors.
func NewDetectorMetrics(registry prometheus.Registerer) (*DetectorMetrics, error) {
	m := &DetectorMetrics{
		InvokeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platewatch_detector_invoke_seconds",
			Help:    "Time taken by one detection model invocation",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
		InvokeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platewatch_detector_invocations_total",
			Help: "Total number of detection model invocations",
		}, []string{"status"}),
		BoxesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_detector_boxes_total",
			Help: "Total number of plate boxes above the confidence threshold",
		}),
		BoxConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platewatch_detector_box_confidence",
			Help:    "Confidence of the returned plate boxes",
			Buckets: prometheus.LinearBuckets(ConfidenceWidth, ConfidenceWidth, ConfidenceCount),
		}),
		ModelLoadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platewatch_detector_model_load_total",
			Help: "Total number of detection model load attempts",
		}, []string{"status"}),
		ModelLoadedFlag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platewatch_detector_model_loaded",
			Help: "Whether the detection model is loaded (1) or not (0)",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.InvokeDuration, m.InvokeTotal, m.BoxesTotal,
		m.BoxConfidence, m.ModelLoadTotal, m.ModelLoadedFlag,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register detector metrics: %w", err)
		}
	}
	return m, nil
}

// RecordInvoke records one model invocation and the confidences it kept.
func (m *DetectorMetrics) RecordInvoke(seconds float64, confidences []float32, err error) {
	if err != nil {
		m.InvokeTotal.WithLabelValues(StatusError).Inc()
		return
	}
	m.InvokeTotal.WithLabelValues(StatusSuccess).Inc()
	m.InvokeDuration.Observe(seconds)
	m.BoxesTotal.Add(float64(len(confidences)))
	for _, c := range confidences {
		m.BoxConfidence.Observe(float64(c))
	}
}

// RecordModelLoad records a model load attempt.
func (m *DetectorMetrics) RecordModelLoad(err error) {
	if err != nil {
		m.ModelLoadTotal.WithLabelValues(StatusError).Inc()
		m.ModelLoadedFlag.Set(0)
		return
	}
	m.ModelLoadTotal.WithLabelValues(StatusSuccess).Inc()
	m.ModelLoadedFlag.Set(1)
}

// SetModelUnloaded marks the model as released.
func (m *DetectorMetrics) SetModelUnloaded() {
	m.ModelLoadedFlag.Set(0)
}
