package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the capture loop.
type PipelineMetrics struct {
	FramesTotal       prometheus.Counter
	DetectionRuns     prometheus.Counter
	FrameDuration     prometheus.Histogram
	RecognitionsTotal *prometheus.CounterVec
	StageErrors       *prometheus.CounterVec
	CurrentPlate      *prometheus.GaugeVec
}

// NewPipelineMetrics creates and registers the pipeline collectors.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_frames_total",
			Help: "Total number of frames captured",
		}),
		DetectionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_detection_runs_total",
			Help: "Total number of frames that ran the full detect and read cycle",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platewatch_frame_processing_seconds",
			Help:    "Time spent on a detection frame from detection to lookup",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}),
		RecognitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platewatch_recognitions_total",
			Help: "Plates recognized and looked up, partitioned by lookup result",
		}, []string{"result"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platewatch_stage_errors_total",
			Help: "Per-frame failures partitioned by pipeline stage",
		}, []string{"stage"}),
		CurrentPlate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "platewatch_plate_in_view",
			Help: "1 while a registered or unregistered plate is in view",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.FramesTotal, m.DetectionRuns, m.FrameDuration,
		m.RecognitionsTotal, m.StageErrors, m.CurrentPlate,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
		}
	}
	return m, nil
}

// RecordRecognition counts a looked up plate and marks it as in view.
func (m *PipelineMetrics) RecordRecognition(registered bool) {
	result := ResultUnregistered
	if registered {
		result = ResultRegistered
	}
	m.RecognitionsTotal.WithLabelValues(result).Inc()
	m.CurrentPlate.Reset()
	m.CurrentPlate.WithLabelValues(result).Set(1)
}

// RecordStageError counts a failure in stage.
func (m *PipelineMetrics) RecordStageError(stage string) {
	m.StageErrors.WithLabelValues(stage).Inc()
}
