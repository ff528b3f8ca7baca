// Package metrics provides custom Prometheus collectors for platewatch
// components.
package metrics

// Label values shared by the collectors.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Lookup outcomes.
	ResultRegistered   = "registered"
	ResultUnregistered = "unregistered"

	// Pipeline stages, used to label per-frame errors.
	StageCapture = "capture"
	StageDetect  = "detect"
	StageOCR     = "ocr"
	StageLookup  = "lookup"
	StagePublish = "publish"
)

// Histogram bucket configuration.
const (
	BucketStart1ms  = 0.001
	BucketStart64B  = 64.0
	BucketFactor2   = 2
	BucketCount10   = 10
	BucketCount12   = 12
	ConfidenceWidth = 0.1
	ConfidenceCount = 10
)
