package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT operations, used to label MQTT errors.
const (
	OpConnect        = "connect"
	OpPublish        = "publish"
	OpConnectionLost = "connection_lost"
)

// MQTTMetrics tracks the broker connection and plate event publishing.
type MQTTMetrics struct {
	Connected       prometheus.Gauge
	LastConnect     prometheus.Gauge
	EventsPublished prometheus.Counter
	Errors          *prometheus.CounterVec
	Reconnects      prometheus.Counter
	PayloadBytes    prometheus.Histogram
	PublishDuration prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT collectors.
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platewatch_mqtt_connected",
			Help: "1 while connected to the MQTT broker",
		}),
		LastConnect: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platewatch_mqtt_last_connect_timestamp_seconds",
			Help: "Unix time of the last successful broker connection",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_mqtt_events_published_total",
			Help: "Plate events acknowledged by the broker",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "platewatch_mqtt_errors_total",
			Help: "MQTT failures partitioned by operation",
		}, []string{"op"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "platewatch_mqtt_reconnect_attempts_total",
			Help: "Reconnection attempts after the broker connection was lost",
		}),
		PayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platewatch_mqtt_payload_bytes",
			Help:    "Size of published plate events",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "platewatch_mqtt_publish_seconds",
			Help:    "Time from publish to broker acknowledgement",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Connected, m.LastConnect, m.EventsPublished, m.Errors,
		m.Reconnects, m.PayloadBytes, m.PublishDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

// SetConnected records the broker connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if !connected {
		m.Connected.Set(0)
		return
	}
	m.Connected.Set(1)
	m.LastConnect.SetToCurrentTime()
}

// RecordPublish counts an acknowledged event of size bytes.
func (m *MQTTMetrics) RecordPublish(size int, elapsed time.Duration) {
	m.EventsPublished.Inc()
	m.PayloadBytes.Observe(float64(size))
	m.PublishDuration.Observe(elapsed.Seconds())
}

// RecordError counts a failed op.
func (m *MQTTMetrics) RecordError(op string) {
	m.Errors.WithLabelValues(op).Inc()
}
