package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
)

// PlateEvent is the JSON payload published for every new plate reading.
//
// Field names are part of the published contract, consumers filter on
// "registered" and "plate".
type PlateEvent struct {
	ID                  string                   `json:"id"`
	Timestamp           time.Time                `json:"timestamp"`
	Source              string                   `json:"source,omitempty"`
	Plate               string                   `json:"plate"`
	OCRConfidence       float64                  `json:"ocrConfidence"`
	DetectionConfidence float64                  `json:"detectionConfidence"`
	Registered          bool                     `json:"registered"`
	Vehicle             *datastore.VehicleRecord `json:"vehicle,omitempty"`
}

// NewPlateEvent builds an event with a fresh ID for a plate read at ts. A nil
// record marks the plate as unregistered.
func NewPlateEvent(source, plateText string, ocrConf, detConf float64, record *datastore.VehicleRecord, ts time.Time) PlateEvent {
	return PlateEvent{
		ID:                  uuid.NewString(),
		Timestamp:           ts,
		Source:              source,
		Plate:               plateText,
		OCRConfidence:       ocrConf,
		DetectionConfidence: detConf,
		Registered:          record != nil,
		Vehicle:             record,
	}
}

// Publisher sends plate events to the configured topic.
type Publisher struct {
	client Client
	topic  string
}

// NewPublisher returns a Publisher writing to topic through client.
func NewPublisher(client Client, topic string) *Publisher {
	if topic == "" {
		topic = DefaultConfig().Topic
	}
	return &Publisher{client: client, topic: topic}
}

// PublishPlate marshals ev and publishes it.
func (p *Publisher) PublishPlate(ctx context.Context, ev PlateEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("plate", ev.Plate).
			Build()
	}
	return p.client.Publish(ctx, p.topic, string(payload))
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string { return p.topic }
