// Package mqtt publishes plate recognition events to an MQTT broker.
package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/platewatch/internal/logger"
)

// Client is a broker connection that plate events are published through.
// Publish fails while disconnected; the client reconnects on its own after
// a lost connection until Disconnect is called.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic, payload string) error
	IsConnected() bool
	Disconnect()
}

// Config holds broker credentials, the event topic and connection timing.
type Config struct {
	Broker   string // tcp://host:1883, ssl://host:8883 or ws://host:port
	ClientID string
	Username string
	Password string
	Topic    string
	Retain   bool

	// ReconnectCooldown is the minimum time between two connection attempts.
	ReconnectCooldown time.Duration
	// ReconnectDelay is the wait after a lost connection before the first retry.
	ReconnectDelay time.Duration

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns the timing used when settings leave it unset.
func DefaultConfig() Config {
	return Config{
		Topic:             "platewatch/plates",
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    1 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the mqtt package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("mqtt")
	})
	return serviceLogger
}
