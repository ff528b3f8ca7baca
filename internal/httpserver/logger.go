package httpserver

import (
	"sync"

	"github.com/tphakala/platewatch/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the httpserver package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("httpserver")
	})
	return serviceLogger
}
