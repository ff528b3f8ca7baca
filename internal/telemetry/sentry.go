// Package telemetry provides opt-in, privacy-filtered error reporting to
// Sentry. Plate text and owner data are never sent.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
)

// sentryInitialized tracks whether Sentry has been initialized
var sentryInitialized atomic.Bool

// sensitiveKeys are tags, contexts and extra fields dropped from every
// event before it leaves the host.
var sensitiveKeys = []string{
	"plate", "owner", "owner_name", "email", "phone",
	"device", "os", "runtime", "server_name", "hostname",
}

// PlatformInfo holds privacy-safe platform information for telemetry
type PlatformInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	GoVersion    string `json:"go_version"`
}

func collectPlatformInfo() PlatformInfo {
	return PlatformInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
	}
}

// InitSentry initializes the Sentry SDK when settings.Sentry is enabled and
// registers it as the reporter for enhanced errors. It is a no-op when
// telemetry is disabled.
func InitSentry(settings *conf.Settings) error {
	return initSentry(settings, nil)
}

// initSentry lets tests supply a transport.
func initSentry(settings *conf.Settings, transport sentry.Transport) error {
	log := GetLogger()
	if !settings.Sentry.Enabled {
		log.Info("Sentry telemetry is disabled (opt-in required)")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		Debug:            settings.Sentry.Debug,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("platewatch@%s", settings.Version),
		BeforeSend:       beforeSend,
		Transport:        transport,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	configureSentryScope(settings)
	sentryInitialized.Store(true)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	log.Info("Sentry telemetry initialized",
		logger.String("release", settings.Version),
		logger.Bool("debug", settings.Sentry.Debug))
	return nil
}

// beforeSend is the last filter applied to every outgoing event.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters applies privacy filters to a Sentry event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	for _, key := range sensitiveKeys {
		delete(event.Contexts, key)
		delete(event.Tags, key)
		delete(event.Extra, key)
	}
	return event
}

// configureSentryScope sets the platform tags attached to every event.
func configureSentryScope(settings *conf.Settings) {
	platformInfo := collectPlatformInfo()

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os_name", platformInfo.OS)
		scope.SetTag("arch", platformInfo.Architecture)
		scope.SetTag("ocr_engine", settings.OCR.Engine)

		scope.SetContext("application", map[string]any{
			"name":    "platewatch",
			"version": settings.Version,
		})
		scope.SetContext("platform", map[string]any{
			"os":           platformInfo.OS,
			"architecture": platformInfo.Architecture,
			"num_cpu":      platformInfo.NumCPU,
			"go_version":   platformInfo.GoVersion,
		})
	})
}

// CaptureError reports err with component as a tag. Enhanced errors go
// through their reporter so they are not sent twice.
func CaptureError(err error, component string) {
	if err == nil || !sentryInitialized.Load() {
		return
	}

	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		if reporter := errors.GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
			reporter.ReportError(ee)
			return
		}
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetFingerprint([]string{component, fmt.Sprintf("%T", err)})
		sentry.CaptureException(err)
	})
}

// Flush ensures all buffered events are sent to Sentry
func Flush(timeout time.Duration) {
	if !sentryInitialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
