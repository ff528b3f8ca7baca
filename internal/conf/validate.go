// conf/validate.go
package conf

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/tphakala/platewatch/internal/logger"
)

// Supported OCR engines
const (
	OCREngineTesseract = "tesseract"
	OCREngineAzure     = "azure"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct, collecting every
// problem instead of stopping at the first.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateCameraSettings(&s.Camera) },
		func(s *Settings) error { return validateDetectorSettings(&s.Detector) },
		func(s *Settings) error { return validateOCRSettings(&s.OCR) },
		func(s *Settings) error { return validateOutputSettings(&s.Output) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateNotifySettings(&s.Notify) },
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if settings.Lookup.CacheTTL < 0 {
		ve.Errors = append(ve.Errors, "lookup cache TTL must not be negative")
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateCameraSettings(settings *CameraSettings) error {
	var errs []string

	if strings.TrimSpace(settings.Device) == "" {
		errs = append(errs, "camera device must be set")
	}
	if settings.FrameSkip < 1 {
		errs = append(errs, fmt.Sprintf("camera frameskip must be at least 1, got %d", settings.FrameSkip))
	}
	if settings.DetectWidth < 32 {
		errs = append(errs, fmt.Sprintf("camera detectwidth must be at least 32, got %d", settings.DetectWidth))
	}
	if settings.Width < 0 || settings.Height < 0 {
		errs = append(errs, "camera width and height must not be negative")
	}

	return joinErrors(errs)
}

func validateDetectorSettings(settings *DetectorSettings) error {
	var errs []string

	if settings.ModelPath == "" {
		errs = append(errs, "detector modelpath must be set")
	}
	if settings.Threshold <= 0 || settings.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("detector threshold must be in (0, 1], got %g", settings.Threshold))
	}
	if settings.IoU <= 0 || settings.IoU > 1 {
		errs = append(errs, fmt.Sprintf("detector iou must be in (0, 1], got %g", settings.IoU))
	}
	if settings.Threads < 0 {
		errs = append(errs, fmt.Sprintf("detector threads must not be negative, got %d", settings.Threads))
	}
	if settings.MarginX < 0 || settings.MarginX > 1 || settings.MarginY < 0 || settings.MarginY > 1 {
		errs = append(errs, "detector margins must be between 0 and 1")
	}

	return joinErrors(errs)
}

func validateOCRSettings(settings *OCRSettings) error {
	var errs []string

	settings.Engine = strings.ToLower(strings.TrimSpace(settings.Engine))
	switch settings.Engine {
	case OCREngineTesseract:
		if settings.Language == "" {
			errs = append(errs, "ocr language must be set for tesseract")
		}
		if settings.PageSegMode < 0 || settings.PageSegMode > 13 {
			errs = append(errs, fmt.Sprintf("ocr pagesegmode must be between 0 and 13, got %d", settings.PageSegMode))
		}
	case OCREngineAzure:
		if settings.Azure.Endpoint == "" || settings.Azure.Key == "" {
			errs = append(errs, "ocr azure endpoint and key must be set when engine is azure")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown ocr engine %q", settings.Engine))
	}

	if settings.MinConfidence < 0 || settings.MinConfidence > 1 {
		errs = append(errs, fmt.Sprintf("ocr minconfidence must be between 0 and 1, got %g", settings.MinConfidence))
	}

	if settings.PlateFormat != "" {
		if _, err := regexp.Compile(settings.PlateFormat); err != nil {
			errs = append(errs, fmt.Sprintf("ocr plateformat is not a valid regular expression: %v", err))
		}
	}

	return joinErrors(errs)
}

func validateOutputSettings(settings *OutputSettings) error {
	enabled := 0
	var errs []string

	if settings.SQLite.Enabled {
		enabled++
		if settings.SQLite.Path == "" {
			errs = append(errs, "sqlite path must be set")
		}
	}
	if settings.MySQL.Enabled {
		enabled++
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" || settings.MySQL.Username == "" {
			errs = append(errs, "mysql host, database and username must be set")
		}
	}
	if settings.Postgres.Enabled {
		enabled++
		if settings.Postgres.Host == "" || settings.Postgres.Database == "" {
			errs = append(errs, "postgres host and database must be set")
		}
	}

	switch {
	case enabled == 0:
		errs = append(errs, "one database backend must be enabled (output.mysql, output.sqlite or output.postgres)")
	case enabled > 1:
		GetLogger().Warn("multiple database backends enabled, using the first in order sqlite, mysql, postgres",
			logger.Int("enabled", enabled))
	}

	return joinErrors(errs)
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if err := validateEnvURL(settings.Broker); err != nil {
		errs = append(errs, fmt.Sprintf("mqtt broker: %v", err))
	}
	if settings.Topic == "" {
		errs = append(errs, "mqtt topic must be set")
	}
	return joinErrors(errs)
}

func validateNotifySettings(settings *NotifySettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if len(settings.URLs) == 0 {
		errs = append(errs, "notify requires at least one service URL")
	}
	for _, u := range settings.URLs {
		if !strings.Contains(u, "://") {
			errs = append(errs, fmt.Sprintf("notify URL %q has no scheme", u))
		}
	}
	if settings.Timeout < 0 {
		errs = append(errs, "notify timeout must not be negative")
	}
	return joinErrors(errs)
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("webserver listen address %q: %w", settings.Listen, err)
	}
	return nil
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
