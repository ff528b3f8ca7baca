// env.go - Environment variable configuration and validation for platewatch
package conf

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/platewatch/internal/errors"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PLATEWATCH_DEBUG", validateEnvBool},

		// Camera
		{"camera.device", "PLATEWATCH_CAMERA_DEVICE", nil},
		{"camera.frameskip", "PLATEWATCH_CAMERA_FRAMESKIP", validateEnvPositiveInt},
		{"camera.window", "PLATEWATCH_CAMERA_WINDOW", validateEnvBool},

		// Detector
		{"detector.modelpath", "PLATEWATCH_DETECTOR_MODELPATH", validateEnvPath},
		{"detector.threshold", "PLATEWATCH_DETECTOR_THRESHOLD", validateEnvUnitFloat},
		{"detector.threads", "PLATEWATCH_DETECTOR_THREADS", validateEnvThreads},
		{"detector.usexnnpack", "PLATEWATCH_DETECTOR_USEXNNPACK", validateEnvBool},

		// OCR
		{"ocr.engine", "PLATEWATCH_OCR_ENGINE", validateEnvOCREngine},
		{"ocr.language", "PLATEWATCH_OCR_LANGUAGE", nil},
		{"ocr.plateformat", "PLATEWATCH_OCR_PLATEFORMAT", validateEnvRegexp},
		{"ocr.azure.endpoint", "PLATEWATCH_OCR_AZURE_ENDPOINT", validateEnvURL},
		{"ocr.azure.key", "PLATEWATCH_OCR_AZURE_KEY", nil},

		// Database, named after the variables existing deployments set
		{"output.mysql.host", "DB_HOST", nil},
		{"output.mysql.port", "DB_PORT", validateEnvPort},
		{"output.mysql.username", "DB_USER", nil},
		{"output.mysql.password", "DB_PASSWORD", nil},
		{"output.mysql.database", "DB_NAME", nil},
		{"output.sqlite.path", "PLATEWATCH_SQLITE_PATH", validateEnvPath},

		// MQTT
		{"mqtt.broker", "PLATEWATCH_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "PLATEWATCH_MQTT_USERNAME", nil},
		{"mqtt.password", "PLATEWATCH_MQTT_PASSWORD", nil},

		{"sentry.dsn", "PLATEWATCH_SENTRY_DSN", validateEnvURL},
	}
}

// loadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return errors.New(fmt.Errorf("error loading .env file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateEnvUnitFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1, got %g", f)
	}
	return nil
}

func validateEnvThreads(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid thread count: %w", err)
	}
	if n < 0 || n > 256 {
		return fmt.Errorf("threads must be between 0 and 256, got %d", n)
	}
	return nil
}

func validateEnvPort(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", n)
	}
	return nil
}

func validateEnvOCREngine(value string) error {
	switch strings.ToLower(value) {
	case OCREngineTesseract, OCREngineAzure:
		return nil
	default:
		return fmt.Errorf("unknown OCR engine %q, expected %s or %s", value, OCREngineTesseract, OCREngineAzure)
	}
}

func validateEnvRegexp(value string) error {
	if _, err := regexp.Compile(value); err != nil {
		return fmt.Errorf("invalid regular expression: %w", err)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host, got '%s'", value)
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains NUL byte")
	}
	if strings.Contains(value, "..") {
		return fmt.Errorf("path must not contain '..'")
	}
	return nil
}
