// Package conf provides configuration management for platewatch.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// CameraSettings controls frame capture and the preview window.
type CameraSettings struct {
	Device      string // device index ("0"), video file path or stream URL
	Width       int    // requested capture width, 0 keeps the device default
	Height      int    // requested capture height, 0 keeps the device default
	FrameSkip   int    // run detection on every Nth frame
	DetectWidth int    // frames are scaled to this width before detection
	Window      bool   // true to show the annotated preview window
	WindowName  string // preview window title
}

// DetectorSettings configures the plate detection model.
type DetectorSettings struct {
	ModelPath  string  // path to the TFLite detection model
	Threshold  float64 // minimum box confidence
	IoU        float64 // overlap above which lower scoring boxes are suppressed
	Threads    int     // inference threads, 0 picks a count from the CPU
	UseXNNPACK bool    // true to use the XNNPACK delegate
	MarginX    float64 // horizontal padding added to each box, fraction of box width
	MarginY    float64 // vertical padding added to each box, fraction of box height
}

// AzureOCRSettings holds credentials for the Azure Computer Vision engine.
type AzureOCRSettings struct {
	Endpoint string
	Key      string
}

// OCRSettings configures text recognition on plate crops.
type OCRSettings struct {
	Engine        string  // tesseract or azure
	Language      string  // tesseract language code
	Allowlist     string  // characters the engine may emit
	PageSegMode   int     // tesseract page segmentation mode
	MinConfidence float64 // reads below this confidence are dropped
	PlateFormat   string  // optional regular expression a normalized plate must match
	Preprocess    bool    // grayscale, upscale, blur and binarize before OCR
	Azure         AzureOCRSettings
}

// LookupSettings configures the vehicle search cache.
type LookupSettings struct {
	CacheTTL time.Duration // 0 disables caching
}

// MySQLSettings contains settings for the MySQL backend.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// SQLiteSettings contains settings for the SQLite backend.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// PostgresSettings contains settings for the PostgreSQL backend.
type PostgresSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
	SSLMode  string
}

// OutputSettings selects the vehicle registry backend.
type OutputSettings struct {
	MySQL    MySQLSettings
	SQLite   SQLiteSettings
	Postgres PostgresSettings
}

// MQTTSettings contains settings for publishing recognitions.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT
	Broker   string // MQTT (tcp://host:port)
	Topic    string // MQTT topic
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to publish retained messages
}

// NotifySettings contains settings for push notifications sent through
// shoutrrr service URLs.
type NotifySettings struct {
	Enabled          bool
	URLs             []string      // shoutrrr service URLs, e.g. telegram://token@telegram?chats=123
	UnregisteredOnly bool          // true to notify only for plates missing from the registry
	Timeout          time.Duration // per-send timeout
}

// WebServerSettings contains settings for the lookup API and metrics endpoint.
type WebServerSettings struct {
	Enabled bool
	Listen  string
}

// SentrySettings contains settings for opt-in error telemetry.
type SentrySettings struct {
	Enabled bool
	DSN     string
	Debug   bool
}

// InputConfig holds runtime values for single-shot commands.
type InputConfig struct {
	Path     string // image file for the file command, fixture file for seed
	Plate    string // plate for the lookup command
	Annotate string // where the file command writes the annotated image, empty to skip
	Format   string // lookup output format: text or json
}

// Settings contains all configuration options for platewatch.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`

	Main struct {
		Name string // node name, included in published events
	}

	Camera    CameraSettings
	Detector  DetectorSettings
	OCR       OCRSettings
	Lookup    LookupSettings
	Output    OutputSettings
	MQTT      MQTTSettings
	Notify    NotifySettings
	WebServer WebServerSettings
	Sentry    SentrySettings
	Logging   logger.LoggingConfig

	Input InputConfig `yaml:"-" mapstructure:"-"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads .env, the configuration file and environment variables, then
// validates the result and stores it as the current settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults and env bindings, then reads the configuration
// file, writing a default one when none exists.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("configuration loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	data, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil { //nolint:gosec // config is not secret until edited
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first use
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				GetLogger().Error("error loading settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig writes settings to configPath through a temporary file so a
// failed write never leaves a truncated config behind.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := moveFile(tempFileName, configPath); err != nil {
		return fmt.Errorf("error moving config file into place: %w", err)
	}

	return nil
}
