// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with validation and commands.
const (
	DefaultAllowlist   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultFrameSkip   = 10
	DefaultDetectWidth = 640
	DefaultThreshold   = 0.5
	DefaultMarginX     = 0.05
	DefaultMarginY     = 0.10
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "platewatch")

	viper.SetDefault("camera.device", "0")
	viper.SetDefault("camera.width", 0)
	viper.SetDefault("camera.height", 0)
	viper.SetDefault("camera.frameskip", DefaultFrameSkip)
	viper.SetDefault("camera.detectwidth", DefaultDetectWidth)
	viper.SetDefault("camera.window", true)
	viper.SetDefault("camera.windowname", "Deteccion de Placas")

	viper.SetDefault("detector.modelpath", "models/plates.tflite")
	viper.SetDefault("detector.threshold", DefaultThreshold)
	viper.SetDefault("detector.iou", 0.45)
	viper.SetDefault("detector.threads", 0)
	viper.SetDefault("detector.usexnnpack", true)
	viper.SetDefault("detector.marginx", DefaultMarginX)
	viper.SetDefault("detector.marginy", DefaultMarginY)

	viper.SetDefault("ocr.engine", "tesseract")
	viper.SetDefault("ocr.language", "eng")
	viper.SetDefault("ocr.allowlist", DefaultAllowlist)
	viper.SetDefault("ocr.pagesegmode", 7)
	viper.SetDefault("ocr.minconfidence", 0.0)
	viper.SetDefault("ocr.plateformat", "")
	viper.SetDefault("ocr.preprocess", true)
	viper.SetDefault("ocr.azure.endpoint", "")
	viper.SetDefault("ocr.azure.key", "")

	viper.SetDefault("lookup.cachettl", 30*time.Second)

	viper.SetDefault("output.mysql.enabled", true)
	viper.SetDefault("output.mysql.username", "root")
	viper.SetDefault("output.mysql.password", "123")
	viper.SetDefault("output.mysql.database", "placas_db")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "platewatch.db")

	viper.SetDefault("output.postgres.enabled", false)
	viper.SetDefault("output.postgres.username", "postgres")
	viper.SetDefault("output.postgres.password", "")
	viper.SetDefault("output.postgres.database", "placas_db")
	viper.SetDefault("output.postgres.host", "localhost")
	viper.SetDefault("output.postgres.port", "5432")
	viper.SetDefault("output.postgres.sslmode", "disable")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "platewatch/plates")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.unregisteredonly", true)
	viper.SetDefault("notify.timeout", "10s")

	viper.SetDefault("webserver.enabled", false)
	viper.SetDefault("webserver.listen", "127.0.0.1:8080")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/platewatch.log")
	viper.SetDefault("logging.file_output.level", "debug")
}
