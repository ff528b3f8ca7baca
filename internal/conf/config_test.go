package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// defaultSettings returns the settings produced by setDefaultConfig alone.
func defaultSettings(t *testing.T) *Settings {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaultConfig()

	settings := &Settings{}
	require.NoError(t, viper.Unmarshal(settings))
	return settings
}

func TestDefaultRegistryConnection(t *testing.T) {
	settings := defaultSettings(t)

	assert.True(t, settings.Output.MySQL.Enabled)
	assert.Equal(t, "localhost", settings.Output.MySQL.Host)
	assert.Equal(t, "3306", settings.Output.MySQL.Port)
	assert.Equal(t, "root", settings.Output.MySQL.Username)
	assert.Equal(t, "placas_db", settings.Output.MySQL.Database)
	assert.False(t, settings.Output.SQLite.Enabled)

	assert.Equal(t, DefaultFrameSkip, settings.Camera.FrameSkip)
	assert.Equal(t, DefaultDetectWidth, settings.Camera.DetectWidth)
	assert.InDelta(t, DefaultThreshold, settings.Detector.Threshold, 1e-9)
	assert.InDelta(t, DefaultMarginX, settings.Detector.MarginX, 1e-9)
	assert.InDelta(t, DefaultMarginY, settings.Detector.MarginY, 1e-9)
	assert.Equal(t, DefaultAllowlist, settings.OCR.Allowlist)
	assert.Equal(t, 30*time.Second, settings.Lookup.CacheTTL)

	require.NoError(t, ValidateSettings(settings))
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	defaults := defaultSettings(t)

	data, err := getDefaultConfig()
	require.NoError(t, err)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(data)))

	fromFile := &Settings{}
	require.NoError(t, v.Unmarshal(fromFile))

	assert.Equal(t, defaults, fromFile)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	settings := defaultSettings(t)
	settings.Camera.Device = "rtsp://camera.local/stream"
	settings.OCR.PlateFormat = `^[A-Z]{3}[0-9]{3}$`

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	camera, ok := decoded["camera"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rtsp://camera.local/stream", camera["device"])
	assert.NotContains(t, decoded, "input", "runtime input must not be persisted")

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "config-*.yaml"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temporary file should be cleaned up")
}

func TestGetDefaultConfigPathsStartsWithWorkingDir(t *testing.T) {
	t.Parallel()

	paths, err := GetDefaultConfigPaths()
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
}
