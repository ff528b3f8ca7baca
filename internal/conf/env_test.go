package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		validate func(string) error
		value    string
		wantErr  bool
	}{
		{"bool ok", validateEnvBool, "true", false},
		{"bool bad", validateEnvBool, "yes", true},
		{"threshold ok", validateEnvUnitFloat, "0.5", false},
		{"threshold high", validateEnvUnitFloat, "1.2", true},
		{"frameskip zero", validateEnvPositiveInt, "0", true},
		{"threads ok", validateEnvThreads, "4", false},
		{"threads negative", validateEnvThreads, "-1", true},
		{"port ok", validateEnvPort, "3306", false},
		{"port out of range", validateEnvPort, "70000", true},
		{"engine azure", validateEnvOCREngine, "AZURE", false},
		{"engine unknown", validateEnvOCREngine, "easyocr", true},
		{"regexp ok", validateEnvRegexp, `^[A-Z]{3}\d{3}$`, false},
		{"regexp bad", validateEnvRegexp, `(`, true},
		{"url ok", validateEnvURL, "tcp://broker:1883", false},
		{"url without scheme", validateEnvURL, "broker:1883", true},
		{"path traversal", validateEnvPath, "../models/plates.tflite", true},
		{"path ok", validateEnvPath, "models/plates.tflite", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBindEnvVarsOverridesDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("PLATEWATCH_CAMERA_FRAMESKIP", "5")

	defaultSettings(t)
	require.NoError(t, bindEnvVars())

	settings := &Settings{}
	require.NoError(t, viper.Unmarshal(settings))

	assert.Equal(t, "db.internal", settings.Output.MySQL.Host)
	assert.Equal(t, 5, settings.Camera.FrameSkip)
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	t.Setenv("PLATEWATCH_DETECTOR_THRESHOLD", "high")

	defaultSettings(t)
	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLATEWATCH_DETECTOR_THRESHOLD")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_NAME=registro\n"), 0o600))

	t.Chdir(dir)

	t.Setenv("DB_NAME", "")
	require.NoError(t, os.Unsetenv("DB_NAME"))

	require.NoError(t, loadDotEnv())
	assert.Equal(t, "registro", os.Getenv("DB_NAME"))
}
