package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	settings := defaultSettings(t)
	settings.Camera.FrameSkip = 0
	settings.Detector.Threshold = 1.5
	settings.OCR.Engine = "paddle"
	settings.Output.MySQL.Enabled = false

	err := ValidateSettings(settings)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 4)
}

func TestValidateOCRSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings OCRSettings
		wantErr  bool
	}{
		{
			name:     "tesseract defaults",
			settings: OCRSettings{Engine: "tesseract", Language: "eng", PageSegMode: 7},
		},
		{
			name:     "engine name is case insensitive",
			settings: OCRSettings{Engine: " Tesseract ", Language: "eng", PageSegMode: 7},
		},
		{
			name:     "azure without credentials",
			settings: OCRSettings{Engine: "azure"},
			wantErr:  true,
		},
		{
			name:     "azure with credentials",
			settings: OCRSettings{Engine: "azure", Azure: AzureOCRSettings{Endpoint: "https://x.cognitiveservices.azure.com/", Key: "k"}},
		},
		{
			name:     "bad plate format",
			settings: OCRSettings{Engine: "tesseract", Language: "eng", PlateFormat: "[A-Z"},
			wantErr:  true,
		},
		{
			name:     "page seg mode out of range",
			settings: OCRSettings{Engine: "tesseract", Language: "eng", PageSegMode: 14},
			wantErr:  true,
		},
		{
			name:     "confidence out of range",
			settings: OCRSettings{Engine: "tesseract", Language: "eng", MinConfidence: 2},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := tt.settings
			err := validateOCRSettings(&s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateOutputSettings(t *testing.T) {
	t.Parallel()

	assert.Error(t, validateOutputSettings(&OutputSettings{}), "no backend enabled")
	assert.Error(t, validateOutputSettings(&OutputSettings{SQLite: SQLiteSettings{Enabled: true}}), "sqlite without path")
	assert.NoError(t, validateOutputSettings(&OutputSettings{SQLite: SQLiteSettings{Enabled: true, Path: "plates.db"}}))
	assert.NoError(t, validateOutputSettings(&OutputSettings{
		SQLite: SQLiteSettings{Enabled: true, Path: "plates.db"},
		MySQL:  MySQLSettings{Enabled: true, Host: "db", Database: "placas_db", Username: "root"},
	}), "several backends only warn")
}

func TestValidateWebServerAndMQTT(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateWebServerSettings(&WebServerSettings{Enabled: false, Listen: "nonsense"}))
	assert.Error(t, validateWebServerSettings(&WebServerSettings{Enabled: true, Listen: "8080"}))
	assert.NoError(t, validateWebServerSettings(&WebServerSettings{Enabled: true, Listen: ":8080"}))

	assert.Error(t, validateMQTTSettings(&MQTTSettings{Enabled: true, Broker: "localhost", Topic: "t"}))
	assert.NoError(t, validateMQTTSettings(&MQTTSettings{Enabled: true, Broker: "tcp://localhost:1883", Topic: "t"}))
}

func TestValidateNotifySettings(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateNotifySettings(&NotifySettings{Enabled: false}))
	assert.Error(t, validateNotifySettings(&NotifySettings{Enabled: true}))
	assert.Error(t, validateNotifySettings(&NotifySettings{Enabled: true, URLs: []string{"ntfy.sh/plates"}}))
	assert.NoError(t, validateNotifySettings(&NotifySettings{Enabled: true, URLs: []string{"ntfy://ntfy.sh/plates"}}))
}
