package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(5000)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, int64(50_000_000), cfg.Server.MaxImagePixels)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "onnx", cfg.Model.Backend)
	assert.Equal(t, "handle_best.onnx", cfg.Model.Path)
	assert.Equal(t, 640, cfg.Model.InputSize)
	assert.Equal(t, 0.25, cfg.Model.ConfThreshold)
	assert.Equal(t, 10, cfg.Assessment.MaxPhotos)
	assert.Equal(t, 24*time.Hour, cfg.Assessment.StatusTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("MODEL_BACKEND", "Remote")
	t.Setenv("MODEL_REMOTE_URL", "https://detect.roboflow.com/handles/1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ASSESSMENT_STATUS_TTL", "90m")
	t.Setenv("MODEL_TIMEOUT", "not-a-duration")
	t.Setenv("MAX_IMAGE_PIXELS", "1000000")

	cfg, err := Load(8000)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "remote", cfg.Model.Backend)
	assert.Equal(t, "https://detect.roboflow.com/handles/1", cfg.Model.RemoteURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 90*time.Minute, cfg.Assessment.StatusTTL)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout)
	assert.Equal(t, int64(1_000_000), cfg.Server.MaxImagePixels)
}

func TestLoad_PortOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("PORT", "10000")

	cfg, err := Load(8000)
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("MODEL_PATH: /models/handle.onnx\nLOGGER_LEVEL: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOGGER_LEVEL", "warn")

	cfg, err := Load(8000)
	require.NoError(t, err)

	assert.Equal(t, "/models/handle.onnx", cfg.Model.Path)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"MODEL_BACKEND": "tflite"}},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}},
		{"bad confidence", map[string]string{"MODEL_CONF_THRESHOLD": "1.5"}},
		{"zero pixel limit", map[string]string{"MAX_IMAGE_PIXELS": "0"}},
		{"missing config file", map[string]string{"CONFIG_FILE": "/nonexistent/config.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(8000)
			assert.Error(t, err)
		})
	}
}
