package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Model      ModelConfig
	Kubernetes KubernetesConfig
	Assessment AssessmentConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	MaxImagePixels  int64
	AllowedOrigins  []string
}

type LoggerConfig struct {
	Level  string
	Format string
}

// ModelConfig selects and tunes the detector backend.
type ModelConfig struct {
	// Backend is one of onnx, remote or kserve
	Backend       string
	Path          string
	LabelsPath    string
	OrtLibrary    string
	InputSize     int
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
	RemoteURL     string
	Timeout       time.Duration
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
	// InferenceService is the KServe InferenceService hosting the gateway model
	InferenceService string
}

// AssessmentConfig drives the damage pipeline of the assessment API.
type AssessmentConfig struct {
	ModelsBasePath    string
	ModelFile         string
	RemoteURLTemplate string
	ISVCPrefix        string
	MaxPhotos         int
	IoUThreshold      float64
	PhotoTimeout      time.Duration
	StatusTTL         time.Duration
	MaxStatuses       int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from defaults, an optional CONFIG_FILE and the
// environment. defaultPort is used when neither PORT nor SERVER_PORT is set.
func Load(defaultPort int) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", defaultPort)
	v.SetDefault("SERVER_READ_TIMEOUT", "60s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "120s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MAX_BODY_BYTES", 20<<20)
	v.SetDefault("MAX_IMAGE_PIXELS", 50_000_000)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("MODEL_BACKEND", "onnx")
	v.SetDefault("MODEL_PATH", "handle_best.onnx")
	v.SetDefault("MODEL_LABELS_PATH", "")
	v.SetDefault("ONNXRUNTIME_LIB", "")
	v.SetDefault("MODEL_INPUT_SIZE", 640)
	v.SetDefault("MODEL_CONF_THRESHOLD", 0.25)
	v.SetDefault("MODEL_IOU_THRESHOLD", 0.7)
	v.SetDefault("MODEL_MAX_DETECTIONS", 300)
	v.SetDefault("MODEL_REMOTE_URL", "")
	v.SetDefault("MODEL_TIMEOUT", "60s")

	v.SetDefault("K8S_ENABLED", false)
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_KUBECONFIG", "")
	v.SetDefault("K8S_NAMESPACE", "model-serving")
	v.SetDefault("K8S_INFERENCE_SERVICE", "")

	v.SetDefault("MODELS_BASE_PATH", "./models")
	v.SetDefault("MODELS_FILE", "best.onnx")
	v.SetDefault("MODELS_REMOTE_URL_TEMPLATE", "")
	v.SetDefault("MODELS_ISVC_PREFIX", "yolo-")
	v.SetDefault("ASSESSMENT_MAX_PHOTOS", 10)
	v.SetDefault("ASSESSMENT_IOU_THRESHOLD", 0.5)
	v.SetDefault("ASSESSMENT_PHOTO_TIMEOUT", "60s")
	v.SetDefault("ASSESSMENT_STATUS_TTL", "24h")
	v.SetDefault("ASSESSMENT_MAX_STATUSES", 1000)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	// Env
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("CONFIG_FILE")

	// Optional file, same keys as the environment. Env still wins.
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	port := v.GetInt("SERVER_PORT")
	if p := v.GetInt("PORT"); p > 0 {
		// Render and most PaaS inject PORT
		port = p
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            port,
			ReadTimeout:     durationOr(v, "SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    durationOr(v, "SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: durationOr(v, "SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),
			MaxImagePixels:  v.GetInt64("MAX_IMAGE_PIXELS"),
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Model: ModelConfig{
			Backend:       strings.ToLower(v.GetString("MODEL_BACKEND")),
			Path:          v.GetString("MODEL_PATH"),
			LabelsPath:    v.GetString("MODEL_LABELS_PATH"),
			OrtLibrary:    v.GetString("ONNXRUNTIME_LIB"),
			InputSize:     v.GetInt("MODEL_INPUT_SIZE"),
			ConfThreshold: v.GetFloat64("MODEL_CONF_THRESHOLD"),
			IoUThreshold:  v.GetFloat64("MODEL_IOU_THRESHOLD"),
			MaxDetections: v.GetInt("MODEL_MAX_DETECTIONS"),
			RemoteURL:     v.GetString("MODEL_REMOTE_URL"),
			Timeout:       durationOr(v, "MODEL_TIMEOUT", 60*time.Second),
		},
		Kubernetes: KubernetesConfig{
			Enabled:          v.GetBool("K8S_ENABLED"),
			InCluster:        v.GetBool("K8S_IN_CLUSTER"),
			KubeConfigPath:   v.GetString("K8S_KUBECONFIG"),
			DefaultNS:        v.GetString("K8S_NAMESPACE"),
			InferenceService: v.GetString("K8S_INFERENCE_SERVICE"),
		},
		Assessment: AssessmentConfig{
			ModelsBasePath:    v.GetString("MODELS_BASE_PATH"),
			ModelFile:         v.GetString("MODELS_FILE"),
			RemoteURLTemplate: v.GetString("MODELS_REMOTE_URL_TEMPLATE"),
			ISVCPrefix:        v.GetString("MODELS_ISVC_PREFIX"),
			MaxPhotos:         v.GetInt("ASSESSMENT_MAX_PHOTOS"),
			IoUThreshold:      v.GetFloat64("ASSESSMENT_IOU_THRESHOLD"),
			PhotoTimeout:      durationOr(v, "ASSESSMENT_PHOTO_TIMEOUT", 60*time.Second),
			StatusTTL:         durationOr(v, "ASSESSMENT_STATUS_TTL", 24*time.Hour),
			MaxStatuses:       v.GetInt("ASSESSMENT_MAX_STATUSES"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Model.Backend {
	case "onnx", "remote", "kserve":
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q", c.Model.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.Server.MaxImagePixels)
	}
	if c.Model.ConfThreshold < 0 || c.Model.ConfThreshold > 1 {
		return fmt.Errorf("MODEL_CONF_THRESHOLD must be within [0,1], got %v", c.Model.ConfThreshold)
	}
	return nil
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
