package detectors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/kserve"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/onnx"
	"github.com/Icestreamm/baseer-backend/internal/adapters/secondary/remote"
	"github.com/Icestreamm/baseer-backend/internal/config"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

const predictPath = "/predict"

// Factory builds detectors for the configured backend.
type Factory struct {
	cfg    *config.Config
	kserve output.KServeClient

	newONNX func(onnx.Options) (output.Detector, error)
}

// NewFactory creates a Factory. The KServe client is only built for the kserve
// backend.
func NewFactory(cfg *config.Config) (*Factory, error) {
	f := &Factory{cfg: cfg, newONNX: onnx.NewDetector}
	if cfg.Model.Backend == "kserve" {
		k8sCfg := cfg.Kubernetes
		k8sCfg.Enabled = true
		client, err := kserve.NewKServeClient(&k8sCfg)
		if err != nil {
			return nil, err
		}
		f.kserve = client
	}
	return f, nil
}

// NewFactoryWithKServe is NewFactory with an existing KServe client.
func NewFactoryWithKServe(cfg *config.Config, client output.KServeClient) *Factory {
	return &Factory{cfg: cfg, kserve: client, newONNX: onnx.NewDetector}
}

// Gateway builds the single model served by the inference gateway.
func (f *Factory) Gateway() (output.Detector, error) {
	m := f.cfg.Model
	switch m.Backend {
	case "onnx":
		return f.newONNX(f.onnxOptions(m.Path, m.LabelsPath))
	case "remote":
		if m.RemoteURL == "" {
			return nil, fmt.Errorf("MODEL_REMOTE_URL is required for the remote backend")
		}
		return remote.NewDetector(remote.Options{
			Name:     m.RemoteURL,
			Resolver: remote.StaticEndpoint(m.RemoteURL),
			Timeout:  m.Timeout,
		}), nil
	case "kserve":
		name := f.cfg.Kubernetes.InferenceService
		if name == "" {
			return nil, fmt.Errorf("K8S_INFERENCE_SERVICE is required for the kserve backend")
		}
		return f.kserveDetector(name), nil
	}
	return nil, fmt.Errorf("unknown model backend %q", m.Backend)
}

// Assessment builds one detector per pipeline role. Roles that fail to load
// are logged and left out of the set.
func (f *Factory) Assessment(roles []string) output.DetectorSet {
	set := output.DetectorSet{}
	for _, role := range roles {
		d, err := f.assessmentDetector(role)
		if err != nil {
			log.WithError(err).WithField("model", role).Warn("Failed to load model")
			continue
		}
		set[role] = d
		log.WithFields(log.Fields{"model": role, "name": d.Name()}).Info("Model ready")
	}
	return set
}

func (f *Factory) assessmentDetector(role string) (output.Detector, error) {
	a := f.cfg.Assessment
	switch f.cfg.Model.Backend {
	case "onnx":
		dir := filepath.Join(a.ModelsBasePath, role)
		labels := filepath.Join(dir, "labels.txt")
		if !fileExists(labels) {
			labels = ""
		}
		return f.newONNX(f.onnxOptions(filepath.Join(dir, a.ModelFile), labels))
	case "remote":
		if a.RemoteURLTemplate == "" {
			return nil, fmt.Errorf("MODELS_REMOTE_URL_TEMPLATE is required for the remote backend")
		}
		url := strings.ReplaceAll(a.RemoteURLTemplate, "{model}", role)
		return remote.NewDetector(remote.Options{
			Name:     role,
			Resolver: remote.StaticEndpoint(url),
			Timeout:  f.cfg.Model.Timeout,
		}), nil
	case "kserve":
		return f.kserveDetector(ISVCName(a.ISVCPrefix, role)), nil
	}
	return nil, fmt.Errorf("unknown model backend %q", f.cfg.Model.Backend)
}

func (f *Factory) kserveDetector(isvc string) output.Detector {
	return remote.NewDetector(remote.Options{
		Name:     isvc,
		Resolver: kserve.NewResolver(f.kserve, f.cfg.Kubernetes.DefaultNS, isvc, 0),
		Path:     predictPath,
		Timeout:  f.cfg.Model.Timeout,
	})
}

func (f *Factory) onnxOptions(path, labels string) onnx.Options {
	m := f.cfg.Model
	return onnx.Options{
		ModelPath:     path,
		LabelsPath:    labels,
		SharedLibrary: m.OrtLibrary,
		InputSize:     m.InputSize,
		ConfThreshold: m.ConfThreshold,
		IoUThreshold:  m.IoUThreshold,
		MaxDetections: m.MaxDetections,
	}
}

// ISVCName derives a DNS-1123 InferenceService name from a pipeline role.
func ISVCName(prefix, role string) string {
	return strings.ToLower(prefix + strings.ReplaceAll(role, "_", "-"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
