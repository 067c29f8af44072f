package ports

import (
	"context"
	"image"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

// Detector defines the contract for an object-detection model, whichever
// runtime hosts it.
type Detector interface {
	// Detect runs inference on a decoded image and returns detections in the
	// model's output order, boxes in source-image pixels.
	Detect(ctx context.Context, img image.Image) ([]domain.Detection, error)

	// Name identifies the model (file path, URL or InferenceService name)
	Name() string

	// Ready reports whether the model is loaded and can serve requests
	Ready() bool

	// Close releases runtime resources
	Close() error
}

// DetectorSet maps pipeline roles to detectors.
type DetectorSet map[string]Detector

// Missing returns the roles in want that have no ready detector.
func (s DetectorSet) Missing(want []string) []string {
	var missing []string
	for _, name := range want {
		d, ok := s[name]
		if !ok || d == nil || !d.Ready() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Close closes every detector in the set.
func (s DetectorSet) Close() {
	for _, d := range s {
		if d != nil {
			_ = d.Close()
		}
	}
}
