package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// InferenceService runs the gateway model on base64 images and reshapes the
// output into the prediction envelope.
type InferenceService struct {
	detector output.Detector
	metrics  output.MetricsRecorder
	opts     InferenceOptions
}

// InferenceOptions bounds the images the gateway accepts.
type InferenceOptions struct {
	// MaxImagePixels defaults to DefaultMaxImagePixels
	MaxImagePixels int64
}

// NewInferenceService creates a new InferenceService. detector may be nil when
// the model failed to load.
func NewInferenceService(detector output.Detector, metrics output.MetricsRecorder, opts InferenceOptions) *InferenceService {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	if opts.MaxImagePixels <= 0 {
		opts.MaxImagePixels = DefaultMaxImagePixels
	}
	return &InferenceService{detector: detector, metrics: metrics, opts: opts}
}

// ModelLoaded reports whether the detector can serve requests.
func (s *InferenceService) ModelLoaded() bool {
	return s.detector != nil && s.detector.Ready()
}

// ModelPath returns the configured model name, empty when none is set.
func (s *InferenceService) ModelPath() string {
	if s.detector == nil {
		return ""
	}
	return s.detector.Name()
}

// Predict decodes a base64 image and runs the detector on it.
func (s *InferenceService) Predict(ctx context.Context, payload string) (*domain.PredictionResponse, error) {
	img, err := DecodeImage(payload, s.opts.MaxImagePixels)
	if err != nil {
		return nil, err
	}
	dets, err := s.detect(ctx, img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return domain.NewPredictionResponse(dets, b.Dx(), b.Dy()), nil
}

// PredictUpload runs the detector on an uploaded image file. Translucent
// images are flattened onto white first.
func (s *InferenceService) PredictUpload(ctx context.Context, data []byte) (*domain.DetectionResponse, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoImageData
	}
	img, err := DecodeImageBytes(data, s.opts.MaxImagePixels)
	if err != nil {
		return nil, err
	}
	img = FlattenAlpha(img)
	dets, err := s.detect(ctx, img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return domain.NewDetectionResponse(dets, b.Dx(), b.Dy()), nil
}

func (s *InferenceService) detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	if !s.ModelLoaded() {
		return nil, domain.ErrModelNotLoaded
	}

	bounds := img.Bounds()
	start := time.Now()
	dets, err := s.detector.Detect(ctx, img)
	s.metrics.ObserveInference(s.detector.Name(), time.Since(start), len(dets), err)
	if err != nil {
		log.WithError(err).WithField("model", s.detector.Name()).Error("Inference failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceFailed, err)
	}

	log.WithFields(log.Fields{
		"model":      s.detector.Name(),
		"detections": len(dets),
		"width":      bounds.Dx(),
		"height":     bounds.Dy(),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Inference done")

	return dets, nil
}

// DecodeImage turns a base64 payload into an image. A data URI prefix and any
// whitespace are ignored; standard and URL alphabets, padded or not, are
// accepted. maxPixels is passed to DecodeImageBytes.
func DecodeImage(payload string, maxPixels int64) (image.Image, error) {
	raw, err := DecodeBase64(payload)
	if err != nil {
		return nil, err
	}
	return DecodeImageBytes(raw, maxPixels)
}

// DecodeBase64 decodes the lenient base64 framing accepted by /predict.
func DecodeBase64(payload string) ([]byte, error) {
	s := strings.TrimSpace(payload)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, domain.ErrInvalidBase64
		}
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, domain.ErrNoImageData
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, domain.ErrInvalidBase64
}
