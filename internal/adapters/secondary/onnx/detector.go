package onnx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// Options configures a YOLO detector backed by onnxruntime.
type Options struct {
	ModelPath     string
	LabelsPath    string
	SharedLibrary string
	InputSize     int
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
}

// runtime guards the process-wide onnxruntime environment shared by every
// detector.
var runtime struct {
	mu   sync.Mutex
	refs int
}

func acquireEnvironment(sharedLibrary string) error {
	runtime.mu.Lock()
	defer runtime.mu.Unlock()
	if runtime.refs == 0 && !ort.IsInitialized() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	runtime.refs++
	return nil
}

func releaseEnvironment() {
	runtime.mu.Lock()
	defer runtime.mu.Unlock()
	runtime.refs--
	if runtime.refs == 0 {
		if err := ort.DestroyEnvironment(); err != nil {
			log.WithError(err).Warn("Failed to destroy ONNX environment")
		}
	}
}

type detector struct {
	opts Options

	// mu serialises Run: the bound tensors are shared by every call.
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	// loaded is read without mu so readiness checks never wait on Run.
	loaded atomic.Bool

	inputSize int
	layout    headLayout
	anchors   int
	width     int
	labels    []string
}

var _ output.Detector = (*detector)(nil)

// NewDetector loads an exported YOLO graph. Class names come from the labels
// file when given, else from the graph metadata.
func NewDetector(opts Options) (output.Detector, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := acquireEnvironment(opts.SharedLibrary); err != nil {
		return nil, err
	}

	d := &detector{opts: opts}
	if err := d.load(); err != nil {
		d.destroyTensors()
		releaseEnvironment()
		return nil, err
	}
	d.loaded.Store(true)

	log.WithFields(log.Fields{
		"model":      opts.ModelPath,
		"input_size": d.inputSize,
		"layout":     d.layout.String(),
		"anchors":    d.anchors,
		"classes":    len(d.labels),
	}).Info("ONNX model loaded")
	return d, nil
}

func (d *detector) load() error {
	inputs, outputs, err := ort.GetInputOutputInfo(d.opts.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to read model io: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return fmt.Errorf("expected one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}

	d.labels, err = d.loadLabels()
	if err != nil {
		return err
	}

	d.inputSize = d.opts.InputSize
	if in := inputs[0].Dimensions; len(in) == 4 && in[2] > 0 && in[2] == in[3] {
		d.inputSize = int(in[2])
	}
	if d.inputSize <= 0 {
		return errors.New("model input size is unknown")
	}

	d.layout, d.anchors, d.width, err = detectLayout(outputs[0].Dimensions, len(d.labels))
	if err != nil {
		return err
	}

	d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(d.inputSize), int64(d.inputSize)))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	d.output, err = ort.NewEmptyTensor[float32](ort.NewShape(outputs[0].Dimensions...))
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	d.session, err = ort.NewAdvancedSession(d.opts.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{d.input}, []ort.ArbitraryTensor{d.output},
		nil)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return nil
}

func (d *detector) loadLabels() ([]string, error) {
	if d.opts.LabelsPath != "" {
		f, err := os.Open(d.opts.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open labels: %w", err)
		}
		defer f.Close()
		return readLabels(f)
	}

	meta, err := ort.GetModelMetadata(d.opts.ModelPath)
	if err != nil {
		log.WithError(err).Warn("Failed to read model metadata, using numeric class names")
		return nil, nil
	}
	defer meta.Destroy()

	names, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil || !ok {
		return nil, nil
	}
	return parseNames(names), nil
}

func (d *detector) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, domain.ErrInvalidImage
	}

	tensor, lb := letterboxImage(img, d.inputSize)

	d.mu.Lock()
	if !d.loaded.Load() {
		d.mu.Unlock()
		return nil, domain.ErrModelNotLoaded
	}
	copy(d.input.GetData(), tensor)
	if err := d.session.Run(); err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	raw := append([]float32(nil), d.output.GetData()...)
	d.mu.Unlock()

	candidates := decodeHead(raw, d.layout, d.anchors, d.width, d.opts.ConfThreshold)
	kept := nms(candidates, d.opts.IoUThreshold, d.opts.MaxDetections)

	dets := make([]domain.Detection, 0, len(kept))
	for _, k := range kept {
		k = lb.toSource(k)
		k.ClassName = className(d.labels, k.ClassID)
		dets = append(dets, k)
	}
	return dets, nil
}

func (d *detector) Name() string { return d.opts.ModelPath }

func (d *detector) Ready() bool { return d.loaded.Load() }

func (d *detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded.Swap(false) {
		return nil
	}
	d.destroyTensors()
	releaseEnvironment()
	return nil
}

func (d *detector) destroyTensors() {
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
}
