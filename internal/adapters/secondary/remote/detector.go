package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

const maxResponseBytes = 10 << 20

// Options configures a detector that forwards images to a Roboflow-compatible
// HTTP endpoint.
type Options struct {
	Name     string
	Resolver output.EndpointResolver
	// Path is appended to the resolved endpoint, e.g. "/predict"
	Path    string
	Timeout time.Duration
	Client  *http.Client
}

type detector struct {
	name     string
	resolver output.EndpointResolver
	path     string
	client   *http.Client
}

var _ output.Detector = (*detector)(nil)

// NewDetector creates a remote detector.
func NewDetector(opts Options) output.Detector {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &detector{
		name:     opts.Name,
		resolver: opts.Resolver,
		path:     opts.Path,
		client:   client,
	}
}

func (d *detector) Name() string { return d.name }

func (d *detector) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := d.resolver.Endpoint(ctx)
	return err == nil
}

func (d *detector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// Detect JPEG-encodes img and posts it as raw base64, the way Roboflow hosted
// models are called.
func (d *detector) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	endpoint, err := d.resolver.Endpoint(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	payload := base64.StdEncoding.EncodeToString(buf.Bytes())

	url := strings.TrimRight(endpoint, "/") + d.path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, msg)
	}

	return ParsePredictions(body)
}

// ParsePredictions reads the predictions of a Roboflow-style envelope.
// Entries missing a class_id get their index among distinct class names.
func ParsePredictions(body []byte) ([]domain.Detection, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	preds := gjson.GetBytes(body, "predictions")
	if !preds.IsArray() {
		return nil, fmt.Errorf("response has no predictions array")
	}

	classIDs := map[string]int{}
	dets := make([]domain.Detection, 0, len(preds.Array()))
	preds.ForEach(func(_, v gjson.Result) bool {
		p := domain.Prediction{
			Class:      v.Get("class").String(),
			Confidence: v.Get("confidence").Float(),
			X:          v.Get("x").Float(),
			Y:          v.Get("y").Float(),
			Width:      v.Get("width").Float(),
			Height:     v.Get("height").Float(),
		}
		id, seen := classIDs[p.Class]
		if cid := v.Get("class_id"); cid.Exists() {
			id = int(cid.Int())
		} else if !seen {
			id = len(classIDs)
		}
		classIDs[p.Class] = id
		dets = append(dets, domain.FromPrediction(p, id))
		return true
	})
	return dets, nil
}
