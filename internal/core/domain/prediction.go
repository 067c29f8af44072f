package domain

import "math"

// Detection is a single object as a detector backend reports it, before it is
// reshaped into the public envelope. The box is in source-image pixels.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float64
	X1, Y1     float64
	X2, Y2     float64
}

// Width of the box; corner order is not assumed.
func (d Detection) Width() float64 { return math.Abs(d.X2 - d.X1) }

// Height of the box; corner order is not assumed.
func (d Detection) Height() float64 { return math.Abs(d.Y2 - d.Y1) }

// Area in square pixels.
func (d Detection) Area() float64 { return d.Width() * d.Height() }

// Normalized returns the detection with x1<=x2 and y1<=y2.
func (d Detection) Normalized() Detection {
	if d.X1 > d.X2 {
		d.X1, d.X2 = d.X2, d.X1
	}
	if d.Y1 > d.Y2 {
		d.Y1, d.Y2 = d.Y2, d.Y1
	}
	return d
}

// Box returns the corner box as [x1, y1, x2, y2].
func (d Detection) Box() Box {
	n := d.Normalized()
	return Box{n.X1, n.Y1, n.X2, n.Y2}
}

// Prediction is one entry of the Roboflow-style envelope. X and Y are the box
// centre.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// ImageInfo carries the decoded input dimensions.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PredictionResponse is the fixed envelope returned by POST /predict.
type PredictionResponse struct {
	Predictions []Prediction `json:"predictions"`
	Image       ImageInfo    `json:"image"`
}

// ToPrediction maps a native detection into the envelope entry.
func ToPrediction(d Detection) Prediction {
	n := d.Normalized()
	return Prediction{
		Class:      n.ClassName,
		Confidence: clamp01(n.Confidence),
		X:          (n.X1 + n.X2) / 2,
		Y:          (n.Y1 + n.Y2) / 2,
		Width:      n.X2 - n.X1,
		Height:     n.Y2 - n.Y1,
	}
}

// FromPrediction is the inverse of ToPrediction, used when a remote backend
// already speaks the envelope format.
func FromPrediction(p Prediction, classID int) Detection {
	w, h := math.Abs(p.Width), math.Abs(p.Height)
	return Detection{
		ClassID:    classID,
		ClassName:  p.Class,
		Confidence: p.Confidence,
		X1:         p.X - w/2,
		Y1:         p.Y - h/2,
		X2:         p.X + w/2,
		Y2:         p.Y + h/2,
	}
}

// NewPredictionResponse builds the envelope in detector output order.
// Predictions is never nil so it encodes as [].
func NewPredictionResponse(dets []Detection, width, height int) *PredictionResponse {
	preds := make([]Prediction, 0, len(dets))
	for _, d := range dets {
		preds = append(preds, ToPrediction(d))
	}
	return &PredictionResponse{
		Predictions: preds,
		Image:       ImageInfo{Width: width, Height: height},
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// BBox is a corner box in source-image pixels.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// DetectionItem is one entry of the upload envelope.
type DetectionItem struct {
	Class      int     `json:"class"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// DetectionResponse is returned by the multipart upload endpoint.
type DetectionResponse struct {
	Success        bool            `json:"success"`
	Detections     []DetectionItem `json:"detections"`
	DetectionCount int             `json:"detection_count"`
	ImageSize      ImageInfo       `json:"image_size"`
}

// ToDetectionItem maps a native detection into the upload envelope entry.
func ToDetectionItem(d Detection) DetectionItem {
	n := d.Normalized()
	return DetectionItem{
		Class:      n.ClassID,
		ClassName:  n.ClassName,
		Confidence: clamp01(n.Confidence),
		BBox:       BBox{X1: n.X1, Y1: n.Y1, X2: n.X2, Y2: n.Y2},
	}
}

// NewDetectionResponse builds the upload envelope in detector output order.
func NewDetectionResponse(dets []Detection, width, height int) *DetectionResponse {
	items := make([]DetectionItem, 0, len(dets))
	for _, d := range dets {
		items = append(items, ToDetectionItem(d))
	}
	return &DetectionResponse{
		Success:        true,
		Detections:     items,
		DetectionCount: len(items),
		ImageSize:      ImageInfo{Width: width, Height: height},
	}
}
