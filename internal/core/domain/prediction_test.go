package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPrediction(t *testing.T) {
	tests := []struct {
		name string
		in   Detection
		want Prediction
	}{
		{
			name: "ordered corners",
			in:   Detection{ClassName: "dent", Confidence: 0.5, X1: 10, Y1: 20, X2: 30, Y2: 60},
			want: Prediction{Class: "dent", Confidence: 0.5, X: 20, Y: 40, Width: 20, Height: 40},
		},
		{
			name: "swapped corners",
			in:   Detection{ClassName: "dent", Confidence: 0.5, X1: 30, Y1: 60, X2: 10, Y2: 20},
			want: Prediction{Class: "dent", Confidence: 0.5, X: 20, Y: 40, Width: 20, Height: 40},
		},
		{
			name: "confidence above one",
			in:   Detection{ClassName: "a", Confidence: 1.7, X2: 1, Y2: 1},
			want: Prediction{Class: "a", Confidence: 1, X: 0.5, Y: 0.5, Width: 1, Height: 1},
		},
		{
			name: "negative confidence",
			in:   Detection{ClassName: "a", Confidence: -0.1},
			want: Prediction{Class: "a"},
		},
		{
			name: "nan confidence",
			in:   Detection{ClassName: "a", Confidence: math.NaN()},
			want: Prediction{Class: "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPrediction(tt.in))
		})
	}
}

func TestFromPrediction_RoundTrip(t *testing.T) {
	d := Detection{ClassID: 3, ClassName: "scratch", Confidence: 0.7, X1: 5, Y1: 15, X2: 45, Y2: 35}
	back := FromPrediction(ToPrediction(d), 3)
	assert.Equal(t, d, back)
}

func TestNewPredictionResponse_Envelope(t *testing.T) {
	resp := NewPredictionResponse(nil, 640, 480)
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[],"image":{"width":640,"height":480}}`, string(body))

	resp = NewPredictionResponse([]Detection{
		{ClassName: "b", Confidence: 0.4, X1: 0, Y1: 0, X2: 2, Y2: 4},
		{ClassName: "a", Confidence: 0.9, X1: 0, Y1: 0, X2: 2, Y2: 2},
	}, 10, 10)
	require.Len(t, resp.Predictions, 2)
	// Detector order is kept.
	assert.Equal(t, "b", resp.Predictions[0].Class)
	assert.Equal(t, "a", resp.Predictions[1].Class)

	body, err = json.Marshal(resp.Predictions[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"class":"b","confidence":0.4,"x":1,"y":2,"width":2,"height":4}`, string(body))
}

func TestNewDetectionResponse_Envelope(t *testing.T) {
	resp := NewDetectionResponse(nil, 320, 200)
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"detections":[],"detection_count":0,"image_size":{"width":320,"height":200}}`, string(body))

	resp = NewDetectionResponse([]Detection{
		{ClassID: 2, ClassName: "handle", Confidence: 0.8, X1: 40, Y1: 30, X2: 10, Y2: 20},
	}, 100, 100)
	require.Equal(t, 1, resp.DetectionCount)

	body, err = json.Marshal(resp.Detections[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"class":2,"class_name":"handle","confidence":0.8,"bbox":{"x1":10,"y1":20,"x2":40,"y2":30}}`, string(body))
}
