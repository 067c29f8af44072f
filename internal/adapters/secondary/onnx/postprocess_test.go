package onnx

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

func TestDetectLayout(t *testing.T) {
	tests := []struct {
		name       string
		dims       []int64
		numClasses int
		layout     headLayout
		anchors    int
		width      int
		wantErr    bool
	}{
		{"v8 with labels", []int64{1, 6, 8400}, 2, layoutV8, 8400, 6, false},
		{"v5 with labels", []int64{1, 25200, 7}, 2, layoutV5, 25200, 7, false},
		{"v8 without labels", []int64{1, 84, 8400}, 0, layoutV8, 8400, 84, false},
		{"v5 without labels", []int64{1, 25200, 85}, 0, layoutV5, 25200, 85, false},
		{"batchless", []int64{6, 8400}, 2, layoutV8, 8400, 6, false},
		{"dynamic", []int64{1, -1, 8400}, 0, 0, 0, 0, true},
		{"wrong rank", []int64{1, 3, 640, 640}, 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, anchors, width, err := detectLayout(tt.dims, tt.numClasses)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.layout, layout)
			assert.Equal(t, tt.anchors, anchors)
			assert.Equal(t, tt.width, width)
		})
	}
}

func TestDecodeHead_V8(t *testing.T) {
	// 3 anchors, 2 classes, channel-major rows: cx, cy, w, h, c0, c1
	data := []float32{
		50, 200, 10,
		50, 200, 10,
		20, 40, 4,
		10, 40, 4,
		0.9, 0.1, 0.05,
		0.2, 0.7, 0.1,
	}
	dets := decodeHead(data, layoutV8, 3, 6, 0.25)

	require.Len(t, dets, 2)
	assert.Equal(t, 0, dets[0].ClassID)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.Equal(t, domain.Detection{ClassID: 0, Confidence: dets[0].Confidence, X1: 40, Y1: 45, X2: 60, Y2: 55}, dets[0])
	assert.Equal(t, 1, dets[1].ClassID)
	assert.InDelta(t, 0.7, dets[1].Confidence, 1e-6)
}

func TestDecodeHead_V5(t *testing.T) {
	// 2 anchors, row-major: cx, cy, w, h, obj, c0, c1
	data := []float32{
		100, 100, 20, 20, 0.5, 0.2, 0.9,
		10, 10, 4, 4, 0.1, 0.9, 0.9,
	}
	dets := decodeHead(data, layoutV5, 2, 7, 0.25)

	require.Len(t, dets, 1)
	assert.Equal(t, 1, dets[0].ClassID)
	assert.InDelta(t, 0.45, dets[0].Confidence, 1e-6)
	assert.InDelta(t, 90, dets[0].X1, 1e-6)
	assert.InDelta(t, 110, dets[0].Y2, 1e-6)
}

func TestNMS(t *testing.T) {
	dets := []domain.Detection{
		{ClassID: 0, Confidence: 0.6, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.9, X1: 1, Y1: 1, X2: 11, Y2: 11},
		{ClassID: 1, Confidence: 0.8, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.5, X1: 50, Y1: 50, X2: 60, Y2: 60},
	}

	kept := nms(dets, 0.5, 0)
	require.Len(t, kept, 3)
	assert.InDelta(t, 0.9, kept[0].Confidence, 1e-9)
	assert.Equal(t, 1, kept[1].ClassID)
	assert.InDelta(t, 0.5, kept[2].Confidence, 1e-9)

	assert.Len(t, nms(dets, 0.5, 2), 2)
	assert.Empty(t, nms(nil, 0.5, 0))
}

func TestLetterbox(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	data, lb := letterboxImage(img, 64)

	assert.Len(t, data, 3*64*64)
	assert.InDelta(t, 0.32, lb.scale, 1e-9)
	assert.InDelta(t, 0, lb.padX, 1e-9)
	assert.InDelta(t, 16, lb.padY, 1e-9)
	// Padding rows carry the gray fill.
	assert.InDelta(t, 114.0/255.0, data[0], 1e-6)

	src := lb.toSource(domain.Detection{X1: 0, Y1: 16, X2: 32, Y2: 48})
	assert.InDelta(t, 0, src.X1, 1e-6)
	assert.InDelta(t, 0, src.Y1, 1e-6)
	assert.InDelta(t, 100, src.X2, 1e-6)
	assert.InDelta(t, 100, src.Y2, 1e-6)

	clipped := lb.toSource(domain.Detection{X1: -10, Y1: 0, X2: 80, Y2: 64})
	assert.Zero(t, clipped.X1)
	assert.InDelta(t, 200, clipped.X2, 1e-6)
	assert.InDelta(t, 100, clipped.Y2, 1e-6)
}

func TestLabels(t *testing.T) {
	labels, err := readLabels(strings.NewReader("dent\n\n  scratch \nwindshield-crack\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dent", "scratch", "windshield-crack"}, labels)

	names := parseNames(`{0: 'dent', 1: "scratch", 3: 'tire'}`)
	assert.Equal(t, []string{"dent", "scratch", "class_2", "tire"}, names)
	assert.Nil(t, parseNames("not a map"))

	assert.Equal(t, "scratch", className(labels, 1))
	assert.Equal(t, "class_7", className(labels, 7))
	assert.Equal(t, "class_0", className(nil, 0))
}
