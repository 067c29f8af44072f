package onnx

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nfnt/resize"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

// Head layouts of exported YOLO graphs.
type headLayout int

const (
	// [1, 4+nc, N]: cx, cy, w, h followed by class scores, anchors last
	layoutV8 headLayout = iota
	// [1, N, 5+nc]: cx, cy, w, h, objectness, class scores
	layoutV5
)

func (l headLayout) String() string {
	if l == layoutV5 {
		return "yolov5"
	}
	return "yolov8"
}

// detectLayout picks the head layout from the output dims. numClasses may be
// zero when no labels are known.
func detectLayout(dims []int64, numClasses int) (layout headLayout, anchors, width int, err error) {
	if len(dims) == 2 {
		dims = append([]int64{1}, dims...)
	}
	if len(dims) != 3 || dims[0] != 1 || dims[1] <= 0 || dims[2] <= 0 {
		return 0, 0, 0, fmt.Errorf("unsupported output shape %v", dims)
	}
	a, b := int(dims[1]), int(dims[2])

	switch {
	case numClasses > 0 && a == 4+numClasses:
		return layoutV8, b, a, nil
	case numClasses > 0 && b == 5+numClasses:
		return layoutV5, a, b, nil
	case a < b && a > 4:
		return layoutV8, b, a, nil
	case b > 5:
		return layoutV5, a, b, nil
	}
	return 0, 0, 0, fmt.Errorf("cannot infer head layout from output shape %v", dims)
}

// decodeHead turns the raw output tensor into candidate detections in model
// input space, keeping those with score >= confThreshold.
func decodeHead(data []float32, layout headLayout, anchors, width int, confThreshold float64) []domain.Detection {
	var dets []domain.Detection

	at := func(anchor, field int) float64 {
		if layout == layoutV8 {
			return float64(data[field*anchors+anchor])
		}
		return float64(data[anchor*width+field])
	}

	firstClass, numClasses := 4, width-4
	if layout == layoutV5 {
		firstClass, numClasses = 5, width-5
	}

	for i := 0; i < anchors; i++ {
		obj := 1.0
		if layout == layoutV5 {
			obj = at(i, 4)
			if obj < confThreshold {
				continue
			}
		}

		best, bestScore := -1, 0.0
		for c := 0; c < numClasses; c++ {
			if s := at(i, firstClass+c); best < 0 || s > bestScore {
				best, bestScore = c, s
			}
		}
		score := bestScore * obj
		if best < 0 || score < confThreshold {
			continue
		}

		cx, cy, w, h := at(i, 0), at(i, 1), at(i, 2), at(i, 3)
		dets = append(dets, domain.Detection{
			ClassID:    best,
			Confidence: score,
			X1:         cx - w/2,
			Y1:         cy - h/2,
			X2:         cx + w/2,
			Y2:         cy + h/2,
		})
	}
	return dets
}

// nms runs class-wise non-maximum suppression. The result is sorted by
// descending confidence and capped at maxDet when maxDet > 0.
func nms(dets []domain.Detection, iouThreshold float64, maxDet int) []domain.Detection {
	sorted := append([]domain.Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]domain.Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i, d := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, d)
		if maxDet > 0 && len(kept) == maxDet {
			break
		}
		for j := i + 1; j < len(sorted); j++ {
			if !suppressed[j] && sorted[j].ClassID == d.ClassID && d.Box().IoU(sorted[j].Box()) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// letterbox records how a source image was fitted into the square model
// input.
type letterbox struct {
	scale      float64
	padX, padY float64
	srcW, srcH int
}

var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// letterboxImage resizes img to fit size×size keeping the aspect ratio, pads
// the rest with gray and returns the CHW float tensor scaled to [0,1].
func letterboxImage(img image.Image, size int) ([]float32, letterbox) {
	b := img.Bounds()
	lb := letterbox{srcW: b.Dx(), srcH: b.Dy()}
	lb.scale = math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))

	nw := max(1, int(math.Round(float64(b.Dx())*lb.scale)))
	nh := max(1, int(math.Round(float64(b.Dy())*lb.scale)))
	lb.padX = float64(size-nw) / 2
	lb.padY = float64(size-nh) / 2

	resized := resize.Resize(uint(nw), uint(nh), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padColor}, image.Point{}, draw.Src)
	offset := image.Pt(int(lb.padX), int(lb.padY))
	draw.Draw(canvas, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(nw, nh))}, resized, resized.Bounds().Min, draw.Src)

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < size; x++ {
			p := y*size + x
			data[p] = float32(row[4*x]) / 255
			data[plane+p] = float32(row[4*x+1]) / 255
			data[2*plane+p] = float32(row[4*x+2]) / 255
		}
	}
	return data, lb
}

// toSource maps a detection from model input space back to source pixels,
// clipped to the image.
func (lb letterbox) toSource(d domain.Detection) domain.Detection {
	clip := func(v float64, limit int) float64 {
		return math.Max(0, math.Min(v, float64(limit)))
	}
	d.X1 = clip((d.X1-float64(int(lb.padX)))/lb.scale, lb.srcW)
	d.Y1 = clip((d.Y1-float64(int(lb.padY)))/lb.scale, lb.srcH)
	d.X2 = clip((d.X2-float64(int(lb.padX)))/lb.scale, lb.srcW)
	d.Y2 = clip((d.Y2-float64(int(lb.padY)))/lb.scale, lb.srcH)
	return d
}

// readLabels reads one class name per line; blank lines are skipped.
func readLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			labels = append(labels, l)
		}
	}
	return labels, sc.Err()
}

var namesEntry = regexp.MustCompile(`(\d+)\s*:\s*(?:'([^']*)'|"([^"]*)")`)

// parseNames parses the "names" metadata Ultralytics embeds in exported
// graphs, e.g. {0: 'dent', 1: 'scratch'}.
func parseNames(s string) []string {
	matches := namesEntry.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	byID := make(map[int]string, len(matches))
	maxID := -1
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		name := m[2]
		if name == "" {
			name = m[3]
		}
		byID[id] = name
		maxID = max(maxID, id)
	}
	names := make([]string, maxID+1)
	for i := range names {
		if n, ok := byID[i]; ok {
			names[i] = n
		} else {
			names[i] = className(nil, i)
		}
	}
	return names
}

func className(labels []string, id int) string {
	if id >= 0 && id < len(labels) && labels[id] != "" {
		return labels[id]
	}
	return "class_" + strconv.Itoa(id)
}
