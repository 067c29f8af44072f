package domain

import "math"

// Box is an axis-aligned corner box [x1, y1, x2, y2] in pixels.
type Box [4]float64

func (b Box) Width() float64  { return b[2] - b[0] }
func (b Box) Height() float64 { return b[3] - b[1] }
func (b Box) Area() float64   { return b.Width() * b.Height() }

// Intersection returns the overlapping area of two boxes, 0 when disjoint.
func (b Box) Intersection(o Box) float64 {
	xi1 := math.Max(b[0], o[0])
	yi1 := math.Max(b[1], o[1])
	xi2 := math.Min(b[2], o[2])
	yi2 := math.Min(b[3], o[3])
	return math.Max(0, xi2-xi1) * math.Max(0, yi2-yi1)
}

// IoU is intersection over union; 0 when the union is empty.
func (b Box) IoU(o Box) float64 {
	inter := b.Intersection(o)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// MeanBox averages boxes coordinate-wise.
func MeanBox(boxes []Box) Box {
	var m Box
	if len(boxes) == 0 {
		return m
	}
	for _, b := range boxes {
		for i := range m {
			m[i] += b[i]
		}
	}
	n := float64(len(boxes))
	for i := range m {
		m[i] /= n
	}
	return m
}
