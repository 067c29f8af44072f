package domain

import "strings"

// Consensus labels.
const (
	ConsensusWindshield = "Windshield"
	ConsensusLight      = "Light"
	ConsensusDamage     = "Damage"
)

// DefaultConsensusIoU is the overlap two boxes need to count as the same damage.
const DefaultConsensusIoU = 0.5

// ConsensusItem is a damage region that at least two detections agree on.
type ConsensusItem struct {
	Box           Box     `json:"xyxy"`
	Confidence    float64 `json:"conf"`
	ClassID       int     `json:"cls"`
	DetectedClass string  `json:"detected_class"`
	IsWindshield  bool    `json:"is_windshield"`
	IsLight       bool    `json:"is_light"`
	Votes         int     `json:"votes"`
}

// Area in square pixels.
func (c ConsensusItem) Area() float64 { return c.Box.Area() }

// MultiModelConsensus pools the detections of several damage models and keeps
// only regions at least two of them agree on. Boxes are matched greedily in
// pool order by IoU above the threshold.
func MultiModelConsensus(results [][]Detection, iouThreshold float64) []ConsensusItem {
	var pool []Detection
	for _, dets := range results {
		for _, d := range dets {
			pool = append(pool, d.Normalized())
		}
	}

	consensus := []ConsensusItem{}
	used := make([]bool, len(pool))

	for i, b1 := range pool {
		if used[i] {
			continue
		}
		matches := []Detection{b1}
		for j, b2 := range pool {
			if i == j || used[j] {
				continue
			}
			if b1.Box().IoU(b2.Box()) > iouThreshold {
				matches = append(matches, b2)
				used[j] = true
			}
		}
		used[i] = true

		if len(matches) < 2 {
			continue
		}

		boxes := make([]Box, len(matches))
		var confSum float64
		var windshield, light, other int
		for k, m := range matches {
			boxes[k] = m.Box()
			confSum += m.Confidence
			name := strings.ToLower(m.ClassName)
			isWindshield := strings.Contains(name, "windshield")
			isLight := strings.Contains(name, "light")
			if isWindshield {
				windshield++
			}
			if isLight {
				light++
			}
			if !isWindshield && !isLight {
				other++
			}
		}

		base := ConsensusItem{
			Box:        MeanBox(boxes),
			Confidence: confSum / float64(len(matches)),
			ClassID:    matches[0].ClassID,
			Votes:      len(matches),
		}

		if windshield >= 2 {
			item := base
			item.DetectedClass = ConsensusWindshield
			item.IsWindshield = true
			consensus = append(consensus, item)
		}
		if light >= 2 {
			item := base
			item.DetectedClass = ConsensusLight
			item.IsLight = true
			consensus = append(consensus, item)
		}
		if windshield < 2 && light < 2 && other >= 2 {
			item := base
			item.DetectedClass = ConsensusDamage
			consensus = append(consensus, item)
		}
	}

	return consensus
}

// AreaCM2 converts a pixel area into square centimetres.
func AreaCM2(areaPx, cmPerPixel float64) float64 {
	return areaPx * cmPerPixel * cmPerPixel
}

// DamageAreaCM2 sums the area of all detections of one model.
func DamageAreaCM2(dets []Detection, cmPerPixel float64) float64 {
	var total float64
	for _, d := range dets {
		total += AreaCM2(d.Area(), cmPerPixel)
	}
	return total
}

// ConsensusAreaCM2 sums the area of consensus items.
func ConsensusAreaCM2(items []ConsensusItem, cmPerPixel float64) float64 {
	var total float64
	for _, it := range items {
		total += AreaCM2(it.Area(), cmPerPixel)
	}
	return total
}

// PaintAssessment is the paint area of one photo plus the component damage
// found on it.
type PaintAssessment struct {
	AreaCM2       float64 `json:"paint_area_cm2"`
	HasWindshield bool    `json:"has_windshield_damage"`
	HasLight      bool    `json:"has_light_damage"`
	HasTire       bool    `json:"has_tire_damage"`
}

const tireOverlapRatio = 0.5

// AssessPaint splits consensus damage into paintable area and component
// damage. Windshield and light damage are never painted; damage covering more
// than half its own area with a tire box counts as tire damage.
func AssessPaint(items []ConsensusItem, tireBoxes []Box, cmPerPixel float64) PaintAssessment {
	var pa PaintAssessment
	for _, it := range items {
		class := strings.ToLower(it.DetectedClass)
		if it.IsWindshield || strings.Contains(class, "windshield") {
			pa.HasWindshield = true
			continue
		}
		if it.IsLight || strings.Contains(class, "light") {
			pa.HasLight = true
			continue
		}

		areaPx := it.Area()
		onTire := false
		for _, tb := range tireBoxes {
			if it.Box.Intersection(tb)/(areaPx+1e-6) > tireOverlapRatio {
				onTire = true
				pa.HasTire = true
				break
			}
		}
		if !onTire {
			pa.AreaCM2 += AreaCM2(areaPx, cmPerPixel)
		}
	}
	return pa
}
