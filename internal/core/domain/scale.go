package domain

import "strings"

// Scale sources in priority order.
const (
	ScaleSourceTire      = "TIRE/WHEEL-BASED (Priority 1)"
	ScaleSourceHandle    = "HANDLE-BASED (Priority 2)"
	ScaleSourceLicense   = "LICENSE PLATE-BASED (Priority 3)"
	ScaleSourceHeadlight = "HEADLIGHT-BASED (33 cm fixed - Priority 4)"
	ScaleSourceFallback  = "FALLBACK (Image width = 1 meter)"
)

const (
	referenceConf      = 0.5
	headlightConf      = 0.3
	licenseConf        = 0.65
	headlightWidthCM   = 33.0
	fallbackImageWidth = 100.0
)

// ReferenceSizes are the real-world widths, in centimetres, of the objects
// used to calibrate the image scale.
type ReferenceSizes struct {
	TireDiameter float64
	HandleWidth  float64
	LicenseWidth float64
}

// ScaleResult is the calibration of one photo.
type ScaleResult struct {
	CMPerPixel        float64 `json:"scale_cm_per_px"`
	Source            string  `json:"source"`
	TireDetected      bool    `json:"tire_detected"`
	HandleDetected    bool    `json:"handle_detected"`
	LicenseDetected   bool    `json:"license_detected"`
	HeadlightDetected bool    `json:"headlight_detected"`
	TireBoxes         []Box   `json:"tire_boxes"`
	WindshieldBoxes   []Box   `json:"windshield_boxes"`
	EstimatedWidthCM  float64 `json:"estimated_image_width_cm"`
	BestTirePx        float64 `json:"best_tire_px"`
	BestHandlePx      float64 `json:"best_handle_px"`
	BestLicensePx     float64 `json:"best_license_px"`
	BestHeadlightPx   float64 `json:"best_headlight_px"`
}

// CalculateScale derives cm/px from reference objects found by the handle and
// component detectors. Priority: tire > handle > license plate > headlight >
// a fallback that assumes the image spans one metre.
func CalculateScale(handle, component []Detection, ref ReferenceSizes, imageWidthPx int) ScaleResult {
	res := ScaleResult{TireBoxes: []Box{}, WindshieldBoxes: []Box{}}

	for _, d := range handle {
		name := strings.ToLower(d.ClassName)
		if strings.Contains(name, "handle") && d.Confidence > referenceConf {
			res.BestHandlePx = max(res.BestHandlePx, d.Width())
		}
	}

	for _, d := range component {
		name := strings.ToLower(d.ClassName)

		if (strings.Contains(name, "wheel") || strings.Contains(name, "tire")) && d.Confidence > referenceConf {
			res.BestTirePx = max(res.BestTirePx, min(d.Width(), d.Height()))
			res.TireBoxes = append(res.TireBoxes, d.Box())
		}
		if strings.Contains(name, "headlight") && d.Confidence > headlightConf {
			res.BestHeadlightPx = max(res.BestHeadlightPx, d.Width())
		}
		if (strings.Contains(name, "license") || strings.Contains(name, "plate")) && d.Confidence > licenseConf {
			res.BestLicensePx = max(res.BestLicensePx, d.Width())
		}
		if strings.Contains(name, "windshield") && d.Confidence > referenceConf {
			res.WindshieldBoxes = append(res.WindshieldBoxes, d.Box())
		}
	}

	res.TireDetected = res.BestTirePx > 0
	res.HandleDetected = res.BestHandlePx > 0
	res.LicenseDetected = res.BestLicensePx > 0
	res.HeadlightDetected = res.BestHeadlightPx > 0

	switch {
	case res.TireDetected && ref.TireDiameter > 0:
		res.CMPerPixel = ref.TireDiameter / res.BestTirePx
		res.Source = ScaleSourceTire
	case res.HandleDetected && ref.HandleWidth > 0:
		res.CMPerPixel = ref.HandleWidth / res.BestHandlePx
		res.Source = ScaleSourceHandle
	case res.LicenseDetected && ref.LicenseWidth > 0:
		res.CMPerPixel = ref.LicenseWidth / res.BestLicensePx
		res.Source = ScaleSourceLicense
	case res.HeadlightDetected:
		res.CMPerPixel = headlightWidthCM / res.BestHeadlightPx
		res.Source = ScaleSourceHeadlight
	default:
		if imageWidthPx > 0 {
			res.CMPerPixel = fallbackImageWidth / float64(imageWidthPx)
		}
		res.Source = ScaleSourceFallback
	}

	res.EstimatedWidthCM = float64(imageWidthPx) * res.CMPerPixel
	return res
}
