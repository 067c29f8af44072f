package domain

// Repair prices in JOD. Components are charged once per assessment no matter
// how many photos show the damage.
const (
	PaintCostSlopeJOD     = 0.019157
	PaintCostInterceptJOD = 2.093
	LightCostJOD          = 30.0
	WindshieldCostJOD     = 50.0
	TireCostJOD           = 20.0
)

// PaintCost is the paint cost of one photo.
type PaintCost struct {
	PhotoNum int     `json:"photo_num"`
	AreaCM2  float64 `json:"area_cm2"`
	Cost     float64 `json:"cost"`
}

// PaintCostJOD prices a painted area; zero area costs nothing.
func PaintCostJOD(areaCM2 float64) float64 {
	if areaCM2 <= 0 {
		return 0
	}
	return PaintCostSlopeJOD*areaCM2 + PaintCostInterceptJOD
}

// CostInput collects everything the final price depends on.
type CostInput struct {
	PaintCostsJOD    []PaintCost
	HasWindshield    bool
	HasLight         bool
	HasTire          bool
	JODToLocal       float64
	TaxRate          float64
	LuxuryIndex      float64
	CountryLuxFactor float64
	Currency         string
}

// CostBreakdown is the itemised repair estimate.
type CostBreakdown struct {
	PaintCostsJOD        []PaintCost `json:"paint_costs_jod"`
	PaintCostsLocal      []PaintCost `json:"paint_costs_local"`
	PaintTotalJOD        float64     `json:"paint_total_jod"`
	LightCostJOD         float64     `json:"light_cost_jod"`
	LightCostLocal       float64     `json:"light_cost_local"`
	WindshieldCostJOD    float64     `json:"windshield_cost_jod"`
	WindshieldCostLocal  float64     `json:"windshield_cost_local"`
	TireCostJOD          float64     `json:"tire_cost_jod"`
	TireCostLocal        float64     `json:"tire_cost_local"`
	SubtotalJODBase      float64     `json:"subtotal_jod_base"`
	SubtotalLocalBase    float64     `json:"subtotal_local_base"`
	TaxRate              float64     `json:"tax_rate"`
	TaxAmountOnBaseLocal float64     `json:"tax_amount_on_base_local"`
	SubtotalPostBaseTax  float64     `json:"subtotal_post_base_tax"`
	LuxuryIndex          float64     `json:"luxury_index"`
	CountryLuxFactor     float64     `json:"country_lux_factor"`
	FinalLocalCost       float64     `json:"final_local_cost"`
	Currency             string      `json:"currency"`
}

// CalculateCosts sums the JOD costs, converts to the local currency, applies
// tax on the base subtotal and finally both luxury factors.
func CalculateCosts(in CostInput) CostBreakdown {
	out := CostBreakdown{
		PaintCostsJOD:    append([]PaintCost{}, in.PaintCostsJOD...),
		PaintCostsLocal:  make([]PaintCost, 0, len(in.PaintCostsJOD)),
		TaxRate:          in.TaxRate,
		LuxuryIndex:      in.LuxuryIndex,
		CountryLuxFactor: in.CountryLuxFactor,
		Currency:         in.Currency,
	}

	for _, pc := range in.PaintCostsJOD {
		out.PaintTotalJOD += pc.Cost
		out.PaintCostsLocal = append(out.PaintCostsLocal, PaintCost{
			PhotoNum: pc.PhotoNum,
			AreaCM2:  pc.AreaCM2,
			Cost:     pc.Cost * in.JODToLocal,
		})
	}

	if in.HasLight {
		out.LightCostJOD = LightCostJOD
	}
	if in.HasWindshield {
		out.WindshieldCostJOD = WindshieldCostJOD
	}
	if in.HasTire {
		out.TireCostJOD = TireCostJOD
	}

	out.SubtotalJODBase = out.PaintTotalJOD + out.LightCostJOD + out.WindshieldCostJOD + out.TireCostJOD
	out.SubtotalLocalBase = out.SubtotalJODBase * in.JODToLocal
	out.TaxAmountOnBaseLocal = out.SubtotalLocalBase * in.TaxRate
	out.SubtotalPostBaseTax = out.SubtotalLocalBase + out.TaxAmountOnBaseLocal
	out.FinalLocalCost = out.SubtotalPostBaseTax * in.LuxuryIndex * in.CountryLuxFactor

	out.LightCostLocal = out.LightCostJOD * in.JODToLocal
	out.WindshieldCostLocal = out.WindshieldCostJOD * in.JODToLocal
	out.TireCostLocal = out.TireCostJOD * in.JODToLocal

	return out
}
