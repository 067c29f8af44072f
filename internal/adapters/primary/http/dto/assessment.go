package dto

import (
	"time"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

// ============================================================================
// Request DTOs
// ============================================================================

// ProcessAssessmentRequest starts the damage pipeline for a set of photos.
// Reference sizes are in centimetres.
type ProcessAssessmentRequest struct {
	AssessmentID         string   `json:"assessment_id"`
	PhotoURLs            []string `json:"photo_urls" binding:"required,min=1,dive,required"`
	CarMake              string   `json:"car_make"`
	CarModel             string   `json:"car_model"`
	CarYear              int      `json:"car_year"`
	TireDiameter         float64  `json:"tire_diameter"`
	HandleWidth          float64  `json:"handle_width"`
	LicenseWidth         float64  `json:"license_width"`
	LuxuryIndex          *float64 `json:"luxury_index"`
	Currency             string   `json:"currency"`
	CurrencyExchangeRate *float64 `json:"currency_exchange_rate"`
	CountryLuxFactor     *float64 `json:"country_lux_factor"`
	TaxRate              float64  `json:"tax_rate"`
	CustomerName         string   `json:"customer_name"`
	Country              string   `json:"country"`
}

// ToAssessment maps the request onto the domain entity. Missing multipliers
// default to 1 so an omitted field never zeroes the estimate.
func ToAssessment(req *ProcessAssessmentRequest) domain.Assessment {
	return domain.Assessment{
		ID:        req.AssessmentID,
		PhotoURLs: req.PhotoURLs,
		CarMake:   req.CarMake,
		CarModel:  req.CarModel,
		CarYear:   req.CarYear,
		References: domain.ReferenceSizes{
			TireDiameter: req.TireDiameter,
			HandleWidth:  req.HandleWidth,
			LicenseWidth: req.LicenseWidth,
		},
		LuxuryIndex:          orOne(req.LuxuryIndex),
		Currency:             req.Currency,
		CurrencyExchangeRate: orOne(req.CurrencyExchangeRate),
		CountryLuxFactor:     orOne(req.CountryLuxFactor),
		TaxRate:              req.TaxRate,
		CustomerName:         req.CustomerName,
		Country:              req.Country,
	}
}

func orOne(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}

// ============================================================================
// Response DTOs
// ============================================================================

type ProcessAssessmentResponse struct {
	AssessmentID string `json:"assessment_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

type AssessmentStatusResponse struct {
	AssessmentID string                   `json:"assessment_id"`
	Status       string                   `json:"status"`
	Progress     int                      `json:"progress"`
	Message      string                   `json:"message"`
	Error        *string                  `json:"error"`
	Result       *domain.AssessmentResult `json:"result,omitempty"`
	InvoiceURL   string                   `json:"invoice_url,omitempty"`
	AnalysisURL  string                   `json:"analysis_url,omitempty"`
	CreatedAt    string                   `json:"created_at"`
	UpdatedAt    string                   `json:"updated_at"`
}

func ToProcessAssessmentResponse(s *domain.AssessmentStatus) ProcessAssessmentResponse {
	return ProcessAssessmentResponse{
		AssessmentID: s.AssessmentID,
		Status:       string(s.State),
		Message:      "Assessment processing started",
	}
}

// ToAssessmentStatusResponse renders a status record. error is null unless
// the assessment failed, and the report links under basePath are set once it
// completed.
func ToAssessmentStatusResponse(s *domain.AssessmentStatus, basePath string) AssessmentStatusResponse {
	resp := AssessmentStatusResponse{
		AssessmentID: s.AssessmentID,
		Status:       string(s.State),
		Progress:     s.Progress,
		Message:      s.Message,
		Result:       s.Result,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
	if s.Error != "" {
		msg := s.Error
		resp.Error = &msg
	}
	if s.State == domain.AssessmentCompleted && s.Result != nil {
		resp.InvoiceURL = basePath + "/invoice.pdf"
		resp.AnalysisURL = basePath + "/analysis.pdf"
	}
	return resp
}
