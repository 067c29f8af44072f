package domain

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Value Objects
// ============================================================================

// AssessmentState is the processing state of an assessment.
type AssessmentState string

const (
	AssessmentProcessing AssessmentState = "processing"
	AssessmentCompleted  AssessmentState = "completed"
	AssessmentFailed     AssessmentState = "failed"
)

// IsTerminal reports whether processing has finished, successfully or not.
func (s AssessmentState) IsTerminal() bool {
	return s == AssessmentCompleted || s == AssessmentFailed
}

// Detection model roles used by the damage pipeline.
const (
	ModelHandle         = "handle"
	ModelComponent      = "component"
	ModelSideHunter     = "side_hunter"
	ModelSideKulas      = "side_kulas"
	ModelDamageSindhu   = "damage_sindhu"
	ModelDamageCDDCE    = "damage_cddce"
	ModelDamageCapstone = "damage_capstone"
)

// AllModels lists every role in pipeline order.
var AllModels = []string{
	ModelHandle, ModelComponent, ModelSideHunter, ModelSideKulas,
	ModelDamageSindhu, ModelDamageCDDCE, ModelDamageCapstone,
}

// RequiredModels must be loaded for an assessment to run; the side models only
// feed the log.
var RequiredModels = []string{
	ModelHandle, ModelComponent,
	ModelDamageSindhu, ModelDamageCDDCE, ModelDamageCapstone,
}

// DamageModels are the models voting in the consensus.
var DamageModels = []string{ModelDamageSindhu, ModelDamageCDDCE, ModelDamageCapstone}

// ============================================================================
// Entities
// ============================================================================

// Assessment is a request to estimate the repair cost of a damaged car.
type Assessment struct {
	ID                   string
	PhotoURLs            []string
	CarMake              string
	CarModel             string
	CarYear              int
	References           ReferenceSizes
	LuxuryIndex          float64
	Currency             string
	CurrencyExchangeRate float64
	CountryLuxFactor     float64
	TaxRate              float64
	CustomerName         string
	Country              string
}

// NewAssessment validates the request and assigns an id when none is given.
func NewAssessment(a Assessment, maxPhotos int) (*Assessment, error) {
	if len(a.PhotoURLs) == 0 {
		return nil, ErrNoPhotos
	}
	if maxPhotos > 0 && len(a.PhotoURLs) > maxPhotos {
		return nil, ErrTooManyPhotos
	}
	if a.CurrencyExchangeRate <= 0 {
		return nil, ErrInvalidExchangeRate
	}
	if a.References.TireDiameter < 0 || a.References.HandleWidth < 0 || a.References.LicenseWidth < 0 {
		return nil, ErrInvalidReferenceSize
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Currency == "" {
		a.Currency = "JOD"
	}
	return &a, nil
}

// PhotoResult is the outcome of the pipeline for one photo.
type PhotoResult struct {
	PhotoNum       int                `json:"photo_num"`
	PhotoURL       string             `json:"photo_url"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Scale          ScaleResult        `json:"scale_data"`
	Orientation    string             `json:"orientation,omitempty"`
	ModelDamageCM2 map[string]float64 `json:"model_damage_cm2"`
	Consensus      []ConsensusItem    `json:"consensus"`
	ConsensusCM2   float64            `json:"consensus_damage_cm2"`
	Paint          PaintAssessment    `json:"paint"`
	PaintCostJOD   float64            `json:"paint_cost_jod"`
}

// AssessmentResult is the finished estimate.
type AssessmentResult struct {
	Photos              []PhotoResult      `json:"photos"`
	ModelDamageCM2      map[string]float64 `json:"model_damage_cm2"`
	ConsensusDamageCM2  float64            `json:"consensus_damage_cm2"`
	HasWindshieldDamage bool               `json:"windshield_damage_found"`
	HasLightDamage      bool               `json:"light_damage_found"`
	HasTireDamage       bool               `json:"tire_damage_found"`
	Costs               CostBreakdown      `json:"costs"`
}

// AssessmentStatus is the progress record polled by clients.
type AssessmentStatus struct {
	AssessmentID string
	Assessment   *Assessment
	State        AssessmentState
	Progress     int
	Message      string
	Error        string
	Result       *AssessmentResult
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAssessmentStatus starts a record in the processing state.
func NewAssessmentStatus(a *Assessment) *AssessmentStatus {
	now := time.Now()
	return &AssessmentStatus{
		AssessmentID: a.ID,
		Assessment:   a,
		State:        AssessmentProcessing,
		Message:      "Initializing...",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Advance moves a processing record forward. A negative progress keeps the
// current value.
func (s *AssessmentStatus) Advance(message string, progress int) {
	s.Message = message
	if progress >= 0 {
		s.Progress = progress
	}
	s.UpdatedAt = time.Now()
}

// Complete stores the result.
func (s *AssessmentStatus) Complete(result *AssessmentResult) {
	s.State = AssessmentCompleted
	s.Progress = 100
	s.Message = "Assessment processing completed!"
	s.Result = result
	s.Error = ""
	s.UpdatedAt = time.Now()
}

// Fail records the error and resets progress.
func (s *AssessmentStatus) Fail(err error) {
	s.State = AssessmentFailed
	s.Progress = 0
	s.Error = err.Error()
	s.Message = err.Error()
	s.UpdatedAt = time.Now()
}
