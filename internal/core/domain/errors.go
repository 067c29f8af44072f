package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Inference Errors
// ============================================================================

// Validation errors
var (
	ErrNoImageData            = errors.New("no image data provided")
	ErrInvalidBase64          = errors.New("invalid base64 image data")
	ErrInvalidImage           = errors.New("invalid image data")
	ErrUnsupportedContentType = errors.New("invalid content type, use application/x-www-form-urlencoded or application/json")
	ErrInvalidJSONBody        = errors.New("request body is not valid JSON")
	ErrPayloadTooLarge        = errors.New("request body too large")
	ErrNotAnImageFile         = errors.New("file must be an image")
)

// ErrImageTooLarge is an ErrInvalidImage whose header dimensions exceed the
// configured pixel limit.
var ErrImageTooLarge = fmt.Errorf("%w: dimensions exceed the pixel limit", ErrInvalidImage)

// Availability errors
var (
	ErrModelNotLoaded   = errors.New("model not loaded")
	ErrInferenceFailed  = errors.New("inference failed")
	ErrDetectorNotFound = errors.New("detector not configured")
	ErrEndpointNotReady = errors.New("inference endpoint is not ready")
)

// ============================================================================
// Assessment Errors
// ============================================================================

// Not found errors
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrPhotoNotFound      = errors.New("photo not found in assessment")
)

// Validation errors
var (
	ErrNoPhotos             = errors.New("at least one photo url is required")
	ErrTooManyPhotos        = errors.New("too many photos for one assessment")
	ErrInvalidExchangeRate  = errors.New("currency exchange rate must be positive")
	ErrInvalidReferenceSize = errors.New("reference object sizes must not be negative")
)

// Conflict errors
var (
	ErrAssessmentInProgress   = errors.New("assessment is already being processed")
	ErrAssessmentNotCompleted = errors.New("assessment has not completed")
)

// Processing errors
var (
	ErrMissingModels     = errors.New("required detection models are not loaded")
	ErrPhotoDownload     = errors.New("failed to download photos")
	ErrReportUnavailable = errors.New("report generation failed")
)
