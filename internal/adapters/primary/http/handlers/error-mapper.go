package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrAssessmentNotFound):
		respondError(c, http.StatusNotFound, err.Error(), "Assessment not found")
	case errors.Is(err, domain.ErrPhotoNotFound):
		respondError(c, http.StatusNotFound, err.Error(), "Photo not found")

	// Conflict errors
	case errors.Is(err, domain.ErrAssessmentInProgress),
		errors.Is(err, domain.ErrAssessmentNotCompleted):
		respondError(c, http.StatusConflict, err.Error(), "Assessment is not in the required state")

	// Oversized bodies
	case errors.Is(err, domain.ErrPayloadTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, err.Error(), "Request body exceeds the configured limit")

	// Bad request / validation errors
	case errors.Is(err, domain.ErrNoImageData),
		errors.Is(err, domain.ErrInvalidBase64),
		errors.Is(err, domain.ErrInvalidImage),
		errors.Is(err, domain.ErrUnsupportedContentType),
		errors.Is(err, domain.ErrInvalidJSONBody),
		errors.Is(err, domain.ErrNotAnImageFile):
		respondError(c, http.StatusBadRequest, err.Error(), "Send a base64 encoded JPEG, PNG, GIF, BMP or WEBP image")

	case errors.Is(err, domain.ErrNoPhotos),
		errors.Is(err, domain.ErrTooManyPhotos),
		errors.Is(err, domain.ErrInvalidExchangeRate),
		errors.Is(err, domain.ErrInvalidReferenceSize):
		respondError(c, http.StatusBadRequest, err.Error(), "Invalid assessment request")

	// Service unavailable errors
	case errors.Is(err, domain.ErrModelNotLoaded),
		errors.Is(err, domain.ErrEndpointNotReady),
		errors.Is(err, domain.ErrMissingModels):
		respondError(c, http.StatusServiceUnavailable, err.Error(), "Model failed to load. Check server logs.")

	case errors.Is(err, domain.ErrInferenceFailed):
		respondError(c, http.StatusInternalServerError, err.Error(), "Failed to process image")

	case errors.Is(err, domain.ErrPhotoDownload):
		log.WithError(err).Warn("photo download failed")
		respondError(c, http.StatusBadGateway, err.Error(), "Failed to download photo")

	case errors.Is(err, domain.ErrReportUnavailable):
		log.WithError(err).Error("report rendering failed")
		respondError(c, http.StatusInternalServerError, err.Error(), "Failed to render report")

	default:
		log.WithError(err).Error("unhandled error")
		respondError(c, http.StatusInternalServerError, "internal server error", "Unexpected error")
	}
}

func respondError(c *gin.Context, status int, errText, message string) {
	c.JSON(status, gin.H{"error": errText, "message": message})
}
