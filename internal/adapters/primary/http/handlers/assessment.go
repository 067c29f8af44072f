package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/adapters/primary/http/dto"
	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	"github.com/Icestreamm/baseer-backend/internal/core/services"
)

// AssessmentEndpoints is the endpoint listing of the assessment API.
var AssessmentEndpoints = gin.H{
	"GET /":                                "Server info",
	"GET /health":                          "Health check",
	"GET /ready":                           "Readiness check",
	"POST /api/assessments/process":        "Start an assessment",
	"GET /api/assessments/:id/status":      "Assessment status",
	"GET /api/assessments/:id/invoice.pdf": "Invoice of a completed assessment",

	"GET /api/assessments/:id/analysis.pdf":              "Analysis report of a completed assessment",
	"GET /api/assessments/:id/photos/:num/consensus.jpg": "Annotated consensus photo",
}

// AssessmentHandler serves the car damage assessment API.
type AssessmentHandler struct {
	assessments *services.AssessmentService
}

func NewAssessmentHandler(assessments *services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

func (h *AssessmentHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	api := r.Group("/api")
	api.POST("/assessments/process", h.ProcessAssessment)
	api.GET("/assessments/:id/status", h.GetAssessmentStatus)
	api.GET("/assessments/:id/invoice.pdf", h.GetInvoice)
	api.GET("/assessments/:id/analysis.pdf", h.GetAnalysis)
	api.GET("/assessments/:id/photos/:num/consensus.jpg", h.GetConsensusImage)
}

func (h *AssessmentHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":       "Baseer Car Damage Assessment API",
		"status":        "running",
		"version":       "1.0.0",
		"models_loaded": h.assessments.ModelsLoaded(),
	})
}

func (h *AssessmentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *AssessmentHandler) Ready(c *gin.Context) {
	loaded := h.assessments.LoadedModels()
	if missing := h.assessments.MissingModels(); len(missing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"loaded":  loaded,
			"missing": missing,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "loaded": loaded})
}

func (h *AssessmentHandler) ProcessAssessment(c *gin.Context) {
	var req dto.ProcessAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large", "Request body exceeds the configured limit")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error(), "Invalid assessment request")
		return
	}

	status, err := h.assessments.Start(c.Request.Context(), dto.ToAssessment(&req))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"assessment_id": status.AssessmentID,
		"photos":        len(req.PhotoURLs),
	}).Info("assessment accepted")

	c.JSON(http.StatusOK, dto.ToProcessAssessmentResponse(status))
}

func (h *AssessmentHandler) GetAssessmentStatus(c *gin.Context) {
	id := c.Param("id")

	status, err := h.assessments.Status(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAssessmentStatusResponse(status, assessmentPath(id)))
}

// GetInvoice renders into memory first so failures still map to a JSON error.
func (h *AssessmentHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")

	var buf bytes.Buffer
	if err := h.assessments.WriteInvoice(c.Request.Context(), id, &buf); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="invoice-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *AssessmentHandler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	var buf bytes.Buffer
	if err := h.assessments.WriteAnalysis(c.Request.Context(), id, &buf); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="analysis-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *AssessmentHandler) GetConsensusImage(c *gin.Context) {
	id := c.Param("id")
	num, err := strconv.Atoi(c.Param("num"))
	if err != nil {
		mapDomainError(c, domain.ErrPhotoNotFound)
		return
	}

	var buf bytes.Buffer
	if err := h.assessments.WriteConsensusImage(c.Request.Context(), id, num, &buf); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

func assessmentPath(id string) string {
	return "/api/assessments/" + id
}
