package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	"github.com/Icestreamm/baseer-backend/internal/core/services"
)

// GatewayEndpoints is the endpoint listing of the inference gateway.
var GatewayEndpoints = gin.H{
	"GET /":         "Server info",
	"GET /health":   "Health check",
	"GET /ready":    "Readiness check",
	"POST /predict": "Image prediction (YOLO)",
	"GET /predict":  "Predict endpoint info",

	"POST /yolo/predict": "Multipart image upload prediction",
	"GET /yolo/health":   "Upload model health",
}

// GatewayHandler serves the Roboflow-compatible inference gateway.
type GatewayHandler struct {
	inference *services.InferenceService
}

func NewGatewayHandler(inference *services.InferenceService) *GatewayHandler {
	return &GatewayHandler{inference: inference}
}

func (h *GatewayHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	r.GET("/predict", h.PredictInfo)
	r.POST("/predict", h.Predict)
	r.OPTIONS("/predict", func(c *gin.Context) { c.Status(http.StatusOK) })

	yolo := r.Group("/yolo")
	yolo.GET("/health", h.UploadHealth)
	yolo.POST("/predict", h.UploadPredict)
}

func (h *GatewayHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "YOLO Model Server is running",
		"endpoints": gin.H{
			"health":  "/health",
			"ready":   "/ready",
			"predict": "/predict (POST)",
			"upload":  "/yolo/predict (POST multipart)",
		},
		"model_loaded": h.inference.ModelLoaded(),
		"model_path":   h.inference.ModelPath(),
	})
}

// Health answers 200 while the process is alive, whatever the model state.
func (h *GatewayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.inference.ModelLoaded(),
		"model_path":   h.inference.ModelPath(),
	})
}

func (h *GatewayHandler) Ready(c *gin.Context) {
	if !h.inference.ModelLoaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not ready",
			"model_path": h.inference.ModelPath(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"model_path": h.inference.ModelPath(),
	})
}

func (h *GatewayHandler) PredictInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "predict endpoint is available",
		"method":       "Use POST to send image data",
		"content_type": "application/x-www-form-urlencoded or application/json",
		"endpoint":     "/predict",
		"registered":   true,
	})
}

func (h *GatewayHandler) Predict(c *gin.Context) {
	payload, err := readImagePayload(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp, err := h.inference.Predict(c.Request.Context(), payload)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadHealth always answers 200; the body carries the model state.
func (h *GatewayHandler) UploadHealth(c *gin.Context) {
	if !h.inference.ModelLoaded() {
		c.JSON(http.StatusOK, gin.H{
			"status":       "unhealthy",
			"model_loaded": false,
			"error":        "model not loaded",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": true,
		"model_path":   h.inference.ModelPath(),
	})
}

func (h *GatewayHandler) UploadPredict(c *gin.Context) {
	data, err := readImageUpload(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	resp, err := h.inference.PredictUpload(c.Request.Context(), data)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// readImageUpload returns the contents of the multipart "file" part.
func readImageUpload(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, domain.ErrPayloadTooLarge
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, domain.ErrUnsupportedContentType
		case errors.Is(err, http.ErrMissingFile):
			return nil, domain.ErrNoImageData
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return nil, domain.ErrNotAnImageFile
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// readImagePayload extracts the base64 image. JSON bodies carry it in the
// "image" field; form-urlencoded and plain text bodies are the raw string.
func readImagePayload(c *gin.Context) (string, error) {
	contentType := c.ContentType()
	switch contentType {
	case gin.MIMEJSON, gin.MIMEPOSTForm, gin.MIMEPlain:
	default:
		return "", domain.ErrUnsupportedContentType
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", domain.ErrPayloadTooLarge
		}
		return "", fmt.Errorf("read request body: %w", err)
	}

	if contentType != gin.MIMEJSON {
		return string(body), nil
	}
	if len(body) == 0 {
		return "", domain.ErrNoImageData
	}
	if !gjson.ValidBytes(body) {
		return "", domain.ErrInvalidJSONBody
	}
	return gjson.GetBytes(body, "image").String(), nil
}
