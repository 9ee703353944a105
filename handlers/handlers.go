package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"skin-diagnosis-service/image"
	"skin-diagnosis-service/llm"
	"skin-diagnosis-service/metrics"
	"skin-diagnosis-service/parser"
	"skin-diagnosis-service/service"
)

// allowedContentTypes lists the upload types the diagnosis pipeline accepts.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Handlers holds the HTTP handlers for the skin diagnosis service.
type Handlers struct {
	svc            *service.Service
	maxUploadBytes int64
}

// NewHandlers creates the HTTP handlers. maxUploadMB bounds the accepted
// upload size before any decoding happens.
func NewHandlers(svc *service.Service, maxUploadMB int) *Handlers {
	return &Handlers{
		svc:            svc,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// HealthCheck handles liveness requests.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "skin-diagnosis-service",
		"backend": h.svc.SourceName(),
	})
}

// Diagnose accepts a multipart image upload, validates it and runs the
// diagnosis pipeline. Validation failures are mapped to 4xx statuses before
// the backend is ever contacted.
func (h *Handlers) Diagnose(c *gin.Context) {
	start := time.Now()

	if !h.svc.Ready() {
		log.Error("Diagnose called but no backend client is configured")
		h.finish(c, start, "not_configured", http.StatusServiceUnavailable, gin.H{
			"error": "AI service is not configured. Please contact the administrator.",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		metrics.UploadRejectedTotal.WithLabelValues("missing_file").Inc()
		h.finish(c, start, "bad_request", http.StatusBadRequest, gin.H{
			"error": "No file provided.",
		})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedContentTypes[contentType] {
		log.Warnf("Invalid file type uploaded: %s", contentType)
		metrics.UploadRejectedTotal.WithLabelValues("content_type").Inc()
		h.finish(c, start, "unsupported_type", http.StatusUnprocessableEntity, gin.H{
			"error": "Invalid file type. Please upload a JPEG, PNG, or WEBP image.",
		})
		return
	}

	if fileHeader.Size > h.maxUploadBytes {
		log.Warnf("File upload exceeds size limit: %d bytes", fileHeader.Size)
		metrics.UploadRejectedTotal.WithLabelValues("too_large").Inc()
		h.finish(c, start, "too_large", http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File size exceeds limit of %d MB.", h.maxUploadBytes/(1024*1024)),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.finish(c, start, "read_error", http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file.",
		})
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.finish(c, start, "read_error", http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file.",
		})
		return
	}
	if int64(len(imageBytes)) > h.maxUploadBytes {
		metrics.UploadRejectedTotal.WithLabelValues("too_large").Inc()
		h.finish(c, start, "too_large", http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File size exceeds limit of %d MB.", h.maxUploadBytes/(1024*1024)),
		})
		return
	}

	log.Infof("Received file: %s, size: %d bytes", fileHeader.Filename, len(imageBytes))

	result, err := h.svc.Diagnose(c.Request.Context(), imageBytes)
	if err != nil {
		h.handleDiagnoseError(c, start, fileHeader.Filename, err)
		return
	}

	log.Infof("Successfully diagnosed image: %s", fileHeader.Filename)
	h.finish(c, start, "success", http.StatusOK, result)
}

// handleDiagnoseError maps pipeline failures to HTTP statuses.
func (h *Handlers) handleDiagnoseError(c *gin.Context, start time.Time, filename string, err error) {
	log.WithError(err).Errorf("AI analysis failed for file %s", filename)

	switch {
	case errors.Is(err, service.ErrNotConfigured):
		h.finish(c, start, "not_configured", http.StatusServiceUnavailable, gin.H{
			"error": "AI service is not configured. Please contact the administrator.",
		})
	case errors.Is(err, image.ErrInvalidImage):
		metrics.UploadRejectedTotal.WithLabelValues("undecodable").Inc()
		h.finish(c, start, "invalid_image", http.StatusBadRequest, gin.H{
			"error": "The uploaded file could not be decoded as an image.",
		})
	case errors.Is(err, llm.ErrUnavailable):
		h.finish(c, start, "backend_unavailable", http.StatusServiceUnavailable, gin.H{
			"error": fmt.Sprintf("The AI backend is currently unavailable. %v", err),
		})
	case errors.Is(err, llm.ErrBackend), errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, parser.ErrParse):
		h.finish(c, start, "backend_error", http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("An internal error occurred during AI analysis. Error: %v", err),
		})
	default:
		h.finish(c, start, "internal_error", http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("An internal error occurred during AI analysis. Error: %v", err),
		})
	}
}

func (h *Handlers) finish(c *gin.Context, start time.Time, result string, status int, body any) {
	metrics.DiagnosesTotal.WithLabelValues(result).Inc()
	metrics.DiagnosisDurationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
	c.JSON(status, body)
}
