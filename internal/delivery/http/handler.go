package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leafguard/backend/internal/domain"
	"github.com/leafguard/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const (
	serviceName = "leafguard-backend"

	imageField  = "image"
	uploadField = "file"

	// multipartOverhead is the allowance for boundaries and headers above the file limit
	multipartOverhead = 1 << 20

	defaultConfidence = 0.5
)

// ImageAnalyzer runs the image analysis pipeline
type ImageAnalyzer interface {
	Analyze(ctx context.Context, upload *domain.ImageUpload) (*domain.AnalysisResult, error)
}

// HandlerConfig holds handler settings
type HandlerConfig struct {
	MaxUploadBytes int64
	Production     bool
	Version        string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analyzer ImageAnalyzer
	diseases domain.DiseaseAnalyzer
	blobs    domain.BlobStore
	config   HandlerConfig
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. blobs may be nil when storage is disabled.
func NewHandler(
	analyzer ImageAnalyzer,
	diseases domain.DiseaseAnalyzer,
	blobs domain.BlobStore,
	config HandlerConfig,
	logger *zap.Logger,
) *Handler {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		analyzer: analyzer,
		diseases: diseases,
		blobs:    blobs,
		config:   config,
		logger:   logger.With(zap.String("component", "http")),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": h.config.Version,
	})
}

// Analyze handles POST /api/v1/analyze with a multipart "image" field
func (h *Handler) Analyze(c *gin.Context) {
	upload, err := h.readMultipartFile(c, imageField)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), upload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"analysis":  result,
		"plantInfo": result.PlantInfo,
		"timestamp": result.Timestamp,
	})
}

// DiseaseAnalysis handles POST /api/v1/diseases/analysis.
// Enrichment never fails; degraded results are returned with 200.
func (h *Handler) DiseaseAnalysis(c *gin.Context) {
	var req domain.DiseaseAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.InvalidRequest(domain.CodeBadRequest, "diseaseName is required", map[string]interface{}{
			"error": err.Error(),
		}))
		return
	}

	name := strings.TrimSpace(req.DiseaseName)
	if name == "" {
		h.respondError(c, domain.InvalidRequest(domain.CodeBadRequest, "diseaseName is required", nil))
		return
	}

	confidence := defaultConfidence
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	if confidence < 0 || confidence > 1 {
		h.respondError(c, domain.InvalidRequest(domain.CodeBadRequest, "confidence must be between 0 and 1", map[string]interface{}{
			"confidence": confidence,
		}))
		return
	}

	details := h.diseases.GetDiseaseAnalysis(c.Request.Context(), name, confidence)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analysis": details,
	})
}

// Upload handles POST /api/v1/upload with a multipart "file" field
func (h *Handler) Upload(c *gin.Context) {
	if h.blobs == nil {
		h.respondError(c, storageDisabled())
		return
	}

	upload, err := h.readMultipartFile(c, uploadField)
	if err != nil {
		metrics.RecordUpload("rejected")
		h.respondError(c, err)
		return
	}
	if int64(len(upload.Data)) > h.config.MaxUploadBytes {
		metrics.RecordUpload("rejected")
		h.respondError(c, fileTooLarge(h.config.MaxUploadBytes, int64(len(upload.Data))))
		return
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj, err := h.blobs.Put(c.Request.Context(), upload.Filename, contentType, upload.Data)
	if err != nil {
		metrics.RecordUpload("error")
		h.respondError(c, domain.Internal(err))
		return
	}
	metrics.RecordUpload("success")

	h.logger.Info("file uploaded", zap.String("key", obj.Key), zap.Int64("size", obj.Size))

	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*domain.StoredObject
	}{Success: true, StoredObject: obj})
}

// UploadURL handles GET /api/v1/upload/url?key=
func (h *Handler) UploadURL(c *gin.Context) {
	if h.blobs == nil {
		h.respondError(c, storageDisabled())
		return
	}

	key := c.Query("key")
	if key == "" {
		h.respondError(c, domain.InvalidRequest(domain.CodeBadRequest, "key query parameter is required", nil))
		return
	}

	url, err := h.blobs.URL(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"fileKey": key,
		"fileUrl": url,
	})
}

// DeleteUpload handles DELETE /api/v1/upload?key=
func (h *Handler) DeleteUpload(c *gin.Context) {
	if h.blobs == nil {
		h.respondError(c, storageDisabled())
		return
	}

	key := c.Query("key")
	if key == "" {
		h.respondError(c, domain.InvalidRequest(domain.CodeBadRequest, "key query parameter is required", nil))
		return
	}

	if err := h.blobs.Delete(c.Request.Context(), key); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "fileKey": key})
}

// readMultipartFile validates the request shape and reads one file field into memory
func (h *Handler) readMultipartFile(c *gin.Context, field string) (*domain.ImageUpload, error) {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, domain.InvalidRequest(domain.CodeInvalidContentType, "Invalid content type", map[string]interface{}{
			"details": "Content type must be multipart/form-data",
		})
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes+multipartOverhead)

	header, err := c.FormFile(field)
	if err != nil {
		return nil, h.formError(err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, domain.InvalidRequest(domain.CodeInvalidFile, "Invalid file format", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, h.formError(err)
	}

	return &domain.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}

func (h *Handler) formError(err error) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return domain.InvalidRequest(domain.CodeNoImage, "No image file provided", nil)
	case errors.As(err, &maxBytesErr) || strings.Contains(err.Error(), "request body too large"):
		return fileTooLarge(h.config.MaxUploadBytes, 0)
	case errors.Is(err, multipart.ErrMessageTooLarge):
		return fileTooLarge(h.config.MaxUploadBytes, 0)
	default:
		return domain.InvalidRequest(domain.CodeInvalidFormData, "Invalid form data", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func fileTooLarge(maxBytes, received int64) *domain.Error {
	details := map[string]interface{}{"maxSize": maxBytes}
	if received > 0 {
		details["receivedSize"] = received
	}
	return domain.InvalidRequest(domain.CodeFileTooLarge, fmt.Sprintf("File is too large. Maximum size is %dMB.", maxBytes>>20), details)
}

func storageDisabled() *domain.Error {
	return &domain.Error{
		Kind:    domain.ErrStorageDisabled,
		Code:    domain.CodeStorageDisabled,
		Message: "File storage is not configured",
	}
}
