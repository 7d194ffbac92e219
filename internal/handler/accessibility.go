package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aignite/internal/middleware"
	"aignite/internal/models"
	"aignite/internal/scanner"
	"aignite/internal/service"
	"aignite/internal/vision"
)

// PageScanner audits a web page for accessibility issues.
type PageScanner interface {
	Scan(ctx context.Context, url string) ([]models.ScanIssue, error)
}

// CaptionJobs queues and queries async video captioning work.
type CaptionJobs interface {
	Enqueue(ctx context.Context, userID int64, fileName, mimeType string, data []byte) (*models.CaptionJob, error)
	Get(ctx context.Context, id string, userID int64) (*models.CaptionJob, error)
}

type AccessibilityHandler struct {
	scanner       PageScanner
	provider      vision.Provider
	captions      CaptionJobs
	logger        *zap.Logger
	maxImageBytes int64
	maxVideoBytes int64
}

func NewAccessibilityHandler(pages PageScanner, provider vision.Provider, captions CaptionJobs, maxImageBytes, maxVideoBytes int64, logger *zap.Logger) *AccessibilityHandler {
	return &AccessibilityHandler{
		scanner:       pages,
		provider:      provider,
		captions:      captions,
		logger:        logger,
		maxImageBytes: maxImageBytes,
		maxVideoBytes: maxVideoBytes,
	}
}

type ScanRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *AccessibilityHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	issues, err := h.scanner.Scan(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, scanner.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide a valid http(s) URL"})
			return
		}
		h.logger.Error("Scan failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to scan the website"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":    req.URL,
		"issues": issues,
		"total":  len(issues),
	})
}

func (h *AccessibilityHandler) DescribeImage(c *gin.Context) {
	data, mimeType, ok := h.readUpload(c, "image", h.maxImageBytes, "image/")
	if !ok {
		return
	}

	description, err := h.provider.DescribeImage(c.Request.Context(), data, mimeType)
	if err != nil {
		h.logger.Error("Image description failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Failed to generate image description"})
		return
	}

	c.JSON(http.StatusOK, description)
}

func (h *AccessibilityHandler) CaptionVideo(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	data, mimeType, ok := h.readUpload(c, "video", h.maxVideoBytes, "video/")
	if !ok {
		return
	}

	fileName := ""
	if file, err := c.FormFile("video"); err == nil {
		fileName = file.Filename
	}

	job, err := h.captions.Enqueue(c.Request.Context(), identity.UserID, fileName, mimeType, data)
	if err != nil {
		h.logger.Error("Failed to queue caption job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to start captioning"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":   job.ID,
		"status":  job.Status,
		"message": "Captioning started. Poll /api/accessibility/video-captions/" + job.ID + " for the result.",
	})
}

func (h *AccessibilityHandler) GetCaptionJob(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	job, err := h.captions.Get(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Caption job not found"})
			return
		}
		h.logger.Error("Failed to load caption job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to load caption job"})
		return
	}

	resp := gin.H{
		"jobId":     job.ID,
		"status":    job.Status,
		"fileName":  job.FileName,
		"createdAt": job.CreatedAt,
		"updatedAt": job.UpdatedAt,
	}
	switch job.Status {
	case models.CaptionJobCompleted:
		resp["captions"] = job.Segments
		resp["provider"] = job.Provider
	case models.CaptionJobFailed:
		resp["message"] = job.Error
	}
	c.JSON(http.StatusOK, resp)
}

// readUpload pulls a single multipart file, enforcing the size cap and a
// coarse content-type family check.
func (h *AccessibilityHandler) readUpload(c *gin.Context, field string, maxBytes int64, mimePrefix string) ([]byte, string, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing " + field + " file"})
		return nil, "", false
	}
	if file.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"message": "File too large"})
		return nil, "", false
	}

	data, mimeType, err := readMultipartFile(file, maxBytes)
	if err != nil {
		h.logger.Error("Failed to read upload", zap.String("field", field), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read uploaded file"})
		return nil, "", false
	}
	if !strings.HasPrefix(mimeType, mimePrefix) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unsupported file type"})
		return nil, "", false
	}
	return data, mimeType, true
}

func readMultipartFile(file *multipart.FileHeader, maxBytes int64) ([]byte, string, error) {
	f, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return nil, "", err
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
