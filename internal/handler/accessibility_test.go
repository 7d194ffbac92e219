package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aignite/internal/handler"
	"aignite/internal/middleware"
	"aignite/internal/models"
	"aignite/internal/scanner"
	"aignite/internal/service"
)

type stubScanner struct {
	issues []models.ScanIssue
	err    error
}

func (s *stubScanner) Scan(_ context.Context, _ string) ([]models.ScanIssue, error) {
	return s.issues, s.err
}

type stubProvider struct {
	description *models.ImageDescription
	err         error
}

func (p *stubProvider) DescribeImage(_ context.Context, _ []byte, _ string) (*models.ImageDescription, error) {
	return p.description, p.err
}

func (p *stubProvider) CaptionVideo(_ context.Context, _ []byte, _ string) ([]models.CaptionSegment, error) {
	return nil, errors.New("not used")
}

func (p *stubProvider) Close() error { return nil }

func (p *stubProvider) ModelInfo() (string, string) { return "stub", "stub-model" }

type stubCaptionJobs struct {
	jobs map[string]*models.CaptionJob
}

func (s *stubCaptionJobs) Enqueue(_ context.Context, userID int64, fileName, mimeType string, _ []byte) (*models.CaptionJob, error) {
	job := &models.CaptionJob{
		ID:        "job-1",
		UserID:    userID,
		Status:    models.CaptionJobPending,
		FileName:  fileName,
		MimeType:  mimeType,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubCaptionJobs) Get(_ context.Context, id string, userID int64) (*models.CaptionJob, error) {
	job, ok := s.jobs[id]
	if !ok || job.UserID != userID {
		return nil, service.ErrJobNotFound
	}
	return job, nil
}

// newAccessibilityRouter wires the handler behind a fake auth middleware that
// injects a fixed identity, so tests exercise the handler rather than tokens.
func newAccessibilityRouter(pages handler.PageScanner, provider *stubProvider, captions *stubCaptionJobs) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handler.NewAccessibilityHandler(pages, provider, captions, 1<<20, 1<<20, zap.NewNop())
	router := gin.New()
	group := router.Group("/api/accessibility")
	group.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, models.Identity{UserID: 7, User: &models.User{ID: 7}})
	})
	group.POST("/scan", h.Scan)
	group.POST("/image-description", h.DescribeImage)
	group.POST("/video-captions", h.CaptionVideo)
	group.GET("/video-captions/:id", h.GetCaptionJob)
	return router
}

func postScan(t *testing.T, router *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(gin.H{"url": url})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/scan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func multipartBody(t *testing.T, field, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestScanReturnsIssues(t *testing.T) {
	pages := &stubScanner{issues: []models.ScanIssue{
		{Type: "error", Message: "Image is missing alt text", Code: "img-alt", Impact: "critical"},
		{Type: "warning", Message: "Page has no h1", Code: "heading-missing"},
	}}
	router := newAccessibilityRouter(pages, &stubProvider{}, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	res := postScan(t, router, "https://example.com")
	require.Equal(t, http.StatusOK, res.Code)

	body := decodeBody(t, res)
	assert.Equal(t, "https://example.com", body["url"])
	assert.EqualValues(t, 2, body["total"])
	issues, _ := body["issues"].([]any)
	require.Len(t, issues, 2)
}

func TestScanInvalidURL(t *testing.T) {
	pages := &stubScanner{err: scanner.ErrInvalidURL}
	router := newAccessibilityRouter(pages, &stubProvider{}, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	res := postScan(t, router, "ftp://example.com")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestScanUpstreamFailure(t *testing.T) {
	pages := &stubScanner{err: errors.New("navigation timed out")}
	router := newAccessibilityRouter(pages, &stubProvider{}, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	res := postScan(t, router, "https://slow.example.com")
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.Equal(t, "Failed to scan the website", decodeBody(t, res)["message"])
}

func TestScanMissingURL(t *testing.T) {
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/scan", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDescribeImage(t *testing.T) {
	provider := &stubProvider{description: &models.ImageDescription{
		Description: "A golden retriever sitting on grass.",
		AltText:     "Golden retriever on grass",
		Provider:    "stub",
		Model:       "stub-model",
	}}
	router := newAccessibilityRouter(&stubScanner{}, provider, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	body, contentType := multipartBody(t, "image", "dog.png", "image/png", []byte("fake-png"))
	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/image-description", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	result := decodeBody(t, res)
	assert.Equal(t, "Golden retriever on grass", result["altText"])
	assert.Equal(t, "A golden retriever sitting on grass.", result["description"])
}

func TestDescribeImageRejectsNonImage(t *testing.T) {
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	body, contentType := multipartBody(t, "image", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/image-description", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDescribeImageMissingFile(t *testing.T) {
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	body, contentType := multipartBody(t, "picture", "dog.png", "image/png", []byte("fake-png"))
	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/image-description", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestDescribeImageProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	router := newAccessibilityRouter(&stubScanner{}, provider, &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}})

	body, contentType := multipartBody(t, "image", "dog.png", "image/png", []byte("fake-png"))
	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/image-description", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadGateway, res.Code)
}

func TestCaptionVideoAcceptsJob(t *testing.T) {
	captions := &stubCaptionJobs{jobs: map[string]*models.CaptionJob{}}
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, captions)

	body, contentType := multipartBody(t, "video", "clip.mp4", "video/mp4", []byte("fake-mp4"))
	req := httptest.NewRequest(http.MethodPost, "/api/accessibility/video-captions", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusAccepted, res.Code)
	resp := decodeBody(t, res)
	assert.Equal(t, "job-1", resp["jobId"])
	assert.Equal(t, models.CaptionJobPending, resp["status"])

	job := captions.jobs["job-1"]
	require.NotNil(t, job)
	assert.EqualValues(t, 7, job.UserID)
	assert.Equal(t, "clip.mp4", job.FileName)
}

func TestGetCaptionJobCompleted(t *testing.T) {
	captions := &stubCaptionJobs{jobs: map[string]*models.CaptionJob{
		"job-9": {
			ID:     "job-9",
			UserID: 7,
			Status: models.CaptionJobCompleted,
			Segments: models.CaptionSegments{
				{Index: 0, Start: 0, End: 2.5, Text: "Hello there."},
			},
			Provider: "gemini",
		},
	}}
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, captions)

	req := httptest.NewRequest(http.MethodGet, "/api/accessibility/video-captions/job-9", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	resp := decodeBody(t, res)
	assert.Equal(t, models.CaptionJobCompleted, resp["status"])
	assert.Equal(t, "gemini", resp["provider"])
	segments, _ := resp["captions"].([]any)
	require.Len(t, segments, 1)
}

func TestGetCaptionJobOwnedByAnotherUser(t *testing.T) {
	captions := &stubCaptionJobs{jobs: map[string]*models.CaptionJob{
		"job-9": {ID: "job-9", UserID: 99, Status: models.CaptionJobCompleted},
	}}
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, captions)

	req := httptest.NewRequest(http.MethodGet, "/api/accessibility/video-captions/job-9", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestGetCaptionJobFailedCarriesReason(t *testing.T) {
	captions := &stubCaptionJobs{jobs: map[string]*models.CaptionJob{
		"job-3": {ID: "job-3", UserID: 7, Status: models.CaptionJobFailed, Error: "provider rejected the file"},
	}}
	router := newAccessibilityRouter(&stubScanner{}, &stubProvider{}, captions)

	req := httptest.NewRequest(http.MethodGet, "/api/accessibility/video-captions/job-3", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "provider rejected the file", decodeBody(t, res)["message"])
}
