package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScanIssue is a single accessibility finding on a scanned page.
// The shape matches what the web client renders.
type ScanIssue struct {
	Type       string `json:"type"` // "error", "warning" or "info"
	Message    string `json:"message"`
	Element    string `json:"element,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       string `json:"code,omitempty"`
	Impact     string `json:"impact,omitempty"` // "critical", "serious", "moderate" or "minor"
	WCAG       string `json:"wcag,omitempty"`
	URL        string `json:"url,omitempty"`
}

// ImageDescription is the generated alt-text result for an uploaded image.
type ImageDescription struct {
	Description string `json:"description"`
	AltText     string `json:"altText"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
}

// CaptionSegment is one timed caption line of a video.
type CaptionSegment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// CaptionSegments is stored as a JSONB column on caption jobs.
type CaptionSegments []CaptionSegment

func (s CaptionSegments) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *CaptionSegments) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = nil
		return nil
	default:
		return fmt.Errorf("unsupported caption segments type %T", src)
	}
}

// Caption job lifecycle states.
const (
	CaptionJobPending    = "pending"
	CaptionJobProcessing = "processing"
	CaptionJobCompleted  = "completed"
	CaptionJobFailed     = "failed"
)

// CaptionJob tracks an asynchronous video captioning request.
type CaptionJob struct {
	ID        string          `db:"id"`
	UserID    int64           `db:"user_id"`
	Status    string          `db:"status"`
	FileName  string          `db:"file_name"`
	MimeType  string          `db:"mime_type"`
	Segments  CaptionSegments `db:"segments"`
	Error     string          `db:"error"`
	Provider  string          `db:"provider"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
