package vision

import (
	"context"
	"errors"
	"time"

	"aignite/internal/models"
)

// ProviderType represents the type of LLM provider.
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderOpenRouter ProviderType = "openrouter"
)

// ErrUnsupported is returned when a provider cannot handle the requested
// media kind. The multi-provider falls through to the next provider.
var ErrUnsupported = errors.New("media type not supported by provider")

// ProviderConfig holds configuration for a single provider instance.
type ProviderConfig struct {
	Type              ProviderType  `yaml:"type"`
	APIKey            string        `yaml:"api_key"`
	ModelName         string        `yaml:"model_name"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// Provider generates accessibility text for uploaded media.
type Provider interface {
	DescribeImage(ctx context.Context, data []byte, mimeType string) (*models.ImageDescription, error)
	CaptionVideo(ctx context.Context, data []byte, mimeType string) ([]models.CaptionSegment, error)
	Close() error
	ModelInfo() (provider, model string)
}
