package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"aignite/internal/models"
)

// GeminiProvider generates descriptions and captions with the Gemini API.
// Gemini accepts inline image and video blobs, so both media kinds are
// supported.
type GeminiProvider struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	logger     *zap.Logger
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiProvider creates a Gemini-backed vision provider.
func NewGeminiProvider(cfg ProviderConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.2),
		TopP:            genai.Ptr[float32](0.9),
		MaxOutputTokens: genai.Ptr[int32](2048),
	}

	logger.Info("Gemini vision provider initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &GeminiProvider{
		client:     client,
		model:      model,
		logger:     logger,
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) ModelInfo() (string, string) {
	return string(ProviderGemini), p.modelName
}

// DescribeImage produces a detailed description and short alt text.
func (p *GeminiProvider) DescribeImage(ctx context.Context, data []byte, mimeType string) (*models.ImageDescription, error) {
	raw, err := p.generate(ctx, data, mimeType, imagePrompt)
	if err != nil {
		return nil, err
	}

	var result models.ImageDescription
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if result.AltText == "" {
		return nil, fmt.Errorf("gemini returned empty alt text")
	}
	result.Provider, result.Model = p.ModelInfo()
	return &result, nil
}

// CaptionVideo produces timed caption segments for an inline video blob.
func (p *GeminiProvider) CaptionVideo(ctx context.Context, data []byte, mimeType string) ([]models.CaptionSegment, error) {
	raw, err := p.generate(ctx, data, mimeType, videoPrompt)
	if err != nil {
		return nil, err
	}

	var segments []models.CaptionSegment
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, fmt.Errorf("failed to parse gemini captions: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("gemini returned no caption segments")
	}
	return segments, nil
}

func (p *GeminiProvider) generate(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	blob := genai.Blob{MIMEType: mimeType, Data: data}

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("Retrying Gemini request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", p.maxRetries))
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := p.model.GenerateContent(ctx, blob, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			p.logger.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from gemini")
			continue
		}

		textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response type from gemini")
			continue
		}

		return parseModelJSON(string(textPart)), nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", p.maxRetries, lastErr)
}

// parseModelJSON strips markdown code fences that some models wrap around
// JSON output despite the response MIME type.
func parseModelJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
