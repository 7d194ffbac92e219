package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aignite/internal/models"
)

// OpenRouterProvider calls OpenRouter's OpenAI-compatible chat completions
// API with inline base64 images. Video input is not part of that API, so
// CaptionVideo reports ErrUnsupported and the multi-provider moves on.
type OpenRouterProvider struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

type orRequest struct {
	Model    string      `json:"model"`
	Messages []orMessage `json:"messages"`
}

type orMessage struct {
	Role    string          `json:"role"`
	Content []orContentPart `json:"content"`
}

type orContentPart struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *orImageURL `json:"image_url,omitempty"`
}

type orImageURL struct {
	URL string `json:"url"`
}

type orResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenRouterProvider creates an OpenRouter-backed vision provider.
func NewOpenRouterProvider(cfg ProviderConfig, logger *zap.Logger) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "google/gemini-2.0-flash-exp:free"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	logger.Info("OpenRouter vision provider initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &OpenRouterProvider{
		apiKey:     cfg.APIKey,
		baseURL:    "https://openrouter.ai/api/v1",
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (p *OpenRouterProvider) Close() error {
	return nil
}

func (p *OpenRouterProvider) ModelInfo() (string, string) {
	return string(ProviderOpenRouter), p.modelName
}

func (p *OpenRouterProvider) DescribeImage(ctx context.Context, data []byte, mimeType string) (*models.ImageDescription, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	reqBody := orRequest{
		Model: p.modelName,
		Messages: []orMessage{{
			Role: "user",
			Content: []orContentPart{
				{Type: "text", Text: imagePrompt},
				{Type: "image_url", ImageURL: &orImageURL{URL: dataURL}},
			},
		}},
	}

	raw, err := p.complete(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var result models.ImageDescription
	if err := json.Unmarshal([]byte(parseModelJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse openrouter response: %w", err)
	}
	if result.AltText == "" {
		return nil, fmt.Errorf("openrouter returned empty alt text")
	}
	result.Provider, result.Model = p.ModelInfo()
	return &result, nil
}

func (p *OpenRouterProvider) CaptionVideo(ctx context.Context, data []byte, mimeType string) ([]models.CaptionSegment, error) {
	return nil, ErrUnsupported
}

func (p *OpenRouterProvider) complete(ctx context.Context, reqBody orRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("Retrying OpenRouter request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", p.maxRetries))
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("openrouter returned status %d", resp.StatusCode)
			p.logger.Error("OpenRouter API error",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		}

		var orResp orResponse
		if err := json.Unmarshal(body, &orResp); err != nil {
			lastErr = fmt.Errorf("failed to decode response: %w", err)
			continue
		}
		if orResp.Error != nil {
			lastErr = fmt.Errorf("openrouter error: %s", orResp.Error.Message)
			continue
		}
		if len(orResp.Choices) == 0 {
			lastErr = fmt.Errorf("empty response from openrouter")
			continue
		}

		return orResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", p.maxRetries, lastErr)
}
