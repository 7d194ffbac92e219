package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"aignite/internal/models"
)

// limitedProvider pairs a provider with its rate limiter.
type limitedProvider struct {
	Provider
	limiter *rateLimiter
}

func (p *limitedProvider) DescribeImage(ctx context.Context, data []byte, mimeType string) (*models.ImageDescription, error) {
	if err := p.limiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return p.Provider.DescribeImage(ctx, data, mimeType)
}

func (p *limitedProvider) CaptionVideo(ctx context.Context, data []byte, mimeType string) ([]models.CaptionSegment, error) {
	if err := p.limiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return p.Provider.CaptionVideo(ctx, data, mimeType)
}

// MultiProvider tries providers in order, sticking with the current one
// until it accumulates too many consecutive failures or hits a quota error.
type MultiProvider struct {
	providers    []*limitedProvider
	mu           sync.Mutex
	current      int
	failureCount map[int]int
	maxFailures  int
	logger       *zap.Logger
}

// MultiConfig configures provider fallback.
type MultiConfig struct {
	Providers   []ProviderConfig
	MaxFailures int
}

// NewMultiProvider builds the configured providers. Providers that fail to
// initialize are skipped; at least one must come up.
func NewMultiProvider(cfg MultiConfig, logger *zap.Logger) (*MultiProvider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one vision provider is required")
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}

	providers := make([]*limitedProvider, 0, len(cfg.Providers))
	for i, providerCfg := range cfg.Providers {
		var provider Provider
		var err error

		switch providerCfg.Type {
		case ProviderGemini:
			provider, err = NewGeminiProvider(providerCfg, logger)
		case ProviderOpenRouter:
			provider, err = NewOpenRouterProvider(providerCfg, logger)
		default:
			logger.Warn("Unknown provider type, skipping",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i))
			continue
		}
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, &limitedProvider{
			Provider: provider,
			limiter:  newRateLimiter(providerCfg.RequestsPerMinute),
		})
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no vision providers could be initialized")
	}

	return &MultiProvider{
		providers:    providers,
		failureCount: make(map[int]int),
		maxFailures:  cfg.MaxFailures,
		logger:       logger,
	}, nil
}

func (m *MultiProvider) DescribeImage(ctx context.Context, data []byte, mimeType string) (*models.ImageDescription, error) {
	var result *models.ImageDescription
	err := m.withFallback(ctx, func(p *limitedProvider) error {
		r, err := p.DescribeImage(ctx, data, mimeType)
		if err == nil {
			result = r
		}
		return err
	})
	return result, err
}

func (m *MultiProvider) CaptionVideo(ctx context.Context, data []byte, mimeType string) ([]models.CaptionSegment, error) {
	var result []models.CaptionSegment
	err := m.withFallback(ctx, func(p *limitedProvider) error {
		r, err := p.CaptionVideo(ctx, data, mimeType)
		if err == nil {
			result = r
		}
		return err
	})
	return result, err
}

// withFallback runs fn against the current provider, rotating through the
// remaining ones on failure. ErrUnsupported rotates without counting as a
// provider failure.
func (m *MultiProvider) withFallback(ctx context.Context, fn func(*limitedProvider) error) error {
	var lastErr error
	for attempt := 0; attempt < len(m.providers); attempt++ {
		provider, index := m.currentProvider()

		err := fn(provider)
		if err == nil {
			m.resetFailures(index)
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		lastErr = err

		if errors.Is(err, ErrUnsupported) {
			m.rotate(index)
			continue
		}

		name, _ := provider.ModelInfo()
		m.logger.Error("Vision provider failed",
			zap.String("provider", name),
			zap.Int("index", index),
			zap.Error(err))

		if m.recordFailure(index) || isQuotaError(err) {
			m.rotate(index)
		}
	}
	return fmt.Errorf("all vision providers failed: %w", lastErr)
}

func (m *MultiProvider) currentProvider() (*limitedProvider, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.providers[m.current], m.current
}

// rotate advances past the given index unless another caller already did.
func (m *MultiProvider) rotate(from int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == from {
		m.current = (m.current + 1) % len(m.providers)
	}
}

func (m *MultiProvider) recordFailure(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCount[index]++
	return m.failureCount[index] >= m.maxFailures
}

func (m *MultiProvider) resetFailures(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCount[index] = 0
}

func (m *MultiProvider) ModelInfo() (string, string) {
	provider, _ := m.currentProvider()
	return provider.ModelInfo()
}

func (m *MultiProvider) Close() error {
	var lastErr error
	for i, provider := range m.providers {
		if err := provider.Close(); err != nil {
			m.logger.Error("Failed to close provider", zap.Int("index", i), zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}

var _ Provider = (*MultiProvider)(nil)
