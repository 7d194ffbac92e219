package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"aignite/internal/models"
)

// ErrInvalidURL indicates the scan target is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid scan url")

// Scanner audits web pages for accessibility issues in a headless browser.
// A single browser allocator is shared; every scan runs in its own tab
// context so concurrent requests do not interfere.
type Scanner struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScanner creates and initializes the shared browser allocator.
func NewScanner(headless bool, timeout time.Duration, logger *zap.Logger) (*Scanner, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Scanner{
		allocCtx: allocCtx,
		cancel:   cancel,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Close shuts down the browser and releases resources.
func (s *Scanner) Close() {
	s.cancel()
}

// Scan navigates to the target page and runs the in-page audit, returning
// the issues found. The page gets the scanner's configured deadline.
func (s *Scanner) Scan(ctx context.Context, target string) ([]models.ScanIssue, error) {
	normalized, err := NormalizeURL(target)
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(s.allocCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, s.timeout)
	defer cancelRun()

	// Propagate caller cancellation into the browser run.
	go func() {
		select {
		case <-ctx.Done():
			cancelRun()
		case <-runCtx.Done():
		}
	}()

	start := time.Now()
	var issues []models.ScanIssue
	err = chromedp.Run(runCtx,
		chromedp.Navigate(normalized),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(auditScript, &issues),
	)
	if err != nil {
		s.logger.Error("Page scan failed", zap.String("url", normalized), zap.Error(err))
		return nil, fmt.Errorf("failed to scan %s: %w", normalized, err)
	}

	for i := range issues {
		issues[i].URL = normalized
	}

	s.logger.Info("Page scanned",
		zap.String("url", normalized),
		zap.Int("issues", len(issues)),
		zap.Duration("elapsed", time.Since(start)))
	return issues, nil
}

// NormalizeURL validates the scan target and defaults the scheme to https
// when the caller omitted it.
func NormalizeURL(target string) (string, error) {
	if target == "" {
		return "", ErrInvalidURL
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + target)
		if err != nil {
			return "", ErrInvalidURL
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return parsed.String(), nil
}
