package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aignite/internal/models"
)

type fakeProvider struct {
	name     string
	imageErr error
	videoErr error
	calls    int
}

func (f *fakeProvider) DescribeImage(_ context.Context, _ []byte, _ string) (*models.ImageDescription, error) {
	f.calls++
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &models.ImageDescription{AltText: "alt from " + f.name, Provider: f.name}, nil
}

func (f *fakeProvider) CaptionVideo(_ context.Context, _ []byte, _ string) ([]models.CaptionSegment, error) {
	f.calls++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return []models.CaptionSegment{{Index: 0, End: 1, Text: "from " + f.name}}, nil
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) ModelInfo() (string, string) { return f.name, "fake-model" }

func newTestMulti(fakes ...*fakeProvider) *MultiProvider {
	providers := make([]*limitedProvider, 0, len(fakes))
	for _, f := range fakes {
		providers = append(providers, &limitedProvider{
			Provider: f,
			limiter:  newRateLimiter(600),
		})
	}
	return &MultiProvider{
		providers:    providers,
		failureCount: make(map[int]int),
		maxFailures:  2,
		logger:       zap.NewNop(),
	}
}

func TestMultiProviderUsesFirstHealthy(t *testing.T) {
	first := &fakeProvider{name: "first"}
	second := &fakeProvider{name: "second"}
	multi := newTestMulti(first, second)

	desc, err := multi.DescribeImage(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "alt from first", desc.AltText)
	assert.Equal(t, 0, second.calls)
}

func TestMultiProviderFallsBackOnQuota(t *testing.T) {
	first := &fakeProvider{name: "first", imageErr: errors.New("429: quota exceeded")}
	second := &fakeProvider{name: "second"}
	multi := newTestMulti(first, second)

	desc, err := multi.DescribeImage(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "alt from second", desc.AltText)

	// The rotation sticks for subsequent calls.
	_, err = multi.DescribeImage(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, 1, first.calls)
}

func TestMultiProviderSkipsUnsupportedVideo(t *testing.T) {
	first := &fakeProvider{name: "first", videoErr: ErrUnsupported}
	second := &fakeProvider{name: "second"}
	multi := newTestMulti(first, second)

	segments, err := multi.CaptionVideo(context.Background(), []byte("vid"), "video/mp4")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "from second", segments[0].Text)

	// ErrUnsupported is not a failure, so the image path is untouched.
	assert.Equal(t, 0, multi.failureCount[0])
}

func TestMultiProviderAllFail(t *testing.T) {
	first := &fakeProvider{name: "first", imageErr: errors.New("boom")}
	second := &fakeProvider{name: "second", imageErr: errors.New("also boom")}
	multi := newTestMulti(first, second)

	_, err := multi.DescribeImage(context.Background(), []byte("img"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all vision providers failed")
}

func TestMultiProviderRotatesAfterRepeatedFailures(t *testing.T) {
	first := &fakeProvider{name: "first", imageErr: errors.New("upstream 500")}
	second := &fakeProvider{name: "second"}
	multi := newTestMulti(first, second)

	// maxFailures is 2: the first call burns both fallback attempts on the
	// failing provider and rotates away from it at the threshold.
	_, err := multi.DescribeImage(context.Background(), []byte("img"), "image/png")
	require.Error(t, err)
	assert.Equal(t, 2, first.calls)

	desc, err := multi.DescribeImage(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "alt from second", desc.AltText)
	assert.Equal(t, 2, first.calls)
}

func TestParseModelJSONStripsFences(t *testing.T) {
	cases := map[string]string{
		"plain":        `{"altText":"a dog"}`,
		"fenced":       "```json\n{\"altText\":\"a dog\"}\n```",
		"bare fence":   "```\n{\"altText\":\"a dog\"}\n```",
		"padded":       "  {\"altText\":\"a dog\"}  ",
		"fence padded": "  ```json\n{\"altText\":\"a dog\"}\n```  ",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, `{"altText":"a dog"}`, parseModelJSON(raw))
		})
	}
}

func TestRateLimiterBlocksWhenDrained(t *testing.T) {
	rl := newRateLimiter(60) // one token per second
	rl.tokens = 0
	rl.lastRefill = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := rl.wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := newRateLimiter(10)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, rl.wait(ctx))
	}
}

func TestIsQuotaError(t *testing.T) {
	assert.True(t, isQuotaError(errors.New("HTTP 429 from upstream")))
	assert.True(t, isQuotaError(errors.New("gemini quota exhausted")))
	assert.True(t, isQuotaError(errors.New("rate limit hit")))
	assert.False(t, isQuotaError(errors.New("connection refused")))
	assert.False(t, isQuotaError(nil))
}
