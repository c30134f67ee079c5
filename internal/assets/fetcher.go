// File: internal/assets/fetcher.go
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stickerverse/figmaconvert/internal/config"
)

// Fetcher downloads remote page assets with a shared rate limit so a
// capture never hammers the origin it just visited.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
	maxBytes int64
}

// NewFetcher builds a fetcher from the assets configuration. The HTTP
// client decompresses gzip and brotli bodies transparently.
func NewFetcher(cfg config.AssetsConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.FetchRateLimit > 0 {
		limit = rate.Limit(cfg.FetchRateLimit)
	}
	burst := cfg.FetchConcurrency
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: NewDecompressionTransport(nil),
		},
		limiter:  rate.NewLimiter(limit, burst),
		log:      logger.Named("fetcher"),
		maxBytes: int64(cfg.MaxImageKB) * 1024,
	}
}

// Fetch downloads one URL, honoring the rate limit and the per-asset size
// cap. Returns the body and the response content type.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid asset url %q: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("asset fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("asset fetch returned status %d for %s", resp.StatusCode, url)
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		// Read one byte past the cap so overflow is detectable.
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read asset body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("asset exceeds size cap (%dKB): %s", f.maxBytes/1024, url)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
