// Package fetcher loads pages over plain HTTP. Pages loaded this way carry
// no runtime image state.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/scanner"
)

// maxBodySize caps how much of a document is read.
const maxBodySize = 10 << 20

// Config holds fetcher configuration
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns default fetcher configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		UserAgent: "MetaBear/1.0",
	}
}

// HTTPProvider fetches the document at a tab's URL.
type HTTPProvider struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProvider creates a provider with a pooled client.
func NewHTTPProvider(config *Config) *HTTPProvider {
	if config == nil {
		config = DefaultConfig()
	}

	return &HTTPProvider{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: config.UserAgent,
	}
}

// Client returns the underlying HTTP client so discovery can share it.
func (p *HTTPProvider) Client() *http.Client {
	return p.client
}

// Load fetches and parses the page. The final URL after redirects becomes
// the page URL.
func (p *HTTPProvider) Load(ctx context.Context, tabID int, address string) (*scanner.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	page, err := scanner.NewPage(resp.Request.URL.String(), io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	logger.Log.Debug("Fetched page",
		zap.Int("tab_id", tabID),
		zap.String("url", page.URL.String()),
		zap.Int("status", resp.StatusCode),
	)
	return page, nil
}
