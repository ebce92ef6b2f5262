// Package discovery looks up a site's robots.txt and sitemap.xml. Both
// lookups are best effort: any failure is reported as "not found".
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/metrics"
	"github.com/sykell/metabear/internal/scanner"
)

// maxBodySize caps how much of robots.txt / sitemap.xml is read.
const maxBodySize = 5 << 20

// Config holds discovery configuration
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns default discovery configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:   5 * time.Second,
		UserAgent: "MetaBear/1.0",
	}
}

// Client fetches robots.txt and sitemap.xml.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// NewClient creates a discovery client. A nil httpClient uses a dedicated
// client with the configured timeout.
func NewClient(httpClient *http.Client, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		http:      httpClient,
		timeout:   config.Timeout,
		userAgent: config.UserAgent,
	}
}

// Discover fetches {origin}/robots.txt and {origin}/sitemap.xml
// concurrently. When the sitemap is a sitemap index its <loc> entries are
// returned; when no sitemap was found, Sitemap: directives from robots.txt
// are used instead.
func (c *Client) Discover(ctx context.Context, origin string) scanner.Discovery {
	origin = strings.TrimSuffix(origin, "/")
	robotsURL := origin + "/robots.txt"
	sitemapURL := origin + "/sitemap.xml"

	var (
		wg                      sync.WaitGroup
		robotsText, sitemapText string
		robotsOK, sitemapOK     bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		robotsText, robotsOK = c.fetch(ctx, robotsURL)
		if !robotsOK {
			metrics.DiscoveryFailures.WithLabelValues("robots.txt").Inc()
		}
	}()
	go func() {
		defer wg.Done()
		sitemapText, sitemapOK = c.fetch(ctx, sitemapURL)
		if !sitemapOK {
			metrics.DiscoveryFailures.WithLabelValues("sitemap.xml").Inc()
		}
	}()
	wg.Wait()

	result := scanner.Discovery{
		Robots: scanner.RobotsFile{
			URL:     robotsURL,
			Exists:  robotsOK,
			RawText: robotsText,
		},
		SitemapURLs: []string{},
	}

	if sitemapOK {
		result.SitemapRawText = sitemapText
		if locs := SitemapIndexLocations(sitemapText); len(locs) > 0 {
			result.SitemapURLs = locs
		} else {
			result.SitemapURLs = []string{sitemapURL}
		}
	}

	if len(result.SitemapURLs) == 0 && robotsText != "" {
		result.SitemapURLs = RobotsSitemaps(robotsText)
	}

	return result
}

// fetch GETs url and returns its body. Network errors, timeouts and non-2xx
// statuses all yield ok == false.
func (c *Client) fetch(ctx context.Context, url string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.get(ctx, url)
	if err != nil {
		logger.Log.Debug("Discovery fetch treated as not found",
			zap.String("url", url),
			zap.Error(err),
		)
		return "", false
	}
	return body, true
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

// SitemapIndexLocations returns the <loc> URLs of a sitemap index document,
// or nil when text is not a sitemap index.
func SitemapIndexLocations(text string) []string {
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil
	}

	nodes, err := xmlquery.QueryAll(doc, "//*[local-name()='sitemapindex']//*[local-name()='loc']")
	if err != nil {
		return nil
	}

	var locs []string
	for _, n := range nodes {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}

// RobotsSitemaps returns the Sitemap: directives of a robots.txt body.
// Bodies the robots.txt parser rejects are scanned line by line instead.
func RobotsSitemaps(text string) []string {
	robots, err := robotstxt.FromString(text)
	if err != nil {
		logger.Log.Debug("robots.txt did not parse, scanning for Sitemap lines", zap.Error(err))
		return sitemapLines(text)
	}

	sitemaps := make([]string, 0, len(robots.Sitemaps))
	for _, s := range robots.Sitemaps {
		if s = strings.TrimSpace(s); s != "" {
			sitemaps = append(sitemaps, s)
		}
	}
	return sitemaps
}

// sitemapLines matches "sitemap:" case-insensitively at the start of each line.
func sitemapLines(text string) []string {
	const prefix = "sitemap:"

	sitemaps := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
			continue
		}
		if s := strings.TrimSpace(line[len(prefix):]); s != "" {
			sitemaps = append(sitemaps, s)
		}
	}
	return sitemaps
}
