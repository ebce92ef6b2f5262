// Package scanner extracts an immutable snapshot (metadata, headings,
// images, links) from a loaded page without modifying it.
package scanner

import (
	"context"
	"strings"
)

// Discoverer looks up robots.txt and sitemap.xml for an origin. It never
// fails: unreachable resources are reported as absent.
type Discoverer interface {
	Discover(ctx context.Context, origin string) Discovery
}

// Scanner produces snapshots of pages.
type Scanner struct {
	discoverer Discoverer
}

// New creates a Scanner. A nil discoverer skips robots.txt and sitemap.xml
// lookups; the robots file is then reported as missing.
func New(discoverer Discoverer) *Scanner {
	return &Scanner{discoverer: discoverer}
}

// Scan reads the page once and returns its snapshot.
func (s *Scanner) Scan(ctx context.Context, page *Page) *Snapshot {
	metadata := collectMetadata(page)

	pageOrigin := page.Origin()
	metadata.RobotsFile = RobotsFile{URL: pageOrigin + "/robots.txt"}

	scheme := strings.ToLower(page.URL.Scheme)
	if s.discoverer != nil && (scheme == "http" || scheme == "https") {
		found := s.discoverer.Discover(ctx, pageOrigin)
		metadata.RobotsFile = found.Robots
		metadata.SitemapRawText = found.SitemapRawText
		if found.SitemapURLs != nil {
			metadata.SitemapURLs = found.SitemapURLs
		}
	}

	return &Snapshot{
		Metadata: metadata,
		Headings: collectHeadings(page),
		Images:   collectImages(page),
		Links:    collectLinks(page),
	}
}
