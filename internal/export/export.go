// Package export builds the downloadable JSON form of an audit result.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sykell/metabear/internal/audit"
	"github.com/sykell/metabear/internal/scanner"
)

// ErrEmptySelection is returned when no section is selected.
var ErrEmptySelection = errors.New("no export fields selected")

// Field names accepted by ParseOptions.
const (
	FieldScore     = "score"
	FieldIssues    = "issues"
	FieldMetaTags  = "metaTags"
	FieldHeadings  = "headings"
	FieldImages    = "images"
	FieldLinks     = "links"
	FieldOpenGraph = "openGraph"
)

// Fields lists every section in export order.
var Fields = []string{FieldScore, FieldIssues, FieldMetaTags, FieldHeadings, FieldImages, FieldLinks, FieldOpenGraph}

// Options selects the sections of the exported object.
type Options struct {
	Score     bool
	Issues    bool
	MetaTags  bool
	Headings  bool
	Images    bool
	Links     bool
	OpenGraph bool
}

// AllOptions selects every section.
func AllOptions() Options {
	return Options{
		Score:     true,
		Issues:    true,
		MetaTags:  true,
		Headings:  true,
		Images:    true,
		Links:     true,
		OpenGraph: true,
	}
}

// Empty reports whether nothing is selected.
func (o Options) Empty() bool {
	return o == Options{}
}

// ParseOptions reads a comma separated field list. A blank list selects
// everything.
func ParseOptions(fields string) (Options, error) {
	if strings.TrimSpace(fields) == "" {
		return AllOptions(), nil
	}

	var opts Options
	for _, field := range strings.Split(fields, ",") {
		switch strings.TrimSpace(field) {
		case "":
		case FieldScore:
			opts.Score = true
		case FieldIssues:
			opts.Issues = true
		case FieldMetaTags:
			opts.MetaTags = true
		case FieldHeadings:
			opts.Headings = true
		case FieldImages:
			opts.Images = true
		case FieldLinks:
			opts.Links = true
		case FieldOpenGraph:
			opts.OpenGraph = true
		default:
			return Options{}, fmt.Errorf("unknown export field %q", strings.TrimSpace(field))
		}
	}
	return opts, nil
}

// SEOScore is the exported score section.
type SEOScore struct {
	Score       int `json:"score"`
	IssuesCount int `json:"issuesCount"`
}

// Issue is an exported issue; ids are internal and left out.
type Issue struct {
	Kind        audit.Kind     `json:"type"`
	Severity    audit.Severity `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	HelpURL     string         `json:"helpUrl,omitempty"`
}

// Robots is the exported robots.txt state.
type Robots struct {
	URL    string `json:"url"`
	Exists bool   `json:"exists"`
	Text   string `json:"text"`
}

// Sitemap is the exported sitemap state.
type Sitemap struct {
	Text string   `json:"text"`
	URLs []string `json:"urls"`
}

// MetaTags is the exported metadata section.
type MetaTags struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Canonical      *string `json:"canonical"`
	Lang           *string `json:"lang"`
	Keywords       *string `json:"keywords"`
	Author         *string `json:"author"`
	RobotsContent  *string `json:"robotsContent"`
	Favicon        *string `json:"favicon"`
	AppleTouchIcon *string `json:"appleTouchIcon"`
	WordCount      int     `json:"wordCount"`
	CharCount      int     `json:"charCount"`
	ImagesCount    int     `json:"imagesCount"`
	LinksCount     int     `json:"linksCount"`
	URL            string  `json:"url"`
	Robots         Robots  `json:"robots"`
	Sitemap        Sitemap `json:"sitemap"`
}

// OpenGraph is the exported og:* section with the twitter card folded in.
type OpenGraph struct {
	scanner.OpenGraph
	Twitter scanner.TwitterCard `json:"twitter"`
}

// Build assembles the export object for the selected sections.
func Build(result *audit.Result, opts Options, now time.Time) (map[string]interface{}, error) {
	if opts.Empty() {
		return nil, ErrEmptySelection
	}
	if result == nil {
		return nil, errors.New("no audit result to export")
	}

	meta := result.Metadata
	payload := map[string]interface{}{
		"exportedAt": now.UTC().Format(time.RFC3339Nano),
		"url":        meta.PageURL,
	}

	if opts.Score {
		payload["seoScore"] = SEOScore{Score: result.Score, IssuesCount: len(result.Issues)}
	}

	if opts.Issues {
		issues := make([]Issue, 0, len(result.Issues))
		for _, issue := range result.Issues {
			issues = append(issues, Issue{
				Kind:        issue.Kind,
				Severity:    issue.Severity,
				Title:       issue.Title,
				Description: issue.Description,
				HelpURL:     issue.HelpURL,
			})
		}
		payload["issues"] = issues
	}

	if opts.MetaTags {
		payload["metaTags"] = MetaTags{
			Title:          meta.Title,
			Description:    meta.Description,
			Canonical:      meta.CanonicalURL,
			Lang:           meta.Language,
			Keywords:       meta.Keywords,
			Author:         meta.Author,
			RobotsContent:  meta.RobotsMetaContent,
			Favicon:        meta.Favicon,
			AppleTouchIcon: meta.AppleTouchIcon,
			WordCount:      meta.WordCount,
			CharCount:      meta.CharCount,
			ImagesCount:    len(result.Images),
			LinksCount:     len(result.Links),
			URL:            meta.PageURL,
			Robots: Robots{
				URL:    meta.RobotsFile.URL,
				Exists: meta.RobotsFile.Exists,
				Text:   meta.RobotsFile.RawText,
			},
			Sitemap: Sitemap{Text: meta.SitemapRawText, URLs: nonNil(meta.SitemapURLs)},
		}
	}

	if opts.Headings {
		payload["headings"] = nonNil(result.Headings)
	}
	if opts.Images {
		payload["images"] = nonNil(result.Images)
	}
	if opts.Links {
		payload["links"] = nonNil(result.Links)
	}

	if opts.OpenGraph {
		payload["openGraph"] = OpenGraph{OpenGraph: meta.OpenGraph, Twitter: meta.TwitterCard}
	}

	return payload, nil
}

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	wwwPrefix    = regexp.MustCompile(`^www\.`)
	trailing     = regexp.MustCompile(`/+$`)
	unsafeRuns   = regexp.MustCompile(`[^a-z0-9_-]+`)
	dashRuns     = regexp.MustCompile(`-+`)
)

// Filename returns the download name for an export of pageURL, e.g.
// metabear-example-com-blog.json.
func Filename(pageURL string) string {
	name := "audit"
	if pageURL != "" {
		cleaned := schemePrefix.ReplaceAllString(pageURL, "")
		cleaned = wwwPrefix.ReplaceAllString(cleaned, "")
		cleaned = trailing.ReplaceAllString(cleaned, "")

		safe := unsafeRuns.ReplaceAllString(strings.ToLower(cleaned), "-")
		safe = dashRuns.ReplaceAllString(safe, "-")
		safe = strings.Trim(safe, "-")
		if safe != "" {
			name = safe
		}
	}
	return "metabear-" + name + ".json"
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
