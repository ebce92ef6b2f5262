// Package audit turns a page snapshot and an accessibility report into a
// severity ordered list of issues and a 0-100 score.
package audit

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sykell/metabear/internal/scanner"
)

// Length thresholds for the title and meta description, in characters.
const (
	TitleMinLength       = 40
	TitleMaxLength       = 60
	DescriptionMinLength = 100
	DescriptionMaxLength = 150
	ThinContentWords     = 100
)

// Classify runs every rule over the snapshot and report and returns the
// issues sorted high severity first. A nil report contributes nothing.
func Classify(snap *scanner.Snapshot, report *AccessibilityReport) []Issue {
	issues := make([]Issue, 0)

	issues = append(issues, accessibilityIssues(report)...)
	issues = append(issues, seoIssues(snap.Metadata)...)
	issues = append(issues, headingIssues(snap.Headings)...)
	issues = append(issues, imageIssues(snap.Images)...)
	issues = append(issues, linkIssues(snap.Links)...)

	SortBySeverity(issues)
	return issues
}

// accessibilityIssues keeps critical and serious violations, one issue each.
func accessibilityIssues(report *AccessibilityReport) []Issue {
	if report == nil {
		return nil
	}

	var issues []Issue
	for _, v := range report.Violations {
		var severity Severity
		switch v.Impact {
		case "critical":
			severity = SeverityHigh
		case "serious":
			severity = SeverityMedium
		default:
			continue
		}
		issues = append(issues, Issue{
			Kind:        KindAccessibility,
			Severity:    severity,
			ID:          v.ID,
			Title:       v.Help,
			Description: v.Description,
			HelpURL:     v.HelpURL,
		})
	}
	return issues
}

func seoIssues(meta scanner.PageMetadata) []Issue {
	var issues []Issue

	if issue, ok := titleIssue(meta.Title); ok {
		issues = append(issues, issue)
	}
	if issue, ok := descriptionIssue(meta.Description); ok {
		issues = append(issues, issue)
	}
	if issue, ok := canonicalIssue(meta.PageURL, meta.CanonicalURL); ok {
		issues = append(issues, issue)
	}

	if meta.Language == nil {
		issues = append(issues, Issue{
			Kind:        KindAccessibility,
			Severity:    SeverityMedium,
			ID:          "seo-missing-lang",
			Title:       "Missing Lang Attribute",
			Description: "No lang on <html>. Required for accessibility and SEO.",
		})
	}

	var missingOG []string
	if meta.OpenGraph.Title == nil {
		missingOG = append(missingOG, "og:title")
	}
	if meta.OpenGraph.Description == nil {
		missingOG = append(missingOG, "og:description")
	}
	if meta.OpenGraph.Image == nil {
		missingOG = append(missingOG, "og:image")
	}
	if len(missingOG) > 0 {
		issues = append(issues, Issue{
			Kind:        KindSEO,
			Severity:    SeverityMedium,
			ID:          "seo-missing-og-tags",
			Title:       "Missing OG Tags",
			Description: fmt.Sprintf("Missing: %s. Affects social media previews.", strings.Join(missingOG, ", ")),
		})
	}

	if meta.WordCount < ThinContentWords {
		issues = append(issues, Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-thin-content",
			Title:       "Thin Content",
			Description: fmt.Sprintf("Only %d words. Pages under %d words may be seen as thin content.", meta.WordCount, ThinContentWords),
		})
	}

	if !meta.RobotsFile.Exists {
		issues = append(issues, Issue{
			Kind:        KindSEO,
			Severity:    SeverityMedium,
			ID:          "seo-missing-robots",
			Title:       "Missing robots.txt",
			Description: fmt.Sprintf("No robots.txt found at %s. Crawlers fall back to default rules.", meta.RobotsFile.URL),
		})
	}

	if len(meta.SitemapURLs) == 0 {
		issues = append(issues, Issue{
			Kind:        KindSEO,
			Severity:    SeverityMedium,
			ID:          "seo-missing-sitemap",
			Title:       "Missing Sitemap",
			Description: "No sitemap.xml found and robots.txt declares none. Sitemaps help search engines discover pages.",
		})
	}

	return issues
}

func titleIssue(title *string) (Issue, bool) {
	if title == nil || *title == "" {
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-missing-title",
			Title:       "Missing Page Title",
			Description: "No <title> tag found. Required for SEO and browser tabs.",
		}, true
	}

	length := utf8.RuneCountInString(*title)
	switch {
	case length < TitleMinLength:
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-title-too-short",
			Title:       "Short Page Title",
			Description: fmt.Sprintf("Title is %d characters. Recommended: %d–%d characters.", length, TitleMinLength, TitleMaxLength),
		}, true
	case length > TitleMaxLength:
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-title-too-long",
			Title:       "Long Page Title",
			Description: fmt.Sprintf("Title is %d characters. Recommended: %d–%d characters.", length, TitleMinLength, TitleMaxLength),
		}, true
	}
	return Issue{}, false
}

func descriptionIssue(description *string) (Issue, bool) {
	if description == nil || *description == "" {
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-missing-description",
			Title:       "Missing Meta Description",
			Description: "No meta description found. Affects click-through rate in search results.",
		}, true
	}

	length := utf8.RuneCountInString(*description)
	switch {
	case length < DescriptionMinLength:
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-description-too-short",
			Title:       "Short Meta Description",
			Description: fmt.Sprintf("Description is %d characters. Recommended: %d–%d characters.", length, DescriptionMinLength, DescriptionMaxLength),
		}, true
	case length > DescriptionMaxLength:
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-description-too-long",
			Title:       "Long Meta Description",
			Description: fmt.Sprintf("Description is %d characters. Recommended: %d–%d characters.", length, DescriptionMinLength, DescriptionMaxLength),
		}, true
	}
	return Issue{}, false
}

// canonicalIssue flags a missing canonical (high) or one whose origin and
// path differ from the page's (medium). An unparsable canonical is ignored.
func canonicalIssue(pageURL string, canonical *string) (Issue, bool) {
	if canonical == nil || *canonical == "" {
		return Issue{
			Kind:        KindSEO,
			Severity:    SeverityHigh,
			ID:          "seo-missing-canonical",
			Title:       "Missing Canonical",
			Description: "No canonical URL. Can cause duplicate content issues.",
		}, true
	}

	match, ok := scanner.CanonicalMatches(pageURL, *canonical)
	if !ok || match {
		return Issue{}, false
	}
	return Issue{
		Kind:        KindSEO,
		Severity:    SeverityMedium,
		ID:          "seo-canonical-mismatch",
		Title:       "Canonical Mismatch",
		Description: "Current and canonical URLs don't match. Update the canonical tag to reflect the primary URL.",
	}, true
}

func headingIssues(headings []scanner.HeadingInfo) []Issue {
	if len(headings) == 0 {
		return []Issue{{
			Kind:        KindAccessibility,
			Severity:    SeverityMedium,
			ID:          "heading-no-headings",
			Title:       "No Headings",
			Description: "No h1–h6 elements found. Headings help structure and accessibility.",
		}}
	}

	if HasHierarchySkip(headings) {
		return []Issue{{
			Kind:        KindAccessibility,
			Severity:    SeverityMedium,
			ID:          "heading-hierarchy-skip",
			Title:       "Heading Level Skip",
			Description: "Levels are skipped (e.g., h1 → h3). Keep heading levels sequential.",
		}}
	}
	return nil
}

// HasHierarchySkip reports whether any heading is more than one level
// deeper than the heading before it.
func HasHierarchySkip(headings []scanner.HeadingInfo) bool {
	for i := 1; i < len(headings); i++ {
		if headings[i].Level-headings[i-1].Level > 1 {
			return true
		}
	}
	return false
}

func imageIssues(images []scanner.ImageInfo) []Issue {
	var missingAlt, broken int
	for _, img := range images {
		if !img.HasAltAttribute {
			missingAlt++
		}
		if img.IsBroken {
			broken++
		}
	}

	var issues []Issue
	if missingAlt > 0 {
		issues = append(issues, Issue{
			Kind:        KindAccessibility,
			Severity:    SeverityMedium,
			ID:          "image-missing-alt",
			Title:       "Missing Alt Text",
			Description: fmt.Sprintf("%d %s without alt text. Required for screen readers.", missingAlt, plural(missingAlt, "image", "images")),
		})
	}
	if broken > 0 {
		issues = append(issues, Issue{
			Kind:        KindPerformance,
			Severity:    SeverityHigh,
			ID:          "image-broken",
			Title:       "Broken Images",
			Description: fmt.Sprintf("%d %s failed to load.", broken, plural(broken, "image", "images")),
		})
	}
	return issues
}

func linkIssues(links []scanner.LinkInfo) []Issue {
	empty := 0
	for _, link := range links {
		if strings.TrimSpace(link.VisibleText) == "" {
			empty++
		}
	}
	if empty == 0 {
		return nil
	}
	return []Issue{{
		Kind:        KindAccessibility,
		Severity:    SeverityMedium,
		ID:          "link-empty-text",
		Title:       "Empty Link Text",
		Description: fmt.Sprintf("%d %s with no visible text. Add descriptive text for accessibility.", empty, plural(empty, "link", "links")),
	}}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
