package audit

import "github.com/sykell/metabear/internal/scanner"

// Result is the outcome of one audit of one page view.
type Result struct {
	Accessibility *AccessibilityReport  `json:"accessibility"`
	Error         string                `json:"error,omitempty"`
	Issues        []Issue               `json:"issues"`
	Metadata      scanner.PageMetadata  `json:"metadata"`
	Headings      []scanner.HeadingInfo `json:"headings"`
	Images        []scanner.ImageInfo   `json:"images"`
	Links         []scanner.LinkInfo    `json:"links"`
	Score         int                   `json:"score"`
}

// Build classifies a snapshot and assembles the result.
func Build(snap *scanner.Snapshot, report *AccessibilityReport) *Result {
	issues := Classify(snap, report)
	return &Result{
		Accessibility: report,
		Issues:        issues,
		Metadata:      snap.Metadata,
		Headings:      snap.Headings,
		Images:        snap.Images,
		Links:         snap.Links,
		Score:         Score(issues),
	}
}

// Partial reports whether the accessibility check failed for this result.
func (r *Result) Partial() bool {
	return r.Error != ""
}
