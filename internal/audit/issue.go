package audit

import "sort"

// Kind is the category an issue belongs to.
type Kind string

const (
	KindSEO           Kind = "seo"
	KindAccessibility Kind = "accessibility"
	KindPerformance   Kind = "performance"
	KindSecurity      Kind = "security"
)

// Severity ranks issues for ordering and score penalties.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Issue is one classified problem found on a page.
type Issue struct {
	Kind        Kind     `json:"type"`
	Severity    Severity `json:"severity"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	HelpURL     string   `json:"helpUrl,omitempty"`
}

// Score penalties per issue.
const (
	highPenalty   = 6
	mediumPenalty = 5
)

// Score is max(0, 100 - 6*high - 5*medium).
func Score(issues []Issue) int {
	high, medium := Counts(issues)
	score := 100 - highPenalty*high - mediumPenalty*medium
	if score < 0 {
		return 0
	}
	return score
}

// Counts returns the number of high and medium severity issues.
func Counts(issues []Issue) (high, medium int) {
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}
	return high, medium
}

// SortBySeverity orders high severity issues before medium ones, keeping
// generation order within a severity.
func SortBySeverity(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return rank(issues[i].Severity) < rank(issues[j].Severity)
	})
}

func rank(s Severity) int {
	if s == SeverityHigh {
		return 0
	}
	return 1
}
