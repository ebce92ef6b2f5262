package audit

import (
	"context"
	"encoding/json"
	"fmt"
)

// Violation is one rule failure reported by the accessibility engine.
type Violation struct {
	ID          string          `json:"id"`
	Impact      string          `json:"impact"`
	Help        string          `json:"help"`
	Description string          `json:"description"`
	HelpURL     string          `json:"helpUrl"`
	Nodes       json.RawMessage `json:"nodes,omitempty"`
}

// AccessibilityReport is the output of the external accessibility engine.
// Only violations are interpreted; the full document is passed through
// unchanged when serialised.
type AccessibilityReport struct {
	Violations []Violation `json:"violations"`

	raw json.RawMessage
}

// ParseAccessibilityReport decodes an engine report, keeping its raw form.
func ParseAccessibilityReport(data []byte) (*AccessibilityReport, error) {
	var report AccessibilityReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode accessibility report: %w", err)
	}
	report.raw = append(json.RawMessage(nil), data...)
	return &report, nil
}

// MarshalJSON emits the raw engine document when the report was parsed
// from one.
func (r AccessibilityReport) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type plain AccessibilityReport
	violations := r.Violations
	if violations == nil {
		violations = []Violation{}
	}
	return json.Marshal(plain{Violations: violations})
}

// UnmarshalJSON keeps the raw document so a decoded report round-trips.
func (r *AccessibilityReport) UnmarshalJSON(data []byte) error {
	type plain AccessibilityReport
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = AccessibilityReport(p)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Checker runs the accessibility engine against a loaded tab.
type Checker interface {
	Check(ctx context.Context, tabID int) (*AccessibilityReport, error)
}

// EmptyChecker reports no violations. It stands in when no engine is
// available, such as for statically fetched pages.
type EmptyChecker struct{}

// Check implements Checker.
func (EmptyChecker) Check(context.Context, int) (*AccessibilityReport, error) {
	return &AccessibilityReport{Violations: []Violation{}}, nil
}
