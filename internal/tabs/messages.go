package tabs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sykell/metabear/internal/scanner"
)

// Message type tags.
const (
	TypeRunAudit        = "RUN_AUDIT"
	TypeRunAuditForTab  = "RUN_AUDIT_FOR_TAB"
	TypeTogglePanel     = "TOGGLE_PANEL"
	TypeScrollToHeading = "SCROLL_TO_HEADING"
)

// ErrUnknownMessage is returned for an unrecognised message type.
var ErrUnknownMessage = errors.New("unknown message type")

// Message is a request addressed to a tab. The concrete types below are
// the only implementations.
type Message interface {
	Type() string
}

// RunAuditMessage asks for a fresh audit of the tab, bypassing the cache.
type RunAuditMessage struct{}

// RunAuditForTabMessage asks for the tab's audit, served from the cache
// when the tab has not navigated since.
type RunAuditForTabMessage struct {
	TabID int `json:"tabId"`
}

// TogglePanelMessage flips the tab's panel state.
type TogglePanelMessage struct{}

// ScrollToHeadingMessage scrolls the tab to the Index-th heading.
type ScrollToHeadingMessage struct {
	Index int `json:"index"`
}

func (RunAuditMessage) Type() string        { return TypeRunAudit }
func (RunAuditForTabMessage) Type() string  { return TypeRunAuditForTab }
func (TogglePanelMessage) Type() string     { return TypeTogglePanel }
func (ScrollToHeadingMessage) Type() string { return TypeScrollToHeading }

// DecodeMessage decodes a {"type": ...} tagged message.
func DecodeMessage(data []byte) (Message, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	var msg Message
	switch envelope.Type {
	case TypeRunAudit:
		msg = RunAuditMessage{}
	case TypeTogglePanel:
		msg = TogglePanelMessage{}
	case TypeRunAuditForTab:
		var m RunAuditForTabMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", envelope.Type, err)
		}
		msg = m
	case TypeScrollToHeading:
		var m ScrollToHeadingMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", envelope.Type, err)
		}
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, envelope.Type)
	}
	return msg, nil
}

// PanelState is the reply to TOGGLE_PANEL.
type PanelState struct {
	PanelMounted bool `json:"panel_mounted"`
}

// ScrollResult is the reply to SCROLL_TO_HEADING. Heading is known when the
// tab has a cached audit; Scrolled is true only when a live page moved.
type ScrollResult struct {
	Index    int                  `json:"index"`
	Heading  *scanner.HeadingInfo `json:"heading,omitempty"`
	Scrolled bool                 `json:"scrolled"`
}
