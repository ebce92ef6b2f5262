package tabs

import "time"

// Session is the server-side state of one audited tab. It replaces the
// ambient flags a content script would keep per document.
type Session struct {
	ID           int       `json:"id"`
	UserID       uint      `json:"user_id"`
	URL          string    `json:"url"`
	PanelMounted bool      `json:"panel_mounted"`
	OpenedAt     time.Time `json:"opened_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// generation increments on every navigation; a scan started under an
	// older generation must not be cached.
	generation uint64
}

// EventType names a tab lifecycle event.
type EventType string

const (
	// EventUpdated is a tab URL change.
	EventUpdated EventType = "updated"
	// EventCommitted is a committed navigation.
	EventCommitted EventType = "committed"
	// EventHistoryStateUpdated is a pushState/replaceState route change.
	EventHistoryStateUpdated EventType = "history_state_updated"
	// EventRemoved is the tab being closed.
	EventRemoved EventType = "removed"
)

// Event is one tab lifecycle notification. FrameID 0 is the top frame;
// navigation events for other frames are ignored.
type Event struct {
	Type    EventType `json:"type" binding:"required,oneof=updated committed history_state_updated removed"`
	URL     string    `json:"url"`
	FrameID int       `json:"frame_id"`
}
