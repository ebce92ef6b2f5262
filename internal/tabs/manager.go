// Package tabs orchestrates audits per tab: it owns tab sessions, reacts to
// navigation events, short-circuits restricted URLs and serves audits from
// the per-tab cache when the tab has not changed.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/audit"
	"github.com/sykell/metabear/internal/cache"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/metrics"
	"github.com/sykell/metabear/internal/scanner"
)

var (
	// ErrTabNotFound is returned for an unknown or closed tab.
	ErrTabNotFound = errors.New("tab not found")
	// ErrInvalidHeadingIndex is returned for a negative heading index.
	ErrInvalidHeadingIndex = errors.New("invalid heading index")
	// ErrTabMismatch is returned when a message names another tab.
	ErrTabMismatch = errors.New("message addressed to another tab")
)

// PageProvider loads the document currently shown in a tab.
type PageProvider interface {
	Load(ctx context.Context, tabID int, url string) (*scanner.Page, error)
}

// TabReleaser is implemented by providers holding per-tab resources.
type TabReleaser interface {
	Release(tabID int)
}

// HeadingScroller is implemented by providers backed by a live page.
type HeadingScroller interface {
	ScrollToHeading(ctx context.Context, tabID, index int) (bool, error)
}

// Recorder persists fresh audit results.
type Recorder interface {
	RecordAudit(ctx context.Context, session Session, result *audit.Result) error
}

// Response is the reply to an audit request. Restricted pages are reported
// through Restricted, never through Error.
type Response struct {
	Success    bool          `json:"success"`
	Data       *audit.Result `json:"data,omitempty"`
	Error      string        `json:"error,omitempty"`
	Restricted bool          `json:"restricted,omitempty"`
	Cached     bool          `json:"cached,omitempty"`
}

// Options configures a Manager. Provider is required; the rest default to
// an empty accessibility checker, a scanner without discovery and a fresh
// cache.
type Options struct {
	Provider PageProvider
	Checker  audit.Checker
	Scanner  *scanner.Scanner
	Cache    *cache.TabCache
	Recorder Recorder
}

// Manager owns the tab sessions and runs their audits.
type Manager struct {
	mu       sync.Mutex
	sessions map[int]*Session
	nextID   int

	cache    *cache.TabCache
	scanner  *scanner.Scanner
	provider PageProvider
	checker  audit.Checker
	recorder Recorder
	now      func() time.Time
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	if opts.Checker == nil {
		opts.Checker = audit.EmptyChecker{}
	}
	if opts.Scanner == nil {
		opts.Scanner = scanner.New(nil)
	}
	if opts.Cache == nil {
		opts.Cache = cache.New()
	}

	return &Manager{
		sessions: make(map[int]*Session),
		cache:    opts.Cache,
		scanner:  opts.Scanner,
		provider: opts.Provider,
		checker:  opts.Checker,
		recorder: opts.Recorder,
		now:      time.Now,
	}
}

// Open registers a new tab showing url.
func (m *Manager) Open(userID uint, url string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now()
	s := &Session{
		ID:        m.nextID,
		UserID:    userID,
		URL:       url,
		OpenedAt:  now,
		UpdatedAt: now,
	}
	m.sessions[s.ID] = s

	logger.Log.Info("Tab opened", zap.Int("tab_id", s.ID), zap.Uint("user_id", userID), zap.String("url", url))
	return *s
}

// Get returns a copy of the tab's session.
func (m *Manager) Get(tabID int) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tabID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// List returns the user's tabs ordered by id.
func (m *Manager) List(userID uint) []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]Session, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

// HandleEvent applies a tab lifecycle event. Any URL change, top-frame
// navigation commit or top-frame history update drops the cached audit.
func (m *Manager) HandleEvent(tabID int, event Event) error {
	if event.Type == EventRemoved {
		return m.Close(tabID)
	}

	switch event.Type {
	case EventUpdated:
		if event.URL == "" {
			return nil
		}
	case EventCommitted, EventHistoryStateUpdated:
		if event.FrameID != 0 {
			return nil
		}
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	m.mu.Lock()
	s, ok := m.sessions[tabID]
	if !ok {
		m.mu.Unlock()
		return ErrTabNotFound
	}
	if event.URL != "" {
		s.URL = event.URL
	}
	s.generation++
	s.UpdatedAt = m.now()
	m.mu.Unlock()

	m.Invalidate(tabID)
	logger.Log.Debug("Tab navigated",
		zap.Int("tab_id", tabID),
		zap.String("event", string(event.Type)),
		zap.String("url", event.URL),
	)
	return nil
}

// Invalidate drops the tab's cached audit.
func (m *Manager) Invalidate(tabID int) {
	if m.cache.Invalidate(tabID) {
		metrics.CacheInvalidations.Inc()
	}
}

// Close forgets the tab, its cached audit and any provider resources.
func (m *Manager) Close(tabID int) error {
	m.mu.Lock()
	_, ok := m.sessions[tabID]
	delete(m.sessions, tabID)
	m.mu.Unlock()

	if !ok {
		return ErrTabNotFound
	}

	m.Invalidate(tabID)
	if releaser, ok := m.provider.(TabReleaser); ok {
		releaser.Release(tabID)
	}

	logger.Log.Info("Tab closed", zap.Int("tab_id", tabID))
	return nil
}

// RunAuditForTab returns the tab's audit. A cached result recorded for the
// tab's current URL is returned unchanged; otherwise the page is scanned and
// the result cached under that URL.
func (m *Manager) RunAuditForTab(ctx context.Context, tabID int) Response {
	s, ok := m.snapshot(tabID)
	if !ok {
		return Response{Success: false, Error: ErrTabNotFound.Error()}
	}

	if IsRestrictedURL(s.URL) {
		metrics.Audits.WithLabelValues("restricted").Inc()
		return Response{Success: false, Restricted: true}
	}

	if entry, ok := m.cache.Get(tabID); ok && entry.URL == s.URL {
		metrics.CacheHits.Inc()
		metrics.Audits.WithLabelValues("cached").Inc()
		return Response{Success: true, Data: entry.Result, Cached: true}
	}
	metrics.CacheMisses.Inc()

	result, err := m.scan(ctx, s)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}

	m.store(s, result)
	return Response{Success: true, Data: result}
}

// RunAudit scans the tab's page now, ignoring any cached entry. A complete
// result replaces the tab's entry.
func (m *Manager) RunAudit(ctx context.Context, tabID int) Response {
	s, ok := m.snapshot(tabID)
	if !ok {
		return Response{Success: false, Error: ErrTabNotFound.Error()}
	}
	if IsRestrictedURL(s.URL) {
		metrics.Audits.WithLabelValues("restricted").Inc()
		return Response{Success: false, Restricted: true}
	}

	result, err := m.scan(ctx, s)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}

	m.store(s, result)
	return Response{Success: true, Data: result}
}

// store caches a complete result unless the tab navigated while it was
// being scanned.
func (m *Manager) store(s Session, result *audit.Result) {
	if result.Partial() {
		return
	}
	stored := m.cache.PutIf(s.ID, s.URL, result, func() bool {
		return m.unchanged(s)
	})
	if !stored {
		logger.Log.Debug("Discarded stale audit", zap.Int("tab_id", s.ID), zap.String("url", s.URL))
	}
}

// TogglePanel flips the tab's panel flag and returns the new state.
func (m *Manager) TogglePanel(tabID int) (PanelState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[tabID]
	if !ok {
		return PanelState{}, ErrTabNotFound
	}
	s.PanelMounted = !s.PanelMounted
	s.UpdatedAt = m.now()
	return PanelState{PanelMounted: s.PanelMounted}, nil
}

// ScrollToHeading scrolls a live tab to the index-th heading. Static
// providers cannot scroll; the heading is still looked up in the cached
// audit when there is one.
func (m *Manager) ScrollToHeading(ctx context.Context, tabID, index int) (ScrollResult, error) {
	if index < 0 {
		return ScrollResult{}, ErrInvalidHeadingIndex
	}
	if _, ok := m.Get(tabID); !ok {
		return ScrollResult{}, ErrTabNotFound
	}

	result := ScrollResult{Index: index}
	if entry, ok := m.cache.Get(tabID); ok && index < len(entry.Result.Headings) {
		heading := entry.Result.Headings[index]
		result.Heading = &heading
	}

	if scroller, ok := m.provider.(HeadingScroller); ok {
		scrolled, err := scroller.ScrollToHeading(ctx, tabID, index)
		if err != nil {
			return result, fmt.Errorf("failed to scroll to heading: %w", err)
		}
		result.Scrolled = scrolled
	}
	return result, nil
}

// Dispatch routes a message addressed to tabID.
func (m *Manager) Dispatch(ctx context.Context, tabID int, msg Message) (interface{}, error) {
	switch msg := msg.(type) {
	case RunAuditMessage:
		return m.RunAudit(ctx, tabID), nil
	case RunAuditForTabMessage:
		if msg.TabID != 0 && msg.TabID != tabID {
			return nil, ErrTabMismatch
		}
		return m.RunAuditForTab(ctx, tabID), nil
	case TogglePanelMessage:
		return m.TogglePanel(tabID)
	case ScrollToHeadingMessage:
		return m.ScrollToHeading(ctx, tabID, msg.Index)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
}

// snapshot copies the session so a scan works on the URL and generation
// captured at its start.
func (m *Manager) snapshot(tabID int) (Session, bool) {
	return m.Get(tabID)
}

// unchanged reports whether the tab still shows what s captured.
func (m *Manager) unchanged(s Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[s.ID]
	return ok && current.generation == s.generation && current.URL == s.URL
}

// scan loads the page, runs the accessibility check and classifies the
// snapshot. A failing accessibility check degrades the result instead of
// failing it.
func (m *Manager) scan(ctx context.Context, s Session) (*audit.Result, error) {
	start := time.Now()

	if m.provider == nil {
		return nil, errors.New("no page provider configured")
	}

	page, err := m.provider.Load(ctx, s.ID, s.URL)
	if err != nil {
		metrics.Audits.WithLabelValues("failed").Inc()
		logger.Log.Warn("Failed to load page", zap.Int("tab_id", s.ID), zap.String("url", s.URL), zap.Error(err))
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	report, checkErr := m.checker.Check(ctx, s.ID)
	snap := m.scanner.Scan(ctx, page)

	var result *audit.Result
	if checkErr != nil {
		logger.Log.Warn("Accessibility check failed", zap.Int("tab_id", s.ID), zap.Error(checkErr))
		result = audit.Build(snap, nil)
		result.Error = checkErr.Error()
		metrics.Audits.WithLabelValues("partial").Inc()
	} else {
		result = audit.Build(snap, report)
		metrics.Audits.WithLabelValues("fresh").Inc()
	}

	metrics.AuditDuration.Observe(time.Since(start).Seconds())
	metrics.Scores.Observe(float64(result.Score))

	if m.recorder != nil {
		if err := m.recorder.RecordAudit(ctx, s, result); err != nil {
			logger.Log.Error("Failed to record audit", zap.Int("tab_id", s.ID), zap.Error(err))
		}
	}

	logger.Log.Info("Audit completed",
		zap.Int("tab_id", s.ID),
		zap.String("url", s.URL),
		zap.Int("score", result.Score),
		zap.Int("issues", len(result.Issues)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}
