package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/audit"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/scanner"
)

// ErrNoPage is returned when a tab has no loaded browser page.
var ErrNoPage = errors.New("tab has no loaded page")

// ErrAxeUnavailable is returned when the page has no axe-core and no script
// is configured for injection.
var ErrAxeUnavailable = errors.New("accessibility engine not available")

// Provider keeps one browser page per tab. It loads pages, runs axe-core on
// them and scrolls them.
type Provider struct {
	manager *Manager

	mu    sync.Mutex
	pages map[int]*rod.Page

	axeOnce   sync.Once
	axeScript string
	axeErr    error
}

// NewProvider creates a Provider on a started Manager.
func NewProvider(manager *Manager) *Provider {
	return &Provider{
		manager: manager,
		pages:   make(map[int]*rod.Page),
	}
}

// Load navigates the tab's page to address and snapshots the rendered DOM.
func (p *Provider) Load(ctx context.Context, tabID int, address string) (*scanner.Page, error) {
	page, err := p.page(tabID)
	if err != nil {
		return nil, err
	}

	navCtx, cancel := p.manager.waitContext(ctx)
	defer cancel()

	if err := page.Context(navCtx).Navigate(address); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", address, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		logger.Log.Warn("Timed out waiting for page load", zap.Int("tab_id", tabID), zap.String("url", address), zap.Error(err))
	}

	res, err := page.Context(ctx).Eval(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	return decodeSnapshot(res.Value.Str())
}

// Check runs axe-core on the tab's loaded page.
func (p *Provider) Check(ctx context.Context, tabID int) (*audit.AccessibilityReport, error) {
	page, ok := p.loaded(tabID)
	if !ok {
		return nil, ErrNoPage
	}

	present, err := page.Context(ctx).Eval(axePresentScript)
	if err != nil {
		return nil, fmt.Errorf("failed to probe axe-core: %w", err)
	}
	if !present.Value.Bool() {
		script, err := p.loadAxeScript()
		if err != nil {
			return nil, err
		}
		if err := page.Context(ctx).AddScriptTag("", script); err != nil {
			return nil, fmt.Errorf("failed to inject axe-core: %w", err)
		}
	}

	res, err := page.Context(ctx).Evaluate(rod.Eval(axeRunScript).ByPromise())
	if err != nil {
		return nil, fmt.Errorf("axe-core run failed: %w", err)
	}
	return audit.ParseAccessibilityReport([]byte(res.Value.Str()))
}

// ScrollToHeading scrolls the tab's page to its index-th heading.
func (p *Provider) ScrollToHeading(ctx context.Context, tabID, index int) (bool, error) {
	page, ok := p.loaded(tabID)
	if !ok {
		return false, nil
	}

	res, err := page.Context(ctx).Eval(scrollToHeadingScript, index)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Release closes the tab's page.
func (p *Provider) Release(tabID int) {
	p.mu.Lock()
	page, ok := p.pages[tabID]
	delete(p.pages, tabID)
	p.mu.Unlock()

	if ok {
		if err := page.Close(); err != nil {
			logger.Log.Debug("Failed to close page", zap.Int("tab_id", tabID), zap.Error(err))
		}
	}
}

// Close releases every page.
func (p *Provider) Close() {
	p.mu.Lock()
	ids := make([]int, 0, len(p.pages))
	for id := range p.pages {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.Release(id)
	}
}

func (p *Provider) page(tabID int) (*rod.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if page, ok := p.pages[tabID]; ok {
		return page, nil
	}

	b := p.manager.Browser()
	if b == nil {
		return nil, errors.New("no active browser")
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	p.pages[tabID] = page
	return page, nil
}

func (p *Provider) loaded(tabID int) (*rod.Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	page, ok := p.pages[tabID]
	return page, ok
}

func (p *Provider) loadAxeScript() (string, error) {
	p.axeOnce.Do(func() {
		path := p.manager.cfg.AxeScriptPath
		if path == "" {
			p.axeErr = ErrAxeUnavailable
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			p.axeErr = fmt.Errorf("failed to read axe script: %w", err)
			return
		}
		p.axeScript = string(data)
	})
	return p.axeScript, p.axeErr
}

// snapshot is the payload produced by snapshotScript.
type snapshot struct {
	HTML    string               `json:"html"`
	URL     string               `json:"url"`
	BaseURI string               `json:"baseURI"`
	Images  []scanner.ImageState `json:"images"`
}

func decodeSnapshot(raw string) (*scanner.Page, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode page snapshot: %w", err)
	}

	u, err := url.Parse(snap.URL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("invalid page URL %q", snap.URL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := scanner.NewPageFromDocument(u, doc)
	if base, err := url.Parse(snap.BaseURI); err == nil && base.IsAbs() {
		page.BaseURI = base
	}
	page.Images = snap.Images
	return page, nil
}
