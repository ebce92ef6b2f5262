// Package browser drives a headless Chrome through rod so audits see the
// rendered DOM, runtime image state and an in-page accessibility engine.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/logger"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// NavigationTimeout bounds navigation and load of a tab.
	NavigationTimeout time.Duration

	// AxeScriptPath points to axe.min.js, injected into pages that do not
	// already load axe-core.
	AxeScriptPath string
}

// DefaultConfig returns default browser configuration
func DefaultConfig() *Config {
	return &Config{
		NavigationTimeout: 30 * time.Second,
	}
}

// Manager owns the Chrome process or remote connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start to connect.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Manager{cfg: cfg}
}

// Start launches or connects to Chrome.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("browser manager is closed")
	}
	if m.browser != nil {
		return nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("failed to launch chrome: %w", err)
		}
		wsURL = u
		m.lnch = l
		logger.Log.Info("Launched local chrome", zap.String("url", wsURL))
	} else {
		logger.Log.Info("Connecting to remote chrome", zap.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		m.cleanup()
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}
	m.browser = b
	return nil
}

// Browser returns the current rod browser, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts Chrome down.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

// waitContext bounds one navigation.
func (m *Manager) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.NavigationTimeout)
}
