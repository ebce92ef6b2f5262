// Package app assembles the audit pipeline shared by the server and the CLI.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/audit"
	"github.com/sykell/metabear/internal/browser"
	"github.com/sykell/metabear/internal/config"
	"github.com/sykell/metabear/internal/discovery"
	"github.com/sykell/metabear/internal/fetcher"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/scanner"
	"github.com/sykell/metabear/internal/tabs"
)

// Pipeline is a page provider, an accessibility checker and a scanner
// ready to hand to a tabs.Manager.
type Pipeline struct {
	Provider tabs.PageProvider
	Checker  audit.Checker
	Scanner  *scanner.Scanner

	closers []func()
}

// NewPipeline builds the pipeline described by cfg. With the browser
// enabled, pages come from headless Chrome and axe-core runs in them;
// otherwise pages are fetched over HTTP and no accessibility report is
// produced.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	httpProvider := fetcher.NewHTTPProvider(&fetcher.Config{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	})
	discoverer := discovery.NewClient(httpProvider.Client(), &discovery.Config{
		Timeout:   cfg.DiscoveryTimeout,
		UserAgent: cfg.UserAgent,
	})

	p := &Pipeline{
		Provider: httpProvider,
		Checker:  audit.EmptyChecker{},
		Scanner:  scanner.New(discoverer),
	}

	if !cfg.BrowserEnabled {
		logger.Log.Info("Using HTTP page provider")
		return p, nil
	}

	manager := browser.NewManager(&browser.Config{
		RemoteURL:         cfg.BrowserRemoteURL,
		NavigationTimeout: cfg.FetchTimeout,
		AxeScriptPath:     cfg.AxeScriptPath,
	})
	if err := manager.Start(); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	provider := browser.NewProvider(manager)
	p.Provider = provider
	p.Checker = provider
	p.closers = append(p.closers, provider.Close, func() {
		if err := manager.Close(); err != nil {
			logger.Log.Warn("Failed to close browser", zap.Error(err))
		}
	})

	logger.Log.Info("Using browser page provider", zap.Bool("remote", cfg.BrowserRemoteURL != ""))
	return p, nil
}

// Options returns manager options for this pipeline.
func (p *Pipeline) Options(recorder tabs.Recorder) tabs.Options {
	return tabs.Options{
		Provider: p.Provider,
		Checker:  p.Checker,
		Scanner:  p.Scanner,
		Recorder: recorder,
	}
}

// Close releases browser resources, if any.
func (p *Pipeline) Close() {
	for _, closeFn := range p.closers {
		closeFn()
	}
}
