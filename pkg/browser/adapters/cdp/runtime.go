// Package cdp implements the browser page port on top of the Chrome
// DevTools Protocol using go-rod.
package cdp

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/odvcencio/pagechat/pkg/browser"
)

// Runtime is a Chrome-backed browser runtime.
type Runtime struct {
	cfg      Config
	browser  *rod.Browser
	launcher *launcher.Launcher

	mu   sync.Mutex
	page *Page
}

var _ browser.Runtime = (*Runtime)(nil)

// NewRuntime connects to cfg.ControlURL, or launches a browser when no
// control URL is configured.
func NewRuntime(ctx context.Context, cfg Config) (*Runtime, error) {
	merged := cfg.withDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	controlURL := merged.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Context(ctx).Headless(merged.Headless)
		if merged.BinPath != "" {
			l = l.Bin(merged.BinPath)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("%w: connect %s: %v", browser.ErrUnavailable, controlURL, err)
	}

	return &Runtime{cfg: merged, browser: b, launcher: l}, nil
}

// Page returns the chat tab, opening StartURL when no tab matches.
func (r *Runtime) Page(ctx context.Context) (browser.Page, error) {
	if r == nil || r.browser == nil {
		return nil, browser.ErrUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.page != nil {
		return r.page, nil
	}

	b := r.browser.Context(ctx)
	pages, err := b.Pages()
	if err != nil {
		return nil, browser.WrapPageError("list_pages", "", err)
	}
	var chosen *rod.Page
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if r.cfg.matches(info.URL) {
			chosen = p
			break
		}
	}

	if chosen == nil {
		if r.cfg.StartURL == "" {
			return nil, fmt.Errorf("%w: %s", browser.ErrNoPage, r.cfg.URLMatch)
		}
		chosen, err = b.Page(proto.TargetCreateTarget{URL: r.cfg.StartURL})
		if err != nil {
			return nil, browser.WrapPageError("open", r.cfg.StartURL, err)
		}
		if err := chosen.Context(ctx).WaitLoad(); err != nil {
			return nil, browser.WrapPageError("wait_load", r.cfg.StartURL, err)
		}
	}

	r.page = &Page{page: chosen, cfg: r.cfg}
	return r.page, nil
}

// Close releases the browser when this runtime launched it. A browser
// reached through ControlURL is left running.
func (r *Runtime) Close() error {
	if r == nil || r.launcher == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()
	return err
}
