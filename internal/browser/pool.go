package browser

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodPool owns a single lazily-launched browser process shared by all runs.
// Liveness is checked before every page is handed out; a dead browser is
// relaunched transparently. The browser lives on the pool's own context, not
// any caller's: cancelling one run must not touch pages owned by others.
type RodPool struct {
	mu       sync.Mutex
	browser  *rod.Browser
	cancel   context.CancelFunc
	headless bool

	// connect is swapped out in tests to avoid launching a real browser.
	connect func(ctx context.Context) (*rod.Browser, error)
}

func NewRodPool(headless bool) *RodPool {
	p := &RodPool{headless: headless}
	p.connect = p.launchAndConnect
	return p
}

func (p *RodPool) Page(ctx context.Context) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureLocked(); err != nil {
		return nil, err
	}

	page, err := p.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	// The caller's context governs only the page it owns; the shared
	// browser stays on the pool's context.
	return &rodPage{page: page.Context(ctx), browser: p.browser}, nil
}

// ensureLocked launches the browser on first use and replaces it when the
// existing instance no longer answers. The new instance gets a fresh
// pool-owned context, cancelled on Close or relaunch.
func (p *RodPool) ensureLocked() error {
	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return nil
		}
		log.Printf("browser: stale instance detected, relaunching")
		_ = p.browser.Close()
		p.cancel()
		p.browser = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	browser, err := p.connect(ctx)
	if err != nil {
		cancel()
		return err
	}
	p.browser = browser
	p.cancel = cancel
	return nil
}

func (p *RodPool) launchAndConnect(ctx context.Context) (*rod.Browser, error) {
	path, _ := launcher.LookPath()
	controlURL, err := launcher.New().Bin(path).Headless(p.headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return browser, nil
}

func (p *RodPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.cancel()
	p.browser = nil
	return err
}
