package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/webnav/internal/extract"
	"github.com/v0xg/webnav/internal/session"
)

// rodPage adapts a rod page to the executor's Page surface.
type rodPage struct {
	page    *rod.Page
	browser *rod.Browser
}

func (p *rodPage) Navigate(url string) error {
	if err := p.page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.page.WaitLoad()
}

func (p *rodPage) SetViewport(width, height int) error {
	return p.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
}

func (p *rodPage) SetUserAgent(ua string) error {
	return p.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
}

func (p *rodPage) SetCookies(cookies []session.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		if c.SameSite != "" {
			param.SameSite = proto.NetworkCookieSameSite(c.SameSite)
		}
		params = append(params, param)
	}
	return p.page.SetCookies(params)
}

func (p *rodPage) Cookies() ([]session.Cookie, error) {
	raw, err := p.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	cookies := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (p *rodPage) WaitVisible(selector string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return el.WaitVisible()
}

// WaitIdle waits for network requests to settle. Pages that keep persistent
// connections (websockets, polling) never go idle, so hitting the deadline is
// an expected outcome and is reported as an error for the caller to log.
func (p *rodPage) WaitIdle(timeout time.Duration) error {
	scoped := p.page.Timeout(timeout)
	scoped.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	if scoped.GetContext().Err() != nil {
		return fmt.Errorf("network idle wait timed out after %s", timeout)
	}
	return nil
}

func (p *rodPage) WaitNavigation(timeout time.Duration) func() {
	return p.page.Timeout(timeout).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
}

func (p *rodPage) Click(selector string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Type(selector, value string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	// Clear existing text before typing.
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (p *rodPage) Select(selector, value string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	return el.Select([]string{value}, true, rod.SelectorTypeText)
}

func (p *rodPage) ScrollBottom() error {
	_, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *rodPage) Text(selector string, timeout time.Duration) (string, error) {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return "", fmt.Errorf("element not found: %s", selector)
	}
	text, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *rodPage) InputValue(selector string, timeout time.Duration) (string, error) {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return "", fmt.Errorf("element not found: %s", selector)
	}
	value, err := el.Property("value")
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

func (p *rodPage) ListItems(selector string, limit int) ([]extract.Item, error) {
	result, err := p.page.Eval(`(sel, limit) => {
		const out = [];
		for (const el of document.querySelectorAll(sel)) {
			if (out.length >= limit) break;
			const anchor = el.matches('a[href]') ? el : el.querySelector('a[href]');
			out.push({
				text: (el.innerText || el.textContent || '').trim().replace(/\s+/g, ' ').slice(0, 300),
				href: anchor ? anchor.href : ''
			});
		}
		return out;
	}`, selector, limit)
	if err != nil {
		return nil, err
	}

	var items []extract.Item
	for _, v := range result.Value.Arr() {
		items = append(items, extract.Item{
			Text: v.Get("text").String(),
			Href: v.Get("href").String(),
		})
	}
	return items, nil
}

func (p *rodPage) TableRows(selector string, limit int) ([][]string, error) {
	result, err := p.page.Eval(`(sel, limit) => {
		const root = document.querySelector(sel);
		if (!root) return null;
		const rows = [];
		for (const tr of root.querySelectorAll('tr')) {
			if (rows.length >= limit) break;
			const cells = [];
			tr.querySelectorAll('td, th').forEach(cell => {
				cells.push((cell.innerText || '').trim());
			});
			if (cells.length > 0) rows.push(cells);
		}
		return rows;
	}`, selector, limit)
	if err != nil {
		return nil, err
	}
	if result.Value.Nil() {
		return nil, fmt.Errorf("table not found: %s", selector)
	}

	var rows [][]string
	for _, rowJSON := range result.Value.Arr() {
		var row []string
		for _, cell := range rowJSON.Arr() {
			row = append(row, cell.String())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (p *rodPage) Links(selector string) ([]extract.Link, error) {
	result, err := p.page.Eval(`(sel) => {
		const out = [];
		for (const el of document.querySelectorAll(sel)) {
			const anchor = el.matches('a[href]') ? el : el.querySelector('a[href]');
			if (!anchor) continue;
			out.push({
				text: (anchor.innerText || anchor.textContent || '').trim().slice(0, 200),
				href: anchor.href
			});
		}
		return out;
	}`, selector)
	if err != nil {
		return nil, err
	}

	var links []extract.Link
	for _, v := range result.Value.Arr() {
		links = append(links, extract.Link{
			Text: v.Get("text").String(),
			Href: v.Get("href").String(),
		})
	}
	return links, nil
}

func (p *rodPage) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

func (p *rodPage) OpenSibling(ctx context.Context) (Page, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open drill-down page: %w", err)
	}
	return &rodPage{page: page.Context(ctx), browser: p.browser}, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
