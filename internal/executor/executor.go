// Package executor runs compiled navigation plans against live browser
// sessions. It is the core state machine: steps run strictly in order, step
// failures are recorded and usually survivable, and the audit trail is
// preserved on every exit path.
package executor

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/v0xg/webnav/internal/answer"
	"github.com/v0xg/webnav/internal/browser"
	"github.com/v0xg/webnav/internal/extract"
	"github.com/v0xg/webnav/internal/plan"
	"github.com/v0xg/webnav/internal/session"
	"github.com/v0xg/webnav/internal/sitemap"
)

const (
	defaultMinDelay = 1000 * time.Millisecond
	defaultMaxDelay = 3000 * time.Millisecond

	clickTimeout = 5 * time.Second
	idleTimeout  = 10 * time.Second
	navTimeout   = 10 * time.Second
	textTimeout  = 5 * time.Second

	viewportWidth  = 1280
	viewportHeight = 800

	maxListItems  = 20
	maxTableRows  = 50
	maxDrillItems = 10

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Runner executes navigation plans. All shared state is injected: the browser
// pool, the session vault and the navigation map repository.
type Runner struct {
	pool  browser.Pool
	vault session.Vault
	maps  *sitemap.Repository

	// sleep is swapped out in tests to avoid real anti-bot delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(pool browser.Pool, vault session.Vault, maps *sitemap.Repository) *Runner {
	return &Runner{
		pool:  pool,
		vault: vault,
		maps:  maps,
		sleep: sleepWithContext,
	}
}

// Run executes every step of the plan in order against one fresh page.
// Recoverable step failures are logged into the audit trail and skipped; an
// extract step failing before any data has been accumulated aborts the run,
// because there is nothing useful to return. The page is closed on every
// exit path.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) *Result {
	res := &Result{RunID: uuid.NewString()}

	minDelay, maxDelay, userAgent := r.siteProfile(p.Domain)

	page, err := r.pool.Page(ctx)
	if err != nil {
		res.Err = fmt.Sprintf("open browser page: %v", err)
		return res
	}
	defer page.Close()

	if err := page.SetViewport(viewportWidth, viewportHeight); err != nil {
		log.Printf("executor: set viewport: %v", err)
	}
	if err := page.SetUserAgent(userAgent); err != nil {
		log.Printf("executor: set user agent: %v", err)
	}

	if sess, ok := r.lookupSession(p.Domain); ok {
		if err := page.SetCookies(sess.Cookies); err != nil {
			log.Printf("executor: inject session cookies for %s: %v", p.Domain, err)
		}
	} else {
		// No stored session is not fatal; the run degrades to an
		// unauthenticated crawl.
		log.Printf("executor: no stored session for %s, proceeding unauthenticated", p.Domain)
	}

	var data *extract.Data
	for i, step := range p.Steps {
		sr := StepResult{Index: i, Step: step.Name(), Detail: step.Describe()}

		after, summary, err := r.executeStep(ctx, page, p, step, data)
		if err != nil {
			sr.Error = err.Error()
			res.Steps = append(res.Steps, sr)

			if _, isExtract := step.(plan.Extract); isExtract && data == nil {
				res.Err = fmt.Sprintf("extract failed with no data collected: %v", err)
				return res
			}
			log.Printf("executor: step %d/%d (%s) failed, continuing: %v", i+1, len(p.Steps), step.Name(), err)
		} else {
			sr.Success = true
			sr.Result = summary
			res.Steps = append(res.Steps, sr)
			data = after
		}

		// Anti-bot pacing between steps, never after the last one.
		if i < len(p.Steps)-1 {
			if err := r.pause(ctx, minDelay, maxDelay); err != nil {
				res.Err = fmt.Sprintf("run interrupted: %v", err)
				res.Data = data
				return res
			}
		}
	}

	res.Success = true
	res.Data = data
	res.Answer = answer.Format(p.Intent, data)
	return res
}

// executeStep dispatches on the step variant. It returns the accumulated
// extraction data after the step; non-extract steps pass prior through
// untouched.
func (r *Runner) executeStep(ctx context.Context, page browser.Page, p *plan.Plan, step plan.Step, prior *extract.Data) (*extract.Data, string, error) {
	switch s := step.(type) {
	case plan.Navigate:
		if err := page.Navigate(s.URL); err != nil {
			return prior, "", err
		}
		r.awaitIdle(page)
		return prior, s.URL, nil

	case plan.WaitVisible:
		return prior, "", page.WaitVisible(s.WaitFor, s.Timeout)

	case plan.Click:
		if err := page.Click(s.Selector, clickTimeout); err != nil {
			return prior, "", err
		}
		r.awaitIdle(page)
		return prior, "", nil

	case plan.TypeText:
		return prior, "", page.Type(s.Selector, s.Value, clickTimeout)

	case plan.SelectOption:
		return prior, "", page.Select(s.Selector, s.Value, clickTimeout)

	case plan.Scroll:
		return prior, "", page.ScrollBottom()

	case plan.Submit:
		// Arm the navigation waiter before clicking so the navigation the
		// click triggers is not missed. The waiter gives up at its timeout;
		// a submit that never navigates is tolerated.
		wait := page.WaitNavigation(navTimeout)
		if err := page.Click(s.Selector, clickTimeout); err != nil {
			return prior, "", err
		}
		wait()
		return prior, "", nil

	case plan.Capture:
		value, err := page.InputValue(s.Selector, textTimeout)
		if err != nil {
			return prior, "", err
		}
		return prior, value, nil

	case plan.Extract:
		data, err := r.runExtract(ctx, page, p, s)
		if err != nil {
			return prior, "", err
		}
		merged := extract.Merge(prior, data)
		return merged, summarize(data), nil

	default:
		return prior, "", fmt.Errorf("unhandled step type %T", step)
	}
}

// runExtract performs the base extraction, then pagination and drill-down
// when the step asks for them. Partial pagination or drill-down failures are
// never escalated; whatever was collected is returned.
func (r *Runner) runExtract(ctx context.Context, page browser.Page, p *plan.Plan, s plan.Extract) (*extract.Data, error) {
	data, err := r.extractOnce(page, s)
	if err != nil {
		return nil, err
	}

	if s.MaxPages > 1 && data.Kind == extract.KindList {
		r.paginate(page, p, s, data)
	}
	if len(s.DrillDown) > 0 && data.Kind == extract.KindList {
		r.drillDown(ctx, page, s, data)
	}
	return data, nil
}

// extractOnce dispatches on the extraction kind. count parses the first digit
// run (0 when none); text yields an empty string rather than an error when
// the selector is missing.
func (r *Runner) extractOnce(page browser.Page, s plan.Extract) (*extract.Data, error) {
	switch s.Kind {
	case extract.KindCount:
		raw, err := page.Text(s.Selector, textTimeout)
		if err != nil {
			return nil, err
		}
		return extract.NewCount(raw), nil

	case extract.KindList:
		items, err := page.ListItems(s.Selector, maxListItems)
		if err != nil {
			return nil, err
		}
		return extract.NewList(items), nil

	case extract.KindTable:
		rows, err := page.TableRows(s.Selector, maxTableRows)
		if err != nil {
			return nil, err
		}
		return &extract.Data{Kind: extract.KindTable, Rows: rows}, nil

	case extract.KindLinks:
		links, err := page.Links(s.Selector)
		if err != nil {
			return nil, err
		}
		return &extract.Data{Kind: extract.KindLinks, Links: links}, nil

	case extract.KindText:
		text, err := page.Text(s.Selector, textTimeout)
		if err != nil {
			text = ""
		}
		return &extract.Data{Kind: extract.KindText, Text: text}, nil

	default:
		return nil, fmt.Errorf("unknown extract kind %q", s.Kind)
	}
}

// paginate clicks through to at most MaxPages-1 additional result pages,
// appending items after each fetch. A missing next control or a failed click
// ends pagination without failing the plan.
func (r *Runner) paginate(page browser.Page, p *plan.Plan, s plan.Extract, data *extract.Data) {
	next := r.paginationSelector(p.Domain)
	if next == "" {
		data.Pages = 1
		return
	}

	fetched := 0
	for pageNum := 1; pageNum < s.MaxPages; pageNum++ {
		has, err := page.Has(next)
		if err != nil || !has {
			break
		}
		if err := page.Click(next, clickTimeout); err != nil {
			log.Printf("executor: pagination click failed on page %d, stopping: %v", pageNum, err)
			break
		}
		r.awaitIdle(page)

		more, err := r.extractOnce(page, s)
		if err != nil {
			log.Printf("executor: pagination extract failed on page %d, stopping: %v", pageNum+1, err)
			break
		}
		data.Items = append(data.Items, more.Items...)
		data.Count = len(data.Items)
		fetched++
	}
	data.Pages = fetched + 1
}

// drillDown visits each of the first maxDrillItems items' detail pages on a
// sibling page that shares the run's cookies, merging nested extract outputs
// into the item. A failure on one item degrades only that item.
func (r *Runner) drillDown(ctx context.Context, page browser.Page, s plan.Extract, data *extract.Data) {
	cookies, err := page.Cookies()
	if err != nil {
		log.Printf("executor: read cookies for drill-down: %v", err)
		cookies = nil
	}

	limit := len(data.Items)
	if limit > maxDrillItems {
		limit = maxDrillItems
	}
	enriched := false
	for i := 0; i < limit; i++ {
		item := &data.Items[i]
		if item.Href == "" {
			continue
		}
		details, err := r.drillItem(ctx, page, s.DrillDown, cookies, item.Href)
		if err != nil {
			log.Printf("executor: drill-down into %s failed, keeping item without details: %v", item.Href, err)
			continue
		}
		if len(details) > 0 {
			item.Details = details
			enriched = true
		}
	}
	// Only report drilling when it actually enriched something; the answer
	// mentions detail visits based on this flag.
	data.Drilled = enriched
}

func (r *Runner) drillItem(ctx context.Context, page browser.Page, steps []plan.Step, cookies []session.Cookie, href string) (map[string]string, error) {
	sub, err := page.OpenSibling(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	if len(cookies) > 0 {
		if err := sub.SetCookies(cookies); err != nil {
			log.Printf("executor: copy cookies to drill-down page: %v", err)
		}
	}
	if err := sub.Navigate(href); err != nil {
		return nil, err
	}

	// Only extract outputs are collected from the nested sequence.
	details := make(map[string]string)
	for _, step := range steps {
		switch s := step.(type) {
		case plan.WaitVisible:
			if err := sub.WaitVisible(s.WaitFor, s.Timeout); err != nil {
				return nil, err
			}
		case plan.Click:
			if err := sub.Click(s.Selector, clickTimeout); err != nil {
				return nil, err
			}
		case plan.Scroll:
			if err := sub.ScrollBottom(); err != nil {
				return nil, err
			}
		case plan.Extract:
			value, err := sub.Text(s.Selector, textTimeout)
			if err != nil {
				continue
			}
			key := s.Field
			if key == "" {
				key = s.Selector
			}
			details[key] = value
		}
	}
	return details, nil
}

// awaitIdle is the documented best-effort network wait: a timeout is logged
// and deliberately treated as non-fatal.
func (r *Runner) awaitIdle(page browser.Page) {
	if err := page.WaitIdle(idleTimeout); err != nil {
		log.Printf("executor: %v (continuing)", err)
	}
}

func (r *Runner) pause(ctx context.Context, min, max time.Duration) error {
	if max <= 0 {
		return nil
	}
	span := max - min
	if span < 0 {
		span = 0
	}
	delay := min
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
	return r.sleep(ctx, delay)
}

// siteProfile resolves anti-bot delay bounds and the user agent for a domain,
// falling back to defaults when the map does not configure them.
func (r *Runner) siteProfile(domain string) (min, max time.Duration, userAgent string) {
	min, max = defaultMinDelay, defaultMaxDelay
	userAgent = defaultUserAgent

	m, ok := r.maps.Get(domain)
	if !ok {
		return min, max, userAgent
	}
	if m.AntiBot.MaxDelayMS > 0 {
		min = time.Duration(m.AntiBot.MinDelayMS) * time.Millisecond
		max = time.Duration(m.AntiBot.MaxDelayMS) * time.Millisecond
	}
	if m.UserAgent != "" {
		userAgent = m.UserAgent
	}
	return min, max, userAgent
}

func (r *Runner) paginationSelector(domain string) string {
	m, ok := r.maps.Get(domain)
	if !ok || m.Search == nil {
		return ""
	}
	return m.Search.PaginationNext
}

// lookupSession tolerates a "www." prefix mismatch between plan domain and
// vault key.
func (r *Runner) lookupSession(domain string) (*session.Session, bool) {
	if r.vault == nil {
		return nil, false
	}
	if sess, ok := r.vault.Get(domain); ok {
		return sess, true
	}
	return r.vault.Get(session.ToggleWWW(domain))
}

func summarize(data *extract.Data) string {
	switch data.Kind {
	case extract.KindCount:
		return fmt.Sprintf("count=%d", data.Value)
	case extract.KindList:
		return fmt.Sprintf("items=%d", data.Count)
	case extract.KindTable:
		return fmt.Sprintf("rows=%d", len(data.Rows))
	case extract.KindLinks:
		return fmt.Sprintf("links=%d", len(data.Links))
	default:
		if len(data.Text) > 60 {
			return data.Text[:60] + "..."
		}
		return data.Text
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
