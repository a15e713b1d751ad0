package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/v0xg/webnav/internal/browser"
	"github.com/v0xg/webnav/internal/extract"
	"github.com/v0xg/webnav/internal/intent"
	"github.com/v0xg/webnav/internal/plan"
	"github.com/v0xg/webnav/internal/session"
	"github.com/v0xg/webnav/internal/sitemap"
)

// fakePage scripts page behavior per selector. Successive ListItems calls on
// the same selector walk through listPages, simulating pagination.
type fakePage struct {
	texts     map[string]string
	listPages map[string][][]extract.Item
	listCalls map[string]int
	listErrs  map[string]error
	has       map[string]bool
	hasFn     func(selector string) (bool, error)
	waitErrs  map[string]error

	cookies     []session.Cookie
	setCookies  int
	navigations []string
	clicks      []string
	typed       map[string]string
	siblings    []*fakePage
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{
		texts:     make(map[string]string),
		listPages: make(map[string][][]extract.Item),
		listCalls: make(map[string]int),
		listErrs:  make(map[string]error),
		has:       make(map[string]bool),
		waitErrs:  make(map[string]error),
		typed:     make(map[string]string),
	}
}

func (p *fakePage) Navigate(url string) error {
	p.navigations = append(p.navigations, url)
	return nil
}

func (p *fakePage) SetViewport(width, height int) error { return nil }
func (p *fakePage) SetUserAgent(ua string) error        { return nil }

func (p *fakePage) SetCookies(cookies []session.Cookie) error {
	p.setCookies++
	p.cookies = cookies
	return nil
}

func (p *fakePage) Cookies() ([]session.Cookie, error) { return p.cookies, nil }

func (p *fakePage) WaitVisible(selector string, timeout time.Duration) error {
	return p.waitErrs[selector]
}

func (p *fakePage) WaitIdle(timeout time.Duration) error        { return nil }
func (p *fakePage) WaitNavigation(timeout time.Duration) func() { return func() {} }

func (p *fakePage) Click(selector string, timeout time.Duration) error {
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *fakePage) Type(selector, value string, timeout time.Duration) error {
	p.typed[selector] = value
	return nil
}

func (p *fakePage) Select(selector, value string, timeout time.Duration) error { return nil }
func (p *fakePage) ScrollBottom() error                                        { return nil }

func (p *fakePage) Text(selector string, timeout time.Duration) (string, error) {
	text, ok := p.texts[selector]
	if !ok {
		return "", fmt.Errorf("element not found: %s", selector)
	}
	return text, nil
}

func (p *fakePage) InputValue(selector string, timeout time.Duration) (string, error) {
	return p.Text(selector, timeout)
}

func (p *fakePage) ListItems(selector string, limit int) ([]extract.Item, error) {
	if err := p.listErrs[selector]; err != nil {
		return nil, err
	}
	pages := p.listPages[selector]
	idx := p.listCalls[selector]
	p.listCalls[selector]++
	if idx >= len(pages) {
		return nil, nil
	}
	items := pages[idx]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (p *fakePage) TableRows(selector string, limit int) ([][]string, error) {
	return nil, fmt.Errorf("table not found: %s", selector)
}

func (p *fakePage) Links(selector string) ([]extract.Link, error) { return nil, nil }

func (p *fakePage) Has(selector string) (bool, error) {
	if p.hasFn != nil {
		return p.hasFn(selector)
	}
	return p.has[selector], nil
}

func (p *fakePage) OpenSibling(ctx context.Context) (browser.Page, error) {
	sib := newFakePage()
	// Drill-down pages share the parent's scripted detail texts.
	sib.texts = p.texts
	p.siblings = append(p.siblings, sib)
	return sib, nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakePool struct {
	page   *fakePage
	err    error
	closed bool
}

func (p *fakePool) Page(ctx context.Context) (browser.Page, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.page, nil
}

func (p *fakePool) Close() error {
	p.closed = true
	return nil
}

func testMaps(m *sitemap.Map) *sitemap.Repository {
	repo := sitemap.NewRepository()
	if m != nil {
		repo.Register(m)
	}
	return repo
}

func newTestRunner(page *fakePage, vault session.Vault, m *sitemap.Map) *Runner {
	r := New(&fakePool{page: page}, vault, testMaps(m))
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func searchMap() *sitemap.Map {
	return &sitemap.Map{
		Domain:  "oneroof.co.nz",
		BaseURL: "https://oneroof.co.nz",
		Custom:  true,
		Search: &sitemap.SearchPage{
			URL:                 "https://oneroof.co.nz/search",
			SearchField:         "#search-input",
			ResultsContainer:    ".results",
			ResultCountSelector: ".result-count",
			ResultItemSelector:  ".result-card",
			PaginationNext:      ".pagination .next",
		},
	}
}

func countPlan() *plan.Plan {
	it := intent.Intent{
		Action:     intent.ActionCount,
		Parameters: intent.Parameters{Location: "Takapuna"},
	}
	return &plan.Plan{
		Intent: it,
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Navigate{URL: "https://oneroof.co.nz/search"},
			plan.WaitVisible{WaitFor: "#search-input", Timeout: time.Second},
			plan.TypeText{Selector: "#search-input", Value: "Takapuna"},
			plan.Submit{Selector: "#search-input"},
			plan.WaitVisible{WaitFor: ".results", Timeout: time.Second},
			plan.Extract{Selector: ".result-count", Kind: extract.KindCount},
		},
	}
}

func TestRunCountQuestion(t *testing.T) {
	page := newFakePage()
	page.texts[".result-count"] = "42 results found"

	vault := session.NewMemVault()
	vault.Put(&session.Session{
		Domain:  "oneroof.co.nz",
		Cookies: []session.Cookie{{Name: "auth", Value: "token"}},
	})

	r := newTestRunner(page, vault, searchMap())
	res := r.Run(context.Background(), countPlan())

	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	if res.Data == nil || res.Data.Value != 42 {
		t.Fatalf("data = %+v, want count 42", res.Data)
	}
	if want := "There are 42 properties for sale in Takapuna."; res.Answer != want {
		t.Errorf("answer = %q, want %q", res.Answer, want)
	}
	if page.setCookies != 1 {
		t.Errorf("session cookies injected %d times, want 1", page.setCookies)
	}
	if len(res.Steps) != 6 {
		t.Errorf("audit trail has %d entries, want 6", len(res.Steps))
	}
	for _, sr := range res.Steps {
		if !sr.Success {
			t.Errorf("step %d (%s) failed: %s", sr.Index, sr.Step, sr.Error)
		}
	}
	if res.RunID == "" {
		t.Errorf("runID is empty")
	}
	if !page.closed {
		t.Errorf("page not closed after run")
	}
}

func TestRunPaginationStopsAtMissingNext(t *testing.T) {
	page := newFakePage()
	first := make([]extract.Item, 20)
	second := make([]extract.Item, 20)
	for i := range first {
		first[i] = extract.Item{Text: fmt.Sprintf("p1-%d", i)}
		second[i] = extract.Item{Text: fmt.Sprintf("p2-%d", i)}
	}
	page.listPages[".result-card"] = [][]extract.Item{first, second}

	// Asking for 3 pages, but the next control disappears after the first
	// click: only two pages aggregate.
	hasCalls := 0
	page.hasFn = func(selector string) (bool, error) {
		hasCalls++
		return hasCalls == 1, nil
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionList},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Extract{Selector: ".result-card", Kind: extract.KindList, MaxPages: 3},
		},
	}

	res := r.Run(context.Background(), p)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	if res.Data.Count != 40 {
		t.Errorf("count = %d, want 40", res.Data.Count)
	}
	if res.Data.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Data.Pages)
	}
}

func TestRunUnauthenticatedProceeds(t *testing.T) {
	page := newFakePage()
	page.waitErrs[".results"] = errors.New("wait for .results: timeout")
	page.listPages[".result-card"] = nil // empty results

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionSearch},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Navigate{URL: "https://oneroof.co.nz/search"},
			plan.WaitVisible{WaitFor: ".results", Timeout: time.Second},
			plan.Extract{Selector: ".result-card", Kind: extract.KindList},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if !res.Success {
		t.Fatalf("run should survive a failed wait: %s", res.Err)
	}
	if page.setCookies != 0 {
		t.Errorf("no session stored, but cookies were injected")
	}
	if res.Answer != "The search returned no results." {
		t.Errorf("answer = %q", res.Answer)
	}

	var waitFailed bool
	for _, sr := range res.Steps {
		if sr.Step == "wait" && !sr.Success {
			waitFailed = true
		}
	}
	if !waitFailed {
		t.Errorf("failed wait missing from audit trail: %+v", res.Steps)
	}
}

func TestRunFatalWhenExtractFailsWithNoData(t *testing.T) {
	page := newFakePage()
	page.listErrs[".result-card"] = errors.New("page crashed")

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionList},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Navigate{URL: "https://oneroof.co.nz/search"},
			plan.Extract{Selector: ".result-card", Kind: extract.KindList},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if res.Success {
		t.Fatalf("run should abort when extraction fails with nothing collected")
	}
	if !strings.Contains(res.Err, "no data collected") {
		t.Errorf("err = %q", res.Err)
	}
	// The trail keeps everything executed up to and including the failure.
	if len(res.Steps) != 2 {
		t.Errorf("audit trail has %d entries, want 2", len(res.Steps))
	}
}

func TestRunExtractFailureSurvivesWithPriorData(t *testing.T) {
	page := newFakePage()
	page.listPages[".result-card"] = [][]extract.Item{{{Text: "a"}}}
	page.listErrs[".other"] = errors.New("selector vanished")

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionList},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Extract{Selector: ".result-card", Kind: extract.KindList},
			plan.Extract{Selector: ".other", Kind: extract.KindList},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	if res.Data == nil || res.Data.Count != 1 {
		t.Errorf("prior data lost: %+v", res.Data)
	}
}

func TestRunDrillDownCapsAtTen(t *testing.T) {
	page := newFakePage()
	items := make([]extract.Item, 15)
	for i := range items {
		items[i] = extract.Item{
			Text: fmt.Sprintf("listing %d", i),
			Href: fmt.Sprintf("https://oneroof.co.nz/listing/%d", i),
		}
	}
	page.listPages[".result-card"] = [][]extract.Item{items}
	page.texts[".price-estimate"] = "$1,000,000"
	page.cookies = []session.Cookie{{Name: "auth", Value: "token"}}

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionList},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Extract{
				Selector: ".result-card",
				Kind:     extract.KindList,
				DrillDown: []plan.Step{
					plan.Extract{Selector: ".price-estimate", Kind: extract.KindText, Field: "price"},
				},
			},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	if !res.Data.Drilled {
		t.Errorf("drilled flag not set")
	}
	if len(page.siblings) != maxDrillItems {
		t.Errorf("opened %d drill-down pages, want %d", len(page.siblings), maxDrillItems)
	}
	for i, item := range res.Data.Items {
		enriched := item.Details["price"] == "$1,000,000"
		if i < maxDrillItems && !enriched {
			t.Errorf("item %d not enriched: %+v", i, item)
		}
		if i >= maxDrillItems && item.Details != nil {
			t.Errorf("item %d beyond the cap was enriched", i)
		}
	}
	for i, sib := range page.siblings {
		if !sib.closed {
			t.Errorf("drill-down page %d not closed", i)
		}
		if sib.setCookies != 1 {
			t.Errorf("drill-down page %d missing session cookies", i)
		}
		if len(sib.navigations) != 1 {
			t.Errorf("drill-down page %d navigations = %v", i, sib.navigations)
		}
	}
}

func TestRunItemWithoutHrefSkipped(t *testing.T) {
	page := newFakePage()
	page.listPages[".result-card"] = [][]extract.Item{{
		{Text: "no link"},
		{Text: "linked", Href: "https://oneroof.co.nz/listing/1"},
	}}
	page.texts[".price-estimate"] = "$900,000"

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionList},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Extract{
				Selector: ".result-card",
				Kind:     extract.KindList,
				DrillDown: []plan.Step{
					plan.Extract{Selector: ".price-estimate", Kind: extract.KindText, Field: "price"},
				},
			},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	if len(page.siblings) != 1 {
		t.Errorf("opened %d drill-down pages, want 1", len(page.siblings))
	}
	if res.Data.Items[0].Details != nil {
		t.Errorf("item without href should stay unenriched")
	}
	if res.Data.Items[1].Details["price"] != "$900,000" {
		t.Errorf("linked item not enriched: %+v", res.Data.Items[1])
	}
}

func TestRunDrillDownWithoutEnrichment(t *testing.T) {
	page := newFakePage()
	page.listPages[".result-card"] = [][]extract.Item{{
		{Text: "no link at all"},
		{Text: "dead link", Href: "https://oneroof.co.nz/listing/9"},
	}}
	// No scripted detail text, so even the linked item yields nothing.

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionList},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Extract{
				Selector: ".result-card",
				Kind:     extract.KindList,
				DrillDown: []plan.Step{
					plan.Extract{Selector: ".price-estimate", Kind: extract.KindText, Field: "price"},
				},
			},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	if res.Data.Drilled {
		t.Errorf("drilled flag set although no item was enriched")
	}
	if strings.Contains(res.Answer, "Detail pages were visited") {
		t.Errorf("answer claims enrichment that never happened: %q", res.Answer)
	}
}

func TestRunPoolFailure(t *testing.T) {
	r := New(&fakePool{err: errors.New("browser missing")}, session.NewMemVault(), testMaps(nil))
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	res := r.Run(context.Background(), countPlan())
	if res.Success {
		t.Fatalf("run should fail when no page is available")
	}
	if !strings.Contains(res.Err, "browser missing") {
		t.Errorf("err = %q", res.Err)
	}
}

func TestRunTextExtractMergeReplaces(t *testing.T) {
	page := newFakePage()
	page.texts[".price"] = "$1,000,000"
	page.texts[".beds"] = "3"

	p := &plan.Plan{
		Intent: intent.Intent{Action: intent.ActionGetDetails},
		Domain: "oneroof.co.nz",
		Steps: []plan.Step{
			plan.Extract{Selector: ".price", Kind: extract.KindText, Field: "price"},
			plan.Extract{Selector: ".beds", Kind: extract.KindText, Field: "bedrooms"},
		},
	}

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	res := r.Run(context.Background(), p)

	if !res.Success {
		t.Fatalf("run failed: %s", res.Err)
	}
	// Non-list extracts replace the running result; the last one wins.
	if res.Data.Text != "3" {
		t.Errorf("data.Text = %q, want last extract", res.Data.Text)
	}
}

func TestRunCancelledBetweenSteps(t *testing.T) {
	page := newFakePage()
	page.texts[".result-count"] = "5"

	r := newTestRunner(page, session.NewMemVault(), searchMap())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	res := r.Run(context.Background(), countPlan())
	if res.Success {
		t.Fatalf("cancelled run should not succeed")
	}
	if !strings.Contains(res.Err, "interrupted") {
		t.Errorf("err = %q", res.Err)
	}
}

func TestSleepWithContextHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
