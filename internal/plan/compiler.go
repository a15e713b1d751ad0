package plan

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/v0xg/webnav/internal/extract"
	"github.com/v0xg/webnav/internal/intent"
	"github.com/v0xg/webnav/internal/sitemap"
)

var (
	// ErrUnsupportedSite means no navigation map exists for the resolved
	// domain. Callers should surface an "unsupported site" message.
	ErrUnsupportedSite = errors.New("no navigation map for site")
	// ErrNoPlan means the intent cannot be turned into steps on this site.
	ErrNoPlan = errors.New("no plan available for intent")
)

const (
	waitFieldTimeout   = 10 * time.Second
	waitResultsTimeout = 15 * time.Second
	waitSuggestTimeout = 5 * time.Second
)

// Plan is an ordered, immutable navigation program for one site. It is built
// once and executed once; step results accumulate separately.
type Plan struct {
	Intent         intent.Intent
	Domain         string
	Steps          []Step
	ExpectedOutput string
	CustomSite     bool
}

// Compiler combines intents with site navigation maps.
type Compiler struct {
	maps *sitemap.Repository
}

func NewCompiler(maps *sitemap.Repository) *Compiler {
	return &Compiler{maps: maps}
}

// Compile builds the step sequence for an intent. Domain resolution order:
// preferredDomain, then the intent's target site, then the repository default.
func (c *Compiler) Compile(it intent.Intent, preferredDomain string) (*Plan, error) {
	domain := preferredDomain
	if domain == "" {
		domain = it.TargetSite
	}
	if domain == "" {
		domain = c.maps.DefaultDomain()
	}
	if domain == "" {
		return nil, ErrUnsupportedSite
	}

	m, ok := c.maps.Get(domain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSite, domain)
	}

	if it.Action == intent.ActionUnknown {
		return nil, ErrNoPlan
	}

	steps, expected := c.buildSteps(it, m)
	if steps == nil && !m.Custom {
		steps, expected = genericSteps(m)
	}
	if steps == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoPlan, it.Action, m.Domain)
	}

	steps = substituteAll(steps, paramValues(it))

	return &Plan{
		Intent:         it,
		Domain:         m.Domain,
		Steps:          steps,
		ExpectedOutput: expected,
		CustomSite:     m.Custom,
	}, nil
}

func (c *Compiler) buildSteps(it intent.Intent, m *sitemap.Map) ([]Step, string) {
	switch it.Action {
	case intent.ActionSearch, intent.ActionCount, intent.ActionList, intent.ActionCompare:
		return searchSteps(it, m)
	case intent.ActionGetDetails:
		return detailSteps(it, m)
	case intent.ActionWrite:
		return writeSteps(it, m)
	case intent.ActionReport:
		if steps, expected := reportSteps(m); steps != nil {
			return steps, expected
		}
		return detailSteps(it, m)
	default:
		return nil, ""
	}
}

// searchSteps drives the search page and appends the extraction step. count
// intents use the result-count selector when the map configures one;
// everything else extracts the result list, optionally paginated and
// drilled into.
func searchSteps(it intent.Intent, m *sitemap.Map) ([]Step, string) {
	search := m.Search
	if search == nil {
		return nil, ""
	}

	term := searchTerm(it.Parameters)
	steps := []Step{
		Navigate{URL: searchURL(m)},
		WaitVisible{WaitFor: search.SearchField, Timeout: waitFieldTimeout},
		TypeText{Selector: search.SearchField, Value: term},
		Submit{Selector: submitSelector(search)},
		WaitVisible{WaitFor: search.ResultsContainer, Timeout: waitResultsTimeout},
	}

	if it.Action == intent.ActionCount && search.ResultCountSelector != "" {
		steps = append(steps, Extract{
			Selector: search.ResultCountSelector,
			Kind:     extract.KindCount,
		})
		return steps, string(extract.KindCount)
	}

	maxPages := it.Parameters.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	ex := Extract{
		Selector: search.ResultItemSelector,
		Kind:     extract.KindList,
		MaxPages: maxPages,
	}
	if it.Parameters.DrillDown && len(m.PropertyDetail) > 0 {
		ex.DrillDown = detailExtracts(m.PropertyDetail)
	}
	steps = append(steps, ex)
	return steps, string(extract.KindList)
}

// detailSteps types the address into search, clicks the first autocomplete
// suggestion and extracts every configured detail field.
func detailSteps(it intent.Intent, m *sitemap.Map) ([]Step, string) {
	search := m.Search
	if search == nil || len(m.PropertyDetail) == 0 {
		return nil, ""
	}

	term := it.Parameters.Address
	if term == "" {
		term = searchTerm(it.Parameters)
	}

	suggestion := search.SuggestionItem
	if suggestion == "" {
		suggestion = search.ResultItemSelector
	}
	ready := search.DetailReady
	if ready == "" {
		ready = firstDetailSelector(m.PropertyDetail)
	}

	steps := []Step{
		Navigate{URL: searchURL(m)},
		WaitVisible{WaitFor: search.SearchField, Timeout: waitFieldTimeout},
		TypeText{Selector: search.SearchField, Value: term},
		WaitVisible{WaitFor: suggestion, Timeout: waitSuggestTimeout},
		Click{Selector: suggestion},
		WaitVisible{WaitFor: ready, Timeout: waitResultsTimeout},
	}
	steps = append(steps, detailExtracts(m.PropertyDetail)...)
	return steps, string(extract.KindText)
}

// writeSteps prepends the search flow for navigation context, then appends
// the named crmWrite sequence. A write action the map does not define falls
// back to the plain search plan; no mutation is attempted.
func writeSteps(it intent.Intent, m *sitemap.Map) ([]Step, string) {
	searchIt := it
	searchIt.Action = intent.ActionSearch
	steps, expected := searchSteps(searchIt, m)
	if steps == nil {
		return nil, ""
	}

	templates, ok := m.CRMWrite[it.Parameters.WriteAction]
	if !ok {
		return steps, expected
	}
	return append(steps, fromTemplates(templates)...), "write"
}

func reportSteps(m *sitemap.Map) ([]Step, string) {
	if m.Insights == nil {
		return nil, ""
	}
	ready := m.Insights.Ready
	if ready == "" {
		ready = m.Insights.Selector
	}
	return []Step{
		Navigate{URL: m.Insights.URL},
		WaitVisible{WaitFor: ready, Timeout: waitResultsTimeout},
		Extract{Selector: m.Insights.Selector, Kind: extract.KindText},
	}, string(extract.KindText)
}

// genericSteps is the pre-registered extract-current-page sequence for sites
// without a hand-authored map.
func genericSteps(m *sitemap.Map) ([]Step, string) {
	selector := "body"
	if m.Generic != nil && m.Generic.Selector != "" {
		selector = m.Generic.Selector
	}
	return []Step{
		Navigate{URL: m.BaseURL},
		WaitVisible{WaitFor: "body", Timeout: waitFieldTimeout},
		Extract{Selector: selector, Kind: extract.KindText},
	}, string(extract.KindText)
}

// detailExtracts emits one text extraction per configured detail field, in
// field-name order so compilation is deterministic.
func detailExtracts(fields map[string]string) []Step {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	steps := make([]Step, 0, len(names))
	for _, name := range names {
		steps = append(steps, Extract{
			Selector: fields[name],
			Kind:     extract.KindText,
			Field:    name,
		})
	}
	return steps
}

func firstDetailSelector(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "body"
	}
	return fields[names[0]]
}

// fromTemplates converts serialized map-file steps into typed plan steps.
// Templates with an unrecognized action are dropped.
func fromTemplates(templates []sitemap.StepTemplate) []Step {
	steps := make([]Step, 0, len(templates))
	for _, t := range templates {
		timeout := time.Duration(t.TimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = waitFieldTimeout
		}
		switch t.Action {
		case "navigate":
			steps = append(steps, Navigate{URL: t.URL})
		case "wait":
			steps = append(steps, WaitVisible{WaitFor: t.WaitFor, Timeout: timeout})
		case "click":
			steps = append(steps, Click{Selector: t.Selector})
		case "type":
			steps = append(steps, TypeText{Selector: t.Selector, Value: t.Value})
		case "select":
			steps = append(steps, SelectOption{Selector: t.Selector, Value: t.Value})
		case "scroll":
			steps = append(steps, Scroll{})
		case "submit":
			steps = append(steps, Submit{Selector: t.Selector})
		case "capture":
			steps = append(steps, Capture{Selector: t.Selector})
		case "extract":
			steps = append(steps, Extract{Selector: t.Selector, Kind: extract.KindText})
		}
	}
	return steps
}

func searchURL(m *sitemap.Map) string {
	if m.Search.URL != "" {
		return m.Search.URL
	}
	return m.BaseURL
}

func submitSelector(search *sitemap.SearchPage) string {
	if search.SubmitButton != "" {
		return search.SubmitButton
	}
	return search.SearchField
}

func searchTerm(p intent.Parameters) string {
	switch {
	case p.Location != "":
		return p.Location
	case p.Address != "":
		return p.Address
	default:
		return p.Query
	}
}

// paramValues flattens intent parameters into the substitution namespace,
// including nested writePayload fields as "writePayload.<key>".
func paramValues(it intent.Intent) map[string]string {
	p := it.Parameters
	values := map[string]string{
		"location":        p.Location,
		"address":         p.Address,
		"propertyType":    p.PropertyType,
		"query":           p.Query,
		"writeAction":     p.WriteAction,
		"priceAdjustment": p.PriceAdjustment,
	}
	if p.Bedrooms > 0 {
		values["bedrooms"] = strconv.Itoa(p.Bedrooms)
	}
	if p.Bathrooms > 0 {
		values["bathrooms"] = strconv.Itoa(p.Bathrooms)
	}
	if p.PriceMin > 0 {
		values["priceMin"] = strconv.Itoa(p.PriceMin)
	}
	if p.PriceMax > 0 {
		values["priceMax"] = strconv.Itoa(p.PriceMax)
	}
	for key, value := range p.WritePayload {
		values["writePayload."+key] = value
	}
	return values
}

// substituteAll replaces {{name}} placeholders in step values and URLs,
// recursing into drill-down sequences. Unresolved placeholders stay as
// literal text; that is deliberate and non-fatal.
func substituteAll(steps []Step, values map[string]string) []Step {
	out := make([]Step, len(steps))
	for i, step := range steps {
		switch s := step.(type) {
		case Navigate:
			s.URL = substitute(s.URL, values)
			out[i] = s
		case TypeText:
			s.Value = substitute(s.Value, values)
			out[i] = s
		case SelectOption:
			s.Value = substitute(s.Value, values)
			out[i] = s
		case Extract:
			if len(s.DrillDown) > 0 {
				s.DrillDown = substituteAll(s.DrillDown, values)
			}
			out[i] = s
		default:
			out[i] = step
		}
	}
	return out
}

func substitute(text string, values map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	for name, value := range values {
		if value == "" {
			continue
		}
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}
