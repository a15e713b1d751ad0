package sitemap

// Map is the declarative navigation configuration for one site. Maps are
// authored out of band and are read-only to the planning and execution core.
type Map struct {
	Domain  string `yaml:"domain"`
	BaseURL string `yaml:"baseUrl"`
	// Custom distinguishes a hand-authored site map from the generic
	// fallback extractor configuration.
	Custom    bool    `yaml:"custom"`
	UserAgent string  `yaml:"userAgent,omitempty"`
	AntiBot   AntiBot `yaml:"antiBot"`

	Search *SearchPage `yaml:"search,omitempty"`
	// PropertyDetail maps a field name to the selector that yields it on a
	// detail page.
	PropertyDetail map[string]string `yaml:"propertyDetail,omitempty"`
	// CRMWrite holds named mutating action sequences.
	CRMWrite map[string][]StepTemplate `yaml:"crmWrite,omitempty"`
	Insights *InsightsPage             `yaml:"insights,omitempty"`
	Generic  *GenericPage              `yaml:"generic,omitempty"`
}

// AntiBot bounds the randomized inter-step delay for a site. Zero values fall
// back to the executor's defaults.
type AntiBot struct {
	MinDelayMS int `yaml:"minDelayMs"`
	MaxDelayMS int `yaml:"maxDelayMs"`
}

// SearchPage configures the site's search flow selectors.
type SearchPage struct {
	URL                 string `yaml:"url"`
	SearchField         string `yaml:"searchField"`
	SubmitButton        string `yaml:"submitButton,omitempty"`
	ResultsContainer    string `yaml:"resultsContainer"`
	ResultCountSelector string `yaml:"resultCountSelector,omitempty"`
	ResultItemSelector  string `yaml:"resultItemSelector"`
	PaginationNext      string `yaml:"paginationNext,omitempty"`
	// SuggestionItem is the first autocomplete suggestion, clicked on
	// getDetails plans to reach the detail page.
	SuggestionItem string `yaml:"suggestionItem,omitempty"`
	// DetailReady marks the detail page as rendered after a suggestion click.
	DetailReady string `yaml:"detailReady,omitempty"`
}

// InsightsPage configures a site-specific report surface.
type InsightsPage struct {
	URL      string `yaml:"url"`
	Ready    string `yaml:"ready,omitempty"`
	Selector string `yaml:"selector"`
}

// GenericPage configures the extract-current-page fallback used on non-custom
// sites.
type GenericPage struct {
	Selector string `yaml:"selector"`
}

// StepTemplate is the serialized form of a navigation step inside a map file.
// The compiler converts templates into typed plan steps.
type StepTemplate struct {
	Action    string `yaml:"action"`
	Selector  string `yaml:"selector,omitempty"`
	Value     string `yaml:"value,omitempty"`
	URL       string `yaml:"url,omitempty"`
	WaitFor   string `yaml:"waitFor,omitempty"`
	TimeoutMS int    `yaml:"timeoutMs,omitempty"`
}
