package intent

// Action is the interpreted operation behind a free-text question.
type Action string

const (
	ActionSearch             Action = "search"
	ActionGetDetails         Action = "getDetails"
	ActionCount              Action = "count"
	ActionList               Action = "list"
	ActionCompare            Action = "compare"
	ActionReport             Action = "report"
	ActionWrite              Action = "write"
	ActionSummarizePortfolio Action = "summarizePortfolio"
	ActionUnknown            Action = "unknown"
)

var knownActions = map[Action]bool{
	ActionSearch:             true,
	ActionGetDetails:         true,
	ActionCount:              true,
	ActionList:               true,
	ActionCompare:            true,
	ActionReport:             true,
	ActionWrite:              true,
	ActionSummarizePortfolio: true,
	ActionUnknown:            true,
}

// Parameters are the typed slots extracted from a question. Zero values mean
// the slot was not mentioned.
type Parameters struct {
	Location        string            `json:"location,omitempty"`
	Address         string            `json:"address,omitempty"`
	Bedrooms        int               `json:"bedrooms,omitempty"`
	Bathrooms       int               `json:"bathrooms,omitempty"`
	PriceMin        int               `json:"priceMin,omitempty"`
	PriceMax        int               `json:"priceMax,omitempty"`
	PriceAdjustment string            `json:"priceAdjustment,omitempty"`
	PropertyType    string            `json:"propertyType,omitempty"`
	Query           string            `json:"query,omitempty"`
	MaxPages        int               `json:"maxPages,omitempty"`
	DrillDown       bool              `json:"drillDown,omitempty"`
	WriteAction     string            `json:"writeAction,omitempty"`
	WritePayload    map[string]string `json:"writePayload,omitempty"`
}

// Intent is the structured interpretation of one question. It is immutable
// once produced; only the plan compiler consumes it.
type Intent struct {
	Action     Action     `json:"action"`
	TargetSite string     `json:"targetSite,omitempty"`
	Parameters Parameters `json:"parameters"`
	Confidence float64    `json:"confidence"`
}
