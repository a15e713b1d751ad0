package extract

import (
	"regexp"
	"strconv"
)

// Kind tags an extraction result with the shape of the data it carries.
type Kind string

const (
	KindCount Kind = "count"
	KindList  Kind = "list"
	KindTable Kind = "table"
	KindLinks Kind = "links"
	KindText  Kind = "text"
)

// Data is the result of one or more extract steps. Exactly one field group is
// populated, selected by Kind.
type Data struct {
	Kind Kind `json:"kind"`

	// count
	Raw   string `json:"raw,omitempty"`
	Value int    `json:"value,omitempty"`

	// list
	Items []Item `json:"items,omitempty"`
	Count int    `json:"count,omitempty"`

	// table
	Rows [][]string `json:"rows,omitempty"`

	// links
	Links []Link `json:"links,omitempty"`

	// text
	Text string `json:"text,omitempty"`

	// Pages is the number of result pages aggregated into Items.
	Pages int `json:"pages,omitempty"`
	// Drilled reports whether list items were enriched with detail pages.
	Drilled bool `json:"drilled,omitempty"`
}

// Item is a single list entry, optionally enriched with detail-page fields.
type Item struct {
	Text    string            `json:"text"`
	Href    string            `json:"href,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Link is an anchor's text and resolved href.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

var digitsExpr = regexp.MustCompile(`\d+`)

// NewCount parses the first run of digits out of raw. Text with no digits
// yields value 0, never an error.
func NewCount(raw string) *Data {
	value := 0
	if match := digitsExpr.FindString(raw); match != "" {
		if parsed, err := strconv.Atoi(match); err == nil {
			value = parsed
		}
	}
	return &Data{Kind: KindCount, Raw: raw, Value: value}
}

// NewList builds a list result with Count kept in sync with Items.
func NewList(items []Item) *Data {
	return &Data{Kind: KindList, Items: items, Count: len(items)}
}

// Merge folds next into acc. Two list results concatenate their items and
// recompute the count; any other combination replaces the running result.
func Merge(acc, next *Data) *Data {
	if next == nil {
		return acc
	}
	if acc == nil {
		return next
	}
	if acc.Kind == KindList && next.Kind == KindList {
		acc.Items = append(acc.Items, next.Items...)
		acc.Count = len(acc.Items)
		return acc
	}
	return next
}
