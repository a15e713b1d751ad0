// Package answer turns extracted data into a natural-language synopsis.
package answer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/v0xg/webnav/internal/extract"
	"github.com/v0xg/webnav/internal/intent"
)

const noData = "I could not extract the requested data."

// maxListed bounds how many items the synopsis enumerates.
const maxListed = 10

// Format is a pure function from (intent, data) to an answer string. It never
// fails: unrecognized shapes degrade to a truncated raw dump.
func Format(it intent.Intent, data *extract.Data) string {
	if data == nil {
		return noData
	}

	switch it.Action {
	case intent.ActionCount:
		if data.Kind == extract.KindCount {
			location := it.Parameters.Location
			if location == "" {
				location = "this area"
			}
			return fmt.Sprintf("There are %d properties for sale in %s.", data.Value, location)
		}
	case intent.ActionSearch, intent.ActionList, intent.ActionCompare:
		if data.Kind == extract.KindList {
			return formatList(data)
		}
	case intent.ActionGetDetails:
		if data.Kind == extract.KindText {
			return data.Text
		}
	}

	return fallbackDump(data)
}

func formatList(data *extract.Data) string {
	if len(data.Items) == 0 {
		return "The search returned no results."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d results", data.Count)
	if data.Pages > 1 {
		fmt.Fprintf(&b, " across %d pages", data.Pages)
	}
	b.WriteString(":\n")

	shown := len(data.Items)
	if shown > maxListed {
		shown = maxListed
	}
	for i := 0; i < shown; i++ {
		item := data.Items[i]
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Text)
		for _, field := range sortedKeys(item.Details) {
			fmt.Fprintf(&b, "   %s: %s\n", field, item.Details[field])
		}
	}
	if len(data.Items) > maxListed {
		fmt.Fprintf(&b, "...and %d more not shown.\n", len(data.Items)-maxListed)
	}
	if data.Drilled {
		b.WriteString("Detail pages were visited to enrich the top results.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// fallbackDump is the last resort for shapes no template covers. It is never
// an error; at worst the caller sees truncated raw data.
func fallbackDump(data *extract.Data) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return noData
	}
	dump := string(raw)
	if len(dump) > 500 {
		dump = dump[:500] + "..."
	}
	return dump
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
