package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// heuristicConfidence is the fixed confidence reported by the keyword parser.
const heuristicConfidence = 0.5

var (
	addressExpr = regexp.MustCompile(`(?i)\b\d+[a-z]?\s+[a-z][a-z'\- ]+?\s+(street|st|road|rd|avenue|ave|drive|dr|lane|ln|place|pl|crescent|cres|terrace|tce|parade|pde|way|highway|hwy)\b`)
	bedroomExpr = regexp.MustCompile(`(?i)(\d+)\s*(?:bed(?:room)?s?|br)\b`)
	bathExpr    = regexp.MustCompile(`(?i)(\d+)\s*bath(?:room)?s?\b`)
	pagesExpr   = regexp.MustCompile(`(?i)(?:first\s+)?(\d+)\s*pages?\b`)
	underExpr   = regexp.MustCompile(`(?i)\b(?:under|below|less than|up to)\s*\$?([\d.,]+)\s*([km])?\b`)
	overExpr    = regexp.MustCompile(`(?i)\b(?:over|above|more than|at least|from)\s*\$?([\d.,]+)\s*([km])?\b`)
	inPlaceExpr = regexp.MustCompile(`(?i)\bin\s+([a-z][a-z'\- ]{2,40})$`)
)

// knownSuburbs backs the location matcher. The list covers the areas the
// shipped navigation maps target; unmatched text falls back to an "in <x>"
// capture.
var knownSuburbs = []string{
	"takapuna", "devonport", "milford", "albany", "glenfield", "birkenhead",
	"ponsonby", "parnell", "remuera", "epsom", "newmarket", "grey lynn",
	"mt eden", "mount eden", "mission bay", "st heliers", "howick",
	"henderson", "manukau", "papakura", "pukekohe", "orewa", "browns bay",
}

// Heuristic interprets a question with deterministic keyword and regex rules.
// It never fails: text matching no action verb yields ActionUnknown with
// empty parameters, which the compiler treats as "no plan available".
func Heuristic(question string, knownSites []string) Intent {
	text := strings.TrimSpace(question)
	lower := strings.ToLower(text)

	out := Intent{
		Action:     detectAction(lower),
		Confidence: heuristicConfidence,
	}
	if out.Action == ActionUnknown {
		out.Confidence = 0
		return out
	}

	params := &out.Parameters

	if match := addressExpr.FindString(text); match != "" {
		params.Address = strings.TrimSpace(match)
	}
	if m := bedroomExpr.FindStringSubmatch(lower); m != nil {
		params.Bedrooms, _ = strconv.Atoi(m[1])
	}
	if m := bathExpr.FindStringSubmatch(lower); m != nil {
		params.Bathrooms, _ = strconv.Atoi(m[1])
	}
	if m := pagesExpr.FindStringSubmatch(lower); m != nil {
		params.MaxPages, _ = strconv.Atoi(m[1])
	}
	if m := underExpr.FindStringSubmatch(lower); m != nil {
		params.PriceMax = parseMoney(m[1], m[2])
	}
	if m := overExpr.FindStringSubmatch(lower); m != nil {
		params.PriceMin = parseMoney(m[1], m[2])
	}
	if strings.Contains(lower, "with details") || strings.Contains(lower, "including details") || strings.Contains(lower, "drill") {
		params.DrillDown = true
	}

	params.Location = matchSuburb(lower)
	if params.Location == "" && params.Address == "" {
		if m := inPlaceExpr.FindStringSubmatch(strings.TrimRight(text, ".?! ")); m != nil {
			params.Location = titleCase(strings.TrimSpace(m[1]))
		}
	}

	out.TargetSite = matchSite(lower, knownSites)

	if out.Action == ActionWrite {
		params.WriteAction = detectWriteAction(lower)
	}

	if params.Query == "" {
		params.Query = firstNonEmpty(params.Address, params.Location)
	}

	return out
}

// detectAction maps action verbs to an Action. Order matters: "how many" must
// win over "for sale", "compare" over "search", and the write verbs over
// "list" ("update the listing price" is a write, not a list).
func detectAction(lower string) Action {
	switch {
	case strings.Contains(lower, "how many"), strings.Contains(lower, "number of"):
		return ActionCount
	case strings.Contains(lower, "details"), strings.Contains(lower, "tell me about"):
		return ActionGetDetails
	case strings.Contains(lower, "compare"):
		return ActionCompare
	case strings.Contains(lower, "log "), strings.Contains(lower, "update"),
		strings.Contains(lower, "save"), strings.Contains(lower, "set "):
		return ActionWrite
	case strings.Contains(lower, "list"), strings.Contains(lower, "show me"):
		return ActionList
	case strings.Contains(lower, "report"), strings.Contains(lower, "insights"):
		return ActionReport
	case strings.Contains(lower, "portfolio"):
		return ActionSummarizePortfolio
	case strings.Contains(lower, "search"), strings.Contains(lower, "find"),
		strings.Contains(lower, "for sale"):
		return ActionSearch
	default:
		return ActionUnknown
	}
}

func detectWriteAction(lower string) string {
	switch {
	case strings.Contains(lower, "price"):
		return "updatePrice"
	case strings.Contains(lower, "note"), strings.Contains(lower, "log "):
		return "addNote"
	case strings.Contains(lower, "status"):
		return "updateStatus"
	default:
		return ""
	}
}

func matchSuburb(lower string) string {
	for _, suburb := range knownSuburbs {
		if strings.Contains(lower, suburb) {
			return titleCase(suburb)
		}
	}
	return ""
}

// matchSite detects a target-site mention via literal substring match against
// the known domains and their bare names.
func matchSite(lower string, knownSites []string) string {
	for _, domain := range knownSites {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		if strings.Contains(lower, d) {
			return domain
		}
		bare := strings.TrimPrefix(d, "www.")
		if dot := strings.IndexByte(bare, '.'); dot > 0 {
			bare = bare[:dot]
		}
		if len(bare) >= 4 && strings.Contains(lower, bare) {
			return domain
		}
	}
	return ""
}

// parseMoney turns "800" + "k" into 800000, "1.2" + "m" into 1200000.
func parseMoney(number, suffix string) int {
	cleaned := strings.ReplaceAll(number, ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(suffix) {
	case "k":
		value *= 1_000
	case "m":
		value *= 1_000_000
	}
	return int(value)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
