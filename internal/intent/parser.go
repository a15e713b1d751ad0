package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/v0xg/webnav/internal/ai"
	"github.com/v0xg/webnav/internal/sitemap"
)

// Parser turns a free-text question into an Intent. The language model is the
// primary path; any failure there degrades to the deterministic keyword
// heuristic, so Parse never returns an error.
type Parser struct {
	provider ai.Provider
	maps     *sitemap.Repository
}

// New builds a parser. provider may be nil, in which case only the heuristic
// path runs.
func New(provider ai.Provider, maps *sitemap.Repository) *Parser {
	return &Parser{provider: provider, maps: maps}
}

func (p *Parser) Parse(ctx context.Context, question string) Intent {
	sites := p.knownSites()

	if p.provider != nil {
		raw, err := p.provider.GenerateIntent(ctx, question, sites)
		if err == nil {
			if parsed, ok := decodeIntent(raw); ok {
				return parsed
			}
			err = fmt.Errorf("no usable intent object in model response")
		}
		log.Printf("intent: model interpretation failed, falling back to heuristic: %v", err)
	}

	return Heuristic(question, sites)
}

func (p *Parser) knownSites() []string {
	if p.maps == nil {
		return nil
	}
	all := p.maps.All()
	sites := make([]string, 0, len(all))
	for _, m := range all {
		sites = append(sites, m.Domain)
	}
	return sites
}

// decodeIntent scans the model response for the first balanced {...} block and
// unmarshals it. Responses whose action is not a known value are rejected so
// the caller can fall back.
func decodeIntent(response string) (Intent, bool) {
	block, ok := firstJSONObject(response)
	if !ok {
		return Intent{}, false
	}

	var parsed Intent
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return Intent{}, false
	}
	if !knownActions[parsed.Action] || parsed.Action == ActionUnknown {
		return Intent{}, false
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return parsed, true
}

// firstJSONObject extracts the first brace-balanced object from text that may
// contain surrounding prose or markdown fences. Braces inside JSON strings are
// accounted for.
func firstJSONObject(response string) (string, bool) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1], true
			}
		}
	}
	return "", false
}
