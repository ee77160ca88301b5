package analytics

import (
	"regexp"
	"strings"
)

// TaggedSecurity is the subset of a security the tagger needs.
type TaggedSecurity struct {
	ID       uint
	Symbol   string
	Keywords []string
}

type tagEntry struct {
	security TaggedSecurity
	patterns []*regexp.Regexp
}

// Tagger maps free text to the securities it mentions.
type Tagger struct {
	entries []tagEntry
}

// NewTagger compiles keyword matchers. Keywords match case-insensitively on word boundaries;
// securities without keywords fall back to their symbol.
func NewTagger(securities []TaggedSecurity) *Tagger {
	t := &Tagger{}
	for _, s := range securities {
		keywords := s.Keywords
		if len(keywords) == 0 {
			keywords = []string{s.Symbol}
		}
		entry := tagEntry{security: s}
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			entry.patterns = append(entry.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		t.entries = append(t.entries, entry)
	}
	return t
}

// Tag returns each mentioned security once, in registration order.
func (t *Tagger) Tag(text string) []TaggedSecurity {
	var out []TaggedSecurity
	seen := make(map[string]struct{})
	for _, e := range t.entries {
		if _, ok := seen[e.security.Symbol]; ok {
			continue
		}
		for _, p := range e.patterns {
			if p.MatchString(text) {
				out = append(out, e.security)
				seen[e.security.Symbol] = struct{}{}
				break
			}
		}
	}
	return out
}

// Symbols is Tag reduced to ticker symbols.
func (t *Tagger) Symbols(text string) []string {
	tagged := t.Tag(text)
	out := make([]string, 0, len(tagged))
	for _, s := range tagged {
		out = append(out, s.Symbol)
	}
	return out
}
