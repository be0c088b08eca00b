package store

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minLexicalTokenLen = 3

// stopWords is a fixed set of high-frequency English words excluded from
// the lexical index. Tokens shorter than minLexicalTokenLen are dropped
// before this set is consulted, so two-letter words need not appear.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "has": {}, "had": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "them": {},
	"then": {}, "than": {}, "will": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "how": {}, "why": {},
	"his": {}, "she": {}, "him": {}, "its": {}, "were": {}, "been": {},
	"being": {}, "would": {}, "could": {}, "should": {}, "there": {},
	"their": {}, "these": {}, "those": {}, "into": {}, "over": {},
	"under": {}, "about": {}, "after": {}, "before": {}, "just": {},
	"also": {}, "very": {}, "some": {}, "such": {}, "only": {},
	"more": {}, "most": {}, "other": {}, "each": {}, "because": {},
	"while": {}, "does": {}, "did": {}, "doing": {}, "your": {},
}

// TokenizeText lowercases text, splits on non-letter/non-digit runs
// (Unicode-aware), and drops tokens shorter than three characters or in
// the stop-word set. The result preserves duplicates: term frequency is
// counted by the caller.
func TokenizeText(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minLexicalTokenLen {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// TokenizeQuery tokenizes query text like TokenizeText, then
// deduplicates terms preserving first-seen order and caps the result at
// max terms.
func TokenizeQuery(text string, max int) []string {
	tokens := TokenizeText(text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
