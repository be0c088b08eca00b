package chunk

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// HeadingLevel selects which markdown headings act as hard section
// boundaries before word windowing. HeadingNone disables heading alignment.
type HeadingLevel string

const (
	HeadingNone HeadingLevel = "none"
	HeadingH1   HeadingLevel = "h1"
	HeadingH2   HeadingLevel = "h2"
	HeadingH3   HeadingLevel = "h3"
)

// depth returns the maximum heading depth that splits sections, 0 for none.
// A setting of h2 splits at both h1 and h2 boundaries.
func (l HeadingLevel) depth() int {
	switch l {
	case HeadingH1:
		return 1
	case HeadingH2:
		return 2
	case HeadingH3:
		return 3
	default:
		return 0
	}
}

// Clamp bounds for chunking options. Values outside these ranges are
// silently clamped; chunk identity depends on the clamped values.
const (
	MinTargetWords  = 200
	MaxTargetWords  = 2000
	MinOverlapWords = 0
	MaxOverlapWords = 500

	DefaultTargetWords  = 500
	DefaultOverlapWords = 100
)

// Options configures the chunker. Any change to these values changes chunk
// identity: persisted snapshots built under different options must be
// discarded, never merged.
type Options struct {
	HeadingLevel HeadingLevel
	TargetWords  int
	OverlapWords int
}

// DefaultOptions returns the default chunking configuration.
func DefaultOptions() Options {
	return Options{
		HeadingLevel: HeadingNone,
		TargetWords:  DefaultTargetWords,
		OverlapWords: DefaultOverlapWords,
	}
}

// Clamped returns a copy of o with all values forced into their valid
// ranges. Overlap is additionally bounded below the target so every window
// advances by at least one word.
func (o Options) Clamped() Options {
	if o.HeadingLevel == "" {
		o.HeadingLevel = HeadingNone
	}
	if o.TargetWords == 0 {
		o.TargetWords = DefaultTargetWords
	}
	if o.TargetWords < MinTargetWords {
		o.TargetWords = MinTargetWords
	}
	if o.TargetWords > MaxTargetWords {
		o.TargetWords = MaxTargetWords
	}
	if o.OverlapWords < MinOverlapWords {
		o.OverlapWords = MinOverlapWords
	}
	if o.OverlapWords > MaxOverlapWords {
		o.OverlapWords = MaxOverlapWords
	}
	if o.OverlapWords >= o.TargetWords {
		o.OverlapWords = o.TargetWords / 2
	}
	return o
}

// word is a whitespace-delimited token with its byte offset in the source.
type word struct {
	text   string
	offset int
}

// Split breaks a document into ordered overlapping word windows. If a
// heading level is configured, the document is first split at matching
// heading boundaries and each section is windowed independently; windows
// never straddle a section boundary. The final partial window of a section
// is kept if non-empty. An empty document yields no spans.
func Split(source string, opts Options) []Span {
	opts = opts.Clamped()

	words := splitWords(source)
	if len(words) == 0 {
		return nil
	}

	boundaries := []int{0}
	if depth := opts.HeadingLevel.depth(); depth > 0 {
		for _, byteOff := range headingStarts([]byte(source), depth) {
			idx := sort.Search(len(words), func(i int) bool {
				return words[i].offset >= byteOff
			})
			if idx > 0 && idx < len(words) && idx != boundaries[len(boundaries)-1] {
				boundaries = append(boundaries, idx)
			}
		}
	}
	boundaries = append(boundaries, len(words))

	stride := opts.TargetWords - opts.OverlapWords
	var spans []Span
	for b := 0; b+1 < len(boundaries); b++ {
		secStart, secEnd := boundaries[b], boundaries[b+1]
		for start := secStart; start < secEnd; start += stride {
			end := start + opts.TargetWords
			if end > secEnd {
				end = secEnd
			}
			spans = append(spans, Span{
				Text:      sliceText(source, words, start, end),
				StartWord: start,
				EndWord:   end,
			})
			if end == secEnd {
				break
			}
		}
	}
	return spans
}

// splitWords tokenizes source on whitespace, recording byte offsets.
func splitWords(source string) []word {
	var words []word
	start := -1
	for i := 0; i < len(source); i++ {
		c := source[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' {
			if start >= 0 {
				words = append(words, word{text: source[start:i], offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, word{text: source[start:], offset: start})
	}
	return words
}

// sliceText returns the original source text covering words [start, end).
func sliceText(source string, words []word, start, end int) string {
	if start >= end {
		return ""
	}
	last := words[end-1]
	return source[words[start].offset : last.offset+len(last.text)]
}

// headingStarts parses source as markdown and returns the byte offset of
// the start of each heading line at or above the given depth, in document
// order.
func headingStarts(source []byte, maxDepth int) []int {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var starts []int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > maxDepth || h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		start := h.Lines().At(0).Start
		for start > 0 && source[start-1] != '\n' {
			start--
		}
		starts = append(starts, start)
		return ast.WalkContinue, nil
	})
	sort.Ints(starts)
	return starts
}

// Title returns the text of the document's first h1 heading, or "" if the
// document has none. Used for result display and lexical similarity
// fallback.
func Title(source string) string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || title != "" {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 && h.Lines().Len() > 0 {
			seg := h.Lines().At(0)
			title = strings.TrimSpace(string(src[seg.Start:seg.Stop]))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}
