package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/inkstone-labs/inkdex/internal/embed"
	"github.com/inkstone-labs/inkdex/internal/store"
)

// DefaultLimit applies when a query gives no limit.
const DefaultLimit = 10

// Reason tags attached to results.
const (
	ReasonLexicalMatch   = "lexical-match"
	ReasonVectorMatch    = "vector-match"
	ReasonMMRDiversified = "mmr-diversified"
)

// Result is one ranked search hit.
type Result struct {
	Path       string   `json:"path"`
	Title      string   `json:"title,omitempty"`
	Excerpt    string   `json:"excerpt"`
	Score      float64  `json:"score"`
	Source     string   `json:"source"`
	ReasonTags []string `json:"reasonTags"`
}

// TitleFunc resolves a document path to a display title; it may return
// "" when no title is known.
type TitleFunc func(path string) string

// Engine answers free-text queries by scoring both indexes, normalizing
// each side to [0,1], merging per chunk key, and diversifying with MMR.
// Queries read whatever is currently indexed: the two indexes may be at
// different points of convergence and that is fine.
type Engine struct {
	lexical  *store.LexicalIndex
	vector   *store.VectorIndex
	embedder embed.Backend
	title    TitleFunc
	selector MMRSelector
	logger   *slog.Logger
}

// NewEngine assembles a search engine over the two indexes. title may
// be nil.
func NewEngine(lexical *store.LexicalIndex, vector *store.VectorIndex, embedder embed.Backend, title TitleFunc, logger *slog.Logger) *Engine {
	if title == nil {
		title = func(string) string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		title:    title,
		selector: NewMMRSelector(),
		logger:   logger.With("component", "search"),
	}
}

// Search runs the query against both indexes and returns up to limit
// fused, diversified results. Unlike indexing-time embedding, a
// query-time embedding failure propagates to the caller.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	pool := make(map[string]*Candidate)

	lexHits := e.lexical.Search(query, e.selector.PoolCap)
	maxLex := 0.0
	for _, hit := range lexHits {
		if hit.Score > maxLex {
			maxLex = hit.Score
		}
	}
	for _, hit := range lexHits {
		score := 0.0
		if maxLex > 0 {
			score = hit.Score / maxLex
		}
		pool[hit.Key] = &Candidate{
			Key:     hit.Key,
			Path:    hit.Path,
			Excerpt: hit.Excerpt,
			Score:   score,
			Sources: []string{"lexical"},
		}
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vecHits, err := e.vector.Query(queryVec, e.selector.PoolCap)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	maxVec := 0.0
	for _, hit := range vecHits {
		if hit.Score > maxVec {
			maxVec = hit.Score
		}
	}
	for _, hit := range vecHits {
		score := 0.0
		if maxVec > 0 {
			score = hit.Score / maxVec
		}
		if score <= 0 {
			continue
		}
		if c, ok := pool[hit.Key]; ok {
			if score > c.Score {
				c.Score = score
			}
			c.Sources = append(c.Sources, "vector")
			continue
		}
		pool[hit.Key] = &Candidate{
			Key:     hit.Key,
			Path:    hit.Path,
			Excerpt: hit.Excerpt,
			Score:   score,
			Sources: []string{"vector"},
		}
	}

	if len(pool) == 0 {
		return nil, nil
	}

	candidates := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if vc := e.vector.Get(c.Key); vc != nil {
			c.Vector = vc.Vector
		}
		c.Title = e.title(c.Path)
		candidates = append(candidates, *c)
	}

	diversified := len(candidates) > limit
	selected := e.selector.Select(candidates, limit)

	results := make([]Result, 0, len(selected))
	for _, c := range selected {
		results = append(results, Result{
			Path:       c.Path,
			Title:      c.Title,
			Excerpt:    c.Excerpt,
			Score:      c.Score,
			Source:     sourceLabel(c.Sources),
			ReasonTags: reasonTags(c.Sources, diversified),
		})
	}
	e.logger.Debug("search completed",
		"query", query,
		"lexicalHits", len(lexHits),
		"vectorHits", len(vecHits),
		"returned", len(results))
	return results, nil
}

func sourceLabel(sources []string) string {
	switch len(sources) {
	case 0:
		return ""
	case 1:
		return sources[0]
	default:
		return "both"
	}
}

func reasonTags(sources []string, diversified bool) []string {
	tags := make([]string, 0, 3)
	for _, s := range sources {
		switch s {
		case "lexical":
			tags = append(tags, ReasonLexicalMatch)
		case "vector":
			tags = append(tags, ReasonVectorMatch)
		}
	}
	if diversified {
		tags = append(tags, ReasonMMRDiversified)
	}
	sort.Strings(tags)
	return tags
}
