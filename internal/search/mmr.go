// Package search fuses lexical and vector index hits into one ranked,
// diversified result list.
package search

import (
	"sort"

	"github.com/inkstone-labs/inkdex/internal/store"
)

// MMR selection defaults.
const (
	// DefaultLambda is the relevance/diversity trade-off.
	DefaultLambda = 0.72
	// DefaultPoolCap bounds the candidate pool before the O(n*limit)
	// selection loop.
	DefaultPoolCap = 400
	// DefaultRedundancyCutoff is the similarity at which a candidate is
	// treated as an outright duplicate of something already selected.
	DefaultRedundancyCutoff = 0.95
)

// Candidate is a fused, normalized chunk hit entering MMR selection.
type Candidate struct {
	Key     string
	Path    string
	Title   string
	Excerpt string
	// Score is the fused relevance, normalized to [0,1].
	Score float64
	// Vector is the chunk's embedding when the vector index holds one;
	// nil candidates fall back to lexical similarity.
	Vector []float32
	// Sources names the indexes that produced this candidate.
	Sources []string
}

// MMRSelector re-ranks a relevance-sorted candidate pool with greedy
// Maximal Marginal Relevance: each round picks the candidate maximizing
// lambda*relevance - (1-lambda)*maxSimilarity(candidate, selected).
type MMRSelector struct {
	Lambda           float64
	PoolCap          int
	RedundancyCutoff float64
}

// NewMMRSelector returns a selector with the default parameters.
func NewMMRSelector() MMRSelector {
	return MMRSelector{
		Lambda:           DefaultLambda,
		PoolCap:          DefaultPoolCap,
		RedundancyCutoff: DefaultRedundancyCutoff,
	}
}

// Select returns up to limit candidates, diversified. A pool already
// within the limit is returned as-is, ordered by upstream relevance:
// there is nothing to diversify when every candidate will be returned.
func (s MMRSelector) Select(pool []Candidate, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].Key < pool[j].Key
	})
	if s.PoolCap > 0 && len(pool) > s.PoolCap {
		pool = pool[:s.PoolCap]
	}
	if len(pool) <= limit {
		return pool
	}

	selected := make([]Candidate, 0, limit)
	remaining := make([]Candidate, len(pool))
	copy(remaining, pool)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, c := range remaining {
			score := s.Lambda*c.Score - (1-s.Lambda)*s.maxSimilarity(c, selected)
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// maxSimilarity returns the candidate's highest similarity against the
// selected set, breaking out early once it crosses the redundancy
// cutoff: the candidate is already effectively a duplicate.
func (s MMRSelector) maxSimilarity(c Candidate, selected []Candidate) float64 {
	maxSim := 0.0
	for _, other := range selected {
		sim := similarity(c, other)
		if sim > maxSim {
			maxSim = sim
		}
		if maxSim >= s.RedundancyCutoff {
			break
		}
	}
	return maxSim
}

// similarity is cosine similarity when both candidates carry vectors,
// otherwise Jaccard over the tokens of title, path, and excerpt.
func similarity(a, b Candidate) float64 {
	if len(a.Vector) > 0 && len(a.Vector) == len(b.Vector) {
		var dot float64
		for i := range a.Vector {
			dot += float64(a.Vector[i]) * float64(b.Vector[i])
		}
		if dot < 0 {
			return 0
		}
		return dot
	}
	return jaccard(candidateTokens(a), candidateTokens(b))
}

func candidateTokens(c Candidate) map[string]struct{} {
	set := make(map[string]struct{})
	for _, text := range []string{c.Title, c.Path, c.Excerpt} {
		for _, tok := range store.TokenizeText(text) {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
