// Package vector provides the similarity engine used by memory retrieval:
// brute-force cosine top-k and salience ranking over in-memory corpora.
//
// Everything here is a pure function. Vectors are pulled from the store by
// callers and scanned linearly; there is no index.
package vector

import "time"

// DefaultRecencyDecayDays is the half-life, in days, of the recency factor
// used by salience ranking.
const DefaultRecencyDecayDays = 30.0

// Entry is a corpus member for cosine search. A nil Embedding marks a
// missing vector; such entries never appear in results.
type Entry struct {
	ID        string
	Embedding []float32
}

// SalienceEntry is a corpus member for salience search.
type SalienceEntry struct {
	Entry

	ReinforcementCount int
	LastReinforcedAt   *time.Time
}

// Hit is a ranked search result.
type Hit struct {
	ID    string
	Score float64
}

// Ranking selects how item search results are ordered.
type Ranking string

const (
	// RankingSimilarity orders by cosine similarity alone.
	RankingSimilarity Ranking = "similarity"

	// RankingSalience orders by similarity x reinforcement x recency.
	RankingSalience Ranking = "salience"
)

// Valid reports whether r is a known ranking.
func (r Ranking) Valid() bool {
	return r == RankingSimilarity || r == RankingSalience
}
