package vector

import (
	"math"
	"sort"
	"time"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length are compared over their common prefix; a zero-norm vector yields 0.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineTopK returns the k entries most similar to query, best first.
// Entries without a vector are skipped and ties keep corpus order.
func CosineTopK(query []float32, corpus []Entry, k int) []Hit {
	if k <= 0 {
		return []Hit{}
	}

	hits := make([]Hit, 0, len(corpus))
	for _, e := range corpus {
		if e.Embedding == nil {
			continue
		}
		hits = append(hits, Hit{ID: e.ID, Score: Cosine(query, e.Embedding)})
	}

	return topK(hits, k)
}

// SalienceScore blends similarity with how often and how recently a fact was
// reinforced:
//
//	ln(reinforcementCount+1) * recency * similarity
//
// where recency is 0.5 when lastReinforcedAt is nil and otherwise halves
// every recencyDecayDays days. A non-positive recencyDecayDays uses
// DefaultRecencyDecayDays.
func SalienceScore(similarity float64, reinforcementCount int, lastReinforcedAt *time.Time, recencyDecayDays float64, now time.Time) float64 {
	if recencyDecayDays <= 0 {
		recencyDecayDays = DefaultRecencyDecayDays
	}

	reinforcement := math.Log(float64(reinforcementCount) + 1)

	recency := 0.5
	if lastReinforcedAt != nil {
		days := now.Sub(*lastReinforcedAt).Hours() / 24
		recency = math.Exp(-math.Ln2 * days / recencyDecayDays)
	}

	return similarity * reinforcement * recency
}

// CosineTopKSalience ranks the corpus by SalienceScore and returns the top k.
// No similarity floor is applied.
func CosineTopKSalience(query []float32, corpus []SalienceEntry, k int, recencyDecayDays float64, now time.Time) []Hit {
	if k <= 0 {
		return []Hit{}
	}

	hits := make([]Hit, 0, len(corpus))
	for _, e := range corpus {
		if e.Embedding == nil {
			continue
		}
		sim := Cosine(query, e.Embedding)
		hits = append(hits, Hit{
			ID:    e.ID,
			Score: SalienceScore(sim, e.ReinforcementCount, e.LastReinforcedAt, recencyDecayDays, now),
		})
	}

	return topK(hits, k)
}

func topK(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
