package speaker

import (
	"fmt"
	"math"
)

// DimensionError reports an embedding whose dimensionality does not match
// the tracker's configured dimension. This is a wiring bug upstream, not a
// runtime condition, so it is the only error the tracker ever returns.
type DimensionError struct {
	Label string
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding for %q has dimension %d, tracker requires %d", e.Label, e.Got, e.Want)
}

// LocalSpeaker is one chunk-local speaker with its acoustic embedding.
// Callers must present locals in a stable order (by first span start time);
// that order is the matching tie-break.
type LocalSpeaker struct {
	Label     string
	Embedding []float64
}

// ConsistencyTracker maps chunk-local speaker labels onto stable global
// speaker IDs. It owns the registry and must be driven from a single
// goroutine: chunk i's Match must complete before chunk i+1's starts.
type ConsistencyTracker struct {
	registry  *GlobalSpeakerRegistry
	threshold float64
	dim       int
}

// NewConsistencyTracker 创建跨切片说话人一致性追踪器
// threshold 为 [0,1] 区间上的相似度门限，dim 为嵌入向量维度
func NewConsistencyTracker(registry *GlobalSpeakerRegistry, threshold float64, dim int) *ConsistencyTracker {
	return &ConsistencyTracker{registry: registry, threshold: threshold, dim: dim}
}

// Registry exposes the owned registry for read-only reporting.
func (t *ConsistencyTracker) Registry() *GlobalSpeakerRegistry {
	return t.registry
}

// Match assigns a global speaker ID to every chunk-local speaker.
//
// With an empty registry every local label mints a fresh ID (bootstrap).
// Otherwise a similarity matrix between local embeddings and registry
// profiles is scanned greedily: the highest unused cell wins if it clears
// the threshold, with ties broken by row-then-column scan order. Locals
// left unmatched mint new IDs. Absence of a match is never an error.
func (t *ConsistencyTracker) Match(locals []LocalSpeaker) (map[string]string, error) {
	for _, l := range locals {
		if len(l.Embedding) != t.dim {
			return nil, &DimensionError{Label: l.Label, Want: t.dim, Got: len(l.Embedding)}
		}
	}

	mapping := make(map[string]string, len(locals))

	// bootstrap: first chunk ever, one fresh ID per local label
	if t.registry.Count() == 0 {
		for _, l := range locals {
			id := t.registry.NextID()
			t.registry.AddEmbedding(id, l.Embedding)
			mapping[l.Label] = id
		}
		return mapping, nil
	}

	globalIDs := t.registry.IDs()
	sim := make([][]float64, len(locals))
	for i, l := range locals {
		sim[i] = make([]float64, len(globalIDs))
		for j, id := range globalIDs {
			sim[i][j] = mappedSimilarity(l.Embedding, t.registry.Profile(id))
		}
	}

	usedRow := make([]bool, len(locals))
	usedCol := make([]bool, len(globalIDs))

	for {
		bestRow, bestCol, bestScore := -1, -1, -1.0
		for i := range locals {
			if usedRow[i] {
				continue
			}
			for j := range globalIDs {
				if usedCol[j] {
					continue
				}
				// strict > keeps the first cell on ties (row-then-column order)
				if sim[i][j] > bestScore {
					bestRow, bestCol, bestScore = i, j, sim[i][j]
				}
			}
		}
		if bestRow < 0 || bestScore < t.threshold {
			break
		}
		usedRow[bestRow] = true
		usedCol[bestCol] = true
		id := globalIDs[bestCol]
		mapping[locals[bestRow].Label] = id
		t.registry.AddEmbedding(id, locals[bestRow].Embedding)
	}

	// unmatched locals are new speakers, not failures
	for i, l := range locals {
		if usedRow[i] {
			continue
		}
		id := t.registry.NextID()
		t.registry.AddEmbedding(id, l.Embedding)
		mapping[l.Label] = id
	}

	return mapping, nil
}

// mappedSimilarity computes cosine similarity mapped onto [0,1] via
// (cos+1)/2. A zero-norm vector compares as 0 to everything.
func mappedSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
