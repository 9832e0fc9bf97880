package hybrid

import (
	"math"
	"sort"
)

// denseIndex holds one embedding per chunk and answers queries by brute-force
// cosine similarity. Corpora here are a handful of agreement texts, so exact
// scan beats carrying an ANN dependency.
type denseIndex struct {
	Dims    int         `json:"dims"`
	Vectors [][]float32 `json:"vectors"`
}

func newDenseIndex(vectors [][]float32) *denseIndex {
	ix := &denseIndex{Vectors: vectors}
	if len(vectors) > 0 {
		ix.Dims = len(vectors[0])
	}
	return ix
}

func (ix *denseIndex) search(query []float32, k int) []scoredHit {
	if len(query) == 0 || len(ix.Vectors) == 0 {
		return nil
	}

	hits := make([]scoredHit, 0, len(ix.Vectors))
	for i, vec := range ix.Vectors {
		hits = append(hits, scoredHit{index: i, score: cosine(query, vec)})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].index < hits[b].index
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
