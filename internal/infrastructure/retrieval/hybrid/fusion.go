package hybrid

import "sort"

const (
	// StrategyWeighted blends min-max-normalized dense and lexical scores.
	StrategyWeighted = "weighted"
	// StrategyRRF ranks by reciprocal rank fusion instead of raw scores.
	StrategyRRF = "rrf"

	defaultRRFK = 60
)

type fusedHit struct {
	index    int
	score    float64
	bestRank int
}

// fuseWeighted combines the two ranked lists with a weighted sum of
// min-max-normalized scores. A chunk absent from one list contributes zero
// from that side, so a strong lexical-only match (an exact HS code, say)
// still surfaces. Ties break toward the chunk with the better individual
// rank in either list.
func fuseWeighted(dense, lexical []scoredHit, denseWeight float64, k int) []scoredHit {
	if denseWeight < 0 {
		denseWeight = 0
	}
	if denseWeight > 1 {
		denseWeight = 1
	}

	candidates := make(map[int]*fusedHit)
	add := func(hits []scoredHit, weight float64) {
		norm := minMaxNormalize(hits)
		for rank, hit := range hits {
			c, ok := candidates[hit.index]
			if !ok {
				c = &fusedHit{index: hit.index, bestRank: rank}
				candidates[hit.index] = c
			}
			c.score += weight * norm[rank]
			if rank < c.bestRank {
				c.bestRank = rank
			}
		}
	}
	add(dense, denseWeight)
	add(lexical, 1-denseWeight)

	return rankFused(candidates, k)
}

// fuseRRF scores each chunk by the sum of 1/(rrfK + rank) over the lists it
// appears in. Score magnitudes never meet, only ranks, which makes it robust
// when the two scorers live on different scales.
func fuseRRF(dense, lexical []scoredHit, rrfK, k int) []scoredHit {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	candidates := make(map[int]*fusedHit)
	add := func(hits []scoredHit) {
		for rank, hit := range hits {
			c, ok := candidates[hit.index]
			if !ok {
				c = &fusedHit{index: hit.index, bestRank: rank}
				candidates[hit.index] = c
			}
			c.score += 1 / float64(rrfK+rank+1)
			if rank < c.bestRank {
				c.bestRank = rank
			}
		}
	}
	add(dense)
	add(lexical)

	return rankFused(candidates, k)
}

func rankFused(candidates map[int]*fusedHit, k int) []scoredHit {
	fused := make([]*fusedHit, 0, len(candidates))
	for _, c := range candidates {
		fused = append(fused, c)
	}
	sort.Slice(fused, func(a, b int) bool {
		if fused[a].score != fused[b].score {
			return fused[a].score > fused[b].score
		}
		if fused[a].bestRank != fused[b].bestRank {
			return fused[a].bestRank < fused[b].bestRank
		}
		return fused[a].index < fused[b].index
	})

	if k > 0 && len(fused) > k {
		fused = fused[:k]
	}
	out := make([]scoredHit, len(fused))
	for i, c := range fused {
		out[i] = scoredHit{index: c.index, score: c.score}
	}
	return out
}

// minMaxNormalize maps scores onto [0, 1] positionally. A single-element or
// constant list normalizes to all ones: present beats absent.
func minMaxNormalize(hits []scoredHit) []float64 {
	norm := make([]float64, len(hits))
	if len(hits) == 0 {
		return norm
	}
	lo, hi := hits[0].score, hits[0].score
	for _, h := range hits[1:] {
		if h.score < lo {
			lo = h.score
		}
		if h.score > hi {
			hi = h.score
		}
	}
	if hi == lo {
		for i := range norm {
			norm[i] = 1
		}
		return norm
	}
	for i, h := range hits {
		norm[i] = (h.score - lo) / (hi - lo)
	}
	return norm
}
