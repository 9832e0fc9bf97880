package hybrid

import (
	"math"
	"sort"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// lexicalIndex is an Okapi BM25 index over the chunk contents. Fields are
// exported so the whole structure round-trips through the lexical artifact
// file unchanged.
type lexicalIndex struct {
	K1        float64          `json:"k1"`
	B         float64          `json:"b"`
	AvgDocLen float64          `json:"avg_doc_len"`
	DocLens   []int            `json:"doc_lens"`
	DocTerms  []map[string]int `json:"doc_terms"`
	DocFreq   map[string]int   `json:"doc_freq"`
}

func buildLexicalIndex(chunks []domain.DocumentChunk) *lexicalIndex {
	ix := &lexicalIndex{
		K1:       bm25K1,
		B:        bm25B,
		DocLens:  make([]int, len(chunks)),
		DocTerms: make([]map[string]int, len(chunks)),
		DocFreq:  make(map[string]int),
	}

	total := 0
	for i, chunk := range chunks {
		terms := tokenize(chunk.Content)
		ix.DocLens[i] = len(terms)
		total += len(terms)

		freq := make(map[string]int, len(terms))
		for _, term := range terms {
			freq[term]++
		}
		ix.DocTerms[i] = freq
		for term := range freq {
			ix.DocFreq[term]++
		}
	}
	if len(chunks) > 0 {
		ix.AvgDocLen = float64(total) / float64(len(chunks))
	}
	return ix
}

// scoredHit references a chunk by position in the index's chunk slice.
type scoredHit struct {
	index int
	score float64
}

func (ix *lexicalIndex) search(query string, k int) []scoredHit {
	terms := tokenize(query)
	if len(terms) == 0 || len(ix.DocTerms) == 0 {
		return nil
	}

	n := float64(len(ix.DocTerms))
	scores := make(map[int]float64)
	for _, term := range terms {
		df, ok := ix.DocFreq[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for doc, freq := range ix.DocTerms {
			tf := float64(freq[term])
			if tf == 0 {
				continue
			}
			dl := float64(ix.DocLens[doc])
			denom := tf + ix.K1*(1-ix.B+ix.B*dl/ix.AvgDocLen)
			scores[doc] += idf * tf * (ix.K1 + 1) / denom
		}
	}

	hits := make([]scoredHit, 0, len(scores))
	for doc, score := range scores {
		hits = append(hits, scoredHit{index: doc, score: score})
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
