package hybrid

import (
	"context"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
)

// SearchOptions tune how the two ranked lists are produced and fused.
type SearchOptions struct {
	// DenseWeight is the dense share in weighted fusion; lexical gets the rest.
	DenseWeight float64
	// Strategy selects StrategyWeighted (default) or StrategyRRF.
	Strategy string
	// Candidates is how many hits each side contributes before fusion.
	Candidates int
	// RRFK dampens rank differences under StrategyRRF.
	RRFK int
}

func (o SearchOptions) normalize() SearchOptions {
	out := o
	if out.DenseWeight <= 0 || out.DenseWeight > 1 {
		out.DenseWeight = 0.6
	}
	if out.Strategy != StrategyRRF {
		out.Strategy = StrategyWeighted
	}
	if out.Candidates <= 0 {
		out.Candidates = 30
	}
	if out.RRFK <= 0 {
		out.RRFK = defaultRRFK
	}
	return out
}

// Retriever answers queries against one immutable Index snapshot. The manager
// hands out a fresh Retriever per ask, so an index swap mid-flight never
// mixes two corpus generations in one result set.
type Retriever struct {
	index    *Index
	embedder ports.Embedder
	opts     SearchOptions
}

func newRetriever(index *Index, embedder ports.Embedder, opts SearchOptions) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		opts:     opts.normalize(),
	}
}

func (r *Retriever) Search(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = 6
	}
	candidates := r.opts.Candidates
	if candidates < k {
		candidates = k
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "embed query", err)
	}

	dense := r.index.Dense.search(queryVec, candidates)
	lexical := r.index.Lexical.search(query, candidates)

	var fused []scoredHit
	switch r.opts.Strategy {
	case StrategyRRF:
		fused = fuseRRF(dense, lexical, r.opts.RRFK, k)
	default:
		fused = fuseWeighted(dense, lexical, r.opts.DenseWeight, k)
	}

	out := make([]domain.RetrievedChunk, 0, len(fused))
	for _, hit := range fused {
		out = append(out, domain.RetrievedChunk{
			DocumentChunk: r.index.Chunks[hit.index],
			Score:         hit.score,
		})
	}
	return out, nil
}
