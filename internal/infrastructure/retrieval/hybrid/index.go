package hybrid

import (
	"context"
	"fmt"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
)

// Index pairs the dense and lexical structures built from one chunk list.
// Positions are shared: hit i in either side refers to Chunks[i].
type Index struct {
	Chunks  []domain.DocumentChunk
	Dense   *denseIndex
	Lexical *lexicalIndex
}

func buildIndex(ctx context.Context, embedder ports.Embedder, chunks []domain.DocumentChunk) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "embed corpus", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "embed corpus",
			fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	return &Index{
		Chunks:  chunks,
		Dense:   newDenseIndex(vectors),
		Lexical: buildLexicalIndex(chunks),
	}, nil
}
