package hybrid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// Index artifacts are two JSON files written side by side. The dense artifact
// carries the chunks themselves so a load never re-reads the corpus; the
// lexical artifact carries the BM25 statistics plus the chunk count it was
// built from, which loadIndex cross-checks to catch a torn pair.

type denseArtifact struct {
	Chunks  []domain.DocumentChunk `json:"chunks"`
	Dims    int                    `json:"dims"`
	Vectors [][]float32            `json:"vectors"`
}

type lexicalArtifact struct {
	ChunkCount int           `json:"chunk_count"`
	Index      *lexicalIndex `json:"index"`
}

func saveIndex(densePath, lexicalPath string, ix *Index) error {
	dense := denseArtifact{
		Chunks:  ix.Chunks,
		Dims:    ix.Dense.Dims,
		Vectors: ix.Dense.Vectors,
	}
	if err := writeJSONAtomic(densePath, dense); err != nil {
		return fmt.Errorf("save dense index: %w", err)
	}

	lexical := lexicalArtifact{
		ChunkCount: len(ix.Chunks),
		Index:      ix.Lexical,
	}
	if err := writeJSONAtomic(lexicalPath, lexical); err != nil {
		return fmt.Errorf("save lexical index: %w", err)
	}
	return nil
}

func loadIndex(densePath, lexicalPath string) (*Index, error) {
	var dense denseArtifact
	if err := readJSON(densePath, &dense); err != nil {
		return nil, fmt.Errorf("load dense index: %w", err)
	}
	var lexical lexicalArtifact
	if err := readJSON(lexicalPath, &lexical); err != nil {
		return nil, fmt.Errorf("load lexical index: %w", err)
	}

	if len(dense.Vectors) != len(dense.Chunks) {
		return nil, fmt.Errorf("dense index holds %d vectors for %d chunks", len(dense.Vectors), len(dense.Chunks))
	}
	if lexical.Index == nil || lexical.ChunkCount != len(dense.Chunks) {
		return nil, fmt.Errorf("lexical index built from %d chunks, dense from %d", lexical.ChunkCount, len(dense.Chunks))
	}
	if len(lexical.Index.DocTerms) != len(dense.Chunks) || len(lexical.Index.DocLens) != len(dense.Chunks) {
		return nil, fmt.Errorf("lexical index document tables inconsistent with chunk count %d", len(dense.Chunks))
	}

	return &Index{
		Chunks:  dense.Chunks,
		Dense:   &denseIndex{Dims: dense.Dims, Vectors: dense.Vectors},
		Lexical: lexical.Index,
	}, nil
}

func removeArtifacts(densePath, lexicalPath string) {
	_ = os.Remove(densePath)
	_ = os.Remove(lexicalPath)
}

func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
