package ports

import (
	"context"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// AskService is the inbound contract: one question in, one grounded answer out.
type AskService interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

// TradeInfoExtractor pulls exporter, importer and product/HS code out of a
// free-text question. Returned fields are raw; normalization happens in core.
type TradeInfoExtractor interface {
	ExtractTradeInfo(ctx context.Context, query string) (domain.ExtractedFields, error)
}

// ReferenceData resolves country names, agreement placeholders and HS codes
// against the external lookup tables.
type ReferenceData interface {
	CanonicalCountry(name string) (string, bool)
	RepresentativeMember(name string, role domain.TradeRole) (string, bool)
	FindHSCode(product string) string
}

// DocumentAcquirer fetches agreement documents for a trade lane into the
// corpus directory, or writes a structured tariff fallback when none exist.
type DocumentAcquirer interface {
	Acquire(ctx context.Context, exporter, importer, product string) (domain.AcquisitionResult, error)
}

// CorpusLoader loads and splits the corpus directory into chunks. An empty
// or missing directory yields an empty slice, not an error.
type CorpusLoader interface {
	Load(ctx context.Context, dir string) ([]domain.DocumentChunk, error)
}

// Embedder builds vectors for chunks and query text. Vectors must be stable
// for the same text within one index generation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever runs a fused dense+lexical search over the current index.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error)
}

// RetrieverProvider owns the index lifecycle. Ensure reuses or rebuilds the
// stored index from the given chunks; Retriever returns
// domain.ErrIndexUnavailable while the manager is Cold.
type RetrieverProvider interface {
	Ensure(ctx context.Context, chunks []domain.DocumentChunk) error
	Retriever() (Retriever, error)
}

// AnswerSynthesizer turns retrieved context, or a tariff fallback record,
// into the final user-facing text.
type AnswerSynthesizer interface {
	SynthesizeAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error)
	SynthesizeFallback(ctx context.Context, question string, record domain.TariffRecord) (string, error)
}

// FallbackStore reads the persisted tariff fallback record. A missing record
// is (nil, nil): absence is a normal state, not an error.
type FallbackStore interface {
	LoadTariffRecord(ctx context.Context) (*domain.TariffRecord, error)
}

// RunPublisher emits the audit event for a completed or failed run.
// Publishing is best effort and must never fail the request.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, record domain.RunRecord) error
}

// RunStore persists audit rows on the worker side.
type RunStore interface {
	EnsureSchema(ctx context.Context) error
	InsertRun(ctx context.Context, record domain.RunRecord) error
}
