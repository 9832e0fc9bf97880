package hybrid

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
	"github.com/tradepilot/tradepilot/internal/infrastructure/corpus"
)

// BuildObserver receives index lifecycle events. The pipeline metrics
// implement it; tests pass their own.
type BuildObserver interface {
	IndexRebuilt()
	IndexReused()
}

type noopObserver struct{}

func (noopObserver) IndexRebuilt() {}
func (noopObserver) IndexReused()  {}

type ManagerConfig struct {
	CorpusDir        string
	DenseIndexPath   string
	LexicalIndexPath string
	SignaturePath    string
	Search           SearchOptions
}

// Manager owns the cached hybrid index. It starts cold, and Ensure moves it
// to ready by reusing the in-memory index, loading the persisted artifacts,
// or rebuilding, in that order of preference. Concurrent Ensure calls are
// serialized so the expensive embed pass runs at most once per corpus change;
// Retriever reads the current snapshot lock-free.
type Manager struct {
	cfg      ManagerConfig
	embedder ports.Embedder
	observer BuildObserver
	buildFn  func(context.Context, ports.Embedder, []domain.DocumentChunk) (*Index, error)

	mu         sync.Mutex
	currentSig string
	current    atomic.Pointer[Index]
}

func NewManager(cfg ManagerConfig, embedder ports.Embedder, observer BuildObserver) *Manager {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Manager{
		cfg:      cfg,
		embedder: embedder,
		observer: observer,
		buildFn:  buildIndex,
	}
}

// Ensure brings the cached index in line with the corpus the chunks were
// loaded from. The signature is recomputed from disk every call; chunk
// content is trusted to match it because the orchestrator loads and ensures
// back to back.
func (m *Manager) Ensure(ctx context.Context, chunks []domain.DocumentChunk) error {
	signature := corpus.Signature(m.cfg.CorpusDir)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentSig == signature && (m.current.Load() != nil || len(chunks) == 0) {
		m.observer.IndexReused()
		return nil
	}

	if len(chunks) == 0 {
		// Corpus gone or empty: drop stale artifacts before persisting the
		// signature, otherwise a later start would load them back.
		removeArtifacts(m.cfg.DenseIndexPath, m.cfg.LexicalIndexPath)
		if err := corpus.SaveSignature(m.cfg.SignaturePath, signature); err != nil {
			return domain.WrapError(domain.ErrIndexUnavailable, "persist signature", err)
		}
		m.current.Store(nil)
		m.currentSig = signature
		slog.Info("corpus empty, index cleared", "signature", signature)
		return nil
	}

	if stored := corpus.LoadSignature(m.cfg.SignaturePath); stored == signature {
		ix, err := loadIndex(m.cfg.DenseIndexPath, m.cfg.LexicalIndexPath)
		if err == nil {
			m.current.Store(ix)
			m.currentSig = signature
			m.observer.IndexReused()
			slog.Info("index loaded from artifacts", "chunks", len(ix.Chunks))
			return nil
		}
		slog.Warn("index artifacts unusable, rebuilding", "error", err)
	}

	ix, err := m.buildFn(ctx, m.embedder, chunks)
	if err != nil {
		return err
	}
	// Durability order matters: both artifacts land before the signature, so
	// a crash in between forces a rebuild instead of trusting a torn pair.
	if err := saveIndex(m.cfg.DenseIndexPath, m.cfg.LexicalIndexPath, ix); err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "persist index", err)
	}
	if err := corpus.SaveSignature(m.cfg.SignaturePath, signature); err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "persist signature", err)
	}

	m.current.Store(ix)
	m.currentSig = signature
	m.observer.IndexRebuilt()
	slog.Info("index rebuilt", "chunks", len(ix.Chunks))
	return nil
}

// Retriever returns a searcher over the current snapshot, or
// ErrIndexUnavailable while the manager is still cold.
func (m *Manager) Retriever() (ports.Retriever, error) {
	ix := m.current.Load()
	if ix == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "retriever", errNoIndex)
	}
	return newRetriever(ix, m.embedder, m.cfg.Search), nil
}

var errNoIndex = errors.New("no index built for current corpus")
