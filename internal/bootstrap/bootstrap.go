package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/tradepilot/tradepilot/internal/config"
	"github.com/tradepilot/tradepilot/internal/core/ports"
	"github.com/tradepilot/tradepilot/internal/core/usecase"
	"github.com/tradepilot/tradepilot/internal/infrastructure/acquisition/rulesoforigin"
	"github.com/tradepilot/tradepilot/internal/infrastructure/chunking"
	"github.com/tradepilot/tradepilot/internal/infrastructure/corpus"
	"github.com/tradepilot/tradepilot/internal/infrastructure/llm/groq"
	"github.com/tradepilot/tradepilot/internal/infrastructure/llm/ollama"
	natsqueue "github.com/tradepilot/tradepilot/internal/infrastructure/queue/nats"
	"github.com/tradepilot/tradepilot/internal/infrastructure/reference"
	"github.com/tradepilot/tradepilot/internal/infrastructure/resilience"
	"github.com/tradepilot/tradepilot/internal/infrastructure/retrieval/hybrid"
	"github.com/tradepilot/tradepilot/internal/observability/metrics"
)

// App wires the ask pipeline. Every collaborator is constructed here and
// passed in explicitly; nothing reaches for process-global state.
type App struct {
	Config config.Config

	AskService ports.AskService
	Queue      *natsqueue.Queue
	Pipeline   *metrics.PipelineMetrics
	HTTP       *metrics.HTTPMetrics

	closeFn func()
}

func New(cfg config.Config) (*App, error) {
	pipelineMetrics := metrics.NewPipelineMetrics("api")
	httpMetrics := metrics.NewHTTPMetrics("api", pipelineMetrics.Registry())

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	refs, err := reference.NewStore(reference.StoreConfig{
		CountriesCSVPath:    cfg.CountriesCSVPath,
		HSCatalogPath:       cfg.HSCatalogPath,
		AgreementPolicyPath: cfg.AgreementPolicyPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init reference data: %w", err)
	}

	groqClient := groq.New(cfg.GroqURL, cfg.GroqAPIKey, cfg.GroqModel, executor)
	extractor := groq.NewExtractor(groqClient)
	synthesizer := groq.NewSynthesizer(groqClient)

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)

	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	loader := corpus.NewLoader(splitter, cfg.ReferencesPath)

	manager := hybrid.NewManager(hybrid.ManagerConfig{
		CorpusDir:        cfg.CorpusDir,
		DenseIndexPath:   cfg.DenseIndexPath,
		LexicalIndexPath: cfg.LexicalIndexPath,
		SignaturePath:    cfg.SignaturePath,
		Search: hybrid.SearchOptions{
			DenseWeight: cfg.DenseWeight,
			Strategy:    cfg.FusionStrategy,
			Candidates:  cfg.HybridCandidates,
		},
	}, embedder, pipelineMetrics)

	acquirer := rulesoforigin.NewAgent(rulesoforigin.Config{
		CompareURL:         cfg.CompareURL,
		CorpusDir:          cfg.CorpusDir,
		ReferencesPath:     cfg.ReferencesPath,
		StatePath:          cfg.AcquisitionStatePath,
		FallbackRecordPath: cfg.FallbackRecordPath,
		TariffAPIURL:       cfg.TariffAPIURL,
		Headless:           cfg.AcquireHeadless,
		DownloadRPS:        cfg.DownloadRPS,
	}, executor)
	fallbackStore := rulesoforigin.NewRecordStore(cfg.FallbackRecordPath)

	// The audit queue is optional: the API answers without it.
	var publisher ports.RunPublisher
	var queue *natsqueue.Queue
	if cfg.NATSURL != "" {
		queue, err = natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			slog.Warn("audit queue unavailable, runs will not be recorded", "error", err)
		} else {
			publisher = queue
		}
	}

	askUC := usecase.NewAskUseCase(usecase.AskConfig{
		CorpusDir:        cfg.CorpusDir,
		RetrieverK:       cfg.RetrieverK,
		ExtractTimeout:   cfg.ExtractTimeout,
		AcquireTimeout:   cfg.AcquireTimeout,
		RefreshTimeout:   cfg.RefreshTimeout,
		SynthesisTimeout: cfg.SynthesisTimeout,
	}, extractor, refs, acquirer, loader, manager, synthesizer, fallbackStore, publisher, pipelineMetrics)

	return &App{
		Config:     cfg,
		AskService: askUC,
		Queue:      queue,
		Pipeline:   pipelineMetrics,
		HTTP:       httpMetrics,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
