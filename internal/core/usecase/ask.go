package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
)

// noInformationAnswer is returned when neither agreement documents nor a
// tariff record exist for the asked lane.
const noInformationAnswer = "I could not find trade agreement documents or standard tariff data for this combination of countries and product. Please check the country names and product description, or try a more specific HS code."

const answerPreviewLimit = 200

// PipelineObserver receives per-stage outcomes. The prometheus pipeline
// metrics satisfy it.
type PipelineObserver interface {
	ObserveStage(stage, status string, duration time.Duration)
	ObserveAnswer(branch string, chunks int)
}

type AskConfig struct {
	CorpusDir  string
	RetrieverK int

	ExtractTimeout   time.Duration
	AcquireTimeout   time.Duration
	RefreshTimeout   time.Duration
	SynthesisTimeout time.Duration
}

// AskUseCase drives one question through the four-stage pipeline: extract the
// trade lane, acquire source documents for it, refresh the retrieval index,
// and synthesize a grounded answer. Stages hand typed results forward; no
// stage inspects another stage's message text.
type AskUseCase struct {
	cfg AskConfig

	extractor   ports.TradeInfoExtractor
	refs        ports.ReferenceData
	acquirer    ports.DocumentAcquirer
	loader      ports.CorpusLoader
	provider    ports.RetrieverProvider
	synthesizer ports.AnswerSynthesizer
	fallback    ports.FallbackStore
	publisher   ports.RunPublisher
	observer    PipelineObserver

	now func() time.Time
}

func NewAskUseCase(
	cfg AskConfig,
	extractor ports.TradeInfoExtractor,
	refs ports.ReferenceData,
	acquirer ports.DocumentAcquirer,
	loader ports.CorpusLoader,
	provider ports.RetrieverProvider,
	synthesizer ports.AnswerSynthesizer,
	fallback ports.FallbackStore,
	publisher ports.RunPublisher,
	observer PipelineObserver,
) *AskUseCase {
	return &AskUseCase{
		cfg:         cfg,
		extractor:   extractor,
		refs:        refs,
		acquirer:    acquirer,
		loader:      loader,
		provider:    provider,
		synthesizer: synthesizer,
		fallback:    fallback,
		publisher:   publisher,
		observer:    observer,
		now:         time.Now,
	}
}

func (u *AskUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInsufficientInput, "ask", errors.New("empty question"))
	}

	state := &domain.WorkflowState{
		RunID:     uuid.NewString(),
		UserQuery: question,
		StartedAt: u.now(),
	}
	log := slog.With("run_id", state.RunID)

	answer, err := u.run(ctx, state, log)
	u.publish(ctx, state, log)
	if err != nil {
		return nil, err
	}
	return answer, nil
}

func (u *AskUseCase) run(ctx context.Context, state *domain.WorkflowState, log *slog.Logger) (*domain.Answer, error) {
	if err := u.extractStage(ctx, state, log); err != nil {
		return nil, err
	}

	if !state.Extracted.Status.Usable() {
		state.AcquisitionStatus = domain.StageSkipped
		state.RefreshStatus = domain.StageSkipped
		state.AnswerStatus = domain.StageSkipped
		u.observeAnswer("insufficient", 0)
		log.Info("question lacks usable trade fields", "status", state.Extracted.Status)
		return nil, domain.WrapError(domain.ErrInsufficientInput, "ask",
			errors.New("could not identify both a trade lane and a product in the question"))
	}

	if err := u.acquireStage(ctx, state, log); err != nil {
		return nil, err
	}

	chunks, err := u.refreshStage(ctx, state, log)
	if err != nil {
		return nil, err
	}

	return u.answerStage(ctx, state, chunks, log)
}

func (u *AskUseCase) extractStage(ctx context.Context, state *domain.WorkflowState, log *slog.Logger) error {
	started := u.now()
	stageCtx, cancel := context.WithTimeout(ctx, u.cfg.ExtractTimeout)
	defer cancel()

	fields, err := u.extractor.ExtractTradeInfo(stageCtx, state.UserQuery)
	if err != nil {
		state.ExtractionStatus = domain.StageError
		state.FailedStage = domain.StageExtract
		u.observeStage(domain.StageExtract, domain.StageError, started)
		return err
	}

	state.Extracted = NormalizeFields(fields, u.refs)
	if state.Extracted.Status.Usable() {
		state.ExtractionStatus = domain.StageSuccess
	} else {
		state.ExtractionStatus = domain.StageEmptyResult
	}
	u.observeStage(domain.StageExtract, state.ExtractionStatus, started)

	log.Info("trade fields extracted",
		"exporter", state.Extracted.Exporter,
		"importer", state.Extracted.Importer,
		"product", state.Extracted.ProductOrCode(),
		"status", state.Extracted.Status)
	return nil
}

func (u *AskUseCase) acquireStage(ctx context.Context, state *domain.WorkflowState, log *slog.Logger) error {
	started := u.now()
	stageCtx, cancel := context.WithTimeout(ctx, u.cfg.AcquireTimeout)
	defer cancel()

	result, err := u.acquirer.Acquire(stageCtx,
		state.Extracted.Exporter, state.Extracted.Importer, state.Extracted.ProductOrCode())
	if err != nil {
		state.AcquisitionStatus = domain.StageError
		state.FailedStage = domain.StageAcquire
		u.observeStage(domain.StageAcquire, domain.StageError, started)
		return err
	}

	state.Acquisition = result
	if result.DocumentsWritten || result.FallbackRecordWritten {
		state.AcquisitionStatus = domain.StageSuccess
	} else {
		state.AcquisitionStatus = domain.StageEmptyResult
	}
	u.observeStage(domain.StageAcquire, state.AcquisitionStatus, started)

	log.Info("documents acquired",
		"documents_written", result.DocumentsWritten,
		"fallback_record", result.FallbackRecordWritten,
		"reused", result.Reused)
	return nil
}

func (u *AskUseCase) refreshStage(ctx context.Context, state *domain.WorkflowState, log *slog.Logger) ([]domain.DocumentChunk, error) {
	started := u.now()
	stageCtx, cancel := context.WithTimeout(ctx, u.cfg.RefreshTimeout)
	defer cancel()

	chunks, err := u.loader.Load(stageCtx, u.cfg.CorpusDir)
	if err == nil {
		err = u.provider.Ensure(stageCtx, chunks)
	}
	if err != nil {
		state.RefreshStatus = domain.StageError
		state.FailedStage = domain.StageRefresh
		u.observeStage(domain.StageRefresh, domain.StageError, started)
		return nil, err
	}

	if len(chunks) == 0 {
		state.RefreshStatus = domain.StageEmptyResult
	} else {
		state.RefreshStatus = domain.StageSuccess
	}
	u.observeStage(domain.StageRefresh, state.RefreshStatus, started)

	log.Info("index ensured", "chunks", len(chunks))
	return chunks, nil
}

func (u *AskUseCase) answerStage(ctx context.Context, state *domain.WorkflowState, chunks []domain.DocumentChunk, log *slog.Logger) (*domain.Answer, error) {
	started := u.now()
	stageCtx, cancel := context.WithTimeout(ctx, u.cfg.SynthesisTimeout)
	defer cancel()

	if len(chunks) > 0 {
		retriever, err := u.provider.Retriever()
		if err != nil {
			return u.failAnswer(state, started, err)
		}
		retrieved, err := retriever.Search(stageCtx, state.UserQuery, u.cfg.RetrieverK)
		if err != nil {
			return u.failAnswer(state, started, err)
		}
		if len(retrieved) > 0 {
			state.RetrievedChunkCount = len(retrieved)
			text, err := u.synthesizer.SynthesizeAnswer(stageCtx, state.UserQuery, retrieved)
			if err != nil {
				return u.failAnswer(state, started, err)
			}
			state.AnswerStatus = domain.StageSuccess
			state.FinalAnswer = text
			u.observeStage(domain.StageAnswer, domain.StageSuccess, started)
			u.observeAnswer("retrieval", len(retrieved))
			return &domain.Answer{Text: text, Sources: chunkSources(retrieved, state.Acquisition.References)}, nil
		}
		log.Info("retrieval returned nothing, checking tariff fallback")
	}

	record, err := u.fallback.LoadTariffRecord(stageCtx)
	if err != nil {
		return u.failAnswer(state, started, err)
	}
	if record != nil {
		text, err := u.synthesizer.SynthesizeFallback(stageCtx, state.UserQuery, *record)
		if err != nil {
			return u.failAnswer(state, started, err)
		}
		state.AnswerStatus = domain.StageSuccess
		state.FallbackUsed = true
		state.FinalAnswer = text
		u.observeStage(domain.StageAnswer, domain.StageSuccess, started)
		u.observeAnswer("fallback", 0)

		var sources []domain.SourceRef
		if record.SourceURL != "" {
			sources = append(sources, domain.SourceRef{Title: "Standard tariff data", URL: record.SourceURL})
		}
		return &domain.Answer{Text: text, Sources: mergeRefs(sources, state.Acquisition.References)}, nil
	}

	state.AnswerStatus = domain.StageEmptyResult
	state.FinalAnswer = noInformationAnswer
	u.observeStage(domain.StageAnswer, domain.StageEmptyResult, started)
	u.observeAnswer("empty", 0)
	// Documents may have been fetched even though none yielded usable text;
	// the user still gets pointers to them.
	return &domain.Answer{Text: noInformationAnswer, Sources: state.Acquisition.References}, nil
}

func (u *AskUseCase) failAnswer(state *domain.WorkflowState, started time.Time, err error) (*domain.Answer, error) {
	state.AnswerStatus = domain.StageError
	state.FailedStage = domain.StageAnswer
	u.observeStage(domain.StageAnswer, domain.StageError, started)
	return nil, err
}

// chunkSources deduplicates citation targets from the answer's chunks and
// appends the acquired reference list, so every answer points at the
// documents fetched for the lane.
func chunkSources(chunks []domain.RetrievedChunk, acquired []domain.SourceRef) []domain.SourceRef {
	seen := make(map[string]struct{})
	var out []domain.SourceRef
	for _, chunk := range chunks {
		ref := domain.SourceRef{Title: chunk.Title, URL: chunk.OriginURL}
		key := sourceKey(ref)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	return mergeRefs(out, acquired)
}

// sourceKey prefers the URL, so the same document cited via a chunk and via
// the acquisition reference list collapses to one entry.
func sourceKey(ref domain.SourceRef) string {
	if ref.URL != "" {
		return ref.URL
	}
	return ref.Title
}

// mergeRefs appends the extra references that are not already cited.
func mergeRefs(primary, extra []domain.SourceRef) []domain.SourceRef {
	seen := make(map[string]struct{}, len(primary))
	for _, ref := range primary {
		seen[sourceKey(ref)] = struct{}{}
	}
	out := primary
	for _, ref := range extra {
		key := sourceKey(ref)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func (u *AskUseCase) publish(ctx context.Context, state *domain.WorkflowState, log *slog.Logger) {
	if u.publisher == nil {
		return
	}
	record := domain.RunRecord{
		ID:                  state.RunID,
		Question:            state.UserQuery,
		ExtractionStatus:    string(state.ExtractionStatus),
		AcquisitionStatus:   string(state.AcquisitionStatus),
		DocumentsWritten:    state.Acquisition.DocumentsWritten,
		FallbackUsed:        state.FallbackUsed,
		RetrievedChunkCount: state.RetrievedChunkCount,
		FailedStage:         string(state.FailedStage),
		AnswerPreview:       truncate(state.FinalAnswer, answerPreviewLimit),
		DurationMS:          u.now().Sub(state.StartedAt).Milliseconds(),
		CreatedAt:           u.now(),
	}
	if err := u.publisher.PublishRunCompleted(ctx, record); err != nil {
		// Audit is best effort; the user already has their answer.
		log.Warn("run record publish failed", "error", err)
	}
}

func (u *AskUseCase) observeStage(stage domain.Stage, status domain.StageStatus, started time.Time) {
	if u.observer == nil {
		return
	}
	u.observer.ObserveStage(string(stage), string(status), u.now().Sub(started))
}

func (u *AskUseCase) observeAnswer(branch string, chunks int) {
	if u.observer == nil {
		return
	}
	u.observer.ObserveAnswer(branch, chunks)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
