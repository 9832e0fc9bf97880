package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
)

type fakeExtractor struct {
	fields domain.ExtractedFields
	err    error
	calls  int
}

func (f *fakeExtractor) ExtractTradeInfo(context.Context, string) (domain.ExtractedFields, error) {
	f.calls++
	return f.fields, f.err
}

type fakeRefs struct{}

func (fakeRefs) CanonicalCountry(name string) (string, bool) {
	known := map[string]string{"japan": "Japan", "canada": "Canada", "usa": "USA", "mexico": "Mexico"}
	canon, ok := known[strings.ToLower(name)]
	return canon, ok
}

func (fakeRefs) RepresentativeMember(name string, role domain.TradeRole) (string, bool) {
	if strings.ToLower(name) != "usmca" {
		return "", false
	}
	if role == domain.RoleExporter {
		return "USA", true
	}
	return "Mexico", true
}

func (fakeRefs) FindHSCode(product string) string {
	if strings.Contains(strings.ToLower(product), "car") {
		return "8703"
	}
	return ""
}

type fakeAcquirer struct {
	result domain.AcquisitionResult
	err    error
	calls  int
}

func (f *fakeAcquirer) Acquire(context.Context, string, string, string) (domain.AcquisitionResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeLoader struct {
	chunks []domain.DocumentChunk
	err    error
}

func (f *fakeLoader) Load(context.Context, string) ([]domain.DocumentChunk, error) {
	return f.chunks, f.err
}

type fakeProvider struct {
	ensureCalls int
	ensureErr   error
	retriever   ports.Retriever
	retrieverErr error
}

func (f *fakeProvider) Ensure(context.Context, []domain.DocumentChunk) error {
	f.ensureCalls++
	return f.ensureErr
}

func (f *fakeProvider) Retriever() (ports.Retriever, error) {
	return f.retriever, f.retrieverErr
}

type fakeRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (f *fakeRetriever) Search(context.Context, string, int) ([]domain.RetrievedChunk, error) {
	return f.chunks, f.err
}

type fakeSynthesizer struct {
	answer         string
	fallbackAnswer string
	err            error
	fallbackCalls  int
	answerCalls    int
}

func (f *fakeSynthesizer) SynthesizeAnswer(context.Context, string, []domain.RetrievedChunk) (string, error) {
	f.answerCalls++
	return f.answer, f.err
}

func (f *fakeSynthesizer) SynthesizeFallback(context.Context, string, domain.TariffRecord) (string, error) {
	f.fallbackCalls++
	return f.fallbackAnswer, f.err
}

type fakeFallbackStore struct {
	record *domain.TariffRecord
	err    error
}

func (f *fakeFallbackStore) LoadTariffRecord(context.Context) (*domain.TariffRecord, error) {
	return f.record, f.err
}

type fakePublisher struct {
	records []domain.RunRecord
}

func (f *fakePublisher) PublishRunCompleted(_ context.Context, record domain.RunRecord) error {
	f.records = append(f.records, record)
	return nil
}

type fixture struct {
	extractor *fakeExtractor
	acquirer  *fakeAcquirer
	loader    *fakeLoader
	provider  *fakeProvider
	synth     *fakeSynthesizer
	fallback  *fakeFallbackStore
	publisher *fakePublisher
	uc        *AskUseCase
}

func newFixture() *fixture {
	f := &fixture{
		extractor: &fakeExtractor{fields: domain.ExtractedFields{
			Exporter: "Japan", Importer: "Canada", ProductName: "passenger cars",
			Status: domain.ExtractionComplete,
		}},
		acquirer:  &fakeAcquirer{result: domain.AcquisitionResult{DocumentsWritten: true}},
		loader:    &fakeLoader{chunks: []domain.DocumentChunk{{Content: "rule text", Title: "cptpp"}}},
		provider:  &fakeProvider{},
		synth:     &fakeSynthesizer{answer: "grounded answer", fallbackAnswer: "fallback answer"},
		fallback:  &fakeFallbackStore{},
		publisher: &fakePublisher{},
	}
	f.provider.retriever = &fakeRetriever{chunks: []domain.RetrievedChunk{{
		DocumentChunk: domain.DocumentChunk{Content: "rule text", Title: "cptpp", OriginURL: "https://example.org/cptpp.pdf"},
		Score:         0.8,
	}}}
	cfg := AskConfig{
		CorpusDir:        "/tmp/corpus",
		RetrieverK:       6,
		ExtractTimeout:   time.Second,
		AcquireTimeout:   time.Second,
		RefreshTimeout:   time.Second,
		SynthesisTimeout: time.Second,
	}
	f.uc = NewAskUseCase(cfg, f.extractor, fakeRefs{}, f.acquirer, f.loader, f.provider, f.synth, f.fallback, f.publisher, nil)
	return f
}

func TestAskAnswersFromRetrievedDocuments(t *testing.T) {
	f := newFixture()

	answer, err := f.uc.Ask(context.Background(), "What is the duty on cars from Japan to Canada?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "grounded answer" {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].URL != "https://example.org/cptpp.pdf" {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
	if f.acquirer.calls != 1 || f.provider.ensureCalls != 1 {
		t.Fatalf("expected one acquire and one ensure, got %d/%d", f.acquirer.calls, f.provider.ensureCalls)
	}
	if f.synth.fallbackCalls != 0 {
		t.Fatalf("fallback synthesis should not run on the retrieval branch")
	}

	if len(f.publisher.records) != 1 {
		t.Fatalf("expected one published run record, got %d", len(f.publisher.records))
	}
	record := f.publisher.records[0]
	if record.RetrievedChunkCount != 1 || record.FallbackUsed || record.FailedStage != "" {
		t.Fatalf("unexpected run record: %+v", record)
	}
}

func TestAskRejectsInsufficientQuestionsWithoutAcquiring(t *testing.T) {
	f := newFixture()
	f.extractor.fields = domain.ExtractedFields{ProductName: "something"}

	_, err := f.uc.Ask(context.Background(), "what is the tariff?")
	if !domain.IsKind(err, domain.ErrInsufficientInput) {
		t.Fatalf("expected insufficient input error, got %v", err)
	}
	if f.acquirer.calls != 0 {
		t.Fatalf("acquisition must be skipped on insufficient input")
	}
	if f.provider.ensureCalls != 0 {
		t.Fatalf("index refresh must be skipped on insufficient input")
	}

	if len(f.publisher.records) != 1 {
		t.Fatalf("insufficient runs must still be audited")
	}
	if got := f.publisher.records[0].ExtractionStatus; got != string(domain.StageEmptyResult) {
		t.Fatalf("unexpected extraction status in record: %q", got)
	}
}

func TestAskUsesTariffFallbackWhenCorpusIsEmpty(t *testing.T) {
	f := newFixture()
	f.acquirer.result = domain.AcquisitionResult{FallbackRecordWritten: true}
	f.loader.chunks = nil
	f.fallback.record = &domain.TariffRecord{
		Exporter: "Japan", Importer: "Canada", HSCode: "8703",
		MFNDuty: "6.1%", SourceURL: "https://tariffs.example.org/jpn-can-8703",
	}

	answer, err := f.uc.Ask(context.Background(), "duty on cars from Japan to Canada")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "fallback answer" {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
	if f.synth.answerCalls != 0 || f.synth.fallbackCalls != 1 {
		t.Fatalf("expected fallback synthesis only, got answer=%d fallback=%d", f.synth.answerCalls, f.synth.fallbackCalls)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].URL != "https://tariffs.example.org/jpn-can-8703" {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
	if !f.publisher.records[0].FallbackUsed {
		t.Fatalf("fallback use must be recorded in the audit row")
	}
}

func TestAskReturnsGuidanceWhenNothingExistsForLane(t *testing.T) {
	f := newFixture()
	f.acquirer.result = domain.AcquisitionResult{}
	f.loader.chunks = nil
	f.fallback.record = nil

	answer, err := f.uc.Ask(context.Background(), "duty on cars from Japan to Canada")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != noInformationAnswer {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
	if f.synth.answerCalls != 0 && f.synth.fallbackCalls != 0 {
		t.Fatalf("no synthesis should run when nothing was found")
	}
}

func TestAskNothingFoundAnswerKeepsAcquiredReferences(t *testing.T) {
	// Downloads succeeded but no PDF yielded usable text: zero chunks, no
	// tariff record. The guidance answer must still cite the fetched files.
	f := newFixture()
	f.acquirer.result = domain.AcquisitionResult{
		DocumentsWritten: true,
		References:       []domain.SourceRef{{Title: "cptpp", URL: "https://rules.example.org/cptpp.pdf"}},
	}
	f.loader.chunks = nil
	f.fallback.record = nil

	answer, err := f.uc.Ask(context.Background(), "duty on cars from Japan to Canada")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != noInformationAnswer {
		t.Fatalf("unexpected answer: %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].URL != "https://rules.example.org/cptpp.pdf" {
		t.Fatalf("acquired references missing from sources: %+v", answer.Sources)
	}
}

func TestAskFallbackAnswerKeepsAcquiredReferences(t *testing.T) {
	f := newFixture()
	f.acquirer.result = domain.AcquisitionResult{
		DocumentsWritten: true,
		References:       []domain.SourceRef{{Title: "cptpp", URL: "https://rules.example.org/cptpp.pdf"}},
	}
	f.loader.chunks = nil
	f.fallback.record = &domain.TariffRecord{
		Exporter: "Japan", Importer: "Canada", HSCode: "8703",
		MFNDuty: "6.1%", SourceURL: "https://tariffs.example.org/jpn-can-8703",
	}

	answer, err := f.uc.Ask(context.Background(), "duty on cars from Japan to Canada")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected tariff source plus acquired reference, got %+v", answer.Sources)
	}
	if answer.Sources[0].URL != "https://tariffs.example.org/jpn-can-8703" ||
		answer.Sources[1].URL != "https://rules.example.org/cptpp.pdf" {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
}

func TestAskPropagatesAcquisitionFailure(t *testing.T) {
	f := newFixture()
	f.acquirer.err = domain.WrapError(domain.ErrAcquisition, "acquire documents", errors.New("portal unreachable"))

	_, err := f.uc.Ask(context.Background(), "duty on cars from Japan to Canada")
	if !domain.IsKind(err, domain.ErrAcquisition) {
		t.Fatalf("expected acquisition error, got %v", err)
	}
	if f.provider.ensureCalls != 0 {
		t.Fatalf("refresh must not run after acquisition failure")
	}
	if got := f.publisher.records[0].FailedStage; got != string(domain.StageAcquire) {
		t.Fatalf("unexpected failed stage: %q", got)
	}
}

func TestAskFallsBackWhenRetrievalIsEmpty(t *testing.T) {
	f := newFixture()
	f.provider.retriever = &fakeRetriever{}
	f.fallback.record = &domain.TariffRecord{Exporter: "Japan", Importer: "Canada", MFNDuty: "6.1%"}

	answer, err := f.uc.Ask(context.Background(), "duty on cars from Japan to Canada")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "fallback answer" {
		t.Fatalf("expected fallback answer, got %q", answer.Text)
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Ask(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInsufficientInput) {
		t.Fatalf("expected insufficient input error, got %v", err)
	}
	if f.extractor.calls != 0 {
		t.Fatalf("extraction must not run for an empty question")
	}
}
