package rulesoforigin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/infrastructure/resilience"
)

type Config struct {
	// CompareURL is the rules-of-origin comparison page.
	CompareURL string
	// CorpusDir receives the downloaded agreement PDFs.
	CorpusDir string
	// ReferencesPath maps downloaded filenames to their origin URLs.
	ReferencesPath string
	// StatePath remembers the last acquired trade lane.
	StatePath string
	// FallbackRecordPath stores the tariff record for lanes with no agreement.
	FallbackRecordPath string
	// TariffAPIURL is the standard-tariff endpoint template.
	TariffAPIURL string
	Headless     bool
	DownloadRPS  float64
}

// Agent acquires source documents for one trade lane: agreement PDFs from the
// rules-of-origin portal when a preferential agreement exists, a structured
// tariff record otherwise. The last acquired lane is remembered on disk, so
// repeating a question does not launch a browser again.
type Agent struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor

	// render is swapped out in tests to avoid driving a real browser.
	render func(ctx context.Context, compareURL, exporter, importer, product string, headless bool) (string, error)
}

func NewAgent(cfg Config, executor *resilience.Executor) *Agent {
	rps := cfg.DownloadRPS
	if rps <= 0 {
		rps = 1
	}
	return &Agent{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		executor:   executor,
		render:     renderComparePage,
	}
}

func (a *Agent) Acquire(ctx context.Context, exporter, importer, product string) (domain.AcquisitionResult, error) {
	key := acquisitionKey(exporter, importer, product)

	if a.loadStateKey() == key {
		if refs := a.loadReferences(); len(refs) > 0 && corpusPopulated(a.cfg.CorpusDir) {
			slog.Info("acquisition reused", "lane", key)
			return domain.AcquisitionResult{DocumentsWritten: true, Reused: true, References: refs}, nil
		}
		if fileExists(a.cfg.FallbackRecordPath) {
			slog.Info("acquisition reused via fallback record", "lane", key)
			return domain.AcquisitionResult{FallbackRecordWritten: true, Reused: true}, nil
		}
	}

	a.cleanPreviousLane()

	html, renderErr := a.render(ctx, a.cfg.CompareURL, exporter, importer, product, a.cfg.Headless)
	var links []documentLink
	if renderErr != nil {
		slog.Warn("compare page render failed, trying tariff fallback", "error", renderErr)
	} else {
		var err error
		links, err = extractPDFLinks(html, a.cfg.CompareURL)
		if err != nil {
			slog.Warn("results parsing failed, trying tariff fallback", "error", err)
		}
	}

	if len(links) == 0 {
		record, err := a.fetchTariffRecord(ctx, exporter, importer, product)
		if err != nil {
			if renderErr != nil {
				return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "acquire documents",
					fmt.Errorf("render failed (%v) and tariff fallback failed: %w", renderErr, err))
			}
			return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "acquire documents", err)
		}
		if err := writeJSONFile(a.cfg.FallbackRecordPath, record); err != nil {
			return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "persist tariff record", err)
		}
		if err := a.saveStateKey(key); err != nil {
			return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "persist acquisition state", err)
		}
		slog.Info("no agreement documents for lane, tariff record stored", "lane", key)
		return domain.AcquisitionResult{FallbackRecordWritten: true}, nil
	}

	references, err := a.downloadDocuments(ctx, links)
	if err != nil {
		return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "download documents", err)
	}
	if err := a.saveReferences(references); err != nil {
		return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "persist references", err)
	}
	if err := a.saveStateKey(key); err != nil {
		return domain.AcquisitionResult{}, domain.WrapError(domain.ErrAcquisition, "persist acquisition state", err)
	}

	slog.Info("agreement documents acquired", "lane", key, "documents", len(references))
	return domain.AcquisitionResult{DocumentsWritten: true, References: referenceList(references)}, nil
}

// downloadDocuments fetches each linked PDF under the rate limit. A single
// broken link is skipped; all links failing is an acquisition failure.
func (a *Agent) downloadDocuments(ctx context.Context, links []documentLink) (map[string]string, error) {
	if err := os.MkdirAll(a.cfg.CorpusDir, 0o755); err != nil {
		return nil, err
	}

	references := make(map[string]string)
	for i, link := range links {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		name := fileNameForLink(link, i)
		if err := a.downloadFile(ctx, link.URL, filepath.Join(a.cfg.CorpusDir, name)); err != nil {
			slog.Warn("document download failed", "url", link.URL, "error", err)
			continue
		}
		references[name] = link.URL
	}
	if len(references) == 0 {
		return nil, fmt.Errorf("all %d document downloads failed", len(links))
	}
	return references, nil
}

func (a *Agent) downloadFile(ctx context.Context, rawURL, dest string) error {
	return a.executor.Execute(ctx, "document.download", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("download status %s", resp.Status)
		}

		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			_ = f.Close()
			_ = os.Remove(dest)
			return err
		}
		return f.Close()
	}, classifyAcquisitionError)
}

// cleanPreviousLane removes artifacts of the previously acquired lane: the
// downloaded PDFs named in the reference map, the map itself, the fallback
// record and the state key. Documents dropped into the corpus by hand are
// not touched.
func (a *Agent) cleanPreviousLane() {
	for name := range a.loadReferenceMap() {
		_ = os.Remove(filepath.Join(a.cfg.CorpusDir, name))
	}
	_ = os.Remove(a.cfg.ReferencesPath)
	_ = os.Remove(a.cfg.FallbackRecordPath)
	_ = os.Remove(a.cfg.StatePath)
}

func (a *Agent) saveReferences(references map[string]string) error {
	return writeJSONFile(a.cfg.ReferencesPath, references)
}

func (a *Agent) loadReferenceMap() map[string]string {
	data, err := os.ReadFile(a.cfg.ReferencesPath)
	if err != nil {
		return nil
	}
	out := make(map[string]string)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func (a *Agent) loadReferences() []domain.SourceRef {
	return referenceList(a.loadReferenceMap())
}

func referenceList(references map[string]string) []domain.SourceRef {
	if len(references) == 0 {
		return nil
	}
	names := make([]string, 0, len(references))
	for name := range references {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.SourceRef, 0, len(names))
	for _, name := range names {
		out = append(out, domain.SourceRef{
			Title: strings.TrimSuffix(name, filepath.Ext(name)),
			URL:   references[name],
		})
	}
	return out
}

func (a *Agent) saveStateKey(key string) error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.StatePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(a.cfg.StatePath, []byte(key), 0o644)
}

func (a *Agent) loadStateKey() string {
	data, err := os.ReadFile(a.cfg.StatePath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func acquisitionKey(exporter, importer, product string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(exporter) + "|" + norm(importer) + "|" + norm(product)
}

func corpusPopulated(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
