package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/infrastructure/chunking"
)

// Loader turns the corpus directory into document chunks. PDF pages are
// extracted with page numbers preserved; plain-text files are read whole.
// Origin URLs come from the reference-mapping file the acquisition agent
// writes next to the corpus.
type Loader struct {
	splitter       *chunking.Splitter
	referencesPath string
}

func NewLoader(splitter *chunking.Splitter, referencesPath string) *Loader {
	return &Loader{
		splitter:       splitter,
		referencesPath: referencesPath,
	}
}

func (l *Loader) Load(ctx context.Context, dir string) ([]domain.DocumentChunk, error) {
	paths := eligibleFiles(dir)
	if len(paths) == 0 {
		return nil, nil
	}

	origins := l.loadOrigins()

	var chunks []domain.DocumentChunk
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		full := filepath.Join(dir, rel)
		title := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		origin := origins[filepath.Base(rel)]

		pages, err := l.extractPages(full)
		if err != nil {
			// One broken download must not take the whole corpus offline.
			slog.Warn("skipping unreadable corpus file", "path", rel, "error", err)
			continue
		}

		for _, page := range pages {
			for _, piece := range l.splitter.Split(cleanText(page.text)) {
				chunks = append(chunks, domain.DocumentChunk{
					Content:   piece,
					SourceID:  rel,
					Page:      page.number,
					Title:     title,
					OriginURL: origin,
				})
			}
		}
	}
	return chunks, nil
}

type pageText struct {
	number int
	text   string
}

func (l *Loader) extractPages(path string) ([]pageText, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []pageText{{number: 0, text: string(data)}}, nil
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []pageText
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("pdf page extraction failed", "path", path, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, pageText{number: i, text: text})
	}
	return pages, nil
}

// loadOrigins reads the filename -> origin URL mapping. Absence is normal
// (manually dropped documents have no origin).
func (l *Loader) loadOrigins() map[string]string {
	if l.referencesPath == "" {
		return nil
	}
	data, err := os.ReadFile(l.referencesPath)
	if err != nil {
		return nil
	}
	origins := make(map[string]string)
	if err := json.Unmarshal(data, &origins); err != nil {
		slog.Warn("malformed reference mapping file", "path", l.referencesPath, "error", err)
		return nil
	}
	return origins
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}
