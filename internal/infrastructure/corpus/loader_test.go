package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tradepilot/tradepilot/internal/infrastructure/chunking"
)

func TestLoadSplitsTextFilesWithOrigins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "usmca.txt", "Article 4.2\nOriginating goods qualify for preferential treatment.")

	refsPath := filepath.Join(t.TempDir(), "references.json")
	if err := os.WriteFile(refsPath, []byte(`{"usmca.txt":"https://example.org/usmca.pdf"}`), 0o644); err != nil {
		t.Fatalf("write references: %v", err)
	}

	loader := NewLoader(chunking.NewSplitter(1000, 150), refsPath)
	chunks, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	chunk := chunks[0]
	if chunk.Title != "usmca" || chunk.SourceID != "usmca.txt" {
		t.Fatalf("unexpected chunk identity: %+v", chunk)
	}
	if chunk.OriginURL != "https://example.org/usmca.pdf" {
		t.Fatalf("origin url not resolved: %q", chunk.OriginURL)
	}
	if chunk.Content != "Article 4.2 Originating goods qualify for preferential treatment." {
		t.Fatalf("newlines not normalized: %q", chunk.Content)
	}
}

func TestLoadEmptyDirYieldsNoChunks(t *testing.T) {
	loader := NewLoader(chunking.NewSplitter(1000, 150), "")
	chunks, err := loader.Load(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestLoadSkipsUnreadablePDF(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "this is not a pdf")
	writeFile(t, dir, "good.txt", "readable content")

	loader := NewLoader(chunking.NewSplitter(1000, 150), "")
	chunks, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].SourceID != "good.txt" {
		t.Fatalf("expected only the readable file, got %+v", chunks)
	}
}

func TestLoadMissingReferencesFileIsNormal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.md", "manual document")

	loader := NewLoader(chunking.NewSplitter(1000, 150), filepath.Join(t.TempDir(), "absent.json"))
	chunks, err := loader.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].OriginURL != "" {
		t.Fatalf("expected chunk without origin, got %+v", chunks)
	}
}
