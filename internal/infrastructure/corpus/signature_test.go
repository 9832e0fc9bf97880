package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSignatureIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "alpha")
	writeFile(t, dir, "b.txt", "beta")

	first := Signature(dir)
	second := Signature(dir)
	if first != second {
		t.Fatalf("signature not deterministic: %s != %s", first, second)
	}
}

func TestSignatureChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "alpha")
	before := Signature(dir)

	writeFile(t, dir, "a.pdf", "alpha v2")
	after := Signature(dir)
	if before == after {
		t.Fatalf("content change did not change signature")
	}
}

func TestSignatureChangesWithRename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "alpha")
	before := Signature(dir)

	if err := os.Rename(filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")); err != nil {
		t.Fatalf("rename: %v", err)
	}
	after := Signature(dir)
	if before == after {
		t.Fatalf("rename did not change signature")
	}
}

func TestSignatureIgnoresIneligibleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "alpha")
	before := Signature(dir)

	writeFile(t, dir, "notes.tmp", "scratch")
	after := Signature(dir)
	if before != after {
		t.Fatalf("ineligible file changed signature")
	}
}

func TestSignatureEmptyAndMissingDirAgree(t *testing.T) {
	empty := Signature(t.TempDir())
	missing := Signature(filepath.Join(t.TempDir(), "does-not-exist"))
	if empty != missing {
		t.Fatalf("empty dir %s != missing dir %s", empty, missing)
	}
	if empty == "" {
		t.Fatalf("empty corpus must still produce a digest")
	}
}

func TestSignatureCoversNestedFilesInPathOrder(t *testing.T) {
	dir1 := t.TempDir()
	writeFile(t, dir1, "sub/x.pdf", "x")
	writeFile(t, dir1, "y.pdf", "y")

	dir2 := t.TempDir()
	writeFile(t, dir2, "y.pdf", "y")
	writeFile(t, dir2, "sub/x.pdf", "x")

	if Signature(dir1) != Signature(dir2) {
		t.Fatalf("signature depends on write order, not path order")
	}
}

func TestSaveAndLoadSignatureRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "sig.txt")
	if err := SaveSignature(path, "abc123"); err != nil {
		t.Fatalf("SaveSignature() error = %v", err)
	}
	if got := LoadSignature(path); got != "abc123" {
		t.Fatalf("LoadSignature() = %q", got)
	}
}

func TestLoadSignatureMissingFileIsEmpty(t *testing.T) {
	if got := LoadSignature(filepath.Join(t.TempDir(), "absent.txt")); got != "" {
		t.Fatalf("expected empty signature, got %q", got)
	}
}
