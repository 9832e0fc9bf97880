package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// hashBlockSize keeps memory flat while hashing large PDFs.
const hashBlockSize = 32 * 1024

var eligibleExtensions = map[string]struct{}{
	".pdf": {},
	".txt": {},
	".md":  {},
}

// Signature computes a deterministic fingerprint over the corpus directory:
// a single SHA-256 over every eligible file's relative path followed by its
// streamed content, files visited in byte-wise relative-path order. A missing
// or empty directory yields the digest of the empty byte sequence, which is a
// normal first-run state rather than an error.
//
// A file that turns unreadable mid-scan contributes its path but not its
// content, so the digest still differs from a fully-successful run and the
// cache rebuilds rather than silently reusing a stale index.
func Signature(dir string) string {
	h := sha256.New()

	paths := eligibleFiles(dir)
	if len(paths) == 0 {
		return hex.EncodeToString(h.Sum(nil))
	}

	buf := make([]byte, hashBlockSize)
	for _, rel := range paths {
		h.Write([]byte(rel))

		f, err := os.Open(filepath.Join(dir, rel))
		if err != nil {
			slog.Warn("corpus file unreadable, hashing path only", "path", rel, "error", err)
			continue
		}
		if _, err := io.CopyBuffer(h, f, buf); err != nil {
			slog.Warn("corpus file read failed mid-stream", "path", rel, "error", err)
		}
		_ = f.Close()
	}

	return hex.EncodeToString(h.Sum(nil))
}

func eligibleFiles(dir string) []string {
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ok := eligibleExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(paths)
	return paths
}

// SaveSignature persists the digest after a successful (re)build. The write
// must happen only after both index artifacts are durable.
func SaveSignature(path, signature string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(signature), 0o644)
}

// LoadSignature returns the last persisted digest, or the empty string when
// none exists yet.
func LoadSignature(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
