package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type hsEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// hsCatalog is the flat HS nomenclature dump. Lookup is a case-insensitive
// substring scan over descriptions, first match wins, mirroring how the
// catalog is ordered from general headings to specific subheadings.
type hsCatalog struct {
	entries []hsEntry
}

func loadHSCatalog(path string) (*hsCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open hs catalog: %w", err)
	}
	var entries []hsEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse hs catalog %s: %w", path, err)
	}
	return &hsCatalog{entries: entries}, nil
}

func (c *hsCatalog) find(product string) string {
	needle := strings.ToLower(strings.TrimSpace(product))
	if needle == "" {
		return ""
	}
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Description), needle) {
			return e.ID
		}
	}
	return ""
}
