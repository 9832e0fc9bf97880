package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// countryTable maps lowercase country names to their canonical display names.
type countryTable struct {
	byName map[string]string
}

// loadCountries reads the countries CSV. The header row is located by column
// name so column order in the source file does not matter.
func loadCountries(path string) (*countryTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open countries file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read countries header: %w", err)
	}
	nameCol := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "Country Name") {
			nameCol = i
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("countries file %s has no Country Name column", path)
	}

	t := &countryTable{byName: make(map[string]string)}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read countries row: %w", err)
		}
		if nameCol >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}
		t.byName[strings.ToLower(name)] = name
	}
	return t, nil
}

func (t *countryTable) canonical(name string) (string, bool) {
	canon, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return canon, ok
}
