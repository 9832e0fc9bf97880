package rulesoforigin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// RecordStore reads the persisted fallback tariff record. Absence is a
// normal state, not an error: it means the current lane has agreement
// documents instead.
type RecordStore struct {
	path string
}

func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path}
}

func (s *RecordStore) LoadTariffRecord(_ context.Context) (*domain.TariffRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tariff record: %w", err)
	}
	var record domain.TariffRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse tariff record %s: %w", s.path, err)
	}
	return &record, nil
}
