package rulesoforigin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// fetchTariffRecord queries the standard-tariff API for a lane with no
// preferential agreement. The endpoint template takes exporter, importer and
// HS code as %s placeholders.
func (a *Agent) fetchTariffRecord(ctx context.Context, exporter, importer, product string) (*domain.TariffRecord, error) {
	endpoint := fmt.Sprintf(a.cfg.TariffAPIURL,
		url.QueryEscape(exporter), url.QueryEscape(importer), url.QueryEscape(product))

	var payload struct {
		MFNDuty     string `json:"mfn_duty"`
		AppliedDuty string `json:"applied_duty"`
		Notes       string `json:"notes"`
		SourceURL   string `json:"source_url"`
	}
	err := a.executor.Execute(ctx, "tariff.fallback", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("tariff api status %s: %s", resp.Status, strings.TrimSpace(string(body)))
		}
		return json.NewDecoder(resp.Body).Decode(&payload)
	}, classifyAcquisitionError)
	if err != nil {
		return nil, fmt.Errorf("fetch tariff record: %w", err)
	}
	if strings.TrimSpace(payload.MFNDuty) == "" {
		return nil, fmt.Errorf("tariff api returned no duty for %s to %s", exporter, importer)
	}

	return &domain.TariffRecord{
		Exporter:    exporter,
		Importer:    importer,
		HSCode:      product,
		MFNDuty:     payload.MFNDuty,
		AppliedDuty: payload.AppliedDuty,
		Notes:       payload.Notes,
		SourceURL:   payload.SourceURL,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
