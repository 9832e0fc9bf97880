package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

const extractionSystemPrompt = `You extract structured trade information from user questions about tariffs, customs duties and rules of origin.

Return ONLY a JSON object with exactly these keys:
  "exporter_country": country or trade bloc the goods are shipped FROM, or ""
  "importer_country": country or trade bloc the goods are shipped TO, or ""
  "product_name": the product being traded, or ""
  "product_code": the HS code if the user gave one, digits only, or ""
  "status": one of "complete", "partial_but_usable", "insufficient"

Status rules:
  "complete" when both countries and a product name or code are present.
  "partial_but_usable" when at least one country and a product name or code are present.
  "insufficient" otherwise.

Do not guess missing values. Do not add commentary outside the JSON object.`

// Extractor pulls the exporter, importer and product out of a free-form
// question. Low temperature keeps the JSON shape stable.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) ExtractTradeInfo(ctx context.Context, query string) (domain.ExtractedFields, error) {
	messages := []chatMessage{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: query},
	}
	raw, err := e.client.chat(ctx, "extract", messages, 0.1, 300)
	if err != nil {
		return domain.ExtractedFields{}, err
	}

	var payload struct {
		Exporter    string `json:"exporter_country"`
		Importer    string `json:"importer_country"`
		ProductName string `json:"product_name"`
		ProductCode string `json:"product_code"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("parse extraction json: %w", err)
	}

	fields := domain.ExtractedFields{
		Exporter:    strings.TrimSpace(payload.Exporter),
		Importer:    strings.TrimSpace(payload.Importer),
		ProductName: strings.TrimSpace(payload.ProductName),
		ProductCode: strings.TrimSpace(payload.ProductCode),
		Status:      parseStatus(payload.Status),
	}
	return fields, nil
}

func parseStatus(raw string) domain.ExtractionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "complete":
		return domain.ExtractionComplete
	case "partial_but_usable", "partial_usable", "partial":
		return domain.ExtractionPartialUsable
	default:
		return domain.ExtractionInsufficient
	}
}

// extractJSONObject trims any prose the model wrapped around the object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
