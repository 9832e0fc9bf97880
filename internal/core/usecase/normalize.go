package usecase

import (
	"strings"

	"github.com/tradepilot/tradepilot/internal/core/domain"
	"github.com/tradepilot/tradepilot/internal/core/ports"
)

// NormalizeFields canonicalizes extracted countries against the reference
// tables, substitutes representative members for trade-bloc names, fills a
// missing HS code from the catalog, and recomputes the extraction status
// from what actually survived normalization.
func NormalizeFields(fields domain.ExtractedFields, refs ports.ReferenceData) domain.ExtractedFields {
	out := fields
	out.Exporter = normalizeCountry(fields.Exporter, domain.RoleExporter, refs)
	out.Importer = normalizeCountry(fields.Importer, domain.RoleImporter, refs)

	if strings.TrimSpace(out.ProductCode) == "" && strings.TrimSpace(out.ProductName) != "" {
		out.ProductCode = refs.FindHSCode(out.ProductName)
	}

	out.Status = recomputeStatus(out)
	return out
}

func normalizeCountry(raw string, role domain.TradeRole, refs ports.ReferenceData) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if member, ok := refs.RepresentativeMember(raw, role); ok {
		if canon, found := refs.CanonicalCountry(member); found {
			return canon
		}
		return member
	}
	if canon, ok := refs.CanonicalCountry(raw); ok {
		return canon
	}
	// Unknown to the table: keep the user's wording rather than dropping it.
	return raw
}

// recomputeStatus rederives the status from the normalized fields instead of
// trusting the model's own assessment.
func recomputeStatus(fields domain.ExtractedFields) domain.ExtractionStatus {
	countries := 0
	if fields.Exporter != "" {
		countries++
	}
	if fields.Importer != "" {
		countries++
	}
	hasProduct := fields.ProductOrCode() != ""

	switch {
	case countries == 2 && hasProduct:
		return domain.ExtractionComplete
	case countries >= 1 && hasProduct:
		return domain.ExtractionPartialUsable
	default:
		return domain.ExtractionInsufficient
	}
}
