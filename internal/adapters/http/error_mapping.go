package httpadapter

import (
	"net/http"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInsufficientInput):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrConfiguration):
		return http.StatusInternalServerError
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrAcquisition),
		domain.IsKind(err, domain.ErrIndexUnavailable),
		domain.IsKind(err, domain.ErrSynthesis):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage renders a pipeline error as text safe to show the caller.
// Internal detail stays in the logs.
func userMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInsufficientInput):
		return "Please name the exporting country, the importing country, and the product (or its HS code)."
	case domain.IsKind(err, domain.ErrAcquisition):
		return "Could not fetch trade documents for this request. Please try again later."
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return "The document index is not ready yet. Please try again shortly."
	case domain.IsKind(err, domain.ErrSynthesis):
		return "The answer could not be generated. Please try again."
	case domain.IsKind(err, domain.ErrTemporary):
		return "A dependent service is temporarily unavailable. Please retry."
	default:
		return "Internal error."
	}
}
