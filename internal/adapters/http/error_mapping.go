package httpadapter

import (
	"net/http"

	"github.com/kirillkom/intendex/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrIntentNotFound), domain.IsKind(err, domain.ErrMatchNotFound),
		domain.IsKind(err, domain.ErrCampaignNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrMatchAlreadyProcessed), domain.IsKind(err, domain.ErrBudgetExhausted):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is a stable machine-readable tag clients can switch on.
func errorCode(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrUnauthorized):
		return "unauthorized"
	case domain.IsKind(err, domain.ErrIntentNotFound):
		return "intent_not_found"
	case domain.IsKind(err, domain.ErrMatchNotFound):
		return "match_not_found"
	case domain.IsKind(err, domain.ErrCampaignNotFound):
		return "campaign_not_found"
	case domain.IsKind(err, domain.ErrMatchAlreadyProcessed):
		return "match_already_processed"
	case domain.IsKind(err, domain.ErrBudgetExhausted):
		return "budget_exhausted"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporarily_unavailable"
	default:
		return "internal"
	}
}
