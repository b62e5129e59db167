package httpx

import (
	"errors"
	"net/http"

	"github.com/posrapor/posrapor/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidBranchSelection):
		Problem(w, http.StatusBadRequest, "Invalid Branch Selection", err.Error())
	case errors.Is(err, shared.ErrReportNotAllowed):
		Problem(w, http.StatusForbidden, "Report Not Allowed", err.Error())
	case errors.Is(err, shared.ErrSubscriptionExpired):
		Problem(w, http.StatusPaymentRequired, "Subscription Expired", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrQueryFailed):
		Problem(w, http.StatusBadGateway, "Branch Unreachable", "branch database did not answer the query")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
