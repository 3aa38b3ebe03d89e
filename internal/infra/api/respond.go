package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps pipeline errors to a status and a machine-readable code. Unknown errors
// never leak their text to the client.
func errorStatus(err error) (int, errorBody) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, errorBody{"invalid_input", "request is missing or has invalid fields"}
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest, errorBody{"unknown_provider", "payment provider is not supported"}
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, errorBody{"order_not_found", "order not found"}
	case errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusNotFound, errorBody{"plan_not_found", "plan not found"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{"not_found", "not found"}
	case errors.Is(err, domain.ErrVerificationMismatch):
		return http.StatusConflict, errorBody{"verification_mismatch", "payment could not be verified for this order"}
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway, errorBody{"provider_unavailable", "payment provider is unavailable, try again shortly"}
	case errors.Is(err, domain.ErrAlreadyUsed):
		return http.StatusConflict, errorBody{"already_used", "voucher already used"}
	default:
		return http.StatusInternalServerError, errorBody{"internal_error", "internal error"}
	}
}

// denialStatus maps security-gate denials to HTTP statuses.
func denialStatus(r model.DenialReason) int {
	switch r {
	case model.DenialIPBlocked, model.DenialDisabled:
		return http.StatusForbidden
	case model.DenialRateLimited:
		return http.StatusTooManyRequests
	case model.DenialInvalidCode:
		return http.StatusUnauthorized
	case model.DenialAlreadyUsed, model.DenialActiveSession:
		return http.StatusConflict
	case model.DenialExpired:
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}

func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
}
