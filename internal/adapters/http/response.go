package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrHoldNotFound):
		return http.StatusNotFound, "hold_not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid_pool_configuration"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict"
	case errors.Is(err, domain.ErrDuplicateContribution):
		return http.StatusConflict, "duplicate_contribution"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusUnprocessableEntity, "amount_mismatch"
	case errors.Is(err, domain.ErrPoolNotActive):
		return http.StatusUnprocessableEntity, "pool_not_active"
	case errors.Is(err, domain.ErrRoundClosed):
		return http.StatusUnprocessableEntity, "round_closed"
	case errors.Is(err, domain.ErrRoundHalted):
		return http.StatusConflict, "round_halted"
	case errors.Is(err, domain.ErrHoldExpired):
		return http.StatusUnprocessableEntity, "hold_expired"
	case errors.Is(err, domain.ErrHoldNotCapturable):
		return http.StatusUnprocessableEntity, "hold_not_capturable"
	case errors.Is(err, domain.ErrNoPayoutMethodConfigured):
		return http.StatusUnprocessableEntity, "no_payout_method"
	case errors.Is(err, domain.ErrGatewayAuthorizationFailed):
		return http.StatusBadGateway, "gateway_authorization_failed"
	case errors.Is(err, domain.ErrPayoutDeliveryFailed):
		return http.StatusBadGateway, "payout_delivery_failed"
	case errors.Is(err, domain.ErrRequiresReconciliation):
		return http.StatusConflict, "requires_reconciliation"
	case errors.Is(err, domain.ErrLockUnavailable):
		return http.StatusServiceUnavailable, "lock_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
