package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a use case error to an HTTP status and a message safe to
// show the client.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest),
		errors.Is(err, usecase.ErrMalformedCallback),
		errors.Is(err, model.ErrInvalidRefundAmount):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrTransactionNotFound),
		errors.Is(err, model.ErrBookingNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, model.ErrAlreadyPaid):
		return http.StatusConflict, "already paid"
	case errors.Is(err, model.ErrEventFull):
		return http.StatusConflict, "event is full"
	case errors.Is(err, model.ErrActiveTransactionExists):
		return http.StatusConflict, "a payment for this booking is already in progress"
	case errors.Is(err, model.ErrRefundInProgress),
		errors.Is(err, model.ErrConcurrentModification):
		return http.StatusConflict, "a refund is already in progress"
	case errors.Is(err, model.ErrNotRefundable),
		errors.Is(err, model.ErrInvalidStatusTransition):
		return http.StatusConflict, "operation not allowed in the current state"
	case errors.Is(err, model.ErrPaymentFailed):
		return http.StatusUnprocessableEntity, "the payment provider rejected the request"
	case errors.Is(err, model.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "payment provider unavailable, please retry"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	code, msg := errorStatus(err)
	if code >= http.StatusInternalServerError {
		logger.Error("handler error", "op", op, "error", err)
	} else {
		logger.Debug("request rejected", "op", op, "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: msg})
}
