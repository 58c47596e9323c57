package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// Classification is the canonical reading of one RetrieveResult call.
type Classification struct {
	Outcome valueobject.GatewayOutcome
	// Recheck asks the caller to re-read the stored transaction before
	// acting. The gateway no longer knows the token, which usually means
	// the other channel already consumed it.
	Recheck bool
	// Unrecognized marks a result that matched no rule. The outcome is
	// waiting and the raw payload should be logged.
	Unrecognized bool
}

// ClassifyCheckoutResult turns a gateway result, or the error returned
// instead of it, into a canonical outcome. The rules apply in order:
//
//	status=failure                          -> failed
//	status=success, paymentStatus=SUCCESS   -> completed
//	status=success, paymentStatus=FAILURE|"" -> waiting (challenge in flight)
//	token unknown or expired                -> waiting, recheck stored status
//	anything else                           -> waiting, unrecognized
//
// An unavailable gateway is not an outcome: the error is returned so the
// caller retries without touching the transaction.
func ClassifyCheckoutResult(result port.CheckoutResult, err error) (Classification, error) {
	if err != nil {
		return classifyError(err)
	}

	gatewayStatus := strings.ToLower(strings.TrimSpace(result.GatewayStatus))
	paymentStatus := strings.ToUpper(strings.TrimSpace(result.PaymentStatus))

	switch {
	case gatewayStatus == port.GatewayStatusFailure:
		return Classification{Outcome: failedOutcome(result.ErrorMessage)}, nil
	case gatewayStatus == port.GatewayStatusSuccess && paymentStatus == port.PaymentStatusSuccess:
		return Classification{Outcome: valueobject.OutcomeCompleted{
			PaymentID: result.PaymentID,
			PaidPrice: result.PaidPrice,
		}}, nil
	case gatewayStatus == port.GatewayStatusSuccess && (paymentStatus == port.PaymentStatusFailure || paymentStatus == ""):
		return Classification{Outcome: valueobject.OutcomeWaiting{Reason: "3-D Secure challenge in progress"}}, nil
	}

	return Classification{
		Outcome:      valueobject.OutcomeWaiting{Reason: "unrecognized gateway result"},
		Unrecognized: true,
	}, nil
}

func classifyError(err error) (Classification, error) {
	switch {
	case errors.Is(err, model.ErrGatewayUnavailable):
		return Classification{}, err
	case errors.Is(err, model.ErrInvalidOrExpiredToken):
		return Classification{
			Outcome: valueobject.OutcomeWaiting{Reason: "gateway token not found"},
			Recheck: true,
		}, nil
	case errors.Is(err, model.ErrPaymentFailed):
		var gwErr *port.GatewayError
		if errors.As(err, &gwErr) {
			return Classification{Outcome: failedOutcome(gwErr.Message)}, nil
		}
		return Classification{Outcome: failedOutcome(err.Error())}, nil
	}
	// An error the gateway client could not type is transport trouble as
	// far as the transaction is concerned.
	return Classification{}, fmt.Errorf("%w: %v", model.ErrGatewayUnavailable, err)
}

func failedOutcome(message string) valueobject.OutcomeFailed {
	kind := valueobject.ErrorKindPaymentFailed
	if isThreeDSFailure(message) {
		kind = valueobject.ErrorKindThreeDSFailed
	}
	if message == "" {
		message = "gateway reported failure"
	}
	return valueobject.OutcomeFailed{Kind: kind, Detail: message}
}
