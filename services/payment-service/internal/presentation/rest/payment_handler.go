package rest

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/auth"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
)

const maxBodyBytes = 1 << 20

// PaymentHandler serves the authenticated payment endpoints.
type PaymentHandler struct {
	checkout *usecase.InitiateCheckout
	check    *usecase.CheckTransaction
	get      *usecase.GetTransaction
	refunds  *usecase.RefundTransaction
	logger   *slog.Logger
}

func NewPaymentHandler(
	checkout *usecase.InitiateCheckout,
	check *usecase.CheckTransaction,
	get *usecase.GetTransaction,
	refunds *usecase.RefundTransaction,
	logger *slog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		checkout: checkout,
		check:    check,
		get:      get,
		refunds:  refunds,
		logger:   logger,
	}
}

type buyerJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type checkoutRequest struct {
	Type      string    `json:"type"`
	RelatedID string    `json:"related_id"`
	Buyer     buyerJSON `json:"buyer"`
}

type checkoutResponse struct {
	TransactionID  string          `json:"transaction_id"`
	BasketID       string          `json:"basket_id"`
	Token          string          `json:"token"`
	PaymentPageURL string          `json:"payment_page_url"`
	Status         string          `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Resumed        bool            `json:"resumed"`
}

type statusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Message       string `json:"message"`
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type refundResponse struct {
	TransactionID  string          `json:"transaction_id"`
	RefundStatus   string          `json:"refund_status"`
	Requested      decimal.Decimal `json:"requested"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
	Message        string          `json:"message"`
}

type transactionJSON struct {
	ID               string           `json:"id"`
	Type             string           `json:"type"`
	Status           string           `json:"status"`
	ClientStatus     string           `json:"client_status"`
	BuyerID          string           `json:"buyer_id"`
	SellerID         string           `json:"seller_id,omitempty"`
	RelatedID        string           `json:"related_id"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	Description      string           `json:"description,omitempty"`
	PaymentPageURL   string           `json:"payment_page_url,omitempty"`
	GatewayPaymentID string           `json:"gateway_payment_id,omitempty"`
	PaidPrice        decimal.Decimal  `json:"paid_price"`
	CommissionRate   *decimal.Decimal `json:"commission_rate,omitempty"`
	CommissionAmount *decimal.Decimal `json:"commission_amount,omitempty"`
	SellerReceives   *decimal.Decimal `json:"seller_receives,omitempty"`
	CompletionSource string           `json:"completion_source"`
	ErrorKind        string           `json:"error_kind,omitempty"`
	EffectsStatus    string           `json:"effects_status,omitempty"`
	RefundStatus     string           `json:"refund_status"`
	RefundedAmount   decimal.Decimal  `json:"refunded_amount"`
	RefundedAt       string           `json:"refunded_at,omitempty"`
	Version          int              `json:"version"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	CompletedAt      string           `json:"completed_at,omitempty"`
}

// Checkout handles POST /api/payments/checkout.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	relatedID, err := uuid.Parse(req.RelatedID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid related_id"})
		return
	}

	resp, err := h.checkout.Execute(r.Context(), dto.InitiateCheckoutRequest{
		Type:      req.Type,
		RelatedID: relatedID,
		BuyerID:   caller.UserID,
		Buyer: dto.Buyer{
			Name:  req.Buyer.Name,
			Email: req.Buyer.Email,
			Phone: req.Buyer.Phone,
			IP:    clientIP(r),
		},
	})
	if err != nil {
		writeError(w, h.logger, "checkout", err)
		return
	}

	code := http.StatusCreated
	if resp.Resumed {
		code = http.StatusOK
	}
	writeJSON(w, code, checkoutResponse{
		TransactionID:  resp.TransactionID.String(),
		BasketID:       resp.BasketID,
		Token:          resp.Token,
		PaymentPageURL: resp.PaymentPageURL,
		Status:         resp.Status,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
		Resumed:        resp.Resumed,
	})
}

// Check handles POST /api/transactions/{id}/check.
func (h *PaymentHandler) Check(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	resp, err := h.check.Execute(r.Context(), dto.CheckTransactionRequest{TransactionID: id, Caller: caller})
	if err != nil {
		writeError(w, h.logger, "check", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(resp))
}

// CheckRelated handles POST /api/reservations/{id}/check-payment, where id
// is the booking rather than the transaction.
func (h *PaymentHandler) CheckRelated(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	resp, err := h.check.ExecuteForRelated(r.Context(), dto.CheckRelatedRequest{RelatedID: id, Caller: caller})
	if err != nil {
		writeError(w, h.logger, "check_related", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(resp))
}

// Get handles GET /api/transactions/{id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	resp, err := h.get.Execute(r.Context(), dto.GetTransactionRequest{TransactionID: id, Caller: caller})
	if err != nil {
		writeError(w, h.logger, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(resp))
}

// Refund handles POST /api/transactions/{id}/refund. Without an amount the
// remaining balance is refunded.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	var req refundRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}
	amount := decimal.Zero
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be positive"})
			return
		}
		amount = *req.Amount
	}

	resp, err := h.refunds.Refund(r.Context(), dto.RefundRequest{TransactionID: id, Amount: amount, Caller: caller})
	h.writeRefund(w, "refund", resp, err)
}

// Cancel handles POST /api/transactions/{id}/cancel.
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}
	resp, err := h.refunds.Cancel(r.Context(), dto.CancelRequest{TransactionID: id, Caller: caller})
	h.writeRefund(w, "cancel", resp, err)
}

func (h *PaymentHandler) writeRefund(w http.ResponseWriter, op string, resp dto.RefundResponse, err error) {
	if err != nil && resp.TransactionID == uuid.Nil {
		writeError(w, h.logger, op, err)
		return
	}
	code := http.StatusOK
	if err != nil {
		// Outcome unknown, the refund stays pending.
		code = http.StatusAccepted
		h.logger.Warn("refund outcome unknown", "op", op, "transaction_id", resp.TransactionID, "error", err)
	}
	writeJSON(w, code, refundResponse{
		TransactionID:  resp.TransactionID.String(),
		RefundStatus:   resp.RefundStatus,
		Requested:      resp.Requested,
		RefundedAmount: resp.RefundedAmount,
		Remaining:      resp.Remaining,
		Message:        resp.Message,
	})
}

func (h *PaymentHandler) callerAndID(w http.ResponseWriter, r *http.Request) (dto.Caller, uuid.UUID, bool) {
	caller, ok := callerFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return dto.Caller{}, uuid.Nil, false
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return dto.Caller{}, uuid.Nil, false
	}
	return caller, id, true
}

func callerFrom(r *http.Request) (dto.Caller, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == uuid.Nil {
		return dto.Caller{}, false
	}
	return dto.Caller{UserID: claims.UserID, IsAdmin: claims.IsAdmin()}, true
}

// clientIP prefers the first X-Forwarded-For hop set by the ingress.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func toStatusResponse(resp dto.CheckStatusResponse) statusResponse {
	return statusResponse{
		TransactionID: resp.TransactionID.String(),
		Status:        resp.Status,
		PaymentStatus: resp.PaymentStatus,
		Message:       resp.Message,
	}
}

func toTransactionJSON(r dto.TransactionResponse) transactionJSON {
	out := transactionJSON{
		ID:               r.ID.String(),
		Type:             r.Type,
		Status:           r.Status,
		ClientStatus:     r.ClientStatus,
		BuyerID:          r.BuyerID.String(),
		RelatedID:        r.RelatedID.String(),
		Amount:           r.Amount,
		Currency:         r.Currency,
		Description:      r.Description,
		PaymentPageURL:   r.PaymentPageURL,
		GatewayPaymentID: r.GatewayPaymentID,
		PaidPrice:        r.PaidPrice,
		CommissionRate:   r.CommissionRate,
		CommissionAmount: r.CommissionAmount,
		SellerReceives:   r.SellerReceives,
		CompletionSource: r.CompletionSource,
		ErrorKind:        r.ErrorKind,
		EffectsStatus:    r.EffectsStatus,
		RefundStatus:     r.RefundStatus,
		RefundedAmount:   r.RefundedAmount,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
	if r.SellerID != nil {
		out.SellerID = r.SellerID.String()
	}
	if r.RefundedAt != nil {
		out.RefundedAt = r.RefundedAt.Format(time.RFC3339)
	}
	if r.CompletedAt != nil {
		out.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return out
}
