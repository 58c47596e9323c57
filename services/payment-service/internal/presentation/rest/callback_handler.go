package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/dto"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// CallbackHandler receives the gateway's push after the 3-D Secure step.
// It is unauthenticated; the token is verified against the gateway.
type CallbackHandler struct {
	callback    *usecase.HandleCallback
	frontendURL string
	logger      *slog.Logger
}

func NewCallbackHandler(callback *usecase.HandleCallback, frontendURL string, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{
		callback:    callback,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

type callbackResponse struct {
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// ServeHTTP accepts form posts, JSON bodies and query strings alike.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := parseCallback(w, r)
	if err != nil {
		h.logger.Warn("unreadable payment callback", "error", err)
		h.respond(w, r, http.StatusBadRequest, callbackResponse{Status: valueobject.ClientStatusPending, Message: "invalid callback"})
		return
	}

	resp, err := h.callback.Execute(r.Context(), req)
	switch {
	case errors.Is(err, usecase.ErrMalformedCallback):
		h.respond(w, r, http.StatusBadRequest, callbackResponse{Status: valueobject.ClientStatusPending, Message: "missing token"})
		return
	case err != nil:
		// Transient trouble: ask the gateway to deliver again.
		h.logger.Error("payment callback failed", "transaction_id", resp.TransactionID, "error", err)
		h.respond(w, r, http.StatusServiceUnavailable, callbackResponse{
			TransactionID: idString(resp.TransactionID),
			Status:        valueobject.ClientStatusPending,
			Message:       "temporarily unavailable, retry later",
		})
		return
	}

	h.logger.Info("payment callback handled",
		"transaction_id", resp.TransactionID,
		"status", resp.Status)
	h.respond(w, r, http.StatusOK, callbackResponse{
		TransactionID: idString(resp.TransactionID),
		Status:        resp.Status,
		Message:       resp.Message,
	})
}

// respond redirects browsers to the frontend result page and answers
// machines with JSON.
func (h *CallbackHandler) respond(w http.ResponseWriter, r *http.Request, code int, body callbackResponse) {
	if h.frontendURL == "" || !wantsHTML(r) {
		writeJSON(w, code, body)
		return
	}
	q := url.Values{}
	q.Set("status", body.Status)
	if body.TransactionID != "" {
		q.Set("transaction_id", body.TransactionID)
	}
	http.Redirect(w, r, h.frontendURL+"/payment/result?"+q.Encode(), http.StatusSeeOther)
}

func parseCallback(w http.ResponseWriter, r *http.Request) (dto.CallbackRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
			return dto.CallbackRequest{}, err
		}
		return dto.CallbackRequest{
			Token:    firstString(body, "token"),
			BasketID: firstString(body, "basketId", "basket_id", "conversationId"),
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return dto.CallbackRequest{}, err
	}
	return dto.CallbackRequest{
		Token:    r.Form.Get("token"),
		BasketID: firstNonEmpty(r.Form.Get("basketId"), r.Form.Get("basket_id"), r.Form.Get("conversationId")),
	}, nil
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
