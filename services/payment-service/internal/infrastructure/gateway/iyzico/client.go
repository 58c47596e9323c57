// Package iyzico talks to the iyzico checkout-form API.
package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

var _ port.PaymentGateway = (*Client)(nil)

const (
	pathInitialize = "/payment/iyzipos/checkoutform/initialize/auth/ecom"
	pathRetrieve   = "/payment/iyzipos/checkoutform/auth/ecom/detail"
	pathRefund     = "/payment/refund"
	pathCancel     = "/payment/cancel"

	defaultTimeout = 10 * time.Second
	maxItemName    = 128
	maxErrorBody   = 4 << 10
)

var enabledInstallments = []int{1, 2, 3, 6, 9, 12}

// Placeholder identity data the checkout form requires but the platform does
// not collect.
const (
	placeholderIdentityNumber = "11111111111"
	placeholderAddress        = "Istanbul, Turkey"
	placeholderCity           = "Istanbul"
	placeholderCountry        = "Turkey"
	placeholderZipCode        = "34732"
)

// DefaultTokenErrorCodes are the retrieve error codes that mean the
// checkout token is unknown or expired.
var DefaultTokenErrorCodes = []string{"5089"}

// Config holds the merchant credentials and endpoint.
type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Locale    string
	Timeout   time.Duration

	// TokenErrorCodes overrides DefaultTokenErrorCodes when not empty.
	TokenErrorCodes []string
}

// Client implements port.PaymentGateway over the iyzico REST API.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	locale     string
	tokenCodes map[string]struct{}
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a client whose requests are traced through otelhttp.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Locale == "" {
		cfg.Locale = "tr"
	}
	codes := cfg.TokenErrorCodes
	if len(codes) == 0 {
		codes = DefaultTokenErrorCodes
	}
	tokenCodes := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		tokenCodes[strings.TrimSpace(code)] = struct{}{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		locale:     cfg.Locale,
		tokenCodes: tokenCodes,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		now:    time.Now,
	}
}

type address struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode"`
}

type buyer struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	GsmNumber           string `json:"gsmNumber,omitempty"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	LastLoginDate       string `json:"lastLoginDate"`
	RegistrationDate    string `json:"registrationDate"`
	RegistrationAddress string `json:"registrationAddress"`
	IP                  string `json:"ip"`
	City                string `json:"city"`
	Country             string `json:"country"`
	ZipCode             string `json:"zipCode"`
}

type basketItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	Category2 string `json:"category2"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

type initializeRequest struct {
	Locale              string       `json:"locale"`
	ConversationID      string       `json:"conversationId"`
	Price               string       `json:"price"`
	PaidPrice           string       `json:"paidPrice"`
	Currency            string       `json:"currency"`
	BasketID            string       `json:"basketId"`
	PaymentGroup        string       `json:"paymentGroup"`
	CallbackURL         string       `json:"callbackUrl"`
	EnabledInstallments []int        `json:"enabledInstallments"`
	Buyer               buyer        `json:"buyer"`
	ShippingAddress     address      `json:"shippingAddress"`
	BillingAddress      address      `json:"billingAddress"`
	BasketItems         []basketItem `json:"basketItems"`
}

type retrieveRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	Token          string `json:"token"`
}

type refundRequest struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	PaymentID      string `json:"paymentId"`
	Price          string `json:"price,omitempty"`
	Currency       string `json:"currency,omitempty"`
	IP             string `json:"ip"`
}

// response carries the fields of every endpoint this client reads.
type response struct {
	Status         string      `json:"status"`
	ErrorCode      string      `json:"errorCode"`
	ErrorMessage   string      `json:"errorMessage"`
	Token          string      `json:"token"`
	PaymentPageURL string      `json:"paymentPageUrl"`
	PaymentStatus  string      `json:"paymentStatus"`
	PaymentID      string      `json:"paymentId"`
	PaidPrice      json.Number `json:"paidPrice"`
	Currency       string      `json:"currency"`
	BasketID       string      `json:"basketId"`
}

// InitCheckout opens a hosted checkout form.
func (c *Client) InitCheckout(ctx context.Context, req port.CheckoutRequest) (port.CheckoutSession, error) {
	price := formatPrice(req.Amount.Amount())
	name, surname := splitName(req.Buyer.Name)
	ip := req.Buyer.IP
	if ip == "" {
		ip = "127.0.0.1"
	}
	stamp := c.now().UTC().Format("2006-01-02 15:04:05")
	addr := address{
		ContactName: strings.TrimSpace(req.Buyer.Name),
		City:        placeholderCity,
		Country:     placeholderCountry,
		Address:     placeholderAddress,
		ZipCode:     placeholderZipCode,
	}
	if addr.ContactName == "" {
		addr.ContactName = name
	}
	itemName := req.ItemName
	if len([]rune(itemName)) > maxItemName {
		itemName = string([]rune(itemName)[:maxItemName])
	}

	body := initializeRequest{
		Locale:              c.locale,
		ConversationID:      req.BasketID,
		Price:               price,
		PaidPrice:           price,
		Currency:            req.Amount.Currency().Code(),
		BasketID:            req.BasketID,
		PaymentGroup:        "PRODUCT",
		CallbackURL:         req.CallbackURL,
		EnabledInstallments: enabledInstallments,
		Buyer: buyer{
			ID:                  req.Buyer.ID,
			Name:                name,
			Surname:             surname,
			GsmNumber:           req.Buyer.Phone,
			Email:               req.Buyer.Email,
			IdentityNumber:      placeholderIdentityNumber,
			LastLoginDate:       stamp,
			RegistrationDate:    stamp,
			RegistrationAddress: placeholderAddress,
			IP:                  ip,
			City:                placeholderCity,
			Country:             placeholderCountry,
			ZipCode:             placeholderZipCode,
		},
		ShippingAddress: addr,
		BillingAddress:  addr,
		BasketItems: []basketItem{{
			ID:        "item_" + req.BasketID,
			Name:      itemName,
			Category1: itemName,
			Category2: "Sports",
			ItemType:  "VIRTUAL",
			Price:     price,
		}},
	}

	resp, err := c.post(ctx, "init_checkout", pathInitialize, body)
	if err != nil {
		return port.CheckoutSession{}, err
	}
	if resp.Status != port.GatewayStatusSuccess || resp.Token == "" {
		return port.CheckoutSession{}, &port.GatewayError{
			Kind:    port.GatewayErrRejected,
			Op:      "init_checkout",
			Code:    resp.ErrorCode,
			Message: resp.ErrorMessage,
		}
	}

	c.logger.Info("iyzico checkout form initialized", "basket_id", req.BasketID)
	return port.CheckoutSession{Token: resp.Token, PaymentPageURL: resp.PaymentPageURL}, nil
}

// RetrieveResult reads the checkout form result. A failure answer is returned
// as a result, except when it says the token is unknown.
func (c *Client) RetrieveResult(ctx context.Context, token string) (port.CheckoutResult, error) {
	raw, resp, err := c.postRaw(ctx, "retrieve", pathRetrieve, retrieveRequest{
		Locale:         c.locale,
		ConversationID: uuid.NewString(),
		Token:          token,
	})
	if err != nil {
		return port.CheckoutResult{}, err
	}
	if resp.Status == port.GatewayStatusFailure && c.isTokenError(resp.ErrorCode) {
		return port.CheckoutResult{}, &port.GatewayError{
			Kind:    port.GatewayErrInvalidToken,
			Op:      "retrieve",
			Code:    resp.ErrorCode,
			Message: resp.ErrorMessage,
		}
	}

	result := port.CheckoutResult{
		GatewayStatus: resp.Status,
		PaymentStatus: resp.PaymentStatus,
		PaymentID:     resp.PaymentID,
		Currency:      resp.Currency,
		BasketID:      resp.BasketID,
		ErrorCode:     resp.ErrorCode,
		ErrorMessage:  resp.ErrorMessage,
		Raw:           raw,
	}
	if resp.PaidPrice != "" {
		if paid, err := decimal.NewFromString(resp.PaidPrice.String()); err == nil {
			result.PaidPrice = paid
		}
	}
	return result, nil
}

// Refund returns part or all of a captured payment.
func (c *Client) Refund(ctx context.Context, paymentID string, amount money.Money) (port.RefundResult, error) {
	resp, err := c.post(ctx, "refund", pathRefund, refundRequest{
		Locale:         c.locale,
		ConversationID: uuid.NewString(),
		PaymentID:      paymentID,
		Price:          formatPrice(amount.Amount()),
		Currency:       amount.Currency().Code(),
		IP:             "127.0.0.1",
	})
	if err != nil {
		return port.RefundResult{}, err
	}
	return port.RefundResult{Status: resp.Status, ErrorMessage: resp.ErrorMessage}, nil
}

// Cancel voids a payment taken today.
func (c *Client) Cancel(ctx context.Context, paymentID string) (port.CancelResult, error) {
	resp, err := c.post(ctx, "cancel", pathCancel, refundRequest{
		Locale:         c.locale,
		ConversationID: uuid.NewString(),
		PaymentID:      paymentID,
		IP:             "127.0.0.1",
	})
	if err != nil {
		return port.CancelResult{}, err
	}
	return port.CancelResult{Status: resp.Status, ErrorMessage: resp.ErrorMessage}, nil
}

func (c *Client) post(ctx context.Context, op, path string, body any) (response, error) {
	_, resp, err := c.postRaw(ctx, op, path, body)
	return resp, err
}

// postRaw sends a signed request. Transport errors and 5xx answers are
// reported as unavailable, a 404 as an unknown token.
func (c *Client) postRaw(ctx context.Context, op, path string, body any) (map[string]any, response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, response{}, fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, response{}, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	randomKey := c.randomKey()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-iyzi-rnd", randomKey)
	httpReq.Header.Set("Authorization", c.authorization(randomKey, path, payload))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, response{}, &port.GatewayError{Kind: port.GatewayErrUnavailable, Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, response{}, &port.GatewayError{Kind: port.GatewayErrUnavailable, Op: op, Err: err}
	}

	switch {
	case httpResp.StatusCode >= http.StatusInternalServerError:
		return nil, response{}, &port.GatewayError{
			Kind:    port.GatewayErrUnavailable,
			Op:      op,
			Code:    strconv.Itoa(httpResp.StatusCode),
			Message: truncate(string(data), maxErrorBody),
		}
	case httpResp.StatusCode == http.StatusNotFound:
		return nil, response{}, &port.GatewayError{
			Kind: port.GatewayErrInvalidToken,
			Op:   op,
			Code: strconv.Itoa(httpResp.StatusCode),
		}
	}

	var resp response
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, response{}, &port.GatewayError{
			Kind: port.GatewayErrUnavailable,
			Op:   op,
			Err:  fmt.Errorf("undecodable response (HTTP %d): %w", httpResp.StatusCode, err),
		}
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = nil
	}
	if httpResp.StatusCode >= http.StatusBadRequest && resp.Status == "" {
		resp.Status = port.GatewayStatusFailure
	}
	if resp.Status == port.GatewayStatusFailure {
		c.logger.Warn("iyzico request failed",
			"op", op,
			"http_status", httpResp.StatusCode,
			"error_code", resp.ErrorCode,
			"error_message", resp.ErrorMessage)
	}
	return raw, resp, nil
}

// authorization builds the IYZWSv2 header: an HMAC-SHA256 over the random
// key, the request path and the body.
func (c *Client) authorization(randomKey, path string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(randomKey))
	mac.Write([]byte(path))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	auth := "apiKey:" + c.apiKey + "&randomKey:" + randomKey + "&signature:" + signature
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(auth))
}

func (c *Client) randomKey() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10) + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func formatPrice(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Guest", "User"
	case 1:
		return parts[0], parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func (c *Client) isTokenError(code string) bool {
	_, ok := c.tokenCodes[strings.TrimSpace(code)]
	return ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

