package iyzico

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/observability"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

type recorded struct {
	path   string
	auth   string
	rnd    string
	body   []byte
	fields map[string]any
}

func newTestClient(t *testing.T, status int, reply string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.rnd = r.Header.Get("x-iyzi-rnd")
		rec.body, _ = io.ReadAll(r.Body)
		_ = json.Unmarshal(rec.body, &rec.fields)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:   srv.URL + "/",
		APIKey:    "api-key",
		SecretKey: "secret-key",
		Timeout:   2 * time.Second,
	}, observability.Discard())
	c.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c, rec
}

func checkoutRequest() port.CheckoutRequest {
	return port.CheckoutRequest{
		Buyer: port.Buyer{
			ID:    testutil.BuyerID.String(),
			Name:  "Ayse Nur Yilmaz",
			Email: "ayse@example.com",
			Phone: "+905551112233",
			IP:    "10.0.0.7",
		},
		Amount:      money.New(decimal.NewFromInt(250), money.TRY),
		BasketID:    "reservation_7f1c",
		ItemName:    "Reservation: Court 1",
		CallbackURL: "https://api.example.com/api/payments/callback",
	}
}

func TestClient_InitCheckout(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK,
		`{"status":"success","token":"tok-123","paymentPageUrl":"https://pay.example/tok-123"}`)

	session, err := c.InitCheckout(t.Context(), checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", session.Token)
	assert.Equal(t, "https://pay.example/tok-123", session.PaymentPageURL)

	assert.Equal(t, pathInitialize, rec.path)
	assert.Equal(t, "250.0", rec.fields["price"])
	assert.Equal(t, "250.0", rec.fields["paidPrice"])
	assert.Equal(t, "TRY", rec.fields["currency"])
	assert.Equal(t, "reservation_7f1c", rec.fields["basketId"])
	assert.Equal(t, "https://api.example.com/api/payments/callback", rec.fields["callbackUrl"])

	buyer := rec.fields["buyer"].(map[string]any)
	assert.Equal(t, "Ayse Nur", buyer["name"])
	assert.Equal(t, "Yilmaz", buyer["surname"])
	assert.Equal(t, "10.0.0.7", buyer["ip"])

	items := rec.fields["basketItems"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "item_reservation_7f1c", items[0].(map[string]any)["id"])
	assert.Equal(t, "VIRTUAL", items[0].(map[string]any)["itemType"])
}

func TestClient_SignsRequests(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"status":"success","token":"tok-1"}`)

	_, err := c.InitCheckout(t.Context(), checkoutRequest())
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(rec.auth, "IYZWSv2 "))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(rec.auth, "IYZWSv2 "))
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret-key"))
	mac.Write([]byte(rec.rnd + pathInitialize))
	mac.Write(rec.body)
	want := "apiKey:api-key&randomKey:" + rec.rnd + "&signature:" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, string(decoded))
}

func TestClient_InitCheckoutRejected(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK,
		`{"status":"failure","errorCode":"1001","errorMessage":"api bilgileri bulunamadı"}`)

	_, err := c.InitCheckout(t.Context(), checkoutRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPaymentFailed)

	var gwErr *port.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "1001", gwErr.Code)
}

func TestClient_RetrieveResult(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantErr error
		check   func(t *testing.T, res port.CheckoutResult)
	}{
		{
			name:   "completed",
			status: http.StatusOK,
			reply:  `{"status":"success","paymentStatus":"SUCCESS","paymentId":"pay-9","paidPrice":250.0,"currency":"TRY","basketId":"reservation_7f1c"}`,
			check: func(t *testing.T, res port.CheckoutResult) {
				assert.Equal(t, port.GatewayStatusSuccess, res.GatewayStatus)
				assert.Equal(t, port.PaymentStatusSuccess, res.PaymentStatus)
				assert.Equal(t, "pay-9", res.PaymentID)
				assert.Equal(t, "reservation_7f1c", res.BasketID)
				testutil.AssertDecimal(t, "250", res.PaidPrice)
				assert.Equal(t, "pay-9", res.Raw["paymentId"])
			},
		},
		{
			name:   "challenge in flight",
			status: http.StatusOK,
			reply:  `{"status":"success","paymentStatus":"FAILURE"}`,
			check: func(t *testing.T, res port.CheckoutResult) {
				assert.Equal(t, port.PaymentStatusFailure, res.PaymentStatus)
				assert.True(t, res.PaidPrice.IsZero())
			},
		},
		{
			name:   "declined",
			status: http.StatusOK,
			reply:  `{"status":"failure","errorCode":"10051","errorMessage":"Yetersiz bakiye"}`,
			check: func(t *testing.T, res port.CheckoutResult) {
				assert.Equal(t, port.GatewayStatusFailure, res.GatewayStatus)
				assert.Equal(t, "Yetersiz bakiye", res.ErrorMessage)
			},
		},
		{
			name:    "unknown token",
			status:  http.StatusOK,
			reply:   `{"status":"failure","errorCode":"5089","errorMessage":"Token bulunamadı"}`,
			wantErr: model.ErrInvalidOrExpiredToken,
		},
		{
			name:   "failure mentioning token",
			status: http.StatusOK,
			reply:  `{"status":"failure","errorCode":"10051","errorMessage":"Card token declined by issuer"}`,
			check: func(t *testing.T, res port.CheckoutResult) {
				assert.Equal(t, port.GatewayStatusFailure, res.GatewayStatus)
				assert.Equal(t, "10051", res.ErrorCode)
			},
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			reply:   ``,
			wantErr: model.ErrInvalidOrExpiredToken,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			reply:   `upstream down`,
			wantErr: model.ErrGatewayUnavailable,
		},
		{
			name:    "garbage",
			status:  http.StatusOK,
			reply:   `<html>`,
			wantErr: model.ErrGatewayUnavailable,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestClient(t, tc.status, tc.reply)
			res, err := c.RetrieveResult(t.Context(), "tok-123")
			assert.Equal(t, pathRetrieve, rec.path)
			assert.Equal(t, "tok-123", rec.fields["token"])
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, res)
		})
	}
}

func TestClient_RetrieveResultTokenErrorCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"failure","errorCode":"5201","errorMessage":"Oturum süresi doldu"}`)
	}))
	t.Cleanup(srv.Close)

	custom := NewClient(Config{BaseURL: srv.URL, TokenErrorCodes: []string{"5201"}}, observability.Discard())
	_, err := custom.RetrieveResult(t.Context(), "tok-1")
	assert.ErrorIs(t, err, model.ErrInvalidOrExpiredToken)

	defaults := NewClient(Config{BaseURL: srv.URL}, observability.Discard())
	res, err := defaults.RetrieveResult(t.Context(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "5201", res.ErrorCode)
}

func TestClient_RetrieveResultUnreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, observability.Discard())
	_, err := c.RetrieveResult(t.Context(), "tok-1")
	assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
}

func TestClient_RefundAndCancel(t *testing.T) {
	t.Run("refund", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusOK, `{"status":"success"}`)
		res, err := c.Refund(t.Context(), "pay-9", money.New(decimal.RequireFromString("99.50"), money.TRY))
		require.NoError(t, err)
		assert.True(t, res.Succeeded())
		assert.Equal(t, pathRefund, rec.path)
		assert.Equal(t, "pay-9", rec.fields["paymentId"])
		assert.Equal(t, "99.5", rec.fields["price"])
	})

	t.Run("refund rejected", func(t *testing.T) {
		c, _ := newTestClient(t, http.StatusBadRequest, `{"status":"failure","errorMessage":"refund period expired"}`)
		res, err := c.Refund(t.Context(), "pay-9", money.New(decimal.NewFromInt(10), money.TRY))
		require.NoError(t, err)
		assert.False(t, res.Succeeded())
		assert.Equal(t, "refund period expired", res.ErrorMessage)
	})

	t.Run("cancel", func(t *testing.T) {
		c, rec := newTestClient(t, http.StatusOK, `{"status":"success"}`)
		res, err := c.Cancel(t.Context(), "pay-9")
		require.NoError(t, err)
		assert.True(t, res.Succeeded())
		assert.Equal(t, pathCancel, rec.path)
		_, hasPrice := rec.fields["price"]
		assert.False(t, hasPrice)
	})
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, name, surname string
	}{
		{"", "Guest", "User"},
		{"Cem", "Cem", "Cem"},
		{"Ali Veli", "Ali", "Veli"},
		{"  Ayse  Nur Yilmaz ", "Ayse Nur", "Yilmaz"},
	}
	for _, tc := range tests {
		name, surname := splitName(tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.surname, surname, tc.in)
	}
}
