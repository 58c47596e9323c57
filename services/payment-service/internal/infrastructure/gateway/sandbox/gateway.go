// Package sandbox is a local stand-in for the card gateway. Sessions complete
// on their own after a delay, so the poll and callback paths can be driven
// without merchant credentials.
package sandbox

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

var _ port.PaymentGateway = (*Gateway)(nil)

// DeclineMarker in a buyer email makes the session fail instead of complete.
const DeclineMarker = "+decline"

const defaultLatency = 50 * time.Millisecond

type session struct {
	basketID  string
	amount    money.Money
	decline   bool
	createdAt time.Time
	paymentID string
}

// Gateway keeps its sessions in memory.
type Gateway struct {
	logger        *slog.Logger
	pageBaseURL   string
	completeAfter time.Duration
	simulateDelay time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewGateway creates a sandbox whose sessions report success completeAfter
// their creation.
func NewGateway(logger *slog.Logger, pageBaseURL string, completeAfter time.Duration) *Gateway {
	return &Gateway{
		logger:        logger,
		pageBaseURL:   strings.TrimRight(pageBaseURL, "/"),
		completeAfter: completeAfter,
		simulateDelay: defaultLatency,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}
}

// WithClock replaces the time source.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	g.simulateDelay = 0
	return g
}

func (g *Gateway) InitCheckout(ctx context.Context, req port.CheckoutRequest) (port.CheckoutSession, error) {
	if err := g.wait(ctx, "init_checkout"); err != nil {
		return port.CheckoutSession{}, err
	}

	token := "sandbox-" + uuid.NewString()
	g.mu.Lock()
	g.sessions[token] = &session{
		basketID:  req.BasketID,
		amount:    req.Amount,
		decline:   strings.Contains(strings.ToLower(req.Buyer.Email), DeclineMarker),
		createdAt: g.now(),
	}
	g.mu.Unlock()

	g.logger.Info("sandbox: checkout opened",
		"basket_id", req.BasketID,
		"amount", req.Amount.String(),
	)
	return port.CheckoutSession{
		Token:          token,
		PaymentPageURL: g.pageBaseURL + "/sandbox/pay/" + token,
	}, nil
}

// RetrieveResult reports the challenge in flight until the session is old
// enough, then its final outcome.
func (g *Gateway) RetrieveResult(ctx context.Context, token string) (port.CheckoutResult, error) {
	if err := g.wait(ctx, "retrieve"); err != nil {
		return port.CheckoutResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[token]
	if !ok {
		return port.CheckoutResult{}, &port.GatewayError{
			Kind:    port.GatewayErrInvalidToken,
			Op:      "retrieve",
			Message: "token not found",
		}
	}

	result := port.CheckoutResult{
		GatewayStatus: port.GatewayStatusSuccess,
		PaymentStatus: port.PaymentStatusFailure,
		Currency:      s.amount.Currency().Code(),
		BasketID:      s.basketID,
	}
	if g.now().Sub(s.createdAt) < g.completeAfter {
		return result, nil
	}
	if s.decline {
		result.GatewayStatus = port.GatewayStatusFailure
		result.ErrorCode = "10051"
		result.ErrorMessage = "Insufficient funds"
		return result, nil
	}
	if s.paymentID == "" {
		s.paymentID = uuid.NewString()
	}
	result.PaymentStatus = port.PaymentStatusSuccess
	result.PaymentID = s.paymentID
	result.PaidPrice = s.amount.Amount()
	return result, nil
}

func (g *Gateway) Refund(ctx context.Context, paymentID string, amount money.Money) (port.RefundResult, error) {
	if err := g.wait(ctx, "refund"); err != nil {
		return port.RefundResult{}, err
	}
	if !g.knowsPayment(paymentID) {
		return port.RefundResult{Status: port.GatewayStatusFailure, ErrorMessage: "payment not found"}, nil
	}
	g.logger.Info("sandbox: refund accepted", "payment_id", paymentID, "amount", amount.String())
	return port.RefundResult{Status: port.GatewayStatusSuccess}, nil
}

func (g *Gateway) Cancel(ctx context.Context, paymentID string) (port.CancelResult, error) {
	if err := g.wait(ctx, "cancel"); err != nil {
		return port.CancelResult{}, err
	}
	if !g.knowsPayment(paymentID) {
		return port.CancelResult{Status: port.GatewayStatusFailure, ErrorMessage: "payment not found"}, nil
	}
	g.logger.Info("sandbox: cancel accepted", "payment_id", paymentID)
	return port.CancelResult{Status: port.GatewayStatusSuccess}, nil
}

func (g *Gateway) knowsPayment(paymentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.sessions {
		if s.paymentID != "" && s.paymentID == paymentID {
			return true
		}
	}
	return false
}

// wait simulates network latency.
func (g *Gateway) wait(ctx context.Context, op string) error {
	var timer <-chan time.Time
	if g.simulateDelay > 0 {
		timer = time.After(g.simulateDelay)
	} else if ctx.Err() == nil {
		return nil
	}
	select {
	case <-timer:
		return nil
	case <-ctx.Done():
		return &port.GatewayError{Kind: port.GatewayErrUnavailable, Op: op, Err: ctx.Err()}
	}
}
