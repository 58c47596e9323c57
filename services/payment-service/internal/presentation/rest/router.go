// Package rest exposes the payment endpoints used by the apps and the
// gateway callback.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/auth"
)

// Callback paths the gateway may be configured with, one per booking type
// plus the shared one.
var callbackPaths = []string{
	"/api/payments/callback",
	"/api/events/payment-callback",
	"/api/reservations/payment-callback",
	"/api/memberships/payment-callback",
	"/api/person-reservations/payment-callback",
}

// RouterConfig collects what NewRouter wires together.
type RouterConfig struct {
	Payments       *PaymentHandler
	Callbacks      *CallbackHandler
	Health         *HealthHandler
	JWT            *auth.JWTService
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter builds the HTTP routing tree. Callbacks and probes are public;
// everything under /api otherwise requires a bearer token, refunds an admin.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(cfg.Logger))

	r.HandleFunc("/healthz", cfg.Health.Health).Methods(http.MethodGet)
	r.HandleFunc("/readyz", cfg.Health.Ready).Methods(http.MethodGet)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}

	for _, path := range callbackPaths {
		r.Handle(path, cfg.Callbacks).Methods(http.MethodPost, http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.HTTPMiddleware(cfg.JWT))
	api.HandleFunc("/payments/checkout", cfg.Payments.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", cfg.Payments.Get).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}/check", cfg.Payments.Check).Methods(http.MethodPost, http.MethodGet)
	api.HandleFunc("/reservations/{id}/check-payment", cfg.Payments.CheckRelated).Methods(http.MethodPost, http.MethodGet)

	admin := api.NewRoute().Subrouter()
	admin.Use(auth.RequireRoleHTTP(auth.RoleAdmin))
	admin.HandleFunc("/transactions/{id}/refund", cfg.Payments.Refund).Methods(http.MethodPost)
	admin.HandleFunc("/transactions/{id}/cancel", cfg.Payments.Cancel).Methods(http.MethodPost)

	return otelhttp.NewHandler(r, "payment-service.http")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}
