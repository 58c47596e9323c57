package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/auth"
	kafkapkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/kafka"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/observability"
	pgpkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/postgres"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/application/usecase"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/service"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/config"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/gateway/iyzico"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/gateway/sandbox"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/messaging"
	infraPG "github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/postgres"
	grpcPresentation "github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/presentation/grpc"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/presentation/rest"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("payment-service exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()

	// Initialize logger.
	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Telemetry.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting payment-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"gateway", cfg.Gateway.Driver,
	)

	// Initialize tracing.
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRatio:  cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	// Initialize metrics.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	metrics, err := usecase.NewMetrics(meterProvider.Meter("payment-service"))
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Initialize database.
	pool, err := pgpkg.NewPool(ctx, cfg.DB.Postgres())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	// Run migrations.
	if err := infraPG.MigrateUp(cfg.DB.Postgres().DSN()); err != nil {
		logger.Warn("migration warning", "error", err)
	}

	// Initialize Kafka producer.
	producer, err := kafkapkg.NewProducer(cfg.Kafka.Client())
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer producer.Close()

	commissionRates, err := config.LoadCommissionRates(cfg.CommissionConfig)
	if err != nil {
		return fmt.Errorf("load commission rates: %w", err)
	}

	// Wire dependencies (DI via constructors).
	txRepo := infraPG.NewTransactionRepo(pool)
	bookingRepo := infraPG.NewBookingRepo(pool)
	calendarRepo := infraPG.NewCalendarRepo(pool)
	notificationRepo := infraPG.NewNotificationRepo(pool)
	publisher := messaging.NewPublisher(producer, cfg.Kafka.NotificationTopic)
	gateway := newGateway(cfg, logger)

	effects := service.NewSideEffectApplier(bookingRepo, calendarRepo, service.DefaultBackOff, logger)
	fanout := service.NewNotificationFanout(notificationRepo, publisher, cfg.AdminUserID, service.DefaultBackOff, logger)
	commission := service.NewCommissionCalculator(commissionRates)

	// Use cases.
	engine := usecase.NewApplyCompletion(txRepo, effects, fanout, metrics, logger, cfg.Reconcile.SideEffectLease)
	initiateCheckoutUC := usecase.NewInitiateCheckout(txRepo, bookingRepo, gateway, commission, engine, metrics, logger, usecase.CheckoutSettings{
		CallbackURL:    cfg.CallbackURL(),
		GatewayTimeout: cfg.Gateway.Timeout,
		MaxWait:        cfg.Reconcile.MaxWait,
	})
	checkTransactionUC := usecase.NewCheckTransaction(txRepo, gateway, engine, metrics, logger, cfg.Gateway.Timeout, cfg.Reconcile.MaxWait)
	handleCallbackUC := usecase.NewHandleCallback(txRepo, gateway, engine, metrics, logger, cfg.Gateway.Timeout)
	refundTransactionUC := usecase.NewRefundTransaction(txRepo, gateway, fanout, metrics, logger, cfg.Gateway.Timeout)
	getTransactionUC := usecase.NewGetTransaction(txRepo)
	sweeper := usecase.NewEffectsSweeper(txRepo, engine, logger, cfg.Reconcile.SweepInterval)
	relay := messaging.NewOutboxRelay(txRepo, publisher, cfg.Kafka.TransactionTopic, cfg.Kafka.RelayInterval, logger)

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:       cfg.Auth.JWTSecret,
		PublicKeyPEM: cfg.Auth.JWTPublicKey,
		Issuer:       cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return fmt.Errorf("init JWT service: %w", err)
	}

	// gRPC server.
	transactionHandler := grpcPresentation.NewTransactionHandler(getTransactionUC, checkTransactionUC, refundTransactionUC, sweeper, logger)
	grpcServer, err := grpcPresentation.NewServer(transactionHandler, logger, jwtService, grpcPresentation.ServerConfig{
		TLSCertFile: cfg.TLS.CertFile,
		TLSKeyFile:  cfg.TLS.KeyFile,
		Reflection:  cfg.GRPCReflection,
	})
	if err != nil {
		return err
	}

	// HTTP server.
	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: rest.NewRouter(rest.RouterConfig{
			Payments:       rest.NewPaymentHandler(initiateCheckoutUC, checkTransactionUC, getTransactionUC, refundTransactionUC, logger),
			Callbacks:      rest.NewCallbackHandler(handleCallbackUC, cfg.FrontendURL, logger),
			Health:         rest.NewHealthHandler(pool, logger),
			JWT:            jwtService,
			MetricsHandler: metricsHandler,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return grpcServer.Serve(fmt.Sprintf(":%d", cfg.GRPCPort))
	})
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })

	if cfg.Kafka.ResumerEnabled {
		consumer, err := kafkapkg.NewConsumer(cfg.Kafka.Client(), cfg.Kafka.TransactionTopic,
			messaging.NewEffectsHandler(sweeper, logger), logger)
		if err != nil {
			return fmt.Errorf("create effects consumer: %w", err)
		}
		defer consumer.Close()
		g.Go(func() error { return consumer.Start(gctx) })
	}

	// Graceful shutdown.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("payment-service stopped")
	return err
}

func newGateway(cfg config.Config, logger *slog.Logger) port.PaymentGateway {
	if cfg.Gateway.Driver == config.GatewayDriverSandbox {
		logger.Warn("using the sandbox payment gateway, no money moves")
		return sandbox.NewGateway(logger, cfg.PublicBaseURL, cfg.Gateway.SandboxDelay)
	}
	return iyzico.NewClient(iyzico.Config{
		BaseURL:         cfg.Gateway.BaseURL,
		APIKey:          cfg.Gateway.APIKey,
		SecretKey:       cfg.Gateway.SecretKey,
		Locale:          cfg.Gateway.Locale,
		Timeout:         cfg.Gateway.Timeout,
		TokenErrorCodes: cfg.Gateway.TokenErrorCodes,
	}, logger)
}
