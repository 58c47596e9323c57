package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	kafkapkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/kafka"
	pgpkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/postgres"
)

// Gateway drivers.
const (
	GatewayDriverIyzico  = "iyzico"
	GatewayDriverSandbox = "sandbox"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	HTTPPort       int
	GRPCPort       int
	GRPCReflection bool
	PublicBaseURL  string
	FrontendURL    string
	AdminUserID    uuid.UUID
	DB             DBConfig
	Kafka          KafkaConfig
	Gateway        GatewayConfig
	Reconcile      ReconcileConfig
	Auth           AuthConfig
	TLS            TLSConfig
	Telemetry      TelemetryConfig
	// CommissionConfig is an optional YAML file with per-type commission rates.
	CommissionConfig string
	LogLevel         string
	LogFormat        string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// Postgres converts to the shared pool configuration.
func (c DBConfig) Postgres() pgpkg.Config {
	return pgpkg.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Name,
		SSLMode:  c.SSLMode,
		MaxConns: c.MaxConns,
		MinConns: c.MinConns,
	}
}

type KafkaConfig struct {
	Brokers           []string
	ConsumerGroup     string
	TransactionTopic  string
	NotificationTopic string
	RelayInterval     time.Duration
	SASLMechanism     string
	SASLUsername      string
	SASLPassword      string
	TLS               bool
	ResumerEnabled    bool
}

// Client converts to the shared producer/consumer configuration.
func (c KafkaConfig) Client() kafkapkg.Config {
	return kafkapkg.Config{
		ConsumerGroup: c.ConsumerGroup,
		SASLMechanism: c.SASLMechanism,
		SASLUsername:  c.SASLUsername,
		SASLPassword:  c.SASLPassword,
		Brokers:       c.Brokers,
		TLS:           c.TLS,
		SASLEnabled:   c.SASLMechanism != "",
	}
}

type GatewayConfig struct {
	Driver          string
	BaseURL         string
	APIKey          string
	SecretKey       string
	Locale          string
	Timeout         time.Duration
	SandboxDelay    time.Duration
	TokenErrorCodes []string
}

// ReconcileConfig tunes completion reconciliation.
type ReconcileConfig struct {
	MaxWait         time.Duration
	SideEffectLease time.Duration
	SweepInterval   time.Duration
}

type AuthConfig struct {
	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

// CallbackURL is where the gateway posts checkout results.
func (c Config) CallbackURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/api/payments/callback"
}

// Validate checks required configuration values.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	switch c.Gateway.Driver {
	case GatewayDriverSandbox:
	case GatewayDriverIyzico:
		if c.Gateway.APIKey == "" || c.Gateway.SecretKey == "" {
			errs = append(errs, errors.New("GATEWAY_API_KEY and GATEWAY_SECRET_KEY are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GATEWAY_DRIVER %q", c.Gateway.Driver))
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		errs = append(errs, errors.New("JWT_SECRET or JWT_PUBLIC_KEY is required"))
	}
	if c.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables with defaults. A .env
// file in the working directory fills in variables the environment lacks.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8086),
		GRPCPort:       getEnvInt("GRPC_PORT", 9086),
		GRPCReflection: getEnvBool("GRPC_REFLECTION", false),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8086"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AdminUserID:    getEnvUUID("ADMIN_USER_ID"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "sportsmaker"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "sportsmaker_payment"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Kafka: KafkaConfig{
			Brokers:           kafkapkg.ParseBrokers(getEnv("KAFKA_BROKERS", "localhost:9092")),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "payment-service"),
			TransactionTopic:  getEnv("KAFKA_TRANSACTION_TOPIC", "sportsmaker.payment.transactions"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "sportsmaker.notifications.workflow"),
			RelayInterval:     getEnvDuration("OUTBOX_RELAY_INTERVAL", time.Second),
			SASLMechanism:     getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:      getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:      getEnv("KAFKA_SASL_PASSWORD", ""),
			TLS:               getEnvBool("KAFKA_TLS", false),
			ResumerEnabled:    getEnvBool("EFFECTS_RESUMER_ENABLED", true),
		},
		Gateway: GatewayConfig{
			Driver:          getEnv("GATEWAY_DRIVER", GatewayDriverIyzico),
			BaseURL:         getEnv("GATEWAY_BASE_URL", "https://sandbox-api.iyzipay.com"),
			APIKey:          getEnv("GATEWAY_API_KEY", ""),
			SecretKey:       getEnv("GATEWAY_SECRET_KEY", ""),
			Locale:          getEnv("GATEWAY_LOCALE", "tr"),
			Timeout:         getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
			SandboxDelay:    getEnvDuration("SANDBOX_COMPLETION_DELAY", 5*time.Second),
			TokenErrorCodes: getEnvList("GATEWAY_TOKEN_ERROR_CODES"),
		},
		Reconcile: ReconcileConfig{
			MaxWait:         getEnvDuration("PAYMENT_MAX_WAIT", 30*time.Minute),
			SideEffectLease: getEnvDuration("SIDE_EFFECT_LEASE", 2*time.Minute),
			SweepInterval:   getEnvDuration("SWEEP_INTERVAL", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			JWTPublicKey: getEnv("JWT_PUBLIC_KEY", ""),
			JWTIssuer:    getEnv("JWT_ISSUER", "sportsmaker"),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  "payment-service",
			SampleRatio:  getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 0.1),
		},
		CommissionConfig: getEnv("COMMISSION_CONFIG", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvUUID(key string) uuid.UUID {
	if val := os.Getenv(key); val != "" {
		if id, err := uuid.Parse(val); err == nil {
			return id
		}
	}
	return uuid.Nil
}
