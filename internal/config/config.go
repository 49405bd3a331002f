package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	ServiceName string
	Environment string
	LogLevel    string

	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	CatalogStore string
	OrderStore   string

	MongoURI      string
	MongoDatabase string

	SQLitePath          string
	SQLiteMigrationsDir string

	PostgresHost          string
	PostgresPort          int
	PostgresUser          string
	PostgresPassword      string
	PostgresDB            string
	PostgresMigrationsDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	RazorpayBaseURL   string
	RazorpayKeyID     string
	RazorpayKeySecret string
	GatewayTimeout    time.Duration

	AbandonAfter time.Duration

	OTLPEndpoint string
}

// Load reads the environment. Malformed values and missing gateway
// credentials are reported together.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "storefront"),
		Environment: getEnv("ENVIRONMENT", "local"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		MaxRequestBodySize: 1 << 20,

		CatalogStore: getEnv("CATALOG_STORE", BackendMongo),
		OrderStore:   getEnv("ORDER_STORE", BackendMongo),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "artisan"),

		SQLitePath:          getEnv("SQLITE_PATH", "storefront.db"),
		SQLiteMigrationsDir: getEnv("SQLITE_MIGRATIONS_DIR", "internal/repository/catalog_migrations"),

		PostgresHost:          getEnv("POSTGRES_HOST", "localhost"),
		PostgresUser:          getEnv("POSTGRES_USER", "storefront"),
		PostgresPassword:      getEnv("POSTGRES_PASSWORD", "storefront"),
		PostgresDB:            getEnv("POSTGRES_DB", "storefront"),
		PostgresMigrationsDir: getEnv("POSTGRES_MIGRATIONS_DIR", "internal/repository/migrations"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-orders"),

		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	cfg.RequestTimeout = getDuration("REQUEST_TIMEOUT", 30*time.Second, &errs)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs)
	cfg.GatewayTimeout = getDuration("GATEWAY_TIMEOUT", 10*time.Second, &errs)
	cfg.AbandonAfter = getDuration("ABANDON_AFTER", 24*time.Hour, &errs)
	cfg.PostgresPort = getInt("POSTGRES_PORT", 5432, &errs)
	cfg.RedisDB = getInt("REDIS_DB", 0, &errs)

	if cfg.RazorpayKeyID == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_ID is required"))
	}
	if cfg.RazorpayKeySecret == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_SECRET is required"))
	}
	switch cfg.CatalogStore {
	case BackendMongo, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("CATALOG_STORE must be one of %q, %q, %q, got %q",
			BackendMongo, BackendSQLite, BackendMemory, cfg.CatalogStore))
	}
	switch cfg.OrderStore {
	case BackendMongo, BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("ORDER_STORE must be one of %q, %q, %q, got %q",
			BackendMongo, BackendPostgres, BackendMemory, cfg.OrderStore))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
