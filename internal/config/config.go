package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	GRPCAddr    string
	LogLevel    string

	// MySQLDSN selects the MySQL store; empty runs on the in-memory store.
	MySQLDSN       string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration
	DBConnectTries int

	// RedisAddr selects Redis for idempotency, sequences and locks; empty
	// keeps them in process.
	RedisAddr string

	KafkaBrokers []string
	KafkaTopic   string

	// JWTSecret signs and verifies bearer tokens. It has no default.
	JWTSecret    string
	OTLPEndpoint string

	// BootstrapAdmin, when set, creates an admin profile for this principal
	// at startup if none exists.
	BootstrapAdmin     string
	BootstrapAdminName string

	ShutdownTimeout time.Duration
	LockTTL         time.Duration
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Load reads .env if present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName: getEnv("SERVICE_NAME", "order-desk"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MySQLDSN:       os.Getenv("MYSQL_DSN"),
		DBMaxOpenConns: intFromEnv("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns: intFromEnv("DB_MAX_IDLE_CONNS", 25),
		DBConnLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		DBConnectTries: intFromEnv("DB_CONNECT_ATTEMPTS", 30),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		KafkaBrokers: listFromEnv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		BootstrapAdmin:     os.Getenv("BOOTSTRAP_ADMIN_USER_ID"),
		BootstrapAdminName: getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),

		ShutdownTimeout: time.Duration(intFromEnv("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		LockTTL:         time.Duration(intFromEnv("ORDER_LOCK_TTL_SECONDS", 30)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func listFromEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
