package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every runtime knob of the auction engine. Values come from
// the environment, optionally seeded from a .env file.
type Config struct {
	HTTPAddr          string
	RedisAddr         string
	KafkaBrokers      []string
	ServiceName       string
	PaymentGatewayURL string
	OrderServiceURL   string

	// SweepInterval is how often the status scheduler ticks.
	SweepInterval time.Duration
	// SettleInterval is how often pending settlement tasks are claimed.
	SettleInterval time.Duration
	// MinIncrement is the minimum amount a bid must exceed the current bid by.
	MinIncrement decimal.Decimal
	// CaptureRetries bounds the payment capture retry loop.
	CaptureRetries int
}

// Load reads the environment (after a best-effort .env load) into a Config.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":9000"),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:      splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		ServiceName:       getenv("SERVICE_NAME", "auction-engine"),
		PaymentGatewayURL: getenv("PAYMENT_GATEWAY_URL", "http://localhost:9100"),
		OrderServiceURL:   getenv("ORDER_SERVICE_URL", "http://localhost:9200"),
		SweepInterval:     getDuration("SWEEP_INTERVAL", 5*time.Second),
		SettleInterval:    getDuration("SETTLE_INTERVAL", 5*time.Second),
		MinIncrement:      getDecimal("MIN_BID_INCREMENT", decimal.NewFromInt(1)),
		CaptureRetries:    getInt("CAPTURE_RETRIES", 3),
	}
}

// BuildPostgresDSN assembles the connection string from the DB_* variables.
func BuildPostgresDSN() string {
	_ = godotenv.Load()
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", "postgres")
	password := getenv("DB_PASSWORD", "postgres")
	dbname := getenv("DB_NAME", "auctions")
	sslmode := getenv("DB_SSLMODE", "disable")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode,
	)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDecimal(k string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
