// Package config reads the storefront's environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port     string
	LogLevel string

	ServiceName  string
	OTLPEndpoint string // empty disables span export

	RedisAddr   string // empty keeps carts in memory
	CartTTL     time.Duration
	SessionIdle time.Duration

	SagaDBPath string // empty keeps the saga log in memory

	SettlementDelay time.Duration
	SettlementLimit decimal.Decimal

	HFAPIKey    string
	HFModelURL  string
	ChatTimeout time.Duration

	CatalogPath string
}

func Load() Config {
	return Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		ServiceName:  getenv("OTEL_SERVICE_NAME", "storefront"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		RedisAddr:   getenv("REDIS_ADDR", ""),
		CartTTL:     parseDuration(getenv("CART_TTL", "168h"), 7*24*time.Hour),
		SessionIdle: parseDuration(getenv("SESSION_IDLE", "30m"), 30*time.Minute),

		SagaDBPath: getenv("SAGA_DB_PATH", ""),

		SettlementDelay: parseDuration(getenv("SETTLEMENT_DELAY", "2s"), 2*time.Second),
		SettlementLimit: parseDecimal(getenv("SETTLEMENT_LIMIT", "0"), decimal.Zero),

		HFAPIKey:    getenv("HF_API_KEY", ""),
		HFModelURL:  getenv("HF_MODEL_URL", "https://api-inference.huggingface.co/models/distilgpt2"),
		ChatTimeout: parseDuration(getenv("CHAT_TIMEOUT", "60s"), 60*time.Second),

		CatalogPath: getenv("CATALOG_PATH", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func parseDecimal(v string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}
