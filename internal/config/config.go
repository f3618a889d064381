package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	TrustedProxies     []string
	MigrateOnStart     bool

	// Identity provider token verification.
	AuthSecret      string
	AuthIssuer      string
	AuthAudience    string
	AuthClockSkew   time.Duration
	AdminEmails     []string
	AdminAPIKeyHash string

	// Pricing, all money in paise.
	FreeShippingThreshold int64
	ShippingFlat          int64
	TaxRateBPS            int64
	TaxRoundingUnit       int64
	CurrencyCode          string

	CartTTL               time.Duration
	CartSweepInterval     time.Duration
	OrderTrustClientTotal bool
	OrderTotalTolerance   int64
	CheckoutLockTTL       time.Duration
	LockRetryBackoff      time.Duration
	IdempotencyTTL        time.Duration

	CatalogCacheTTL     time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int

	UPIPayeeVPA  string
	UPIPayeeName string
	UPIQRSize    int

	RateLimitBackend     string
	EnquiryRateLimit     int
	EnquiryRateWindow    time.Duration
	SawamaniMaxGrams     int64
	SawamaniPackingsGram []int64

	KafkaBrokers  []string
	KafkaTopic    string
	EventsToKafka bool
	EventsToTasks bool

	MediaUploadURL      string
	MediaAPIKey         string
	MediaAPISecret      string
	MediaFolder         string
	MediaMaxBytes       int64
	OutboundTimeout     time.Duration
	RetryMaxAttempts    int
	RetryBase           time.Duration
	RetryJitter         float64
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	MailFrom          string
	WorkerConcurrency int
	BodyLimitBytes    int64
	SecurityHeaders   bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		TrustedProxies:     splitAndTrim(k.String("TRUSTED_PROXIES")),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START"), false),

		AuthSecret:      k.String("AUTH_JWT_SECRET"),
		AuthIssuer:      strings.TrimSpace(k.String("AUTH_JWT_ISSUER")),
		AuthAudience:    strings.TrimSpace(k.String("AUTH_JWT_AUDIENCE")),
		AuthClockSkew:   parseDuration(k.String("AUTH_CLOCK_SKEW"), "30s"),
		AdminEmails:     lowerAll(splitAndTrim(k.String("ADMIN_EMAILS"))),
		AdminAPIKeyHash: strings.TrimSpace(k.String("ADMIN_API_KEY_HASH")),

		FreeShippingThreshold: parseInt64(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), 100000),
		ShippingFlat:          parseInt64(k.String("PRICING_SHIPPING_FLAT"), 5900),
		TaxRateBPS:            parseInt64(k.String("PRICING_TAX_RATE_BPS"), 1800),
		TaxRoundingUnit:       parseInt64(k.String("PRICING_TAX_ROUNDING_UNIT"), 100),
		CurrencyCode:          valueOrDefault(k.String("CURRENCY_CODE"), "INR"),

		CartTTL:               parseDuration(k.String("CART_TTL"), "20m"),
		CartSweepInterval:     parseDuration(k.String("CART_SWEEP_INTERVAL"), "5m"),
		OrderTrustClientTotal: parseBool(k.String("ORDER_TRUST_CLIENT_TOTAL"), true),
		OrderTotalTolerance:   parseInt64(k.String("ORDER_TOTAL_TOLERANCE"), 100),
		CheckoutLockTTL:       parseDuration(k.String("CHECKOUT_LOCK_TTL"), "15s"),
		LockRetryBackoff:      parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		IdempotencyTTL:        parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 100),

		UPIPayeeVPA:  strings.TrimSpace(k.String("UPI_PAYEE_VPA")),
		UPIPayeeName: valueOrDefault(k.String("UPI_PAYEE_NAME"), "Mithai Bhandar"),
		UPIQRSize:    parseInt(k.String("UPI_QR_SIZE"), 256),

		RateLimitBackend:     strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), "redis")),
		EnquiryRateLimit:     parseInt(k.String("ENQUIRY_RATE_LIMIT"), 5),
		EnquiryRateWindow:    parseDuration(k.String("ENQUIRY_RATE_WINDOW"), "15m"),
		SawamaniMaxGrams:     parseInt64(k.String("SAWAMANI_MAX_GRAMS"), 50000),
		SawamaniPackingsGram: parseInt64List(k.String("SAWAMANI_PACKINGS_GRAMS"), []int64{250, 500, 1000, 2000}),

		KafkaBrokers:  splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaTopic:    valueOrDefault(k.String("KAFKA_TOPIC"), "mithai.domain-events"),
		EventsToKafka: parseBool(k.String("EVENTS_KAFKA_ENABLED"), false),
		EventsToTasks: parseBool(k.String("EVENTS_TASKS_ENABLED"), true),

		MediaUploadURL:      strings.TrimSpace(k.String("MEDIA_UPLOAD_URL")),
		MediaAPIKey:         strings.TrimSpace(k.String("MEDIA_API_KEY")),
		MediaAPISecret:      strings.TrimSpace(k.String("MEDIA_API_SECRET")),
		MediaFolder:         valueOrDefault(k.String("MEDIA_FOLDER"), "mithai"),
		MediaMaxBytes:       parseInt64(k.String("MEDIA_MAX_BYTES"), 5<<20),
		OutboundTimeout:     parseDuration(k.String("OUTBOUND_TIMEOUT"), "10s"),
		RetryMaxAttempts:    parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryBase:           parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryJitter:         parseFloat(k.String("RETRY_JITTER"), 0.2),
		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		MailFrom:          valueOrDefault(k.String("MAIL_FROM"), "orders@mithai.local"),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 10),
		BodyLimitBytes:    parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		SecurityHeaders:   parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if c.AuthSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.TaxRoundingUnit <= 0 {
		return errors.New("PRICING_TAX_ROUNDING_UNIT must be positive")
	}
	if c.FreeShippingThreshold < 0 || c.ShippingFlat < 0 || c.TaxRateBPS < 0 {
		return errors.New("pricing settings must not be negative")
	}
	switch c.RateLimitBackend {
	case "redis", "ulule", "memory":
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND %q is not supported", c.RateLimitBackend)
	}
	if c.EventsToKafka && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when EVENTS_KAFKA_ENABLED is set")
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64List(value string, fallback []int64) []int64 {
	parts := splitAndTrim(value)
	if len(parts) == 0 {
		return fallback
	}
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v <= 0 {
			return fallback
		}
		out = append(out, v)
	}
	return out
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
