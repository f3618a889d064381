package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/auth"
	"github.com/noah-isme/backend-mithai/internal/cart"
	"github.com/noah-isme/backend-mithai/internal/catalog"
	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/config"
	"github.com/noah-isme/backend-mithai/internal/db"
	"github.com/noah-isme/backend-mithai/internal/enquiry"
	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/health"
	"github.com/noah-isme/backend-mithai/internal/lock"
	"github.com/noah-isme/backend-mithai/internal/media"
	"github.com/noah-isme/backend-mithai/internal/notify"
	"github.com/noah-isme/backend-mithai/internal/obs"
	"github.com/noah-isme/backend-mithai/internal/order"
	"github.com/noah-isme/backend-mithai/internal/payment"
	"github.com/noah-isme/backend-mithai/internal/pricing"
	"github.com/noah-isme/backend-mithai/internal/ratelimit"
	"github.com/noah-isme/backend-mithai/internal/realtime"
	"github.com/noah-isme/backend-mithai/internal/resilience"
	"github.com/noah-isme/backend-mithai/internal/sawamani"
	"github.com/noah-isme/backend-mithai/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "mithai")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "mithai-api",
			ServiceVersion: envOrDefault("APP_VERSION", ""),
			Endpoint:       envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:       envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio:  envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()
	queries := db.New(pool)

	redisClient := mustInitRedis(ctx, cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:      cfg.AuthSecret,
		Issuer:      cfg.AuthIssuer,
		Audience:    cfg.AuthAudience,
		ClockSkew:   cfg.AuthClockSkew,
		AdminEmails: cfg.AdminEmails,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{
		Verifier:   verifier,
		APIKeys:    auth.NewAPIKeys(cfg.AdminAPIKeyHash),
		QueryParam: "token",
		Logger:     logger,
	}

	hub := realtime.NewHub(cfg.CORSAllowedOrigins, logger)

	notifiers := []events.Notifier{hub}
	if cfg.EventsToTasks {
		redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse task queue redis url")
		}
		taskClient := asynq.NewClient(redisOpt)
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close task client")
			}
		}()
		notifiers = append(notifiers, notify.TaskNotifier{Client: taskClient})
	}
	if cfg.EventsToKafka {
		writer := events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error().Err(err).Msg("close kafka writer")
			}
		}()
		notifiers = append(notifiers, events.KafkaNotifier{Writer: writer})
	}
	bus := &events.Bus{Store: queries, Notifiers: notifiers}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      queries,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	policy := pricing.Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFlat:          cfg.ShippingFlat,
		TaxBps:                cfg.TaxRateBPS,
		TaxRoundingUnit:       cfg.TaxRoundingUnit,
	}

	cartSvc := &cart.Service{
		Q:       queries,
		Catalog: catalogService,
		Pricing: policy,
		TTL:     cfg.CartTTL,
		Logger:  logger,
	}

	orderSvc := &order.Service{
		Q:                queries,
		Tx:               order.PgxTxRunner{Pool: pool, Q: queries},
		Catalog:          catalogService,
		Cart:             cartSvc,
		Pricing:          policy,
		Events:           bus,
		Locker:           lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL:          cfg.CheckoutLockTTL,
		TrustClientTotal: cfg.OrderTrustClientTotal,
		Tolerance:        cfg.OrderTotalTolerance,
		Logger:           logger,
	}

	paymentSvc := &payment.Service{
		Orders:   orderSvc,
		Payee:    payment.Payee{VPA: cfg.UPIPayeeVPA, Name: cfg.UPIPayeeName},
		Currency: cfg.CurrencyCode,
		QRSize:   cfg.UPIQRSize,
		Logger:   logger,
	}

	enquirySvc := &enquiry.Service{Q: queries, Events: bus, Logger: logger}
	sawamaniSvc := &sawamani.Service{
		Q:         queries,
		Catalog:   catalogService,
		Allocator: sawamani.NewAllocator(cfg.SawamaniPackingsGram, cfg.SawamaniMaxGrams),
		Events:    bus,
		Logger:    logger,
	}

	uploader := &media.Uploader{
		HTTP: resilience.HTTPClient{
			Client:      resilience.NewTracedClient(cfg.OutboundTimeout),
			Breaker:     resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).WithTarget("media-upload").WithLogger(logger),
			BaseBackoff: cfg.RetryBase,
			MaxAttempts: cfg.RetryMaxAttempts,
			Jitter:      cfg.RetryJitter,
			Timeout:     cfg.OutboundTimeout,
			Target:      "media-upload",
			Logger:      logger,
		},
		URL:       cfg.MediaUploadURL,
		APIKey:    cfg.MediaAPIKey,
		APISecret: cfg.MediaAPISecret,
		Folder:    cfg.MediaFolder,
		MaxBytes:  cfg.MediaMaxBytes,
		Logger:    logger,
	}

	limits, err := ratelimit.NewBackend(cfg.RateLimitBackend, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	var pprofHandler http.Handler
	if envBool("OBS_ENABLE_PPROF", !cfg.IsProduction()) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		pprofHandler = protectPprof(newPprofMux(), user, pass)
	}

	trustedProxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse TRUSTED_PROXIES")
	}

	handler := newRouter(routes{
		Logger:      logger,
		Auth:        authMiddleware,
		Idem:        common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL},
		Limits:      limits,
		LimitWindow: cfg.EnquiryRateWindow,
		LimitMax:    cfg.EnquiryRateLimit,
		CORSOrigins: cfg.CORSAllowedOrigins,
		RealIP:      security.RealIP{Trusted: trustedProxies},
		Headers: security.Headers{
			Enable:                cfg.SecurityHeaders,
			EnableHSTS:            cfg.IsProduction(),
			HSTSIncludeSubdomains: true,
		},
		BodyLimit:   security.BodyLimit{Max: cfg.BodyLimitBytes},
		HTTPMetrics: httpMetrics,
		Tracing:     tracingEnabled,
		Pprof:       pprofHandler,
		Health: health.Handler{
			Checker:      readinessChecker{db: pool, redis: redisClient},
			DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
			RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		},
		Catalog:     catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Cart:        &cart.Handler{Svc: cartSvc},
		Orders:      &order.Handler{Svc: orderSvc},
		OrdersAdmin: &order.AdminHandler{Svc: orderSvc},
		Payments:    &payment.Handler{Svc: paymentSvc},
		Enquiries:   &enquiry.Handler{Svc: enquirySvc},
		Sawamani:    &sawamani.Handler{Svc: sawamaniSvc},
		Media:       &media.Handler{Uploader: uploader},
		Live:        hub,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "mithai-api"

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics bool) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
