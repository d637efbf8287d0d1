// Package main - точка входа HTTP API Student Hub.
//
// API обслуживает дашборд интеграции, чек-лист, проверку университетской
// почты, AI-коуча (SSE), справку по городам, удаление аккаунта и оплату.
// Фоновые задачи выполняются отдельным процессом (cmd/worker).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/integration-hub/student-hub/config"

	// Application layer
	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/application/eventhandler"
	"github.com/integration-hub/student-hub/internal/application/query"

	// Domain layer
	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/verification"

	// Infrastructure layer
	"github.com/integration-hub/student-hub/internal/infrastructure/external/authadmin"
	"github.com/integration-hub/student-hub/internal/infrastructure/external/billing"
	"github.com/integration-hub/student-hub/internal/infrastructure/external/email"
	"github.com/integration-hub/student-hub/internal/infrastructure/external/llm"
	"github.com/integration-hub/student-hub/internal/infrastructure/external/search"
	"github.com/integration-hub/student-hub/internal/infrastructure/messaging"
	"github.com/integration-hub/student-hub/internal/infrastructure/metrics"
	"github.com/integration-hub/student-hub/internal/infrastructure/persistence/postgres"
	"github.com/integration-hub/student-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/integration-hub/student-hub/internal/interface/http"
	"github.com/integration-hub/student-hub/internal/interface/http/handlers"

	// Packages
	"github.com/integration-hub/student-hub/pkg/circuitbreaker"
	"github.com/integration-hub/student-hub/pkg/logger"
	"github.com/integration-hub/student-hub/pkg/retry"
)

// eventBus - шина событий процесса: in-memory или поверх Redis Pub/Sub.
type eventBus interface {
	shared.EventBus
	Close() error
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Корневой контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting Student Hub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)
	for name, f := range cfg.Features.GetAllFeatures() {
		log.Info("feature flag",
			logger.String("feature", name),
			logger.Bool("enabled", f.Enabled),
			logger.Int("rollout_percent", f.RolloutPercent),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL/Supabase)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := connectDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations...")
		applied, err := postgres.NewMigrator(dbConn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		redisCache, err = connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	profileRepo := postgres.NewProfileRepository(dbConn)
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	verificationRepo := postgres.NewVerificationRepository(dbConn)
	usageRepo := postgres.NewUsageRepository(dbConn)
	chatRepo := postgres.NewSolutionChatRepository(dbConn)
	accountRepo := postgres.NewAccountRepository(dbConn)

	var (
		profileCache profile.Cache
		cityCache    city.Cache
	)
	if redisCache != nil {
		profileCache = redis.NewProfileCache(redisCache)
		cityCache = redis.NewCityInsightsCache(redisCache, cfg.Search.CacheTTL)
	}
	profiles := profile.NewReader(profileRepo, profileCache, 0)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	bus, err := newEventBus(redisCache, log)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if profileCache != nil {
		if err := eventhandler.NewOnProfileChangedHandler(profileCache, log).Register(bus); err != nil {
			return fmt.Errorf("failed to register event handlers: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing external clients...")
	onBreaker := func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name), logger.String("from", from.String()), logger.String("to", to.String()))
	}

	llmClient := llm.NewClient(llm.Config{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		HeaderTimeout: cfg.LLM.Timeout,
		Breaker:       circuitbreaker.Upstream("llm", onBreaker),
		Logger:        log,
	})

	searchClient := search.NewClient(search.Config{
		BaseURL: cfg.Search.BaseURL,
		APIKey:  cfg.Search.APIKey,
		Model:   cfg.Search.Model,
		Timeout: cfg.Search.Timeout,
		Breaker: circuitbreaker.Upstream("search", onBreaker),
		Logger:  log,
	})

	var mailer verification.Mailer
	if cfg.Email.Configured() {
		mailer = email.NewClient(email.Config{
			BaseURL: cfg.Email.BaseURL,
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			Timeout: cfg.Email.Timeout,
			Logger:  log,
		})
	} else {
		log.Warn("email provider not configured, verification links go to the dev fallback")
	}

	identity := authadmin.NewClient(authadmin.Config{
		BaseURL:        cfg.Auth.AdminURL,
		ServiceRoleKey: cfg.Auth.ServiceRoleKey,
		Timeout:        cfg.Auth.AdminTimeout,
		Logger:         log,
	})

	var (
		checkout      command.CheckoutProvider
		stripeWebhook http.Handler
	)
	limits := quota.Limits{CoachDaily: cfg.Quota.CoachDailyLimit, SolutionChat: cfg.Quota.SolutionChatLimit}
	setPremium := command.NewSetPremiumHandler(profileRepo, profiles, bus)
	if cfg.Billing.Configured() {
		stripeClient := billing.NewClient(billing.Config{
			SecretKey:     cfg.Billing.SecretKey,
			WebhookSecret: cfg.Billing.WebhookSecret,
			PriceID:       cfg.Billing.PriceID,
			SuccessURL:    cfg.Billing.SuccessURL,
			CancelURL:     cfg.Billing.CancelURL,
			Logger:        log,
		})
		checkout = stripeClient
		if cfg.Billing.WebhookSecret != "" {
			stripeWebhook = handlers.NewStripeWebhookHandler(stripeClient, setPremium, log)
		}
	} else {
		log.Warn("Stripe not configured, checkout disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")

	deps := httpserver.Dependencies{
		// Queries
		GetMe:        query.NewGetMeHandler(profiles),
		GetChecklist: query.NewGetChecklistHandler(profiles, ledgerRepo),
		CityInsights: query.NewCityInsightsHandler(searchClient, cityCache, log),

		// Commands
		CompleteOnboarding: command.NewCompleteOnboardingHandler(profiles, profileRepo, ledgerRepo, bus),
		ToggleProgress:     command.NewToggleProgressHandler(profiles, ledgerRepo, bus),
		RequestVerification: command.NewRequestVerificationHandler(verificationRepo, profiles, mailer, bus, log,
			command.RequestVerificationConfig{
				PublicBaseURL:   cfg.App.PublicBaseURL,
				MaxAttempts:     cfg.Verification.MaxAttempts,
				Window:          cfg.Verification.AttemptWindow,
				DevLinkFallback: cfg.Features.DevLinkFallback,
			}),
		ConfirmVerification: command.NewConfirmVerificationHandler(verificationRepo, profiles, bus),
		CoachConversation:   command.NewCoachConversationHandler(profiles, usageRepo, llmClient, limits, log),
		SendSolutionMessage: command.NewSendSolutionMessageHandler(profiles, usageRepo, chatRepo, limits),
		DeleteAccount:       command.NewDeleteAccountHandler(accountRepo, identity, profiles, bus, log),
		StartCheckout:       command.NewStartCheckoutHandler(checkout, profiles),

		Tokens:        httpserver.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience),
		Features:      cfg.Features,
		Logger:        log,
		HealthChecker: newHealthChecker(cfg, dbConn, redisCache),
		StripeWebhook: stripeWebhook,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ЗАПУСК HTTP СЕРВЕРА
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	httpCfg.RateLimitRPS = cfg.HTTP.RateLimitRPS
	httpCfg.RateLimitBurst = cfg.HTTP.RateLimitBurst
	httpCfg.TrustProxyHeaders = cfg.HTTP.TrustProxyHeaders

	server := httpserver.NewServer(httpCfg, deps)
	errCh := server.StartAsync()

	log.Info("Student Hub API is running", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.AppName = cfg.App.Name
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	opts.FilePath = cfg.Observability.LogFile
	return logger.New(opts)
}

// connectDatabase подключается к Postgres с повторами: на старте контейнера
// база может быть ещё недоступна.
func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	opts := postgres.DefaultPoolOptions()
	opts.MaxConns = int32(cfg.Database.MaxOpenConns)
	opts.MinConns = int32(cfg.Database.MaxIdleConns)
	opts.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	opts.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	var conn *postgres.Connection
	retrier := retry.DatabaseRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable, retrying",
			logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
	})
	err := retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, cfg.Database.URL, opts)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// connectRedis создаёт клиент из REDIS_URL или из отдельных параметров.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Cache, error) {
	var (
		cache *redis.Cache
		err   error
	)
	if cfg.URL != "" {
		opts, perr := goredis.ParseURL(cfg.URL)
		if perr != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", perr)
		}
		opts.PoolSize = cfg.PoolSize
		opts.MinIdleConns = cfg.MinIdleConns
		cache = redis.NewCacheFromClient(goredis.NewClient(opts))
	} else {
		rc := redis.DefaultConfig()
		rc.Host = cfg.Host
		rc.Port = cfg.Port
		rc.Password = cfg.Password
		rc.DB = cfg.DB
		rc.PoolSize = cfg.PoolSize
		rc.MinIdleConns = cfg.MinIdleConns
		rc.DialTimeout = cfg.DialTimeout
		rc.ReadTimeout = cfg.ReadTimeout
		rc.WriteTimeout = cfg.WriteTimeout
		if cache, err = redis.NewCache(rc); err != nil {
			return nil, err
		}
	}

	retrier := retry.CacheRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("Redis not reachable, retrying", logger.Int("attempt", attempt), logger.Err(err))
	})
	if err := retrier.Do(ctx, cache.Ping); err != nil {
		_ = cache.Close()
		return nil, err
	}
	return cache, nil
}

// newEventBus возвращает шину поверх Redis, если он доступен, иначе локальную.
func newEventBus(cache *redis.Cache, log *logger.Logger) (eventBus, error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.AsyncMode = true
	local.Logger = log
	local.OnHandled = func(t shared.EventType, d time.Duration, err error) {
		metrics.EventHandled(string(t), d, err)
	}

	if cache == nil {
		return messaging.NewInMemoryEventBus(local), nil
	}
	return messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         redis.NewPubSubAdapter(cache),
		LocalBusConfig: local,
		Logger:         log,
	})
}

// newHealthChecker: Postgres критичен, Redis только ухудшает состояние.
func newHealthChecker(cfg *config.Config, db *postgres.Connection, cache *redis.Cache) handlers.HealthChecker {
	hc := handlers.NewCompositeHealthChecker(cfg.App.Version)
	hc.AddCheck("postgres", handlers.NewPingCheck(db))
	if cache != nil {
		hc.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
	}
	return hc
}
