package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	accountscontroller "github.com/medeez/gate/internal/accounts/controller"
	accountsrepo "github.com/medeez/gate/internal/accounts/repository"
	accountsservice "github.com/medeez/gate/internal/accounts/service"
	adomain "github.com/medeez/gate/internal/audit/domain"
	auditservice "github.com/medeez/gate/internal/audit/service"
	challengecontroller "github.com/medeez/gate/internal/challenge/controller"
	challengeservice "github.com/medeez/gate/internal/challenge/service"
	"github.com/medeez/gate/internal/config"
	emailservice "github.com/medeez/gate/internal/email/service"
	"github.com/medeez/gate/internal/gate"
	"github.com/medeez/gate/internal/logger"
	"github.com/medeez/gate/internal/metrics"
	"github.com/medeez/gate/internal/platform/ratelimit"
	"github.com/medeez/gate/internal/platform/validation"
	"github.com/medeez/gate/internal/tenant"
	"github.com/medeez/gate/internal/token"
	"github.com/medeez/gate/internal/version"
)

func main() {
	if handleCLICommand(os.Args[1:]) {
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv)
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Msg("starting gate server")

	// Init Postgres
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	pgPool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create pg pool")
	}
	defer pgPool.Close()

	// Init Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	devMode := cfg.AppEnv == "development"

	// Audit sink: structured log locally, redis stream everywhere else.
	var publisher adomain.Publisher = auditservice.NewLogger(log)
	if !devMode {
		publisher = auditservice.NewStream(redisClient, log)
	}

	// Token verification: resolve the JWKS endpoint, build the bounded key
	// cache, and wire the verifier.
	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.IssuerURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		jwksURL, err = token.DiscoverJWKSURL(ctx, cfg.IssuerURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("jwks discovery failed")
		}
	}
	keys := token.NewRemoteKeySet(token.RemoteKeySetOptions{
		URL:            jwksURL,
		TTL:            cfg.JWKSCacheTTL,
		MaxEntries:     cfg.JWKSCacheMaxEntries,
		FetchPerMinute: cfg.JWKSFetchPerMinute,
	})
	verifier := token.NewVerifier(keys, token.VerifierOptions{
		Issuer:      cfg.IssuerURL,
		MaxTokenAge: cfg.MaxTokenAge,
	})

	authGate := gate.New(verifier, publisher, log)
	guard := tenant.NewGuard(publisher, log, devMode)

	// Accounts slice
	repo := accountsrepo.NewPostgres(pgPool)
	limitStore := ratelimit.NewRedisStore(redisClient)
	preAuth := accountsservice.NewPreAuth(repo, limitStore, publisher, log, accountsservice.PreAuthConfig{
		TrialGracePeriod:   cfg.TrialGracePeriod,
		LoginAttemptLimit:  cfg.LoginAttemptLimit,
		LoginAttemptWindow: cfg.LoginAttemptWindow,
	})
	preSignup := accountsservice.NewPreSignup(repo, publisher, log, cfg.DisposableDomains)

	// Challenge slice
	sender := emailservice.NewRouter(cfg)
	creator := challengeservice.NewCreator(sender, log)
	postAuth := challengeservice.NewPostAuth(repo, publisher, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(metrics.HTTPMiddleware())

	// Validator
	e.Validator = validation.New()

	// Provider hook endpoints, IP rate limited.
	hooks := e.Group("/hooks", ratelimit.Middleware(ratelimit.Policy{
		Name:   "hooks",
		Window: time.Minute,
		Limit:  120,
		Key:    ratelimit.KeyByIP("hooks"),
	}, limitStore))
	challengecontroller.New(creator, postAuth, cfg.MFASessionCap).Register(hooks)
	accountscontroller.New(preAuth, preSignup).Register(hooks)

	// Authenticated probe running the full pipeline.
	e.GET("/me", func(c echo.Context) error {
		id, _ := gate.Identity(c)
		clinicID, _ := tenant.TargetClinicID(c)
		return c.JSON(http.StatusOK, map[string]any{
			"sub":      id.Sub,
			"email":    id.Email,
			"clinicId": clinicID,
			"role":     id.Role,
			"groups":   id.Groups,
		})
	}, authGate.RequireAuth(), guard.Isolate())

	// Health endpoint pings DB and Redis
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := "ok"
		if err := pgPool.Ping(ctx); err != nil {
			dbStatus = "down"
		}

		cacheStatus := "ok"
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			cacheStatus = "down"
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version.String(),
			"time":    time.Now().UTC().Format(time.RFC3339),
			"db":      dbStatus,
			"cache":   cacheStatus,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Start server
	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
