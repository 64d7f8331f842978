package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/credential"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/core/token"
	redisdb "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API serving /auth/register, /auth/login and /auth/me,
plus health, metrics and swagger endpoints.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, nil)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "authd",
	})

	// A missing or weak signing secret must stop the process before it serves.
	issuer, err := token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		log.Error().Err(err).Msg("invalid token configuration")
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger.Component("store"))
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open account store")
		return err
	}
	defer closeStore()

	hasher := queue.NewHashDispatcher(cfg.Auth.HashWorkers,
		credential.NewArgon2idHasher(credential.DefaultParams),
		logger.Component("hasher"),
		queue.WithMetrics(queue.Metrics{
			QueueDepth: metrics.HashQueueDepth,
			Duration:   metrics.CredentialHashDuration,
		}),
	)
	// Workers outlive the signal so in-flight requests can finish during shutdown.
	hasher.Start(context.WithoutCancel(ctx))
	defer hasher.Stop()

	opts := []service.Option{service.WithLogger(logger.Component("auth"))}
	checks := map[string]handlers.Pinger{"store": store}

	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, registration guard disabled")
		} else {
			defer func() { _ = rdb.Close() }()
			opts = append(opts, service.WithRegistrationGuard(redisdb.NewRegistrationGuard(rdb, logger.Component("redis"))))
			checks["redis"] = redisdb.Pinger{Client: rdb}
		}
	}

	authService := service.NewAuthService(store, hasher, issuer, opts...)
	authService.Warm(ctx)

	e := api.NewRouter(api.Deps{
		AuthService:    authService,
		Tokens:         issuer,
		Checks:         checks,
		Log:            logger.Component("http"),
		RequestTimeout: cfg.RequestTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
