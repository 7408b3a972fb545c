package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/clinicore/visit-api/internal/config"
	"github.com/clinicore/visit-api/internal/email"
	authHandler "github.com/clinicore/visit-api/internal/handler/auth"
	financeHandler "github.com/clinicore/visit-api/internal/handler/finance"
	healthHandler "github.com/clinicore/visit-api/internal/handler/health"
	visitHandler "github.com/clinicore/visit-api/internal/handler/visit"
	"github.com/clinicore/visit-api/internal/middleware"
	"github.com/clinicore/visit-api/internal/repository/postgres"
	"github.com/clinicore/visit-api/internal/router"
	authService "github.com/clinicore/visit-api/internal/service/auth"
	financeService "github.com/clinicore/visit-api/internal/service/finance"
	ledgerService "github.com/clinicore/visit-api/internal/service/ledger"
	participantService "github.com/clinicore/visit-api/internal/service/participant"
	visitService "github.com/clinicore/visit-api/internal/service/visit"
	"github.com/clinicore/visit-api/pkg/auth"
	"github.com/clinicore/visit-api/pkg/logger"
	"github.com/clinicore/visit-api/pkg/messaging"
	redisbroker "github.com/clinicore/visit-api/pkg/messaging/redis"
	"github.com/clinicore/visit-api/pkg/metrics"
	"github.com/clinicore/visit-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})

	db, err := postgres.NewDB(postgres.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	visitRepo := postgres.NewVisitRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)

	// Lifecycle events are best-effort; the service runs without a broker.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		}, &appLogger)
		if err != nil {
			appLogger.Warn().Err(err).Msg("redis unavailable, lifecycle events disabled")
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	var emailSvc email.Service
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, appLogger)
	}

	m := metrics.NewMetrics("visitapi")
	hasher := security.NewBcryptHasher(12)
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})

	// Services
	participantSvc := participantService.NewService(participantRepo, hasher, appLogger)
	authSvc := authService.NewService(participantRepo, jwtSvc, hasher, appLogger)
	visitSvc := visitService.NewService(visitRepo, participantSvc, broker, emailSvc, m, appLogger)
	ledgerSvc := ledgerService.NewService(visitRepo, m, appLogger)
	financeSvc := financeService.NewService(visitRepo, participantRepo, m, appLogger)

	// Handlers
	authH := authHandler.NewHandler(authSvc, participantSvc)
	visitH := visitHandler.NewHandler(visitSvc, ledgerSvc)
	financeH := financeHandler.NewHandler(financeSvc)
	healthH := healthHandler.NewHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(authMiddleware, authH, visitH, financeH, healthH, router.Config{
		RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
		RateBurst:     cfg.Server.RateLimitBurst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "visitapi",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("forced shutdown")
	}
}
