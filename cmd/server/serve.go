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

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campusconnect/docs"
	"campusconnect/internal/auth"
	"campusconnect/internal/cache"
	"campusconnect/internal/config"
	"campusconnect/internal/db"
	"campusconnect/internal/handler"
	"campusconnect/internal/livekit"
	"campusconnect/internal/mail"
	"campusconnect/internal/metrics"
	"campusconnect/internal/repository"
	"campusconnect/internal/router"
	"campusconnect/internal/service"
)

const shutdownTimeout = 10 * time.Second

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, cfg.IsDevelopment(), logger)
	if err != nil {
		logger.Error("server.db_connect_failed", zap.Error(err))
		return err
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, logger); err != nil {
		logger.Error("server.migrate_failed", zap.Error(err))
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		logger.Warn("server.cache_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancelPing()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterMetrics(registry)

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	listingRepo := repository.NewListingRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)
	livestreamRepo := repository.NewLivestreamRepository(gormDB)

	// Auth components
	accessCodec := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn)
	refreshCodec := auth.NewJWTService(cfg.RefreshSecret, cfg.RefreshExpiresIn)
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	// Services
	authService := service.NewAuthService(userRepo, accessCodec, refreshCodec, notifier, cacheClient, service.AuthConfig{
		EmailDomain:     cfg.EmailDomain,
		BcryptCost:      cfg.BcryptCost,
		VerificationTTL: cfg.VerificationTokenTTL,
	}, logger)
	resetService := service.NewPasswordResetService(userRepo, auth.NewTokenHasher(cfg.ResetTokenKey), notifier, service.ResetConfig{
		TokenTTL:   cfg.ResetTokenTTL,
		BcryptCost: cfg.BcryptCost,
	}, logger)
	eventService := service.NewEventService(eventRepo, logger)
	marketplaceService := service.NewMarketplaceService(listingRepo, cacheClient, logger)
	postService := service.NewPostService(postRepo, logger)

	var (
		rooms    livekit.RoomProvider
		webhooks handler.WebhookParser
	)
	provider, err := livekit.NewProvider(livekit.Config{
		URL:       cfg.LiveKitURL,
		APIKey:    cfg.LiveKitAPIKey,
		APISecret: cfg.LiveKitAPISecret,
	})
	switch {
	case err == nil:
		rooms, webhooks = provider, provider
	case errors.Is(err, livekit.ErrNotConfigured):
		logger.Warn("server.livekit_disabled")
	default:
		return fmt.Errorf("init livekit: %w", err)
	}
	livestreamService := service.NewLivestreamService(livestreamRepo, userRepo, rooms, logger)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, logger, registry, router.Gates{
		Access:  auth.NewAccessGate(accessCodec, userRepo, logger),
		Refresh: auth.NewRefreshGate(refreshCodec, userRepo, logger),
	}, router.Handlers{
		Auth:        handler.NewAuthHandler(authService, resetService),
		Users:       handler.NewUserHandler(authService),
		Events:      handler.NewEventHandler(eventService),
		Marketplace: handler.NewMarketplaceHandler(marketplaceService),
		Posts:       handler.NewPostHandler(postService),
		Livestreams: handler.NewLivestreamHandler(livestreamService, webhooks, logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.started", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server.start_failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", zap.Error(err))
		return err
	}
	return nil
}

// newNotifier returns the SMTP mailer, or a logging notifier when SMTP is
// not configured.
func newNotifier(cfg *config.Config, logger *zap.Logger) (mail.Notifier, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("server.smtp_disabled")
		return mail.NewLogNotifier(logger), nil
	}
	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		Username:        cfg.SMTPUser,
		Password:        cfg.SMTPKey,
		From:            cfg.FromEmail,
		FrontendURL:     cfg.FrontendURL,
		VerificationURL: cfg.EmailVerificationURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	return mailer, nil
}
