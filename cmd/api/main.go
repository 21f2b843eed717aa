package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oakmart/api/internal/di"
	"github.com/oakmart/api/internal/handlers"
	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/platform/config"
	"github.com/oakmart/api/internal/platform/observability"
)

const cacheCleanupBatch = 256

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, di.ContainerDeps{Logger: logger})
	if err != nil {
		logger.Fatal("failed to build dependencies", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("failed to close firestore provider", zap.Error(err))
		}
	}()

	if err := container.Migrate(ctx); err != nil {
		logger.Fatal("startup migration failed", zap.Error(err))
	}

	var authn *auth.Authenticator
	if cfg.Firebase.ProjectID != "" {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		authn = auth.NewAuthenticator(verifier)
	} else {
		logger.Warn("firebase project not configured; authenticated routes will reject requests")
		authn = auth.NewAuthenticator(nil)
	}

	svc := container.Services
	health := handlers.NewHealthHandlers(
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := container.Provider.Client(ctx)
			return err
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithProductRoutes(handlers.NewProductHandlers(authn, svc.Catalog, svc.Search).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(authn, svc.Cart).Routes),
		handlers.WithCouponRoutes(handlers.NewCouponHandlers(authn, svc.Coupons).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(authn, svc.Checkout).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(authn, svc.Orders).Routes),
	)

	maintenanceCtx, cancelMaintenance := context.WithCancel(ctx)
	var maintenanceWG sync.WaitGroup
	startCouponSweep(maintenanceCtx, &maintenanceWG, container, cfg, logger.Named("coupons"))
	startCacheCleanup(maintenanceCtx, &maintenanceWG, container, logger.Named("cache"))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("oakmart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cancelMaintenance()
	maintenanceWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func startCouponSweep(ctx context.Context, wg *sync.WaitGroup, container *di.Container, cfg config.Config, logger *zap.Logger) {
	interval := cfg.Checkout.CouponSweepInterval
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := container.Services.Coupons.SweepExpired(ctx)
				switch {
				case err != nil:
					logger.Error("expired coupon sweep failed", zap.Error(err))
				case removed > 0:
					logger.Info("expired coupons removed", zap.Int("count", removed))
				}
			}
		}
	}()
}

func startCacheCleanup(ctx context.Context, wg *sync.WaitGroup, container *di.Container, logger *zap.Logger) {
	interval := container.Config.Cache.SearchTTL
	if interval <= 0 {
		interval = time.Minute
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := container.Cache.CleanupExpired(ctx, time.Now(), cacheCleanupBatch); removed > 0 {
					logger.Debug("expired cache entries removed", zap.Int("count", removed))
				}
			}
		}
	}()
}
