package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/riskops/backend/api/handler"
	"github.com/riskops/backend/eventbus"
	"github.com/riskops/backend/internal/config"
	"github.com/riskops/backend/internal/infrastructure/monitor"
	"github.com/riskops/backend/internal/infrastructure/outbox"
	pgInfra "github.com/riskops/backend/internal/infrastructure/postgres"
	redisInfra "github.com/riskops/backend/internal/infrastructure/redis"
	"github.com/riskops/backend/internal/router"
	"github.com/riskops/backend/internal/services"
	"github.com/riskops/backend/internal/services/lifecycle"
	"github.com/riskops/backend/pkg/httpcontext"
	"github.com/riskops/backend/pkg/logger"
	"github.com/riskops/backend/repository/postgres"
	redisRepo "github.com/riskops/backend/repository/redis"
	riskUC "github.com/riskops/backend/usecase/risk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	journal, err := outbox.Open(cfg.Outbox.Path, cfg.Outbox.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open event journal", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return journal.Close()
	})

	bus := eventbus.New(zapLogger)
	bus.SubscribeAll("event_journal", 0, journal.Handler())

	pruneStop := startOutboxPruner(journal, cfg.Outbox, zapLogger)
	manager.Register("outbox_pruner", func(ctx context.Context) error {
		pruneStop()
		return nil
	})

	mon := monitor.New(pool, redisClient, journal, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	riskRepo := postgres.NewRiskRepository(pool, bus, zapLogger)
	statsCache := redisRepo.NewStatsCache(redisClient, cfg.Stats.CacheTTL)

	riskService := riskUC.New(riskRepo, statsCache, zapLogger)

	if cfg.Review.Enabled {
		sweeper := services.NewReviewSweeper(riskRepo, bus, cfg.Review.Schedule, zapLogger)
		if err := sweeper.Start(); err != nil {
			zapLogger.Fatal("review sweeper failed to start", zap.Error(err))
		}
		manager.Register("review_sweeper", func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Risk:   apiHandler.NewRiskHandler(riskService, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func startOutboxPruner(journal *outbox.Journal, cfg config.OutboxConfig, logger *zap.Logger) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.PruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().Add(-time.Duration(cfg.RetentionHours) * time.Hour)
				if err := journal.Prune(cutoff); err != nil {
					logger.Warn("outbox prune failed", zap.Error(err))
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}
