package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kitchen-challenge-system/cache"
	"kitchen-challenge-system/config"
	"kitchen-challenge-system/handlers"
	"kitchen-challenge-system/middleware"
	"kitchen-challenge-system/models"
	"kitchen-challenge-system/services"
	"kitchen-challenge-system/utils"
	"kitchen-challenge-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, foundDotenv, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !foundDotenv {
		logger.Info("no .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})

	// GLOBAL: only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, logger))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	var storage utils.Uploader
	if cfg.R2.Enabled() {
		if storage, err = utils.NewR2Storage(ctx, cfg.R2); err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
	} else {
		local, err := utils.NewLocalStorage("./uploads", "/uploads")
		if err != nil {
			logger.Fatal("failed to ensure upload dir", zap.Error(err))
		}
		storage = local
		app.Static("/uploads", "./uploads")
		logger.Warn("R2 not configured, storing uploads locally")
	}

	var leaderboardCache cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, "kitchen-challenges")
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisCache.Close() }()
		leaderboardCache = redisCache
	}

	policy, err := services.ParseZeroProgressPolicy(cfg.ZeroProgressPolicy)
	if err != nil {
		logger.Fatal("invalid settlement policy", zap.Error(err))
	}

	clock := clockwork.NewRealClock()
	notifier := services.NewNotificationService(db, clock)
	ledger := services.NewLedgerService(db, clock, logger)
	badges := services.NewBadgeService(db, clock, notifier, logger)
	challenges := services.NewChallengeService(db, ledger, badges, notifier, leaderboardCache, clock, logger, policy)

	sched, err := challenges.StartSettlementScheduler(ctx, cfg.SweepInterval)
	if err != nil {
		logger.Fatal("failed to start settlement scheduler", zap.Error(err))
	}
	defer func() { _ = sched.Shutdown() }()

	if cfg.SyncServiceURL != "" {
		syncWorker := workers.NewAccountSyncWorker(db, logger, utils.SyncHTTPClient,
			cfg.SyncServiceURL, cfg.SyncEndpointPath, cfg.ServiceToken, cfg.SyncInterval)
		syncWorker.Start(ctx)
	} else {
		logger.Warn("SYNC_SERVICE_URL not set, account sync disabled")
	}

	handlers.SetupRoutes(app, &handlers.API{
		Accounts:      services.NewAccountService(db, badges),
		Challenges:    challenges,
		Posts:         services.NewPostService(db, challenges, badges, logger),
		Credits:       services.NewCreditRequestService(db, ledger, notifier, clock, logger),
		Ledger:        ledger,
		Notifications: notifier,
		Badges:        badges,
		Storage:       storage,
		Log:           logger,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.String("zero_progress_policy", string(policy)))

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
