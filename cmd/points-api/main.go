package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/dojoclub/points-api/api/swagger"
	"github.com/dojoclub/points-api/internal/handler"
	"github.com/dojoclub/points-api/internal/middleware"
	"github.com/dojoclub/points-api/internal/repository"
	"github.com/dojoclub/points-api/internal/service"
	"github.com/dojoclub/points-api/pkg/cache"
	"github.com/dojoclub/points-api/pkg/config"
	"github.com/dojoclub/points-api/pkg/database"
	"github.com/dojoclub/points-api/pkg/jobs"
	"github.com/dojoclub/points-api/pkg/logger"
	corsmiddleware "github.com/dojoclub/points-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dojoclub/points-api/pkg/middleware/requestid"
)

// @title Dojo Club Points API
// @version 0.1.0
// @description Points economy engine: ledger, levels, cosmetics and awards
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and leaderboard disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	loadoutRepo := repository.NewLoadoutRepository(db)
	unlockRepo := repository.NewUnlockRepository(db)
	thresholdRepo := repository.NewThresholdRepository(db)
	criteriaRepo := repository.NewCriteriaRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	giftRepo := repository.NewGiftRepository(db)
	wheelRepo := repository.NewWheelRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Economy.SnapshotCacheTTL, logr, redisClient != nil)
	thresholdSvc := service.NewThresholdService(thresholdRepo, cfg.Economy, logr)
	thresholdSvc.SetCache(cacheSvc)
	modifierSvc := service.NewModifierService(loadoutRepo, catalogRepo, logr)

	ledgerSvc := service.NewLedgerService(ledgerRepo, studentRepo, thresholdSvc, cacheRepo, cacheSvc, metricsSvc, cfg.Economy.SnapshotCacheTTL, logr)

	achievementSvc := service.NewAchievementService(criteriaRepo, logr, jobs.QueueConfig{Workers: 2})
	achievementSvc.Start(ctx)
	defer achievementSvc.Stop()
	ledgerSvc.SetLevelUpFunc(achievementSvc.OnLevelUp)

	eligibilitySvc := service.NewEligibilityService(catalogRepo, unlockRepo, criteriaRepo, loadoutRepo, studentRepo, thresholdSvc, ledgerSvc, metricsSvc, logr)
	awardSvc := service.NewAwardService(ledgerSvc, modifierSvc, challengeRepo, wheelRepo, giftRepo, cfg.Challenges, metricsSvc, logr)
	statementSvc := service.NewStatementService(ledgerSvc, cfg.Statements.MaxRows, logr)
	leaderboardSvc := service.NewLeaderboardService(cacheRepo, studentRepo, cfg.Leaderboard.Size, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)

	reconcileSvc := service.NewReconcileService(ledgerRepo, ledgerSvc, cfg.Reconcile, logr)
	if err := reconcileSvc.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start reconcile sweep", "error", err)
	}
	defer reconcileSvc.Stop() //nolint:errcheck

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(ledgerSvc, awardSvc, statementSvc)
	catalogHandler := handler.NewCatalogHandler(eligibilitySvc)
	awardHandler := handler.NewAwardHandler(awardSvc)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/students/:id", studentHandler.Snapshot)
		protected.POST("/students/:id/grants", studentHandler.Grant)
		protected.GET("/students/:id/ledger", studentHandler.Ledger)
		protected.GET("/students/:id/statement", studentHandler.Statement)

		protected.GET("/students/:id/eligibility", catalogHandler.Eligibility)
		protected.GET("/students/:id/catalog", catalogHandler.Catalog)
		protected.POST("/students/:id/purchases", catalogHandler.Purchase)
		protected.GET("/students/:id/loadout", catalogHandler.Loadout)
		protected.POST("/students/:id/loadout", catalogHandler.Equip)

		protected.POST("/students/:id/challenges/:key/completions", awardHandler.CompleteChallenge)
		if cfg.Wheel.Enabled {
			protected.POST("/students/:id/spins", awardHandler.Spin)
		}
		if cfg.Gifts.Enabled {
			protected.POST("/students/:id/gifts/:giftId/open", awardHandler.OpenGift)
		}

		if cfg.Leaderboard.Enabled {
			protected.GET("/leaderboard", leaderboardHandler.Top)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
