package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/labstock-api/api/swagger"
	"github.com/noah-isme/labstock-api/internal/handler"
	internalmiddleware "github.com/noah-isme/labstock-api/internal/middleware"
	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository"
	"github.com/noah-isme/labstock-api/internal/repository/memstore"
	"github.com/noah-isme/labstock-api/internal/service"
	"github.com/noah-isme/labstock-api/pkg/cache"
	"github.com/noah-isme/labstock-api/pkg/config"
	"github.com/noah-isme/labstock-api/pkg/database"
	"github.com/noah-isme/labstock-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/labstock-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/labstock-api/pkg/middleware/requestid"
)

// @title Lab Stock API
// @version 1.0.0
// @description Central store intake, FIFO allocation and request fulfilment for teaching labs
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.ReadinessCheck{}

	stores, db, err := openStores(cfg)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
		checks["database"] = db.PingContext
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(context.Background(), db, logr); err != nil {
				logr.Fatal("failed to migrate schema", zap.Error(err))
			}
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, shared lab cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	cacheRepo := repository.NewCacheRepository(redisClient, "labstock", logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.LabDirectory.CacheTTL, logr, redisClient != nil && cfg.LabDirectory.Shared)

	centralLabID := cfg.Allocation.CentralStoreLabID
	if centralLabID == "" {
		centralLabID = models.CentralStoreLabID
	}
	retry := service.RetryPolicy{Attempts: cfg.Allocation.RetryAttempts, Backoff: cfg.Allocation.RetryBackoff}
	validate := service.NewValidator()

	labs := service.NewLabIDCache(stores.Labs, cacheSvc, service.LabCacheOptions{
		TTL:          cfg.LabDirectory.CacheTTL,
		ServeStale:   cfg.LabDirectory.ServeStale,
		CentralLabID: centralLabID,
	}, nil, logr)
	ledger := service.NewStockLedger(stores.Chemicals, stores.Equipment, stores.Glassware, stores.Ledger, centralLabID, logr)
	resolver := service.NewBatchIdentityResolver(ledger, logr)
	tracker := service.NewOutOfStockTracker(ledger, resolver, stores.OutOfStock, metricsSvc, logr)

	chemicalAllocator := service.NewChemicalAllocator(ledger, tracker, retry, metricsSvc, logr)
	glasswareAllocator := service.NewGlasswareAllocator(ledger, retry, metricsSvc, logr)
	equipmentAllocator := service.NewEquipmentAllocator(ledger, metricsSvc, logr)
	gate := service.NewDateGate(cfg.Allocation.GraceDays, cfg.Allocation.Location(), nil)

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)
	intakeSvc := service.NewIntakeService(resolver, tracker, validate, centralLabID, logr)
	allocationSvc := service.NewAllocationService(chemicalAllocator, equipmentAllocator, labs, validate, logr)
	requestSvc := service.NewRequestService(stores.Requests, chemicalAllocator, glasswareAllocator, equipmentAllocator, gate, labs, validate,
		service.RequestServiceConfig{SaveRetries: cfg.Allocation.DocumentSaveRetries}, logr)

	if _, err := labs.Refresh(context.Background()); err != nil {
		logr.Warn("lab directory warm-up failed", zap.Error(err))
	}

	chemicalHandler := handler.NewChemicalHandler(intakeSvc, allocationSvc, tracker)
	equipmentHandler := handler.NewEquipmentHandler(allocationSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	ledgerHandler := handler.NewLedgerHandler(ledger)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))
	admin := internalmiddleware.RequireAdmin()
	anyActor := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleCentralStore, models.RoleLabAssistant, models.RoleFaculty)

	chemicals := api.Group("/chemicals", admin)
	chemicals.POST("/intake", chemicalHandler.Intake)
	chemicals.POST("/allocate", chemicalHandler.Allocate)
	chemicals.GET("/out-of-stock", chemicalHandler.OutOfStock)

	api.POST("/equipment/allocate", admin, equipmentHandler.Allocate)
	api.GET("/ledger", admin, ledgerHandler.List)

	requests := api.Group("/requests")
	requests.POST("", internalmiddleware.RequireRoles(models.RoleFaculty, models.RoleAdmin, models.RoleCentralStore), requestHandler.Submit)
	requests.GET("", anyActor, requestHandler.List)
	requests.GET("/:id", anyActor, requestHandler.Get)
	requests.GET("/:id/permissions", anyActor, requestHandler.Permissions)
	requests.POST("/:id/approve", admin, requestHandler.Approve)
	requests.POST("/:id/reject", admin, requestHandler.Reject)
	requests.POST("/:id/allocate", admin, requestHandler.Allocate)
	requests.POST("/:id/fulfill-remaining", admin, requestHandler.FulfillRemaining)
	requests.POST("/:id/complete", admin, requestHandler.Complete)
	requests.POST("/:id/experiments/:experimentId/override", admin, requestHandler.SetOverride)
	requests.POST("/:id/experiments/:experimentId/items/:itemId/disable", admin, requestHandler.SetItemDisabled)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// openStores selects the persistence backend. The memory driver keeps everything in process and
// seeds the configured labs so local runs work without Postgres.
func openStores(cfg *config.Config) (service.Stores, *sqlx.DB, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		store := memstore.New()
		labs := make([]models.Lab, 0, len(cfg.Store.SeedLabs))
		for _, id := range cfg.Store.SeedLabs {
			labs = append(labs, models.Lab{ID: id, Name: id, Active: true})
		}
		store.SeedLabs(labs...)
		return service.Stores{
			Chemicals:  store.Chemicals(),
			Equipment:  store.Equipment(),
			Glassware:  store.Glassware(),
			Ledger:     store.Ledger(),
			OutOfStock: store.OutOfStock(),
			Requests:   store.Requests(),
			Labs:       store.Labs(),
		}, nil, nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return service.Stores{}, nil, err
	}
	return service.Stores{
		Chemicals:  repository.NewChemicalRepository(db),
		Equipment:  repository.NewEquipmentRepository(db),
		Glassware:  repository.NewGlasswareRepository(db),
		Ledger:     repository.NewLedgerRepository(db),
		OutOfStock: repository.NewOutOfStockRepository(db),
		Requests:   repository.NewRequestRepository(db),
		Labs:       repository.NewLabRepository(db),
	}, db, nil
}
