package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/fop-attendance-api/api/swagger"
	"github.com/noah-isme/fop-attendance-api/internal/handler"
	"github.com/noah-isme/fop-attendance-api/internal/middleware"
	"github.com/noah-isme/fop-attendance-api/internal/models"
	"github.com/noah-isme/fop-attendance-api/internal/qr"
	"github.com/noah-isme/fop-attendance-api/internal/repository"
	"github.com/noah-isme/fop-attendance-api/internal/rowstore"
	"github.com/noah-isme/fop-attendance-api/internal/scanner"
	"github.com/noah-isme/fop-attendance-api/internal/service"
	"github.com/noah-isme/fop-attendance-api/pkg/cache"
	"github.com/noah-isme/fop-attendance-api/pkg/config"
	"github.com/noah-isme/fop-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fop-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fop-attendance-api/pkg/middleware/requestid"
)

// @title FOP Attendance API
// @version 1.0.0
// @description QR-code attendance tracking backed by a spreadsheet row store
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

	ctx := context.Background()

	var store rowstore.Store
	switch cfg.Sheets.Backend {
	case config.StoreBackendMemory:
		store = rowstore.NewMemoryStore()
		logr.Warn("using in-memory row store, data will not survive restarts")
	default:
		sheetsStore, err := rowstore.NewSheetsStore(ctx, cfg.Sheets, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to spreadsheet", "error", err)
		}
		store = sheetsStore
	}

	attendanceSheet := cfg.Sheets.AttendanceSheet
	if attendanceSheet == "" {
		attendanceSheet = "attendance"
	}
	teachersSheet := cfg.Sheets.TeachersSheet
	if teachersSheet == "" {
		teachersSheet = "teachers"
	}

	attendanceRepo := repository.NewAttendanceRepository(store, attendanceSheet)
	teacherRepo := repository.NewTeacherRepository(store, teachersSheet)

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list cache disabled", "error", err)
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	codec := qr.NewCodec(cfg.QR.Format)

	attendanceSvc := service.NewAttendanceService(attendanceRepo, codec, cacheRepo, cfg.Cache.ListTTL, metricsSvc, logr)
	authSvc := service.NewAuthService(teacherRepo, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
	})
	exportSvc := service.NewExportService(attendanceSvc, nil, nil, logr)

	scanCfg := scanner.Config{
		DebounceWindow: cfg.Scanner.DebounceWindow,
		OpenRetries:    cfg.Scanner.SwitchRetries,
		OpenBackoff:    cfg.Scanner.SwitchBackoff,
	}

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, authSvc, exportSvc)
	qrHandler := handler.NewQRHandler(codec)
	scanHandler := handler.NewScanHandler(scanner.NewRegistry(), scanner.NewRemoteOpener(), attendanceSvc, scanCfg, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, func(ctx context.Context) error {
		_, err := store.ReadAll(ctx, attendanceSheet, models.AttendanceHeaders)
		return err
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Students generate their own codes; no account needed.
	api.POST("/qr", qrHandler.Generate)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.POST("/attendance/records", attendanceHandler.CreateRecord)
		protected.GET("/attendance/records", attendanceHandler.List)
		protected.GET("/attendance/records/:id", attendanceHandler.Get)
		protected.GET("/attendance/records/:id/export", attendanceHandler.Export)
		protected.POST("/attendance/mark", attendanceHandler.Mark)
		protected.GET("/attendance/teachers", middleware.RequireAdmin(), attendanceHandler.ListTeachers)

		protected.POST("/scan/sessions", scanHandler.Start)
		protected.GET("/scan/sessions/:id", scanHandler.Get)
		protected.POST("/scan/sessions/:id/scan", scanHandler.Scan)
		protected.PUT("/scan/sessions/:id/source", scanHandler.Switch)
		protected.DELETE("/scan/sessions/:id", scanHandler.Stop)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"store", cfg.Sheets.Backend,
		"qr_format", codec.Format(),
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
