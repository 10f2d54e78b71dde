package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"demandforecast/internal/artifact"
	"demandforecast/internal/config"
	cronrunner "demandforecast/internal/cron"
	"demandforecast/internal/db"
	"demandforecast/internal/handler"
	"demandforecast/internal/inference"
	"demandforecast/internal/ledger"
	"demandforecast/internal/logger"
	"demandforecast/internal/repository"
	gormrepository "demandforecast/internal/repository/gorm"
	"demandforecast/internal/service"
)

func main() {
	cfgPath := os.Getenv("DF_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DF_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// The encoding table is required to serve anything; a load failure is
	// fatal at process start.
	encodersPath := filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.EncodersFile)
	table, err := artifact.LoadEncodingTable(encodersPath)
	if err != nil {
		logger.Fatal("encoding table load failed", zap.String("path", encodersPath), zap.Error(err))
	}
	logger.Info("encoding table loaded",
		zap.String("path", encodersPath),
		zap.String("version", table.Version()),
	)

	// A model load failure is not fatal: the service comes up unhealthy,
	// readyz reports model_loaded=false and every predict returns 503.
	wrapper := &inference.Wrapper{}
	var meta artifact.Metadata
	modelPath := filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.ModelFile)
	model, err := artifact.LoadModel(modelPath)
	if err != nil {
		logger.Error("model load failed, serving unhealthy", zap.String("path", modelPath), zap.Error(err))
	} else {
		meta = model.Metadata()
		wrapper = &inference.Wrapper{Model: model, Calibration: meta.Calibration}
		logger.Info("model loaded",
			zap.String("model_id", meta.ModelID),
			zap.String("version", meta.Version),
			zap.Int("features", len(meta.Features)),
			zap.Float64("relative_half_width", meta.Calibration.RelativeHalfWidth),
		)
	}

	predictionLedger := ledger.New(logger, cfg.Ledger.WarnThreshold)
	svc := &service.PredictionService{
		Table:   table,
		Wrapper: wrapper,
		Meta:    meta,
		Ledger:  predictionLedger,
		Logger:  logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exporter *ledger.Exporter
	var historyRepo repository.Repository
	cronRunner := cronrunner.New(logger, ctx)
	if cfg.DB.Enabled && cfg.Ledger.Persist {
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)

		if err := db.Ping(dbConn); err != nil {
			logger.Fatal("db ping failed", zap.Error(err))
		}
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}

		store := gormrepository.New(dbConn.Gorm)
		historyRepo = store
		exporter = &ledger.Exporter{
			Ledger: predictionLedger,
			Repo:   store,
			Logger: logger,
		}
		if _, err := cronRunner.Add(cfg.Ledger.FlushCron, exporter.Flush); err != nil {
			logger.Warn("cron register ledger flush failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Service: svc}
	healthHandler.Register(engine)
	predictHandler := &handler.PredictHandler{Service: svc, Logger: logger}
	predictHandler.Register(engine)
	historyHandler := &handler.HistoryHandler{Ledger: predictionLedger, Repo: historyRepo}
	historyHandler.Register(engine)
	modelInfoHandler := &handler.ModelInfoHandler{Meta: meta, Loaded: wrapper.Loaded()}
	modelInfoHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Final drain so served predictions are not lost on clean shutdown.
	if exporter != nil {
		flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
		exporter.Flush(flushCtx)
		cancelFlush()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
