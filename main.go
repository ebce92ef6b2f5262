package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/api"
	"github.com/sykell/metabear/internal/app"
	"github.com/sykell/metabear/internal/config"
	"github.com/sykell/metabear/internal/db"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/service"
	"github.com/sykell/metabear/internal/tabs"
)

func main() {
	// .env is optional; the environment wins.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Log.Sync()

	logger.Log.Info("Initializing database...")
	dbConn, err := db.InitDB(db.NewConfig(cfg))
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	pipeline, err := app.NewPipeline(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to build audit pipeline", zap.Error(err))
	}
	defer pipeline.Close()

	manager := tabs.NewManager(pipeline.Options(service.NewAuditRecorder(dbConn)))

	queue := tabs.NewQueue(manager, &tabs.QueueConfig{
		Workers:   cfg.AuditWorkers,
		QueueSize: cfg.AuditQueueSize,
		Timeout:   cfg.FetchTimeout + cfg.DiscoveryTimeout,
	})
	if err := queue.Start(); err != nil {
		logger.Log.Fatal("Failed to start audit queue", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(api.Dependencies{
		DB:      dbConn,
		Manager: manager,
		Queue:   queue,
		Auth:    api.NewAuthConfig(cfg),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := queue.Stop(); err != nil {
		logger.Log.Error("Failed to stop audit queue", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
