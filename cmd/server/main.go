package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/ruralpay/ledger-audit/docs"
	"github.com/ruralpay/ledger-audit/internal/auditlog"
	"github.com/ruralpay/ledger-audit/internal/config"
	"github.com/ruralpay/ledger-audit/internal/database"
	"github.com/ruralpay/ledger-audit/internal/handlers"
	"github.com/ruralpay/ledger-audit/internal/metrics"
	mW "github.com/ruralpay/ledger-audit/internal/middleware"
	"github.com/ruralpay/ledger-audit/internal/services"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Ledger Audit API
// @version 1.0
// @description Operator API for running ledger consistency audits
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

//go:generate swag init -d ../../ -g cmd/server/main.go -o ../../docs

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	config.Init()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var store handlers.ReportStore
	if redisClient := database.InitRedis(cfg.Redis, logger); redisClient != nil {
		defer redisClient.Close()
		store = database.NewReportCache(redisClient, cfg.Audit.ReportCacheTTL)
	}

	m := metrics.New()
	auditService := services.NewAuditService(
		database.NewPostgresSnapshotSource(db),
		auditlog.NewAuditLogger(logger),
		m,
		logger,
		services.AuditOptions{Forensic: cfg.Audit.Forensic, Concurrent: cfg.Audit.Concurrent},
	)
	auditHandler := handlers.NewAuditHandler(auditService, store, logger, cfg.Audit.Timeout)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes(auditHandler, m, []byte(cfg.Server.JWTSecretKey)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func routes(auditHandler *handlers.AuditHandler, m *metrics.Metrics, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", m.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.AuthMiddleware(jwtSecret))

		r.Post("/audits", auditHandler.RunAudit)
		r.Get("/audits/latest", auditHandler.LatestReport)
	})

	return r
}
