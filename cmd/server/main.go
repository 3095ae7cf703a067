package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"invoicing-api/internal/auth"
	"invoicing-api/internal/backend"
	"invoicing-api/internal/config"
	apphttp "invoicing-api/internal/http"
	"invoicing-api/internal/repository/postgres"
	"invoicing-api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backends, err := backend.Build(ctx, backend.Options{
		ProductsPath:         cfg.Products.Path,
		ProductsFallbackPath: cfg.Products.FallbackPath,
		DatabasePath:         cfg.Database.Path,
		DatabaseFallbackPath: cfg.Database.FallbackPath,
		PostgresDSN:          cfg.Postgres.DSN,
		Postgres: postgres.Options{
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
			MaxConns:       cfg.Postgres.MaxConns,
		},
		Logger:     logger,
		Registerer: registry,
	})
	if err != nil {
		logger.Fatalf("resolve backends: %v", err)
	}
	defer backends.Close()

	issuer := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Dependencies{
		Users:       service.NewUserService(backends.Users),
		Products:    service.NewProductService(backends.Products),
		Invoices:    service.NewInvoiceService(backends.Invoices, backends.Products),
		Auth:        service.NewAuthService(backends.Users, hasher, issuer),
		Tokens:      issuer,
		Backends:    backends.Status,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
